package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ShayCichocki/genesis/pkg/models"
)

// printStatus prints a status line with color
func printStatus(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

// statusColor picks the color a workflow status is printed in.
func statusColor(s models.WorkflowStatus) color.Attribute {
	switch s {
	case models.WorkflowCompleted:
		return color.FgGreen
	case models.WorkflowFailed:
		return color.FgRed
	case models.WorkflowCancelled:
		return color.FgYellow
	default:
		return color.FgCyan
	}
}

func colorStatus(s models.WorkflowStatus) string {
	return color.New(statusColor(s)).Sprint(string(s))
}

func formatProgress(p float64) string {
	return fmt.Sprintf("%.0f%%", p*100)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

// workflowDuration is how long a workflow ran, or has been running.
func workflowDuration(w models.WorkflowSnapshot, now time.Time) time.Duration {
	end := now
	if w.CompletedAt != nil {
		end = *w.CompletedAt
	}
	return end.Sub(w.StartedAt)
}
