package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/genesis/internal/state"
)

var (
	statusLimit int
	statusJSON  bool

	purgeOlderThan time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status [workflow-id]",
	Short: "Show archived workflows",
	Long: `Display finished workflows from the archive.

Without arguments, lists the most recent workflows.
With a workflow ID, shows that workflow and the project it generated.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete old workflows from the archive",
	RunE:  runPurge,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Number of workflows to list (0 for all)")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print as JSON")

	purgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 30*24*time.Hour, "Delete workflows archived before this long ago")
}

// openArchive opens the configured archive without creating it.
func openArchive() (*state.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	path := cfg.State.ArchivePath
	if path == "" {
		path = state.DefaultArchivePath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	return state.OpenArchive(path)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	db, err := openArchive()
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	if db == nil {
		fmt.Fprintln(out, "No archived workflows. Run 'genesis generate <project-file>' to start.")
		return nil
	}
	defer db.Close()

	if len(args) == 1 {
		rec, err := db.GetArchivedWorkflow(args[0])
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("workflow %s not found", args[0])
		}
		if statusJSON {
			return printJSON(out, rec)
		}
		displayRecord(out, rec, time.Now())
		return nil
	}

	records, err := db.ListArchivedWorkflows(statusLimit)
	if err != nil {
		return err
	}
	if statusJSON {
		return printJSON(out, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No archived workflows.")
		return nil
	}
	displayRecords(out, records, time.Now())
	return nil
}

func displayRecord(w io.Writer, rec *state.WorkflowRecord, now time.Time) {
	wf, p := rec.Workflow, rec.Project

	fmt.Fprintf(w, "Workflow: %s\n", wf.WorkflowID)
	fmt.Fprintf(w, "  Status:   %s\n", colorStatus(wf.Status))
	fmt.Fprintf(w, "  Progress: %s\n", formatProgress(wf.Progress))
	fmt.Fprintf(w, "  Started:  %s (%s ago)\n", wf.StartedAt.Local().Format(time.DateTime), formatDuration(now.Sub(wf.StartedAt)))
	fmt.Fprintf(w, "  Duration: %s\n", formatDuration(workflowDuration(wf, now)))
	if wf.Error != "" {
		fmt.Fprintf(w, "  Error:    %s\n", color.RedString(wf.Error))
	}

	fmt.Fprintf(w, "Project: %s\n", p.Name)
	fmt.Fprintf(w, "  Template:   %s\n", p.Template)
	fmt.Fprintf(w, "  Output:     %s\n", p.OutputPath)
	fmt.Fprintf(w, "  Components: %s\n", joinStrings(p.Components))
	if len(p.Features) > 0 {
		fmt.Fprintf(w, "  Features:   %s\n", joinStrings(p.Features))
	}
}

func displayRecords(w io.Writer, records []state.WorkflowRecord, now time.Time) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Workflow", "Project", "Status", "Progress", "Started", "Duration"})
	for _, rec := range records {
		wf := rec.Workflow
		tw.AppendRow(table.Row{
			wf.WorkflowID,
			rec.Project.Name,
			colorStatus(wf.Status),
			formatProgress(wf.Progress),
			formatDuration(now.Sub(wf.StartedAt)) + " ago",
			formatDuration(workflowDuration(wf, now)),
		})
	}
	tw.Render()
}

func runPurge(cmd *cobra.Command, args []string) error {
	db, err := openArchive()
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	if db == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No archive to purge.")
		return nil
	}
	defer db.Close()

	n, err := db.PurgeArchivedWorkflows(purgeOlderThan)
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), "✓", fmt.Sprintf("Purged %d workflows older than %s", n, formatDuration(purgeOlderThan)), color.FgGreen)
	return nil
}

func joinStrings[T ~string](in []T) string {
	parts := make([]string, len(in))
	for i, s := range in {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
