package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/genesis/internal/engine"
	"github.com/ShayCichocki/genesis/pkg/models"
)

var agentsWatch bool

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List available agents",
	Long: `List the agents the configured registry reports as available.

Agents come from agents.file when set, otherwise from agents.static.
With --watch, keeps running and reports agents added to the file.`,
	RunE: runAgents,
}

func init() {
	agentsCmd.Flags().BoolVarP(&agentsWatch, "watch", "w", false, "Watch the agents file for new agents")
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out := cmd.OutOrStdout()
	bus := engine.NewBus(zerolog.Nop())
	defer bus.Close()

	reg, err := newRegistry(cfg, bus, zerolog.Nop())
	if err != nil {
		return err
	}
	if closer, ok := reg.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	displayAgents(out, reg)

	if !agentsWatch {
		return nil
	}
	if cfg.Agents.File == "" {
		return fmt.Errorf("--watch needs agents.file to be configured")
	}

	unsubscribe := bus.Subscribe(engine.TopicAgentRegistered, func(ev engine.Event) {
		printStatus(out, "+", fmt.Sprintf("Agent registered: %s", ev.AgentID), color.FgGreen)
	})
	defer unsubscribe()

	fmt.Fprintf(out, "\nWatching %s (Ctrl-C to stop)\n", cfg.Agents.File)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

// agentDetails is implemented by registries that know more than IDs.
type agentDetails interface {
	Agent(id string) (models.Agent, bool)
}

func displayAgents(w io.Writer, reg engine.Registry) {
	ids := reg.ListAgents()
	if len(ids) == 0 {
		fmt.Fprintln(w, "No agents available.")
		return
	}

	details, _ := reg.(agentDetails)

	tw := newTable(w)
	tw.AppendHeader(table.Row{"Agent", "Status", "Actions", "Description"})
	for _, id := range ids {
		row := table.Row{id, string(models.AgentStatusAvailable), "", ""}
		if details != nil {
			if a, ok := details.Agent(id); ok {
				row[2] = strings.Join(a.Actions, ", ")
				row[3] = a.Description
			}
		}
		tw.AppendRow(row)
	}
	tw.Render()

	if missing := missingAgents(ids); len(missing) > 0 {
		printStatus(w, "⚠", fmt.Sprintf("Missing agents needed for a full project: %s", strings.Join(missing, ", ")), color.FgYellow)
	}
}

// missingAgents reports which agents a project using every component
// would need but the registry does not list.
func missingAgents(available []string) []string {
	have := make(map[string]bool, len(available))
	for _, id := range available {
		have[id] = true
	}

	var missing []string
	for _, id := range models.RequiredAgents(models.AllComponents) {
		if !have[id] && !containsString(missing, id) {
			missing = append(missing, id)
		}
	}
	return missing
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
