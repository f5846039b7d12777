package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/genesis/internal/config"
	"github.com/ShayCichocki/genesis/internal/graph"
	"github.com/ShayCichocki/genesis/internal/workflow"
	"github.com/ShayCichocki/genesis/pkg/models"
)

var (
	planOutput string
	planJSON   bool
)

var planCmd = &cobra.Command{
	Use:   "plan <project-file>",
	Short: "Show the generation workflow for a project file",
	Long: `Validate a project file and print the workflow that generate would run,
in dependency order, without contacting the engine.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "", "Output directory (default: ./<project name>)")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Print the workflow definition as JSON")
}

func runPlan(cmd *cobra.Command, args []string) error {
	project, err := config.LoadProjectFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	outputPath, err := resolveOutputPath(planOutput, project.Name)
	if err != nil {
		return err
	}

	def, err := workflow.Build(project, outputPath, "plan", cfg.Policy())
	if err != nil {
		return err
	}

	if planJSON {
		return printJSON(cmd.OutOrStdout(), def)
	}
	return renderPlan(cmd.OutOrStdout(), def)
}

// renderPlan prints the tasks of def in topological order.
func renderPlan(w io.Writer, def *models.WorkflowDefinition) error {
	g := graph.New()
	if err := g.Build(def.Tasks); err != nil {
		return err
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %d tasks, %d in parallel, timeout %s\n",
		def.Name, len(def.Tasks), def.MaxParallelTasks, def.Timeout)
	fmt.Fprintf(w, "Starts with: %s\n", strings.Join(g.Roots(), ", "))

	tw := newTable(w)
	tw.AppendHeader(table.Row{"#", "Task", "Agent", "Action", "Depends On", "Unblocks", "Inputs"})
	for i, id := range order {
		t := g.GetTask(id)
		tw.AppendRow(table.Row{
			i + 1, t.ID, t.AgentID, t.Action,
			strings.Join(t.Dependencies, ", "),
			strings.Join(g.GetDependents(id), ", "),
			describeParams(t.Params),
		})
	}
	tw.Render()
	return nil
}

// describeParams lists param names, marking the ones that read another
// task's result.
func describeParams(params map[string]models.Param) string {
	names := make([]string, 0, len(params))
	for name, p := range params {
		if p.IsRef() {
			name += "←" + p.TaskID
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
