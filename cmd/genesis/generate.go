package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/genesis/internal/config"
	"github.com/ShayCichocki/genesis/pkg/models"
)

var (
	generateOutput      string
	generateWorkflowID  string
	generateCallbackURL string
	generateMetricsAddr string
	generateJSON        bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <project-file>",
	Short: "Generate a project from a project file",
	Long: `Validate a project file, plan its generation workflow and run it on the
configured Temporal engine.

The project file is YAML (or JSON):

  name: storefront
  template: e-commerce
  components: [backend, frontend, database]
  features: [authentication, billing]
  stack:
    backend: fastapi
    frontend: nextjs

Absent keys take their defaults. The result is printed when the workflow
finishes; interrupting the command cancels the running workflow.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output directory (default: ./<project name>)")
	generateCmd.Flags().StringVar(&generateWorkflowID, "workflow-id", "", "Workflow ID to use instead of a generated one")
	generateCmd.Flags().StringVar(&generateCallbackURL, "callback-url", "", "Callback URL recorded in the result metadata")
	generateCmd.Flags().StringVar(&generateMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while generating")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Print the result as JSON")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	project, err := config.LoadProjectFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	outputPath, err := resolveOutputPath(generateOutput, project.Name)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	if generateMetricsAddr != "" {
		addr, err := rt.serveMetrics(generateMetricsAddr)
		if err != nil {
			return err
		}
		if !generateJSON {
			printStatus(out, "•", fmt.Sprintf("Metrics at http://%s/metrics", addr), color.FgCyan)
		}
	}

	if err := rt.orch.Start(cmd.Context()); err != nil {
		return err
	}
	if !generateJSON {
		printStatus(out, "•", fmt.Sprintf("Generating %s (%s) into %s", project.Name, project.Template, outputPath), color.FgCyan)
	}

	workflowID := generateWorkflowID
	if workflowID == "" {
		workflowID = uuid.NewString()
	}

	// An interrupt cancels the workflow on the engine; Execute then returns
	// the cancelled result.
	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCtx.Done():
			cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if !rt.orch.Cancel(cctx, workflowID) {
				rt.logger.Warn().Str("workflow_id", workflowID).Msg("cancel on interrupt not confirmed")
			}
		case <-done:
		}
	}()

	result := rt.orch.Execute(cmd.Context(), models.GenerationRequest{
		Project:     project,
		OutputPath:  outputPath,
		WorkflowID:  workflowID,
		CallbackURL: generateCallbackURL,
	})
	close(done)

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stopErr := rt.orch.Stop(stopCtx)

	if generateJSON {
		if err := printJSON(out, result); err != nil {
			return err
		}
	} else {
		printResult(out, result)
	}

	if stopErr != nil {
		return fmt.Errorf("shutdown: %w", stopErr)
	}
	if !result.Success {
		return fmt.Errorf("generation failed: %s", result.Error)
	}
	return nil
}

// resolveOutputPath defaults to ./<name> and makes the path absolute.
func resolveOutputPath(output, projectName string) (string, error) {
	if output == "" {
		output = projectName
	}
	abs, err := filepath.Abs(output)
	if err != nil {
		return "", fmt.Errorf("resolving output path: %w", err)
	}
	return abs, nil
}

func printResult(w io.Writer, r models.GenerationResult) {
	elapsed := formatDuration(time.Duration(r.ExecutionTime * float64(time.Second)))
	if !r.Success {
		printStatus(w, "✗", fmt.Sprintf("Workflow %s failed after %s: %s", r.WorkflowID, elapsed, r.Error), color.FgRed)
		return
	}

	printStatus(w, "✓", fmt.Sprintf("Workflow %s completed in %s", r.WorkflowID, elapsed), color.FgGreen)
	fmt.Fprintf(w, "  Project: %s\n", r.ProjectPath)
	fmt.Fprintf(w, "  Files:   %d\n", len(r.GeneratedFiles))
	for _, f := range r.GeneratedFiles {
		fmt.Fprintf(w, "    %s\n", f)
	}
}
