package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/genesis/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Project scaffolding orchestrator",
	Long: `Genesis turns a declarative project description into a generation
workflow and runs it on a Temporal workflow engine.

A project file names the project, its template, the components to generate
and the stack to use. Genesis validates it, checks that the required agents
are available, plans the task graph and hands it to the engine.

Core capabilities:
- Validates and normalizes project configurations
- Plans dependency-ordered generation workflows
- Tracks workflow progress and archives finished runs
- Exposes Prometheus metrics while generating`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config merged with .genesis.yaml)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig honors --config, falling back to the layered lookup.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}
