package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/genesis/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Genesis configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/genesis/config.yaml
Project-specific overrides can be placed in .genesis.yaml
Any key can be overridden from the environment, e.g. GENESIS_LOG_LEVEL=debug`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			displayAllConfig(out, cfg)
			return nil
		case 1:
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, value)
			return nil
		default:
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Fprintf(out, "Set %s = %s\n", args[0], args[1])
			return nil
		}
	},
}

// configKeys lists every key in display order.
var configKeys = []string{
	"engine.temporal.host_port",
	"engine.temporal.namespace",
	"engine.temporal.task_queue",
	"agents.file",
	"agents.static",
	"state.capacity",
	"state.retain_for",
	"state.archive_path",
	"workflow.max_parallel_tasks",
	"workflow.timeout",
	"log.path",
	"log.level",
}

// displayAllConfig prints all configuration values.
func displayAllConfig(w io.Writer, cfg *config.Config) {
	for _, key := range configKeys {
		value, _ := getConfigValue(cfg, key)
		fmt.Fprintf(w, "%s: %s\n", key, value)
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "engine.temporal.host_port":
		return cfg.Engine.Temporal.HostPort, nil
	case "engine.temporal.namespace":
		return cfg.Engine.Temporal.Namespace, nil
	case "engine.temporal.task_queue":
		return cfg.Engine.Temporal.TaskQueue, nil
	case "agents.file":
		return orNotSet(cfg.Agents.File), nil
	case "agents.static":
		return orNotSet(strings.Join(cfg.Agents.Static, ",")), nil
	case "state.capacity":
		return strconv.Itoa(cfg.State.Capacity), nil
	case "state.retain_for":
		return cfg.State.RetainFor.String(), nil
	case "state.archive_path":
		return orNotSet(cfg.State.ArchivePath), nil
	case "workflow.max_parallel_tasks":
		return strconv.Itoa(cfg.Workflow.MaxParallelTasks), nil
	case "workflow.timeout":
		return cfg.Workflow.Timeout.String(), nil
	case "log.path":
		return orNotSet(cfg.Log.Path), nil
	case "log.level":
		return cfg.Log.Level, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "engine.temporal.host_port":
		cfg.Engine.Temporal.HostPort = value
	case "engine.temporal.namespace":
		cfg.Engine.Temporal.Namespace = value
	case "engine.temporal.task_queue":
		cfg.Engine.Temporal.TaskQueue = value
	case "agents.file":
		cfg.Agents.File = value
	case "agents.static":
		cfg.Agents.Static = splitList(value)
	case "state.capacity":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for state.capacity: %w", err)
		}
		cfg.State.Capacity = n
	case "state.retain_for":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for state.retain_for: %w", err)
		}
		cfg.State.RetainFor = d
	case "state.archive_path":
		cfg.State.ArchivePath = value
	case "workflow.max_parallel_tasks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for workflow.max_parallel_tasks: %w", err)
		}
		cfg.Workflow.MaxParallelTasks = n
	case "workflow.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for workflow.timeout: %w", err)
		}
		cfg.Workflow.Timeout = d
	case "log.path":
		cfg.Log.Path = value
	case "log.level":
		cfg.Log.Level = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
