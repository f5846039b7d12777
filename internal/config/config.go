// Package config handles configuration loading and management for Genesis.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/genesis/internal/workflow"
	"github.com/ShayCichocki/genesis/pkg/models"
)

// ProjectConfigName is the per-project override file searched for in the
// working directory and its parents.
const ProjectConfigName = ".genesis.yaml"

// EnvPrefix prefixes every environment override, e.g. GENESIS_LOG_LEVEL.
const EnvPrefix = "GENESIS"

// Config holds all configuration for Genesis.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Agents   AgentsConfig   `mapstructure:"agents"`
	State    StateConfig    `mapstructure:"state"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Log      LogConfig      `mapstructure:"log"`
}

// EngineConfig selects and configures the workflow engine.
type EngineConfig struct {
	Temporal TemporalConfig `mapstructure:"temporal"`
}

// TemporalConfig holds Temporal frontend settings.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// AgentsConfig says where the agent registry comes from. File wins over
// Static when both are set.
type AgentsConfig struct {
	File   string   `mapstructure:"file"`
	Static []string `mapstructure:"static"`
}

// StateConfig holds in-memory store bounds and the archive location.
type StateConfig struct {
	Capacity    int           `mapstructure:"capacity"`
	RetainFor   time.Duration `mapstructure:"retain_for"`
	ArchivePath string        `mapstructure:"archive_path"`
}

// WorkflowConfig holds the execution policy stamped on each definition.
type WorkflowConfig struct {
	MaxParallelTasks int           `mapstructure:"max_parallel_tasks"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// LogConfig holds orchestrator log settings. An empty Path disables the
// file log.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (GENESIS_*, e.g. GENESIS_STATE_CAPACITY)
// 2. Project config (.genesis.yaml in current directory or parent)
// 3. User config (~/.config/genesis/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file on top of the
// defaults. Environment overrides still apply.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	return SaveToPath(cfg, GetUserConfigPath())
}

// SaveToPath writes the configuration as YAML to path.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("engine.temporal.host_port", cfg.Engine.Temporal.HostPort)
	v.Set("engine.temporal.namespace", cfg.Engine.Temporal.Namespace)
	v.Set("engine.temporal.task_queue", cfg.Engine.Temporal.TaskQueue)
	v.Set("agents.file", cfg.Agents.File)
	v.Set("agents.static", cfg.Agents.Static)
	v.Set("state.capacity", cfg.State.Capacity)
	v.Set("state.retain_for", cfg.State.RetainFor.String())
	v.Set("state.archive_path", cfg.State.ArchivePath)
	v.Set("workflow.max_parallel_tasks", cfg.Workflow.MaxParallelTasks)
	v.Set("workflow.timeout", cfg.Workflow.Timeout.String())
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// Policy returns the workflow execution policy.
func (c *Config) Policy() workflow.Policy {
	return workflow.Policy{
		MaxParallelTasks: c.Workflow.MaxParallelTasks,
		Timeout:          c.Workflow.Timeout,
	}
}

// LogLevel parses Log.Level, falling back to info for empty or unknown
// values.
func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Validate rejects settings the orchestrator cannot run with.
func (c *Config) Validate() error {
	if c.Engine.Temporal.HostPort == "" {
		return fmt.Errorf("engine.temporal.host_port is required")
	}
	if c.Engine.Temporal.TaskQueue == "" {
		return fmt.Errorf("engine.temporal.task_queue is required")
	}
	if c.State.Capacity < 0 {
		return fmt.Errorf("state.capacity must not be negative, got %d", c.State.Capacity)
	}
	if c.Workflow.MaxParallelTasks < 1 {
		return fmt.Errorf("workflow.max_parallel_tasks must be at least 1, got %d", c.Workflow.MaxParallelTasks)
	}
	if c.Workflow.Timeout <= 0 {
		return fmt.Errorf("workflow.timeout must be positive, got %s", c.Workflow.Timeout)
	}
	return nil
}

// LoadProjectFile reads a project configuration document (YAML or JSON)
// and validates it. Absent keys take the project defaults.
func LoadProjectFile(path string) (*models.ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}

	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing project file %s: %w", path, err)
	}

	cfg, err := models.ProjectConfigFromMap(doc)
	if err != nil {
		return nil, fmt.Errorf("project file %s: %w", path, err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Agents.File = expandEnv(cfg.Agents.File)
	cfg.State.ArchivePath = expandEnv(cfg.State.ArchivePath)
	cfg.Log.Path = expandEnv(cfg.Log.Path)

	return cfg, nil
}

// setDefaults configures default values. Every key needs one so that
// AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("engine.temporal.host_port", d.Engine.Temporal.HostPort)
	v.SetDefault("engine.temporal.namespace", d.Engine.Temporal.Namespace)
	v.SetDefault("engine.temporal.task_queue", d.Engine.Temporal.TaskQueue)

	v.SetDefault("agents.file", "")
	v.SetDefault("agents.static", d.Agents.Static)

	v.SetDefault("state.capacity", d.State.Capacity)
	v.SetDefault("state.retain_for", d.State.RetainFor.String())
	v.SetDefault("state.archive_path", "")

	v.SetDefault("workflow.max_parallel_tasks", d.Workflow.MaxParallelTasks)
	v.SetDefault("workflow.timeout", d.Workflow.Timeout.String())

	v.SetDefault("log.path", "")
	v.SetDefault("log.level", d.Log.Level)
}

// getUserConfigDir returns the XDG config directory for Genesis.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "genesis")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "genesis")
	}
	return filepath.Join(home, ".config", "genesis")
}

// findProjectConfig searches for .genesis.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	policy := workflow.DefaultPolicy()
	return &Config{
		Engine: EngineConfig{
			Temporal: TemporalConfig{
				HostPort:  "localhost:7233",
				Namespace: "default",
				TaskQueue: "genesis-generation",
			},
		},
		Agents: AgentsConfig{
			Static: []string{models.AgentArchitect, models.AgentBackend, models.AgentFrontend, models.AgentDevOps},
		},
		State: StateConfig{
			Capacity:  1024,
			RetainFor: 24 * time.Hour,
		},
		Workflow: WorkflowConfig{
			MaxParallelTasks: policy.MaxParallelTasks,
			Timeout:          policy.Timeout,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
