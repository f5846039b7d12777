package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/ShayCichocki/genesis/internal/config"
	"github.com/ShayCichocki/genesis/internal/engine"
	"github.com/ShayCichocki/genesis/internal/state"
	"github.com/ShayCichocki/genesis/internal/workflow"
	"github.com/ShayCichocki/genesis/pkg/models"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestConfigValue_RoundTrip(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"engine.temporal.host_port", "temporal:7233", "temporal:7233"},
		{"engine.temporal.namespace", "genesis", "genesis"},
		{"engine.temporal.task_queue", "scaffolds", "scaffolds"},
		{"agents.file", "/etc/agents.yaml", "/etc/agents.yaml"},
		{"agents.static", "architect_agent, devops_agent,", "architect_agent,devops_agent"},
		{"state.capacity", "32", "32"},
		{"state.retain_for", "90m", "1h30m0s"},
		{"state.archive_path", "/tmp/a.db", "/tmp/a.db"},
		{"workflow.max_parallel_tasks", "6", "6"},
		{"workflow.timeout", "1h", "1h0m0s"},
		{"log.path", "/tmp/genesis.log", "/tmp/genesis.log"},
		{"LOG.LEVEL", "DEBUG", "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := config.Default()
			if err := setConfigValue(cfg, tt.key, tt.value); err != nil {
				t.Fatalf("setConfigValue(%q, %q) error = %v", tt.key, tt.value, err)
			}
			got, err := getConfigValue(cfg, tt.key)
			if err != nil {
				t.Fatalf("getConfigValue(%q) error = %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("getConfigValue(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestConfigValue_Errors(t *testing.T) {
	cfg := config.Default()

	if _, err := getConfigValue(cfg, "anthropic.api_key"); err == nil {
		t.Error("expected error for unknown key")
	}
	for _, tc := range [][2]string{
		{"state.capacity", "lots"},
		{"state.retain_for", "forever"},
		{"workflow.max_parallel_tasks", "three"},
		{"workflow.timeout", "soon"},
		{"nope", "x"},
	} {
		if err := setConfigValue(cfg, tc[0], tc[1]); err == nil {
			t.Errorf("setConfigValue(%q, %q) expected error", tc[0], tc[1])
		}
	}
}

func TestDisplayAllConfig(t *testing.T) {
	var buf bytes.Buffer
	displayAllConfig(&buf, config.Default())

	out := buf.String()
	for _, key := range configKeys {
		if !strings.Contains(out, key+": ") {
			t.Errorf("output missing %s", key)
		}
	}
	if !strings.Contains(out, "log.path: (not set)") {
		t.Errorf("expected unset log path, got:\n%s", out)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{72 * time.Hour, "3d"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestResolveOutputPath(t *testing.T) {
	got, err := resolveOutputPath("", "storefront")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got) || filepath.Base(got) != "storefront" {
		t.Errorf("resolveOutputPath default = %q", got)
	}

	got, err = resolveOutputPath("/srv/out", "storefront")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/srv/out" {
		t.Errorf("resolveOutputPath explicit = %q", got)
	}
}

func TestRenderPlan(t *testing.T) {
	project, err := models.NewProjectConfig(models.ProjectConfig{
		Name:       "storefront",
		Template:   models.TemplateECommerce,
		Components: []models.Component{models.ComponentBackend, models.ComponentFrontend},
		Stack:      models.DefaultStackConfig(),
	})
	if err != nil {
		t.Fatal(err)
	}
	def, err := workflow.Build(project, "/srv/storefront", "plan", workflow.DefaultPolicy())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := renderPlan(&buf, def); err != nil {
		t.Fatalf("renderPlan() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "5 tasks") {
		t.Errorf("missing task count:\n%s", out)
	}
	if !strings.Contains(out, "Starts with: "+workflow.TaskAnalyze+"\n") {
		t.Errorf("expected analysis as the only root:\n%s", out)
	}
	if !strings.Contains(out, "generate_backend, generate_frontend") {
		t.Errorf("expected design to unblock both generators:\n%s", out)
	}

	order := []string{workflow.TaskAnalyze, workflow.TaskDesign, "generate_backend", workflow.TaskDevOps}
	last := -1
	for _, id := range order {
		idx := strings.Index(out, id)
		if idx < 0 {
			t.Fatalf("plan missing %s:\n%s", id, out)
		}
		if idx < last {
			t.Errorf("%s printed out of dependency order:\n%s", id, out)
		}
		last = idx
	}
	if !strings.Contains(out, "requirements←"+workflow.TaskAnalyze) {
		t.Errorf("expected reference marker for design inputs:\n%s", out)
	}
}

func TestDisplayAgents_FileRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	content := `agents:
  - id: architect_agent
    description: Plans the architecture
    actions: [analyze_requirements, design_architecture]
  - id: backend_agent
  - id: frontend_agent
    status: disabled
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := engine.NewFileRegistry(path, nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	displayAgents(&buf, reg)

	out := buf.String()
	if !strings.Contains(out, "Plans the architecture") || !strings.Contains(out, "backend_agent") {
		t.Errorf("agents table missing entries:\n%s", out)
	}
	if !strings.Contains(out, "Missing agents") || !strings.Contains(out, "frontend_agent") {
		t.Errorf("expected disabled frontend agent to be reported missing:\n%s", out)
	}
}

func TestDisplayAgents_Empty(t *testing.T) {
	var buf bytes.Buffer
	displayAgents(&buf, engine.NewStaticRegistry())
	if !strings.Contains(buf.String(), "No agents available") {
		t.Errorf("got %q", buf.String())
	}
}

func TestMissingAgents(t *testing.T) {
	all := []string{models.AgentArchitect, models.AgentBackend, models.AgentFrontend, models.AgentDevOps}
	if got := missingAgents(all); len(got) != 0 {
		t.Errorf("missingAgents(all) = %v", got)
	}
	got := missingAgents([]string{models.AgentArchitect})
	if len(got) != 3 || got[len(got)-1] != models.AgentDevOps {
		t.Errorf("missingAgents(architect) = %v", got)
	}
}

func TestNewRegistry(t *testing.T) {
	cfg := config.Default()
	reg, err := newRegistry(cfg, engine.NewBus(zerolog.Nop()), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if got := reg.ListAgents(); len(got) != len(cfg.Agents.Static) {
		t.Errorf("static registry lists %v", got)
	}

	cfg.Agents.File = filepath.Join(t.TempDir(), "agents.yaml")
	reg, err = newRegistry(cfg, engine.NewBus(zerolog.Nop()), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer reg.(*engine.FileRegistry).Close()
	if got := reg.ListAgents(); len(got) != 0 {
		t.Errorf("missing agents file should list nothing, got %v", got)
	}
}

func TestDisplayRecords(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	done := now.Add(-time.Minute)
	records := []state.WorkflowRecord{
		{
			Workflow: models.WorkflowSnapshot{
				WorkflowID:  "wf-ok",
				Status:      models.WorkflowCompleted,
				StartedAt:   now.Add(-5 * time.Minute),
				CompletedAt: &done,
				Progress:    1,
			},
			Project: models.ProjectSnapshot{Name: "shop"},
		},
		{
			Workflow: models.WorkflowSnapshot{
				WorkflowID: "wf-bad",
				Status:     models.WorkflowFailed,
				StartedAt:  now.Add(-2 * time.Hour),
				Progress:   0.4,
				Error:      "backend agent crashed",
			},
			Project: models.ProjectSnapshot{Name: "blog"},
		},
	}

	var buf bytes.Buffer
	displayRecords(&buf, records, now)
	out := buf.String()
	for _, want := range []string{"wf-ok", "shop", "100%", "4m", "wf-bad", "40%", "2h ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	displayRecord(&buf, &records[1], now)
	out = buf.String()
	for _, want := range []string{"Workflow: wf-bad", "failed", "backend agent crashed", "Project: blog"} {
		if !strings.Contains(out, want) {
			t.Errorf("record missing %q:\n%s", want, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	if !strings.HasPrefix(buf.String(), "genesis version ") {
		t.Errorf("version output = %q", buf.String())
	}
}
