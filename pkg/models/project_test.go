package models

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func validConfig() ProjectConfig {
	return ProjectConfig{
		Name:       "Demo-App",
		Template:   TemplateSaaSBasic,
		Components: []Component{ComponentBackend, ComponentFrontend},
		Features:   []Feature{FeatureAuthentication},
		Stack:      StackConfig{Backend: "fastapi", Frontend: "nextjs"},
	}
}

func TestNewProjectConfig_NormalizesName(t *testing.T) {
	cfg, err := NewProjectConfig(validConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Name != "demo-app" {
		t.Errorf("Name = %q, want %q", cfg.Name, "demo-app")
	}
	if !validName(cfg.Name) {
		t.Errorf("normalized name %q fails the name predicate", cfg.Name)
	}
}

func TestNewProjectConfig_NameValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "app", false},
		{"hyphens and underscores", "my_app-2", false},
		{"upper case", "MyApp", false},
		{"space", "my app", true},
		{"bang", "app!", true},
		{"dot", "my.app", true},
		{"only separators", "-_-", true},
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxNameLength+1), true},
		{"max length", strings.Repeat("a", MaxNameLength), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Name = tt.input
			_, err := NewProjectConfig(c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewProjectConfig(name=%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not match ErrInvalidConfig", err)
			}
		})
	}
}

func TestNewProjectConfig_EmptyComponents(t *testing.T) {
	c := validConfig()
	c.Components = []Component{}
	_, err := NewProjectConfig(c)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "components" {
		t.Fatalf("expected components validation error, got %v", err)
	}
}

func TestNewProjectConfig_DatabaseOnlyNeedsNoStack(t *testing.T) {
	c := validConfig()
	c.Components = []Component{ComponentDatabase}
	c.Stack = StackConfig{}
	if _, err := NewProjectConfig(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewProjectConfig_StackConsistency(t *testing.T) {
	c := validConfig()
	c.Components = []Component{ComponentBackend}
	c.Stack = StackConfig{Frontend: "nextjs"}
	_, err := NewProjectConfig(c)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "stack" {
		t.Fatalf("expected stack validation error, got %v", err)
	}

	c.Stack.Backend = "fastapi"
	if _, err := NewProjectConfig(c); err != nil {
		t.Fatalf("unexpected error with backend stack set: %v", err)
	}

	c.Components = []Component{ComponentFrontend}
	c.Stack = StackConfig{Backend: "fastapi"}
	if _, err := NewProjectConfig(c); err == nil {
		t.Fatal("expected error for frontend without frontend stack")
	}
}

func TestNewProjectConfig_EnumChecks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProjectConfig)
		field  string
	}{
		{"unknown template", func(c *ProjectConfig) { c.Template = "wordpress" }, "template"},
		{"unknown component", func(c *ProjectConfig) { c.Components = append(c.Components, "mainframe") }, "components"},
		{"unknown feature", func(c *ProjectConfig) { c.Features = []Feature{"telepathy"} }, "features"},
		{"long description", func(c *ProjectConfig) { c.Description = strings.Repeat("x", MaxDescriptionLength+1) }, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			_, err := NewProjectConfig(c)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestNewProjectConfig_DefaultsAndDedupe(t *testing.T) {
	c := validConfig()
	c.Template = ""
	c.Components = []Component{ComponentBackend, ComponentBackend, ComponentDatabase}
	cfg, err := NewProjectConfig(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Template != DefaultTemplate {
		t.Errorf("Template = %q, want %q", cfg.Template, DefaultTemplate)
	}
	want := []Component{ComponentBackend, ComponentDatabase}
	if !reflect.DeepEqual(cfg.Components, want) {
		t.Errorf("Components = %v, want %v", cfg.Components, want)
	}
}

func TestNewProjectConfig_DoesNotAliasInput(t *testing.T) {
	c := validConfig()
	c.Metadata = map[string]any{"owner": "team-a"}
	cfg, err := NewProjectConfig(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Metadata["owner"] = "team-b"
	c.Components[0] = ComponentCache
	if cfg.Metadata["owner"] != "team-a" {
		t.Error("config metadata aliases the input map")
	}
	if cfg.Components[0] != ComponentBackend {
		t.Error("config components alias the input slice")
	}
}

func TestProjectConfigFromMap_Defaults(t *testing.T) {
	cfg, err := ProjectConfigFromMap(map[string]any{"name": "Shop"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Name != "shop" {
		t.Errorf("Name = %q, want shop", cfg.Name)
	}
	if cfg.Template != TemplateSaaSBasic {
		t.Errorf("Template = %q, want %q", cfg.Template, TemplateSaaSBasic)
	}
	if !reflect.DeepEqual(cfg.Components, DefaultComponents()) {
		t.Errorf("Components = %v, want defaults", cfg.Components)
	}
	if cfg.Stack != DefaultStackConfig() {
		t.Errorf("Stack = %+v, want defaults", cfg.Stack)
	}
}

func TestProjectConfigFromMap_Overrides(t *testing.T) {
	cfg, err := ProjectConfigFromMap(map[string]any{
		"name":       "demo-app",
		"template":   "ai-ready",
		"components": []any{"backend"},
		"features":   []any{"ai_chat", "search"},
		"stack":      map[string]any{"backend": "gin"},
		"deployment": map[string]any{"target": "k8s"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Template != TemplateAIReady {
		t.Errorf("Template = %q", cfg.Template)
	}
	if cfg.Stack.Backend != "gin" || cfg.Stack.Frontend != "nextjs" {
		t.Errorf("Stack = %+v, want backend override on top of defaults", cfg.Stack)
	}
	if cfg.Deployment["target"] != "k8s" {
		t.Errorf("Deployment = %v", cfg.Deployment)
	}
}

func TestProjectConfigFromMap_Failures(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{"empty components", map[string]any{"name": "app", "components": []any{}}},
		{"null backend stack", map[string]any{"name": "app", "components": []any{"backend"}, "stack": map[string]any{"backend": nil}}},
		{"bad name", map[string]any{"name": "bad name"}},
		{"wrong type", map[string]any{"name": "app", "components": "backend"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ProjectConfigFromMap(tt.data); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestProjectConfig_ToMapRoundTrip(t *testing.T) {
	cfg, err := NewProjectConfig(validConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := ProjectConfigFromMap(cfg.ToMap())
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if back.Name != cfg.Name || back.Template != cfg.Template || back.Stack != cfg.Stack {
		t.Errorf("round trip mismatch: got %+v, want %+v", back, cfg)
	}
	if !reflect.DeepEqual(back.Components, cfg.Components) || !reflect.DeepEqual(back.Features, cfg.Features) {
		t.Errorf("round trip lists mismatch: got %v/%v", back.Components, back.Features)
	}
}
