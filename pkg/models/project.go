package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-viper/mapstructure/v2"
)

// ErrInvalidConfig is matched by every ValidationError.
var ErrInvalidConfig = errors.New("invalid project configuration")

const (
	// MaxNameLength bounds ProjectConfig.Name.
	MaxNameLength = 50
	// MaxDescriptionLength bounds ProjectConfig.Description.
	MaxDescriptionLength = 500
)

// ValidationError reports the first configuration check that failed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets callers match any validation failure with errors.Is(err, ErrInvalidConfig).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// StackConfig names the technology chosen per component category.
type StackConfig struct {
	Backend   string `json:"backend" yaml:"backend" mapstructure:"backend"`
	Frontend  string `json:"frontend" yaml:"frontend" mapstructure:"frontend"`
	Database  string `json:"database" yaml:"database" mapstructure:"database"`
	Cache     string `json:"cache" yaml:"cache" mapstructure:"cache"`
	Messaging string `json:"messaging" yaml:"messaging" mapstructure:"messaging"`
}

// DefaultStackConfig returns the stack used when a configuration omits one.
func DefaultStackConfig() StackConfig {
	return StackConfig{
		Backend:  "fastapi",
		Frontend: "nextjs",
		Database: "postgresql",
		Cache:    "redis",
	}
}

// ProjectConfig is the declarative description of a project to generate.
// Build it with NewProjectConfig or ProjectConfigFromMap; both validate and
// normalize. Treat a constructed value as read-only.
type ProjectConfig struct {
	Name         string         `json:"name" yaml:"name" mapstructure:"name"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Template     Template       `json:"template" yaml:"template" mapstructure:"template"`
	Components   []Component    `json:"components" yaml:"components" mapstructure:"components"`
	Features     []Feature      `json:"features" yaml:"features" mapstructure:"features"`
	Stack        StackConfig    `json:"stack" yaml:"stack" mapstructure:"stack"`
	Deployment   map[string]any `json:"deployment,omitempty" yaml:"deployment,omitempty" mapstructure:"deployment"`
	Integrations map[string]any `json:"integrations,omitempty" yaml:"integrations,omitempty" mapstructure:"integrations"`
	Metadata     map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty" mapstructure:"metadata"`
}

// DefaultComponents is used by ProjectConfigFromMap when the document has no
// components key.
func DefaultComponents() []Component {
	return []Component{ComponentBackend, ComponentFrontend}
}

// NewProjectConfig validates c and returns a normalized copy: the name is
// lowercased, an empty template becomes DefaultTemplate and duplicate
// components or features collapse. Components are never defaulted here;
// an empty list is an error.
func NewProjectConfig(c ProjectConfig) (*ProjectConfig, error) {
	out := c
	out.Components = dedupe(c.Components)
	out.Features = dedupe(c.Features)
	out.Deployment = cloneMap(c.Deployment)
	out.Integrations = cloneMap(c.Integrations)
	out.Metadata = cloneMap(c.Metadata)
	if out.Template == "" {
		out.Template = DefaultTemplate
	}

	if err := out.validate(); err != nil {
		return nil, err
	}
	out.Name = strings.ToLower(out.Name)
	return &out, nil
}

// ProjectConfigFromMap builds a configuration from a generic key-value
// document such as decoded YAML or JSON. Absent keys take the defaults:
// template saas-basic, components backend+frontend, DefaultStackConfig for
// each stack entry. An explicit null clears the default.
func ProjectConfigFromMap(data map[string]any) (*ProjectConfig, error) {
	cfg := ProjectConfig{Stack: DefaultStackConfig()}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &cfg,
		ZeroFields: true,
		TagName:    "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return nil, &ValidationError{Field: "config", Message: err.Error()}
	}

	if _, ok := data["components"]; !ok {
		cfg.Components = DefaultComponents()
	}
	return NewProjectConfig(cfg)
}

// ToMap converts the configuration into a generic document accepted by
// ProjectConfigFromMap.
func (c ProjectConfig) ToMap() map[string]any {
	components := make([]any, len(c.Components))
	for i, comp := range c.Components {
		components[i] = string(comp)
	}
	features := make([]any, len(c.Features))
	for i, f := range c.Features {
		features[i] = string(f)
	}
	return map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"template":    string(c.Template),
		"components":  components,
		"features":    features,
		"stack": map[string]any{
			"backend":   c.Stack.Backend,
			"frontend":  c.Stack.Frontend,
			"database":  c.Stack.Database,
			"cache":     c.Stack.Cache,
			"messaging": c.Stack.Messaging,
		},
		"deployment":   orEmpty(c.Deployment),
		"integrations": orEmpty(c.Integrations),
		"metadata":     orEmpty(c.Metadata),
	}
}

// Clone returns a copy that shares no slices or maps with c.
func (c ProjectConfig) Clone() ProjectConfig {
	out := c
	out.Components = append([]Component(nil), c.Components...)
	out.Features = append([]Feature(nil), c.Features...)
	out.Deployment = cloneMap(c.Deployment)
	out.Integrations = cloneMap(c.Integrations)
	out.Metadata = cloneMap(c.Metadata)
	return out
}

// HasComponent reports whether comp was requested.
func (c ProjectConfig) HasComponent(comp Component) bool {
	return containsComponent(c.Components, comp)
}

func (c ProjectConfig) validate() error {
	if n := utf8.RuneCountInString(c.Name); n < 1 || n > MaxNameLength {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("must be between 1 and %d characters", MaxNameLength)}
	}
	if !validName(c.Name) {
		return &ValidationError{Field: "name", Message: "must be alphanumeric with hyphens or underscores"}
	}
	if utf8.RuneCountInString(c.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("must be at most %d characters", MaxDescriptionLength)}
	}
	if !c.Template.Valid() {
		return &ValidationError{Field: "template", Message: fmt.Sprintf("unknown template %q", c.Template)}
	}

	if len(c.Components) == 0 {
		return &ValidationError{Field: "components", Message: "at least one component is required"}
	}
	for _, comp := range c.Components {
		if !comp.Valid() {
			return &ValidationError{Field: "components", Message: fmt.Sprintf("unknown component %q", comp)}
		}
	}
	for _, f := range c.Features {
		if !f.Valid() {
			return &ValidationError{Field: "features", Message: fmt.Sprintf("unknown feature %q", f)}
		}
	}

	if c.HasComponent(ComponentBackend) && c.Stack.Backend == "" {
		return &ValidationError{Field: "stack", Message: "backend stack required when backend component selected"}
	}
	if c.HasComponent(ComponentFrontend) && c.Stack.Frontend == "" {
		return &ValidationError{Field: "stack", Message: "frontend stack required when frontend component selected"}
	}
	return nil
}

// validName strips separators and requires the remainder to be a non-empty
// run of letters and digits.
func validName(name string) bool {
	rest := strings.NewReplacer("-", "", "_", "").Replace(name)
	if rest == "" {
		return false
	}
	for _, r := range rest {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func dedupe[T comparable](in []T) []T {
	if in == nil {
		return nil
	}
	seen := make(map[T]bool, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func orEmpty(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	return cloneMap(in)
}
