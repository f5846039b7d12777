package models

// GenerationRequest asks the orchestrator to generate one project.
type GenerationRequest struct {
	// Project is the validated configuration.
	Project *ProjectConfig
	// OutputPath is where the agents write generated files.
	OutputPath string
	// WorkflowID is optional; one is generated when empty.
	WorkflowID string
	// CallbackURL is passed through to result metadata for the caller.
	CallbackURL string
	// Metadata is free-form caller data.
	Metadata map[string]any
}

// GenerationResult is the outcome of one generation request. WorkflowID is
// always set, even when the request failed before anything ran.
type GenerationResult struct {
	Success        bool           `json:"success"`
	WorkflowID     string         `json:"workflow_id"`
	ProjectPath    string         `json:"project_path,omitempty"`
	GeneratedFiles []string       `json:"generated_files"`
	Error          string         `json:"error,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	// ExecutionTime is elapsed wall-clock seconds.
	ExecutionTime float64 `json:"execution_time"`
}
