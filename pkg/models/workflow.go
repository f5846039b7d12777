package models

import "time"

// WorkflowStatus is the lifecycle state of a generation workflow.
type WorkflowStatus string

const (
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
	WorkflowCancelled WorkflowStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowRunning, WorkflowCompleted, WorkflowFailed, WorkflowCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed.
func (s WorkflowStatus) Terminal() bool {
	return s == WorkflowCompleted || s == WorkflowFailed || s == WorkflowCancelled
}

// ProjectState records the project a workflow is generating.
type ProjectState struct {
	Name       string
	Template   Template
	Config     ProjectConfig
	OutputPath string
	CreatedAt  time.Time
}

// WorkflowState tracks one workflow execution. It is not safe for
// concurrent use; the owning store serializes access.
type WorkflowState struct {
	WorkflowID  string
	Definition  *WorkflowDefinition
	Project     *ProjectState
	Status      WorkflowStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string

	completedTasks map[string]bool
}

// NewWorkflowState returns a running workflow.
func NewWorkflowState(id string, def *WorkflowDefinition, project *ProjectState, startedAt time.Time) *WorkflowState {
	return &WorkflowState{
		WorkflowID: id,
		Definition: def,
		Project:    project,
		Status:     WorkflowRunning,
		StartedAt:  startedAt,
	}
}

// Transition moves a running workflow into a terminal status, stamping the
// completion time and, for failures, the error text. It returns false and
// changes nothing when the workflow is already terminal or when to is not a
// terminal status.
func (w *WorkflowState) Transition(to WorkflowStatus, at time.Time, errMsg string) bool {
	if w.Status.Terminal() || !to.Terminal() {
		return false
	}
	w.Status = to
	w.CompletedAt = &at
	if to == WorkflowFailed {
		w.Error = errMsg
	}
	return true
}

// MarkTaskComplete records a finished task. Unknown tasks and repeats
// return false.
func (w *WorkflowState) MarkTaskComplete(taskID string) bool {
	if w.Definition == nil || w.Definition.Task(taskID) == nil {
		return false
	}
	if w.completedTasks == nil {
		w.completedTasks = make(map[string]bool)
	}
	if w.completedTasks[taskID] {
		return false
	}
	w.completedTasks[taskID] = true
	return true
}

// Progress returns a value in [0, 1]: 1 once completed, otherwise the
// share of tasks reported complete.
func (w *WorkflowState) Progress() float64 {
	if w.Status == WorkflowCompleted {
		return 1
	}
	if w.Definition == nil || len(w.Definition.Tasks) == 0 {
		return 0
	}
	return float64(len(w.completedTasks)) / float64(len(w.Definition.Tasks))
}

// Snapshot returns a read-only copy for queries.
func (w *WorkflowState) Snapshot() WorkflowSnapshot {
	s := WorkflowSnapshot{
		WorkflowID: w.WorkflowID,
		Status:     w.Status,
		StartedAt:  w.StartedAt,
		Progress:   w.Progress(),
		Error:      w.Error,
	}
	if w.CompletedAt != nil {
		t := *w.CompletedAt
		s.CompletedAt = &t
	}
	if w.Project != nil {
		s.ProjectName = w.Project.Name
	}
	return s
}

// WorkflowSnapshot is the query view of a workflow.
type WorkflowSnapshot struct {
	WorkflowID  string         `json:"workflow_id"`
	Status      WorkflowStatus `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	ProjectName string         `json:"project_name"`
	Progress    float64        `json:"progress"`
	Error       string         `json:"error,omitempty"`
}

// ProjectSnapshot is the query view of a project.
type ProjectSnapshot struct {
	Name       string      `json:"name"`
	Template   Template    `json:"template"`
	OutputPath string      `json:"output_path"`
	CreatedAt  time.Time   `json:"created_at"`
	Components []Component `json:"components"`
	Features   []Feature   `json:"features"`
}

// Snapshot returns a read-only copy for queries.
func (p *ProjectState) Snapshot() ProjectSnapshot {
	return ProjectSnapshot{
		Name:       p.Name,
		Template:   p.Template,
		OutputPath: p.OutputPath,
		CreatedAt:  p.CreatedAt,
		Components: append([]Component(nil), p.Config.Components...),
		Features:   append([]Feature(nil), p.Config.Features...),
	}
}
