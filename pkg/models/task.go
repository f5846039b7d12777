package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// ParamKind tags a Param.
type ParamKind int

const (
	// ParamLiteral carries a concrete value.
	ParamLiteral ParamKind = iota
	// ParamResultRef points at the result of another task in the same
	// workflow. The execution engine resolves it; the builder never does.
	ParamResultRef
)

// Param is a task parameter: either a literal value or a reference to a
// prior task's result.
type Param struct {
	Kind   ParamKind
	Value  any
	TaskID string
}

// Literal wraps a concrete parameter value.
func Literal(v any) Param {
	return Param{Kind: ParamLiteral, Value: v}
}

// ResultOf references the result of taskID.
func ResultOf(taskID string) Param {
	return Param{Kind: ParamResultRef, TaskID: taskID}
}

// IsRef reports whether p references another task.
func (p Param) IsRef() bool {
	return p.Kind == ParamResultRef
}

// Placeholder returns the wire form of a reference, e.g. "{{design_architecture.result}}".
func (p Param) Placeholder() string {
	return "{{" + p.TaskID + ".result}}"
}

var placeholderPattern = regexp.MustCompile(`^\{\{([A-Za-z0-9_\-]+)\.result\}\}$`)

// MarshalJSON writes literals as their value and references as the
// placeholder string the engine expects.
func (p Param) MarshalJSON() ([]byte, error) {
	if p.IsRef() {
		return json.Marshal(p.Placeholder())
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON recognises placeholder strings and turns them back into
// references; anything else is a literal.
func (p *Param) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if s, ok := v.(string); ok {
		if m := placeholderPattern.FindStringSubmatch(s); m != nil {
			*p = ResultOf(m[1])
			return nil
		}
	}
	*p = Literal(v)
	return nil
}

// Task is one node of a generation workflow as handed to the engine.
type Task struct {
	// ID is unique within the workflow.
	ID string `json:"id"`
	// AgentID is the agent that runs the task.
	AgentID string `json:"agent_id"`
	// Action is the agent operation to invoke.
	Action string `json:"action"`
	// Params are the action inputs.
	Params map[string]Param `json:"params"`
	// Dependencies lists task IDs that must finish first.
	Dependencies []string `json:"dependencies"`
}

// References returns the task IDs whose results this task's params use.
func (t *Task) References() []string {
	var refs []string
	for _, p := range t.Params {
		if p.IsRef() {
			refs = append(refs, p.TaskID)
		}
	}
	return refs
}

// WorkflowDefinition is the task graph submitted to the execution engine.
// On the wire Timeout is whole seconds under "timeout_seconds".
type WorkflowDefinition struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Tasks            []*Task       `json:"tasks"`
	MaxParallelTasks int           `json:"max_parallel_tasks"`
	Timeout          time.Duration `json:"-"`
}

type workflowDefinitionJSON struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Tasks            []*Task `json:"tasks"`
	MaxParallelTasks int     `json:"max_parallel_tasks"`
	TimeoutSeconds   int64   `json:"timeout_seconds"`
}

// MarshalJSON implements json.Marshaler.
func (d WorkflowDefinition) MarshalJSON() ([]byte, error) {
	return json.Marshal(workflowDefinitionJSON{
		ID:               d.ID,
		Name:             d.Name,
		Tasks:            d.Tasks,
		MaxParallelTasks: d.MaxParallelTasks,
		TimeoutSeconds:   int64(d.Timeout / time.Second),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *WorkflowDefinition) UnmarshalJSON(data []byte) error {
	var w workflowDefinitionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.TimeoutSeconds < 0 {
		return fmt.Errorf("negative timeout_seconds: %d", w.TimeoutSeconds)
	}
	*d = WorkflowDefinition{
		ID:               w.ID,
		Name:             w.Name,
		Tasks:            w.Tasks,
		MaxParallelTasks: w.MaxParallelTasks,
		Timeout:          time.Duration(w.TimeoutSeconds) * time.Second,
	}
	return nil
}

// Task returns the task with the given ID, or nil.
func (d *WorkflowDefinition) Task(id string) *Task {
	for _, t := range d.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// TaskIDs returns task IDs in definition order.
func (d *WorkflowDefinition) TaskIDs() []string {
	ids := make([]string, len(d.Tasks))
	for i, t := range d.Tasks {
		ids[i] = t.ID
	}
	return ids
}

// String implements fmt.Stringer for log lines.
func (d *WorkflowDefinition) String() string {
	return fmt.Sprintf("%s(%s, %d tasks)", d.Name, d.ID, len(d.Tasks))
}
