// Package engine defines the contract between the orchestrator and the
// external workflow engine and agent registry, plus the notification bus
// and registries the adapters share.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ShayCichocki/genesis/pkg/models"
)

// ErrNotStarted is returned by adapters used before Start.
var ErrNotStarted = errors.New("engine not started")

// Notification topics.
const (
	TopicWorkflowCompleted = "workflow.completed"
	TopicWorkflowFailed    = "workflow.failed"
	TopicAgentRegistered   = "agent.registered"
	TopicTaskCompleted     = "task.completed"
)

// Event is a notification delivered on a topic. Which fields are set
// depends on the topic: workflow topics carry WorkflowID (and Error for
// failures), agent.registered carries AgentID, task.completed carries
// WorkflowID and TaskID.
type Event struct {
	Topic      string
	WorkflowID string
	AgentID    string
	TaskID     string
	Error      string
	Timestamp  time.Time
}

// Handler receives events for a subscribed topic.
type Handler func(Event)

// ExecutionResult is what the engine reports for a finished workflow run.
type ExecutionResult struct {
	Success        bool           `json:"success"`
	GeneratedFiles []string       `json:"generated_files"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Error          string         `json:"error,omitempty"`
	// Cancelled marks a run that ended because it was cancelled.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Engine executes workflow definitions. Implementations own scheduling,
// parallelism, retries and agent dispatch.
type Engine interface {
	// Start connects to the engine. It may be called more than once.
	Start(ctx context.Context) error
	// Stop releases the connection.
	Stop(ctx context.Context) error
	// Subscribe registers h for topic and returns a function that removes it.
	Subscribe(topic string, h Handler) (unsubscribe func())
	// ExecuteWorkflow runs def under workflowID and reports the outcome.
	// A returned error means the engine could not be asked; a run that
	// executed and failed is reported through ExecutionResult.
	ExecuteWorkflow(ctx context.Context, workflowID string, def *models.WorkflowDefinition) (*ExecutionResult, error)
	// CancelWorkflow asks the engine to cancel a run. The bool is true only
	// when the engine confirmed.
	CancelWorkflow(ctx context.Context, workflowID string) (bool, error)
}

// Registry lists the agents currently available.
type Registry interface {
	ListAgents() []string
}
