// Package temporal runs generation workflows on a Temporal cluster. The
// workflow itself (ProjectGenerationWorkflow) and the agent activities are
// registered by the agent workers; this package only starts, awaits and
// cancels runs and turns their outcome into notifications.
package temporal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/ShayCichocki/genesis/internal/engine"
	"github.com/ShayCichocki/genesis/internal/graph"
	"github.com/ShayCichocki/genesis/pkg/models"
)

const (
	// WorkflowName is the workflow type the agent workers register.
	WorkflowName = "ProjectGenerationWorkflow"

	DefaultHostPort  = "localhost:7233"
	DefaultNamespace = "default"
	DefaultTaskQueue = "genesis-generation"
)

// WorkflowClient is the subset of client.Client the engine uses.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	CancelWorkflow(ctx context.Context, workflowID string, runID string) error
	Close()
}

// Config addresses the Temporal frontend.
type Config struct {
	HostPort  string
	Namespace string
	TaskQueue string
}

func (c Config) withDefaults() Config {
	if c.HostPort == "" {
		c.HostPort = DefaultHostPort
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.TaskQueue == "" {
		c.TaskQueue = DefaultTaskQueue
	}
	return c
}

// Dialer opens a client connection.
type Dialer func(options client.Options) (WorkflowClient, error)

func dialTemporal(options client.Options) (WorkflowClient, error) {
	c, err := client.Dial(options)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithDialer replaces client.Dial (mainly for testing).
func WithDialer(d Dialer) Option {
	return func(e *Engine) { e.dial = d }
}

// Engine implements engine.Engine on Temporal.
type Engine struct {
	cfg    Config
	bus    *engine.Bus
	logger zerolog.Logger
	dial   Dialer

	mu     sync.Mutex
	client WorkflowClient
	runs   map[string]string
}

var _ engine.Engine = (*Engine)(nil)

// New creates an engine that publishes notifications on bus. The bus is
// shared with the agent registry and is not closed by Stop.
func New(cfg Config, bus *engine.Bus, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg.withDefaults(),
		bus:    bus,
		logger: logger,
		dial:   dialTemporal,
		runs:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start dials the frontend. Calling it on a started engine is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return nil
	}
	c, err := e.dial(client.Options{
		HostPort:  e.cfg.HostPort,
		Namespace: e.cfg.Namespace,
		Logger:    newSDKLogger(e.logger),
	})
	if err != nil {
		return fmt.Errorf("dial temporal %s: %w", e.cfg.HostPort, err)
	}
	e.client = c
	e.logger.Info().Str("host", e.cfg.HostPort).Str("namespace", e.cfg.Namespace).Msg("temporal engine started")
	return nil
}

// Stop closes the connection. Calling it on a stopped engine is a no-op.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	e.client.Close()
	e.client = nil
	e.logger.Info().Msg("temporal engine stopped")
	return nil
}

// Subscribe registers h on the shared bus.
func (e *Engine) Subscribe(topic string, h engine.Handler) func() {
	return e.bus.Subscribe(topic, h)
}

// ExecuteWorkflow starts def with the workflow ID as Temporal workflow ID
// and blocks until the run finishes. A run that returns without error and
// without an Error field is a success: every task is reported on
// TopicTaskCompleted in dependency order, then TopicWorkflowCompleted. A
// failed run is reported on TopicWorkflowFailed. Cancelled runs publish
// nothing and come back with Cancelled set.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflowID string, def *models.WorkflowDefinition) (*engine.ExecutionResult, error) {
	c := e.currentClient()
	if c == nil {
		return nil, engine.ErrNotStarted
	}

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                e.cfg.TaskQueue,
		WorkflowExecutionTimeout: def.Timeout,
	}, WorkflowName, def)
	if err != nil {
		return nil, fmt.Errorf("start workflow %s: %w", workflowID, err)
	}
	e.trackRun(workflowID, run.GetRunID())
	defer e.untrackRun(workflowID)

	e.logger.Debug().Str("workflow_id", workflowID).Str("run_id", run.GetRunID()).Msg("workflow started")

	var out engine.ExecutionResult
	if err := run.Get(ctx, &out); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("wait for workflow %s: %w", workflowID, ctx.Err())
		}
		if sdktemporal.IsCanceledError(err) {
			return &engine.ExecutionResult{Success: false, Cancelled: true, Error: "workflow cancelled"}, nil
		}
		e.publish(engine.Event{Topic: engine.TopicWorkflowFailed, WorkflowID: workflowID, Error: err.Error()})
		return &engine.ExecutionResult{Success: false, Error: err.Error()}, nil
	}

	if out.Error != "" {
		out.Success = false
		e.publish(engine.Event{Topic: engine.TopicWorkflowFailed, WorkflowID: workflowID, Error: out.Error})
		return &out, nil
	}

	out.Success = true
	e.publishTasksCompleted(workflowID, def)
	e.publish(engine.Event{Topic: engine.TopicWorkflowCompleted, WorkflowID: workflowID})
	return &out, nil
}

// CancelWorkflow requests cancellation of the current run. A workflow the
// cluster does not know is reported as not cancelled without error.
func (e *Engine) CancelWorkflow(ctx context.Context, workflowID string) (bool, error) {
	c := e.currentClient()
	if c == nil {
		return false, engine.ErrNotStarted
	}

	e.mu.Lock()
	runID := e.runs[workflowID]
	e.mu.Unlock()

	if err := c.CancelWorkflow(ctx, workflowID, runID); err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("cancel workflow %s: %w", workflowID, err)
	}
	return true, nil
}

func (e *Engine) currentClient() WorkflowClient {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client
}

func (e *Engine) trackRun(workflowID, runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs[workflowID] = runID
}

func (e *Engine) untrackRun(workflowID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.runs, workflowID)
}

func (e *Engine) publish(ev engine.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func (e *Engine) publishTasksCompleted(workflowID string, def *models.WorkflowDefinition) {
	g := graph.New()
	g.SetLogger(e.logger)
	if err := g.Build(def.Tasks); err != nil {
		e.logger.Warn().Err(err).Str("workflow_id", workflowID).Msg("skip task notifications")
		return
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return
	}
	for _, id := range order {
		e.publish(engine.Event{Topic: engine.TopicTaskCompleted, WorkflowID: workflowID, TaskID: id})
	}
}
