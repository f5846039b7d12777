package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ShayCichocki/genesis/internal/engine"
	"github.com/ShayCichocki/genesis/internal/state"
	"github.com/ShayCichocki/genesis/internal/workflow"
)

// Orchestrator is the entry point for project generation. It is safe for
// concurrent use.
type Orchestrator struct {
	engine   engine.Engine
	registry engine.Registry
	store    *state.Store
	archive  state.Archiver
	metrics  *Metrics
	policy   workflow.Policy
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string

	// mu protects running, unsubscribe and active.
	mu          sync.Mutex
	running     bool
	unsubscribe []func()
	active      map[string]struct{}

	statsMu sync.Mutex
	stats   counters
}

// counters back GetMetrics.
type counters struct {
	projectsCreated   int
	workflowsExecuted int
	executions        int
	totalSeconds      float64
}

// New creates an orchestrator that runs workflows on eng and checks agent
// availability against registry.
func New(eng engine.Engine, registry engine.Registry, opts ...Option) *Orchestrator {
	o := &orchestratorOptions{
		logger: zerolog.Nop(),
		policy: workflow.DefaultPolicy(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = state.NewStore(state.DefaultCapacity, state.DefaultRetain)
	}

	return &Orchestrator{
		engine:   eng,
		registry: registry,
		store:    o.store,
		archive:  o.archive,
		metrics:  o.metrics,
		policy:   o.policy,
		logger:   o.logger,
		now:      o.now,
		newID:    o.newID,
		active:   make(map[string]struct{}),
	}
}

func (o *Orchestrator) activate(id string) {
	o.mu.Lock()
	o.active[id] = struct{}{}
	n := len(o.active)
	o.mu.Unlock()
	o.metrics.setActive(n)
}

func (o *Orchestrator) deactivate(id string) {
	o.mu.Lock()
	delete(o.active, id)
	n := len(o.active)
	o.mu.Unlock()
	o.metrics.setActive(n)
}

func (o *Orchestrator) isActive(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.active[id]
	return ok
}

func (o *Orchestrator) activeIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.active))
	for id := range o.active {
		ids = append(ids, id)
	}
	return ids
}
