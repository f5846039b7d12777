// Package orchestrator coordinates project generation: it validates
// requests, builds the task graph, hands it to the workflow engine and
// tracks the resulting workflow and project state for queries.
package orchestrator

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/genesis/internal/state"
	"github.com/ShayCichocki/genesis/internal/workflow"
)

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

type orchestratorOptions struct {
	logger  zerolog.Logger
	store   *state.Store
	archive state.Archiver
	metrics *Metrics
	policy  workflow.Policy
	now     func() time.Time
	newID   func() string
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithStore sets the state store.
func WithStore(s *state.Store) Option {
	return func(o *orchestratorOptions) { o.store = s }
}

// WithArchive persists finished workflows and serves status queries for
// entries the store no longer holds.
func WithArchive(a state.Archiver) Option {
	return func(o *orchestratorOptions) { o.archive = a }
}

// WithMetrics sets the Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *orchestratorOptions) { o.metrics = m }
}

// WithPolicy sets the parallelism and timeout handed to the engine.
func WithPolicy(p workflow.Policy) Option {
	return func(o *orchestratorOptions) { o.policy = p }
}

// WithClock sets the time source (mainly for testing).
func WithClock(now func() time.Time) Option {
	return func(o *orchestratorOptions) { o.now = now }
}

// WithIDGenerator sets how workflow ids are allocated when the request
// carries none (mainly for testing).
func WithIDGenerator(f func() string) Option {
	return func(o *orchestratorOptions) { o.newID = f }
}
