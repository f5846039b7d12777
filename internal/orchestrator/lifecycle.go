package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/ShayCichocki/genesis/internal/engine"
)

// Start connects the engine and subscribes to its notifications. Calling
// Start on a running orchestrator does nothing.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return nil
	}
	if err := o.engine.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	o.unsubscribe = []func(){
		o.engine.Subscribe(engine.TopicWorkflowCompleted, o.handleWorkflowCompleted),
		o.engine.Subscribe(engine.TopicWorkflowFailed, o.handleWorkflowFailed),
		o.engine.Subscribe(engine.TopicAgentRegistered, o.handleAgentRegistered),
		o.engine.Subscribe(engine.TopicTaskCompleted, o.handleTaskCompleted),
	}
	o.running = true
	o.logger.Info().Msg("orchestrator started")
	return nil
}

// Stop cancels every active workflow, unsubscribes and stops the engine.
// A failed cancellation does not stop the others; all failures are
// returned together. Calling Stop on a stopped orchestrator does nothing.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = false
	unsubscribe := o.unsubscribe
	o.unsubscribe = nil
	o.mu.Unlock()

	ids := o.activeIDs()
	sort.Strings(ids)

	var errs error
	for _, id := range ids {
		ok, err := o.cancel(ctx, id)
		switch {
		case errors.Is(err, errNotActive):
			// finished on its own since the snapshot
		case err != nil:
			errs = multierr.Append(errs, fmt.Errorf("cancel workflow %s: %w", id, err))
		case !ok:
			errs = multierr.Append(errs, fmt.Errorf("cancel workflow %s: not confirmed", id))
		}
	}

	for _, unsub := range unsubscribe {
		unsub()
	}

	if err := o.engine.Stop(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("stop engine: %w", err))
	}

	if errs != nil {
		o.logger.Warn().Err(errs).Int("failures", len(multierr.Errors(errs))).Msg("orchestrator stopped with errors")
	} else {
		o.logger.Info().Int("cancelled", len(ids)).Msg("orchestrator stopped")
	}
	return errs
}

// Running reports whether Start has been called without a matching Stop.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}
