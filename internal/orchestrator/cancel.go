package orchestrator

import (
	"context"
	"errors"

	"github.com/ShayCichocki/genesis/pkg/models"
)

// Cancel asks the engine to cancel an active workflow. It returns false
// for workflows that are not active and when the engine does not confirm.
// The workflow leaves the active set either way.
func (o *Orchestrator) Cancel(ctx context.Context, workflowID string) bool {
	ok, err := o.cancel(ctx, workflowID)
	if err != nil && !errors.Is(err, errNotActive) {
		o.logger.Warn().Err(err).Str("workflow_id", workflowID).Msg("cancel workflow")
	}
	return ok
}

var errNotActive = errors.New("workflow not active")

func (o *Orchestrator) cancel(ctx context.Context, workflowID string) (bool, error) {
	if !o.isActive(workflowID) {
		return false, errNotActive
	}
	defer o.deactivate(workflowID)

	ok, err := o.engine.CancelWorkflow(ctx, workflowID)
	if err != nil {
		return false, err
	}
	if ok {
		o.transition(workflowID, models.WorkflowCancelled, "")
	}
	return ok, nil
}
