package orchestrator

import (
	"github.com/ShayCichocki/genesis/internal/engine"
	"github.com/ShayCichocki/genesis/pkg/models"
)

func (o *Orchestrator) handleWorkflowCompleted(ev engine.Event) {
	o.transition(ev.WorkflowID, models.WorkflowCompleted, "")
}

func (o *Orchestrator) handleWorkflowFailed(ev engine.Event) {
	o.transition(ev.WorkflowID, models.WorkflowFailed, ev.Error)
}

func (o *Orchestrator) handleAgentRegistered(ev engine.Event) {
	o.logger.Info().Str("agent_id", ev.AgentID).Msg("agent registered")
}

func (o *Orchestrator) handleTaskCompleted(ev engine.Event) {
	o.store.Update(ev.WorkflowID, func(w *models.WorkflowState) bool {
		return w.MarkTaskComplete(ev.TaskID)
	})
}

// transition applies a terminal status to a workflow. It returns false
// for unknown workflows and for workflows that already finished. Accepted
// transitions are archived when an archive is configured.
func (o *Orchestrator) transition(workflowID string, to models.WorkflowStatus, errMsg string) bool {
	at := o.now()
	changed := o.store.Update(workflowID, func(w *models.WorkflowState) bool {
		return w.Transition(to, at, errMsg)
	})
	if !changed {
		return false
	}

	o.metrics.recordTransition(to)
	o.logger.Info().Str("workflow_id", workflowID).Str("status", string(to)).Msg("workflow transition")
	o.archiveWorkflow(workflowID)
	return true
}

func (o *Orchestrator) archiveWorkflow(workflowID string) {
	if o.archive == nil {
		return
	}
	rec, ok := o.store.Record(workflowID)
	if !ok {
		return
	}
	rec.ArchivedAt = o.now()
	if err := o.archive.ArchiveWorkflow(rec); err != nil {
		o.metrics.recordArchiveError()
		o.logger.Warn().Err(err).Str("workflow_id", workflowID).Msg("archive workflow")
	}
}
