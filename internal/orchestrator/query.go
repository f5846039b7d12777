package orchestrator

import (
	"sort"

	"github.com/ShayCichocki/genesis/internal/state"
	"github.com/ShayCichocki/genesis/pkg/models"
)

// MetricsSnapshot is the aggregate view returned by GetMetrics.
type MetricsSnapshot struct {
	ProjectsCreated   int `json:"projects_created"`
	WorkflowsExecuted int `json:"workflows_executed"`
	// AverageExecutionTime is the mean, in seconds, over every Execute call.
	AverageExecutionTime float64 `json:"average_execution_time"`
	// SuccessRate is ProjectsCreated divided by Execute calls.
	SuccessRate     float64 `json:"success_rate"`
	ActiveWorkflows int     `json:"active_workflows"`
	TotalWorkflows  int     `json:"total_workflows"`
	TotalProjects   int     `json:"total_projects"`
}

// GetWorkflowStatus returns a snapshot of a workflow. Workflows that have
// left the store are looked up in the archive.
func (o *Orchestrator) GetWorkflowStatus(workflowID string) (models.WorkflowSnapshot, bool) {
	if w, ok := o.store.Workflow(workflowID); ok {
		return w, true
	}
	if rec := o.archived(workflowID); rec != nil {
		return rec.Workflow, true
	}
	return models.WorkflowSnapshot{}, false
}

// GetProjectStatus returns a snapshot of the project generated by a
// workflow, falling back to the archive like GetWorkflowStatus.
func (o *Orchestrator) GetProjectStatus(workflowID string) (models.ProjectSnapshot, bool) {
	if p, ok := o.store.Project(workflowID); ok {
		return p, true
	}
	if rec := o.archived(workflowID); rec != nil {
		return rec.Project, true
	}
	return models.ProjectSnapshot{}, false
}

func (o *Orchestrator) archived(workflowID string) *state.WorkflowRecord {
	if o.archive == nil {
		return nil
	}
	rec, err := o.archive.GetArchivedWorkflow(workflowID)
	if err != nil {
		o.logger.Warn().Err(err).Str("workflow_id", workflowID).Msg("archive lookup")
		return nil
	}
	return rec
}

// GetAvailableAgents returns the registry's agents, sorted.
func (o *Orchestrator) GetAvailableAgents() []string {
	agents := append([]string(nil), o.registry.ListAgents()...)
	sort.Strings(agents)
	return agents
}

// GetMetrics returns counters and current sizes.
func (o *Orchestrator) GetMetrics() MetricsSnapshot {
	o.statsMu.Lock()
	s := o.stats
	o.statsMu.Unlock()

	o.mu.Lock()
	active := len(o.active)
	o.mu.Unlock()

	workflows, projects := o.store.Counts()

	snap := MetricsSnapshot{
		ProjectsCreated:   s.projectsCreated,
		WorkflowsExecuted: s.workflowsExecuted,
		ActiveWorkflows:   active,
		TotalWorkflows:    workflows,
		TotalProjects:     projects,
	}
	if s.executions > 0 {
		snap.AverageExecutionTime = s.totalSeconds / float64(s.executions)
		snap.SuccessRate = float64(s.projectsCreated) / float64(s.executions)
	}
	return snap
}

func (o *Orchestrator) recordExecution(result models.GenerationResult, outcome string) {
	o.statsMu.Lock()
	o.stats.executions++
	o.stats.totalSeconds += result.ExecutionTime
	o.statsMu.Unlock()

	o.metrics.recordGeneration(outcome, result.ExecutionTime)
}
