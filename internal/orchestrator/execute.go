package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/genesis/internal/workflow"
	"github.com/ShayCichocki/genesis/pkg/models"
)

// Precondition failures. Execute reports them in the result's Error field
// prefixed with "orchestration error: ".
var (
	ErrNameRequired       = errors.New("project name is required")
	ErrOutputPathRequired = errors.New("output path is required")
	ErrAgentUnavailable   = errors.New("required agent not available")
	ErrNoResult           = errors.New("engine returned no result")
)

const errorPrefix = "orchestration error: "

// Execute generates one project. It never panics and never returns an
// error: every outcome, including rejected requests and engine faults, is
// a GenerationResult carrying the workflow id.
//
// A successful engine run counts as a created project. The workflow's own
// status still moves to completed only when the engine's completion
// notification arrives; failures and engine-reported cancellations are
// recorded immediately.
func (o *Orchestrator) Execute(ctx context.Context, req models.GenerationRequest) (result models.GenerationResult) {
	start := o.now()
	workflowID := req.WorkflowID
	if workflowID == "" {
		workflowID = o.newID()
	}
	outcome := ResultError
	activated := false

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Str("workflow_id", workflowID).Interface("panic", r).Msg("generation panicked")
			result = o.failed(workflowID, start, fmt.Sprintf("%s%v", errorPrefix, r))
			outcome = ResultError
			o.transition(workflowID, models.WorkflowFailed, result.Error)
		}
		if activated {
			o.deactivate(workflowID)
		}
		o.recordExecution(result, outcome)
	}()

	log := o.logger.With().Str("workflow_id", workflowID).Logger()

	if err := o.checkPreconditions(req); err != nil {
		log.Warn().Err(err).Msg("generation rejected")
		outcome = ResultRejected
		return o.failed(workflowID, start, errorPrefix+err.Error())
	}
	cfg := req.Project

	project := &models.ProjectState{
		Name:       cfg.Name,
		Template:   cfg.Template,
		Config:     cfg.Clone(),
		OutputPath: req.OutputPath,
		CreatedAt:  start,
	}
	if err := o.store.PutProject(workflowID, project); err != nil {
		return o.failed(workflowID, start, errorPrefix+err.Error())
	}

	def, err := workflow.Build(cfg, req.OutputPath, workflowID, o.policy)
	if err != nil {
		o.store.Retire(workflowID)
		log.Error().Err(err).Msg("build workflow")
		return o.failed(workflowID, start, fmt.Sprintf("%sbuild workflow: %v", errorPrefix, err))
	}

	if err := o.store.AttachWorkflow(models.NewWorkflowState(workflowID, def, project, start)); err != nil {
		o.store.Retire(workflowID)
		return o.failed(workflowID, start, errorPrefix+err.Error())
	}
	o.activate(workflowID)
	activated = true

	log.Info().
		Str("project", cfg.Name).
		Int("tasks", len(def.Tasks)).
		Msg("submitting workflow")

	res, err := o.engine.ExecuteWorkflow(ctx, workflowID, def)
	if err == nil && res == nil {
		err = ErrNoResult
	}
	if err != nil {
		msg := errorPrefix + err.Error()
		log.Error().Err(err).Msg("engine execution")
		o.transition(workflowID, models.WorkflowFailed, msg)
		return o.failed(workflowID, start, msg)
	}

	if !res.Success {
		outcome = ResultFailure
		if res.Cancelled {
			log.Info().Msg("workflow cancelled")
			o.transition(workflowID, models.WorkflowCancelled, "")
			return o.failed(workflowID, start, res.Error)
		}
		log.Warn().Str("error", res.Error).Msg("workflow failed")
		o.transition(workflowID, models.WorkflowFailed, res.Error)
		return o.failed(workflowID, start, res.Error)
	}

	outcome = ResultSuccess
	o.statsMu.Lock()
	o.stats.projectsCreated++
	o.stats.workflowsExecuted++
	o.statsMu.Unlock()

	metadata := make(map[string]any, len(res.Metadata)+1)
	for k, v := range res.Metadata {
		metadata[k] = v
	}
	if req.CallbackURL != "" {
		metadata["callback_url"] = req.CallbackURL
	}

	result = models.GenerationResult{
		Success:        true,
		WorkflowID:     workflowID,
		ProjectPath:    req.OutputPath,
		GeneratedFiles: append([]string(nil), res.GeneratedFiles...),
		Metadata:       metadata,
		ExecutionTime:  o.elapsed(start),
	}
	log.Info().Int("files", len(result.GeneratedFiles)).Float64("seconds", result.ExecutionTime).Msg("workflow succeeded")
	return result
}

// checkPreconditions runs before any state exists.
func (o *Orchestrator) checkPreconditions(req models.GenerationRequest) error {
	if req.Project == nil || req.Project.Name == "" {
		return ErrNameRequired
	}
	if req.OutputPath == "" {
		return ErrOutputPathRequired
	}

	available := make(map[string]bool)
	for _, id := range o.registry.ListAgents() {
		available[id] = true
	}
	for _, id := range models.RequiredAgents(req.Project.Components) {
		if !available[id] {
			return fmt.Errorf("%w: %s", ErrAgentUnavailable, id)
		}
	}
	return nil
}

func (o *Orchestrator) failed(workflowID string, start time.Time, msg string) models.GenerationResult {
	return models.GenerationResult{
		Success:       false,
		WorkflowID:    workflowID,
		Error:         msg,
		ExecutionTime: o.elapsed(start),
	}
}

func (o *Orchestrator) elapsed(start time.Time) float64 {
	if d := o.now().Sub(start).Seconds(); d > 0 {
		return d
	}
	return 0
}
