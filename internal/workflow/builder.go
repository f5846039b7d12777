// Package workflow turns a project configuration into the task graph the
// execution engine runs.
package workflow

import (
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/ShayCichocki/genesis/internal/graph"
	"github.com/ShayCichocki/genesis/pkg/models"
)

// Name is the workflow name handed to the engine.
const Name = "project_generation"

// Task IDs emitted by Build.
const (
	TaskAnalyze = "analyze_architecture"
	TaskDesign  = "design_architecture"
	TaskDevOps  = "setup_devops"
)

// Policy bounds how the engine may run the graph.
type Policy struct {
	// MaxParallelTasks caps concurrently running tasks.
	MaxParallelTasks int
	// Timeout bounds the whole workflow.
	Timeout time.Duration
}

// DefaultPolicy is three parallel tasks and a 30 minute ceiling.
func DefaultPolicy() Policy {
	return Policy{
		MaxParallelTasks: 3,
		Timeout:          30 * time.Minute,
	}
}

// GenerateTaskID returns the generation task ID for a component.
func GenerateTaskID(c models.Component) string {
	return "generate_" + string(c)
}

// Build produces the generation graph for cfg. The same inputs always give
// the same task IDs, order and edges:
//
//	analyze_architecture -> design_architecture -> generate_<component>... -> setup_devops
//
// Generation tasks exist only for requested components that have a
// generator agent (see models.Component.Generator), in models.AllComponents
// order. setup_devops depends on the design task and every generation task.
func Build(cfg *models.ProjectConfig, outputPath, workflowID string, policy Policy) (*models.WorkflowDefinition, error) {
	if cfg == nil {
		return nil, errors.New("project config is required")
	}
	if policy.MaxParallelTasks <= 0 || policy.Timeout <= 0 {
		def := DefaultPolicy()
		if policy.MaxParallelTasks <= 0 {
			policy.MaxParallelTasks = def.MaxParallelTasks
		}
		if policy.Timeout <= 0 {
			policy.Timeout = def.Timeout
		}
	}

	tasks := []*models.Task{
		{
			ID:      TaskAnalyze,
			AgentID: models.AgentArchitect,
			Action:  "analyze_requirements",
			Params: map[string]models.Param{
				"config":      models.Literal(cfg.ToMap()),
				"output_path": models.Literal(outputPath),
			},
			Dependencies: []string{},
		},
		{
			ID:      TaskDesign,
			AgentID: models.AgentArchitect,
			Action:  "design_architecture",
			Params: map[string]models.Param{
				"requirements": models.ResultOf(TaskAnalyze),
			},
			Dependencies: []string{TaskAnalyze},
		},
	}

	devopsDeps := []string{TaskDesign}
	for _, comp := range models.AllComponents {
		agentID, ok := comp.Generator()
		if !ok || !cfg.HasComponent(comp) {
			continue
		}
		id := GenerateTaskID(comp)
		tasks = append(tasks, &models.Task{
			ID:      id,
			AgentID: agentID,
			Action:  id,
			Params: map[string]models.Param{
				"architecture": models.ResultOf(TaskDesign),
				"output_path":  models.Literal(path.Join(outputPath, string(comp))),
			},
			Dependencies: []string{TaskDesign},
		})
		devopsDeps = append(devopsDeps, id)
	}

	tasks = append(tasks, &models.Task{
		ID:      TaskDevOps,
		AgentID: models.AgentDevOps,
		Action:  "setup_devops",
		Params: map[string]models.Param{
			"architecture": models.ResultOf(TaskDesign),
			"output_path":  models.Literal(outputPath),
		},
		Dependencies: devopsDeps,
	})

	if err := graph.New().Build(tasks); err != nil {
		return nil, fmt.Errorf("invalid task graph: %w", err)
	}

	return &models.WorkflowDefinition{
		ID:               workflowID,
		Name:             Name,
		Tasks:            tasks,
		MaxParallelTasks: policy.MaxParallelTasks,
		Timeout:          policy.Timeout,
	}, nil
}
