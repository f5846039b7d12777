// Package graph validates workflow task graphs.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/genesis/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrDuplicateTask indicates two tasks share an ID.
var ErrDuplicateTask = errors.New("duplicate task id")

// DependencyGraph represents a directed acyclic graph of task dependencies.
// Tasks are nodes, and edges represent "runs after" relationships.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to IDs of tasks it depends on.
	edges map[string][]string
	// order keeps insertion order so traversals are deterministic.
	order []string
	// logger receives Build's debug output.
	logger zerolog.Logger
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:  make(map[string]*models.Task),
		edges:  make(map[string][]string),
		logger: zerolog.Nop(),
	}
}

// SetLogger sets the logger Build reports to at debug level.
func (g *DependencyGraph) SetLogger(logger zerolog.Logger) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logger = logger.With().Str("component", "graph").Logger()
}

// Build constructs the dependency graph from a slice of tasks.
// Returns an error if a cycle is detected, an ID repeats, or a dependency
// or result reference names an unknown task.
func (g *DependencyGraph) Build(tasks []*models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.logger.Debug().Int("tasks", len(tasks)).Msg("building graph")

	// First pass: register all tasks as nodes.
	for _, task := range tasks {
		if _, exists := g.nodes[task.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateTask, task.ID)
		}
		g.nodes[task.ID] = task
		g.edges[task.ID] = nil
		g.order = append(g.order, task.ID)
	}

	// Second pass: build edges from Dependencies.
	for _, task := range tasks {
		for _, depID := range task.Dependencies {
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("task %s depends on unknown task %s", task.ID, depID)
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
		}
		// A result reference must point at a prerequisite, otherwise the
		// engine could run the task before the value exists.
		for _, ref := range task.References() {
			if !contains(task.Dependencies, ref) {
				return fmt.Errorf("task %s references result of %s without depending on it", task.ID, ref)
			}
		}
	}

	if g.hasCycleLocked() {
		return ErrCycleDetected
	}

	g.logger.Debug().Int("nodes", len(g.nodes)).Msg("graph built")
	return nil
}

// hasCycleLocked reports a back edge found by depth-first search with
// coloring. The caller holds the lock.
func (g *DependencyGraph) hasCycleLocked() bool {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1

		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		colors[id] = 2
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 && visit(id) {
			return true
		}
	}
	return false
}

// TopologicalSort returns task IDs in an order where all dependencies
// come before the tasks that depend on them. Ties keep insertion order.
// Returns an error if the graph contains a cycle.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.hasCycleLocked() {
		return nil, ErrCycleDetected
	}

	visited := make(map[string]bool, len(g.nodes))
	result := make([]string, 0, len(g.nodes))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, depID := range g.edges[id] {
			visit(depID)
		}
		result = append(result, id)
	}

	for _, id := range g.order {
		visit(id)
	}
	return result, nil
}

// Roots returns the tasks with no dependencies, in insertion order.
func (g *DependencyGraph) Roots() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var roots []string
	for _, id := range g.order {
		if len(g.edges[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// GetTask returns the task for a given ID, or nil if not found.
func (g *DependencyGraph) GetTask(taskID string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// GetDependents returns the IDs of tasks that depend on the given task, sorted.
func (g *DependencyGraph) GetDependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for id, deps := range g.edges {
		if contains(deps, taskID) {
			dependents = append(dependents, id)
		}
	}
	sort.Strings(dependents)
	return dependents
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
