package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ShayCichocki/genesis/pkg/models"
)

const (
	DefaultCapacity = 1024
	DefaultRetain   = 24 * time.Hour
)

var (
	// ErrUnknownProject is returned when a workflow is attached to a project
	// that was never registered.
	ErrUnknownProject = errors.New("unknown project")
	// ErrDuplicateWorkflow is returned when an id is registered twice.
	ErrDuplicateWorkflow = errors.New("workflow already registered")
)

type entry struct {
	project  *models.ProjectState
	workflow *models.WorkflowState
}

func (e entry) record() WorkflowRecord {
	var rec WorkflowRecord
	if e.workflow != nil {
		rec.Workflow = e.workflow.Snapshot()
	}
	if e.project != nil {
		rec.Project = e.project.Snapshot()
		rec.Workflow.ProjectName = e.project.Name
	}
	return rec
}

// Store holds project and workflow state keyed by workflow id.
//
// Entries whose workflow is still running live in a map and are never
// evicted. Once an entry is retired (its workflow reached a terminal
// status, or it never got a workflow) it moves into an expirable LRU
// bounded by capacity and retention time.
type Store struct {
	mu       sync.Mutex
	live     map[string]*entry
	finished *expirable.LRU[string, entry]
}

// NewStore creates a store. Non-positive arguments take the defaults.
func NewStore(capacity int, retainFor time.Duration) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if retainFor <= 0 {
		retainFor = DefaultRetain
	}
	return &Store{
		live:     make(map[string]*entry),
		finished: expirable.NewLRU[string, entry](capacity, nil, retainFor),
	}
}

// PutProject registers the project generated by workflow id.
func (s *Store) PutProject(id string, p *models.ProjectState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateWorkflow, id)
	}
	if _, ok := s.finished.Peek(id); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateWorkflow, id)
	}
	s.live[id] = &entry{project: p}
	return nil
}

// AttachWorkflow registers w against the project stored under the same id.
func (s *Store) AttachWorkflow(w *models.WorkflowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live[w.WorkflowID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProject, w.WorkflowID)
	}
	if e.workflow != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateWorkflow, w.WorkflowID)
	}
	if w.Project == nil {
		w.Project = e.project
	}
	e.workflow = w
	if w.Status.Terminal() {
		s.retireLocked(w.WorkflowID, e)
	}
	return nil
}

// Update runs fn on the live workflow id and returns its result. Workflows
// that fn leaves in a terminal status are retired. Unknown or retired ids
// return false without calling fn.
func (s *Store) Update(id string, fn func(*models.WorkflowState) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live[id]
	if !ok || e.workflow == nil {
		return false
	}
	changed := fn(e.workflow)
	if e.workflow.Status.Terminal() {
		s.retireLocked(id, e)
	}
	return changed
}

// Retire moves a live entry into the bounded set regardless of status.
func (s *Store) Retire(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.live[id]; ok {
		s.retireLocked(id, e)
	}
}

func (s *Store) retireLocked(id string, e *entry) {
	delete(s.live, id)
	s.finished.Add(id, *e)
}

func (s *Store) lookup(id string) (entry, bool) {
	if e, ok := s.live[id]; ok {
		return *e, true
	}
	return s.finished.Get(id)
}

// Workflow returns a snapshot of workflow id.
func (s *Store) Workflow(id string) (models.WorkflowSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(id)
	if !ok || e.workflow == nil {
		return models.WorkflowSnapshot{}, false
	}
	return e.workflow.Snapshot(), true
}

// Project returns a snapshot of the project generated by workflow id.
func (s *Store) Project(id string) (models.ProjectSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(id)
	if !ok || e.project == nil {
		return models.ProjectSnapshot{}, false
	}
	return e.project.Snapshot(), true
}

// Record returns the combined workflow and project view of id.
func (s *Store) Record(id string) (WorkflowRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(id)
	if !ok || e.workflow == nil {
		return WorkflowRecord{}, false
	}
	return e.record(), true
}

// Counts returns how many workflows and projects are held, live and
// retired.
func (s *Store) Counts() (workflows, projects int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.live {
		projects++
		if e.workflow != nil {
			workflows++
		}
	}
	for _, e := range s.finished.Values() {
		projects++
		if e.workflow != nil {
			workflows++
		}
	}
	return workflows, projects
}

// LiveCount returns the number of entries that cannot be evicted.
func (s *Store) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}
