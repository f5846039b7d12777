package state

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ShayCichocki/genesis/pkg/models"
)

func testProject(name string) *models.ProjectState {
	return &models.ProjectState{
		Name:       name,
		Template:   models.TemplateSaaSBasic,
		OutputPath: "/tmp/" + name,
		CreatedAt:  time.Now(),
		Config: models.ProjectConfig{
			Name:       name,
			Components: []models.Component{models.ComponentBackend},
		},
	}
}

func testDefinition(id string) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID: id,
		Tasks: []*models.Task{
			{ID: "a"},
			{ID: "b", Dependencies: []string{"a"}},
		},
	}
}

func register(t *testing.T, s *Store, id string) {
	t.Helper()
	p := testProject("proj-" + id)
	if err := s.PutProject(id, p); err != nil {
		t.Fatalf("PutProject(%s) error = %v", id, err)
	}
	if err := s.AttachWorkflow(models.NewWorkflowState(id, testDefinition(id), p, time.Now())); err != nil {
		t.Fatalf("AttachWorkflow(%s) error = %v", id, err)
	}
}

func finish(s *Store, id string) bool {
	return s.Update(id, func(w *models.WorkflowState) bool {
		return w.Transition(models.WorkflowCompleted, time.Now(), "")
	})
}

func TestStore_RegisterAndQuery(t *testing.T) {
	s := NewStore(0, 0)
	register(t, s, "wf-1")

	w, ok := s.Workflow("wf-1")
	if !ok {
		t.Fatal("Workflow() not found")
	}
	if w.Status != models.WorkflowRunning || w.ProjectName != "proj-wf-1" {
		t.Errorf("Workflow() = %+v", w)
	}

	p, ok := s.Project("wf-1")
	if !ok {
		t.Fatal("Project() not found")
	}
	if p.Name != "proj-wf-1" || p.OutputPath != "/tmp/proj-wf-1" || len(p.Components) != 1 {
		t.Errorf("Project() = %+v", p)
	}

	if _, ok := s.Workflow("missing"); ok {
		t.Error("Workflow(missing) found")
	}
	if _, ok := s.Project("missing"); ok {
		t.Error("Project(missing) found")
	}
}

func TestStore_RegistrationErrors(t *testing.T) {
	s := NewStore(0, 0)
	register(t, s, "wf-1")

	if err := s.PutProject("wf-1", testProject("again")); !errors.Is(err, ErrDuplicateWorkflow) {
		t.Errorf("PutProject(duplicate) error = %v, want ErrDuplicateWorkflow", err)
	}
	w := models.NewWorkflowState("orphan", testDefinition("orphan"), nil, time.Now())
	if err := s.AttachWorkflow(w); !errors.Is(err, ErrUnknownProject) {
		t.Errorf("AttachWorkflow(orphan) error = %v, want ErrUnknownProject", err)
	}
}

func TestStore_UpdateRetiresTerminal(t *testing.T) {
	s := NewStore(0, 0)
	register(t, s, "wf-1")

	if s.LiveCount() != 1 {
		t.Fatalf("LiveCount() = %d, want 1", s.LiveCount())
	}
	if !finish(s, "wf-1") {
		t.Fatal("Update() = false, want true")
	}
	if s.LiveCount() != 0 {
		t.Errorf("LiveCount() = %d after completion, want 0", s.LiveCount())
	}

	w, ok := s.Workflow("wf-1")
	if !ok || w.Status != models.WorkflowCompleted || w.Progress != 1 {
		t.Errorf("Workflow() = %+v, %v", w, ok)
	}
	if finish(s, "wf-1") {
		t.Error("Update() on retired workflow = true")
	}
}

func TestStore_UpdateTaskProgress(t *testing.T) {
	s := NewStore(0, 0)
	register(t, s, "wf-1")

	mark := func(task string) bool {
		return s.Update("wf-1", func(w *models.WorkflowState) bool { return w.MarkTaskComplete(task) })
	}
	if !mark("a") {
		t.Fatal("MarkTaskComplete(a) = false")
	}
	if mark("a") {
		t.Error("repeat MarkTaskComplete(a) = true")
	}
	if w, _ := s.Workflow("wf-1"); w.Progress != 0.5 {
		t.Errorf("Progress = %v, want 0.5", w.Progress)
	}
	if s.Update("missing", func(*models.WorkflowState) bool { return true }) {
		t.Error("Update(missing) = true")
	}
}

func TestStore_EvictsOnlyFinished(t *testing.T) {
	s := NewStore(2, time.Hour)

	register(t, s, "running")
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("done-%d", i)
		register(t, s, id)
		finish(s, id)
	}

	if _, ok := s.Workflow("running"); !ok {
		t.Error("running workflow evicted")
	}
	if _, ok := s.Workflow("done-0"); ok {
		t.Error("oldest finished workflow not evicted")
	}
	for _, id := range []string{"done-3", "done-4"} {
		if _, ok := s.Workflow(id); !ok {
			t.Errorf("%s evicted, want kept", id)
		}
	}

	workflows, projects := s.Counts()
	if workflows != 3 || projects != 3 {
		t.Errorf("Counts() = %d, %d, want 3, 3", workflows, projects)
	}
}

func TestStore_RetentionExpires(t *testing.T) {
	s := NewStore(10, 20*time.Millisecond)
	register(t, s, "wf-1")
	finish(s, "wf-1")

	time.Sleep(100 * time.Millisecond)
	if _, ok := s.Workflow("wf-1"); ok {
		t.Error("finished workflow retained past its TTL")
	}
}

func TestStore_RetireWithoutWorkflow(t *testing.T) {
	s := NewStore(0, 0)
	if err := s.PutProject("wf-1", testProject("half")); err != nil {
		t.Fatal(err)
	}
	s.Retire("wf-1")

	if s.LiveCount() != 0 {
		t.Errorf("LiveCount() = %d, want 0", s.LiveCount())
	}
	if _, ok := s.Project("wf-1"); !ok {
		t.Error("retired project not queryable")
	}
	if _, ok := s.Workflow("wf-1"); ok {
		t.Error("Workflow() found for project without workflow")
	}
	workflows, projects := s.Counts()
	if workflows != 0 || projects != 1 {
		t.Errorf("Counts() = %d, %d, want 0, 1", workflows, projects)
	}
}

func TestStore_Record(t *testing.T) {
	s := NewStore(0, 0)
	register(t, s, "wf-1")
	s.Update("wf-1", func(w *models.WorkflowState) bool {
		return w.Transition(models.WorkflowFailed, time.Now(), "agent crashed")
	})

	rec, ok := s.Record("wf-1")
	if !ok {
		t.Fatal("Record() not found")
	}
	if rec.Workflow.Status != models.WorkflowFailed || rec.Workflow.Error != "agent crashed" {
		t.Errorf("Workflow = %+v", rec.Workflow)
	}
	if rec.Project.Name != "proj-wf-1" || rec.Workflow.ProjectName != "proj-wf-1" {
		t.Errorf("Project = %+v", rec.Project)
	}
}
