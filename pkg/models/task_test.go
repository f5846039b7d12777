package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParam_Placeholder(t *testing.T) {
	p := ResultOf("design_architecture")
	if !p.IsRef() {
		t.Fatal("expected reference param")
	}
	if got := p.Placeholder(); got != "{{design_architecture.result}}" {
		t.Errorf("Placeholder() = %q", got)
	}
	if Literal("x").IsRef() {
		t.Error("literal reported as reference")
	}
}

func TestParam_JSONWireForm(t *testing.T) {
	task := Task{
		ID:      "generate_backend",
		AgentID: AgentBackend,
		Action:  "generate_backend",
		Params: map[string]Param{
			"architecture": ResultOf("design_architecture"),
			"output_path":  Literal("/tmp/demo/backend"),
		},
		Dependencies: []string{"design_architecture"},
	}
	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw struct {
		Params map[string]any `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw.Params["architecture"] != "{{design_architecture.result}}" {
		t.Errorf("architecture wire value = %v", raw.Params["architecture"])
	}
	if raw.Params["output_path"] != "/tmp/demo/backend" {
		t.Errorf("output_path wire value = %v", raw.Params["output_path"])
	}

	var back Task
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	arch := back.Params["architecture"]
	if !arch.IsRef() || arch.TaskID != "design_architecture" {
		t.Errorf("architecture param decoded as %+v, want reference", arch)
	}
	if out := back.Params["output_path"]; out.IsRef() || out.Value != "/tmp/demo/backend" {
		t.Errorf("output_path param decoded as %+v", out)
	}
}

func TestParam_LiteralLookingLikeText(t *testing.T) {
	var p Param
	if err := json.Unmarshal([]byte(`"see {{x.result}} later"`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.IsRef() {
		t.Error("embedded placeholder text should stay a literal")
	}
}

func TestTask_References(t *testing.T) {
	task := &Task{Params: map[string]Param{
		"a": ResultOf("one"),
		"b": Literal(3),
	}}
	refs := task.References()
	if len(refs) != 1 || refs[0] != "one" {
		t.Errorf("References() = %v, want [one]", refs)
	}
}

func TestWorkflowDefinition_Lookup(t *testing.T) {
	def := &WorkflowDefinition{
		ID:      "wf-1",
		Name:    "project_generation",
		Tasks:   []*Task{{ID: "a"}, {ID: "b"}},
		Timeout: time.Minute,
	}
	if def.Task("b") == nil || def.Task("c") != nil {
		t.Error("Task lookup mismatch")
	}
	ids := def.TaskIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("TaskIDs() = %v", ids)
	}
}

func TestWorkflowDefinition_TimeoutSecondsOnWire(t *testing.T) {
	def := &WorkflowDefinition{
		ID:               "wf-1",
		Name:             "project_generation",
		Tasks:            []*Task{{ID: "a", Params: map[string]Param{"in": Literal("x")}}},
		MaxParallelTasks: 3,
		Timeout:          30 * time.Minute,
	}

	data, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"timeout_seconds":1800`) {
		t.Errorf("wire form = %s, want timeout_seconds 1800", data)
	}
	if strings.Contains(string(data), `"timeout":`) {
		t.Errorf("wire form carries a raw duration: %s", data)
	}

	var got WorkflowDefinition
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Timeout != 30*time.Minute || got.MaxParallelTasks != 3 || got.Task("a") == nil {
		t.Errorf("decoded = %+v", got)
	}

	if err := json.Unmarshal([]byte(`{"id":"x","timeout_seconds":-1}`), &got); err == nil {
		t.Error("expected error for negative timeout_seconds")
	}
}
