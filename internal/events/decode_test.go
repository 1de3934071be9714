package events

import (
	"errors"
	"testing"

	"github.com/randalmurphal/weft/internal/loom"
)

func TestDecodeMissionCreated(t *testing.T) {
	raw := []byte(`{
		"topic": "mission",
		"workspace_id": "WS-001",
		"data": {
			"type": "CREATED",
			"payload": {"id": "MSN-001", "workspace_id": "WS-001", "title": "Ship it", "status": "in_progress"}
		}
	}`)

	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if n.Type != MissionCreated {
		t.Errorf("expected %s, got %s", MissionCreated, n.Type)
	}
	if n.WorkspaceID != "WS-001" {
		t.Errorf("expected workspace WS-001, got %s", n.WorkspaceID)
	}
	if n.Mission == nil || n.Mission.ID != "MSN-001" {
		t.Fatalf("expected mission payload, got %+v", n.Mission)
	}
	if n.Mission.Status != loom.StatusThreading {
		t.Errorf("expected alias normalized to %s, got %s", loom.StatusThreading, n.Mission.Status)
	}
}

func TestDecodeMissionDeletedBareString(t *testing.T) {
	raw := []byte(`{"topic": "mission", "data": {"type": "DELETED", "payload": "MSN-001"}}`)

	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n.Type != MissionDeleted || n.EntityID != "MSN-001" {
		t.Errorf("expected mission_deleted MSN-001, got %s %s", n.Type, n.EntityID)
	}
}

func TestDecodeTodoDeletedObjectPayload(t *testing.T) {
	raw := []byte(`{"topic": "todo", "data": {"type": "deleted", "payload": {"id": "TODO-001"}}}`)

	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n.Type != TodoDeleted || n.EntityID != "TODO-001" {
		t.Errorf("expected todo_deleted TODO-001, got %s %s", n.Type, n.EntityID)
	}
}

func TestDecodeTodoNormalizesSteps(t *testing.T) {
	raw := []byte(`{
		"topic": "todo",
		"data": {
			"type": "UPDATED",
			"payload": {
				"id": "TODO-001",
				"mission_id": "MSN-001",
				"title": "t",
				"status": "completed",
				"steps": [{"id": "s1", "step_type": "implementation", "status": "completed"}]
			}
		}
	}`)

	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n.Todo.Status != loom.StatusWoven {
		t.Errorf("expected status normalized to %s, got %s", loom.StatusWoven, n.Todo.Status)
	}
	if len(n.Todo.Steps) != loom.StepCount {
		t.Errorf("expected %d steps after repair, got %d", loom.StepCount, len(n.Todo.Steps))
	}
}

func TestDecodeStepNestedShape(t *testing.T) {
	raw := []byte(`{
		"topic": "step",
		"data": {
			"type": "PROGRESS",
			"payload": {"todo_id": "TODO-001", "step_type": "design", "status": "in_progress", "progress": 55, "message": "drafting"}
		}
	}`)

	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n.Type != StepProgressed {
		t.Fatalf("expected %s, got %s", StepProgressed, n.Type)
	}
	if n.Step.TodoID != "TODO-001" || n.Step.StepType != loom.StepDesign || n.Step.Progress != 55 {
		t.Errorf("unexpected step payload: %+v", n.Step)
	}
}

func TestDecodeStepFlatShape(t *testing.T) {
	raw := []byte(`{
		"topic": "step",
		"data": {"todo_id": "TODO-001", "step_type": "review", "status": "completed", "completed_steps": 5, "total_steps": 6}
	}`)

	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n.Step.StepType != loom.StepReview || n.Step.CompletedSteps != 5 {
		t.Errorf("unexpected step payload: %+v", n.Step)
	}
}

func TestDecodeStepRejectsUnknownType(t *testing.T) {
	raw := []byte(`{"topic": "step", "data": {"todo_id": "TODO-001", "step_type": "deployment", "status": "completed"}}`)

	_, err := Decode(raw)
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestDecodeDependencyReady(t *testing.T) {
	raw := []byte(`{
		"topic": "dependency",
		"data": {"type": "READY", "todo_id": "TODO-002", "status": "pending", "is_blocked": false, "is_ready_to_start": true}
	}`)

	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n.Type != TodoReady {
		t.Fatalf("expected %s, got %s", TodoReady, n.Type)
	}
	if n.Ready.TodoID != "TODO-002" || !n.Ready.IsReadyToStart {
		t.Errorf("unexpected ready payload: %+v", n.Ready)
	}
}

func TestDecodeDependencyChanged(t *testing.T) {
	raw := []byte(`{
		"topic": "dependency",
		"data": {"type": "CHANGED", "todo_id": "TODO-002", "is_blocked": true, "is_ready_to_start": false}
	}`)

	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n.Type != DependenciesChanged {
		t.Fatalf("expected %s, got %s", DependenciesChanged, n.Type)
	}
	if !n.Dependencies.IsBlocked {
		t.Errorf("unexpected flags payload: %+v", n.Dependencies)
	}
}

func TestDecodeAnalysisUpdate(t *testing.T) {
	raw := []byte(`{
		"topic": "analysis",
		"data": {"request_id": "REQ-001", "status": "completed", "analysis": {"suggested_todos": []}}
	}`)

	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n.Type != AnalysisUpdated || n.Analysis.RequestID != "REQ-001" {
		t.Errorf("unexpected analysis payload: %+v", n.Analysis)
	}
	if n.Analysis.Status != loom.AnalysisCompleted {
		t.Errorf("expected completed, got %s", n.Analysis.Status)
	}
}

func TestDecodeAnalysisMissingRequestID(t *testing.T) {
	raw := []byte(`{"topic": "analysis", "data": {"status": "completed"}}`)

	_, err := Decode(raw)
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestDecodeQuestionCreated(t *testing.T) {
	raw := []byte(`{
		"topic": "question",
		"data": {
			"type": "CREATED",
			"payload": {"id": "Q-001", "todo_id": "TODO-001", "question": "Which region?", "status": "pending"}
		}
	}`)

	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n.Type != QuestionCreated || n.Question.ID != "Q-001" {
		t.Errorf("unexpected question payload: %+v", n.Question)
	}
}

func TestDecodeUnknownTopic(t *testing.T) {
	raw := []byte(`{"topic": "metrics", "data": {}}`)

	_, err := Decode(raw)
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestDecodeMalformedEnvelope(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	if err == nil {
		t.Error("expected error for malformed frame")
	}
}
