package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/weft/internal/events"
	"github.com/randalmurphal/weft/internal/loom"
)

func TestUpsertMissionIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	m := loom.NewMission("MSN-001", "WS-001", "first")

	s.UpsertMission(m)
	s.UpsertMission(m)

	assert.Len(t, s.Missions(), 1, "duplicate created events leave one copy")
}

func TestUpsertMissionReplacesRecord(t *testing.T) {
	s, _ := newTestStore(t)
	s.UpsertMission(loom.NewMission("MSN-001", "WS-001", "first"))

	updated := loom.NewMission("MSN-001", "WS-001", "second")
	s.UpsertMission(updated)

	require.Len(t, s.Missions(), 1)
	assert.Equal(t, "second", s.Mission("MSN-001").Title, "last write wins")
}

func TestUpsertTodoIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	s.UpsertMission(loom.NewMission("MSN-001", "WS-001", "m"))
	todo := loom.NewTodo("TODO-001", "MSN-001", "t")

	s.UpsertTodo(todo)
	s.UpsertTodo(todo)

	assert.Len(t, s.Todos("MSN-001"), 1)
}

func TestUpsertTodoMovesBetweenMissions(t *testing.T) {
	s, _ := newTestStore(t)
	s.UpsertMission(loom.NewMission("MSN-001", "WS-001", "a"))
	s.UpsertMission(loom.NewMission("MSN-002", "WS-001", "b"))
	s.UpsertTodo(loom.NewTodo("TODO-001", "MSN-001", "t"))

	moved := loom.NewTodo("TODO-001", "MSN-002", "t")
	s.UpsertTodo(moved)

	assert.Empty(t, s.Todos("MSN-001"))
	assert.Len(t, s.Todos("MSN-002"), 1)
}

func TestRemoveMissionUnknownIsNoop(t *testing.T) {
	s, _ := newTestStore(t)

	s.RemoveMission("MSN-404")

	assert.Empty(t, s.Missions())
}

func TestRemoveMissionClearsTodosAndCursors(t *testing.T) {
	s, _ := newTestStore(t)
	s.UpsertMission(loom.NewMission("MSN-001", "WS-001", "m"))
	s.UpsertTodo(loom.NewTodo("TODO-001", "MSN-001", "t"))
	s.SelectMission("MSN-001")
	s.SelectTodo("TODO-001")

	s.RemoveMission("MSN-001")

	assert.Nil(t, s.Mission("MSN-001"))
	assert.Nil(t, s.Todo("TODO-001"))
	assert.Nil(t, s.SelectedMission())
	assert.Nil(t, s.SelectedTodo())
}

func TestRemoveTodoUnknownIsNoop(t *testing.T) {
	s, _ := newTestStore(t)

	s.RemoveTodo("TODO-404")
}

func TestApplyStepProgressOrphanNoop(t *testing.T) {
	s, _ := newTestStore(t)

	applied := s.ApplyStepProgress(&events.StepProgress{
		TodoID:   "TODO-404",
		StepType: loom.StepDesign,
		Status:   loom.StepCompleted,
	})

	assert.False(t, applied, "step events never synthesize todos")
	assert.Nil(t, s.Todo("TODO-404"))
}

func TestApplyStepProgressPatchesAndDerives(t *testing.T) {
	s, api := newTestStore(t)
	seedMission(api, "MSN-001", "TODO-001")
	require.NoError(t, s.FetchMissions(context.Background()))
	require.NoError(t, s.FetchTodos(context.Background(), "MSN-001"))

	applied := s.ApplyStepProgress(&events.StepProgress{
		TodoID:   "TODO-001",
		StepType: loom.StepAnalysis,
		Status:   loom.StepInProgress,
		Progress: 30,
		Message:  "scanning",
	})

	require.True(t, applied)
	todo := s.Todo("TODO-001")
	assert.Equal(t, loom.StatusThreading, todo.Status)
	assert.Equal(t, 30, todo.Step(loom.StepAnalysis).Progress)
	assert.Equal(t, 1, s.Mission("MSN-001").TodoStats.Threading)
}

func TestApplyStepProgressIdempotent(t *testing.T) {
	s, api := newTestStore(t)
	seedMission(api, "MSN-001", "TODO-001")
	require.NoError(t, s.FetchMissions(context.Background()))
	require.NoError(t, s.FetchTodos(context.Background(), "MSN-001"))

	sp := &events.StepProgress{TodoID: "TODO-001", StepType: loom.StepDesign, Status: loom.StepCompleted}
	s.ApplyStepProgress(sp)
	first := *s.Todo("TODO-001").Step(loom.StepDesign).CompletedAt

	s.ApplyStepProgress(sp)

	assert.Equal(t, first, *s.Todo("TODO-001").Step(loom.StepDesign).CompletedAt,
		"re-applying the same event must not move timestamps")
}

func TestApplyTodoReadyForceSets(t *testing.T) {
	s, api := newTestStore(t)
	seedMission(api, "MSN-001", "TODO-001")
	require.NoError(t, s.FetchMissions(context.Background()))
	require.NoError(t, s.FetchTodos(context.Background(), "MSN-001"))

	applied := s.ApplyTodoReady(&events.TodoReadyData{
		TodoID:         "TODO-001",
		Status:         loom.StatusPending,
		IsBlocked:      false,
		IsReadyToStart: true,
	})

	require.True(t, applied)
	todo := s.Todo("TODO-001")
	assert.True(t, todo.IsReadyToStart, "server flags are trusted verbatim")
	assert.False(t, todo.IsBlocked)
}

func TestApplyTodoReadyOrphanNoop(t *testing.T) {
	s, _ := newTestStore(t)

	assert.False(t, s.ApplyTodoReady(&events.TodoReadyData{TodoID: "TODO-404"}))
}

func TestApplyDependencyFlagsLeavesListUntouched(t *testing.T) {
	s, api := newTestStore(t)
	seedMission(api, "MSN-001", "TODO-001")
	require.NoError(t, s.FetchMissions(context.Background()))
	require.NoError(t, s.FetchTodos(context.Background(), "MSN-001"))
	deps := []loom.Dependency{{ID: "TODO-000", Status: loom.StatusPending}}
	s.Todo("TODO-001").Dependencies = deps

	applied := s.ApplyDependencyFlags(&events.DependencyFlags{
		TodoID:         "TODO-001",
		IsBlocked:      false,
		IsReadyToStart: true,
	})

	require.True(t, applied)
	todo := s.Todo("TODO-001")
	assert.True(t, todo.IsReadyToStart)
	assert.Len(t, todo.Dependencies, 1, "flags event never rewrites the dependency list")
}
