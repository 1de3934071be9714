// Package store holds the client-side mirror of workflow state: the
// authoritative in-memory projection of missions and todos, plus the
// question and timeline collections. Stores are explicit injectable
// containers, never package globals; commands and reconciled events both
// mutate them through the same surface.
package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/randalmurphal/weft/internal/client"
	"github.com/randalmurphal/weft/internal/events"
	"github.com/randalmurphal/weft/internal/loom"
)

// WorkflowStore is the in-memory projection of missions and todos for
// one workspace. It owns the optimistic-update policy for commands and
// is the single mutation surface shared by UI commands and reconciled
// push events.
type WorkflowStore struct {
	mu sync.RWMutex

	workspaceID string

	missions     []*loom.Mission
	missionIndex map[string]*loom.Mission

	todos         map[string][]*loom.Todo // keyed by mission id, ordered
	todoToMission map[string]string

	selectedMissionID string
	selectedTodoID    string

	lastErr error

	api       client.API
	publisher events.Publisher
	logger    *slog.Logger

	group    singleflight.Group
	inflight sync.WaitGroup
}

// NewWorkflowStore creates a workflow store for one workspace.
func NewWorkflowStore(workspaceID string, api client.API, pub events.Publisher, logger *slog.Logger) *WorkflowStore {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = events.NewNopPublisher()
	}
	s := &WorkflowStore{
		workspaceID: workspaceID,
		api:         api,
		publisher:   pub,
		logger:      logger,
	}
	s.resetLocked()
	return s
}

// Reset clears all mirrored state. The next fetch rebuilds it.
func (s *WorkflowStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *WorkflowStore) resetLocked() {
	s.missions = nil
	s.missionIndex = make(map[string]*loom.Mission)
	s.todos = make(map[string][]*loom.Todo)
	s.todoToMission = make(map[string]string)
	s.selectedMissionID = ""
	s.selectedTodoID = ""
	s.lastErr = nil
}

// Wait blocks until in-flight fire-and-forget commands have settled.
// Used by tests and by shutdown.
func (s *WorkflowStore) Wait() {
	s.inflight.Wait()
}

// WorkspaceID returns the workspace this store mirrors.
func (s *WorkflowStore) WorkspaceID() string {
	return s.workspaceID
}

// LastErr returns the most recent store-level error (failed delete or
// create). Fetch failures are recorded here too but never clear state.
func (s *WorkflowStore) LastErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Missions returns the mirrored mission collection.
func (s *WorkflowStore) Missions() []*loom.Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*loom.Mission(nil), s.missions...)
}

// Mission returns a mission by id, or nil if absent.
func (s *WorkflowStore) Mission(id string) *loom.Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.missionIndex[id]
}

// Todos returns the mirrored todos for a mission.
func (s *WorkflowStore) Todos(missionID string) []*loom.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*loom.Todo(nil), s.todos[missionID]...)
}

// Todo returns a todo by id, or nil if absent.
func (s *WorkflowStore) Todo(id string) *loom.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.todoLocked(id)
}

func (s *WorkflowStore) todoLocked(id string) *loom.Todo {
	missionID, ok := s.todoToMission[id]
	if !ok {
		return nil
	}
	for _, t := range s.todos[missionID] {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// SelectedMission returns the mission the cursor points at, or nil.
func (s *WorkflowStore) SelectedMission() *loom.Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedMissionID == "" {
		return nil
	}
	return s.missionIndex[s.selectedMissionID]
}

// SelectedTodo returns the todo the cursor points at, or nil.
func (s *WorkflowStore) SelectedTodo() *loom.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedTodoID == "" {
		return nil
	}
	return s.todoLocked(s.selectedTodoID)
}

// SelectMission moves the mission cursor. Pure local state, no network.
func (s *WorkflowStore) SelectMission(id string) {
	s.mu.Lock()
	s.selectedMissionID = id
	s.mu.Unlock()
	s.publisher.Publish(events.NewChange(events.ChangeSelection, id, id))
}

// SelectTodo moves the todo cursor. Pure local state, no network.
func (s *WorkflowStore) SelectTodo(id string) {
	s.mu.Lock()
	s.selectedTodoID = id
	missionID := s.todoToMission[id]
	s.mu.Unlock()
	s.publisher.Publish(events.NewChange(events.ChangeSelection, missionID, id))
}

// FetchMissions replaces the mission collection wholesale from the
// backend and drops mirrored todos of missions no longer present. On
// transport failure the last-known-good snapshot is retained; a failed
// background refresh never clears visible state. Concurrent callers
// share one backend call.
func (s *WorkflowStore) FetchMissions(ctx context.Context) error {
	_, err, _ := s.group.Do("missions", func() (any, error) {
		missions, err := s.api.ListMissions(ctx, s.workspaceID)
		if err != nil {
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
			s.logger.Warn("mission refresh failed, keeping snapshot", "error", err)
			return nil, err
		}

		s.mu.Lock()
		s.missions = missions
		s.missionIndex = make(map[string]*loom.Mission, len(missions))
		for _, m := range missions {
			s.missionIndex[m.ID] = m
		}
		// Todos of missions the server no longer returns would otherwise
		// stay reachable through Todo(id) until restart.
		for missionID, list := range s.todos {
			if _, ok := s.missionIndex[missionID]; ok {
				continue
			}
			for _, t := range list {
				delete(s.todoToMission, t.ID)
				if s.selectedTodoID == t.ID {
					s.selectedTodoID = ""
				}
			}
			delete(s.todos, missionID)
		}
		if _, ok := s.missionIndex[s.selectedMissionID]; !ok {
			s.selectedMissionID = ""
		}
		s.mu.Unlock()

		s.publisher.Publish(events.NewChange(events.ChangeMissions, events.GlobalMissionID, ""))
		return nil, nil
	})
	return err
}

// FetchTodos replaces a mission's todo collection wholesale from the
// backend, with the same retain-on-failure policy as FetchMissions.
func (s *WorkflowStore) FetchTodos(ctx context.Context, missionID string) error {
	_, err, _ := s.group.Do("todos:"+missionID, func() (any, error) {
		todos, err := s.api.ListTodos(ctx, missionID)
		if err != nil {
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
			s.logger.Warn("todo refresh failed, keeping snapshot", "mission", missionID, "error", err)
			return nil, err
		}

		s.mu.Lock()
		for _, old := range s.todos[missionID] {
			delete(s.todoToMission, old.ID)
		}
		sortTodos(todos)
		s.todos[missionID] = todos
		for _, t := range todos {
			s.todoToMission[t.ID] = missionID
		}
		s.recountLocked(missionID)
		s.mu.Unlock()

		s.publisher.Publish(events.NewChange(events.ChangeTodos, missionID, ""))
		return nil, nil
	})
	return err
}

// recountLocked rebuilds a mission's denormalized todo stats.
func (s *WorkflowStore) recountLocked(missionID string) {
	if m, ok := s.missionIndex[missionID]; ok {
		loom.RecountStats(m, s.todos[missionID])
	}
}

// sortTodos orders todos by their mission-scoped order index.
func sortTodos(todos []*loom.Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		return todos[i].OrderIndex < todos[j].OrderIndex
	})
}
