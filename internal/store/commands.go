package store

import (
	"context"

	wefterrors "github.com/randalmurphal/weft/internal/errors"
	"github.com/randalmurphal/weft/internal/events"
	"github.com/randalmurphal/weft/internal/loom"
)

// CreateMission issues the create command and appends the
// server-confirmed mission to the cache. Creation is not optimistic:
// the server assigns the id, so nothing is inserted until it confirms.
func (s *WorkflowStore) CreateMission(ctx context.Context, m *loom.Mission) (*loom.Mission, error) {
	created, err := s.api.CreateMission(ctx, s.workspaceID, m)
	if err != nil {
		e := wefterrors.ErrCreateFailed("mission", err)
		s.mu.Lock()
		s.lastErr = e
		s.mu.Unlock()
		return nil, e
	}

	s.mu.Lock()
	s.missions = append(s.missions, created)
	s.missionIndex[created.ID] = created
	s.mu.Unlock()

	s.publisher.Publish(events.NewChange(events.ChangeMissions, created.ID, created.ID))
	return created, nil
}

// CreateTodo issues the create command and appends the server-confirmed
// todo (with its server-assigned id and full step set) to the cache.
func (s *WorkflowStore) CreateTodo(ctx context.Context, missionID string, t *loom.Todo) (*loom.Todo, error) {
	created, err := s.api.CreateTodo(ctx, missionID, t)
	if err != nil {
		e := wefterrors.ErrCreateFailed("todo", err)
		s.mu.Lock()
		s.lastErr = e
		s.mu.Unlock()
		return nil, e
	}

	s.mu.Lock()
	s.todos[missionID] = append(s.todos[missionID], created)
	sortTodos(s.todos[missionID])
	s.todoToMission[created.ID] = missionID
	s.recountLocked(missionID)
	s.mu.Unlock()

	s.publisher.Publish(events.NewChange(events.ChangeTodos, missionID, created.ID))
	return created, nil
}

// UpdateMissionStatus mutates the local status immediately and issues
// the command fire-and-forget. The local state is never rolled back on
// failure: the UI must not appear to regress a user action, at the cost
// of divergence if the write silently fails.
func (s *WorkflowStore) UpdateMissionStatus(missionID string, status loom.Status) {
	status = loom.NormalizeStatus(status)

	s.mu.Lock()
	m, ok := s.missionIndex[missionID]
	if ok {
		m.Status = status
	}
	s.mu.Unlock()
	if !ok {
		s.logger.Warn("status update for unknown mission", "mission", missionID)
		return
	}

	s.publisher.Publish(events.NewChange(events.ChangeMissions, missionID, missionID))

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.api.UpdateMissionStatus(context.Background(), missionID, status); err != nil {
			// Optimistic state stands.
			s.logger.Warn("mission status command failed", "mission", missionID, "status", status, "error", err)
		}
	}()
}

// UpdateTodoStatus mutates the local status immediately and issues the
// command fire-and-forget, with the same no-rollback policy as mission
// status. A transition to threading additionally triggers a best-effort
// session start; its failure never affects the committed transition.
func (s *WorkflowStore) UpdateTodoStatus(todoID string, status loom.Status) {
	status = loom.NormalizeStatus(status)

	s.mu.Lock()
	t := s.todoLocked(todoID)
	var missionID string
	if t != nil {
		t.Status = status
		loom.Refresh(t)
		missionID = t.MissionID
		s.recountLocked(missionID)
	}
	s.mu.Unlock()
	if t == nil {
		s.logger.Warn("status update for unknown todo", "todo", todoID)
		return
	}

	s.publisher.Publish(events.NewChange(events.ChangeTodos, missionID, todoID))

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.api.UpdateTodoStatus(context.Background(), todoID, status); err != nil {
			s.logger.Warn("todo status command failed", "todo", todoID, "status", status, "error", err)
		}
		if status == loom.StatusThreading {
			if err := s.api.StartSession(context.Background(), todoID); err != nil {
				s.logger.Warn("session start failed", "todo", todoID, "error", err)
			}
		}
	}()
}

// UpdateStepStatus mutates one step of one todo immediately (deriving
// the todo's aggregate status) and issues the command fire-and-forget
// with no rollback.
func (s *WorkflowStore) UpdateStepStatus(todoID string, stepType loom.StepType, status loom.StepStatus, notes string) {
	s.mu.Lock()
	t := s.todoLocked(todoID)
	var missionID string
	applied := false
	if t != nil {
		applied = loom.ApplyStepProgress(t, stepType, status, 0, "", notes)
		missionID = t.MissionID
		s.recountLocked(missionID)
	}
	s.mu.Unlock()
	if t == nil || !applied {
		s.logger.Warn("step update for unknown todo or step", "todo", todoID, "step", stepType)
		return
	}

	s.publisher.Publish(events.NewChange(events.ChangeTodos, missionID, todoID))

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.api.UpdateStepStatus(context.Background(), todoID, stepType, status, notes); err != nil {
			s.logger.Warn("step status command failed", "todo", todoID, "step", stepType, "error", err)
		}
	}()
}

// UpdateDependencies replaces a todo's dependency list on the server and
// applies the refreshed snapshots and server-computed flags verbatim.
func (s *WorkflowStore) UpdateDependencies(ctx context.Context, todoID string, dependencyIDs []string) error {
	upd, err := s.api.UpdateDependencies(ctx, todoID, dependencyIDs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	t := s.todoLocked(todoID)
	var missionID string
	if t != nil {
		t.Dependencies = upd.Dependencies
		t.IsBlocked = upd.IsBlocked
		t.IsReadyToStart = upd.IsReadyToStart
		missionID = t.MissionID
	}
	s.mu.Unlock()
	if t == nil {
		return wefterrors.ErrTodoNotFound(todoID)
	}

	s.publisher.Publish(events.NewChange(events.ChangeTodos, missionID, todoID))
	return nil
}

// DeleteTodo removes the todo optimistically and rolls the removal back
// from a pre-mutation snapshot if the command fails. Destructive
// operations are the one place the safer policy applies.
func (s *WorkflowStore) DeleteTodo(ctx context.Context, todoID string) error {
	s.mu.Lock()
	missionID, ok := s.todoToMission[todoID]
	if !ok {
		s.mu.Unlock()
		return wefterrors.ErrTodoNotFound(todoID)
	}

	var snapshot *loom.Todo
	var position int
	list := s.todos[missionID]
	for i, t := range list {
		if t.ID == todoID {
			snapshot = t.Clone()
			position = i
			s.todos[missionID] = append(append([]*loom.Todo(nil), list[:i]...), list[i+1:]...)
			break
		}
	}
	delete(s.todoToMission, todoID)
	if s.selectedTodoID == todoID {
		s.selectedTodoID = ""
	}
	s.recountLocked(missionID)
	s.mu.Unlock()

	s.publisher.Publish(events.NewChange(events.ChangeTodos, missionID, todoID))

	if err := s.api.DeleteTodo(ctx, todoID); err != nil {
		e := wefterrors.ErrDeleteFailed("todo", todoID, err)

		s.mu.Lock()
		list := s.todos[missionID]
		if position > len(list) {
			position = len(list)
		}
		restored := append([]*loom.Todo(nil), list[:position]...)
		restored = append(restored, snapshot)
		restored = append(restored, list[position:]...)
		s.todos[missionID] = restored
		s.todoToMission[todoID] = missionID
		s.recountLocked(missionID)
		s.lastErr = e
		s.mu.Unlock()

		s.publisher.Publish(events.NewChange(events.ChangeTodos, missionID, todoID))
		return e
	}
	return nil
}

// DeleteMission removes the mission optimistically with rollback. A
// mission that still has mirrored todos is never hard-deleted; it is
// archived instead (soft delete).
func (s *WorkflowStore) DeleteMission(ctx context.Context, missionID string) error {
	s.mu.Lock()
	m, ok := s.missionIndex[missionID]
	if !ok {
		s.mu.Unlock()
		return wefterrors.ErrMissionNotFound(missionID)
	}
	hasTodos := len(s.todos[missionID]) > 0
	s.mu.Unlock()

	if hasTodos {
		s.UpdateMissionStatus(missionID, loom.StatusArchived)
		return nil
	}

	s.mu.Lock()
	snapshot := m.Clone()
	var position int
	for i, cur := range s.missions {
		if cur.ID == missionID {
			position = i
			s.missions = append(append([]*loom.Mission(nil), s.missions[:i]...), s.missions[i+1:]...)
			break
		}
	}
	delete(s.missionIndex, missionID)
	if s.selectedMissionID == missionID {
		s.selectedMissionID = ""
	}
	s.mu.Unlock()

	s.publisher.Publish(events.NewChange(events.ChangeMissions, missionID, missionID))

	if err := s.api.DeleteMission(ctx, missionID); err != nil {
		e := wefterrors.ErrDeleteFailed("mission", missionID, err)

		s.mu.Lock()
		if position > len(s.missions) {
			position = len(s.missions)
		}
		restored := append([]*loom.Mission(nil), s.missions[:position]...)
		restored = append(restored, snapshot)
		restored = append(restored, s.missions[position:]...)
		s.missions = restored
		s.missionIndex[missionID] = snapshot
		s.lastErr = e
		s.mu.Unlock()

		s.publisher.Publish(events.NewChange(events.ChangeMissions, missionID, missionID))
		return e
	}
	return nil
}

// StopSession asks the backend to stop a todo's execution session,
// fire-and-forget.
func (s *WorkflowStore) StopSession(todoID string) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.api.StopSession(context.Background(), todoID); err != nil {
			s.logger.Warn("session stop failed", "todo", todoID, "error", err)
		}
	}()
}
