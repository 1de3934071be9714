package store

import (
	"github.com/randalmurphal/weft/internal/events"
	"github.com/randalmurphal/weft/internal/loom"
)

// Entry points used by the event reconciler. These follow the
// reconciliation contract: upserts dedupe by id and replace the whole
// record (last write wins by arrival order), patches only touch entities
// already present, and deletions clear any cursor pointing at the
// removed entity.

// UpsertMission inserts or replaces a mission by id.
func (s *WorkflowStore) UpsertMission(m *loom.Mission) {
	s.mu.Lock()
	if _, exists := s.missionIndex[m.ID]; exists {
		for i, cur := range s.missions {
			if cur.ID == m.ID {
				s.missions[i] = m
				break
			}
		}
	} else {
		s.missions = append(s.missions, m)
	}
	s.missionIndex[m.ID] = m
	s.mu.Unlock()

	s.publisher.Publish(events.NewChange(events.ChangeMissions, m.ID, m.ID))
}

// RemoveMission deletes a mission by id and clears the cursor if it
// pointed there. Unknown ids are a no-op.
func (s *WorkflowStore) RemoveMission(id string) {
	s.mu.Lock()
	if _, exists := s.missionIndex[id]; !exists {
		s.mu.Unlock()
		return
	}
	for i, cur := range s.missions {
		if cur.ID == id {
			s.missions = append(s.missions[:i], s.missions[i+1:]...)
			break
		}
	}
	delete(s.missionIndex, id)
	if s.selectedMissionID == id {
		s.selectedMissionID = ""
	}
	for _, t := range s.todos[id] {
		delete(s.todoToMission, t.ID)
		if s.selectedTodoID == t.ID {
			s.selectedTodoID = ""
		}
	}
	delete(s.todos, id)
	s.mu.Unlock()

	s.publisher.Publish(events.NewChange(events.ChangeMissions, id, id))
}

// UpsertTodo inserts or replaces a todo by id. Applying the same
// "created" notification twice leaves exactly one copy.
func (s *WorkflowStore) UpsertTodo(t *loom.Todo) {
	s.mu.Lock()
	missionID := t.MissionID
	if prevMission, exists := s.todoToMission[t.ID]; exists {
		list := s.todos[prevMission]
		for i, cur := range list {
			if cur.ID == t.ID {
				s.todos[prevMission] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if prevMission != missionID {
			s.recountLocked(prevMission)
		}
	}
	s.todos[missionID] = append(s.todos[missionID], t)
	sortTodos(s.todos[missionID])
	s.todoToMission[t.ID] = missionID
	s.recountLocked(missionID)
	s.mu.Unlock()

	s.publisher.Publish(events.NewChange(events.ChangeTodos, missionID, t.ID))
}

// RemoveTodo deletes a todo by id and clears the cursor if it pointed
// there. Unknown ids are a no-op.
func (s *WorkflowStore) RemoveTodo(id string) {
	s.mu.Lock()
	missionID, exists := s.todoToMission[id]
	if !exists {
		s.mu.Unlock()
		return
	}
	list := s.todos[missionID]
	for i, cur := range list {
		if cur.ID == id {
			s.todos[missionID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	delete(s.todoToMission, id)
	if s.selectedTodoID == id {
		s.selectedTodoID = ""
	}
	s.recountLocked(missionID)
	s.mu.Unlock()

	s.publisher.Publish(events.NewChange(events.ChangeTodos, missionID, id))
}

// ApplyStepProgress patches one step of an existing todo and recomputes
// its derived aggregate status. A todo not yet present is a no-op: step
// events only patch existing entries, they never synthesize a todo.
// Returns false when nothing was applied.
func (s *WorkflowStore) ApplyStepProgress(sp *events.StepProgress) bool {
	s.mu.Lock()
	t := s.todoLocked(sp.TodoID)
	if t == nil {
		s.mu.Unlock()
		return false
	}
	applied := loom.ApplyStepProgress(t, sp.StepType, sp.Status, sp.Progress, sp.Message, sp.Notes)
	missionID := t.MissionID
	if applied {
		s.recountLocked(missionID)
	}
	s.mu.Unlock()

	if applied {
		s.publisher.Publish(events.NewChange(events.ChangeTodos, missionID, sp.TodoID))
	}
	return applied
}

// ApplyTodoReady force-sets a todo's status and readiness flags from a
// server notification, trusted verbatim without recomputation.
func (s *WorkflowStore) ApplyTodoReady(rd *events.TodoReadyData) bool {
	s.mu.Lock()
	t := s.todoLocked(rd.TodoID)
	if t == nil {
		s.mu.Unlock()
		return false
	}
	if rd.Status != "" {
		t.Status = rd.Status
	}
	t.IsBlocked = rd.IsBlocked
	t.IsReadyToStart = rd.IsReadyToStart
	missionID := t.MissionID
	s.recountLocked(missionID)
	s.mu.Unlock()

	s.publisher.Publish(events.NewChange(events.ChangeTodos, missionID, rd.TodoID))
	return true
}

// ApplyDependencyFlags updates only the derived booleans on an existing
// todo; the dependency list contents are untouched.
func (s *WorkflowStore) ApplyDependencyFlags(df *events.DependencyFlags) bool {
	s.mu.Lock()
	t := s.todoLocked(df.TodoID)
	if t == nil {
		s.mu.Unlock()
		return false
	}
	t.IsBlocked = df.IsBlocked
	t.IsReadyToStart = df.IsReadyToStart
	missionID := t.MissionID
	s.mu.Unlock()

	s.publisher.Publish(events.NewChange(events.ChangeTodos, missionID, df.TodoID))
	return true
}
