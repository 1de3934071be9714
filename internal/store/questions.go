package store

import (
	"log/slog"
	"sync"

	"github.com/randalmurphal/weft/internal/events"
	"github.com/randalmurphal/weft/internal/loom"
)

// QuestionStore holds the AI questions raised against todos. Questions
// arrive either directly from the backend or synthesized client-side
// from an analysis request's uncertain items.
type QuestionStore struct {
	mu        sync.RWMutex
	questions []*loom.AIQuestion
	index     map[string]*loom.AIQuestion
	panelOpen bool

	publisher events.Publisher
	logger    *slog.Logger
}

// NewQuestionStore creates an empty question store.
func NewQuestionStore(pub events.Publisher, logger *slog.Logger) *QuestionStore {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = events.NewNopPublisher()
	}
	return &QuestionStore{
		index:     make(map[string]*loom.AIQuestion),
		publisher: pub,
		logger:    logger,
	}
}

// Reset clears all questions and closes the panel.
func (s *QuestionStore) Reset() {
	s.mu.Lock()
	s.questions = nil
	s.index = make(map[string]*loom.AIQuestion)
	s.panelOpen = false
	s.mu.Unlock()
}

// Upsert inserts or replaces a question by id.
func (s *QuestionStore) Upsert(q *loom.AIQuestion) {
	s.mu.Lock()
	if _, exists := s.index[q.ID]; exists {
		for i, cur := range s.questions {
			if cur.ID == q.ID {
				s.questions[i] = q
				break
			}
		}
	} else {
		s.questions = append(s.questions, q)
	}
	s.index[q.ID] = q
	s.mu.Unlock()

	s.publisher.Publish(events.NewChange(events.ChangeQuestions, q.MissionID, q.ID))
}

// AddBatch inserts a batch of questions and opens the question panel.
// This is the one proactive side effect the engine has beyond data
// mutation: uncertain materialized todos demand the user's attention.
func (s *QuestionStore) AddBatch(questions []*loom.AIQuestion) {
	if len(questions) == 0 {
		return
	}

	s.mu.Lock()
	for _, q := range questions {
		if _, exists := s.index[q.ID]; exists {
			continue
		}
		s.questions = append(s.questions, q)
		s.index[q.ID] = q
	}
	s.panelOpen = true
	s.mu.Unlock()

	s.publisher.Publish(events.NewChange(events.ChangeQuestions, questions[0].MissionID, ""))
	s.publisher.Publish(events.NewChange(events.ChangeQuestionPanel, questions[0].MissionID, ""))
}

// Answer marks a question answered with the given answer text.
func (s *QuestionStore) Answer(id, answer string) bool {
	s.mu.Lock()
	q, ok := s.index[id]
	if ok {
		q.Status = loom.QuestionAnswered
		q.Answer = answer
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	s.publisher.Publish(events.NewChange(events.ChangeQuestions, q.MissionID, id))
	return true
}

// Question returns a question by id, or nil.
func (s *QuestionStore) Question(id string) *loom.AIQuestion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index[id]
}

// Questions returns all questions.
func (s *QuestionStore) Questions() []*loom.AIQuestion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*loom.AIQuestion(nil), s.questions...)
}

// PendingForTodo returns unanswered questions targeting a todo.
func (s *QuestionStore) PendingForTodo(todoID string) []*loom.AIQuestion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*loom.AIQuestion
	for _, q := range s.questions {
		if q.TodoID == todoID && q.Status == loom.QuestionPending {
			out = append(out, q)
		}
	}
	return out
}

// PendingForMission returns unanswered questions under a mission.
func (s *QuestionStore) PendingForMission(missionID string) []*loom.AIQuestion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*loom.AIQuestion
	for _, q := range s.questions {
		if q.MissionID == missionID && q.Status == loom.QuestionPending {
			out = append(out, q)
		}
	}
	return out
}

// PanelOpen reports whether the question panel was opened by a batch add.
func (s *QuestionStore) PanelOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.panelOpen
}

// ClosePanel closes the question panel.
func (s *QuestionStore) ClosePanel() {
	s.mu.Lock()
	s.panelOpen = false
	s.mu.Unlock()
}
