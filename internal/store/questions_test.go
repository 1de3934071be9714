package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/weft/internal/loom"
)

func question(id, todoID, missionID string) *loom.AIQuestion {
	return &loom.AIQuestion{
		ID:        id,
		TodoID:    todoID,
		MissionID: missionID,
		Question:  "clarify " + id,
		Status:    loom.QuestionPending,
	}
}

func TestQuestionUpsert(t *testing.T) {
	s := NewQuestionStore(nil, nil)

	s.Upsert(question("Q-001", "TODO-001", "MSN-001"))
	s.Upsert(question("Q-001", "TODO-001", "MSN-001"))

	assert.Len(t, s.Questions(), 1)
	assert.NotNil(t, s.Question("Q-001"))
}

func TestQuestionAddBatchOpensPanel(t *testing.T) {
	s := NewQuestionStore(nil, nil)
	require.False(t, s.PanelOpen())

	s.AddBatch([]*loom.AIQuestion{
		question("Q-001", "TODO-001", "MSN-001"),
		question("Q-002", "TODO-002", "MSN-001"),
	})

	assert.Len(t, s.Questions(), 2)
	assert.True(t, s.PanelOpen(), "a batch of new questions demands attention")
}

func TestQuestionAddBatchEmptyDoesNotOpenPanel(t *testing.T) {
	s := NewQuestionStore(nil, nil)

	s.AddBatch(nil)

	assert.False(t, s.PanelOpen())
}

func TestQuestionAddBatchDedupes(t *testing.T) {
	s := NewQuestionStore(nil, nil)
	s.Upsert(question("Q-001", "TODO-001", "MSN-001"))

	s.AddBatch([]*loom.AIQuestion{
		question("Q-001", "TODO-001", "MSN-001"),
		question("Q-002", "TODO-001", "MSN-001"),
	})

	assert.Len(t, s.Questions(), 2)
}

func TestQuestionAnswer(t *testing.T) {
	s := NewQuestionStore(nil, nil)
	s.Upsert(question("Q-001", "TODO-001", "MSN-001"))

	require.True(t, s.Answer("Q-001", "use the staging region"))

	q := s.Question("Q-001")
	assert.Equal(t, loom.QuestionAnswered, q.Status)
	assert.Equal(t, "use the staging region", q.Answer)
	assert.Empty(t, s.PendingForTodo("TODO-001"))
}

func TestQuestionAnswerUnknown(t *testing.T) {
	s := NewQuestionStore(nil, nil)

	assert.False(t, s.Answer("Q-404", "whatever"))
}

func TestQuestionPendingScopes(t *testing.T) {
	s := NewQuestionStore(nil, nil)
	s.Upsert(question("Q-001", "TODO-001", "MSN-001"))
	s.Upsert(question("Q-002", "TODO-002", "MSN-001"))
	s.Upsert(question("Q-003", "TODO-003", "MSN-002"))

	assert.Len(t, s.PendingForTodo("TODO-001"), 1)
	assert.Len(t, s.PendingForMission("MSN-001"), 2)
	assert.Len(t, s.PendingForMission("MSN-002"), 1)
}

func TestQuestionClosePanel(t *testing.T) {
	s := NewQuestionStore(nil, nil)
	s.AddBatch([]*loom.AIQuestion{question("Q-001", "TODO-001", "MSN-001")})

	s.ClosePanel()

	assert.False(t, s.PanelOpen())
}

func TestQuestionReset(t *testing.T) {
	s := NewQuestionStore(nil, nil)
	s.AddBatch([]*loom.AIQuestion{question("Q-001", "TODO-001", "MSN-001")})

	s.Reset()

	assert.Empty(t, s.Questions())
	assert.False(t, s.PanelOpen())
}
