package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/weft/internal/loom"
)

// Materialize turns the selected suggestions into real todos under the
// mission, one sequential create per suggestion. A single failed create
// is logged and skipped, never fatal to the batch. Questions for
// uncertain todos are synthesized and pushed as one batch, which opens
// the question panel.
//
// Returns the todos that were actually created.
func (c *Correlator) Materialize(ctx context.Context, missionID string, selected []SuggestedTodo) []*loom.Todo {
	result := c.ResultFor(missionID)

	var created []*loom.Todo
	var synthesized []*loom.AIQuestion

	for _, suggestion := range selected {
		draft := &loom.Todo{
			MissionID:        missionID,
			Title:            suggestion.Title,
			Description:      suggestion.Description,
			Priority:         suggestion.Priority,
			Complexity:       suggestion.Complexity,
			EstimatedMinutes: suggestion.EstimatedMinutes,
			Status:           loom.StatusPending,
		}

		todo, err := c.workflows.CreateTodo(ctx, missionID, draft)
		if err != nil {
			c.logger.Warn("materialize skipped failed suggestion", "title", suggestion.Title, "error", err)
			continue
		}
		created = append(created, todo)

		if suggestion.IsUncertain {
			synthesized = append(synthesized, c.questionsFor(result, suggestion, todo)...)
		}
	}

	if len(synthesized) > 0 {
		c.questions.AddBatch(synthesized)
	}
	return created
}

// questionsFor synthesizes the AI questions tied to one uncertain todo
// from the result's uncertain items. Items naming the suggestion's title
// match first; items with no title at all attach to any uncertain todo.
func (c *Correlator) questionsFor(result *Result, suggestion SuggestedTodo, todo *loom.Todo) []*loom.AIQuestion {
	var items []UncertainItem
	if result != nil {
		for _, item := range result.UncertainItems {
			if item.TodoTitle == suggestion.Title || item.TodoTitle == "" {
				items = append(items, item)
			}
		}
	}

	questions := make([]*loom.AIQuestion, 0, len(items))
	for _, item := range items {
		questions = append(questions, &loom.AIQuestion{
			ID:        uuid.NewString(),
			TodoID:    todo.ID,
			MissionID: todo.MissionID,
			Question:  item.Question,
			Context:   item.Context,
			Options:   item.Options,
			Status:    loom.QuestionPending,
			CreatedAt: time.Now(),
		})
	}
	return questions
}
