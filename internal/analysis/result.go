package analysis

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	wefterrors "github.com/randalmurphal/weft/internal/errors"
	"github.com/randalmurphal/weft/internal/loom"
)

// Result is the normalized form of a completed analysis payload.
type Result struct {
	MissionID      string          `json:"mission_id"`
	SuggestedTodos []SuggestedTodo `json:"suggested_todos"`
	UncertainItems []UncertainItem `json:"uncertain_items"`
}

// SuggestedTodo is one work item proposed by the analysis.
type SuggestedTodo struct {
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	Priority         loom.Priority   `json:"priority,omitempty"`
	Complexity       loom.Complexity `json:"complexity,omitempty"`
	EstimatedMinutes int             `json:"estimated_minutes,omitempty"`
	IsUncertain      bool            `json:"is_uncertain,omitempty"`
}

// UncertainItem is a clarification the analysis could not resolve on its
// own. TodoTitle links it to the suggestion it concerns.
type UncertainItem struct {
	TodoTitle string   `json:"todo_title,omitempty"`
	Question  string   `json:"question"`
	Context   string   `json:"context,omitempty"`
	Options   []string `json:"options,omitempty"`
}

// ParseResult normalizes a raw completion payload. The payload comes
// from an LLM-backed service and is treated as hostile: missing fields
// default, unknown fields are ignored, and anything without at least one
// titled suggestion or one uncertain question is rejected.
func ParseResult(missionID string, raw json.RawMessage) (*Result, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil, wefterrors.ErrAnalysisParse(missionID, nil)
	}

	root := gjson.ParseBytes(raw)
	result := &Result{MissionID: missionID}

	root.Get("suggested_todos").ForEach(func(_, item gjson.Result) bool {
		title := item.Get("title").String()
		if title == "" {
			return true // skip untitled suggestions
		}
		result.SuggestedTodos = append(result.SuggestedTodos, SuggestedTodo{
			Title:            title,
			Description:      item.Get("description").String(),
			Priority:         loom.Priority(item.Get("priority").String()),
			Complexity:       loom.NormalizeComplexity(loom.Complexity(item.Get("complexity").String())),
			EstimatedMinutes: int(item.Get("estimated_minutes").Int()),
			IsUncertain:      item.Get("is_uncertain").Bool(),
		})
		return true
	})

	root.Get("uncertain_items").ForEach(func(_, item gjson.Result) bool {
		question := item.Get("question").String()
		if question == "" {
			return true
		}
		ui := UncertainItem{
			TodoTitle: item.Get("todo_title").String(),
			Question:  question,
			Context:   item.Get("context").String(),
		}
		item.Get("options").ForEach(func(_, opt gjson.Result) bool {
			ui.Options = append(ui.Options, opt.String())
			return true
		})
		result.UncertainItems = append(result.UncertainItems, ui)
		return true
	})

	if len(result.SuggestedTodos) == 0 && len(result.UncertainItems) == 0 {
		return nil, wefterrors.ErrAnalysisParse(missionID, nil)
	}
	return result, nil
}
