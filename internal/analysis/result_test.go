package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wefterrors "github.com/randalmurphal/weft/internal/errors"
	"github.com/randalmurphal/weft/internal/loom"
)

func TestParseResult(t *testing.T) {
	raw := []byte(`{
		"suggested_todos": [
			{"title": "Add retry logic", "description": "wrap the client", "priority": "high", "complexity": "simple", "estimated_minutes": 45},
			{"title": "Document the API", "is_uncertain": true}
		],
		"uncertain_items": [
			{"todo_title": "Document the API", "question": "Which format?", "options": ["openapi", "markdown"]}
		]
	}`)

	result, err := ParseResult("MSN-001", raw)

	require.NoError(t, err)
	assert.Equal(t, "MSN-001", result.MissionID)
	require.Len(t, result.SuggestedTodos, 2)
	assert.Equal(t, "Add retry logic", result.SuggestedTodos[0].Title)
	assert.Equal(t, loom.ComplexityLow, result.SuggestedTodos[0].Complexity, "legacy synonym normalized")
	assert.Equal(t, 45, result.SuggestedTodos[0].EstimatedMinutes)
	assert.True(t, result.SuggestedTodos[1].IsUncertain)
	require.Len(t, result.UncertainItems, 1)
	assert.Equal(t, []string{"openapi", "markdown"}, result.UncertainItems[0].Options)
}

func TestParseResultSkipsUntitledSuggestions(t *testing.T) {
	raw := []byte(`{"suggested_todos": [{"description": "no title"}, {"title": "Keep me"}]}`)

	result, err := ParseResult("MSN-001", raw)

	require.NoError(t, err)
	require.Len(t, result.SuggestedTodos, 1)
	assert.Equal(t, "Keep me", result.SuggestedTodos[0].Title)
}

func TestParseResultSkipsQuestionlessItems(t *testing.T) {
	raw := []byte(`{
		"suggested_todos": [{"title": "Keep me"}],
		"uncertain_items": [{"todo_title": "Keep me"}]
	}`)

	result, err := ParseResult("MSN-001", raw)

	require.NoError(t, err)
	assert.Empty(t, result.UncertainItems)
}

func TestParseResultIgnoresUnknownFields(t *testing.T) {
	raw := []byte(`{"model": "whatever", "suggested_todos": [{"title": "x", "confidence": 0.93}]}`)

	result, err := ParseResult("MSN-001", raw)

	require.NoError(t, err)
	assert.Len(t, result.SuggestedTodos, 1)
}

func TestParseResultRejectsEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"nil payload", nil},
		{"invalid json", []byte(`{broken`)},
		{"no usable content", []byte(`{"suggested_todos": [], "uncertain_items": []}`)},
		{"only untitled", []byte(`{"suggested_todos": [{"description": "x"}]}`)},
	}

	for _, tt := range tests {
		_, err := ParseResult("MSN-001", tt.raw)
		require.Error(t, err, tt.name)
		var werr *wefterrors.WeftError
		require.ErrorAs(t, err, &werr, tt.name)
		assert.Equal(t, wefterrors.CodeAnalysisParse, werr.Code, tt.name)
	}
}
