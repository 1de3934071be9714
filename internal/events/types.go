// Package events defines the push notifications consumed from the Loom
// backend and the change feed the stores publish to UI subscribers.
package events

import (
	"encoding/json"
	"time"

	"github.com/randalmurphal/weft/internal/loom"
)

// Type identifies a push notification from the backend.
type Type string

const (
	// Mission lifecycle notifications.
	MissionCreated Type = "mission_created"
	MissionUpdated Type = "mission_updated"
	MissionDeleted Type = "mission_deleted"

	// Todo lifecycle notifications.
	TodoCreated Type = "todo_created"
	TodoUpdated Type = "todo_updated"
	TodoDeleted Type = "todo_deleted"

	// StepProgressed carries live progress for one step of one todo.
	StepProgressed Type = "step_progress"

	// TimelineAppended carries an activity/timeline entry.
	TimelineAppended Type = "timeline_event"

	// Question notifications.
	QuestionCreated Type = "question_created"
	QuestionUpdated Type = "question_updated"

	// TodoReady force-sets a todo's status and readiness flags.
	TodoReady Type = "todo_ready"
	// DependenciesChanged updates only the derived booleans, not the
	// dependency list contents.
	DependenciesChanged Type = "dependencies_changed"

	// AnalysisUpdated advances an analysis request's lifecycle.
	AnalysisUpdated Type = "analysis_update"
)

// Notification is the normalized internal form of a push notification.
// Exactly one payload field is set, matching Type.
type Notification struct {
	Type        Type
	WorkspaceID string

	Mission      *loom.Mission
	Todo         *loom.Todo
	EntityID     string // id carried by deleted notifications
	Step         *StepProgress
	Timeline     *TimelineEntry
	Question     *loom.AIQuestion
	Ready        *TodoReadyData
	Dependencies *DependencyFlags
	Analysis     *AnalysisUpdate
}

// StepProgress is the normalized step-progress payload. The wire accepts
// both a nested {type, payload} shape and a flat shape; Decode collapses
// both into this one struct.
type StepProgress struct {
	TodoID         string          `json:"todo_id"`
	StepType       loom.StepType   `json:"step_type"`
	Status         loom.StepStatus `json:"status"`
	Progress       int             `json:"progress,omitempty"`
	Message        string          `json:"message,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CompletedSteps int             `json:"completed_steps"`
	TotalSteps     int             `json:"total_steps"`
}

// TimelineEntry is a single activity event for the timeline feed.
type TimelineEntry struct {
	ID        string    `json:"id"`
	MissionID string    `json:"mission_id,omitempty"`
	TodoID    string    `json:"todo_id,omitempty"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Actor     string    `json:"actor,omitempty"`
	Time      time.Time `json:"time"`
}

// TodoReadyData force-sets a todo's status and readiness flags, trusted
// verbatim from the server without recomputation.
type TodoReadyData struct {
	TodoID         string      `json:"todo_id"`
	Status         loom.Status `json:"status"`
	IsBlocked      bool        `json:"is_blocked"`
	IsReadyToStart bool        `json:"is_ready_to_start"`
}

// DependencyFlags updates only the derived dependency booleans.
type DependencyFlags struct {
	TodoID         string `json:"todo_id"`
	IsBlocked      bool   `json:"is_blocked"`
	IsReadyToStart bool   `json:"is_ready_to_start"`
}

// AnalysisUpdate advances an analysis request, optionally carrying the
// raw result payload on completion.
type AnalysisUpdate struct {
	RequestID string              `json:"request_id"`
	Status    loom.AnalysisStatus `json:"status"`
	Analysis  json.RawMessage     `json:"analysis,omitempty"`
	Error     string              `json:"error,omitempty"`
}
