package loom

import (
	"fmt"
	"time"
)

// Mission represents a top-level goal composed of todos.
type Mission struct {
	ID          string     `json:"id" yaml:"id"`
	WorkspaceID string     `json:"workspace_id" yaml:"workspace_id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Status      Status     `json:"status" yaml:"status"`
	Priority    Priority   `json:"priority,omitempty" yaml:"priority,omitempty"`
	TodoStats   TodoStats  `json:"todo_stats" yaml:"todo_stats"`
	Progress    int        `json:"progress" yaml:"progress"`
	Tags        []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty" yaml:"archived_at,omitempty"`
}

// TodoStats is the denormalized summary of a mission's todos by status.
type TodoStats struct {
	Total     int `json:"total" yaml:"total"`
	Backlog   int `json:"backlog,omitempty" yaml:"backlog,omitempty"`
	Pending   int `json:"pending,omitempty" yaml:"pending,omitempty"`
	Threading int `json:"threading,omitempty" yaml:"threading,omitempty"`
	Woven     int `json:"woven,omitempty" yaml:"woven,omitempty"`
	Tangled   int `json:"tangled,omitempty" yaml:"tangled,omitempty"`
	Skipped   int `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Todo represents an individually schedulable unit of work with a fixed
// six-phase step pipeline.
type Todo struct {
	ID               string       `json:"id" yaml:"id"`
	MissionID        string       `json:"mission_id" yaml:"mission_id"`
	Title            string       `json:"title" yaml:"title"`
	Description      string       `json:"description,omitempty" yaml:"description,omitempty"`
	Status           Status       `json:"status" yaml:"status"`
	Priority         Priority     `json:"priority,omitempty" yaml:"priority,omitempty"`
	Complexity       Complexity   `json:"complexity,omitempty" yaml:"complexity,omitempty"`
	EstimatedMinutes int          `json:"estimated_minutes,omitempty" yaml:"estimated_minutes,omitempty"`
	ActualMinutes    int          `json:"actual_minutes,omitempty" yaml:"actual_minutes,omitempty"`
	OrderIndex       int          `json:"order_index" yaml:"order_index"`
	Steps            []*Step      `json:"steps" yaml:"steps"`
	Dependencies     []Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// IsBlocked and IsReadyToStart are derived from the dependency
	// snapshots (or force-set by server events), never persisted.
	IsBlocked      bool `json:"is_blocked" yaml:"is_blocked"`
	IsReadyToStart bool `json:"is_ready_to_start" yaml:"is_ready_to_start"`

	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Step is one of the six fixed phases of a todo.
type Step struct {
	ID     string     `json:"id" yaml:"id"`
	TodoID string     `json:"todo_id" yaml:"todo_id"`
	Type   StepType   `json:"step_type" yaml:"step_type"`
	Status StepStatus `json:"status" yaml:"status"`
	Notes  string     `json:"notes,omitempty" yaml:"notes,omitempty"`

	// Progress (0-100) and Message are live-execution fields, meaningful
	// only while the step is in_progress.
	Progress int    `json:"progress,omitempty" yaml:"progress,omitempty"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Dependency is the dependent-side snapshot of a prerequisite todo.
// Title and Status are denormalized copies refreshed only by explicit
// dependency updates or reconciled events; staleness between refreshes
// is expected.
type Dependency struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Status Status `json:"status" yaml:"status"`
}

// QuestionStatus represents the state of an AI question.
type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionAnswered QuestionStatus = "answered"
)

// AIQuestion is a clarification raised against a todo, answerable by a user.
type AIQuestion struct {
	ID     string `json:"id" yaml:"id"`
	TodoID string `json:"todo_id" yaml:"todo_id"`
	// MissionID may be empty on questions pushed directly by the backend;
	// the reconciler resolves it from the target todo before the question
	// is stored.
	MissionID string         `json:"mission_id,omitempty" yaml:"mission_id,omitempty"`
	Question  string         `json:"question" yaml:"question"`
	Context   string         `json:"context,omitempty" yaml:"context,omitempty"`
	Status    QuestionStatus `json:"status" yaml:"status"`
	Options   []string       `json:"options,omitempty" yaml:"options,omitempty"`
	Answer    string         `json:"answer,omitempty" yaml:"answer,omitempty"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
}

// AnalysisStatus represents the lifecycle state of an analysis request.
type AnalysisStatus string

const (
	AnalysisQueued     AnalysisStatus = "queued"
	AnalysisProcessing AnalysisStatus = "processing"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisFailed     AnalysisStatus = "failed"
)

// IsTerminalAnalysis returns true if the analysis status is terminal.
func IsTerminalAnalysis(s AnalysisStatus) bool {
	return s == AnalysisCompleted || s == AnalysisFailed
}

// AnalysisRequest is an asynchronous backend job that proposes new todos
// and questions for a mission.
type AnalysisRequest struct {
	ID                 string         `json:"id" yaml:"id"`
	WorkspaceID        string         `json:"workspace_id" yaml:"workspace_id"`
	MissionID          string         `json:"mission_id,omitempty" yaml:"mission_id,omitempty"`
	MissionTitle       string         `json:"mission_title,omitempty" yaml:"mission_title,omitempty"`
	MissionDescription string         `json:"mission_description,omitempty" yaml:"mission_description,omitempty"`
	Status             AnalysisStatus `json:"status" yaml:"status"`
	Error              string         `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt          time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" yaml:"updated_at"`
}

// NewMission creates a mission in backlog with default priority.
func NewMission(id, workspaceID, title string) *Mission {
	now := time.Now()
	return &Mission{
		ID:          id,
		WorkspaceID: workspaceID,
		Title:       title,
		Status:      StatusBacklog,
		Priority:    PriorityNormal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewTodo creates a todo with all six steps pending in canonical order.
// A todo never exists without its full step set.
func NewTodo(id, missionID, title string) *Todo {
	now := time.Now()
	t := &Todo{
		ID:         id,
		MissionID:  missionID,
		Title:      title,
		Status:     StatusPending,
		Priority:   PriorityNormal,
		Complexity: ComplexityMedium,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	t.Steps = defaultSteps(id)
	return t
}

// defaultSteps builds the six pending steps for a todo.
func defaultSteps(todoID string) []*Step {
	steps := make([]*Step, 0, StepCount)
	for _, st := range StepOrder() {
		steps = append(steps, &Step{
			ID:     fmt.Sprintf("%s:%s", todoID, st),
			TodoID: todoID,
			Type:   st,
			Status: StepPending,
		})
	}
	return steps
}

// NormalizeSteps repairs a step list received from the wire so the
// six-phase invariant holds: exactly one step per phase, in canonical
// order. Duplicates are dropped (first occurrence wins) and missing
// phases are synthesized as pending.
func NormalizeSteps(todoID string, steps []*Step) []*Step {
	byType := make(map[StepType]*Step, StepCount)
	for _, s := range steps {
		if s == nil || !IsValidStepType(s.Type) {
			continue
		}
		if _, seen := byType[s.Type]; seen {
			continue
		}
		byType[s.Type] = s
	}

	out := make([]*Step, 0, StepCount)
	for _, st := range StepOrder() {
		if s, ok := byType[st]; ok {
			if s.TodoID == "" {
				s.TodoID = todoID
			}
			out = append(out, s)
			continue
		}
		out = append(out, &Step{
			ID:     fmt.Sprintf("%s:%s", todoID, st),
			TodoID: todoID,
			Type:   st,
			Status: StepPending,
		})
	}
	return out
}

// Normalize canonicalizes a todo received from the wire: status and
// complexity aliases are resolved, the step set is repaired, and the
// derived dependency flags are recomputed.
func (t *Todo) Normalize() {
	t.Status = NormalizeStatus(t.Status)
	t.Complexity = NormalizeComplexity(t.Complexity)
	for i := range t.Dependencies {
		t.Dependencies[i].Status = NormalizeStatus(t.Dependencies[i].Status)
	}
	t.Steps = NormalizeSteps(t.ID, t.Steps)
	Refresh(t)
}

// Step returns the step of the given type, or nil if the type is unknown.
func (t *Todo) Step(st StepType) *Step {
	for _, s := range t.Steps {
		if s.Type == st {
			return s
		}
	}
	return nil
}

// Clone returns a deep copy of the todo. Used for pre-mutation snapshots
// so a failed delete can restore the exact prior record.
func (t *Todo) Clone() *Todo {
	cp := *t
	cp.Steps = make([]*Step, len(t.Steps))
	for i, s := range t.Steps {
		sc := *s
		cp.Steps[i] = &sc
	}
	cp.Dependencies = append([]Dependency(nil), t.Dependencies...)
	if t.StartedAt != nil {
		at := *t.StartedAt
		cp.StartedAt = &at
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

// Clone returns a deep copy of the mission.
func (m *Mission) Clone() *Mission {
	cp := *m
	cp.Tags = append([]string(nil), m.Tags...)
	if m.ArchivedAt != nil {
		at := *m.ArchivedAt
		cp.ArchivedAt = &at
	}
	return &cp
}
