// Package loom provides the workflow entity model mirrored from the Loom
// backend: missions, todos, the six-phase step pipeline, and dependencies.
package loom

// Status represents the state of a mission or todo.
type Status string

const (
	StatusBacklog   Status = "backlog"
	StatusPending   Status = "pending"
	StatusThreading Status = "threading"
	StatusWoven     Status = "woven"
	StatusTangled   Status = "tangled"
	StatusArchived  Status = "archived"
	StatusSkipped   Status = "skipped"
	StatusDropped   Status = "dropped"
)

// statusAliases maps legacy wire values to their canonical status.
// "dropped" is deliberately not an alias of "skipped"; the backend keeps
// them distinct.
var statusAliases = map[Status]Status{
	"in_progress": StatusThreading,
	"completed":   StatusWoven,
}

// NormalizeStatus maps legacy aliases (in_progress, completed) to their
// canonical values. Unknown values pass through unchanged.
func NormalizeStatus(s Status) Status {
	if canonical, ok := statusAliases[s]; ok {
		return canonical
	}
	return s
}

// ValidStatuses returns all canonical status values.
func ValidStatuses() []Status {
	return []Status{
		StatusBacklog, StatusPending, StatusThreading, StatusWoven,
		StatusTangled, StatusArchived, StatusSkipped, StatusDropped,
	}
}

// IsValidStatus returns true if the status is a canonical status value.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusBacklog, StatusPending, StatusThreading, StatusWoven,
		StatusTangled, StatusArchived, StatusSkipped, StatusDropped:
		return true
	default:
		return false
	}
}

// IsTerminalSuccess returns true if the status indicates successfully
// finished work. Alias forms are normalized first, so "completed" counts.
func IsTerminalSuccess(s Status) bool {
	return NormalizeStatus(s) == StatusWoven
}

// IsStartable returns true if a todo in this status may begin work.
func IsStartable(s Status) bool {
	n := NormalizeStatus(s)
	return n == StatusPending || n == StatusBacklog
}

// Priority represents the urgency/importance of a mission or todo.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// ValidPriorities returns all valid priority values.
func ValidPriorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow}
}

// IsValidPriority returns true if the priority is a valid priority value.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	default:
		return false
	}
}

// PriorityOrder returns a numeric value for sorting (lower = higher priority).
func PriorityOrder(p Priority) int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Complexity represents the complexity classification of a todo.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// complexityAliases maps legacy wire values to canonical complexity.
var complexityAliases = map[Complexity]Complexity{
	"simple":  ComplexityLow,
	"complex": ComplexityHigh,
	"unknown": ComplexityMedium,
}

// NormalizeComplexity maps legacy synonyms (simple, complex, unknown) to
// their canonical values. Unknown values pass through unchanged.
func NormalizeComplexity(c Complexity) Complexity {
	if canonical, ok := complexityAliases[c]; ok {
		return canonical
	}
	return c
}

// ValidComplexities returns all canonical complexity values.
func ValidComplexities() []Complexity {
	return []Complexity{ComplexityLow, ComplexityMedium, ComplexityHigh}
}

// IsValidComplexity returns true if the complexity is a canonical value.
func IsValidComplexity(c Complexity) bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return true
	default:
		return false
	}
}

// StepType identifies one of the six fixed phases of a todo. The order
// returned by StepOrder is the canonical pipeline order.
type StepType string

const (
	StepAnalysis       StepType = "analysis"
	StepDesign         StepType = "design"
	StepImplementation StepType = "implementation"
	StepVerification   StepType = "verification"
	StepReview         StepType = "review"
	StepIntegration    StepType = "integration"
)

// StepOrder returns the six step types in canonical pipeline order.
func StepOrder() []StepType {
	return []StepType{
		StepAnalysis, StepDesign, StepImplementation,
		StepVerification, StepReview, StepIntegration,
	}
}

// StepCount is the fixed number of steps every todo carries.
const StepCount = 6

// StepIndex returns the position of a step type in the canonical order,
// or -1 for an unknown type.
func StepIndex(t StepType) int {
	for i, st := range StepOrder() {
		if st == t {
			return i
		}
	}
	return -1
}

// IsValidStepType returns true if t is one of the six phases.
func IsValidStepType(t StepType) bool {
	return StepIndex(t) >= 0
}

// StepStatus represents the state of a single step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
	StepSkipped    StepStatus = "skipped"
)

// ValidStepStatuses returns all valid step status values.
func ValidStepStatuses() []StepStatus {
	return []StepStatus{StepPending, StepInProgress, StepCompleted, StepFailed, StepSkipped}
}

// IsValidStepStatus returns true if s is a valid step status value.
func IsValidStepStatus(s StepStatus) bool {
	switch s {
	case StepPending, StepInProgress, StepCompleted, StepFailed, StepSkipped:
		return true
	default:
		return false
	}
}

// IsTerminalStep returns true if the step status is terminal.
func IsTerminalStep(s StepStatus) bool {
	return s == StepCompleted || s == StepFailed || s == StepSkipped
}

// IsCountedDone returns true if the step counts toward "N/6 steps done".
// Skipped steps count; failed steps do not.
func IsCountedDone(s StepStatus) bool {
	return s == StepCompleted || s == StepSkipped
}
