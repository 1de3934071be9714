// Package reconcile applies push notifications to the mirrored state.
// Notifications may arrive out of order and duplicated; every apply is
// idempotent and an event referencing an unknown entity is a no-op,
// never an error.
package reconcile

import (
	"log/slog"

	"github.com/randalmurphal/weft/internal/analysis"
	"github.com/randalmurphal/weft/internal/events"
	"github.com/randalmurphal/weft/internal/store"
)

// Reconciler routes normalized notifications into the stores and the
// analysis correlator. It is the only consumer of the push stream and
// never bypasses the stores' mutation surface.
type Reconciler struct {
	workflows  *store.WorkflowStore
	questions  *store.QuestionStore
	timeline   *store.TimelineStore
	correlator *analysis.Correlator
	logger     *slog.Logger
}

// New creates a reconciler over the given containers. The timeline
// store and correlator may be nil when those feeds are unused.
func New(workflows *store.WorkflowStore, questions *store.QuestionStore, timeline *store.TimelineStore, correlator *analysis.Correlator, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		workflows:  workflows,
		questions:  questions,
		timeline:   timeline,
		correlator: correlator,
		logger:     logger,
	}
}

// Apply applies one notification. It never returns an error: every
// failure mode degrades to "the cache reflects best-known state" with a
// log line.
func (r *Reconciler) Apply(n events.Notification) {
	switch n.Type {
	case events.MissionCreated, events.MissionUpdated:
		// Created and updated collapse into an upsert: dedupe by id,
		// replace the full record, last write wins by arrival order.
		r.workflows.UpsertMission(n.Mission)

	case events.MissionDeleted:
		r.workflows.RemoveMission(n.EntityID)

	case events.TodoCreated, events.TodoUpdated:
		r.workflows.UpsertTodo(n.Todo)

	case events.TodoDeleted:
		r.workflows.RemoveTodo(n.EntityID)

	case events.StepProgressed:
		// Patch only if the todo is present; a step event alone never
		// synthesizes a todo.
		if !r.workflows.ApplyStepProgress(n.Step) {
			r.logger.Debug("step progress for absent todo", "todo", n.Step.TodoID, "step", n.Step.StepType)
		}

	case events.TodoReady:
		if !r.workflows.ApplyTodoReady(n.Ready) {
			r.logger.Debug("ready event for absent todo", "todo", n.Ready.TodoID)
		}

	case events.DependenciesChanged:
		if !r.workflows.ApplyDependencyFlags(n.Dependencies) {
			r.logger.Debug("dependency flags for absent todo", "todo", n.Dependencies.TodoID)
		}

	case events.QuestionCreated, events.QuestionUpdated:
		if r.questions != nil {
			// Backend-pushed questions may carry only a todo id; resolve
			// the mission from the mirrored todo so mission-scoped
			// queries see them.
			if n.Question.MissionID == "" && n.Question.TodoID != "" {
				if todo := r.workflows.Todo(n.Question.TodoID); todo != nil {
					n.Question.MissionID = todo.MissionID
				}
			}
			r.questions.Upsert(n.Question)
		}

	case events.TimelineAppended:
		if r.timeline != nil {
			r.timeline.Append(n.Timeline)
		}

	case events.AnalysisUpdated:
		if r.correlator != nil {
			r.correlator.HandleUpdate(n.Analysis)
		}

	default:
		r.logger.Debug("dropping unhandled notification", "type", string(n.Type))
	}
}
