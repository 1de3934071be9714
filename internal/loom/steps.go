package loom

import "time"

// ApplyStepProgress patches a single step on the todo and recomputes the
// todo's derived aggregate status. Sibling steps are untouched. Returns
// false if the step type is unknown to this todo.
//
// The state machine performs no autonomous transitions; this is driven
// only by progress notifications and explicit step-status commands.
func ApplyStepProgress(t *Todo, stepType StepType, status StepStatus, progress int, message, notes string) bool {
	s := t.Step(stepType)
	if s == nil {
		return false
	}

	now := time.Now()
	prev := s.Status
	s.Status = status

	switch status {
	case StepInProgress:
		if s.StartedAt == nil {
			s.StartedAt = &now
		}
		s.Progress = progress
		s.Message = message
	case StepCompleted, StepFailed, StepSkipped:
		if s.StartedAt == nil && prev == StepInProgress {
			s.StartedAt = &now
		}
		if s.CompletedAt == nil {
			s.CompletedAt = &now
		}
		// Live fields are only meaningful while in_progress.
		s.Progress = 0
		s.Message = ""
	case StepPending:
		s.StartedAt = nil
		s.CompletedAt = nil
		s.Progress = 0
		s.Message = ""
	}

	if notes != "" {
		s.Notes = notes
	}

	DeriveTodoStatus(t)
	t.UpdatedAt = now
	return true
}

// CompletedStepCount counts steps that are done for "N/6" purposes:
// completed and skipped both count, failed does not.
func CompletedStepCount(t *Todo) int {
	n := 0
	for _, s := range t.Steps {
		if IsCountedDone(s.Status) {
			n++
		}
	}
	return n
}

// DeriveTodoStatus recomputes the todo's aggregate status from its steps.
// Precedence when one change could trigger several rules: failure beats
// completion beats start.
func DeriveTodoStatus(t *Todo) {
	now := time.Now()

	for _, s := range t.Steps {
		if s.Status == StepFailed {
			t.Status = StatusTangled
			return
		}
	}

	if CompletedStepCount(t) >= len(t.Steps) && len(t.Steps) > 0 {
		t.Status = StatusWoven
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		return
	}

	for _, s := range t.Steps {
		if s.Status == StepInProgress {
			if IsStartable(t.Status) {
				t.Status = StatusThreading
				if t.StartedAt == nil {
					t.StartedAt = &now
				}
			}
			return
		}
	}
}
