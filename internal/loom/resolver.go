package loom

// ComputeBlocked reports whether any prerequisite snapshot is not yet a
// terminal success. This is a pure function of the cached snapshots; it
// never re-fetches prerequisite state, so staleness between explicit
// refreshes is expected.
//
// The client does no cycle detection; the backend guarantees the
// dependency graph is acyclic.
func ComputeBlocked(deps []Dependency) bool {
	for _, d := range deps {
		if !IsTerminalSuccess(d.Status) {
			return true
		}
	}
	return false
}

// ComputeReadyToStart reports whether the todo may begin work: its own
// status must be pending or backlog and it must not be blocked.
func ComputeReadyToStart(t *Todo, blocked bool) bool {
	return IsStartable(t.Status) && !blocked
}

// Refresh recomputes both derived dependency flags on the todo from its
// cached snapshots.
func Refresh(t *Todo) {
	t.IsBlocked = ComputeBlocked(t.Dependencies)
	t.IsReadyToStart = ComputeReadyToStart(t, t.IsBlocked)
}

// UnmetDependencies returns the prerequisite snapshots that are not yet
// terminal successes, for display purposes.
func UnmetDependencies(t *Todo) []Dependency {
	var unmet []Dependency
	for _, d := range t.Dependencies {
		if !IsTerminalSuccess(d.Status) {
			unmet = append(unmet, d)
		}
	}
	return unmet
}

// RecountStats rebuilds a mission's denormalized todo summary and progress
// percentage from the given todos.
func RecountStats(m *Mission, todos []*Todo) {
	var stats TodoStats
	for _, t := range todos {
		stats.Total++
		switch NormalizeStatus(t.Status) {
		case StatusBacklog:
			stats.Backlog++
		case StatusPending:
			stats.Pending++
		case StatusThreading:
			stats.Threading++
		case StatusWoven:
			stats.Woven++
		case StatusTangled:
			stats.Tangled++
		case StatusSkipped, StatusDropped:
			stats.Skipped++
		}
	}
	m.TodoStats = stats
	if stats.Total > 0 {
		m.Progress = (stats.Woven + stats.Skipped) * 100 / stats.Total
	} else {
		m.Progress = 0
	}
}
