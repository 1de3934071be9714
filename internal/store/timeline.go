package store

import (
	"sync"

	"github.com/randalmurphal/weft/internal/events"
)

// defaultTimelineCap bounds the timeline ring; the feed is a volatile
// activity trail, not an audit log.
const defaultTimelineCap = 500

// TimelineStore is an append-only, capped collection of activity events.
type TimelineStore struct {
	mu      sync.RWMutex
	entries []*events.TimelineEntry
	seen    map[string]bool
	cap     int

	publisher events.Publisher
}

// NewTimelineStore creates a timeline store with the default capacity.
func NewTimelineStore(pub events.Publisher) *TimelineStore {
	if pub == nil {
		pub = events.NewNopPublisher()
	}
	return &TimelineStore{
		seen:      make(map[string]bool),
		cap:       defaultTimelineCap,
		publisher: pub,
	}
}

// Reset clears the timeline.
func (s *TimelineStore) Reset() {
	s.mu.Lock()
	s.entries = nil
	s.seen = make(map[string]bool)
	s.mu.Unlock()
}

// Append adds an entry, deduplicating by id. When the cap is exceeded
// the oldest entries are dropped.
func (s *TimelineStore) Append(e *events.TimelineEntry) {
	s.mu.Lock()
	if e.ID != "" && s.seen[e.ID] {
		s.mu.Unlock()
		return
	}
	if e.ID != "" {
		s.seen[e.ID] = true
	}
	s.entries = append(s.entries, e)
	if len(s.entries) > s.cap {
		dropped := s.entries[:len(s.entries)-s.cap]
		for _, d := range dropped {
			delete(s.seen, d.ID)
		}
		s.entries = append([]*events.TimelineEntry(nil), s.entries[len(s.entries)-s.cap:]...)
	}
	s.mu.Unlock()

	s.publisher.Publish(events.NewChange(events.ChangeTimeline, e.MissionID, e.ID))
}

// Entries returns all timeline entries, oldest first.
func (s *TimelineStore) Entries() []*events.TimelineEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*events.TimelineEntry(nil), s.entries...)
}

// EntriesForMission returns the entries scoped to one mission.
func (s *TimelineStore) EntriesForMission(missionID string) []*events.TimelineEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*events.TimelineEntry
	for _, e := range s.entries {
		if e.MissionID == missionID {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries held.
func (s *TimelineStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
