package events

import (
	"sync"
	"time"
)

// GlobalMissionID is the special mission ID for subscribing to changes
// across all missions.
const GlobalMissionID = "*"

// ChangeType identifies what part of the mirrored state changed.
type ChangeType string

const (
	// ChangeMissions indicates the mission collection changed.
	ChangeMissions ChangeType = "missions"
	// ChangeTodos indicates a mission's todo collection changed.
	ChangeTodos ChangeType = "todos"
	// ChangeSelection indicates a cursor (selected mission/todo) moved.
	ChangeSelection ChangeType = "selection"
	// ChangeQuestions indicates the question collection changed.
	ChangeQuestions ChangeType = "questions"
	// ChangeQuestionPanel indicates the question panel was opened.
	ChangeQuestionPanel ChangeType = "question_panel"
	// ChangeTimeline indicates a timeline entry was appended.
	ChangeTimeline ChangeType = "timeline"
	// ChangeAnalysis indicates an analysis request advanced.
	ChangeAnalysis ChangeType = "analysis"
)

// Change is published to UI subscribers whenever the mirrored state
// mutates, so presentation layers can re-render without polling.
type Change struct {
	Type      ChangeType `json:"type"`
	MissionID string     `json:"mission_id,omitempty"`
	EntityID  string     `json:"entity_id,omitempty"`
	Time      time.Time  `json:"time"`
}

// NewChange creates a change with the current timestamp.
func NewChange(changeType ChangeType, missionID, entityID string) Change {
	return Change{
		Type:      changeType,
		MissionID: missionID,
		EntityID:  entityID,
		Time:      time.Now(),
	}
}

// Publisher defines the interface for change publishing.
type Publisher interface {
	// Publish sends a change to all subscribers of its mission.
	Publish(change Change)
	// Subscribe returns a channel receiving changes for the given
	// mission. Use GlobalMissionID ("*") to receive all changes.
	Subscribe(missionID string) <-chan Change
	// Unsubscribe removes a subscription channel.
	Unsubscribe(missionID string, ch <-chan Change)
	// Close shuts down the publisher and all subscriptions.
	Close()
}

// MemoryPublisher is an in-memory implementation of Publisher.
type MemoryPublisher struct {
	subscribers map[string][]chan Change
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

// PublisherOption configures a MemoryPublisher.
type PublisherOption func(*MemoryPublisher)

// WithBufferSize sets the channel buffer size for subscribers.
func WithBufferSize(size int) PublisherOption {
	return func(p *MemoryPublisher) {
		p.bufferSize = size
	}
}

// NewMemoryPublisher creates a new in-memory publisher.
func NewMemoryPublisher(opts ...PublisherOption) *MemoryPublisher {
	p := &MemoryPublisher{
		subscribers: make(map[string][]chan Change),
		bufferSize:  100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends a change to subscribers of its mission and to global
// subscribers. Non-blocking: subscribers with full buffers are skipped.
func (p *MemoryPublisher) Publish(change Change) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	for _, ch := range p.subscribers[change.MissionID] {
		select {
		case ch <- change:
		default:
		}
	}

	if change.MissionID != GlobalMissionID {
		for _, ch := range p.subscribers[GlobalMissionID] {
			select {
			case ch <- change:
			default:
			}
		}
	}
}

// Subscribe returns a channel that receives changes for the given mission.
func (p *MemoryPublisher) Subscribe(missionID string) <-chan Change {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		ch := make(chan Change)
		close(ch)
		return ch
	}

	ch := make(chan Change, p.bufferSize)
	p.subscribers[missionID] = append(p.subscribers[missionID], ch)
	return ch
}

// Unsubscribe removes a subscription channel.
func (p *MemoryPublisher) Unsubscribe(missionID string, ch <-chan Change) {
	p.mu.Lock()
	defer p.mu.Unlock()

	subs := p.subscribers[missionID]
	for i, sub := range subs {
		if sub == ch {
			p.subscribers[missionID] = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}

	if len(p.subscribers[missionID]) == 0 {
		delete(p.subscribers, missionID)
	}
}

// Close shuts down the publisher and closes all subscription channels.
func (p *MemoryPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	for missionID, subs := range p.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(p.subscribers, missionID)
	}
}

// SubscriberCount returns the number of subscribers for a mission.
func (p *MemoryPublisher) SubscriberCount(missionID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers[missionID])
}

// NopPublisher is a no-op publisher for tests or when the change feed
// is disabled.
type NopPublisher struct{}

// Publish does nothing.
func (p *NopPublisher) Publish(change Change) {}

// Subscribe returns a closed channel.
func (p *NopPublisher) Subscribe(missionID string) <-chan Change {
	ch := make(chan Change)
	close(ch)
	return ch
}

// Unsubscribe does nothing.
func (p *NopPublisher) Unsubscribe(missionID string, ch <-chan Change) {}

// Close does nothing.
func (p *NopPublisher) Close() {}

// NewNopPublisher creates a no-op publisher.
func NewNopPublisher() *NopPublisher {
	return &NopPublisher{}
}
