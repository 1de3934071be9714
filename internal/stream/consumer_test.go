package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/weft/internal/events"
)

// recordingApplier collects applied notifications.
type recordingApplier struct {
	mu      sync.Mutex
	applied []events.Notification
}

func (a *recordingApplier) Apply(n events.Notification) {
	a.mu.Lock()
	a.applied = append(a.applied, n)
	a.mu.Unlock()
}

func (a *recordingApplier) snapshot() []events.Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]events.Notification(nil), a.applied...)
}

func (a *recordingApplier) waitFor(t *testing.T, count int) []events.Notification {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := a.snapshot(); len(got) >= count {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d notifications, have %d", count, len(a.snapshot()))
	return nil
}

var upgrader = websocket.Upgrader{}

// newEventServer starts a websocket server that checks the subscribe
// frame and then sends the given raw frames.
func newEventServer(t *testing.T, frames []string) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub struct {
			Type        string `json:"type"`
			WorkspaceID string `json:"workspace_id"`
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != "subscribe" || sub.WorkspaceID != "WS-001" {
			t.Errorf("unexpected subscribe frame: %s", msg)
			return
		}

		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL
}

func TestConsumerDispatchesFrames(t *testing.T) {
	srv, wsURL := newEventServer(t, []string{
		`{"topic": "mission", "data": {"type": "CREATED", "payload": {"id": "MSN-001", "title": "m", "status": "backlog"}}}`,
		`{"topic": "step", "data": {"todo_id": "TODO-001", "step_type": "design", "status": "completed"}}`,
	})
	defer srv.Close()

	applier := &recordingApplier{}
	c := New(wsURL, "WS-001", applier, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	got := applier.waitFor(t, 2)
	assert.Equal(t, events.MissionCreated, got[0].Type)
	assert.Equal(t, events.StepProgressed, got[1].Type)
}

func TestConsumerDropsUndecodableFrames(t *testing.T) {
	srv, wsURL := newEventServer(t, []string{
		`not json at all`,
		`{"topic": "metrics", "data": {}}`,
		`{"topic": "todo", "data": {"type": "CREATED", "payload": {"id": "TODO-001", "mission_id": "MSN-001", "title": "t", "status": "pending"}}}`,
	})
	defer srv.Close()

	applier := &recordingApplier{}
	c := New(wsURL, "WS-001", applier, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	got := applier.waitFor(t, 1)
	require.Len(t, got, 1, "bad frames are dropped, good ones still flow")
	assert.Equal(t, events.TodoCreated, got[0].Type)
}

func TestConsumerReconnects(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		dials++
		n := dials
		mu.Unlock()
		if n == 1 {
			// Drop the first connection immediately after the subscribe.
			_, _, _ = conn.ReadMessage()
			conn.Close()
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(
			`{"topic": "mission", "data": {"type": "CREATED", "payload": {"id": "MSN-001", "title": "m", "status": "backlog"}}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	applier := &recordingApplier{}
	c := New(wsURL, "WS-001", applier, nil, WithReconnectDelay(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	got := applier.waitFor(t, 1)
	assert.Equal(t, events.MissionCreated, got[0].Type)
	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, dials, 2, "the consumer redialed after the drop")
}

func TestConsumerStopsOnContextCancel(t *testing.T) {
	srv, wsURL := newEventServer(t, nil)
	defer srv.Close()

	c := New(wsURL, "WS-001", &recordingApplier{}, nil, WithReconnectDelay(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
