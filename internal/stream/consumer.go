// Package stream maintains the long-lived duplex event channel to the
// Loom backend and feeds decoded notifications to the reconciler.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/randalmurphal/weft/internal/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed between server messages before the read is
	// considered dead. The server pings well inside this window.
	pongWait = 60 * time.Second

	// DefaultReconnectDelay is the fixed pause between reconnect
	// attempts after a drop. Notifications published while disconnected
	// are lost; only the next explicit fetch recovers them.
	DefaultReconnectDelay = 3 * time.Second

	// Maximum message size allowed from the server.
	maxMessageSize = 512 * 1024 // 512KB
)

// Applier consumes decoded notifications. The reconciler implements it.
type Applier interface {
	Apply(n events.Notification)
}

// Consumer owns one workspace's event subscription, including the
// reconnect loop.
type Consumer struct {
	url            string
	workspaceID    string
	applier        Applier
	logger         *slog.Logger
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithReconnectDelay overrides the fixed reconnect delay.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Consumer) {
		c.reconnectDelay = d
	}
}

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Consumer) {
		c.dialer = d
	}
}

// New creates a consumer for the given websocket URL and workspace.
func New(url, workspaceID string, applier Applier, logger *slog.Logger, opts ...Option) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Consumer{
		url:            url,
		workspaceID:    workspaceID,
		applier:        applier,
		logger:         logger,
		reconnectDelay: DefaultReconnectDelay,
		dialer:         websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run connects and pumps notifications until the context is cancelled.
// Every drop is followed by a fixed-delay redial; there is no replay, so
// anything published during the gap stays lost until the next fetch.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := c.connectAndPump(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("event channel dropped, reconnecting", "error", err, "delay", c.reconnectDelay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
	}
}

// connectAndPump dials, subscribes, and reads until the connection dies
// or the context is cancelled.
func (c *Consumer) connectAndPump(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	// Close the connection when the context is cancelled so the blocked
	// read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	if err := c.subscribe(conn); err != nil {
		return err
	}
	c.logger.Info("event channel connected", "workspace", c.workspaceID)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.PongMessage, []byte(appData))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		c.dispatch(message)
	}
}

// subscribe sends the workspace subscription frame.
func (c *Consumer) subscribe(conn *websocket.Conn) error {
	frame, err := json.Marshal(map[string]any{
		"type":         "subscribe",
		"workspace_id": c.workspaceID,
	})
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// dispatch decodes one frame and hands it to the applier. Undecodable
// frames are logged and dropped; they never kill the connection.
func (c *Consumer) dispatch(message []byte) {
	n, err := events.Decode(message)
	if err != nil {
		c.logger.Debug("dropping undecodable frame", "error", err)
		return
	}
	c.applier.Apply(n)
}
