// Package analysis tracks in-flight AI analysis requests and turns their
// results into new workflow graph nodes. Requests are correlated to
// asynchronous completions by request id; materialization of suggestions
// into real todos is a separate, user-confirmed step.
package analysis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/weft/internal/client"
	"github.com/randalmurphal/weft/internal/events"
	"github.com/randalmurphal/weft/internal/loom"
	"github.com/randalmurphal/weft/internal/store"
)

// Correlator owns the AnalysisRequest records. It only writes into the
// workflow store at materialization time, through the store's own
// command surface.
type Correlator struct {
	mu      sync.RWMutex
	pending map[string]*loom.AnalysisRequest // keyed by request id
	active  map[string]string                // mission id -> request id
	results map[string]*Result               // keyed by mission id

	api       client.API
	workflows *store.WorkflowStore
	questions *store.QuestionStore
	publisher events.Publisher
	logger    *slog.Logger
}

// NewCorrelator creates an analysis correlator.
func NewCorrelator(api client.API, workflows *store.WorkflowStore, questions *store.QuestionStore, pub events.Publisher, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = events.NewNopPublisher()
	}
	return &Correlator{
		pending:   make(map[string]*loom.AnalysisRequest),
		active:    make(map[string]string),
		results:   make(map[string]*Result),
		api:       api,
		workflows: workflows,
		questions: questions,
		publisher: pub,
		logger:    logger,
	}
}

// Request creates an analysis request on the backend and registers it as
// the active request for its mission. A second request for the same
// mission overwrites the tracked handle but does not cancel the first
// server-side.
func (c *Correlator) Request(ctx context.Context, workspaceID, missionID, title, description string) (*loom.AnalysisRequest, error) {
	req := &loom.AnalysisRequest{
		WorkspaceID:        workspaceID,
		MissionID:          missionID,
		MissionTitle:       title,
		MissionDescription: description,
		Status:             loom.AnalysisQueued,
	}

	created, err := c.api.CreateAnalysisRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if created.Status == "" {
		created.Status = loom.AnalysisQueued
	}

	c.mu.Lock()
	c.pending[created.ID] = created
	if created.MissionID != "" {
		c.active[created.MissionID] = created.ID
	}
	c.mu.Unlock()

	c.publisher.Publish(events.NewChange(events.ChangeAnalysis, created.MissionID, created.ID))
	return created, nil
}

// HandleUpdate applies a pushed analysis notification to the tracked
// request. Unknown request ids are a no-op.
func (c *Correlator) HandleUpdate(au *events.AnalysisUpdate) {
	c.mu.Lock()
	req, ok := c.pending[au.RequestID]
	if !ok {
		c.mu.Unlock()
		c.logger.Debug("analysis update for unknown request", "request", au.RequestID)
		return
	}

	req.Status = au.Status
	req.UpdatedAt = time.Now()
	missionID := req.MissionID

	switch au.Status {
	case loom.AnalysisCompleted:
		result, err := ParseResult(missionID, au.Analysis)
		switch {
		case err != nil:
			// The request keeps its terminal status; there is simply
			// nothing to materialize.
			c.logger.Warn("analysis result unparseable", "request", au.RequestID, "error", err)
		case missionID == "":
			// Results are keyed by mission. A mission-less request has
			// nowhere to store its result without colliding with other
			// mission-less requests, so it is dropped.
			c.logger.Debug("dropping result for mission-less analysis request", "request", au.RequestID)
		default:
			c.results[missionID] = result
		}
		delete(c.pending, au.RequestID)
		if c.active[missionID] == au.RequestID {
			delete(c.active, missionID)
		}
	case loom.AnalysisFailed:
		// Left in pending so the failure stays queryable; the caller
		// clears it explicitly.
		req.Error = au.Error
	}
	c.mu.Unlock()

	c.publisher.Publish(events.NewChange(events.ChangeAnalysis, missionID, au.RequestID))
}

// Clear drops a (typically failed) request from the pending and active
// sets.
func (c *Correlator) Clear(requestID string) {
	c.mu.Lock()
	req, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
		if c.active[req.MissionID] == requestID {
			delete(c.active, req.MissionID)
		}
	}
	c.mu.Unlock()
}

// Pending returns the tracked request by id, or nil.
func (c *Correlator) Pending(requestID string) *loom.AnalysisRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending[requestID]
}

// ActiveFor returns the active request for a mission, or nil.
func (c *Correlator) ActiveFor(missionID string) *loom.AnalysisRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id, ok := c.active[missionID]; ok {
		return c.pending[id]
	}
	return nil
}

// ResultFor returns the stored parsed result for a mission, or nil.
func (c *Correlator) ResultFor(missionID string) *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.results[missionID]
}

// ClearResult drops the stored result for a mission, typically after
// materialization.
func (c *Correlator) ClearResult(missionID string) {
	c.mu.Lock()
	delete(c.results, missionID)
	c.mu.Unlock()
}
