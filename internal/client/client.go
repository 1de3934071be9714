// Package client implements the HTTP command client for the Loom backend.
// It covers the request/response half of the sync contract; the push half
// lives in internal/stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	wefterrors "github.com/randalmurphal/weft/internal/errors"
	"github.com/randalmurphal/weft/internal/loom"
)

// API is the command surface the stores and the correlator depend on.
// *Client is the production implementation; tests substitute fakes.
type API interface {
	ListMissions(ctx context.Context, workspaceID string) ([]*loom.Mission, error)
	ListTodos(ctx context.Context, missionID string) ([]*loom.Todo, error)

	CreateMission(ctx context.Context, workspaceID string, m *loom.Mission) (*loom.Mission, error)
	CreateTodo(ctx context.Context, missionID string, t *loom.Todo) (*loom.Todo, error)

	UpdateMissionStatus(ctx context.Context, missionID string, status loom.Status) error
	UpdateTodoStatus(ctx context.Context, todoID string, status loom.Status) error
	UpdateStepStatus(ctx context.Context, todoID string, stepType loom.StepType, status loom.StepStatus, notes string) error
	UpdateDependencies(ctx context.Context, todoID string, dependencyIDs []string) (*DependencyUpdate, error)

	DeleteMission(ctx context.Context, missionID string) error
	DeleteTodo(ctx context.Context, todoID string) error

	CreateAnalysisRequest(ctx context.Context, req *loom.AnalysisRequest) (*loom.AnalysisRequest, error)
	GetAnalysisRequest(ctx context.Context, requestID string) (*loom.AnalysisRequest, error)

	StartSession(ctx context.Context, todoID string) error
	StopSession(ctx context.Context, todoID string) error
}

// DependencyUpdate is the backend's response to a dependency-update
// command: refreshed snapshots plus freshly computed readiness flags.
type DependencyUpdate struct {
	Dependencies   []loom.Dependency `json:"dependencies"`
	IsBlocked      bool              `json:"is_blocked"`
	IsReadyToStart bool              `json:"is_ready_to_start"`
}

// Client talks to the Loom backend's JSON command endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the given backend base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListMissions fetches all missions in a workspace.
func (c *Client) ListMissions(ctx context.Context, workspaceID string) ([]*loom.Mission, error) {
	var out struct {
		Missions []*loom.Mission `json:"missions"`
	}
	path := "/api/workspaces/" + url.PathEscape(workspaceID) + "/missions"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	for _, m := range out.Missions {
		m.Status = loom.NormalizeStatus(m.Status)
	}
	return out.Missions, nil
}

// ListTodos fetches all todos for a mission.
func (c *Client) ListTodos(ctx context.Context, missionID string) ([]*loom.Todo, error) {
	var out struct {
		Todos []*loom.Todo `json:"todos"`
	}
	path := "/api/missions/" + url.PathEscape(missionID) + "/todos"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	for _, t := range out.Todos {
		t.Normalize()
	}
	return out.Todos, nil
}

// CreateMission creates a mission; the server assigns the id.
func (c *Client) CreateMission(ctx context.Context, workspaceID string, m *loom.Mission) (*loom.Mission, error) {
	var created loom.Mission
	path := "/api/workspaces/" + url.PathEscape(workspaceID) + "/missions"
	if err := c.do(ctx, http.MethodPost, path, m, &created); err != nil {
		return nil, err
	}
	created.Status = loom.NormalizeStatus(created.Status)
	return &created, nil
}

// CreateTodo creates a todo under a mission; the server assigns the id
// and the full step set.
func (c *Client) CreateTodo(ctx context.Context, missionID string, t *loom.Todo) (*loom.Todo, error) {
	var created loom.Todo
	path := "/api/missions/" + url.PathEscape(missionID) + "/todos"
	if err := c.do(ctx, http.MethodPost, path, t, &created); err != nil {
		return nil, err
	}
	created.Normalize()
	return &created, nil
}

// UpdateMissionStatus changes a mission's status.
func (c *Client) UpdateMissionStatus(ctx context.Context, missionID string, status loom.Status) error {
	body := map[string]any{"status": status}
	path := "/api/missions/" + url.PathEscape(missionID) + "/status"
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// UpdateTodoStatus changes a todo's status.
func (c *Client) UpdateTodoStatus(ctx context.Context, todoID string, status loom.Status) error {
	body := map[string]any{"status": status}
	path := "/api/todos/" + url.PathEscape(todoID) + "/status"
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// UpdateStepStatus changes one step's status inside a todo.
func (c *Client) UpdateStepStatus(ctx context.Context, todoID string, stepType loom.StepType, status loom.StepStatus, notes string) error {
	body := map[string]any{
		"step_type": stepType,
		"status":    status,
	}
	if notes != "" {
		body["notes"] = notes
	}
	path := "/api/todos/" + url.PathEscape(todoID) + "/steps"
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// UpdateDependencies replaces a todo's dependency list and returns the
// refreshed snapshots and flags computed by the server.
func (c *Client) UpdateDependencies(ctx context.Context, todoID string, dependencyIDs []string) (*DependencyUpdate, error) {
	body := map[string]any{"dependency_ids": dependencyIDs}
	var out DependencyUpdate
	path := "/api/todos/" + url.PathEscape(todoID) + "/dependencies"
	if err := c.do(ctx, http.MethodPut, path, body, &out); err != nil {
		return nil, err
	}
	for i := range out.Dependencies {
		out.Dependencies[i].Status = loom.NormalizeStatus(out.Dependencies[i].Status)
	}
	return &out, nil
}

// DeleteMission deletes a mission.
func (c *Client) DeleteMission(ctx context.Context, missionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/missions/"+url.PathEscape(missionID), nil, nil)
}

// DeleteTodo deletes a todo.
func (c *Client) DeleteTodo(ctx context.Context, todoID string) error {
	return c.do(ctx, http.MethodDelete, "/api/todos/"+url.PathEscape(todoID), nil, nil)
}

// CreateAnalysisRequest submits an analysis request; the server assigns
// the id and advances it via push notifications.
func (c *Client) CreateAnalysisRequest(ctx context.Context, req *loom.AnalysisRequest) (*loom.AnalysisRequest, error) {
	var created loom.AnalysisRequest
	if err := c.do(ctx, http.MethodPost, "/api/analysis-requests", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetAnalysisRequest looks up an analysis request by id.
func (c *Client) GetAnalysisRequest(ctx context.Context, requestID string) (*loom.AnalysisRequest, error) {
	var out loom.AnalysisRequest
	path := "/api/analysis-requests/" + url.PathEscape(requestID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do executes one JSON request/response round trip. Non-2xx responses
// are decoded into structured backend errors when possible.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// decodeError maps a backend error body onto a structured weft error.
func decodeError(status int, body []byte) error {
	var be struct {
		Code string `json:"code"`
		What string `json:"what"`
		Why  string `json:"why"`
	}
	if err := json.Unmarshal(body, &be); err == nil && be.What != "" {
		e := wefterrors.ErrBackendRejected(wefterrors.Code(be.Code), be.What)
		e.Why = be.Why
		return e
	}
	return fmt.Errorf("backend returned HTTP %d", status)
}
