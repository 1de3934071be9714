package client

import (
	"context"
	"net/http"
	"net/url"
)

// Session triggers are fire-and-forget: the engine only starts and stops
// an execution session for a todo, it never touches the session's byte
// stream (that relay is a separate concern).

// StartSession asks the backend to start an execution session for a todo.
func (c *Client) StartSession(ctx context.Context, todoID string) error {
	path := "/api/todos/" + url.PathEscape(todoID) + "/session/start"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// StopSession asks the backend to stop the execution session for a todo.
func (c *Client) StopSession(ctx context.Context, todoID string) error {
	path := "/api/todos/" + url.PathEscape(todoID) + "/session/stop"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}
