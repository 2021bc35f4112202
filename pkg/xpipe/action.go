package xpipe

import (
	"context"

	"github.com/google/uuid"
)

type directoryRequest struct {
	Connection uuid.UUID `json:"connection"`
	Directory  string    `json:"directory,omitempty"`
}

type toggleRequest struct {
	Connection uuid.UUID `json:"connection"`
	State      bool      `json:"state"`
}

// Browse opens the connection in the desktop file browser, starting in dir
// when given.
func (c *Client) Browse(ctx context.Context, id uuid.UUID, dir string) error {
	return c.action(ctx, "/connection/browse", id, directoryRequest{Connection: id, Directory: dir})
}

// Terminal opens a desktop terminal on the connection, starting in dir when
// given.
func (c *Client) Terminal(ctx context.Context, id uuid.UUID, dir string) error {
	return c.action(ctx, "/connection/terminal", id, directoryRequest{Connection: id, Directory: dir})
}

// Toggle starts or stops a connection-level resource such as a tunnel. It is
// unrelated to shell sessions.
func (c *Client) Toggle(ctx context.Context, id uuid.UUID, active bool) error {
	return c.action(ctx, "/connection/toggle", id, toggleRequest{Connection: id, State: active})
}

// Refresh re-validates the connection the way the daemon does when it is
// created. A failed validation is returned as *APIError.
func (c *Client) Refresh(ctx context.Context, id uuid.UUID) error {
	return c.action(ctx, "/connection/refresh", id, connectionRequest{Connection: id})
}

func (c *Client) action(ctx context.Context, endpoint string, id uuid.UUID, body any) error {
	if id == uuid.Nil {
		return ErrInvalidArgument.WithDetails("nil connection UUID")
	}
	err := c.call(ctx, request{endpoint: endpoint, body: body}, nil)
	return notFound(err, id.String())
}
