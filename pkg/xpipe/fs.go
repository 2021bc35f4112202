package xpipe

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// BlobID identifies uploaded content. A blob is consumed by one FsWrite or
// FsScript call and should not be reused afterwards.
type BlobID = uuid.UUID

type fsBlobResponse struct {
	Blob BlobID `json:"blob"`
}

type fsWriteRequest struct {
	Connection uuid.UUID `json:"connection"`
	Blob       BlobID    `json:"blob"`
	Path       string    `json:"path"`
}

type fsScriptRequest struct {
	Connection uuid.UUID `json:"connection"`
	Blob       BlobID    `json:"blob"`
}

type fsScriptResponse struct {
	Path string `json:"path"`
}

type fsReadRequest struct {
	Connection uuid.UUID `json:"connection"`
	Path       string    `json:"path"`
}

// FsBlob uploads content in one request and returns its blob id. It does
// not need a shell.
func (c *Client) FsBlob(ctx context.Context, content []byte) (BlobID, error) {
	var resp fsBlobResponse
	req := request{endpoint: "/fs/blob", raw: content, rawBody: true}
	if err := c.call(ctx, req, &resp); err != nil {
		return uuid.Nil, err
	}
	c.metrics.AddBlobBytes(len(content))
	return resp.Blob, nil
}

// FsWrite writes the blob's content to path on the connection, replacing
// any existing file. A shell must be open.
func (c *Client) FsWrite(ctx context.Context, id uuid.UUID, blob BlobID, path string) error {
	if err := checkBlobAndPath(blob, path, true); err != nil {
		return err
	}
	if err := c.requireShell(id); err != nil {
		return err
	}
	req := fsWriteRequest{Connection: id, Blob: blob, Path: path}
	return c.call(ctx, request{endpoint: "/fs/write", body: req}, nil)
}

// FsScript turns the blob into an executable script at a path chosen by the
// daemon and returns that path. Quote it (Shell.Quote or QuoteForExec)
// before passing it to Exec. A shell must be open.
func (c *Client) FsScript(ctx context.Context, id uuid.UUID, blob BlobID) (string, error) {
	if err := checkBlobAndPath(blob, "", false); err != nil {
		return "", err
	}
	if err := c.requireShell(id); err != nil {
		return "", err
	}
	var resp fsScriptResponse
	req := fsScriptRequest{Connection: id, Blob: blob}
	if err := c.call(ctx, request{endpoint: "/fs/script", body: req}, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

// FsRead returns the raw bytes of a remote file. No decoding is applied.
// A shell must be open.
func (c *Client) FsRead(ctx context.Context, id uuid.UUID, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrInvalidArgument.WithDetails("empty path")
	}
	if err := c.requireShell(id); err != nil {
		return nil, err
	}
	data, err := c.callRaw(ctx, request{endpoint: "/fs/read", body: fsReadRequest{Connection: id, Path: path}})
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func checkBlobAndPath(blob BlobID, path string, needPath bool) error {
	if blob == uuid.Nil {
		return ErrInvalidArgument.WithDetails("nil blob id")
	}
	if needPath && strings.TrimSpace(path) == "" {
		return ErrInvalidArgument.WithDetails("empty path")
	}
	return nil
}
