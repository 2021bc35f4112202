package xpipe

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Future is the pending result of an AsyncClient call.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func runAsync[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn()
	}()
	return f
}

func runAsyncErr(fn func() error) *Future[struct{}] {
	return runAsync(func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await waits for the result or for ctx to end. Abandoning a future does not
// cancel the underlying call; cancel the context given to the call instead.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the call completes.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// AsyncClient exposes the Client operations as futures. Each call runs the
// blocking operation in its own goroutine, so results and errors are the
// same as the blocking form.
type AsyncClient struct {
	c *Client
}

// Async returns the future-based view of c. Both views share session token
// and shell table.
func (c *Client) Async() *AsyncClient {
	return &AsyncClient{c: c}
}

// Blocking returns the underlying client.
func (a *AsyncClient) Blocking() *Client {
	return a.c
}

// Login runs Client.Login.
func (a *AsyncClient) Login(ctx context.Context) *Future[struct{}] {
	return runAsyncErr(func() error { return a.c.Login(ctx) })
}

// Reauthenticate runs Client.Reauthenticate.
func (a *AsyncClient) Reauthenticate(ctx context.Context) *Future[struct{}] {
	return runAsyncErr(func() error { return a.c.Reauthenticate(ctx) })
}

// Query runs Client.Query.
func (a *AsyncClient) Query(ctx context.Context, f QueryFilter) *Future[[]uuid.UUID] {
	return runAsync(func() ([]uuid.UUID, error) { return a.c.Query(ctx, f) })
}

// Info runs Client.Info.
func (a *AsyncClient) Info(ctx context.Context, ids []uuid.UUID) *Future[[]ConnectionDetail] {
	return runAsync(func() ([]ConnectionDetail, error) { return a.c.Info(ctx, ids) })
}

// List runs Client.List.
func (a *AsyncClient) List(ctx context.Context, f QueryFilter) *Future[[]ConnectionDetail] {
	return runAsync(func() ([]ConnectionDetail, error) { return a.c.List(ctx, f) })
}

// Add runs Client.Add.
func (a *AsyncClient) Add(ctx context.Context, name string, data json.RawMessage, validate bool) *Future[uuid.UUID] {
	return runAsync(func() (uuid.UUID, error) { return a.c.Add(ctx, name, data, validate) })
}

// Remove runs Client.Remove.
func (a *AsyncClient) Remove(ctx context.Context, ids []uuid.UUID) *Future[struct{}] {
	return runAsyncErr(func() error { return a.c.Remove(ctx, ids) })
}

// Browse runs Client.Browse.
func (a *AsyncClient) Browse(ctx context.Context, id uuid.UUID, dir string) *Future[struct{}] {
	return runAsyncErr(func() error { return a.c.Browse(ctx, id, dir) })
}

// Terminal runs Client.Terminal.
func (a *AsyncClient) Terminal(ctx context.Context, id uuid.UUID, dir string) *Future[struct{}] {
	return runAsyncErr(func() error { return a.c.Terminal(ctx, id, dir) })
}

// Toggle runs Client.Toggle.
func (a *AsyncClient) Toggle(ctx context.Context, id uuid.UUID, active bool) *Future[struct{}] {
	return runAsyncErr(func() error { return a.c.Toggle(ctx, id, active) })
}

// Refresh runs Client.Refresh.
func (a *AsyncClient) Refresh(ctx context.Context, id uuid.UUID) *Future[struct{}] {
	return runAsyncErr(func() error { return a.c.Refresh(ctx, id) })
}

// ShellStart runs Client.ShellStart.
func (a *AsyncClient) ShellStart(ctx context.Context, id uuid.UUID) *Future[ShellSession] {
	return runAsync(func() (ShellSession, error) { return a.c.ShellStart(ctx, id) })
}

// ShellExec runs Client.ShellExec. Concurrent futures on the same
// connection complete in no particular order.
func (a *AsyncClient) ShellExec(ctx context.Context, id uuid.UUID, command string) *Future[ExecResult] {
	return runAsync(func() (ExecResult, error) { return a.c.ShellExec(ctx, id, command) })
}

// ShellStop runs Client.ShellStop.
func (a *AsyncClient) ShellStop(ctx context.Context, id uuid.UUID) *Future[struct{}] {
	return runAsyncErr(func() error { return a.c.ShellStop(ctx, id) })
}

// WithShell runs Client.WithShell asynchronously. fn itself uses the
// blocking Shell handle.
func (a *AsyncClient) WithShell(ctx context.Context, id uuid.UUID, fn func(*Shell) error) *Future[struct{}] {
	return runAsyncErr(func() error { return a.c.WithShell(ctx, id, fn) })
}

// FsBlob runs Client.FsBlob.
func (a *AsyncClient) FsBlob(ctx context.Context, content []byte) *Future[BlobID] {
	return runAsync(func() (BlobID, error) { return a.c.FsBlob(ctx, content) })
}

// FsWrite runs Client.FsWrite.
func (a *AsyncClient) FsWrite(ctx context.Context, id uuid.UUID, blob BlobID, path string) *Future[struct{}] {
	return runAsyncErr(func() error { return a.c.FsWrite(ctx, id, blob, path) })
}

// FsScript runs Client.FsScript.
func (a *AsyncClient) FsScript(ctx context.Context, id uuid.UUID, blob BlobID) *Future[string] {
	return runAsync(func() (string, error) { return a.c.FsScript(ctx, id, blob) })
}

// FsRead runs Client.FsRead.
func (a *AsyncClient) FsRead(ctx context.Context, id uuid.UUID, path string) *Future[[]byte] {
	return runAsync(func() ([]byte, error) { return a.c.FsRead(ctx, id, path) })
}

// DaemonVersion runs Client.DaemonVersion.
func (a *AsyncClient) DaemonVersion(ctx context.Context) *Future[DaemonVersion] {
	return runAsync(func() (DaemonVersion, error) { return a.c.DaemonVersion(ctx) })
}

// Close runs Client.Close.
func (a *AsyncClient) Close(ctx context.Context) *Future[struct{}] {
	return runAsyncErr(func() error { return a.c.Close(ctx) })
}
