package xpipe

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yndnr/xpipe-go/internal/telemetry/metric"
)

// ShellSession describes an open shell on a connection.
type ShellSession struct {
	Connection uuid.UUID    `json:"connection" yaml:"connection"`
	Dialect    ShellDialect `json:"dialect" yaml:"dialect"`
	OSType     string       `json:"osType" yaml:"os_type"`
	OSName     string       `json:"osName" yaml:"os_name"`
	TTYState   string       `json:"ttyState,omitempty" yaml:"tty_state,omitempty"`
	Temp       string       `json:"temp,omitempty" yaml:"temp,omitempty"`
	StartedAt  time.Time    `json:"startedAt" yaml:"started_at"`
}

// Family returns the quoting family of the session's shell. Unrecognised
// dialects fall back on the OS type: cmd on Windows, POSIX elsewhere.
func (s ShellSession) Family() DialectFamily {
	if f, ok := s.Dialect.Family(); ok {
		return f
	}
	if strings.EqualFold(s.OSType, "windows") {
		return FamilyCmd
	}
	return FamilyPosix
}

// ExecResult is the outcome of a command. A non-zero ExitCode is a normal
// result, not an error.
type ExecResult struct {
	ExitCode int    `json:"exitCode" yaml:"exit_code"`
	Stdout   string `json:"stdout" yaml:"stdout"`
	Stderr   string `json:"stderr" yaml:"stderr"`
}

// Success reports whether the command exited with 0.
func (r ExecResult) Success() bool {
	return r.ExitCode == 0
}

type connectionRequest struct {
	Connection uuid.UUID `json:"connection"`
}

type shellStartResponse struct {
	ShellDialect ShellDialect `json:"shellDialect"`
	OSType       string       `json:"osType"`
	OSName       string       `json:"osName"`
	TTYState     string       `json:"ttyState"`
	Temp         string       `json:"temp"`
}

type shellExecRequest struct {
	Connection uuid.UUID `json:"connection"`
	Command    string    `json:"command"`
}

// ShellStart opens a shell on the connection. Starting an already open
// session issues a new start and replaces the tracked session.
func (c *Client) ShellStart(ctx context.Context, id uuid.UUID) (ShellSession, error) {
	if id == uuid.Nil {
		return ShellSession{}, ErrInvalidArgument.WithDetails("nil connection UUID")
	}

	var resp shellStartResponse
	err := c.call(ctx, request{endpoint: "/shell/start", body: connectionRequest{Connection: id}}, &resp)
	if err != nil {
		return ShellSession{}, shellStartError(err, id)
	}

	s := &ShellSession{
		Connection: id,
		Dialect:    resp.ShellDialect,
		OSType:     resp.OSType,
		OSName:     resp.OSName,
		TTYState:   resp.TTYState,
		Temp:       resp.Temp,
		StartedAt:  time.Now(),
	}
	if _, replaced := c.shells.Swap(id, s); replaced {
		c.metrics.ShellStopped()
	}
	c.metrics.ShellStarted()
	c.log.Info("shell started",
		"connection", id.String(),
		"dialect", s.Dialect.String(),
		"os", s.OSName,
	)
	return *s, nil
}

func shellStartError(err error, id uuid.UUID) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || errors.Is(err, ErrAuthenticationFailed) {
		return err
	}
	if apiErr.StatusCode == http.StatusNotFound {
		return ErrConnectionNotFound.WithDetails(id.String()).WithCause(err)
	}
	return ErrShellStartFailed.WithDetails(id.String()).WithCause(err)
}

// ShellExec runs command in the open session and returns its exit code and
// output exactly as reported by the daemon.
func (c *Client) ShellExec(ctx context.Context, id uuid.UUID, command string) (ExecResult, error) {
	if strings.TrimSpace(command) == "" {
		return ExecResult{}, ErrInvalidArgument.WithDetails("empty command")
	}
	if err := c.requireShell(id); err != nil {
		return ExecResult{}, err
	}

	var res ExecResult
	req := shellExecRequest{Connection: id, Command: command}
	if err := c.call(ctx, request{endpoint: "/shell/exec", body: req}, &res); err != nil {
		c.metrics.RecordCommand(metric.OutcomeError)
		return ExecResult{}, err
	}
	if res.Success() {
		c.metrics.RecordCommand(metric.OutcomeSuccess)
	} else {
		c.metrics.RecordCommand(metric.OutcomeNonZero)
	}
	return res, nil
}

// ShellStop closes the session. It returns ErrSessionNotOpen if none is
// open. The session is forgotten locally even when the daemon call fails.
func (c *Client) ShellStop(ctx context.Context, id uuid.UUID) error {
	if _, ok := c.shells.Pop(id); !ok {
		return ErrSessionNotOpen.WithDetails(id.String())
	}
	c.metrics.ShellStopped()

	err := c.call(ctx, request{endpoint: "/shell/stop", body: connectionRequest{Connection: id}}, nil)
	if err != nil {
		c.log.Warn("shell stop failed", "connection", id.String(), "error", err)
		return err
	}
	c.log.Info("shell stopped", "connection", id.String())
	return nil
}

func (c *Client) requireShell(id uuid.UUID) error {
	if !c.shells.Has(id) {
		return ErrSessionNotOpen.WithDetails(id.String())
	}
	return nil
}

// Shell is a handle on an open session.
type Shell struct {
	c       *Client
	session ShellSession
}

// OpenShell starts a shell and returns a handle on it.
func (c *Client) OpenShell(ctx context.Context, id uuid.UUID) (*Shell, error) {
	s, err := c.ShellStart(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Shell{c: c, session: s}, nil
}

// WithShell starts a shell, runs fn and stops the shell on every exit path,
// including a panic in fn. The stop uses a context detached from ctx's
// cancellation. Errors from fn and from the stop are joined.
func (c *Client) WithShell(ctx context.Context, id uuid.UUID, fn func(*Shell) error) (err error) {
	sh, err := c.OpenShell(ctx, id)
	if err != nil {
		return err
	}
	defer func() {
		stopErr := sh.Close(context.WithoutCancel(ctx))
		if errors.Is(stopErr, ErrSessionNotOpen) {
			stopErr = nil
		}
		err = errors.Join(err, stopErr)
	}()
	return fn(sh)
}

// Connection returns the connection the shell runs on.
func (s *Shell) Connection() uuid.UUID {
	return s.session.Connection
}

// Session returns the session metadata reported at start.
func (s *Shell) Session() ShellSession {
	return s.session
}

// Exec runs a command.
func (s *Shell) Exec(ctx context.Context, command string) (ExecResult, error) {
	return s.c.ShellExec(ctx, s.session.Connection, command)
}

// Read returns the raw content of a remote file.
func (s *Shell) Read(ctx context.Context, path string) ([]byte, error) {
	return s.c.FsRead(ctx, s.session.Connection, path)
}

// Write materialises an uploaded blob at path.
func (s *Shell) Write(ctx context.Context, blob BlobID, path string) error {
	return s.c.FsWrite(ctx, s.session.Connection, blob, path)
}

// Script materialises an uploaded blob as an executable script and returns
// its remote path, unquoted.
func (s *Shell) Script(ctx context.Context, blob BlobID) (string, error) {
	return s.c.FsScript(ctx, s.session.Connection, blob)
}

// WriteBytes uploads content and writes it to path.
func (s *Shell) WriteBytes(ctx context.Context, content []byte, path string) error {
	blob, err := s.c.FsBlob(ctx, content)
	if err != nil {
		return err
	}
	return s.Write(ctx, blob, path)
}

// RunScript uploads content as a script and executes it.
func (s *Shell) RunScript(ctx context.Context, content []byte) (ExecResult, error) {
	blob, err := s.c.FsBlob(ctx, content)
	if err != nil {
		return ExecResult{}, err
	}
	path, err := s.Script(ctx, blob)
	if err != nil {
		return ExecResult{}, err
	}
	return s.Exec(ctx, s.Quote(path))
}

// Quote quotes path for execution in this shell's dialect.
func (s *Shell) Quote(path string) string {
	return QuoteForExec(s.session.Family(), path)
}

// Close stops the shell.
func (s *Shell) Close(ctx context.Context) error {
	return s.c.ShellStop(ctx, s.session.Connection)
}
