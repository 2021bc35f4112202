package xpipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a client error with a stable code.
type Error struct {
	Code    string // e.g. "XP-SHELL-4090"
	Message string
	Details string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details string) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, Cause: e.Cause}
}

// WithCause returns a copy of the error wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, Cause: cause}
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	// ErrCredentialsMissing means neither an API key nor an auth file is available.
	ErrCredentialsMissing = newError("XP-AUTH-4010", "no credentials available")

	// ErrAuthenticationFailed means the daemon rejected the credentials or
	// the session token.
	ErrAuthenticationFailed = newError("XP-AUTH-4011", "authentication failed")

	// ErrConnectionNotFound means the connection UUID is unknown to the daemon.
	ErrConnectionNotFound = newError("XP-CONN-4040", "connection not found")

	// ErrSessionNotOpen means no shell session is open for the connection.
	ErrSessionNotOpen = newError("XP-SHELL-4090", "shell session not open")

	// ErrShellStartFailed means the daemon could not establish the shell.
	ErrShellStartFailed = newError("XP-SHELL-5020", "shell start failed")

	// ErrInvalidArgument is returned by local argument checks before any
	// request is sent.
	ErrInvalidArgument = newError("XP-ARG-1001", "invalid argument")
)

// ErrorCode returns the code of the first *Error in err's chain.
func ErrorCode(err error) string {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Code
	}
	return ""
}

// APIError is a non-success HTTP response from the daemon.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string // "message" field of the error body, if any
	Body       []byte
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(string(e.Body))
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("xpipe: %s: status %d: %s", e.Endpoint, e.StatusCode, msg)
}

// Is reports 401 and 403 responses as ErrAuthenticationFailed.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code != ErrAuthenticationFailed.Code {
		return false
	}
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func newAPIError(endpoint string, status int, body []byte) *APIError {
	e := &APIError{Endpoint: endpoint, StatusCode: status, Body: body}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Message
	}
	return e
}

func isStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// notFound maps a 404 from the daemon to ErrConnectionNotFound.
func notFound(err error, details string) error {
	if isStatus(err, http.StatusNotFound) {
		return ErrConnectionNotFound.WithDetails(details).WithCause(err)
	}
	return err
}
