// Package logger provides structured logging for xpipe-go.
//
// It wraps log/slog:
//
//   - logger.go: Logger interface, configuration and the default logger
//   - context.go: request ID and trace ID propagation through context
//   - redact.go: masking of credentials before they reach the handler
//
// The library side of the module logs through a no-op logger unless the
// caller supplies one, so embedding the client never writes to stderr
// uninvited.
package logger
