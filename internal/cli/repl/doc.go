// Package repl implements the interactive loop behind `xpipe-cli shell repl`.
//
// Each input line is sent to the remote shell as one non-interactive
// command; there is no terminal emulation. Lines starting with ':' are REPL
// commands (:help, :history, :exit, :quit) and may be abbreviated to any
// unique prefix.
//
//   - repl.go: read/execute/print loop
//   - completer.go: REPL command lookup by prefix
//   - history.go: line history persisted between sessions
package repl
