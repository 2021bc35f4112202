// Package main provides the entry point for xpipe-cli.
//
// xpipe-cli drives a running XPipe daemon over its HTTP API:
//
//   - Connection queries and GUI actions (browse, terminal, toggle, refresh)
//   - One-shot commands and an interactive line loop on a connection's shell
//   - File transfer and script upload
//
// Usage:
//
//	xpipe-cli [global flags] command [flags] [args]
//	xpipe-cli connection list --category 'Servers/**'
//	xpipe-cli shell exec web-1 -- uname -a
//	xpipe-cli -o json daemon version
//
// When a remote command exits non-zero, xpipe-cli exits with the same code.
package main
