// Package command provides CLI command definitions for xpipe-cli.
//
// Commands are built with urfave/cli/v2:
//
//   - root.go: App, global flags, client setup and teardown
//   - connection.go: catalog queries and GUI actions
//   - shell.go: one-shot exec and the interactive line loop
//   - fs.go: file read, write and script upload
//   - daemon.go: daemon version
//   - config.go: local configuration
//
// Every action writes to c.App.Writer and c.App.ErrWriter so the whole
// application can be driven from tests.
package command
