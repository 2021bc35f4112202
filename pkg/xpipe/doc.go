// Package xpipe is a client for the XPipe daemon API.
//
// A Client authenticates lazily with either an explicit API key or the
// content of the local auth file, then exposes the connection catalog,
// non-interactive shell sessions, blob based file transfer and the desktop
// actions of the daemon:
//
//	c, err := xpipe.New(xpipe.WithToken(os.Getenv("XPIPE_TOKEN")))
//	if err != nil {
//		return err
//	}
//	ids, err := c.Query(ctx, xpipe.QueryFilter{Types: "ssh*"})
//	...
//	err = c.WithShell(ctx, ids[0], func(sh *xpipe.Shell) error {
//		res, err := sh.Exec(ctx, "uname -a")
//		...
//	})
//
// Shell sessions are tracked per client. Exec, Read, Write and Script fail
// with ErrSessionNotOpen unless ShellStart succeeded for the connection and
// ShellStop has not been called since.
//
// Every Client method blocks until the daemon answers. Async returns a view
// of the same client whose methods return futures instead.
package xpipe
