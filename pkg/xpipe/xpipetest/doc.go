// Package xpipetest provides an in-process fake of the XPipe daemon API for
// tests.
//
// The fake keeps connections, shell sessions, blobs and per-connection files
// in memory. Commands are interpreted by a tiny shell that understands echo,
// exit, true, false, cat and running uploaded scripts by path; everything
// else exits with 127.
package xpipetest
