// Package buildinfo exposes build-time information injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/xpipe-go/internal/infra/buildinfo.Version=v0.3.0"
//
// It also builds the User-Agent the API client sends.
package buildinfo
