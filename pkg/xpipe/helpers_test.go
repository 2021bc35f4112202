package xpipe_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/yndnr/xpipe-go/pkg/xpipe"
	"github.com/yndnr/xpipe-go/pkg/xpipe/xpipetest"
)

var (
	idAlpha = uuid.MustParse("6b2c4f34-9d2e-4c11-8a53-0a5b0c1e0001")
	idBeta  = uuid.MustParse("6b2c4f34-9d2e-4c11-8a53-0a5b0c1e0002")
	idGamma = uuid.MustParse("6b2c4f34-9d2e-4c11-8a53-0a5b0c1e0003")
	idDelta = uuid.MustParse("6b2c4f34-9d2e-4c11-8a53-0a5b0c1e0004")
	idDown  = uuid.MustParse("6b2c4f34-9d2e-4c11-8a53-0a5b0c1e0005")
)

func seedConnections() xpipetest.Option {
	return xpipetest.WithConnections(
		xpipetest.Connection{UUID: idAlpha, Category: []string{"MyCategory"}, Name: []string{"alpha"}, Type: "sshConfigHost"},
		xpipetest.Connection{UUID: idBeta, Category: []string{"MyCategory", "Sub"}, Name: []string{"beta"}, Type: "ssh"},
		xpipetest.Connection{UUID: idGamma, Category: []string{"Other"}, Name: []string{"group", "gamma"}, Type: "docker"},
		xpipetest.Connection{UUID: idDelta, Category: []string{"Other"}, Name: []string{"delta"}, Type: "ssh", Dialect: "powershell", OSType: "Windows", OSName: "Windows 11"},
		xpipetest.Connection{UUID: idDown, Category: []string{"Broken"}, Name: []string{"down"}, Type: "ssh", Unreachable: true, RefreshFails: true},
	)
}

func newServer(t *testing.T, opts ...xpipetest.Option) *xpipetest.Server {
	t.Helper()
	return xpipetest.NewServer(t, append([]xpipetest.Option{seedConnections()}, opts...)...)
}

func newClient(t *testing.T, srv *xpipetest.Server, opts ...xpipe.Option) *xpipe.Client {
	t.Helper()
	base := []xpipe.Option{
		xpipe.WithBaseURL(srv.URL),
		xpipe.WithToken(xpipetest.DefaultAPIKey),
	}
	c, err := xpipe.New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func writeAuthFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), xpipe.DefaultAuthFile)
	writeFile(t, path, content)
	return path
}

func startShell(t *testing.T, c *xpipe.Client, id uuid.UUID) xpipe.ShellSession {
	t.Helper()
	s, err := c.ShellStart(context.Background(), id)
	if err != nil {
		t.Fatalf("ShellStart(%s) error = %v", id, err)
	}
	return s
}

func sameIDs(got, want []uuid.UUID) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
