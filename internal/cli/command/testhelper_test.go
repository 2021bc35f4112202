package command

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yndnr/xpipe-go/pkg/xpipe/xpipetest"
)

var (
	idAlpha = uuid.MustParse("0f3a3c1e-5b7d-4a59-9e52-7f1c00000001")
	idBeta  = uuid.MustParse("0f3a3c1e-5b7d-4a59-9e52-7f1c00000002")
	idGamma = uuid.MustParse("0f3a3c1e-5b7d-4a59-9e52-7f1c00000003")
)

// newTestServer starts a fake daemon with three connections. alpha has a
// file at /etc/hostname.
func newTestServer(t *testing.T, opts ...xpipetest.Option) *xpipetest.Server {
	t.Helper()
	seed := xpipetest.WithConnections(
		xpipetest.Connection{
			UUID:     idAlpha,
			Category: []string{"Servers"},
			Name:     []string{"alpha"},
			Type:     "ssh",
			Files:    map[string][]byte{"/etc/hostname": []byte("alpha-host\n")},
		},
		xpipetest.Connection{UUID: idBeta, Category: []string{"Servers", "Staging"}, Name: []string{"beta"}, Type: "ssh"},
		xpipetest.Connection{UUID: idGamma, Category: []string{"Containers"}, Name: []string{"gamma"}, Type: "docker"},
	)
	return xpipetest.NewServer(t, append([]xpipetest.Option{seed}, opts...)...)
}

type result struct {
	stdout string
	stderr string
	err    error
}

// runApp runs the CLI against srv with a config file in a temp dir.
func runApp(t *testing.T, srv *xpipetest.Server, args ...string) result {
	t.Helper()
	return runAppWithInput(t, srv, "", args...)
}

func runAppWithInput(t *testing.T, srv *xpipetest.Server, input string, args ...string) result {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "cli.yaml")
	full := []string{appName, "--config", cfgPath, "--base-url", srv.URL, "--token", xpipetest.DefaultAPIKey}
	return runRaw(t, strings.NewReader(input), append(full, args...)...)
}

// runRaw runs the CLI with exactly args.
func runRaw(t *testing.T, in io.Reader, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := App()
	app.Reader = in
	app.Writer = &stdout
	app.ErrWriter = &stderr

	err := app.RunContext(context.Background(), args)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func (r result) mustSucceed(t *testing.T) result {
	t.Helper()
	if r.err != nil {
		t.Fatalf("command failed: %v\nstdout: %s\nstderr: %s", r.err, r.stdout, r.stderr)
	}
	return r
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}
