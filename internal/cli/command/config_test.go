package command

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/xpipe-go/internal/cli/config"
	"github.com/yndnr/xpipe-go/pkg/token"
	"github.com/yndnr/xpipe-go/pkg/xpipe/xpipetest"
)

func TestConfigShow_MasksToken(t *testing.T) {
	srv := newTestServer(t)
	res := runApp(t, srv, "config", "show").mustSucceed(t)

	if strings.Contains(res.stdout, xpipetest.DefaultAPIKey) {
		t.Error("token printed in clear")
	}
	if !strings.Contains(res.stdout, "fingerprint:"+token.Fingerprint(xpipetest.DefaultAPIKey)) {
		t.Errorf("fingerprint missing: %q", res.stdout)
	}
	if !strings.Contains(res.stdout, srv.URL) {
		t.Errorf("base url missing: %q", res.stdout)
	}
}

func TestConfigPath(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cli.yaml")
	res := runRaw(t, strings.NewReader(""), appName, "--config", cfgPath, "config", "path").mustSucceed(t)

	if !strings.Contains(res.stdout, cfgPath) || !strings.Contains(res.stdout, config.KeyPath(cfgPath)) {
		t.Errorf("stdout = %q", res.stdout)
	}
}

func TestConfigSave_SealsTokenAndReloads(t *testing.T) {
	srv := newTestServer(t)
	cfgPath := filepath.Join(t.TempDir(), "cli.yaml")

	res := runRaw(t, strings.NewReader(""), appName,
		"--config", cfgPath,
		"--base-url", srv.URL,
		"--token", xpipetest.DefaultAPIKey,
		"config", "save").mustSucceed(t)
	if !strings.Contains(res.stdout, "saved "+cfgPath) {
		t.Errorf("stdout = %q", res.stdout)
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), xpipetest.DefaultAPIKey) {
		t.Error("token saved in clear")
	}

	// The saved file alone is enough to talk to the daemon.
	res = runRaw(t, strings.NewReader(""), appName, "--config", cfgPath, "daemon", "version").mustSucceed(t)
	if !strings.Contains(res.stdout, "14.0") {
		t.Errorf("stdout = %q", res.stdout)
	}
}

func TestConfigSave_VerboseIsNotPersisted(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "cli.yaml")
	runRaw(t, strings.NewReader(""), appName, "--config", cfgPath, "--verbose", "config", "save").mustSucceed(t)

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "debug") {
		t.Errorf("--verbose leaked into saved config:\n%s", data)
	}
}
