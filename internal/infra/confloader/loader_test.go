package confloader

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Server struct {
		URL       string  `koanf:"url"`
		RateLimit float64 `koanf:"rate_limit"`
		PTB       bool    `koanf:"ptb"`
	} `koanf:"server"`
	Auth struct {
		Token string `koanf:"token"`
		File  string `koanf:"file"`
	} `koanf:"auth"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewLoader_Defaults(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}
	if len(l.aliases) != 0 {
		t.Errorf("aliases = %v, want none", l.aliases)
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  url: "http://localhost:21722"
  ptb: true
`)
	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	var cfg testConfig
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.Server.URL != "http://localhost:21722" {
		t.Errorf("server.url = %q", cfg.Server.URL)
	}
	if !cfg.Server.PTB {
		t.Error("server.ptb should be true")
	}
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") error = %v", err)
	}
	if err := l.LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() should fail for a missing file")
	}
}

func TestLoader_Load_OptionalFile(t *testing.T) {
	var cfg testConfig
	err := NewLoader(WithConfigFile("/nonexistent/config.yaml"), WithOptionalFile()).Load(&cfg)
	if err != nil {
		t.Fatalf("Load() with optional missing file error = %v", err)
	}

	err = NewLoader(WithConfigFile("/nonexistent/config.yaml")).Load(&cfg)
	if err == nil {
		t.Error("Load() with required missing file should fail")
	}
}

func TestLoader_LoadEnv_DoubleUnderscoreNesting(t *testing.T) {
	t.Setenv("XPIPE_SERVER__RATE_LIMIT", "2.5")
	t.Setenv("XPIPE_UNRELATED", "ignored")

	l := NewLoader()
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.RateLimit != 2.5 {
		t.Errorf("RateLimit = %v, want 2.5", cfg.Server.RateLimit)
	}
	if key := l.envKey("XPIPE_UNRELATED"); key != "" {
		t.Errorf("envKey(XPIPE_UNRELATED) = %q, variable without nesting or alias should be skipped", key)
	}
}

func TestLoader_LoadEnv_Aliases(t *testing.T) {
	t.Setenv("XPIPE_TOKEN", "env-key")
	t.Setenv("XPIPE_BASE_URL", "http://10.0.0.5:21721")

	l := NewLoader(
		WithEnvAlias("TOKEN", "auth.token"),
		WithEnvAlias("base_url", "server.url"),
	)
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.Token != "env-key" {
		t.Errorf("Auth.Token = %q", cfg.Auth.Token)
	}
	if cfg.Server.URL != "http://10.0.0.5:21721" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
}

func TestLoader_Priority(t *testing.T) {
	path := writeConfig(t, `
server:
  url: "http://from-file:1"
auth:
  file: "/from/file"
`)
	t.Setenv("XPIPE_SERVER__URL", "http://from-env:2")

	l := NewLoader(WithConfigFile(path))
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.URL != "http://from-env:2" {
		t.Errorf("env should override file, got %q", cfg.Server.URL)
	}

	if err := l.LoadMap(map[string]any{"server.url": "http://from-flag:3"}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.Server.URL != "http://from-flag:3" {
		t.Errorf("flag should override env, got %q", cfg.Server.URL)
	}
	if cfg.Auth.File != "/from/file" {
		t.Errorf("untouched file value lost, got %q", cfg.Auth.File)
	}
}

func TestLoader_Defaults_Preserved(t *testing.T) {
	var cfg testConfig
	cfg.Server.URL = "http://localhost:21721"

	if err := NewLoader().Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.URL != "http://localhost:21721" {
		t.Errorf("default overwritten: %q", cfg.Server.URL)
	}
}

func TestMapProvider_ReadBytes(t *testing.T) {
	if _, err := (mapProvider{}).ReadBytes(); err != ErrReadBytesNotSupported {
		t.Errorf("ReadBytes() error = %v", err)
	}
}
