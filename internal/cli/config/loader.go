package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/xpipe-go/internal/infra/confloader"
	"github.com/yndnr/xpipe-go/internal/telemetry/logger"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".xpipe", "cli.yaml")
	}
	return filepath.Join(homeDir, ".xpipe", "cli.yaml")
}

func newLoader(path string) *confloader.Loader {
	return confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOptionalFile(),
		confloader.WithEnvAlias("TOKEN", "auth.token"),
		confloader.WithEnvAlias("AUTH_FILE", "auth.file"),
		confloader.WithEnvAlias("BASE_URL", "server.url"),
		confloader.WithEnvAlias("OUTPUT", "output"),
	)
}

// Load reads the config file at path (missing is fine), then XPIPE_*
// environment variables, then overrides, which are dotted keys such as
// "server.url" taken from command-line flags. A sealed token is opened with
// the key stored next to the file.
func Load(path string, overrides map[string]any) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := Default()
	l := newLoader(path)
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if err := l.LoadMap(overrides); err != nil {
			return nil, err
		}
		if err := l.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("apply flags: %w", err)
		}
	}

	token, err := openToken(KeyPath(path), cfg.Auth.Token)
	if err != nil {
		return nil, err
	}
	cfg.Auth.Token = token
	return cfg, nil
}

// Save writes cfg to path as YAML with mode 0600, sealing the API key.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	out := *cfg
	if out.Auth.Token != "" {
		sealed, err := sealToken(KeyPath(path), out.Auth.Token)
		if err != nil {
			return err
		}
		out.Auth.Token = sealed
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Verify checks cfg for values the CLI cannot use.
func Verify(cfg *CLIConfig) error {
	var errs []error
	if cfg.Server.URL == "" && !cfg.Server.PTB {
		errs = append(errs, errors.New("server.url is empty"))
	}
	if cfg.Server.Timeout < 0 {
		errs = append(errs, fmt.Errorf("server.timeout %s is negative", cfg.Server.Timeout))
	}
	if cfg.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit %v is negative", cfg.Server.RateLimit))
	}
	switch cfg.Output {
	case "table", "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("output %q is not one of table, json, yaml", cfg.Output))
	}
	if !logger.ValidLevel(cfg.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is invalid", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", cfg.Log.Format))
	}
	if (cfg.TLS.CertFile == "") != (cfg.TLS.KeyFile == "") {
		errs = append(errs, errors.New("tls.cert_file and tls.key_file must be set together"))
	}
	return errors.Join(errs...)
}
