package config

import (
	"time"

	"github.com/yndnr/xpipe-go/internal/infra/tlsroots"
	"github.com/yndnr/xpipe-go/pkg/xpipe"
)

// CLIConfig is the configuration for xpipe-cli.
type CLIConfig struct {
	Server ServerConfig `koanf:"server" yaml:"server"`
	Auth   AuthConfig   `koanf:"auth" yaml:"auth"`
	TLS    TLSConfig    `koanf:"tls" yaml:"tls,omitempty"`
	Log    LogConfig    `koanf:"log" yaml:"log"`

	// Output is the default output format: table, json or yaml.
	Output string `koanf:"output" yaml:"output"`
}

// ServerConfig locates the daemon.
type ServerConfig struct {
	URL       string        `koanf:"url" yaml:"url"`
	PTB       bool          `koanf:"ptb" yaml:"ptb,omitempty"`
	Timeout   time.Duration `koanf:"timeout" yaml:"timeout"`
	RateLimit float64       `koanf:"rate_limit" yaml:"rate_limit,omitempty"`
	Burst     int           `koanf:"burst" yaml:"burst,omitempty"`
}

// AuthConfig holds credentials. Token is sealed when saved.
type AuthConfig struct {
	Token string `koanf:"token" yaml:"token,omitempty"`
	File  string `koanf:"file" yaml:"file,omitempty"`
}

// TLSConfig configures HTTPS daemon addresses.
type TLSConfig struct {
	CAFile   string `koanf:"ca_file" yaml:"ca_file,omitempty"`
	CertFile string `koanf:"cert_file" yaml:"cert_file,omitempty"`
	KeyFile  string `koanf:"key_file" yaml:"key_file,omitempty"`
}

// LogConfig configures diagnostic logging on stderr.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: ServerConfig{
			URL:     xpipe.DefaultBaseURL,
			Timeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			File: xpipe.DefaultAuthFile,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Output: "table",
	}
}

// TLSRoots converts the TLS section for tlsroots.ClientConfig.
func (c *CLIConfig) TLSRoots() tlsroots.Config {
	return tlsroots.Config{
		CAFile:   c.TLS.CAFile,
		CertFile: c.TLS.CertFile,
		KeyFile:  c.TLS.KeyFile,
	}
}

// BaseURL returns the daemon address, honouring PTB.
func (c *CLIConfig) BaseURL() string {
	if c.Server.PTB && (c.Server.URL == "" || c.Server.URL == xpipe.DefaultBaseURL) {
		return xpipe.PTBBaseURL
	}
	return c.Server.URL
}
