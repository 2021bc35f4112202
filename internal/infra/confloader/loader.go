package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "XPIPE_"

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	aliases   map[string]string
	filePath  string
	optional  bool
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOptionalFile makes a missing configuration file a no-op instead of an
// error.
func WithOptionalFile() Option {
	return func(l *Loader) {
		l.optional = true
	}
}

// WithEnvAlias maps an environment variable suffix (after the prefix) to a
// config key, e.g. WithEnvAlias("TOKEN", "auth.token").
func WithEnvAlias(suffix, key string) Option {
	return func(l *Loader) {
		l.aliases[strings.ToUpper(suffix)] = key
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		aliases:   make(map[string]string),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load reads the file (if any) then the environment and unmarshals the
// result into target. Flags are layered on top separately with LoadMap.
func (l *Loader) Load(target any) error {
	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			if !(l.optional && isNotExist(err)) {
				return fmt.Errorf("load config file: %w", err)
			}
		}
	}

	if err := l.LoadEnv(); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}

	return nil
}

// LoadEnv loads configuration from prefixed environment variables.
func (l *Loader) LoadEnv() error {
	provider := env.Provider(l.envPrefix, ".", l.envKey)
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// envKey turns XPIPE_SERVER__RATE_LIMIT into server.rate_limit. Aliases are
// resolved first. An empty result makes koanf skip the variable.
func (l *Loader) envKey(s string) string {
	suffix := strings.TrimPrefix(s, l.envPrefix)
	if key, ok := l.aliases[strings.ToUpper(suffix)]; ok {
		return key
	}
	if !strings.Contains(suffix, "__") {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(suffix), "__", ".")
}

// LoadMap loads configuration from a map of dotted keys (flags, tests).
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Unmarshal unmarshals the loaded configuration into the target struct
// using koanf tags.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}
