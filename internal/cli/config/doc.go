// Package config defines the xpipe-cli configuration.
//
//   - spec.go: CLIConfig (~/.xpipe/cli.yaml) and defaults
//   - loader.go: loading through confloader, saving and validation
//   - secret.go: sealing of the stored API key
//
// Values are layered default < file < XPIPE_* environment < flags.
package config
