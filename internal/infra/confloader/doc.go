// Package confloader loads layered configuration with koanf.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (XPIPE_ prefix)
//  3. Configuration file (YAML)
//  4. Defaults already present in the target struct
//
// Environment keys nest on a double underscore so that single underscores
// survive in key names: XPIPE_SERVER__RATE_LIMIT maps to server.rate_limit.
// A few short aliases (XPIPE_TOKEN, XPIPE_BASE_URL, ...) are registered by
// the caller with WithEnvAlias.
//
// Watcher follows a single file and calls back after writes settle.
package confloader
