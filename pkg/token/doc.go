// Package token generates and fingerprints opaque secrets: API keys, session
// tokens and the local key used to seal secrets in the CLI configuration.
//
// Generated values come from crypto/rand. Fingerprints are truncated SHA-256
// digests, suitable for showing which secret is configured without revealing
// it.
package token
