package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// FingerprintLength is the number of hex characters returned by Fingerprint.
const FingerprintLength = 12

// Hash returns the hex encoded SHA-256 digest of secret.
func Hash(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// Fingerprint returns a short, stable identifier for secret. An empty secret
// has an empty fingerprint.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	return Hash(secret)[:FingerprintLength]
}

// Equal compares two secrets in constant time with respect to their content.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Verify reports whether secret hashes to expectedHash.
func Verify(secret, expectedHash string) bool {
	return Equal(Hash(secret), expectedHash)
}
