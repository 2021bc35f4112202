package adaptive

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const envelopePrefix = "sealed:"

// ErrMalformedEnvelope is returned by Open for values not produced by Seal.
var ErrMalformedEnvelope = errors.New("adaptive: malformed sealed value")

// IsSealed reports whether s looks like a sealed envelope.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, envelopePrefix)
}

// Seal encrypts plaintext with c and returns a text envelope.
func Seal(c Cipher, plaintext, additionalData []byte) (string, error) {
	ct, err := c.Encrypt(plaintext, additionalData)
	if err != nil {
		return "", err
	}
	return envelopePrefix + string(c.Type()) + ":" + base64.RawURLEncoding.EncodeToString(ct), nil
}

// Open decrypts an envelope produced by Seal, using the cipher it names.
func Open(key []byte, envelope string, additionalData []byte) ([]byte, error) {
	rest, ok := strings.CutPrefix(envelope, envelopePrefix)
	if !ok {
		return nil, ErrMalformedEnvelope
	}
	typ, payload, ok := strings.Cut(rest, ":")
	if !ok || typ == "" || payload == "" {
		return nil, ErrMalformedEnvelope
	}
	ct, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	c, err := NewWithType(key, CipherType(typ))
	if err != nil {
		return nil, err
	}
	return c.Decrypt(ct, additionalData)
}
