package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// DefaultLength is the number of random bytes in a generated token.
const DefaultLength = 32

// Generate returns a random token encoded as unpadded base64url.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength returns a token built from length random bytes.
func GenerateWithLength(length int) (string, error) {
	b, err := RandomBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RandomBytes returns length bytes from crypto/rand.
func RandomBytes(length int) ([]byte, error) {
	if length <= 0 {
		return nil, fmt.Errorf("token: invalid length %d", length)
	}
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
