package adaptive

import "golang.org/x/crypto/chacha20poly1305"

// NewChaCha20 returns a ChaCha20-Poly1305 cipher.
func NewChaCha20(key []byte) (Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &aeadCipher{typ: CipherChaCha20, aead: aead}, nil
}
