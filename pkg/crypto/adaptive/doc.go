// Package adaptive seals short secrets, such as API keys kept in the CLI
// configuration, with authenticated encryption.
//
// The cipher is chosen for the host: AES-256-GCM where AES is hardware
// accelerated, ChaCha20-Poly1305 elsewhere. Sealed values are text envelopes
// that name their cipher, so a value sealed on one machine opens on any
// other holding the same key:
//
//	sealed:chacha20-poly1305:<base64url(nonce|ciphertext|tag)>
package adaptive
