// Package tlsroots builds client TLS configuration for talking to an XPipe
// daemon exposed over HTTPS, typically behind a reverse proxy with a
// private CA.
package tlsroots
