package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNoCertsFound is returned when no certificates are found in PEM data.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")

	// ErrIncompleteKeyPair is returned when only one of cert and key is set.
	ErrIncompleteKeyPair = errors.New("tlsroots: client certificate and key must be set together")
)

// Pool manages a pool of trusted root certificates.
type Pool struct {
	certPool *x509.CertPool
}

// NewPool creates a pool seeded with the system roots, or an empty pool
// where the platform has none.
func NewPool() *Pool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	return &Pool{certPool: pool}
}

// AddCertFile adds every certificate found in a PEM file.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read cert file %s: %w", path, err)
	}
	return p.AddCertPEM(data)
}

// AddCertPEM adds certificates from PEM-encoded data. Non-certificate
// blocks are skipped.
func (p *Pool) AddCertPEM(pemData []byte) error {
	var added int
	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.certPool.AddCert(cert)
		added++
	}

	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// AddCert adds a certificate directly.
func (p *Pool) AddCert(cert *x509.Certificate) {
	p.certPool.AddCert(cert)
}

// Pool returns the underlying x509.CertPool.
func (p *Pool) Pool() *x509.CertPool {
	return p.certPool
}

// TLSConfig returns a client config trusting this pool.
func (p *Pool) TLSConfig() *tls.Config {
	return &tls.Config{
		RootCAs:    p.certPool,
		MinVersion: tls.VersionTLS12,
	}
}

// Config names the files that make up a client TLS setup.
type Config struct {
	CAFile   string
	CertFile string
	KeyFile  string
}

// IsZero reports whether no TLS material is configured.
func (c Config) IsZero() bool {
	return c.CAFile == "" && c.CertFile == "" && c.KeyFile == ""
}

// ClientConfig builds a client tls.Config from cfg. The CA file is added on
// top of the system roots. A client certificate is presented when both
// CertFile and KeyFile are set. A zero Config yields nil.
func ClientConfig(cfg Config) (*tls.Config, error) {
	if cfg.IsZero() {
		return nil, nil
	}
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, ErrIncompleteKeyPair
	}

	pool := NewPool()
	if cfg.CAFile != "" {
		if err := pool.AddCertFile(cfg.CAFile); err != nil {
			return nil, err
		}
	}

	tlsCfg := pool.TLSConfig()
	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: load key pair: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}
