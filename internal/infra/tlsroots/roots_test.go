package tlsroots

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	if NewPool().Pool() == nil {
		t.Fatal("Pool() returned nil")
	}
}

func TestAddCertPEM(t *testing.T) {
	certPEM, _ := generateTestCertAndKeyPEM(t)
	if err := NewPool().AddCertPEM(certPEM); err != nil {
		t.Fatalf("AddCertPEM() error = %v", err)
	}
}

func TestAddCertPEM_NoCerts(t *testing.T) {
	pool := NewPool()
	if err := pool.AddCertPEM(nil); err != ErrNoCertsFound {
		t.Errorf("AddCertPEM(nil) error = %v, want %v", err, ErrNoCertsFound)
	}

	keyOnly := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1, 2, 3}})
	if err := pool.AddCertPEM(keyOnly); err != ErrNoCertsFound {
		t.Errorf("AddCertPEM(key) error = %v, want %v", err, ErrNoCertsFound)
	}
}

func TestAddCertFile_Missing(t *testing.T) {
	if err := NewPool().AddCertFile("/nonexistent/ca.pem"); err == nil {
		t.Error("AddCertFile() should fail for a missing file")
	}
}

func TestClientConfig_Zero(t *testing.T) {
	cfg, err := ClientConfig(Config{})
	if err != nil || cfg != nil {
		t.Errorf("ClientConfig(zero) = %v, %v; want nil, nil", cfg, err)
	}
}

func TestClientConfig_IncompleteKeyPair(t *testing.T) {
	_, err := ClientConfig(Config{CertFile: "client.pem"})
	if !errors.Is(err, ErrIncompleteKeyPair) {
		t.Errorf("error = %v, want ErrIncompleteKeyPair", err)
	}
}

func TestClientConfig_WithClientCert(t *testing.T) {
	dir := t.TempDir()
	certPEM, keyPEM := generateTestCertAndKeyPEM(t)
	certFile := filepath.Join(dir, "client.pem")
	keyFile := filepath.Join(dir, "client.key")
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := ClientConfig(Config{CAFile: certFile, CertFile: certFile, KeyFile: keyFile})
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("Certificates = %d, want 1", len(cfg.Certificates))
	}
}

func TestTLSConfig_TrustsServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(caFile, caPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	tlsCfg, err := ClientConfig(Config{CAFile: caFile})
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: tlsCfg}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET with custom CA failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

// generateTestCertAndKeyPEM generates a self-signed CA certificate and key.
func generateTestCertAndKeyPEM(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Test Org"},
			CommonName:   "xpipe.test",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate() error = %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey() error = %v", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}
