package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yndnr/xpipe-go/pkg/crypto/adaptive"
	"github.com/yndnr/xpipe-go/pkg/token"
)

const tokenAAD = "xpipe-cli/auth.token"

// KeyPath returns the sealing key file used for the config at configPath.
func KeyPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "cli.key")
}

func loadKey(path string, create bool) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != adaptive.KeySize {
			return nil, fmt.Errorf("key file %s: %w", path, adaptive.ErrInvalidKey)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) || !create {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key, err = token.RandomBytes(adaptive.KeySize)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return key, nil
}

func sealToken(keyPath, plain string) (string, error) {
	if adaptive.IsSealed(plain) {
		return plain, nil
	}
	key, err := loadKey(keyPath, true)
	if err != nil {
		return "", err
	}
	c, err := adaptive.New(key)
	if err != nil {
		return "", err
	}
	return adaptive.Seal(c, []byte(plain), []byte(tokenAAD))
}

func openToken(keyPath, value string) (string, error) {
	if !adaptive.IsSealed(value) {
		return value, nil
	}
	key, err := loadKey(keyPath, false)
	if err != nil {
		return "", fmt.Errorf("open auth.token: %w", err)
	}
	plain, err := adaptive.Open(key, value, []byte(tokenAAD))
	if err != nil {
		return "", fmt.Errorf("open auth.token: %w", err)
	}
	return string(plain), nil
}
