package xpipe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

const (
	authTypeAPIKey = "ApiKey"
	authTypeLocal  = "Local"
)

// credentials holds exactly one source: an explicit API key, or the content
// of the auth file.
type credentials struct {
	apiKey      string
	authFile    string
	fileContent string
}

func resolveCredentials(apiKey, authFile string) (credentials, error) {
	if apiKey != "" {
		return credentials{apiKey: apiKey}, nil
	}
	creds := credentials{authFile: authFile}
	if authFile == "" {
		return creds, nil
	}
	content, err := readAuthFile(authFile)
	if err != nil {
		return credentials{}, err
	}
	creds.fileContent = content
	return creds, nil
}

// readAuthFile returns the trimmed file content, or "" when the file does
// not exist.
func readAuthFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("xpipe: read auth file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (c credentials) payload() (handshakeAuth, error) {
	switch {
	case c.apiKey != "":
		return handshakeAuth{Type: authTypeAPIKey, Key: c.apiKey}, nil
	case c.fileContent != "":
		return handshakeAuth{Type: authTypeLocal, AuthFileContent: c.fileContent}, nil
	}
	if c.authFile != "" {
		return handshakeAuth{}, ErrCredentialsMissing.WithDetails("no API key given and " + c.authFile + " not found")
	}
	return handshakeAuth{}, ErrCredentialsMissing
}

type handshakeRequest struct {
	Auth   handshakeAuth   `json:"auth"`
	Client handshakeClient `json:"client"`
}

type handshakeAuth struct {
	Type            string `json:"type"`
	Key             string `json:"key,omitempty"`
	AuthFileContent string `json:"authFileContent,omitempty"`
}

type handshakeClient struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type handshakeResponse struct {
	SessionToken string `json:"sessionToken"`
}

// Login performs the handshake now instead of on the first request. It is a
// no-op when a session token is already cached.
func (c *Client) Login(ctx context.Context) error {
	_, err := c.sessionToken(ctx)
	return err
}

// Reauthenticate drops the cached session token, re-reads the auth file when
// no explicit API key was given, and performs a new handshake. Requests
// issued meanwhile wait for the new token.
func (c *Client) Reauthenticate(ctx context.Context) error {
	c.authMu.Lock()
	if c.creds.apiKey == "" && c.creds.authFile != "" {
		content, err := readAuthFile(c.creds.authFile)
		if err != nil {
			c.authMu.Unlock()
			return err
		}
		c.creds.fileContent = content
	}
	c.token = ""
	c.authGen++
	c.authMu.Unlock()

	_, err := c.sharedLogin(ctx)
	return err
}

// Authenticated reports whether a session token is cached.
func (c *Client) Authenticated() bool {
	c.authMu.RLock()
	defer c.authMu.RUnlock()
	return c.token != ""
}

func (c *Client) sessionToken(ctx context.Context) (string, error) {
	c.authMu.RLock()
	token := c.token
	c.authMu.RUnlock()
	if token != "" {
		return token, nil
	}
	return c.sharedLogin(ctx)
}

// maxLoginAttempts bounds how often a caller retries a shared handshake that
// failed only because another caller's context ended.
const maxLoginAttempts = 3

// sharedLogin runs at most one handshake per credentials generation;
// concurrent callers wait for and share its result. A handshake still in
// flight when Reauthenticate bumps the generation is not joined. The
// handshake runs on the leader's context, so followers whose own context is
// still live retry when the leader was cancelled.
func (c *Client) sharedLogin(ctx context.Context) (string, error) {
	for attempt := 1; ; attempt++ {
		c.authMu.RLock()
		gen := c.authGen
		c.authMu.RUnlock()

		key := "handshake/" + strconv.FormatUint(gen, 10)
		v, err, shared := c.login.Do(key, func() (any, error) {
			c.authMu.RLock()
			token := c.token
			c.authMu.RUnlock()
			if token != "" {
				return token, nil
			}
			return c.handshake(ctx, gen)
		})
		if err != nil {
			if shared && isContextErr(err) && ctx.Err() == nil && attempt < maxLoginAttempts {
				continue
			}
			return "", err
		}
		return v.(string), nil
	}
}

func (c *Client) handshake(ctx context.Context, gen uint64) (string, error) {
	c.authMu.RLock()
	creds := c.creds
	c.authMu.RUnlock()

	auth, err := creds.payload()
	if err != nil {
		return "", err
	}

	req := handshakeRequest{
		Auth:   auth,
		Client: handshakeClient{Type: "Api", Name: c.clientName},
	}
	var resp handshakeResponse
	err = c.call(ctx, request{endpoint: "/handshake", body: req, anonymous: true}, &resp)
	if err != nil {
		c.metrics.RecordLogin("failure")
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return "", ErrAuthenticationFailed.WithCause(apiErr)
		}
		return "", err
	}
	if resp.SessionToken == "" {
		c.metrics.RecordLogin("failure")
		return "", ErrAuthenticationFailed.WithDetails("empty session token")
	}

	// A token from replaced credentials is returned to its callers but never
	// cached.
	c.authMu.Lock()
	current := gen == c.authGen
	if current {
		c.token = resp.SessionToken
	}
	c.authMu.Unlock()

	c.metrics.RecordLogin("success")
	if !current {
		c.log.Debug("discarded token from replaced credentials", "auth_type", auth.Type)
		return resp.SessionToken, nil
	}
	c.log.Info("authenticated", "auth_type", auth.Type, "base_url", c.baseURL)
	return resp.SessionToken, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
