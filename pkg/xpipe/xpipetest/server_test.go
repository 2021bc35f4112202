package xpipetest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func post(t *testing.T, h http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func handshake(t *testing.T, h http.Handler, key string) string {
	t.Helper()
	rec := post(t, h, "/handshake", "", map[string]any{
		"auth":   map[string]string{"type": "ApiKey", "key": key},
		"client": map[string]string{"type": "Api", "name": "test"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("handshake status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		SessionToken string `json:"sessionToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode handshake: %v", err)
	}
	return resp.SessionToken
}

func TestServer_RequiresSessionToken(t *testing.T) {
	s := newServer()
	h := s.Handler()

	rec := post(t, h, "/daemon/version", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Message != "missing session token" {
		t.Errorf("body = %s (%v)", rec.Body.String(), err)
	}

	token := handshake(t, h, DefaultAPIKey)
	rec = post(t, h, "/daemon/version", token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}

	s.ExpireSessions()
	rec = post(t, h, "/daemon/version", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status after expiry = %d, want 401", rec.Code)
	}

	if n := s.Calls("/daemon/version"); n != 3 {
		t.Errorf("version calls = %d, want 3", n)
	}
	if s.Handshakes() != 1 {
		t.Errorf("handshakes = %d, want 1", s.Handshakes())
	}
}

func TestServer_RejectsWrongKey(t *testing.T) {
	h := newServer(WithAPIKey("right")).Handler()
	rec := post(t, h, "/handshake", "", map[string]any{
		"auth": map[string]string{"type": "ApiKey", "key": "wrong"},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestServer_ShellRequiredForFs(t *testing.T) {
	id := uuid.New()
	s := newServer(WithConnections(Connection{UUID: id, Name: []string{"box"}, Type: "ssh"}))
	h := s.Handler()
	token := handshake(t, h, DefaultAPIKey)
	read := map[string]any{"connection": id, "path": "/x"}

	if rec := post(t, h, "/fs/read", token, read); rec.Code != http.StatusBadRequest {
		t.Errorf("read without shell status = %d, want 400", rec.Code)
	}

	rec := post(t, h, "/shell/start", token, map[string]any{"connection": id})
	if rec.Code != http.StatusOK {
		t.Fatalf("shell start status = %d: %s", rec.Code, rec.Body.String())
	}
	if !s.ShellOpen(id) {
		t.Error("ShellOpen() = false after start")
	}
	if !strings.Contains(rec.Body.String(), `"shellDialect":"bash"`) {
		t.Errorf("start body = %s", rec.Body.String())
	}

	rec = post(t, h, "/fs/read", token, read)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "file not found") {
		t.Errorf("read missing file = %d %s", rec.Code, rec.Body.String())
	}

	s.SetFile(id, "/x", []byte("data"))
	rec = post(t, h, "/fs/read", token, read)
	if rec.Code != http.StatusOK {
		t.Errorf("read status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.String() != "data" {
		t.Errorf("body = %q, want data", rec.Body.String())
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	h := newServer().Handler()
	token := handshake(t, h, DefaultAPIKey)
	if rec := post(t, h, "/connection/rename", token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
