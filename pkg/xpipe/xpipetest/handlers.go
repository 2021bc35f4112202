package xpipetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yndnr/xpipe-go/pkg/glob"
	"github.com/yndnr/xpipe-go/pkg/token"
)

type connectionInfo struct {
	Connection    uuid.UUID       `json:"connection"`
	Category      []string        `json:"category"`
	Name          []string        `json:"name"`
	Type          string          `json:"type"`
	RawData       json.RawMessage `json:"rawData"`
	UsageCategory string          `json:"usageCategory"`
	LastUsed      time.Time       `json:"lastUsed"`
	LastModified  time.Time       `json:"lastModified"`
	State         json.RawMessage `json:"state"`
	Cache         json.RawMessage `json:"cache"`
}

var fixedTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func (s *Server) handleHandshake(w http.ResponseWriter, r *http.Request) {
	s.handshakes.Add(1)
	if s.handshakeDelay > 0 {
		time.Sleep(s.handshakeDelay)
	}

	var req struct {
		Auth struct {
			Type            string `json:"type"`
			Key             string `json:"key"`
			AuthFileContent string `json:"authFileContent"`
		} `json:"auth"`
		Client struct {
			Type string `json:"type"`
			Name string `json:"name"`
		} `json:"client"`
	}
	if !decode(w, r, &req) {
		return
	}

	var ok bool
	switch req.Auth.Type {
	case "ApiKey":
		ok = req.Auth.Key != "" && token.Equal(req.Auth.Key, s.apiKey)
	case "Local":
		ok = s.authFileContent != "" && token.Equal(req.Auth.AuthFileContent, s.authFileContent)
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	session, err := token.Generate()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.mu.Lock()
	s.tokens[token.Hash(session)] = struct{}{}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"sessionToken": session})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CategoryFilter   string `json:"categoryFilter"`
		ConnectionFilter string `json:"connectionFilter"`
		TypeFilter       string `json:"typeFilter"`
	}
	if !decode(w, r, &req) {
		return
	}

	categories, err1 := glob.Compile(req.CategoryFilter)
	names, err2 := glob.Compile(req.ConnectionFilter)
	types, err3 := glob.Compile(req.TypeFilter)
	for _, err := range []error{err1, err2, err3} {
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	s.mu.Lock()
	found := make([]uuid.UUID, 0, len(s.order))
	for _, id := range s.order {
		c := s.conns[id]
		if categories.Match(c.Category) && names.Match(c.Name) && types.MatchString(c.Type) {
			found = append(found, id)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"found": found})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Connections []uuid.UUID `json:"connections"`
	}
	if !decode(w, r, &req) {
		return
	}
	if len(req.Connections) == 0 {
		writeError(w, http.StatusBadRequest, "no connections given")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]connectionInfo, 0, len(req.Connections))
	for _, id := range req.Connections {
		c, ok := s.conns[id]
		if !ok {
			writeError(w, http.StatusNotFound, "unknown connection "+id.String())
			return
		}
		infos = append(infos, connectionInfo{
			Connection:    c.UUID,
			Category:      c.Category,
			Name:          c.Name,
			Type:          c.Type,
			RawData:       json.RawMessage(`{"type":"` + c.Type + `"}`),
			UsageCategory: "shell",
			LastUsed:      fixedTime,
			LastModified:  fixedTime,
			State:         json.RawMessage(`{"running":` + fmt.Sprint(s.toggles[id]) + `}`),
			Cache:         json.RawMessage(`{}`),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"infos": infos})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string          `json:"name"`
		Data     json.RawMessage `json:"data"`
		Validate bool            `json:"validate"`
	}
	if !decode(w, r, &req) {
		return
	}
	var data struct {
		Type        string `json:"type"`
		Unreachable bool   `json:"unreachable"`
	}
	_ = json.Unmarshal(req.Data, &data)
	if req.Validate && data.Unreachable {
		writeError(w, http.StatusBadRequest, "validation failed: host unreachable")
		return
	}
	if data.Type == "" {
		data.Type = "custom"
	}

	id := s.AddConnection(Connection{
		Category: []string{"default"},
		Name:     strings.Split(req.Name, "/"),
		Type:     data.Type,
	})
	writeJSON(w, http.StatusOK, map[string]any{"connection": id})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Connections []uuid.UUID `json:"connections"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range req.Connections {
		if _, ok := s.conns[id]; !ok {
			writeError(w, http.StatusNotFound, "unknown connection "+id.String())
			return
		}
	}
	for _, id := range req.Connections {
		delete(s.conns, id)
		delete(s.shells, id)
		delete(s.files, id)
		for i, o := range s.order {
			if o == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	s.handleDirectoryAction(w, r, "browse")
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	s.handleDirectoryAction(w, r, "terminal")
}

func (s *Server) handleDirectoryAction(w http.ResponseWriter, r *http.Request, kind string) {
	var req struct {
		Connection uuid.UUID `json:"connection"`
		Directory  string    `json:"directory"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[req.Connection]; !ok {
		writeError(w, http.StatusNotFound, "unknown connection "+req.Connection.String())
		return
	}
	s.actions = append(s.actions, Action{Kind: kind, Connection: req.Connection, Directory: req.Directory})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Connection uuid.UUID `json:"connection"`
		State      bool      `json:"state"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[req.Connection]; !ok {
		writeError(w, http.StatusNotFound, "unknown connection "+req.Connection.String())
		return
	}
	s.toggles[req.Connection] = req.State
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if c.RefreshFails {
		writeError(w, http.StatusBadRequest, "validation failed: host unreachable")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleShellStart(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if c.Unreachable {
		writeError(w, http.StatusInternalServerError, "unable to connect to "+strings.Join(c.Name, "/"))
		return
	}

	s.mu.Lock()
	s.shells[c.UUID] = true
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"shellDialect": c.Dialect,
		"osType":       c.OSType,
		"osName":       c.OSName,
		"ttyState":     "NONE",
		"temp":         "/tmp/xpipe",
	})
}

func (s *Server) handleShellStop(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.shells[c.UUID] {
		writeError(w, http.StatusBadRequest, "no shell session open")
		return
	}
	delete(s.shells, c.UUID)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleShellExec(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Connection uuid.UUID `json:"connection"`
		Command    string    `json:"command"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	if !s.requireShellLocked(w, req.Connection) {
		s.mu.Unlock()
		return
	}
	res := runCommand(s.files[req.Connection], req.Command, 0)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFsBlob(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := uuid.New()
	s.mu.Lock()
	s.blobs[id] = data
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"blob": id})
}

func (s *Server) handleFsWrite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Connection uuid.UUID `json:"connection"`
		Blob       uuid.UUID `json:"blob"`
		Path       string    `json:"path"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireShellLocked(w, req.Connection) {
		return
	}
	data, ok := s.takeBlobLocked(w, req.Blob)
	if !ok {
		return
	}
	s.files[req.Connection][req.Path] = data
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleFsScript(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Connection uuid.UUID `json:"connection"`
		Blob       uuid.UUID `json:"blob"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireShellLocked(w, req.Connection) {
		return
	}
	data, ok := s.takeBlobLocked(w, req.Blob)
	if !ok {
		return
	}
	s.scripts++
	path := fmt.Sprintf("%s/exec-%d.sh", ScriptDir, s.scripts)
	s.files[req.Connection][path] = data
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func (s *Server) handleFsRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Connection uuid.UUID `json:"connection"`
		Path       string    `json:"path"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireShellLocked(w, req.Connection) {
		return
	}
	data, ok := s.files[req.Connection][req.Path]
	if !ok {
		writeError(w, http.StatusBadRequest, "file not found: "+req.Path)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDaemonVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":          "14.0",
		"canonicalVersion": "14.0",
		"buildVersion":     "14.0-test",
		"jvmVersion":       "21.0.3",
		"pro":              false,
	})
}

// lookup decodes {"connection": id} and resolves it, writing 404 for
// unknown ids.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (Connection, bool) {
	var req struct {
		Connection uuid.UUID `json:"connection"`
	}
	if !decode(w, r, &req) {
		return Connection{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[req.Connection]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown connection "+req.Connection.String())
		return Connection{}, false
	}
	return *c, true
}

func (s *Server) requireShellLocked(w http.ResponseWriter, id uuid.UUID) bool {
	if _, ok := s.conns[id]; !ok {
		writeError(w, http.StatusNotFound, "unknown connection "+id.String())
		return false
	}
	if !s.shells[id] {
		writeError(w, http.StatusBadRequest, "no shell session open")
		return false
	}
	return true
}

func (s *Server) takeBlobLocked(w http.ResponseWriter, id uuid.UUID) ([]byte, bool) {
	data, ok := s.blobs[id]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown blob "+id.String())
		return nil, false
	}
	delete(s.blobs, id)
	return data, true
}
