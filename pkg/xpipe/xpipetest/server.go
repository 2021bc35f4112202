package xpipetest

import (
	"maps"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yndnr/xpipe-go/pkg/token"
)

// DefaultAPIKey is accepted by a Server unless WithAPIKey overrides it.
const DefaultAPIKey = "xpipe-test-api-key"

// ScriptDir is where FsScript places scripts. It contains a space so that
// callers have to quote script paths.
const ScriptDir = "/tmp/xpipe scripts"

// Connection is a connection known to the fake daemon.
type Connection struct {
	UUID     uuid.UUID
	Category []string
	Name     []string
	Type     string

	// Dialect is reported by /shell/start. Defaults to "bash".
	Dialect string
	OSType  string
	OSName  string

	// Unreachable makes /shell/start fail with 500.
	Unreachable bool
	// RefreshFails makes /connection/refresh fail with 400.
	RefreshFails bool

	// Files seeds the remote filesystem.
	Files map[string][]byte
}

// Action is a recorded browse or terminal request.
type Action struct {
	Kind       string
	Connection uuid.UUID
	Directory  string
}

// Request is a recorded incoming request.
type Request struct {
	Path      string
	RequestID string
	UserAgent string
}

// Server is a fake XPipe daemon.
type Server struct {
	URL string

	srv             *httptest.Server
	apiKey          string
	authFileContent string
	handshakeDelay  time.Duration
	handshakes      atomic.Int64

	mu       sync.Mutex
	order    []uuid.UUID
	conns    map[uuid.UUID]*Connection
	tokens   map[string]struct{}
	shells   map[uuid.UUID]bool
	blobs    map[uuid.UUID][]byte
	files    map[uuid.UUID]map[string][]byte
	toggles  map[uuid.UUID]bool
	actions  []Action
	calls    map[string]int
	requests []Request
	scripts  int
}

// Option configures a Server.
type Option func(*Server)

// WithAPIKey changes the accepted API key.
func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithAuthFileContent makes the server accept Local auth with content.
func WithAuthFileContent(content string) Option {
	return func(s *Server) {
		s.authFileContent = content
	}
}

// WithHandshakeDelay delays every handshake response.
func WithHandshakeDelay(d time.Duration) Option {
	return func(s *Server) {
		s.handshakeDelay = d
	}
}

// WithConnections seeds connections in the given order.
func WithConnections(conns ...Connection) Option {
	return func(s *Server) {
		for _, c := range conns {
			s.addConnection(c)
		}
	}
}

// NewServer starts a fake daemon that is closed when the test ends.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := newServer(opts...)
	s.srv = httptest.NewServer(s.Handler())
	s.URL = s.srv.URL
	t.Cleanup(s.Close)
	return s
}

func newServer(opts ...Option) *Server {
	s := &Server{
		apiKey:  DefaultAPIKey,
		conns:   make(map[uuid.UUID]*Connection),
		tokens:  make(map[string]struct{}),
		shells:  make(map[uuid.UUID]bool),
		blobs:   make(map[uuid.UUID][]byte),
		files:   make(map[uuid.UUID]map[string][]byte),
		toggles: make(map[uuid.UUID]bool),
		calls:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the daemon's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /handshake", s.handleHandshake)
	mux.HandleFunc("POST /connection/query", s.handleQuery)
	mux.HandleFunc("POST /connection/info", s.handleInfo)
	mux.HandleFunc("POST /connection/add", s.handleAdd)
	mux.HandleFunc("POST /connection/remove", s.handleRemove)
	mux.HandleFunc("POST /connection/browse", s.handleBrowse)
	mux.HandleFunc("POST /connection/terminal", s.handleTerminal)
	mux.HandleFunc("POST /connection/toggle", s.handleToggle)
	mux.HandleFunc("POST /connection/refresh", s.handleRefresh)
	mux.HandleFunc("POST /shell/start", s.handleShellStart)
	mux.HandleFunc("POST /shell/stop", s.handleShellStop)
	mux.HandleFunc("POST /shell/exec", s.handleShellExec)
	mux.HandleFunc("POST /fs/blob", s.handleFsBlob)
	mux.HandleFunc("POST /fs/write", s.handleFsWrite)
	mux.HandleFunc("POST /fs/script", s.handleFsScript)
	mux.HandleFunc("POST /fs/read", s.handleFsRead)
	mux.HandleFunc("POST /daemon/version", s.handleDaemonVersion)

	return chain(mux, recoverer(), requestID(), counter(s), auth(s))
}

// Close shuts the server down.
func (s *Server) Close() {
	if s.srv != nil {
		s.srv.Close()
	}
}

// AddConnection registers a connection and returns its UUID, generating one
// when c.UUID is nil.
func (s *Server) AddConnection(c Connection) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addConnection(c)
}

func (s *Server) addConnection(c Connection) uuid.UUID {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Dialect == "" {
		c.Dialect = "bash"
	}
	if c.OSType == "" {
		c.OSType = "Linux"
	}
	if c.OSName == "" {
		c.OSName = "Ubuntu 24.04 LTS"
	}
	if _, exists := s.conns[c.UUID]; !exists {
		s.order = append(s.order, c.UUID)
	}
	files := make(map[string][]byte, len(c.Files))
	maps.Copy(files, c.Files)
	s.files[c.UUID] = files
	s.conns[c.UUID] = &c
	return c.UUID
}

// Handshakes returns how many handshakes were received.
func (s *Server) Handshakes() int {
	return int(s.handshakes.Load())
}

// Calls returns how many requests hit path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls returns the number of requests received.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// ExpireSessions invalidates every issued session token.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.tokens)
}

// ShellOpen reports whether the daemon has an open shell for id.
func (s *Server) ShellOpen(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shells[id]
}

// File returns a file from a connection's filesystem.
func (s *Server) File(id uuid.UUID, path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[id][path]
	return data, ok
}

// SetFile writes a file on a connection's filesystem.
func (s *Server) SetFile(id uuid.UUID, path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files[id] == nil {
		s.files[id] = make(map[string][]byte)
	}
	s.files[id][path] = data
}

// BlobCount returns the number of uploaded blobs not yet consumed.
func (s *Server) BlobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// ToggleState returns the last toggle state of a connection.
func (s *Server) ToggleState(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggles[id]
}

// Actions returns the recorded browse and terminal requests.
func (s *Server) Actions() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Action, len(s.actions))
	copy(out, s.actions)
	return out
}

func (s *Server) validToken(session string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token.Hash(session)]
	return ok
}
