package xpipe_test

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/xpipe-go/pkg/xpipe"
	"github.com/yndnr/xpipe-go/pkg/xpipe/xpipetest"
)

func TestLogin_IsLazy(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)

	if srv.Handshakes() != 0 {
		t.Fatalf("New sent %d handshake(s), want 0", srv.Handshakes())
	}
	if c.Authenticated() {
		t.Error("Authenticated() = true before any request")
	}

	ctx := context.Background()
	for range 2 {
		if _, err := c.Query(ctx, xpipe.QueryFilter{}); err != nil {
			t.Fatalf("Query() error = %v", err)
		}
	}

	if srv.Handshakes() != 1 {
		t.Errorf("handshakes = %d, want 1", srv.Handshakes())
	}
	if !c.Authenticated() {
		t.Error("Authenticated() = false after a request")
	}
}

func TestLogin_LocalAuthFile(t *testing.T) {
	srv := newServer(t, xpipetest.WithAuthFileContent("local-secret"))
	path := writeAuthFile(t, "local-secret\n")

	c, err := xpipe.New(xpipe.WithBaseURL(srv.URL), xpipe.WithAuthFile(path))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if srv.Handshakes() != 1 {
		t.Errorf("handshakes = %d, want 1", srv.Handshakes())
	}
}

func TestLogin_ExplicitTokenWinsOverFile(t *testing.T) {
	srv := newServer(t, xpipetest.WithAuthFileContent("local-secret"))
	path := writeAuthFile(t, "local-secret")

	c, err := xpipe.New(
		xpipe.WithBaseURL(srv.URL),
		xpipe.WithAuthFile(path),
		xpipe.WithToken("not-the-key"),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// The valid auth file must not be used when a token is given.
	if err := c.Login(context.Background()); !errors.Is(err, xpipe.ErrAuthenticationFailed) {
		t.Errorf("Login() error = %v, want ErrAuthenticationFailed", err)
	}
}

func TestLogin_CredentialsMissing(t *testing.T) {
	srv := newServer(t)
	missing := filepath.Join(t.TempDir(), "xpipe_auth")

	c, err := xpipe.New(xpipe.WithBaseURL(srv.URL), xpipe.WithAuthFile(missing))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Query(context.Background(), xpipe.QueryFilter{})
	if !errors.Is(err, xpipe.ErrCredentialsMissing) {
		t.Fatalf("Query() error = %v, want ErrCredentialsMissing", err)
	}
	if srv.TotalCalls() != 0 {
		t.Errorf("calls = %d, want 0 without credentials", srv.TotalCalls())
	}
}

func TestLogin_RejectedKey(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv, xpipe.WithToken("wrong"))

	err := c.Login(context.Background())
	if !errors.Is(err, xpipe.ErrAuthenticationFailed) {
		t.Fatalf("Login() error = %v, want ErrAuthenticationFailed", err)
	}

	var apiErr *xpipe.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Login() error = %v, want an *APIError cause", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, http.StatusUnauthorized)
	}
	if apiErr.Message != "invalid credentials" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Endpoint != "/handshake" {
		t.Errorf("Endpoint = %q, want /handshake", apiErr.Endpoint)
	}
	if c.Authenticated() {
		t.Error("Authenticated() = true after a rejected key")
	}
}

func TestLogin_ConcurrentFirstRequestsShareOneHandshake(t *testing.T) {
	srv := newServer(t, xpipetest.WithHandshakeDelay(50*time.Millisecond))
	c := newClient(t, srv)

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Query(context.Background(), xpipe.QueryFilter{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
	}
	if srv.Handshakes() != 1 {
		t.Errorf("handshakes = %d, want 1", srv.Handshakes())
	}
	if n := srv.Calls("/connection/query"); n != callers {
		t.Errorf("query calls = %d, want %d", n, callers)
	}
}

func TestLogin_FollowerSurvivesCancelledLeader(t *testing.T) {
	srv := newServer(t, xpipetest.WithHandshakeDelay(100*time.Millisecond))
	c := newClient(t, srv)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderDone := make(chan error, 1)
	go func() {
		leaderDone <- c.Login(leaderCtx)
	}()
	time.Sleep(20 * time.Millisecond)

	followerDone := make(chan error, 1)
	go func() {
		followerDone <- c.Login(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-leaderDone; !errors.Is(err, context.Canceled) {
		t.Errorf("leader error = %v, want context.Canceled", err)
	}
	if err := <-followerDone; err != nil {
		t.Fatalf("follower error = %v", err)
	}
	if !c.Authenticated() {
		t.Error("Authenticated() = false after follower login")
	}
}

func TestExpiredSession_SurfacesAsAuthenticationFailed(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	if err := c.Login(ctx); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	srv.ExpireSessions()

	_, err := c.Query(ctx, xpipe.QueryFilter{})
	if !errors.Is(err, xpipe.ErrAuthenticationFailed) {
		t.Fatalf("Query() error = %v, want ErrAuthenticationFailed", err)
	}
	if srv.Handshakes() != 1 {
		t.Errorf("handshakes = %d, expiry must not log in again", srv.Handshakes())
	}

	if err := c.Reauthenticate(ctx); err != nil {
		t.Fatalf("Reauthenticate() error = %v", err)
	}
	if _, err := c.Query(ctx, xpipe.QueryFilter{}); err != nil {
		t.Fatalf("Query() after Reauthenticate error = %v", err)
	}
	if srv.Handshakes() != 2 {
		t.Errorf("handshakes = %d, want 2", srv.Handshakes())
	}
}

func TestReauthenticate_RereadsAuthFile(t *testing.T) {
	srv := newServer(t, xpipetest.WithAuthFileContent("rotated"))
	path := writeAuthFile(t, "stale")

	c, err := xpipe.New(xpipe.WithBaseURL(srv.URL), xpipe.WithAuthFile(path))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := c.Login(ctx); !errors.Is(err, xpipe.ErrAuthenticationFailed) {
		t.Fatalf("Login() error = %v, want ErrAuthenticationFailed", err)
	}

	writeFile(t, path, "rotated")
	if err := c.Reauthenticate(ctx); err != nil {
		t.Fatalf("Reauthenticate() error = %v", err)
	}
	if !c.Authenticated() {
		t.Error("Authenticated() = false after Reauthenticate")
	}
}

func TestReauthenticate_DuringStaleHandshake(t *testing.T) {
	srv := newServer(t,
		xpipetest.WithAuthFileContent("rotated"),
		xpipetest.WithHandshakeDelay(300*time.Millisecond),
	)
	path := writeAuthFile(t, "stale")

	c, err := xpipe.New(xpipe.WithBaseURL(srv.URL), xpipe.WithAuthFile(path))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	staleDone := make(chan error, 1)
	go func() {
		staleDone <- c.Login(ctx)
	}()
	time.Sleep(50 * time.Millisecond)

	writeFile(t, path, "rotated")
	if err := c.Reauthenticate(ctx); err != nil {
		t.Fatalf("Reauthenticate() error = %v", err)
	}
	if err := <-staleDone; !errors.Is(err, xpipe.ErrAuthenticationFailed) {
		t.Errorf("stale Login() error = %v, want ErrAuthenticationFailed", err)
	}

	if srv.Handshakes() != 2 {
		t.Errorf("handshakes = %d, want 2", srv.Handshakes())
	}
	if !c.Authenticated() {
		t.Fatal("Authenticated() = false, rotated key was not used")
	}
	if _, err := c.Query(ctx, xpipe.QueryFilter{}); err != nil {
		t.Errorf("Query() error = %v", err)
	}
}

func TestRequests_CarryRequestIDAndUserAgent(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv, xpipe.WithClientName("xpipe-go-test"))

	if _, err := c.DaemonVersion(context.Background()); err != nil {
		t.Fatalf("DaemonVersion() error = %v", err)
	}

	reqs := srv.Requests()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	seen := map[string]bool{}
	for _, r := range reqs {
		if len(r.RequestID) != 26 {
			t.Errorf("RequestID = %q, want a ULID", r.RequestID)
		}
		if !strings.HasPrefix(r.UserAgent, "xpipe-go-test/") {
			t.Errorf("UserAgent = %q", r.UserAgent)
		}
		if seen[r.RequestID] {
			t.Errorf("duplicate request id %s", r.RequestID)
		}
		seen[r.RequestID] = true
	}
}

func TestTransportError_PropagatesUnchanged(t *testing.T) {
	srv := newServer(t)
	url := srv.URL
	srv.Close()

	c, err := xpipe.New(xpipe.WithBaseURL(url), xpipe.WithToken("k"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = c.Login(context.Background())
	if err == nil {
		t.Fatal("Login() against a closed server succeeded")
	}
	var apiErr *xpipe.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("refused connection reported as API error: %v", err)
	}
	if errors.Is(err, xpipe.ErrAuthenticationFailed) {
		t.Errorf("refused connection reported as ErrAuthenticationFailed: %v", err)
	}
}
