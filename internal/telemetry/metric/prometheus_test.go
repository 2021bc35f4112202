package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.registry == nil {
		t.Fatal("registry field is nil")
	}
	if r.RequestsTotal == nil || r.RequestDuration == nil || r.ShellsOpen == nil {
		t.Error("metric field left nil")
	}
}

func TestNewRegistry_Independent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.ShellStarted()
	if got := testutil.ToFloat64(b.ShellsOpen); got != 0 {
		t.Errorf("registries share state: shells_open = %v", got)
	}
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
	body := scrape(t, Global())
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if Handler() == nil {
		t.Error("Handler() returned nil")
	}
}

func TestObserveRequest(t *testing.T) {
	r := NewRegistry()

	r.ObserveRequest("/shell/exec", 200, 5*time.Millisecond)
	r.ObserveRequest("/shell/exec", 200, 10*time.Millisecond)
	r.ObserveRequest("/connection/info", 404, time.Millisecond)
	r.ObserveRequest("/handshake", 0, time.Millisecond)

	if got := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("/shell/exec", "200")); got != 2 {
		t.Errorf("exec 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("/connection/info", "404")); got != 1 {
		t.Errorf("info 404 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("/handshake", "error")); got != 1 {
		t.Errorf("handshake error = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(r.RequestDuration); n != 3 {
		t.Errorf("duration series = %d, want 3", n)
	}
}

func TestShellAndCommandMetrics(t *testing.T) {
	r := NewRegistry()

	r.ShellStarted()
	r.ShellStarted()
	r.ShellStopped()
	r.RecordCommand(OutcomeSuccess)
	r.RecordCommand(OutcomeNonZero)
	r.RecordCommand(OutcomeSuccess)
	r.AddBlobBytes(1024)
	r.AddBlobBytes(2048)
	r.RecordLogin("success")

	body := scrape(t, r)
	for _, want := range []string{
		"xpipe_client_shells_open 1",
		"xpipe_client_shells_started_total 2",
		`xpipe_client_commands_total{outcome="success"} 2`,
		`xpipe_client_commands_total{outcome="nonzero"} 1`,
		"xpipe_client_blob_bytes_total 3072",
		`xpipe_client_logins_total{result="success"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in scrape output", want)
		}
	}
}

func TestNew_SharesCollectorsOnSameRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg)
	b := New(reg)

	a.RecordCommand(OutcomeSuccess)
	b.RecordCommand(OutcomeSuccess)

	if got := testutil.ToFloat64(a.CommandsExecuted.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Errorf("shared counter = %v, want 2", got)
	}
	if a.Gatherer() != nil {
		t.Error("Gatherer() should be nil for an external registerer")
	}
}
