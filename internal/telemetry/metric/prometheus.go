package metric

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "xpipe_client"

// Command outcomes recorded by RecordCommand.
const (
	OutcomeSuccess = "success"
	OutcomeNonZero = "nonzero"
	OutcomeError   = "error"
)

// Registry holds all client metrics.
type Registry struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Logins          *prometheus.CounterVec

	ShellsOpen       prometheus.Gauge
	ShellsStarted    prometheus.Counter
	CommandsExecuted *prometheus.CounterVec

	BlobBytes prometheus.Counter
}

var (
	globalRegistry *Registry
	globalOnce     sync.Once
)

// Global returns the process-wide registry, including Go runtime and
// process collectors.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
		globalRegistry.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	return globalRegistry
}

// NewRegistry creates a registry backed by its own prometheus.Registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := New(reg)
	r.registry = reg
	return r
}

// New registers the client metrics with reg. Collectors already registered
// there by another Registry are shared, so several clients may report into
// the same registerer.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "API requests by endpoint and HTTP status code.",
			},
			[]string{"endpoint", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "API request latency.",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Handshake attempts by result.",
			},
			[]string{"result"},
		),
		ShellsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shells_open",
			Help:      "Shell sessions currently open.",
		}),
		ShellsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shells_started_total",
			Help:      "Shell sessions started.",
		}),
		CommandsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Commands executed on shell sessions by outcome.",
			},
			[]string{"outcome"},
		),
		BlobBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_bytes_total",
			Help:      "Bytes uploaded as blobs.",
		}),
	}

	r.RequestsTotal = register(reg, r.RequestsTotal)
	r.RequestDuration = register(reg, r.RequestDuration)
	r.Logins = register(reg, r.Logins)
	r.ShellsOpen = register(reg, r.ShellsOpen)
	r.ShellsStarted = register(reg, r.ShellsStarted)
	r.CommandsExecuted = register(reg, r.CommandsExecuted)
	r.BlobBytes = register(reg, r.BlobBytes)

	return r
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveRequest records one API round trip. A status of 0 means the
// request never got a response and is labelled "error".
func (r *Registry) ObserveRequest(endpoint string, status int, d time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	r.RequestsTotal.WithLabelValues(endpoint, code).Inc()
	r.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordLogin records a handshake result ("success" or "failure").
func (r *Registry) RecordLogin(result string) {
	r.Logins.WithLabelValues(result).Inc()
}

// ShellStarted records a newly opened shell session.
func (r *Registry) ShellStarted() {
	r.ShellsStarted.Inc()
	r.ShellsOpen.Inc()
}

// ShellStopped records a closed shell session.
func (r *Registry) ShellStopped() {
	r.ShellsOpen.Dec()
}

// RecordCommand records a command execution outcome.
func (r *Registry) RecordCommand(outcome string) {
	r.CommandsExecuted.WithLabelValues(outcome).Inc()
}

// AddBlobBytes records uploaded blob payload size.
func (r *Registry) AddBlobBytes(n int) {
	r.BlobBytes.Add(float64(n))
}

// Gatherer returns the backing registry. It is nil for registries created
// with New.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r.registry == nil {
		return nil
	}
	return r.registry
}

// Registerer returns the backing registry for additional collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	if r.registry == nil {
		return nil
	}
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	if r.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Handler returns an HTTP handler serving the global registry.
func Handler() http.Handler {
	return Global().Handler()
}
