package xpipe

import (
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the address of a locally running daemon.
	DefaultBaseURL = "http://localhost:21721"

	// PTBBaseURL is the address of a locally running public test build.
	PTBBaseURL = "http://localhost:21722"

	// DefaultAuthFile holds the local API key, relative to the working
	// directory.
	DefaultAuthFile = "xpipe_auth"

	// DefaultClientName is reported to the daemon during the handshake.
	DefaultClientName = "xpipe-go"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	token          string
	authFile       string
	baseURL        string
	clientName     string
	httpClient     *http.Client
	timeout        time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
	rootCAs        *x509.CertPool
	tlsConfig      *tls.Config
}

func defaultOptions() options {
	return options{
		authFile:   DefaultAuthFile,
		baseURL:    DefaultBaseURL,
		clientName: DefaultClientName,
	}
}

// WithToken sets an explicit API key. It takes precedence over the auth file,
// which is then not read at all. An empty key is ignored.
func WithToken(key string) Option {
	return func(o *options) {
		o.token = key
	}
}

// WithAuthFile changes the local auth file path.
func WithAuthFile(path string) Option {
	return func(o *options) {
		o.authFile = path
	}
}

// WithBaseURL sets the daemon address. A missing scheme defaults to http.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

// WithPTB targets the public test build daemon on its default port.
func WithPTB() Option {
	return func(o *options) {
		o.baseURL = PTBBaseURL
	}
}

// WithClientName sets the client name sent in the handshake and User-Agent.
func WithClientName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.clientName = name
		}
	}
}

// WithHTTPClient replaces the HTTP client. WithTimeout, WithTLSRoots and
// WithTLSConfig are ignored when it is set.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithTimeout bounds every HTTP round trip. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithRateLimit caps outgoing requests at r per second with the given burst.
func WithRateLimit(r float64, burst int) Option {
	return func(o *options) {
		if r <= 0 {
			o.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithLogger sets the logger. Requests are logged at debug level, shell
// lifecycle at info level. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics registers the client metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTracerProvider sets the provider for request spans. The default is
// the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithTLSRoots trusts pool for HTTPS base URLs.
func WithTLSRoots(pool *x509.CertPool) Option {
	return func(o *options) {
		o.rootCAs = pool
	}
}

// WithTLSConfig sets the full client TLS configuration, including client
// certificates. WithTLSRoots is applied on top when both are given.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *options) {
		o.tlsConfig = cfg
	}
}
