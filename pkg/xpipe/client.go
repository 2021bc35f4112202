package xpipe

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/yndnr/xpipe-go/internal/infra/buildinfo"
	"github.com/yndnr/xpipe-go/internal/telemetry/logger"
	"github.com/yndnr/xpipe-go/internal/telemetry/metric"
	"github.com/yndnr/xpipe-go/internal/telemetry/tracer"
	"github.com/yndnr/xpipe-go/pkg/cmap"
)

// Client talks to one XPipe daemon. It is safe for concurrent use, but
// commands on the same shell session must not overlap.
type Client struct {
	baseURL    string
	clientName string
	userAgent  string
	http       *http.Client
	limiter    *rate.Limiter
	log        logger.Logger
	metrics    *metric.Registry
	tracer     trace.Tracer

	authMu  sync.RWMutex
	creds   credentials
	token   string
	authGen uint64
	login   singleflight.Group

	shells *cmap.Map[*ShellSession]
}

// New creates a client. The API key or auth file is resolved here, but no
// request is sent until the first operation or an explicit Login.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	baseURL, err := normalizeBaseURL(o.baseURL)
	if err != nil {
		return nil, err
	}

	creds, err := resolveCredentials(o.token, o.authFile)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:    baseURL,
		clientName: o.clientName,
		userAgent:  buildinfo.UserAgent(o.clientName),
		http:       o.httpClient,
		limiter:    o.limiter,
		log:        logger.NewNop(),
		creds:      creds,
		shells:     cmap.New[*ShellSession](),
	}
	if c.http == nil {
		c.http = newHTTPClient(o)
	}
	if o.logger != nil {
		c.log = logger.FromSlog(o.logger)
	}
	c.log = c.log.With("component", "xpipe")
	if o.registerer != nil {
		c.metrics = metric.New(o.registerer)
	} else {
		c.metrics = metric.NewRegistry()
	}
	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	c.tracer = tp.Tracer(tracer.InstrumentationName)

	return c, nil
}

func newHTTPClient(o options) *http.Client {
	hc := &http.Client{Timeout: o.timeout}
	if o.tlsConfig == nil && o.rootCAs == nil {
		return hc
	}

	tlsCfg := o.tlsConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	} else {
		tlsCfg = tlsCfg.Clone()
	}
	if o.rootCAs != nil {
		tlsCfg.RootCAs = o.rootCAs
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = tlsCfg
	hc.Transport = tr
	return hc
}

func normalizeBaseURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", ErrInvalidArgument.WithDetails("empty base URL")
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	u = strings.TrimRight(u, "/")
	if u == "http:" || u == "https:" {
		return "", ErrInvalidArgument.WithDetails(fmt.Sprintf("invalid base URL %q", raw))
	}
	return u, nil
}

// BaseURL returns the normalised daemon address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OpenShells returns the connections with an open shell session, in a
// stable order.
func (c *Client) OpenShells() []uuid.UUID {
	ids := c.shells.Keys()
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}

// Session returns the open session for a connection.
func (c *Client) Session(id uuid.UUID) (ShellSession, bool) {
	s, ok := c.shells.Get(id)
	if !ok {
		return ShellSession{}, false
	}
	return *s, true
}

// Close stops every open shell session. The session token is kept, so the
// client remains usable afterwards.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	for _, id := range c.OpenShells() {
		if err := c.ShellStop(ctx, id); err != nil && !errors.Is(err, ErrSessionNotOpen) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
