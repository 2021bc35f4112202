package xpipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yndnr/xpipe-go/internal/telemetry/logger"
	"github.com/yndnr/xpipe-go/internal/telemetry/tracer"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeBinary = "application/octet-stream"
)

// request describes one POST to the daemon. body is JSON encoded unless raw
// is set, in which case raw is sent as an octet stream.
type request struct {
	endpoint  string
	body      any
	raw       []byte
	rawBody   bool
	anonymous bool
}

// call sends req and decodes a JSON response into out (when non-nil).
func (c *Client) call(ctx context.Context, req request, out any) error {
	data, err := c.do(ctx, req, contentTypeJSON)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("xpipe: %s: decode response: %w", req.endpoint, err)
	}
	return nil
}

// callRaw sends req and returns the response body unparsed.
func (c *Client) callRaw(ctx context.Context, req request) ([]byte, error) {
	return c.do(ctx, req, contentTypeBinary)
}

func (c *Client) do(ctx context.Context, req request, accept string) ([]byte, error) {
	var token string
	if !req.anonymous {
		var err error
		if token, err = c.sessionToken(ctx); err != nil {
			return nil, err
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	requestID := ulid.Make().String()
	ctx = logger.WithRequestID(ctx, requestID)
	ctx, span := tracer.StartSpan(ctx, c.tracer, "xpipe "+req.endpoint,
		attribute.String("http.request.method", http.MethodPost),
		attribute.String("url.path", req.endpoint),
		attribute.String("xpipe.request_id", requestID),
	)

	status, data, err := c.roundTrip(ctx, req, accept, token, requestID)
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	tracer.EndSpan(span, err)
	return data, err
}

func (c *Client) roundTrip(ctx context.Context, req request, accept, token, requestID string) (int, []byte, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.rawBody:
		body = bytes.NewReader(req.raw)
		contentType = contentTypeBinary
	case req.body != nil:
		data, err := json.Marshal(req.body)
		if err != nil {
			return 0, nil, fmt.Errorf("xpipe: %s: encode request: %w", req.endpoint, err)
		}
		body = bytes.NewReader(data)
		contentType = contentTypeJSON
	default:
		body = bytes.NewReader([]byte("{}"))
		contentType = contentTypeJSON
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+req.endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("xpipe: %s: create request: %w", req.endpoint, err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	log := logger.L(ctx, c.log)
	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.endpoint, 0, time.Since(start))
		log.Debug("request failed", "endpoint", req.endpoint, "error", err)
		return 0, nil, fmt.Errorf("xpipe: %s: %w", req.endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	c.metrics.ObserveRequest(req.endpoint, resp.StatusCode, elapsed)
	log.Debug("request",
		"endpoint", req.endpoint,
		"status", resp.StatusCode,
		"duration", elapsed,
		"bytes", len(data),
	)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("xpipe: %s: read response: %w", req.endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil, newAPIError(req.endpoint, resp.StatusCode, data)
	}
	return resp.StatusCode, data, nil
}
