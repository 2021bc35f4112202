package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func slogGroup(name string, args ...any) slog.Attr {
	return slog.Group(name, args...)
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "01J0000000000000000000000")
	if got := RequestIDFromContext(ctx); got != "01J0000000000000000000000" {
		t.Errorf("RequestIDFromContext() = %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context returned %q", got)
	}
}

func TestL_NilBaseUsesDefault(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Output: &buf})
	prev := Default()
	SetDefault(l)
	defer SetDefault(prev)

	L(WithRequestID(context.Background(), "req-2"), nil).Info("fallback")
	if !strings.Contains(buf.String(), "request_id=req-2") {
		t.Errorf("default logger not used: %q", buf.String())
	}
}

func TestL_AddsRequestAndTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	base, _ := New(Config{Format: "json", Output: &buf})

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	ctx = WithRequestID(ctx, "req-1")
	L(ctx, base).Info("call")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("request_id missing: %s", out)
	}
	if !strings.Contains(out, span.SpanContext().TraceID().String()) {
		t.Errorf("trace_id missing: %s", out)
	}
}
