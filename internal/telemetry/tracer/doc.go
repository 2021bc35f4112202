// Package tracer wires OpenTelemetry tracing for the xpipe client.
//
// StartSpan falls back to the globally registered tracer provider when no
// tracer is given, so such spans are no-ops until an application installs
// one. The CLI installs a Provider backed by the stdout exporter when --trace
// is given.
package tracer
