// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry is a thin tracing wrapper: it extracts W3C trace
// context from envelope metadata, opens child spans, and injects updated
// context back into outgoing envelopes. In this module spans are opened
// around EventContext's emit, request and reply; inbound event handling,
// tool calls and LLM generation are not wrapped in spans.
package telemetry

import (
	"context"

	"github.com/teradata-labs/loom-agent/internal/wire"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Tracer opens spans and carries W3C context across envelope boundaries.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span)
	Extract(ctx context.Context, md map[string]string) context.Context
	Inject(ctx context.Context, md map[string]string)
}

// Span is a single unit of tracing work.
type Span interface {
	End()
	SetError(err error)
	SetAttributes(attrs ...attribute.KeyValue)
}

var propagator = propagation.TraceContext{}

// otelTracer is the real, OTel-backed Tracer implementation, grounded on
// goadesign-goa-ai's runtime/agent/telemetry ClueTracer shape (a thin
// wrapper delegating to an otel.Tracer), generalized here to also own the
// W3C envelope-metadata extract/inject round trip.
type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer backed by the given instrumentation name's
// global otel.Tracer (configured by whatever OTLP exporter the process
// wires up via OTEL_EXPORTER_OTLP_ENDPOINT — exporter wiring itself is out
// of scope here).
func NewTracer(instrumentationName string) Tracer {
	return &otelTracer{tracer: otel.Tracer(instrumentationName)}
}

func (t *otelTracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &otelSpan{span: span}
}

// Extract pulls W3C traceparent/tracestate out of envelope metadata and
// returns a context carrying the remote span context as parent.
func (t *otelTracer) Extract(ctx context.Context, md map[string]string) context.Context {
	carrier := mdCarrier(md)
	return propagator.Extract(ctx, carrier)
}

// Inject writes the current span context's traceparent/tracestate back
// into envelope metadata for the outgoing Envelope.
func (t *otelTracer) Inject(ctx context.Context, md map[string]string) {
	carrier := mdCarrier(md)
	propagator.Inject(ctx, carrier)
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *otelSpan) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// mdCarrier adapts an envelope's string metadata map to
// propagation.TextMapCarrier, reading/writing the reserved
// traceparent/tracestate keys alongside the loom.*-prefixed ones.
type mdCarrier map[string]string

func (c mdCarrier) Get(key string) string { return c[key] }
func (c mdCarrier) Set(key, value string) { c[key] = value }
func (c mdCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// NoopTracer discards all spans; used when telemetry is disabled
// (LOOM_TELEMETRY_AUTO=false).
type NoopTracer struct{}

func NewNoopTracer() Tracer { return NoopTracer{} }

func (NoopTracer) Start(ctx context.Context, _ string, _ ...attribute.KeyValue) (context.Context, Span) {
	return ctx, noopSpan{}
}
func (NoopTracer) Extract(ctx context.Context, _ map[string]string) context.Context { return ctx }
func (NoopTracer) Inject(context.Context, map[string]string)                        {}

type noopSpan struct{}

func (noopSpan) End()                                {}
func (noopSpan) SetError(error)                      {}
func (noopSpan) SetAttributes(...attribute.KeyValue) {}

// EnvelopeMetadata extracts the envelope's metadata map for use as a
// propagation carrier, creating one if absent.
func EnvelopeMetadata(e *wire.Envelope) map[string]string {
	if e.Metadata == nil {
		e.Metadata = map[string]string{}
	}
	return e.Metadata
}
