// Copyright 2025 The Drover Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// maxPayloadLength caps captured payload attributes so a single span cannot
// blow past collector message limits.
const maxPayloadLength = 4096

// Tracer wraps the OpenTelemetry tracer with drover-specific helpers.
// A nil *Tracer is valid and produces non-recording spans, so callers
// never need to guard their instrumentation sites.
type Tracer struct {
	provider       *sdktrace.TracerProvider
	tracer         trace.Tracer
	capturePayload bool
}

// NewTracer creates a Tracer from configuration. It returns (nil, nil)
// when tracing is disabled; the nil Tracer is safe to use.
func NewTracer(ctx context.Context, cfg *TracingConfig) (*Tracer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	cfg.SetDefaults()

	exporter, err := createSpanExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String(AttrGenAISystem, "drover"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{
		provider:       provider,
		tracer:         provider.Tracer(cfg.ServiceName),
		capturePayload: cfg.CapturePayloads,
	}, nil
}

// createSpanExporter creates the span exporter selected by configuration.
func createSpanExporter(ctx context.Context, cfg *TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp":
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithTimeout(cfg.Timeout),
		}
		if cfg.IsInsecure() {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		return otlptracegrpc.New(ctx, opts...)
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}
}

// Start begins a new span with the given name.
func (t *Tracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, noopSpan()
	}
	return t.tracer.Start(ctx, spanName, opts...)
}

// StartAgentRun begins the top-level span for one agent invocation.
func (t *Tracer) StartAgentRun(ctx context.Context, agentName, sessionID, userID, invocationID string) (context.Context, trace.Span) {
	return t.Start(ctx, SpanAgentRun,
		trace.WithAttributes(
			attribute.String(AttrAgentName, agentName),
			attribute.String(AttrSessionID, sessionID),
			attribute.String(AttrUserID, userID),
			attribute.String(AttrInvocationID, invocationID),
		),
	)
}

// StartModelCall begins a span for one Converse round trip.
func (t *Tracer) StartModelCall(ctx context.Context, model string, maxTokens int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrGenAIOperationName, OpChat),
		attribute.String(AttrGenAIRequestModel, model),
	}
	if maxTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrGenAIRequestMaxTokens, maxTokens))
	}
	return t.Start(ctx, SpanModelCall, trace.WithAttributes(attrs...))
}

// StartToolExecution begins a span for one tool execution.
func (t *Tracer) StartToolExecution(ctx context.Context, toolName, toolDescription, callID string) (context.Context, trace.Span) {
	return t.Start(ctx, SpanToolExecution,
		trace.WithAttributes(
			attribute.String(AttrGenAIOperationName, OpToolCall),
			attribute.String(AttrGenAIToolName, toolName),
			attribute.String(AttrGenAIToolDescription, toolDescription),
			attribute.String(AttrGenAIToolCallID, callID),
		),
	)
}

// StartSessionLoad begins a span for loading conversation history.
func (t *Tracer) StartSessionLoad(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return t.Start(ctx, SpanSessionLoad,
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
		),
	)
}

// AddModelUsage adds token usage information to a span.
func (t *Tracer) AddModelUsage(span trace.Span, inputTokens, outputTokens int) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int(AttrGenAIUsageInputTokens, inputTokens),
		attribute.Int(AttrGenAIUsageOutputTokens, outputTokens),
	)
}

// AddFinishReason adds the stop reason to a span.
func (t *Tracer) AddFinishReason(span trace.Span, reason string) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.String(AttrGenAIResponseFinishReason, reason))
}

// AddModelPayload adds serialized request/response to a span when payload
// capture is enabled.
func (t *Tracer) AddModelPayload(span trace.Span, request, response string) {
	if t == nil || span == nil || !t.capturePayload {
		return
	}
	if request != "" {
		span.SetAttributes(attribute.String(AttrModelRequest, truncate(request, maxPayloadLength)))
	}
	if response != "" {
		span.SetAttributes(attribute.String(AttrModelResponse, truncate(response, maxPayloadLength)))
	}
}

// AddToolPayload adds serialized tool args/response to a span when payload
// capture is enabled.
func (t *Tracer) AddToolPayload(span trace.Span, args, response string) {
	if t == nil || span == nil || !t.capturePayload {
		return
	}
	if args != "" {
		span.SetAttributes(attribute.String(AttrToolArgs, truncate(args, maxPayloadLength)))
	}
	if response != "" {
		span.SetAttributes(attribute.String(AttrToolResponse, truncate(response, maxPayloadLength)))
	}
}

// RecordError records an error on a span.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(
		attribute.String(AttrErrorType, fmt.Sprintf("%T", err)),
		attribute.String(AttrErrorMessage, err.Error()),
	)
}

// Shutdown flushes pending spans and shuts the provider down.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// noopSpan returns a non-recording span satisfying the trace.Span interface.
func noopSpan() trace.Span {
	_, span := noop.NewTracerProvider().Tracer("drover").Start(context.Background(), "noop")
	return span
}

// truncate caps s at max characters, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
