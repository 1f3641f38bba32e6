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

// Package observability provides OpenTelemetry tracing and metrics.
//
// Tracing exports spans over OTLP gRPC (or to stdout for local debugging)
// and follows the GenAI semantic conventions so drover spans line up with
// the rest of the agent ecosystem. Metrics use lazily created histograms:
// callers record latencies and events by name and the instruments are
// created on first use. The metrics side can expose a Prometheus scrape
// endpoint or push to an OTLP collector on a fixed interval.
//
// Configure observability in drover.yaml:
//
//	observability:
//	  tracing:
//	    enabled: true
//	    exporter: otlp
//	    endpoint: localhost:4317
//	    sampling_rate: 1.0
//	  metrics:
//	    enabled: true
//	    exporter: prometheus
//	    path: /metrics
package observability

import "time"

// =============================================================================
// GenAI Semantic Conventions (OpenTelemetry GenAI SIG)
// =============================================================================

const (
	// AttrGenAISystem identifies the GenAI system producing the span.
	AttrGenAISystem = "gen_ai.system"

	// AttrGenAIOperationName is the operation being performed.
	// Values: "chat", "execute_tool"
	AttrGenAIOperationName = "gen_ai.operation.name"

	// AttrGenAIRequestModel is the model identifier sent in the request.
	AttrGenAIRequestModel = "gen_ai.request.model"

	// AttrGenAIRequestMaxTokens is the maximum tokens requested.
	AttrGenAIRequestMaxTokens = "gen_ai.request.max_tokens"

	// AttrGenAIResponseFinishReason is why generation stopped.
	// Values: "end_turn", "tool_use", "max_tokens", "stop_sequence"
	AttrGenAIResponseFinishReason = "gen_ai.response.finish_reason"

	// AttrGenAIUsageInputTokens is the number of input tokens consumed.
	AttrGenAIUsageInputTokens = "gen_ai.usage.input_tokens"

	// AttrGenAIUsageOutputTokens is the number of output tokens produced.
	AttrGenAIUsageOutputTokens = "gen_ai.usage.output_tokens"

	// AttrGenAIToolName is the name of the tool being called.
	AttrGenAIToolName = "gen_ai.tool.name"

	// AttrGenAIToolDescription is the description of the tool.
	AttrGenAIToolDescription = "gen_ai.tool.description"

	// AttrGenAIToolCallID is the unique ID of the tool call.
	AttrGenAIToolCallID = "gen_ai.tool.call.id"
)

// =============================================================================
// Drover-Specific Attributes
// =============================================================================

const (
	// AttrAgentName is the configured agent name.
	AttrAgentName = "drover.agent.name"

	// AttrInvocationID is the unique ID for one agent invocation.
	AttrInvocationID = "drover.invocation_id"

	// AttrSessionID is the conversation session ID.
	AttrSessionID = "drover.session_id"

	// AttrUserID is the calling user ID.
	AttrUserID = "drover.user_id"

	// AttrModelRequest is the serialized model request (payload capture only).
	AttrModelRequest = "drover.model.request"

	// AttrModelResponse is the serialized model response (payload capture only).
	AttrModelResponse = "drover.model.response"

	// AttrToolArgs is the serialized tool arguments (payload capture only).
	AttrToolArgs = "drover.tool.args"

	// AttrToolResponse is the serialized tool response (payload capture only).
	AttrToolResponse = "drover.tool.response"
)

// =============================================================================
// HTTP Attributes
// =============================================================================

const (
	// AttrHTTPMethod is the HTTP method.
	AttrHTTPMethod = "http.method"

	// AttrHTTPPath is the HTTP route pattern, not the raw path.
	AttrHTTPPath = "http.route"

	// AttrHTTPStatusCode is the HTTP response status code.
	AttrHTTPStatusCode = "http.status_code"

	// AttrHTTPRequestSize is the request body size in bytes.
	AttrHTTPRequestSize = "http.request.body.size"

	// AttrHTTPResponseSize is the response body size in bytes.
	AttrHTTPResponseSize = "http.response.body.size"
)

// =============================================================================
// Error Attributes
// =============================================================================

const (
	// AttrErrorType is the Go type of the error that occurred.
	AttrErrorType = "error.type"

	// AttrErrorMessage is the error message.
	AttrErrorMessage = "error.message"
)

// =============================================================================
// Span Names
// =============================================================================

const (
	// SpanAgentRun is the top-level span for one agent invocation.
	SpanAgentRun = "drover.agent.run"

	// SpanModelCall is a span for one Converse round trip.
	SpanModelCall = "drover.model.converse"

	// SpanToolExecution is a span for one tool execution.
	SpanToolExecution = "drover.tool.execute"

	// SpanSessionLoad is a span for loading conversation history.
	SpanSessionLoad = "drover.session.load"

	// SpanHTTPRequest is a span for HTTP request handling.
	SpanHTTPRequest = "drover.http.request"
)

// =============================================================================
// GenAI Operation Names (for AttrGenAIOperationName)
// =============================================================================

const (
	// OpChat is a chat completion operation.
	OpChat = "chat"

	// OpToolCall is a tool execution operation.
	OpToolCall = "execute_tool"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultServiceName is the default service name for traces.
	DefaultServiceName = "drover"

	// DefaultSamplingRate is the default trace sampling rate.
	DefaultSamplingRate = 1.0

	// DefaultOTLPEndpoint is the default OTLP collector endpoint.
	DefaultOTLPEndpoint = "localhost:4317"

	// DefaultMetricsPath is the default Prometheus scrape path.
	DefaultMetricsPath = "/metrics"

	// DefaultMeterName is the instrumentation scope for drover metrics.
	DefaultMeterName = "drover"

	// DefaultExportInterval is how often the OTLP metric reader pushes.
	DefaultExportInterval = 60 * time.Second

	// DefaultExportTimeout bounds exporter operations.
	DefaultExportTimeout = 10 * time.Second
)
