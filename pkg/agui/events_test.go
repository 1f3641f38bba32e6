package agui

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// WIRE FORMAT TESTS
// Field names and event type strings must match the AG-UI SDKs exactly.
// ============================================================================

func TestEventWireFormat(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		expected string
	}{
		{
			name:     "run_started",
			event:    NewRunStartedEvent("thread-1", "run-1"),
			expected: `{"type":"RUN_STARTED","threadId":"thread-1","runId":"run-1"}`,
		},
		{
			name:     "run_finished",
			event:    NewRunFinishedEvent("thread-1", "run-1"),
			expected: `{"type":"RUN_FINISHED","threadId":"thread-1","runId":"run-1"}`,
		},
		{
			name:     "run_finished_with_result",
			event:    NewRunFinishedEvent("thread-1", "run-1", WithResult(map[string]any{"answer": "42"})),
			expected: `{"type":"RUN_FINISHED","threadId":"thread-1","runId":"run-1","result":{"answer":"42"}}`,
		},
		{
			name:     "run_error",
			event:    NewRunErrorEvent("model unavailable"),
			expected: `{"type":"RUN_ERROR","message":"model unavailable"}`,
		},
		{
			name:     "run_error_with_code",
			event:    NewRunErrorEvent("model unavailable", WithErrorCode("UPSTREAM")),
			expected: `{"type":"RUN_ERROR","message":"model unavailable","code":"UPSTREAM"}`,
		},
		{
			name:     "text_message_start",
			event:    NewTextMessageStartEvent("msg-1", WithRole("assistant")),
			expected: `{"type":"TEXT_MESSAGE_START","messageId":"msg-1","role":"assistant"}`,
		},
		{
			name:     "text_message_content",
			event:    NewTextMessageContentEvent("msg-1", "Hello"),
			expected: `{"type":"TEXT_MESSAGE_CONTENT","messageId":"msg-1","delta":"Hello"}`,
		},
		{
			name:     "text_message_end",
			event:    NewTextMessageEndEvent("msg-1"),
			expected: `{"type":"TEXT_MESSAGE_END","messageId":"msg-1"}`,
		},
		{
			name:     "tool_call_start",
			event:    NewToolCallStartEvent("tc-1", "get_campaigns", WithParentMessageID("msg-1")),
			expected: `{"type":"TOOL_CALL_START","toolCallId":"tc-1","toolCallName":"get_campaigns","parentMessageId":"msg-1"}`,
		},
		{
			name:     "tool_call_args",
			event:    NewToolCallArgsEvent("tc-1", `{"limit":`),
			expected: `{"type":"TOOL_CALL_ARGS","toolCallId":"tc-1","delta":"{\"limit\":"}`,
		},
		{
			name:     "tool_call_end",
			event:    NewToolCallEndEvent("tc-1"),
			expected: `{"type":"TOOL_CALL_END","toolCallId":"tc-1"}`,
		},
		{
			name:     "tool_call_result",
			event:    NewToolCallResultEvent("msg-2", "tc-1", "Tool executed successfully"),
			expected: `{"type":"TOOL_CALL_RESULT","messageId":"msg-2","toolCallId":"tc-1","content":"Tool executed successfully","role":"tool"}`,
		},
		{
			name:     "step_started",
			event:    NewStepStartedEvent("plan"),
			expected: `{"type":"STEP_STARTED","stepName":"plan"}`,
		},
		{
			name:     "step_finished",
			event:    NewStepFinishedEvent("plan"),
			expected: `{"type":"STEP_FINISHED","stepName":"plan"}`,
		},
		{
			name:     "custom",
			event:    NewCustomEvent("metrics", WithValue(map[string]any{"latency": 12.5})),
			expected: `{"type":"CUSTOM","name":"metrics","value":{"latency":12.5}}`,
		},
		{
			name:     "raw",
			event:    NewRawEvent(map[string]any{"payload": "x"}, WithSource("bedrock")),
			expected: `{"type":"RAW","event":{"payload":"x"},"source":"bedrock"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(data))
		})
	}
}

func TestEventTimestampOptional(t *testing.T) {
	event := NewTextMessageContentEvent("msg-1", "hi")
	assert.Nil(t, event.Timestamp())

	event.SetTimestamp(1700000000000)
	require.NotNil(t, event.Timestamp())
	assert.Equal(t, int64(1700000000000), *event.Timestamp())

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp":1700000000000`)
}

// ============================================================================
// VALIDATION TESTS
// ============================================================================

func TestEventValidation(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{name: "valid_run_started", event: NewRunStartedEvent("t", "r"), wantErr: false},
		{name: "run_started_missing_thread", event: NewRunStartedEvent("", "r"), wantErr: true},
		{name: "run_started_missing_run", event: NewRunStartedEvent("t", ""), wantErr: true},
		{name: "run_error_missing_message", event: NewRunErrorEvent(""), wantErr: true},
		{name: "message_content_empty_delta", event: NewTextMessageContentEvent("m", ""), wantErr: true},
		{name: "message_content_missing_id", event: NewTextMessageContentEvent("", "hi"), wantErr: true},
		{name: "tool_call_start_missing_name", event: NewToolCallStartEvent("tc", ""), wantErr: true},
		{name: "tool_call_start_missing_id", event: NewToolCallStartEvent("", "search"), wantErr: true},
		{name: "tool_call_result_missing_call", event: NewToolCallResultEvent("m", "", "ok"), wantErr: true},
		{name: "state_delta_empty", event: NewStateDeltaEvent(nil), wantErr: true},
		{name: "state_snapshot_nil", event: NewStateSnapshotEvent(nil), wantErr: true},
		{name: "custom_missing_name", event: NewCustomEvent(""), wantErr: true},
		{
			name:    "invalid_type",
			event:   &RunStartedEvent{BaseEvent: &BaseEvent{EventType: "NOT_A_TYPE"}, ThreadID: "t", RunID: "r"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
