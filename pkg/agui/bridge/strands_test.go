package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droverhq/drover/pkg/agui"
)

func TestStrandsBridge_TextStreaming(t *testing.T) {
	b := NewStrandsBridge()

	var events []agui.Event
	events = append(events, b.StartRun("thread-1", "thread-1_user-1"))
	events = append(events, b.StartMessage("assistant"))

	messageID := b.CurrentMessageID()
	require.NotEmpty(t, messageID)

	for _, chunk := range []string{"Hello", ", ", "world"} {
		converted := b.ConvertEvent(map[string]any{"data": chunk, "delta": map[string]any{"text": chunk}})
		require.Len(t, converted, 1)

		content, ok := converted[0].(*agui.TextMessageContentEvent)
		require.True(t, ok)
		assert.Equal(t, messageID, content.MessageID)
		assert.Equal(t, chunk, content.Delta)
		events = append(events, converted...)
	}

	events = append(events, b.EndMessage())
	events = append(events, b.FinishRun("thread-1", "thread-1_user-1", map[string]any{"answer": "done"}))

	assert.NoError(t, agui.VerifySequence(events))
}

func TestStrandsBridge_ToolCallLifecycle(t *testing.T) {
	b := NewStrandsBridge()
	b.StartMessage("assistant")
	messageID := b.CurrentMessageID()

	// Tool call opens
	startEvents := b.ConvertEvent(map[string]any{
		"event": map[string]any{
			"contentBlockStart": map[string]any{
				"start": map[string]any{
					"toolUse": map[string]any{"name": "get_campaigns"},
				},
			},
		},
	})
	require.Len(t, startEvents, 1)
	start, ok := startEvents[0].(*agui.ToolCallStartEvent)
	require.True(t, ok)
	assert.Equal(t, "get_campaigns", start.ToolCallName)
	require.NotNil(t, start.ParentMessageID)
	assert.Equal(t, messageID, *start.ParentMessageID)

	toolCallID := b.CurrentToolCallID()
	require.NotEmpty(t, toolCallID)

	// Streamed argument chunks accumulate in the buffer
	for _, chunk := range []string{`{"advertiser`, `_id": 42}`} {
		argEvents := b.ConvertEvent(map[string]any{
			"event": map[string]any{
				"contentBlockDelta": map[string]any{
					"delta": map[string]any{
						"toolUse": map[string]any{"input": chunk},
					},
				},
			},
		})
		require.Len(t, argEvents, 1)
		args, ok := argEvents[0].(*agui.ToolCallArgsEvent)
		require.True(t, ok)
		assert.Equal(t, toolCallID, args.ToolCallID)
		assert.Equal(t, chunk, args.Delta)
	}
	assert.Equal(t, `{"advertiser_id": 42}`, b.ToolArgsBuffer())

	// Block stop closes the call with the default result
	stopEvents := b.ConvertEvent(map[string]any{
		"event": map[string]any{"contentBlockStop": map[string]any{}},
	})
	require.Len(t, stopEvents, 2)

	result, ok := stopEvents[0].(*agui.ToolCallResultEvent)
	require.True(t, ok)
	assert.Equal(t, toolCallID, result.ToolCallID)
	assert.Equal(t, messageID, result.MessageID)
	assert.Equal(t, DefaultToolCallResult, result.Content)
	require.NotNil(t, result.Role)
	assert.Equal(t, "tool", *result.Role)

	end, ok := stopEvents[1].(*agui.ToolCallEndEvent)
	require.True(t, ok)
	assert.Equal(t, toolCallID, end.ToolCallID)

	// Tool state cleared
	assert.Empty(t, b.CurrentToolCallID())
	assert.Empty(t, b.ToolArgsBuffer())
}

func TestStrandsBridge_ConvertEvent_Ignored(t *testing.T) {
	b := NewStrandsBridge()
	b.StartMessage("assistant")

	tests := []struct {
		name   string
		native map[string]any
	}{
		{name: "nil_event", native: nil},
		{name: "data_without_delta", native: map[string]any{"data": "text"}},
		{name: "message_start", native: map[string]any{"event": map[string]any{"messageStart": map[string]any{"role": "assistant"}}}},
		{name: "message_stop", native: map[string]any{"event": map[string]any{"messageStop": map[string]any{"stopReason": "end_turn"}}}},
		{
			name: "tool_args_without_open_call",
			native: map[string]any{
				"event": map[string]any{
					"contentBlockDelta": map[string]any{
						"delta": map[string]any{"toolUse": map[string]any{"input": "{}"}},
					},
				},
			},
		},
		{name: "block_stop_without_open_call", native: map[string]any{"event": map[string]any{"contentBlockStop": map[string]any{}}}},
		{name: "unrelated_keys", native: map[string]any{"result": "final"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, b.ConvertEvent(tt.native))
		})
	}
}

func TestStrandsBridge_EmptyToolInputSkipped(t *testing.T) {
	empty := []struct {
		name  string
		input any
	}{
		{"empty string", ""},
		{"nil", nil},
		{"empty map", map[string]any{}},
		{"empty list", []any{}},
	}
	for _, tt := range empty {
		t.Run(tt.name, func(t *testing.T) {
			b := NewStrandsBridge()
			b.StartMessage("assistant")
			b.StartToolCall("search")

			events := b.ConvertEvent(map[string]any{
				"event": map[string]any{
					"contentBlockDelta": map[string]any{
						"delta": map[string]any{"toolUse": map[string]any{"input": tt.input}},
					},
				},
			})
			assert.Empty(t, events)
			assert.Empty(t, b.ToolArgsBuffer())
		})
	}

	// A populated map still streams, JSON-rendered.
	b := NewStrandsBridge()
	b.StartMessage("assistant")
	b.StartToolCall("search")

	events := b.ConvertEvent(map[string]any{
		"event": map[string]any{
			"contentBlockDelta": map[string]any{
				"delta": map[string]any{"toolUse": map[string]any{"input": map[string]any{"q": "ads"}}},
			},
		},
	})
	require.Len(t, events, 1)
	args := events[0].(*agui.ToolCallArgsEvent)
	assert.Equal(t, `{"q":"ads"}`, args.Delta)
}

func TestStrandsBridge_NonStringData(t *testing.T) {
	b := NewStrandsBridge()
	b.StartMessage("assistant")

	events := b.ConvertEvent(map[string]any{
		"data":  map[string]any{"text": "structured"},
		"delta": map[string]any{},
	})
	require.Len(t, events, 1)
	content := events[0].(*agui.TextMessageContentEvent)
	assert.Equal(t, `{"text":"structured"}`, content.Delta)
}

func TestStrandsBridge_EndToolCallCustomResult(t *testing.T) {
	b := NewStrandsBridge()
	b.StartMessage("assistant")
	b.StartToolCall("calculator")

	events := b.EndToolCall("8")
	require.Len(t, events, 2)
	result := events[0].(*agui.ToolCallResultEvent)
	assert.Equal(t, "8", result.Content)
}

func TestStrandsBridge_ErrorEvent(t *testing.T) {
	b := NewStrandsBridge()
	event := b.ErrorEvent("model timed out")
	assert.Equal(t, agui.EventTypeRunError, event.Type())
	assert.Equal(t, "model timed out", event.Message)
}

func TestStrandsBridge_FreshIDsPerMessage(t *testing.T) {
	b := NewStrandsBridge()

	first := b.StartMessage("assistant")
	second := b.StartMessage("assistant")
	assert.NotEqual(t, first.MessageID, second.MessageID)
	assert.Equal(t, second.MessageID, b.CurrentMessageID())
}
