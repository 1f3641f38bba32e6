// Package bridge translates native model event streams into AG-UI
// protocol events.
//
// Two translators are provided. StrandsBridge understands the Bedrock
// ConverseStream event shapes a streaming agent loop yields (text deltas
// plus raw contentBlock lifecycle events). LangChainBridge understands
// the event taxonomy LangChain's astream_events v2 emits. Both keep just
// enough state to stitch deltas into well-formed AG-UI sequences.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/droverhq/drover/pkg/agui"
)

// DefaultToolCallResult is reported when a tool call completes without a
// surfaced result payload.
const DefaultToolCallResult = "Tool executed successfully"

// StrandsBridge converts a Bedrock-native agent event stream into AG-UI
// events. It tracks the open message and tool call so deltas attach to
// the right ids.
type StrandsBridge struct {
	currentMessageID  string
	currentToolCallID string
	toolArgsBuffer    string
	toolName          string
}

// NewStrandsBridge creates a bridge with no open message or tool call.
func NewStrandsBridge() *StrandsBridge {
	return &StrandsBridge{}
}

// CurrentMessageID returns the id of the open message, or "" when none.
func (b *StrandsBridge) CurrentMessageID() string { return b.currentMessageID }

// CurrentToolCallID returns the id of the open tool call, or "" when none.
func (b *StrandsBridge) CurrentToolCallID() string { return b.currentToolCallID }

// ToolArgsBuffer returns the tool arguments accumulated so far.
func (b *StrandsBridge) ToolArgsBuffer() string { return b.toolArgsBuffer }

// StartRun emits the run-started event.
func (b *StrandsBridge) StartRun(threadID, runID string) *agui.RunStartedEvent {
	return agui.NewRunStartedEvent(threadID, runID)
}

// StartMessage opens a new streaming message with a fresh id.
func (b *StrandsBridge) StartMessage(role string) *agui.TextMessageStartEvent {
	b.currentMessageID = agui.NewID()
	return agui.NewTextMessageStartEvent(b.currentMessageID, agui.WithRole(role))
}

// AddTextContent emits a content delta for the open message.
func (b *StrandsBridge) AddTextContent(text string) *agui.TextMessageContentEvent {
	return agui.NewTextMessageContentEvent(b.currentMessageID, text)
}

// EndMessage closes the open message.
func (b *StrandsBridge) EndMessage() *agui.TextMessageEndEvent {
	return agui.NewTextMessageEndEvent(b.currentMessageID)
}

// StartToolCall opens a tool call with a fresh id, parented to the open
// message, and resets the argument buffer.
func (b *StrandsBridge) StartToolCall(toolName string) *agui.ToolCallStartEvent {
	b.currentToolCallID = agui.NewID()
	b.toolName = toolName
	b.toolArgsBuffer = ""

	var opts []agui.ToolCallStartOption
	if b.currentMessageID != "" {
		opts = append(opts, agui.WithParentMessageID(b.currentMessageID))
	}
	return agui.NewToolCallStartEvent(b.currentToolCallID, toolName, opts...)
}

// AddToolArgs appends a chunk to the argument buffer and emits it as a
// delta on the open tool call.
func (b *StrandsBridge) AddToolArgs(argsChunk string) *agui.ToolCallArgsEvent {
	b.toolArgsBuffer += argsChunk
	return agui.NewToolCallArgsEvent(b.currentToolCallID, argsChunk)
}

// EndToolCall reports the call result and closes the call, clearing tool
// state. Pass DefaultToolCallResult when the runner has no output to
// surface.
func (b *StrandsBridge) EndToolCall(result string) []agui.Event {
	events := []agui.Event{
		agui.NewToolCallResultEvent(b.currentMessageID, b.currentToolCallID, result),
		agui.NewToolCallEndEvent(b.currentToolCallID),
	}
	b.currentToolCallID = ""
	b.toolArgsBuffer = ""
	b.toolName = ""
	return events
}

// FinishRun emits the run-finished event carrying the final result.
func (b *StrandsBridge) FinishRun(threadID, runID string, result any) *agui.RunFinishedEvent {
	var opts []agui.RunFinishedOption
	if result != nil {
		opts = append(opts, agui.WithResult(result))
	}
	return agui.NewRunFinishedEvent(threadID, runID, opts...)
}

// ErrorEvent emits a run-error event.
func (b *StrandsBridge) ErrorEvent(message string) *agui.RunErrorEvent {
	return agui.NewRunErrorEvent(message)
}

// ConvertEvent translates one native agent event into zero or more AG-UI
// events.
//
// Recognized shapes:
//   - {"data": ..., "delta": ...}: a streamed text chunk.
//   - {"event":{"contentBlockStart":{"start":{"toolUse":{"name":...}}}}}:
//     a tool call opening.
//   - {"event":{"contentBlockDelta":{"delta":{"toolUse":{"input":...}}}}}:
//     streamed tool arguments, emitted only while a call is open.
//   - {"event":{"contentBlockStop":...}}: closes the open tool call.
//
// Anything else produces no events.
func (b *StrandsBridge) ConvertEvent(native map[string]any) []agui.Event {
	var events []agui.Event
	if native == nil {
		return events
	}

	_, hasData := native["data"]
	_, hasDelta := native["delta"]
	if hasData && hasDelta {
		events = append(events, b.AddTextContent(stringify(native["data"])))
		return events
	}

	eventData, ok := native["event"].(map[string]any)
	if !ok {
		return events
	}

	if blockStart, ok := eventData["contentBlockStart"].(map[string]any); ok {
		startData, _ := blockStart["start"].(map[string]any)
		if toolUse, ok := startData["toolUse"].(map[string]any); ok {
			name, _ := toolUse["name"].(string)
			events = append(events, b.StartToolCall(name))
		}
	} else if blockDelta, ok := eventData["contentBlockDelta"].(map[string]any); ok {
		if delta, ok := blockDelta["delta"].(map[string]any); ok {
			if toolUse, ok := delta["toolUse"].(map[string]any); ok {
				if b.currentToolCallID != "" && !emptyToolInput(toolUse["input"]) {
					events = append(events, b.AddToolArgs(stringify(toolUse["input"])))
				}
			}
		}
	} else if _, ok := eventData["contentBlockStop"]; ok && b.currentToolCallID != "" {
		events = append(events, b.EndToolCall(DefaultToolCallResult)...)
	}

	return events
}

// emptyToolInput reports whether a streamed input chunk carries nothing
// worth emitting: absent, an empty string, or an empty container.
func emptyToolInput(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return value == ""
	case map[string]any:
		return len(value) == 0
	case []any:
		return len(value) == 0
	}
	return false
}

// stringify renders a native event value as text. Strings pass through,
// nil becomes empty, structured values render as JSON.
func stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		if data, err := json.Marshal(value); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", value)
	}
}
