package bridge

import (
	"encoding/json"

	"github.com/droverhq/drover/pkg/agui"
)

// StreamEvent is one event off a LangChain astream_events v2 stream,
// as delivered over the wire by a LangChain-based agent.
type StreamEvent struct {
	Event string          `json:"event"`
	Name  string          `json:"name"`
	RunID string          `json:"run_id"`
	Data  StreamEventData `json:"data"`
}

// StreamEventData holds the event-type-specific payload.
type StreamEventData struct {
	Chunk  map[string]any `json:"chunk,omitempty"`
	Input  map[string]any `json:"input,omitempty"`
	Output any            `json:"output,omitempty"`
}

// LangChainBridge converts LangChain astream_events v2 events into AG-UI
// events. Unlike StrandsBridge it receives tool call ids from the source
// stream, so it keeps no argument buffer.
type LangChainBridge struct {
	currentMessageID  string
	currentToolCallID string
}

// NewLangChainBridge creates a bridge with no open message or tool call.
func NewLangChainBridge() *LangChainBridge {
	return &LangChainBridge{}
}

// CurrentMessageID returns the id of the open message, or "" when none.
func (b *LangChainBridge) CurrentMessageID() string { return b.currentMessageID }

// CurrentToolCallID returns the id of the open tool call, or "" when none.
func (b *LangChainBridge) CurrentToolCallID() string { return b.currentToolCallID }

// StartRun emits the run-started event.
func (b *LangChainBridge) StartRun(threadID, runID string) *agui.RunStartedEvent {
	return agui.NewRunStartedEvent(threadID, runID)
}

// StartMessage opens a new streaming message with a fresh id.
func (b *LangChainBridge) StartMessage(role string) *agui.TextMessageStartEvent {
	b.currentMessageID = agui.NewID()
	return agui.NewTextMessageStartEvent(b.currentMessageID, agui.WithRole(role))
}

// AddTextContent emits a content delta for the open message.
func (b *LangChainBridge) AddTextContent(text string) *agui.TextMessageContentEvent {
	return agui.NewTextMessageContentEvent(b.currentMessageID, text)
}

// EndMessage closes the open message.
func (b *LangChainBridge) EndMessage() *agui.TextMessageEndEvent {
	return agui.NewTextMessageEndEvent(b.currentMessageID)
}

// StartToolCall opens a tool call. LangChain streams carry their own call
// ids; an empty id gets a fresh one.
func (b *LangChainBridge) StartToolCall(toolName, toolCallID string) *agui.ToolCallStartEvent {
	if toolCallID == "" {
		toolCallID = agui.NewID()
	}
	b.currentToolCallID = toolCallID

	var opts []agui.ToolCallStartOption
	if b.currentMessageID != "" {
		opts = append(opts, agui.WithParentMessageID(b.currentMessageID))
	}
	return agui.NewToolCallStartEvent(b.currentToolCallID, toolName, opts...)
}

// AddToolArgs emits an argument delta on the open tool call.
func (b *LangChainBridge) AddToolArgs(argsChunk string) *agui.ToolCallArgsEvent {
	return agui.NewToolCallArgsEvent(b.currentToolCallID, argsChunk)
}

// EndToolCall reports the call result and closes the call.
func (b *LangChainBridge) EndToolCall(result string) []agui.Event {
	events := []agui.Event{
		agui.NewToolCallResultEvent(b.currentMessageID, b.currentToolCallID, result),
		agui.NewToolCallEndEvent(b.currentToolCallID),
	}
	b.currentToolCallID = ""
	return events
}

// FinishRun emits the run-finished event carrying the final result.
func (b *LangChainBridge) FinishRun(threadID, runID string, result any) *agui.RunFinishedEvent {
	var opts []agui.RunFinishedOption
	if result != nil {
		opts = append(opts, agui.WithResult(result))
	}
	return agui.NewRunFinishedEvent(threadID, runID, opts...)
}

// ErrorEvent emits a run-error event.
func (b *LangChainBridge) ErrorEvent(message string) *agui.RunErrorEvent {
	return agui.NewRunErrorEvent(message)
}

// ProcessStreamEvent translates one astream_events v2 event into zero or
// more AG-UI events.
//
//   - on_chat_model_stream: the chunk content, either a plain string or a
//     list of {"type":"text"} blocks, becomes message content deltas.
//   - on_tool_start: closes any call still open, then opens a call whose
//     id derives from the event's run id, emitting the JSON-encoded input
//     as a single args delta when present.
//   - on_tool_end: closes the open call with the stringified output.
//
// Unknown event names produce no events.
func (b *LangChainBridge) ProcessStreamEvent(event StreamEvent) []agui.Event {
	var events []agui.Event

	switch event.Event {
	case "on_chat_model_stream":
		content, ok := event.Data.Chunk["content"]
		if !ok {
			return events
		}
		switch chunk := content.(type) {
		case string:
			if chunk != "" {
				events = append(events, b.AddTextContent(chunk))
			}
		case []any:
			for _, raw := range chunk {
				block, ok := raw.(map[string]any)
				if !ok || block["type"] != "text" {
					continue
				}
				if text, _ := block["text"].(string); text != "" {
					events = append(events, b.AddTextContent(text))
				}
			}
		}

	case "on_tool_start":
		if b.currentToolCallID != "" {
			events = append(events, b.EndToolCall(DefaultToolCallResult)...)
		}

		toolCallID := "tool_" + event.RunID
		if event.RunID == "" {
			toolCallID = "tool_" + agui.NewID()
		}
		events = append(events, b.StartToolCall(event.Name, toolCallID))

		if len(event.Data.Input) > 0 {
			if args, err := json.Marshal(event.Data.Input); err == nil {
				events = append(events, b.AddToolArgs(string(args)))
			}
		}

	case "on_tool_end":
		if b.currentToolCallID != "" {
			events = append(events, b.EndToolCall(stringify(event.Data.Output))...)
		}
	}

	return events
}
