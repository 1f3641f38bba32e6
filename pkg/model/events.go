package model

// StreamEvent is one event from a model stream. The pointer fields mirror
// the Converse stream wire members; exactly one is set per event. Text
// deltas are additionally re-emitted as a convenience chunk carrying Data
// and Delta, which is the shape streaming clients consume.
type StreamEvent struct {
	MessageStart      *MessageStartEvent      `json:"messageStart,omitempty"`
	ContentBlockStart *ContentBlockStartEvent `json:"contentBlockStart,omitempty"`
	ContentBlockDelta *ContentBlockDeltaEvent `json:"contentBlockDelta,omitempty"`
	ContentBlockStop  *ContentBlockStopEvent  `json:"contentBlockStop,omitempty"`
	MessageStop       *MessageStopEvent       `json:"messageStop,omitempty"`
	Metadata          *MetadataEvent          `json:"metadata,omitempty"`

	// Data carries streamed text on convenience chunks; Delta holds the raw
	// delta that produced it.
	Data  string `json:"data,omitempty"`
	Delta any    `json:"delta,omitempty"`

	// Err reports a stream failure. The channel closes after it.
	Err error `json:"-"`
}

// MessageStartEvent opens the assistant message.
type MessageStartEvent struct {
	Role string `json:"role"`
}

// ContentBlockStartEvent opens a content block.
type ContentBlockStartEvent struct {
	ContentBlockIndex int               `json:"contentBlockIndex"`
	Start             ContentBlockStart `json:"start"`
}

// ContentBlockStart identifies what kind of block is opening. Text blocks
// open without any start payload.
type ContentBlockStart struct {
	ToolUse *ToolUseStart `json:"toolUse,omitempty"`
}

// ToolUseStart announces a tool call block.
type ToolUseStart struct {
	Name      string `json:"name"`
	ToolUseID string `json:"toolUseId"`
}

// ContentBlockDeltaEvent carries an increment of the open content block.
type ContentBlockDeltaEvent struct {
	ContentBlockIndex int        `json:"contentBlockIndex"`
	Delta             BlockDelta `json:"delta"`
}

// BlockDelta is a text increment or a tool input increment.
type BlockDelta struct {
	Text    string        `json:"text,omitempty"`
	ToolUse *ToolUseDelta `json:"toolUse,omitempty"`
}

// ToolUseDelta is a fragment of the JSON-encoded tool input.
type ToolUseDelta struct {
	Input string `json:"input"`
}

// ContentBlockStopEvent closes the open content block.
type ContentBlockStopEvent struct {
	ContentBlockIndex int `json:"contentBlockIndex"`
}

// MessageStopEvent closes the assistant message.
type MessageStopEvent struct {
	StopReason string `json:"stopReason"`
}

// MetadataEvent reports usage for the completed turn.
type MetadataEvent struct {
	Usage Usage `json:"usage"`
}

// IsData reports whether this is a convenience text chunk.
func (e StreamEvent) IsData() bool {
	return e.Delta != nil || e.Data != ""
}

// Native renders the event in the wire form streaming consumers expect:
// convenience chunks as {"data","delta"}, everything else wrapped under
// an "event" key. Error events render to nil.
func (e StreamEvent) Native() map[string]any {
	if e.Err != nil {
		return nil
	}

	if e.IsData() {
		return map[string]any{"data": e.Data, "delta": e.Delta}
	}

	switch {
	case e.MessageStart != nil:
		return wireEvent("messageStart", map[string]any{
			"role": e.MessageStart.Role,
		})
	case e.ContentBlockStart != nil:
		start := map[string]any{}
		if tu := e.ContentBlockStart.Start.ToolUse; tu != nil {
			start["toolUse"] = map[string]any{
				"name":      tu.Name,
				"toolUseId": tu.ToolUseID,
			}
		}
		return wireEvent("contentBlockStart", map[string]any{
			"contentBlockIndex": e.ContentBlockStart.ContentBlockIndex,
			"start":             start,
		})
	case e.ContentBlockDelta != nil:
		delta := map[string]any{}
		if e.ContentBlockDelta.Delta.Text != "" {
			delta["text"] = e.ContentBlockDelta.Delta.Text
		}
		if tu := e.ContentBlockDelta.Delta.ToolUse; tu != nil {
			delta["toolUse"] = map[string]any{"input": tu.Input}
		}
		return wireEvent("contentBlockDelta", map[string]any{
			"contentBlockIndex": e.ContentBlockDelta.ContentBlockIndex,
			"delta":             delta,
		})
	case e.ContentBlockStop != nil:
		return wireEvent("contentBlockStop", map[string]any{
			"contentBlockIndex": e.ContentBlockStop.ContentBlockIndex,
		})
	case e.MessageStop != nil:
		return wireEvent("messageStop", map[string]any{
			"stopReason": e.MessageStop.StopReason,
		})
	case e.Metadata != nil:
		return wireEvent("metadata", map[string]any{
			"usage": map[string]any{
				"inputTokens":  e.Metadata.Usage.InputTokens,
				"outputTokens": e.Metadata.Usage.OutputTokens,
				"totalTokens":  e.Metadata.Usage.TotalTokens,
			},
		})
	}

	return nil
}

func wireEvent(name string, payload map[string]any) map[string]any {
	return map[string]any{"event": map[string]any{name: payload}}
}

// TextChunk builds the convenience chunk for a text delta.
func TextChunk(text string) StreamEvent {
	return StreamEvent{
		Data:  text,
		Delta: map[string]any{"text": text},
	}
}

// ErrorEvent builds the terminal event for a failed stream.
func ErrorEvent(err error) StreamEvent {
	return StreamEvent{Err: err}
}
