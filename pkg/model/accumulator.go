package model

import (
	"encoding/json"
	"strings"
)

// Accumulator folds stream events back into the completed assistant turn.
// Feed every event from a Stream call through Add, then read the result
// with Response. The convenience Data chunks are ignored since the raw
// contentBlockDelta events already carry their text.
type Accumulator struct {
	blocks     []ContentBlock
	text       strings.Builder
	tool       *ToolUse
	toolInput  strings.Builder
	stopReason string
	usage      Usage
}

// Add applies one stream event.
func (a *Accumulator) Add(ev StreamEvent) {
	switch {
	case ev.IsData():
		// Raw events carry the same text.
	case ev.ContentBlockStart != nil:
		a.flush()
		if tu := ev.ContentBlockStart.Start.ToolUse; tu != nil {
			a.tool = &ToolUse{ID: tu.ToolUseID, Name: tu.Name}
		}
	case ev.ContentBlockDelta != nil:
		if ev.ContentBlockDelta.Delta.Text != "" {
			a.text.WriteString(ev.ContentBlockDelta.Delta.Text)
		}
		if tu := ev.ContentBlockDelta.Delta.ToolUse; tu != nil {
			a.toolInput.WriteString(tu.Input)
		}
	case ev.ContentBlockStop != nil:
		a.flush()
	case ev.MessageStop != nil:
		a.stopReason = ev.MessageStop.StopReason
	case ev.Metadata != nil:
		a.usage = ev.Metadata.Usage
	}
}

// flush closes whichever block is open and appends it.
func (a *Accumulator) flush() {
	if a.tool != nil {
		a.tool.Input = parseToolInput(a.toolInput.String())
		a.blocks = append(a.blocks, ContentBlock{ToolUse: a.tool})
		a.tool = nil
		a.toolInput.Reset()
		return
	}
	if a.text.Len() > 0 {
		a.blocks = append(a.blocks, ContentBlock{Text: a.text.String()})
		a.text.Reset()
	}
}

// Response returns the accumulated turn.
func (a *Accumulator) Response() *Response {
	a.flush()
	return &Response{
		Message:    Message{Role: RoleAssistant, Content: a.blocks},
		StopReason: a.stopReason,
		Usage:      a.usage,
	}
}

// parseToolInput decodes the streamed tool input JSON. Models sometimes
// request a no-argument tool with an empty input string, so both empty and
// unparseable input decode to an empty argument map.
func parseToolInput(raw string) map[string]any {
	input := map[string]any{}
	if raw == "" {
		return input
	}
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return map[string]any{}
	}
	return input
}
