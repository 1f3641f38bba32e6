package model

import (
	"errors"
	"testing"
)

func TestStreamEventNativeTextChunk(t *testing.T) {
	native := TextChunk("hello").Native()

	if native["data"] != "hello" {
		t.Errorf("data = %v, want hello", native["data"])
	}
	delta, ok := native["delta"].(map[string]any)
	if !ok {
		t.Fatalf("delta is %T, want map", native["delta"])
	}
	if delta["text"] != "hello" {
		t.Errorf("delta.text = %v, want hello", delta["text"])
	}
}

func TestStreamEventNativeToolUseStart(t *testing.T) {
	ev := StreamEvent{
		ContentBlockStart: &ContentBlockStartEvent{
			ContentBlockIndex: 1,
			Start: ContentBlockStart{
				ToolUse: &ToolUseStart{Name: "calculator", ToolUseID: "tool-1"},
			},
		},
	}

	native := ev.Native()
	event, ok := native["event"].(map[string]any)
	if !ok {
		t.Fatalf("missing event wrapper in %v", native)
	}
	blockStart, ok := event["contentBlockStart"].(map[string]any)
	if !ok {
		t.Fatalf("missing contentBlockStart in %v", event)
	}
	start, _ := blockStart["start"].(map[string]any)
	toolUse, ok := start["toolUse"].(map[string]any)
	if !ok {
		t.Fatalf("missing toolUse in %v", start)
	}
	if toolUse["name"] != "calculator" || toolUse["toolUseId"] != "tool-1" {
		t.Errorf("toolUse = %v, want calculator/tool-1", toolUse)
	}
}

func TestStreamEventNativeToolInputDelta(t *testing.T) {
	ev := StreamEvent{
		ContentBlockDelta: &ContentBlockDeltaEvent{
			ContentBlockIndex: 1,
			Delta:             BlockDelta{ToolUse: &ToolUseDelta{Input: `{"expression":`}},
		},
	}

	native := ev.Native()
	event := native["event"].(map[string]any)
	blockDelta := event["contentBlockDelta"].(map[string]any)
	delta := blockDelta["delta"].(map[string]any)
	toolUse, ok := delta["toolUse"].(map[string]any)
	if !ok {
		t.Fatalf("missing toolUse delta in %v", delta)
	}
	if toolUse["input"] != `{"expression":` {
		t.Errorf("input = %v, want raw fragment", toolUse["input"])
	}
}

func TestStreamEventNativeMessageStop(t *testing.T) {
	ev := StreamEvent{MessageStop: &MessageStopEvent{StopReason: StopToolUse}}

	native := ev.Native()
	event := native["event"].(map[string]any)
	stop, ok := event["messageStop"].(map[string]any)
	if !ok {
		t.Fatalf("missing messageStop in %v", event)
	}
	if stop["stopReason"] != "tool_use" {
		t.Errorf("stopReason = %v, want tool_use", stop["stopReason"])
	}
}

func TestStreamEventNativeMetadata(t *testing.T) {
	ev := StreamEvent{Metadata: &MetadataEvent{Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}}

	native := ev.Native()
	event := native["event"].(map[string]any)
	metadata := event["metadata"].(map[string]any)
	usage, ok := metadata["usage"].(map[string]any)
	if !ok {
		t.Fatalf("missing usage in %v", metadata)
	}
	if usage["inputTokens"] != 10 || usage["outputTokens"] != 5 {
		t.Errorf("usage = %v, want 10/5", usage)
	}
}

func TestStreamEventNativeError(t *testing.T) {
	ev := ErrorEvent(errors.New("stream broke"))
	if native := ev.Native(); native != nil {
		t.Errorf("error events must not render, got %v", native)
	}
}
