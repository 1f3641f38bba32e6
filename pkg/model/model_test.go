package model

import (
	"testing"
)

func TestParseModelID(t *testing.T) {
	tests := []struct {
		name         string
		ref          string
		wantProvider string
		wantModelID  string
	}{
		{
			name:         "prefixed",
			ref:          "bedrock:us.anthropic.claude-haiku-4-5-20251001-v1:0",
			wantProvider: "bedrock",
			wantModelID:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		},
		{
			name:         "bare_id_with_version_colon",
			ref:          "us.anthropic.claude-haiku-4-5-20251001-v1:0",
			wantProvider: "bedrock",
			wantModelID:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		},
		{
			name:         "bare_id",
			ref:          "us.amazon.nova-lite-v1",
			wantProvider: "bedrock",
			wantModelID:  "us.amazon.nova-lite-v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, modelID := ParseModelID(tt.ref)
			if provider != tt.wantProvider {
				t.Errorf("ParseModelID() provider = %q, want %q", provider, tt.wantProvider)
			}
			if modelID != tt.wantModelID {
				t.Errorf("ParseModelID() modelID = %q, want %q", modelID, tt.wantModelID)
			}
		})
	}
}

func TestMessageText(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			{Text: "The answer "},
			{ToolUse: &ToolUse{ID: "t1", Name: "calculator"}},
			{Text: "is 42."},
		},
	}

	if got := msg.Text(); got != "The answer is 42." {
		t.Errorf("Text() = %q, want %q", got, "The answer is 42.")
	}
}

func TestMessageToolUses(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			{Text: "Let me check."},
			{ToolUse: &ToolUse{ID: "t1", Name: "calculator", Input: map[string]any{"expression": "6*7"}}},
			{ToolUse: &ToolUse{ID: "t2", Name: "search"}},
		},
	}

	uses := msg.ToolUses()
	if len(uses) != 2 {
		t.Fatalf("ToolUses() returned %d uses, want 2", len(uses))
	}
	if uses[0].Name != "calculator" || uses[1].Name != "search" {
		t.Errorf("ToolUses() order wrong: got %q, %q", uses[0].Name, uses[1].Name)
	}
}

func TestToolResultMessage(t *testing.T) {
	msg := ToolResultMessage(
		ToolResult{ToolUseID: "t1", Content: "42"},
		ToolResult{ToolUseID: "t2", Content: "failed", IsError: true},
	)

	if msg.Role != RoleUser {
		t.Errorf("expected user role, got %q", msg.Role)
	}
	if len(msg.Content) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(msg.Content))
	}
	if msg.Content[0].ToolResult.ToolUseID != "t1" {
		t.Errorf("first result id = %q, want t1", msg.Content[0].ToolResult.ToolUseID)
	}
	if !msg.Content[1].ToolResult.IsError {
		t.Error("second result should carry the error flag")
	}
}

func TestUsageAdd(t *testing.T) {
	total := Usage{}
	total.Add(Usage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120})
	total.Add(Usage{InputTokens: 150, OutputTokens: 30, TotalTokens: 180})

	if total.InputTokens != 250 || total.OutputTokens != 50 || total.TotalTokens != 300 {
		t.Errorf("Add() = %+v, want 250/50/300", total)
	}
}
