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

// Package model defines the conversational model abstraction: messages,
// tool specs, requests and responses, and the stream events providers
// emit. Messages and stream events keep the Bedrock Converse wire shapes,
// so they can be forwarded to clients without translation and accumulated
// back into complete turns.
package model

import (
	"context"
	"strings"
)

// ProviderBedrock is the provider name for Amazon Bedrock models.
const ProviderBedrock = "bedrock"

// ParseModelID splits a "provider:model-id" reference. Model ids contain
// colons of their own ("...-v1:0"), so only a known provider prefix
// splits; anything else is a bare Bedrock model id.
func ParseModelID(ref string) (provider, modelID string) {
	if prov, id, ok := strings.Cut(ref, ":"); ok && prov == ProviderBedrock {
		return prov, id
	}
	return ProviderBedrock, ref
}

// Provider is a conversational model backend.
type Provider interface {
	// Name returns the model identifier.
	Name() string

	// Converse runs one non-streaming model turn.
	Converse(ctx context.Context, req *Request) (*Response, error)

	// Stream runs one streaming model turn. Events arrive on the returned
	// channel, which closes when the turn completes; a failure mid-stream
	// is delivered as a final event with Err set.
	Stream(ctx context.Context, req *Request) (<-chan StreamEvent, error)
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is one piece of a message. Exactly one field is set.
type ContentBlock struct {
	Text       string      `json:"text,omitempty"`
	ToolUse    *ToolUse    `json:"toolUse,omitempty"`
	ToolResult *ToolResult `json:"toolResult,omitempty"`
}

// ToolUse is a model request to execute a tool.
type ToolUse struct {
	ID    string         `json:"toolUseId"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult reports the outcome of a tool execution back to the model.
type ToolResult struct {
	ToolUseID string `json:"toolUseId"`
	Content   string `json:"content"`
	IsError   bool   `json:"isError,omitempty"`
}

// UserMessage builds a single-text user message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{{Text: text}}}
}

// AssistantMessage builds a single-text assistant message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{{Text: text}}}
}

// ToolResultMessage wraps tool results in the user message the Converse
// API expects them in.
func ToolResultMessage(results ...ToolResult) Message {
	blocks := make([]ContentBlock, 0, len(results))
	for i := range results {
		r := results[i]
		blocks = append(blocks, ContentBlock{ToolResult: &r})
	}
	return Message{Role: RoleUser, Content: blocks}
}

// Text returns the concatenated text blocks of the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, block := range m.Content {
		sb.WriteString(block.Text)
	}
	return sb.String()
}

// ToolUses returns the tool use blocks of the message in order.
func (m Message) ToolUses() []ToolUse {
	var uses []ToolUse
	for _, block := range m.Content {
		if block.ToolUse != nil {
			uses = append(uses, *block.ToolUse)
		}
	}
	return uses
}

// ToolSpec describes a callable tool to the model.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolChoiceMode controls how the model may use tools.
type ToolChoiceMode string

const (
	// ToolChoiceAuto lets the model decide whether to call a tool.
	ToolChoiceAuto ToolChoiceMode = "auto"
	// ToolChoiceAny requires the model to call some tool.
	ToolChoiceAny ToolChoiceMode = "any"
	// ToolChoiceTool forces the model to call the named tool.
	ToolChoiceTool ToolChoiceMode = "tool"
)

// ToolChoice constrains the model's next action.
type ToolChoice struct {
	Mode ToolChoiceMode `json:"mode"`
	// Name is the forced tool for ToolChoiceTool.
	Name string `json:"name,omitempty"`
}

// Request is one model turn: the conversation so far plus the tools
// available for it.
type Request struct {
	Messages    []Message
	System      string
	Tools       []ToolSpec
	ToolChoice  *ToolChoice
	MaxTokens   int
	Temperature *float64
}

// Usage reports token consumption for one turn.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// Add accumulates usage across turns.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// Response is the completed assistant turn.
type Response struct {
	Message    Message `json:"message"`
	StopReason string  `json:"stopReason"`
	Usage      Usage   `json:"usage"`
}

// Stop reasons reported by the Converse API.
const (
	StopEndTurn      = "end_turn"
	StopToolUse      = "tool_use"
	StopMaxTokens    = "max_tokens"
	StopStopSequence = "stop_sequence"
)
