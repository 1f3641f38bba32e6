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

// Package agui implements the AG-UI streaming event protocol.
//
// AG-UI is the wire format drover speaks to browser frontends: a run is a
// flat sequence of typed events (RUN_STARTED, TEXT_MESSAGE_CONTENT,
// TOOL_CALL_ARGS, ...) serialized as camelCase JSON and framed as
// server-sent events. The types here are wire-compatible with the AG-UI
// Python and TypeScript SDKs, so any standard AG-UI client can consume a
// drover stream unchanged.
package agui

import (
	"fmt"

	"github.com/google/uuid"
)

// EventType identifies an AG-UI protocol event.
type EventType string

const (
	EventTypeTextMessageStart   EventType = "TEXT_MESSAGE_START"
	EventTypeTextMessageContent EventType = "TEXT_MESSAGE_CONTENT"
	EventTypeTextMessageEnd     EventType = "TEXT_MESSAGE_END"
	EventTypeToolCallStart      EventType = "TOOL_CALL_START"
	EventTypeToolCallArgs       EventType = "TOOL_CALL_ARGS"
	EventTypeToolCallEnd        EventType = "TOOL_CALL_END"
	EventTypeToolCallResult     EventType = "TOOL_CALL_RESULT"
	EventTypeStateSnapshot      EventType = "STATE_SNAPSHOT"
	EventTypeStateDelta         EventType = "STATE_DELTA"
	EventTypeMessagesSnapshot   EventType = "MESSAGES_SNAPSHOT"
	EventTypeRaw                EventType = "RAW"
	EventTypeCustom             EventType = "CUSTOM"
	EventTypeRunStarted         EventType = "RUN_STARTED"
	EventTypeRunFinished        EventType = "RUN_FINISHED"
	EventTypeRunError           EventType = "RUN_ERROR"
	EventTypeStepStarted        EventType = "STEP_STARTED"
	EventTypeStepFinished       EventType = "STEP_FINISHED"
)

var validEventTypes = map[EventType]bool{
	EventTypeTextMessageStart:   true,
	EventTypeTextMessageContent: true,
	EventTypeTextMessageEnd:     true,
	EventTypeToolCallStart:      true,
	EventTypeToolCallArgs:       true,
	EventTypeToolCallEnd:        true,
	EventTypeToolCallResult:     true,
	EventTypeStateSnapshot:      true,
	EventTypeStateDelta:         true,
	EventTypeMessagesSnapshot:   true,
	EventTypeRaw:                true,
	EventTypeCustom:             true,
	EventTypeRunStarted:         true,
	EventTypeRunFinished:        true,
	EventTypeRunError:           true,
	EventTypeStepStarted:        true,
	EventTypeStepFinished:       true,
}

// Event is the common interface for all AG-UI events.
type Event interface {
	// Type returns the event type.
	Type() EventType

	// Timestamp returns the event timestamp in Unix milliseconds, or nil
	// when unset.
	Timestamp() *int64

	// SetTimestamp sets the event timestamp.
	SetTimestamp(timestamp int64)

	// Validate checks the event carries the fields its type requires.
	Validate() error
}

// BaseEvent carries the fields shared by every event. Timestamps are
// optional on the wire and left unset by the constructors here, matching
// what standard AG-UI producers emit.
type BaseEvent struct {
	EventType   EventType `json:"type"`
	TimestampMs *int64    `json:"timestamp,omitempty"`
	RawEvent    any       `json:"rawEvent,omitempty"`
}

func (b *BaseEvent) Type() EventType { return b.EventType }

func (b *BaseEvent) Timestamp() *int64 { return b.TimestampMs }

func (b *BaseEvent) SetTimestamp(timestamp int64) { b.TimestampMs = &timestamp }

func (b *BaseEvent) Validate() error {
	if b.EventType == "" {
		return fmt.Errorf("event validation failed: type field is required")
	}
	if !validEventTypes[b.EventType] {
		return fmt.Errorf("event validation failed: invalid event type %q", b.EventType)
	}
	return nil
}

func newBaseEvent(eventType EventType) *BaseEvent {
	return &BaseEvent{EventType: eventType}
}

// NewID returns a fresh identifier for messages and tool calls.
func NewID() string {
	return uuid.New().String()
}

// RunStartedEvent signals the start of an agent run.
type RunStartedEvent struct {
	*BaseEvent
	ThreadID string `json:"threadId"`
	RunID    string `json:"runId"`
}

func NewRunStartedEvent(threadID, runID string) *RunStartedEvent {
	return &RunStartedEvent{
		BaseEvent: newBaseEvent(EventTypeRunStarted),
		ThreadID:  threadID,
		RunID:     runID,
	}
}

func (e *RunStartedEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.ThreadID == "" {
		return fmt.Errorf("RunStartedEvent validation failed: threadId field is required")
	}
	if e.RunID == "" {
		return fmt.Errorf("RunStartedEvent validation failed: runId field is required")
	}
	return nil
}

// RunFinishedEvent signals the successful end of an agent run. Result
// carries the run's final output when the producer has one.
type RunFinishedEvent struct {
	*BaseEvent
	ThreadID string `json:"threadId"`
	RunID    string `json:"runId"`
	Result   any    `json:"result,omitempty"`
}

// RunFinishedOption configures a RunFinishedEvent.
type RunFinishedOption func(*RunFinishedEvent)

// WithResult attaches a final result payload to the run.
func WithResult(result any) RunFinishedOption {
	return func(e *RunFinishedEvent) {
		e.Result = result
	}
}

func NewRunFinishedEvent(threadID, runID string, options ...RunFinishedOption) *RunFinishedEvent {
	event := &RunFinishedEvent{
		BaseEvent: newBaseEvent(EventTypeRunFinished),
		ThreadID:  threadID,
		RunID:     runID,
	}
	for _, opt := range options {
		opt(event)
	}
	return event
}

func (e *RunFinishedEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.ThreadID == "" {
		return fmt.Errorf("RunFinishedEvent validation failed: threadId field is required")
	}
	if e.RunID == "" {
		return fmt.Errorf("RunFinishedEvent validation failed: runId field is required")
	}
	return nil
}

// RunErrorEvent signals that an agent run failed.
type RunErrorEvent struct {
	*BaseEvent
	Message string  `json:"message"`
	Code    *string `json:"code,omitempty"`
	RunID   string  `json:"runId,omitempty"`
}

// RunErrorOption configures a RunErrorEvent.
type RunErrorOption func(*RunErrorEvent)

// WithErrorCode attaches a machine-readable error code.
func WithErrorCode(code string) RunErrorOption {
	return func(e *RunErrorEvent) {
		e.Code = &code
	}
}

// WithRunID associates the error with a specific run.
func WithRunID(runID string) RunErrorOption {
	return func(e *RunErrorEvent) {
		e.RunID = runID
	}
}

func NewRunErrorEvent(message string, options ...RunErrorOption) *RunErrorEvent {
	event := &RunErrorEvent{
		BaseEvent: newBaseEvent(EventTypeRunError),
		Message:   message,
	}
	for _, opt := range options {
		opt(event)
	}
	return event
}

func (e *RunErrorEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.Message == "" {
		return fmt.Errorf("RunErrorEvent validation failed: message field is required")
	}
	return nil
}

// StepStartedEvent signals the start of a named step inside a run.
type StepStartedEvent struct {
	*BaseEvent
	StepName string `json:"stepName"`
}

func NewStepStartedEvent(stepName string) *StepStartedEvent {
	return &StepStartedEvent{
		BaseEvent: newBaseEvent(EventTypeStepStarted),
		StepName:  stepName,
	}
}

func (e *StepStartedEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.StepName == "" {
		return fmt.Errorf("StepStartedEvent validation failed: stepName field is required")
	}
	return nil
}

// StepFinishedEvent signals the end of a named step inside a run.
type StepFinishedEvent struct {
	*BaseEvent
	StepName string `json:"stepName"`
}

func NewStepFinishedEvent(stepName string) *StepFinishedEvent {
	return &StepFinishedEvent{
		BaseEvent: newBaseEvent(EventTypeStepFinished),
		StepName:  stepName,
	}
}

func (e *StepFinishedEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.StepName == "" {
		return fmt.Errorf("StepFinishedEvent validation failed: stepName field is required")
	}
	return nil
}

// TextMessageStartEvent opens a streaming assistant message.
type TextMessageStartEvent struct {
	*BaseEvent
	MessageID string  `json:"messageId"`
	Role      *string `json:"role,omitempty"`
}

// TextMessageStartOption configures a TextMessageStartEvent.
type TextMessageStartOption func(*TextMessageStartEvent)

// WithRole sets the message role.
func WithRole(role string) TextMessageStartOption {
	return func(e *TextMessageStartEvent) {
		e.Role = &role
	}
}

func NewTextMessageStartEvent(messageID string, options ...TextMessageStartOption) *TextMessageStartEvent {
	event := &TextMessageStartEvent{
		BaseEvent: newBaseEvent(EventTypeTextMessageStart),
		MessageID: messageID,
	}
	for _, opt := range options {
		opt(event)
	}
	return event
}

func (e *TextMessageStartEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.MessageID == "" {
		return fmt.Errorf("TextMessageStartEvent validation failed: messageId field is required")
	}
	return nil
}

// TextMessageContentEvent carries one streamed chunk of message text.
type TextMessageContentEvent struct {
	*BaseEvent
	MessageID string `json:"messageId"`
	Delta     string `json:"delta"`
}

func NewTextMessageContentEvent(messageID, delta string) *TextMessageContentEvent {
	return &TextMessageContentEvent{
		BaseEvent: newBaseEvent(EventTypeTextMessageContent),
		MessageID: messageID,
		Delta:     delta,
	}
}

func (e *TextMessageContentEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.MessageID == "" {
		return fmt.Errorf("TextMessageContentEvent validation failed: messageId field is required")
	}
	if e.Delta == "" {
		return fmt.Errorf("TextMessageContentEvent validation failed: delta field must not be empty")
	}
	return nil
}

// TextMessageEndEvent closes a streaming assistant message.
type TextMessageEndEvent struct {
	*BaseEvent
	MessageID string `json:"messageId"`
}

func NewTextMessageEndEvent(messageID string) *TextMessageEndEvent {
	return &TextMessageEndEvent{
		BaseEvent: newBaseEvent(EventTypeTextMessageEnd),
		MessageID: messageID,
	}
}

func (e *TextMessageEndEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.MessageID == "" {
		return fmt.Errorf("TextMessageEndEvent validation failed: messageId field is required")
	}
	return nil
}

// ToolCallStartEvent opens a streaming tool invocation.
type ToolCallStartEvent struct {
	*BaseEvent
	ToolCallID      string  `json:"toolCallId"`
	ToolCallName    string  `json:"toolCallName"`
	ParentMessageID *string `json:"parentMessageId,omitempty"`
}

// ToolCallStartOption configures a ToolCallStartEvent.
type ToolCallStartOption func(*ToolCallStartEvent)

// WithParentMessageID links the tool call to the assistant message that
// requested it.
func WithParentMessageID(messageID string) ToolCallStartOption {
	return func(e *ToolCallStartEvent) {
		e.ParentMessageID = &messageID
	}
}

func NewToolCallStartEvent(toolCallID, toolCallName string, options ...ToolCallStartOption) *ToolCallStartEvent {
	event := &ToolCallStartEvent{
		BaseEvent:    newBaseEvent(EventTypeToolCallStart),
		ToolCallID:   toolCallID,
		ToolCallName: toolCallName,
	}
	for _, opt := range options {
		opt(event)
	}
	return event
}

func (e *ToolCallStartEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.ToolCallID == "" {
		return fmt.Errorf("ToolCallStartEvent validation failed: toolCallId field is required")
	}
	if e.ToolCallName == "" {
		return fmt.Errorf("ToolCallStartEvent validation failed: toolCallName field is required")
	}
	return nil
}

// ToolCallArgsEvent carries one streamed chunk of tool call arguments.
type ToolCallArgsEvent struct {
	*BaseEvent
	ToolCallID string `json:"toolCallId"`
	Delta      string `json:"delta"`
}

func NewToolCallArgsEvent(toolCallID, delta string) *ToolCallArgsEvent {
	return &ToolCallArgsEvent{
		BaseEvent:  newBaseEvent(EventTypeToolCallArgs),
		ToolCallID: toolCallID,
		Delta:      delta,
	}
}

func (e *ToolCallArgsEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.ToolCallID == "" {
		return fmt.Errorf("ToolCallArgsEvent validation failed: toolCallId field is required")
	}
	return nil
}

// ToolCallEndEvent closes a streaming tool invocation.
type ToolCallEndEvent struct {
	*BaseEvent
	ToolCallID string `json:"toolCallId"`
}

func NewToolCallEndEvent(toolCallID string) *ToolCallEndEvent {
	return &ToolCallEndEvent{
		BaseEvent:  newBaseEvent(EventTypeToolCallEnd),
		ToolCallID: toolCallID,
	}
}

func (e *ToolCallEndEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.ToolCallID == "" {
		return fmt.Errorf("ToolCallEndEvent validation failed: toolCallId field is required")
	}
	return nil
}

// ToolCallResultEvent reports the output a tool produced for a call. The
// role is always "tool" so snapshot consumers can fold the result into
// conversation history.
type ToolCallResultEvent struct {
	*BaseEvent
	MessageID  string  `json:"messageId"`
	ToolCallID string  `json:"toolCallId"`
	Content    string  `json:"content"`
	Role       *string `json:"role,omitempty"`
}

func NewToolCallResultEvent(messageID, toolCallID, content string) *ToolCallResultEvent {
	role := "tool"
	return &ToolCallResultEvent{
		BaseEvent:  newBaseEvent(EventTypeToolCallResult),
		MessageID:  messageID,
		ToolCallID: toolCallID,
		Content:    content,
		Role:       &role,
	}
}

func (e *ToolCallResultEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.MessageID == "" {
		return fmt.Errorf("ToolCallResultEvent validation failed: messageId field is required")
	}
	if e.ToolCallID == "" {
		return fmt.Errorf("ToolCallResultEvent validation failed: toolCallId field is required")
	}
	return nil
}

// StateSnapshotEvent carries a complete snapshot of shared state.
type StateSnapshotEvent struct {
	*BaseEvent
	Snapshot any `json:"snapshot"`
}

func NewStateSnapshotEvent(snapshot any) *StateSnapshotEvent {
	return &StateSnapshotEvent{
		BaseEvent: newBaseEvent(EventTypeStateSnapshot),
		Snapshot:  snapshot,
	}
}

func (e *StateSnapshotEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.Snapshot == nil {
		return fmt.Errorf("StateSnapshotEvent validation failed: snapshot field is required")
	}
	return nil
}

// JSONPatchOperation is one RFC 6902 operation inside a STATE_DELTA event.
type JSONPatchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
	From  string `json:"from,omitempty"`
}

// StateDeltaEvent carries an incremental JSON-patch update to shared state.
type StateDeltaEvent struct {
	*BaseEvent
	Delta []JSONPatchOperation `json:"delta"`
}

func NewStateDeltaEvent(delta []JSONPatchOperation) *StateDeltaEvent {
	return &StateDeltaEvent{
		BaseEvent: newBaseEvent(EventTypeStateDelta),
		Delta:     delta,
	}
}

func (e *StateDeltaEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if len(e.Delta) == 0 {
		return fmt.Errorf("StateDeltaEvent validation failed: delta field must not be empty")
	}
	return nil
}

// Message is a conversation message inside a MESSAGES_SNAPSHOT event.
type Message struct {
	ID         string     `json:"id"`
	Role       string     `json:"role"`
	Content    *string    `json:"content,omitempty"`
	Name       *string    `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID *string    `json:"toolCallId,omitempty"`
}

// ToolCall is a completed tool invocation attached to a message.
type ToolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function names a tool and its serialized arguments.
type Function struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// MessagesSnapshotEvent carries the complete conversation history.
type MessagesSnapshotEvent struct {
	*BaseEvent
	Messages []Message `json:"messages"`
}

func NewMessagesSnapshotEvent(messages []Message) *MessagesSnapshotEvent {
	return &MessagesSnapshotEvent{
		BaseEvent: newBaseEvent(EventTypeMessagesSnapshot),
		Messages:  messages,
	}
}

func (e *MessagesSnapshotEvent) Validate() error {
	return e.BaseEvent.Validate()
}

// RawEvent passes an external event through the stream unmodified.
type RawEvent struct {
	*BaseEvent
	Event  any     `json:"event"`
	Source *string `json:"source,omitempty"`
}

// RawEventOption configures a RawEvent.
type RawEventOption func(*RawEvent)

// WithSource records which system produced the wrapped event.
func WithSource(source string) RawEventOption {
	return func(e *RawEvent) {
		e.Source = &source
	}
}

func NewRawEvent(event any, options ...RawEventOption) *RawEvent {
	raw := &RawEvent{
		BaseEvent: newBaseEvent(EventTypeRaw),
		Event:     event,
	}
	for _, opt := range options {
		opt(raw)
	}
	return raw
}

func (e *RawEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.Event == nil {
		return fmt.Errorf("RawEvent validation failed: event field is required")
	}
	return nil
}

// CustomEvent carries application-specific data.
type CustomEvent struct {
	*BaseEvent
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
}

// CustomEventOption configures a CustomEvent.
type CustomEventOption func(*CustomEvent)

// WithValue attaches a payload to the custom event.
func WithValue(value any) CustomEventOption {
	return func(e *CustomEvent) {
		e.Value = value
	}
}

func NewCustomEvent(name string, options ...CustomEventOption) *CustomEvent {
	event := &CustomEvent{
		BaseEvent: newBaseEvent(EventTypeCustom),
		Name:      name,
	}
	for _, opt := range options {
		opt(event)
	}
	return event
}

func (e *CustomEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}
	if e.Name == "" {
		return fmt.Errorf("CustomEvent validation failed: name field is required")
	}
	return nil
}
