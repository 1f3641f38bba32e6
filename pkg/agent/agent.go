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

// Package agent implements a tool-using agent over a conversational model
// provider.
//
// An Agent runs the model loop: stream or converse one assistant turn,
// execute any requested tools, feed results back, repeat until the model
// stops asking for tools. Tools come from a local registry and,
// optionally, an MCP manager whose connection failures are retried with
// backoff and a rebuilt tool set.
//
// Three entry points cover the runtime's invocation modes: Invoke for a
// synchronous answer plus optional structured output, StreamPlainText
// for raw text chunks, and StreamAGUI for the AG-UI protocol event
// sequence.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/droverhq/drover/pkg/agui"
	"github.com/droverhq/drover/pkg/agui/bridge"
	"github.com/droverhq/drover/pkg/model"
	"github.com/droverhq/drover/pkg/observability"
	"github.com/droverhq/drover/pkg/session"
)

const (
	// DefaultMaxIterations caps tool round trips per run.
	DefaultMaxIterations = 10

	// descriptionLimit bounds the description derived from the system
	// prompt.
	descriptionLimit = 200
)

// Options configures a new Agent.
type Options struct {
	// Name identifies the agent in logs, hooks, and session scoping.
	// Default: "drover".
	Name string

	// Description is a human-readable summary. Defaults to the first 200
	// characters of the system prompt.
	Description string

	// SystemPrompt is sent with every model turn.
	SystemPrompt string

	// Provider is the conversational model backend. Required.
	Provider model.Provider

	// Tools are local function tools, always available.
	Tools []Tool

	// MCP optionally supplies remote tools. Connection failures during a
	// run trigger the reconnect-and-retry cycle.
	MCP MCPManager

	// History stores conversation history per session. Defaults to an
	// in-memory sliding window.
	History History

	// Hooks observe the run lifecycle. Defaults to LoggingHooks.
	Hooks Hooks

	// Structured configures the typed final answer, extracted after the
	// loop with a forced tool call.
	Structured *StructuredOutput

	// MaxIterations caps tool round trips per run. Default: 10.
	MaxIterations int

	// Observability enables tracing and metrics when set.
	Observability *observability.Manager
}

// Agent runs the model loop. Safe for concurrent use: per-run state lives
// on the stack, shared state behind State's lock.
type Agent struct {
	id           string
	description  string
	systemPrompt string
	provider     model.Provider
	localTools   []Tool
	mcp          MCPManager
	history      History
	hooks        Hooks
	structured   *StructuredOutput
	maxIter      int
	state        *State
	obs          *observability.Manager
}

// RunConfig carries the per-run identifiers. Zero values select the
// defaults: session "default", thread "default", user "default".
type RunConfig struct {
	SessionID string
	ThreadID  string
	UserID    string
}

func (c RunConfig) sessionID() string {
	if c.SessionID == "" {
		return session.DefaultSessionID
	}
	return c.SessionID
}

func (c RunConfig) threadID() string {
	if c.ThreadID == "" {
		return "default"
	}
	return c.ThreadID
}

func (c RunConfig) userID() string {
	if c.UserID == "" {
		return "default"
	}
	return c.UserID
}

// Result is the outcome of a completed run.
type Result struct {
	// Text is the final assistant text.
	Text string

	// StopReason is the model's final stop reason.
	StopReason string

	// Usage accumulates token consumption across the run's model turns.
	Usage model.Usage

	// Iterations is the number of model turns taken.
	Iterations int
}

// New creates an Agent.
func New(opts Options) (*Agent, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("model provider is required")
	}
	if opts.Name == "" {
		opts.Name = "drover"
	}
	if opts.Description == "" {
		opts.Description = truncateRunes(opts.SystemPrompt, descriptionLimit)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.History == nil {
		history, err := session.NewWindowHistory(session.Options{})
		if err != nil {
			return nil, err
		}
		opts.History = history
	}
	if opts.Hooks == nil {
		opts.Hooks = &LoggingHooks{}
	}
	if opts.Observability == nil {
		opts.Observability = observability.NoopManager()
	}

	return &Agent{
		id:           opts.Name,
		description:  opts.Description,
		systemPrompt: opts.SystemPrompt,
		provider:     opts.Provider,
		localTools:   opts.Tools,
		mcp:          opts.MCP,
		history:      opts.History,
		hooks:        opts.Hooks,
		structured:   opts.Structured,
		maxIter:      opts.MaxIterations,
		state:        NewState(),
		obs:          opts.Observability,
	}, nil
}

// ID returns the agent's name.
func (a *Agent) ID() string { return a.id }

// Description returns the agent's description.
func (a *Agent) Description() string { return a.description }

// State returns the agent's shared key/value state.
func (a *Agent) State() *State { return a.state }

// Invoke runs the agent to completion and returns the structured output
// (nil unless configured), the run result, and an error.
//
// With an MCP manager attached, a connection failure restarts the run:
// wait retryDelay * 2^attempt, reconnect every MCP client, rebuild the
// tool set under a fresh derived run id, and try again up to the
// manager's retry budget.
func (a *Agent) Invoke(ctx context.Context, query string, cfg RunConfig) (map[string]any, *Result, error) {
	attempts := 1
	if a.mcp != nil {
		attempts = a.mcp.MaxRetries()
		if attempts < 1 {
			attempts = 1
		}
	}

	runID := a.id
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		structured, result, err := a.invokeOnce(ctx, runID, query, cfg)
		if err == nil {
			return structured, result, nil
		}

		var connErr *ConnectionError
		if a.mcp == nil || !errors.As(err, &connErr) {
			return nil, nil, err
		}
		lastErr = err

		if attempt < attempts-1 {
			delay := a.mcp.RetryDelay() * (1 << attempt)
			slog.Warn("MCP connection error, restarting run",
				"agent", a.id,
				"attempt", attempt+1,
				"max_retries", attempts,
				"delay", delay,
				"error", err,
			)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}

			if rerr := a.mcp.ReconnectAll(ctx); rerr != nil {
				lastErr = rerr
				continue
			}

			// Fresh derived id so downstream state is rebuilt, not reused.
			runID = fmt.Sprintf("%s_%s", a.id, uuid.NewString())
		}
	}

	return nil, nil, NewExecutionError("agent failed after %d attempts: %v", attempts, lastErr)
}

// invokeOnce is a single run attempt: clear the connection error marker,
// run the loop, promote a recorded marker to ConnectionError, and extract
// structured output.
func (a *Agent) invokeOnce(ctx context.Context, runID, query string, cfg RunConfig) (map[string]any, *Result, error) {
	a.state.Set(StateKeyMCPConnectionError, nil)

	result, msgs, err := a.runLoop(ctx, runID, query, cfg, nil)
	if err != nil {
		return nil, nil, err
	}

	if detail := a.state.GetString(StateKeyMCPConnectionError); detail != "" {
		return nil, nil, NewConnectionError(detail, nil)
	}

	structured := a.extractStructured(ctx, msgs)
	return structured, result, nil
}

// StreamPlainText runs the agent and delivers the streamed text chunks.
// A failure ends the stream with a final "Error: ..." chunk. The channel
// closes when the run completes.
func (a *Agent) StreamPlainText(ctx context.Context, query string, cfg RunConfig) <-chan string {
	out := make(chan string, 16)

	go func() {
		defer close(out)

		emit := func(ev model.StreamEvent) {
			if !ev.IsData() || ev.Data == "" {
				return
			}
			select {
			case out <- ev.Data:
			case <-ctx.Done():
			}
		}

		if _, _, err := a.runLoop(ctx, a.id, query, cfg, emit); err != nil {
			select {
			case out <- fmt.Sprintf("Error: %s", err.Error()):
			case <-ctx.Done():
			}
		}
	}()

	return out
}

// StreamAGUI runs the agent and delivers the encoded AG-UI event
// sequence: RUN_STARTED, TEXT_MESSAGE_START, the translated model
// stream, TEXT_MESSAGE_END, then RUN_FINISHED carrying the structured
// output. Failures emit RUN_ERROR. The run id is threadID_userID.
func (a *Agent) StreamAGUI(ctx context.Context, query string, cfg RunConfig) <-chan []byte {
	out := make(chan []byte, 16)

	go func() {
		defer close(out)

		b := bridge.NewStrandsBridge()
		encoder := agui.NewEventEncoder()
		threadID := cfg.threadID()
		runID := fmt.Sprintf("%s_%s", threadID, cfg.userID())

		send := func(events ...agui.Event) bool {
			for _, ev := range events {
				data, err := encoder.Encode(ev)
				if err != nil {
					slog.Error("Failed to encode AG-UI event", "agent", a.id, "error", err)
					continue
				}
				select {
				case out <- data:
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		if !send(b.StartRun(threadID, runID)) {
			return
		}
		if !send(b.StartMessage("assistant")) {
			return
		}

		emit := func(ev model.StreamEvent) {
			if events := b.ConvertEvent(ev.Native()); len(events) > 0 {
				send(events...)
			}
		}

		_, msgs, err := a.runLoop(ctx, a.id, query, cfg, emit)
		if err != nil {
			send(b.ErrorEvent(err.Error()))
			return
		}

		structured := a.extractStructured(ctx, msgs)

		if !send(b.EndMessage()) {
			return
		}
		send(b.FinishRun(threadID, runID, structuredResult(structured)))
	}()

	return out
}

// structuredResult converts the structured map to the RUN_FINISHED result
// payload, keeping the field absent when extraction produced nothing.
func structuredResult(structured map[string]any) any {
	if structured == nil {
		return nil
	}
	return structured
}

// runLoop drives the model until it stops requesting tools. When emit is
// set, turns use the streaming API and every event is forwarded;
// otherwise turns use Converse. Returns the run result and the full
// message list for structured extraction.
func (a *Agent) runLoop(ctx context.Context, runID, query string, cfg RunConfig, emit func(model.StreamEvent)) (*Result, []model.Message, error) {
	start := time.Now()
	sessionID := cfg.sessionID()

	ctx, span := a.obs.Tracer().StartAgentRun(ctx, a.id, sessionID, cfg.userID(), runID)
	defer span.End()

	a.hooks.BeforeInvocation(runID, query)

	var runErr error
	defer func() {
		a.hooks.AfterInvocation(runID, runErr)
		a.obs.Tracer().RecordError(span, runErr)
		a.obs.Metrics().RecordLatency(ctx, "agent_run_duration",
			float64(time.Since(start).Milliseconds()),
			"Agent run duration",
			map[string]string{"agent": a.id},
		)
	}()

	tools, err := a.loadTools(ctx)
	if err != nil {
		runErr = err
		return nil, nil, runErr
	}

	a.history.Append(sessionID, model.UserMessage(query))
	a.hooks.MessageAdded(runID, model.RoleUser)

	// A SQL-backed history makes this a database read.
	_, loadSpan := a.obs.Tracer().StartSessionLoad(ctx, sessionID)
	msgs := a.history.Messages(sessionID)
	loadSpan.End()

	result := &Result{}

	for iteration := 0; iteration < a.maxIter; iteration++ {
		result.Iterations = iteration + 1

		resp, err := a.modelTurn(ctx, msgs, tools, emit)
		if err != nil {
			runErr = fmt.Errorf("model call failed: %w", err)
			return nil, nil, runErr
		}

		result.StopReason = resp.StopReason
		result.Usage.Add(resp.Usage)

		a.history.Append(sessionID, resp.Message)
		a.hooks.MessageAdded(runID, model.RoleAssistant)
		msgs = append(msgs, resp.Message)

		if text := resp.Message.Text(); text != "" {
			result.Text = text
		}

		if resp.StopReason != model.StopToolUse {
			return result, msgs, nil
		}

		uses := resp.Message.ToolUses()
		if len(uses) == 0 {
			runErr = NewExecutionError("model requested tools but sent no tool use blocks")
			return nil, nil, runErr
		}

		results := make([]model.ToolResult, 0, len(uses))
		for _, use := range uses {
			results = append(results, a.executeTool(ctx, runID, tools, use))
		}

		toolMsg := model.ToolResultMessage(results...)
		a.history.Append(sessionID, toolMsg)
		a.hooks.MessageAdded(runID, model.RoleUser)
		msgs = append(msgs, toolMsg)
	}

	runErr = NewExecutionError("max tool iterations (%d) reached", a.maxIter)
	return nil, nil, runErr
}

// modelTurn runs one assistant turn, streaming when emit is set.
func (a *Agent) modelTurn(ctx context.Context, msgs []model.Message, tools []Tool, emit func(model.StreamEvent)) (*model.Response, error) {
	req := &model.Request{
		Messages: msgs,
		System:   a.systemPrompt,
		Tools:    toolSpecs(tools),
	}

	ctx, span := a.obs.Tracer().StartModelCall(ctx, a.provider.Name(), req.MaxTokens)
	defer span.End()

	if emit == nil {
		resp, err := a.provider.Converse(ctx, req)
		if err != nil {
			a.obs.Tracer().RecordError(span, err)
			return nil, err
		}
		a.obs.Tracer().AddModelUsage(span, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		a.obs.Tracer().AddFinishReason(span, resp.StopReason)
		return resp, nil
	}

	stream, err := a.provider.Stream(ctx, req)
	if err != nil {
		a.obs.Tracer().RecordError(span, err)
		return nil, err
	}

	var acc model.Accumulator
	for ev := range stream {
		if ev.Err != nil {
			a.obs.Tracer().RecordError(span, ev.Err)
			return nil, ev.Err
		}
		acc.Add(ev)
		emit(ev)
	}

	resp := acc.Response()
	a.obs.Tracer().AddModelUsage(span, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	a.obs.Tracer().AddFinishReason(span, resp.StopReason)
	return resp, nil
}

// progressCaller is the optional tool upgrade that threads the model's
// tool use id through as a progress token.
type progressCaller interface {
	CallWithID(ctx context.Context, toolUseID string, args map[string]any) (map[string]any, error)
}

// executeTool runs one requested tool and renders its outcome as the
// tool result block fed back to the model.
func (a *Agent) executeTool(ctx context.Context, runID string, tools []Tool, use model.ToolUse) model.ToolResult {
	tool := findTool(tools, use.Name)
	if tool == nil {
		slog.Warn("Model requested unknown tool", "agent", a.id, "tool", use.Name)
		return model.ToolResult{
			ToolUseID: use.ID,
			Content:   fmt.Sprintf("Error: unknown tool %q", use.Name),
			IsError:   true,
		}
	}

	ctx, span := a.obs.Tracer().StartToolExecution(ctx, use.Name, tool.Description(), use.ID)
	defer span.End()

	a.hooks.BeforeToolCall(runID, use.Name, use.ID, use.Input)

	var result map[string]any
	var err error
	if pc, ok := tool.(progressCaller); ok {
		result, err = pc.CallWithID(ctx, use.ID, use.Input)
	} else {
		result, err = tool.Call(ctx, use.Input)
	}

	a.hooks.AfterToolCall(a.state, runID, use.Name, result, err)

	if err != nil {
		a.obs.Tracer().RecordError(span, err)
		return model.ToolResult{
			ToolUseID: use.ID,
			Content:   fmt.Sprintf("Error: %s", err.Error()),
			IsError:   true,
		}
	}

	content, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return model.ToolResult{
			ToolUseID: use.ID,
			Content:   fmt.Sprintf("Error: failed to encode tool result: %s", marshalErr.Error()),
			IsError:   true,
		}
	}

	return model.ToolResult{ToolUseID: use.ID, Content: string(content)}
}

// loadTools combines the local registry with the MCP manager's tools.
func (a *Agent) loadTools(ctx context.Context) ([]Tool, error) {
	if a.mcp == nil {
		return a.localTools, nil
	}

	mcpTools, err := a.mcp.Tools(ctx)
	if err != nil {
		return nil, err
	}

	tools := make([]Tool, 0, len(a.localTools)+len(mcpTools))
	tools = append(tools, a.localTools...)
	tools = append(tools, mcpTools...)
	return tools, nil
}

func findTool(tools []Tool, name string) Tool {
	for _, tool := range tools {
		if tool.Name() == name {
			return tool
		}
	}
	return nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
