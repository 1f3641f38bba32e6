package agent

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/droverhq/drover/pkg/model"
)

// StateKeyMCPConnectionError is the state key the hook layer writes when
// a tool result looks like an MCP connection failure. The invoke path
// promotes it to a ConnectionError after the run.
const StateKeyMCPConnectionError = "mcp_connection_error"

// Hooks observe the agent run lifecycle.
type Hooks interface {
	// BeforeInvocation fires when a run starts.
	BeforeInvocation(agentID, query string)

	// AfterInvocation fires when a run ends, with its error if any.
	AfterInvocation(agentID string, err error)

	// MessageAdded fires when a message lands in history.
	MessageAdded(agentID string, role model.Role)

	// BeforeToolCall fires before a tool executes.
	BeforeToolCall(agentID, toolName, toolUseID string, args map[string]any)

	// AfterToolCall fires after a tool executes, with the raw result and
	// error. state is the agent's shared state for cross-call markers.
	AfterToolCall(state *State, agentID, toolName string, result map[string]any, err error)
}

// LoggingHooks is the default hook set: slog lifecycle logging plus MCP
// connection error detection on tool results.
type LoggingHooks struct{}

func (h *LoggingHooks) BeforeInvocation(agentID, query string) {
	slog.Info("Request started", "agent", agentID, "query_length", len(query))
}

func (h *LoggingHooks) AfterInvocation(agentID string, err error) {
	if err != nil {
		slog.Warn("Request failed", "agent", agentID, "error", err)
		return
	}
	slog.Info("Request completed", "agent", agentID)
}

func (h *LoggingHooks) MessageAdded(agentID string, role model.Role) {
	slog.Debug("Message added", "agent", agentID, "role", role)
}

func (h *LoggingHooks) BeforeToolCall(agentID, toolName, toolUseID string, args map[string]any) {
	slog.Info("Tool invocation started", "agent", agentID, "tool", toolName, "tool_use_id", toolUseID)
}

// AfterToolCall logs the outcome and records a connection error marker in
// agent state when the result text carries a known failure indicator.
func (h *LoggingHooks) AfterToolCall(state *State, agentID, toolName string, result map[string]any, err error) {
	text := ""
	if err != nil {
		text = err.Error()
	} else if result != nil {
		text = fmt.Sprintf("%v", result)
	}

	if IsConnectionErrorText(text) {
		detail := fmt.Sprintf("MCP connection error in tool '%s': %s", toolName, strings.ToLower(text))
		slog.Warn("MCP connection error detected in tool result", "agent", agentID, "tool", toolName)
		state.Set(StateKeyMCPConnectionError, detail)
		return
	}

	if err != nil {
		slog.Warn("Tool invocation failed", "agent", agentID, "tool", toolName, "error", err)
		return
	}
	slog.Info("Tool invocation completed", "agent", agentID, "tool", toolName)
}

var _ Hooks = (*LoggingHooks)(nil)
