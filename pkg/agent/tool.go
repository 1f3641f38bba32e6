package agent

import (
	"context"
	"time"

	"github.com/droverhq/drover/pkg/model"
)

// Tool is a callable capability exposed to the model.
type Tool interface {
	// Name returns the tool name as offered to the model.
	Name() string

	// Description explains the tool to the model.
	Description() string

	// Schema returns the JSON schema for the tool's input.
	Schema() map[string]any

	// Call executes the tool. The result map is rendered into the tool
	// result sent back to the model; an "error" key marks a failed call.
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

// MCPManager is the slice of a tool-server manager the agent needs to
// recover from connection failures between attempts.
type MCPManager interface {
	// Tools lists the currently available tools, connecting lazily.
	Tools(ctx context.Context) ([]Tool, error)

	// ReconnectAll drops the connection and reconnects with retry.
	ReconnectAll(ctx context.Context) error

	// MaxRetries is the attempt budget for the invocation retry loop.
	MaxRetries() int

	// RetryDelay is the base backoff delay; it doubles each attempt.
	RetryDelay() time.Duration
}

// History stores per-session conversation windows.
type History interface {
	// Messages returns the retained window for the session, oldest first.
	Messages(sessionID string) []model.Message

	// Append adds messages to the session's window.
	Append(sessionID string, msgs ...model.Message)
}

// FuncTool adapts a plain function to the Tool interface, for tools
// registered locally rather than served over MCP.
type FuncTool struct {
	name        string
	description string
	schema      map[string]any
	fn          func(ctx context.Context, args map[string]any) (map[string]any, error)
}

// NewFuncTool creates a function-backed tool. A nil schema becomes an
// empty object schema so providers always see a valid one.
func NewFuncTool(name, description string, schema map[string]any, fn func(ctx context.Context, args map[string]any) (map[string]any, error)) *FuncTool {
	if schema == nil {
		schema = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return &FuncTool{name: name, description: description, schema: schema, fn: fn}
}

func (t *FuncTool) Name() string { return t.name }

func (t *FuncTool) Description() string { return t.description }

func (t *FuncTool) Schema() map[string]any { return t.schema }

func (t *FuncTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	return t.fn(ctx, args)
}

// toolSpecs renders the tool set for a model request.
func toolSpecs(tools []Tool) []model.ToolSpec {
	specs := make([]model.ToolSpec, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, model.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		})
	}
	return specs
}

var _ Tool = (*FuncTool)(nil)
