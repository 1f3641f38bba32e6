package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// managedTool adapts one remote MCP tool to the agent.Tool interface.
// Calls route through the owning Manager so reconnect handling applies.
type managedTool struct {
	manager *Manager
	name    string
	desc    string
	schema  map[string]any
}

func (t *managedTool) Name() string { return t.name }

func (t *managedTool) Description() string { return t.desc }

func (t *managedTool) Schema() map[string]any {
	if t.schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return t.schema
}

func (t *managedTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	return t.manager.CallTool(ctx, t.name, "", args)
}

// CallWithID forwards the model's tool use id as the MCP progress token.
// The agent loop prefers this over Call when available.
func (t *managedTool) CallWithID(ctx context.Context, toolUseID string, args map[string]any) (map[string]any, error) {
	return t.manager.CallTool(ctx, t.name, toolUseID, args)
}

// convertSchema turns an mcp-go input schema into a plain map by JSON
// round-trip, which also resolves RawInputSchema when set.
func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return result
}

// parseCallResult flattens an mcp-go tool result into the map shape the
// agent hands back to the model.
func parseCallResult(resp *mcp.CallToolResult) map[string]any {
	result := make(map[string]any)

	if resp.IsError {
		errorMsg := "unknown error"
		if len(resp.Content) > 0 {
			if textContent, ok := resp.Content[0].(mcp.TextContent); ok {
				errorMsg = textContent.Text
			}
		}
		result["error"] = errorMsg
		return result
	}

	var texts []string
	for _, content := range resp.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}

	switch len(texts) {
	case 0:
		result["result"] = ""
	case 1:
		result["result"] = texts[0]
	default:
		result["results"] = texts
	}
	return result
}

// parseRawCallResult flattens a JSON-RPC tools/call result. The wire
// shape mirrors mcp.CallToolResult: content blocks plus isError.
func parseRawCallResult(raw any) map[string]any {
	result := make(map[string]any)

	resultMap, ok := raw.(map[string]any)
	if !ok {
		result["result"] = ""
		return result
	}

	isError, _ := resultMap["isError"].(bool)
	contentList, _ := resultMap["content"].([]any)

	var texts []string
	for _, contentRaw := range contentList {
		contentMap, ok := contentRaw.(map[string]any)
		if !ok {
			continue
		}
		if contentType, _ := contentMap["type"].(string); contentType != "text" {
			continue
		}
		if text, ok := contentMap["text"].(string); ok {
			texts = append(texts, text)
		}
	}

	if isError {
		errorMsg := "unknown error"
		if len(texts) > 0 {
			errorMsg = texts[0]
		}
		result["error"] = errorMsg
		return result
	}

	switch len(texts) {
	case 0:
		result["result"] = ""
	case 1:
		result["result"] = texts[0]
	default:
		result["results"] = texts
	}
	return result
}

// stdioToolTags extracts tags from a tool's _meta._fastmcp.tags field,
// as published by FastMCP servers.
func stdioToolTags(tool mcp.Tool) []string {
	if tool.Meta == nil {
		return nil
	}
	return fastmcpTags(tool.Meta.AdditionalFields)
}

// httpToolTags extracts the same tags from a raw tools/list entry.
func httpToolTags(toolMap map[string]any) []string {
	meta, _ := toolMap["_meta"].(map[string]any)
	return fastmcpTags(meta)
}

func fastmcpTags(meta map[string]any) []string {
	if meta == nil {
		return nil
	}
	fastmcp, _ := meta["_fastmcp"].(map[string]any)
	if fastmcp == nil {
		return nil
	}
	tagsRaw, _ := fastmcp["tags"].([]any)

	var tags []string
	for _, tagRaw := range tagsRaw {
		if tag, ok := tagRaw.(string); ok {
			tags = append(tags, tag)
		}
	}
	return tags
}
