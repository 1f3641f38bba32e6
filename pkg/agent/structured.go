package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/invopop/jsonschema"

	"github.com/droverhq/drover/pkg/config"
	"github.com/droverhq/drover/pkg/model"
)

// defaultExtractionPrompt asks the model for the typed final answer.
const defaultExtractionPrompt = "Provide the final answer in the requested structured format."

// StructuredOutput configures the typed final answer. After the loop
// completes, the agent makes one extra Converse call forcing a single
// tool whose input schema is Schema; the tool input object is the
// structured output.
type StructuredOutput struct {
	// Name is the extraction tool name. Default: "response".
	Name string

	// Description tells the model what the structured answer is for.
	Description string

	// Schema is the JSON schema of the answer object.
	Schema map[string]any

	// Prompt is the extraction instruction appended to the conversation.
	Prompt string

	// Strict raises extraction failures from debug to error logs.
	Strict bool
}

// StructuredFromConfig maps the configuration file's structured output
// block. Returns nil when the block is absent.
func StructuredFromConfig(cfg *config.StructuredOutputConfig) *StructuredOutput {
	if cfg == nil {
		return nil
	}
	return &StructuredOutput{
		Name:   cfg.Name,
		Schema: cfg.Schema,
		Prompt: cfg.Prompt,
		Strict: cfg.IsStrict(),
	}
}

// SchemaFor reflects a JSON schema map from a Go type, honoring json and
// jsonschema struct tags.
func SchemaFor(v any) map[string]any {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(v)
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	delete(result, "$schema")
	delete(result, "$id")
	return result
}

// extractStructured runs the forced-tool extraction call. Failures never
// fail the run; they log and return nil.
func (a *Agent) extractStructured(ctx context.Context, msgs []model.Message) map[string]any {
	if a.structured == nil {
		return nil
	}

	name := a.structured.Name
	if name == "" {
		name = "response"
	}
	prompt := a.structured.Prompt
	if prompt == "" {
		prompt = defaultExtractionPrompt
	}

	conversation := make([]model.Message, 0, len(msgs)+1)
	conversation = append(conversation, msgs...)
	conversation = append(conversation, model.UserMessage(prompt))

	req := &model.Request{
		Messages: conversation,
		System:   a.systemPrompt,
		Tools: []model.ToolSpec{{
			Name:        name,
			Description: a.structured.Description,
			InputSchema: a.structured.Schema,
		}},
		ToolChoice: &model.ToolChoice{Mode: model.ToolChoiceTool, Name: name},
	}

	resp, err := a.provider.Converse(ctx, req)
	if err != nil {
		a.logExtractionFailure("structured output call failed", err)
		return nil
	}

	uses := resp.Message.ToolUses()
	if len(uses) == 0 {
		a.logExtractionFailure("structured output response carried no tool use", nil)
		return nil
	}
	return uses[0].Input
}

func (a *Agent) logExtractionFailure(msg string, err error) {
	if a.structured != nil && a.structured.Strict {
		slog.Error("Structured output extraction failed", "agent", a.id, "reason", msg, "error", err)
		return
	}
	slog.Debug("Structured output extraction skipped", "agent", a.id, "reason", msg, "error", err)
}
