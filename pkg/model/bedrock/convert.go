package bedrock

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/droverhq/drover/pkg/model"
)

// toMessages renders the conversation in the Converse API's union shapes.
func toMessages(msgs []model.Message) []types.Message {
	out := make([]types.Message, 0, len(msgs))
	for _, msg := range msgs {
		role := types.ConversationRoleUser
		if msg.Role == model.RoleAssistant {
			role = types.ConversationRoleAssistant
		}

		blocks := make([]types.ContentBlock, 0, len(msg.Content))
		for _, block := range msg.Content {
			switch {
			case block.ToolUse != nil:
				blocks = append(blocks, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(block.ToolUse.ID),
						Name:      aws.String(block.ToolUse.Name),
						Input:     document.NewLazyDocument(block.ToolUse.Input),
					},
				})
			case block.ToolResult != nil:
				status := types.ToolResultStatusSuccess
				if block.ToolResult.IsError {
					status = types.ToolResultStatusError
				}
				blocks = append(blocks, &types.ContentBlockMemberToolResult{
					Value: types.ToolResultBlock{
						ToolUseId: aws.String(block.ToolResult.ToolUseID),
						Status:    status,
						Content: []types.ToolResultContentBlock{
							&types.ToolResultContentBlockMemberText{Value: block.ToolResult.Content},
						},
					},
				})
			default:
				blocks = append(blocks, &types.ContentBlockMemberText{Value: block.Text})
			}
		}

		out = append(out, types.Message{Role: role, Content: blocks})
	}
	return out
}

// toSystem wraps the system prompt. Empty prompts send no system blocks.
func toSystem(system string) []types.SystemContentBlock {
	if system == "" {
		return nil
	}
	return []types.SystemContentBlock{
		&types.SystemContentBlockMemberText{Value: system},
	}
}

// toToolConfig renders the tool specs and choice. The Converse API rejects
// an empty tool list, so no tools means no tool config at all.
func toToolConfig(tools []model.ToolSpec, choice *model.ToolChoice) *types.ToolConfiguration {
	if len(tools) == 0 {
		return nil
	}

	cfg := &types.ToolConfiguration{}
	for _, tool := range tools {
		schema := tool.InputSchema
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		spec := types.ToolSpecification{
			Name:        aws.String(tool.Name),
			InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
		}
		if tool.Description != "" {
			spec.Description = aws.String(tool.Description)
		}
		cfg.Tools = append(cfg.Tools, &types.ToolMemberToolSpec{Value: spec})
	}

	if choice != nil {
		switch choice.Mode {
		case model.ToolChoiceAny:
			cfg.ToolChoice = &types.ToolChoiceMemberAny{Value: types.AnyToolChoice{}}
		case model.ToolChoiceTool:
			cfg.ToolChoice = &types.ToolChoiceMemberTool{
				Value: types.SpecificToolChoice{Name: aws.String(choice.Name)},
			}
		default:
			cfg.ToolChoice = &types.ToolChoiceMemberAuto{Value: types.AutoToolChoice{}}
		}
	}

	return cfg
}

// fromConverseOutput unpacks a non-streaming result.
func fromConverseOutput(out *bedrockruntime.ConverseOutput) (*model.Response, error) {
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected converse output type %T", out.Output)
	}

	resp := &model.Response{
		Message:    fromMessage(msg.Value),
		StopReason: string(out.StopReason),
	}
	if out.Usage != nil {
		resp.Usage = model.Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:  int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}
	return resp, nil
}

func fromMessage(msg types.Message) model.Message {
	out := model.Message{Role: model.RoleAssistant}
	if msg.Role == types.ConversationRoleUser {
		out.Role = model.RoleUser
	}

	for _, block := range msg.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			out.Content = append(out.Content, model.ContentBlock{Text: b.Value})
		case *types.ContentBlockMemberToolUse:
			out.Content = append(out.Content, model.ContentBlock{
				ToolUse: &model.ToolUse{
					ID:    aws.ToString(b.Value.ToolUseId),
					Name:  aws.ToString(b.Value.Name),
					Input: decodeToolInput(b.Value.Input),
				},
			})
		}
	}
	return out
}

// decodeToolInput extracts tool arguments as plain JSON values. Decoding
// the document's JSON bytes keeps numbers as float64; the document
// package's own unmarshal yields string-backed Number values that would
// re-encode as strings. Undecodable input degrades to an empty argument
// map so the tool call itself still surfaces.
func decodeToolInput(doc document.Interface) map[string]any {
	input := map[string]any{}
	if doc == nil {
		return input
	}
	raw, err := doc.MarshalSmithyDocument()
	if err != nil {
		return input
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return map[string]any{}
	}
	return input
}

// fromStreamEvent maps one wire event to the model package's shapes. Text
// deltas produce two events: the raw contentBlockDelta and its convenience
// Data chunk.
func fromStreamEvent(wire types.ConverseStreamOutput) []model.StreamEvent {
	switch ev := wire.(type) {
	case *types.ConverseStreamOutputMemberMessageStart:
		return []model.StreamEvent{{
			MessageStart: &model.MessageStartEvent{Role: string(ev.Value.Role)},
		}}

	case *types.ConverseStreamOutputMemberContentBlockStart:
		start := model.ContentBlockStart{}
		if tu, ok := ev.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
			start.ToolUse = &model.ToolUseStart{
				Name:      aws.ToString(tu.Value.Name),
				ToolUseID: aws.ToString(tu.Value.ToolUseId),
			}
		}
		return []model.StreamEvent{{
			ContentBlockStart: &model.ContentBlockStartEvent{
				ContentBlockIndex: int(aws.ToInt32(ev.Value.ContentBlockIndex)),
				Start:             start,
			},
		}}

	case *types.ConverseStreamOutputMemberContentBlockDelta:
		index := int(aws.ToInt32(ev.Value.ContentBlockIndex))
		switch delta := ev.Value.Delta.(type) {
		case *types.ContentBlockDeltaMemberText:
			return []model.StreamEvent{
				{
					ContentBlockDelta: &model.ContentBlockDeltaEvent{
						ContentBlockIndex: index,
						Delta:             model.BlockDelta{Text: delta.Value},
					},
				},
				model.TextChunk(delta.Value),
			}
		case *types.ContentBlockDeltaMemberToolUse:
			return []model.StreamEvent{{
				ContentBlockDelta: &model.ContentBlockDeltaEvent{
					ContentBlockIndex: index,
					Delta: model.BlockDelta{
						ToolUse: &model.ToolUseDelta{Input: aws.ToString(delta.Value.Input)},
					},
				},
			}}
		}
		return nil

	case *types.ConverseStreamOutputMemberContentBlockStop:
		return []model.StreamEvent{{
			ContentBlockStop: &model.ContentBlockStopEvent{
				ContentBlockIndex: int(aws.ToInt32(ev.Value.ContentBlockIndex)),
			},
		}}

	case *types.ConverseStreamOutputMemberMessageStop:
		return []model.StreamEvent{{
			MessageStop: &model.MessageStopEvent{StopReason: string(ev.Value.StopReason)},
		}}

	case *types.ConverseStreamOutputMemberMetadata:
		usage := model.Usage{}
		if ev.Value.Usage != nil {
			usage = model.Usage{
				InputTokens:  int(aws.ToInt32(ev.Value.Usage.InputTokens)),
				OutputTokens: int(aws.ToInt32(ev.Value.Usage.OutputTokens)),
				TotalTokens:  int(aws.ToInt32(ev.Value.Usage.TotalTokens)),
			}
		}
		return []model.StreamEvent{{Metadata: &model.MetadataEvent{Usage: usage}}}
	}

	return nil
}
