package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/droverhq/drover/pkg/config"
)

// SchemaCmd generates JSON Schema from the config structs. Output is
// written to stdout so it can be redirected to a file.
type SchemaCmd struct {
	Compact bool `help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		// Disallow additional properties for strict validation
		AllowAdditionalProperties: false,
		// Inline all definitions (no $ref) so editors can consume it
		DoNotReference: true,
	}

	schema := reflector.Reflect(&config.Config{})

	schema.ID = "https://droverhq.github.io/schemas/config.json"
	schema.Title = "Drover Configuration Schema"
	schema.Description = "Configuration schema for the drover agent runtime"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	schema.Examples = []interface{}{
		map[string]interface{}{
			"agent": map[string]interface{}{
				"name":          "assistant",
				"model":         "bedrock:us.anthropic.claude-haiku-4-5-20251001-v1:0",
				"system_prompt": "You are a helpful assistant.",
			},
			"tools": map[string]interface{}{
				"gateway": map[string]interface{}{
					"type": "mcp",
					"url":  "https://gateway.example.com/mcp",
					"headers": map[string]interface{}{
						"Authorization": "Bearer ${GATEWAY_TOKEN}",
					},
				},
			},
			"session": map[string]interface{}{
				"window_size": 20,
			},
		},
	}

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}

	return nil
}
