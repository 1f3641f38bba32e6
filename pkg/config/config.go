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

// Package config defines drover's configuration model and loading pipeline.
//
// Configuration flows through a fixed sequence: raw YAML (or JSON) is read
// from a provider, ${VAR} references are expanded from the environment,
// the result is strictly decoded (unknown keys are errors), well-known
// environment variables override file values, defaults fill the gaps, and
// the final struct is validated. A zero-value Config processed through
// SetDefaults is a working local setup, so running without a config file
// is fully supported.
package config

import (
	"fmt"

	"github.com/droverhq/drover/pkg/observability"
)

// Defaults applied by SetDefaults. The model and region mirror what the
// AgentCore deployment provisions when nothing is configured.
const (
	DefaultAWSRegion   = "us-east-1"
	DefaultModel       = "bedrock:us.anthropic.claude-haiku-4-5-20251001-v1:0"
	DefaultEnvironment = "dev"
	DefaultAgentName   = "drover"

	DefaultMaxToolIterations = 10
)

// Config is the root configuration for every drover entrypoint: the runtime
// service, the invoker CLI, and the chat client all read from this struct.
type Config struct {
	// Agent configures the hosted agent itself.
	Agent AgentConfig `yaml:"agent,omitempty" json:"agent,omitempty" jsonschema:"title=Agent,description=Agent identity and model settings"`

	// Server configures the AgentCore runtime HTTP service.
	Server ServerConfig `yaml:"server,omitempty" json:"server,omitempty" jsonschema:"title=Server,description=Runtime HTTP service settings"`

	// Session configures conversation history retention.
	Session SessionConfig `yaml:"session,omitempty" json:"session,omitempty" jsonschema:"title=Session,description=Conversation history settings"`

	// Tools configures tool sources by name (MCP servers and builtins).
	Tools map[string]*ToolConfig `yaml:"tools,omitempty" json:"tools,omitempty" jsonschema:"title=Tools,description=Tool sources keyed by name"`

	// Observability configures tracing and metrics.
	Observability *observability.Config `yaml:"observability,omitempty" json:"observability,omitempty" jsonschema:"title=Observability,description=Tracing and metrics settings"`

	// Logger configures logging output.
	Logger LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty" jsonschema:"title=Logger,description=Logging settings"`
}

// AgentConfig describes the agent hosted by the runtime and targeted by the
// invoker. The runtime ARN and endpoint are only needed for remote
// invocation; a local `drover serve` works without them.
type AgentConfig struct {
	// Name identifies the agent in logs and traces.
	// Default: "drover"
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Name,description=Agent name,default=drover"`

	// Description is free-form text surfaced to operators.
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Description,description=Human-readable agent description"`

	// Model selects the LLM in "provider:model-id" form.
	// Default: "bedrock:us.anthropic.claude-haiku-4-5-20251001-v1:0"
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,description=Model in provider:model-id form"`

	// SystemPrompt is sent to the model on every run.
	SystemPrompt string `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty" jsonschema:"title=System Prompt,description=System prompt for the agent"`

	// AWSRegion for Bedrock and AgentCore clients.
	// Default: "us-east-1"
	AWSRegion string `yaml:"aws_region,omitempty" json:"aws_region,omitempty" jsonschema:"title=AWS Region,description=AWS region,default=us-east-1"`

	// MemoryID references an AgentCore memory resource. Empty disables
	// managed memory.
	MemoryID string `yaml:"memory_id,omitempty" json:"memory_id,omitempty" jsonschema:"title=Memory ID,description=AgentCore memory resource ID"`

	// AgentRuntimeARN is the deployed runtime targeted by `drover invoke`.
	// Usually supplied via the AGENT_RUNTIME_ARN environment variable after
	// deployment.
	AgentRuntimeARN string `yaml:"agent_runtime_arn,omitempty" json:"agent_runtime_arn,omitempty" jsonschema:"title=Agent Runtime ARN,description=Deployed AgentCore runtime ARN"`

	// AgentEndpoint is the endpoint qualifier used on invocation
	// (dev, canary, prod, or a custom alias). Empty means the service
	// default endpoint.
	AgentEndpoint string `yaml:"agent_endpoint,omitempty" json:"agent_endpoint,omitempty" jsonschema:"title=Agent Endpoint,description=Endpoint qualifier for invocation"`

	// Environment names the deployment environment.
	// Default: "dev"
	Environment string `yaml:"environment,omitempty" json:"environment,omitempty" jsonschema:"title=Environment,description=Deployment environment,default=dev"`

	// MaxToolIterations caps the model/tool round-trip loop in a single run.
	// Default: 10
	MaxToolIterations int `yaml:"max_tool_iterations,omitempty" json:"max_tool_iterations,omitempty" jsonschema:"title=Max Tool Iterations,description=Cap on tool round trips per run,minimum=1,default=10"`

	// StructuredOutput requests a typed final answer in addition to the
	// text response.
	StructuredOutput *StructuredOutputConfig `yaml:"structured_output,omitempty" json:"structured_output,omitempty" jsonschema:"title=Structured Output,description=Typed final answer settings"`
}

// StructuredOutputConfig makes the agent produce a JSON document matching
// Schema alongside its text answer. The runtime returns it in the
// structured_output response field and in the RUN_FINISHED result.
type StructuredOutputConfig struct {
	// Schema is a JSON Schema object describing the response shape.
	Schema map[string]any `yaml:"schema,omitempty" json:"schema,omitempty" jsonschema:"title=Schema,description=JSON Schema for the structured response"`

	// Prompt is appended to the extraction request. Optional.
	Prompt string `yaml:"prompt,omitempty" json:"prompt,omitempty" jsonschema:"title=Prompt,description=Extra instruction for extraction"`

	// Name labels the schema when it is presented to the model as a tool.
	// Default: "response"
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Schema Name,description=Name for the schema,default=response"`

	// Strict logs extraction failures at error level instead of debug.
	// Extraction failures never fail the run either way; the structured
	// output is simply absent from the response.
	// Default: true
	Strict *bool `yaml:"strict,omitempty" json:"strict,omitempty" jsonschema:"title=Strict,description=Log extraction failures at error level,default=true"`
}

// SetDefaults applies default values to StructuredOutputConfig.
func (c *StructuredOutputConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "response"
	}
	if c.Strict == nil {
		c.Strict = BoolPtr(true)
	}
}

// Validate checks the structured output configuration.
func (c *StructuredOutputConfig) Validate() error {
	if len(c.Schema) == 0 {
		return fmt.Errorf("schema is required for structured output")
	}
	return nil
}

// IsStrict returns whether strict mode is enabled.
func (c *StructuredOutputConfig) IsStrict() bool {
	return c.Strict == nil || *c.Strict
}

// SetDefaults applies default values to AgentConfig.
func (c *AgentConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = DefaultAgentName
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.AWSRegion == "" {
		c.AWSRegion = DefaultAWSRegion
	}
	if c.Environment == "" {
		c.Environment = DefaultEnvironment
	}
	if c.MaxToolIterations <= 0 {
		c.MaxToolIterations = DefaultMaxToolIterations
	}
	if c.StructuredOutput != nil {
		c.StructuredOutput.SetDefaults()
	}
}

// Validate checks the agent configuration.
func (c *AgentConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.AWSRegion == "" {
		return fmt.Errorf("aws_region is required")
	}
	if c.MaxToolIterations < 1 {
		return fmt.Errorf("max_tool_iterations must be at least 1")
	}
	if c.StructuredOutput != nil {
		if err := c.StructuredOutput.Validate(); err != nil {
			return fmt.Errorf("structured_output: %w", err)
		}
	}
	return nil
}

// SetDefaults applies defaults to all sections.
func (c *Config) SetDefaults() {
	c.Agent.SetDefaults()
	c.Server.SetDefaults()
	c.Session.SetDefaults()
	for name, tool := range c.Tools {
		if tool == nil {
			tool = &ToolConfig{}
			c.Tools[name] = tool
		}
		tool.SetDefaults()
	}
	if c.Observability != nil {
		c.Observability.SetDefaults()
	}
	c.Logger.SetDefaults()
}

// Validate checks all sections and returns the first error found.
func (c *Config) Validate() error {
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	for name, tool := range c.Tools {
		if err := tool.Validate(); err != nil {
			return fmt.Errorf("tools.%s: %w", name, err)
		}
	}
	if c.Observability != nil {
		if err := c.Observability.Validate(); err != nil {
			return fmt.Errorf("observability: %w", err)
		}
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	return nil
}

// Default returns a Config built purely from defaults and environment
// variables, for running without a config file.
func Default() (*Config, error) {
	cfg := &Config{}
	ApplyEnvOverrides(cfg)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
