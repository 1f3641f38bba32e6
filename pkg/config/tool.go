package config

import (
	"fmt"
	"time"
)

// MCP reconnection defaults, applied per server.
const (
	DefaultMCPMaxRetries = 3
	DefaultMCPRetryDelay = time.Second
)

// ToolType identifies the tool source type.
type ToolType string

const (
	// ToolTypeMCP is a tool served by an MCP (Model Context Protocol) server.
	ToolTypeMCP ToolType = "mcp"

	// ToolTypeFunction is a built-in function tool.
	ToolTypeFunction ToolType = "function"
)

// ToolConfig configures one tool source. For MCP sources this describes the
// server connection; for function sources it names a built-in handler.
type ToolConfig struct {
	// Type of tool source (mcp, function).
	Type ToolType `yaml:"type,omitempty" json:"type,omitempty" jsonschema:"title=Tool Type,description=Type of tool source,enum=mcp,enum=function,default=mcp"`

	// Enabled controls whether the source is active.
	// Default: true
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"title=Enabled,description=Whether the source is active,default=true"`

	// Description of the tool source.
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Description,description=What this source provides"`

	// URL is the MCP server URL for the streamable-http transport.
	URL string `yaml:"url,omitempty" json:"url,omitempty" jsonschema:"title=URL,description=MCP server URL (streamable-http)"`

	// Transport specifies the MCP transport (stdio, streamable-http).
	// Inferred from URL or Command when empty.
	Transport string `yaml:"transport,omitempty" json:"transport,omitempty" jsonschema:"title=Transport,description=MCP transport,enum=stdio,enum=streamable-http"`

	// Command starts a local MCP server over the stdio transport.
	Command string `yaml:"command,omitempty" json:"command,omitempty" jsonschema:"title=Command,description=Command to start a stdio MCP server"`

	// Args for the stdio command.
	Args []string `yaml:"args,omitempty" json:"args,omitempty" jsonschema:"title=Args,description=Arguments for the stdio command"`

	// Env for the stdio command.
	Env map[string]string `yaml:"env,omitempty" json:"env,omitempty" jsonschema:"title=Environment Variables,description=Environment for the stdio command"`

	// Headers sent on every streamable-http request, for gateway auth.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty" jsonschema:"title=Headers,description=HTTP headers for the MCP gateway"`

	// Tags keeps only tools whose server-side metadata carries at least one
	// of these tags. Empty keeps everything.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty" jsonschema:"title=Tags,description=Keep only tools tagged with any of these"`

	// Filter keeps only tools with these exact names. Applied after Tags.
	Filter []string `yaml:"filter,omitempty" json:"filter,omitempty" jsonschema:"title=Filter,description=Keep only tools with these names"`

	// MaxRetries is the number of reconnect attempts on connection failure.
	// Default: 3
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty" jsonschema:"title=Max Retries,description=Reconnect attempts on failure,minimum=0,default=3"`

	// RetryDelay is the base delay between reconnect attempts; the actual
	// delay doubles each attempt.
	// Default: 1s
	RetryDelay time.Duration `yaml:"retry_delay,omitempty" json:"retry_delay,omitempty" jsonschema:"title=Retry Delay,description=Base delay between reconnect attempts,default=1s"`

	// InsecureSkipVerify disables TLS certificate verification for the
	// streamable-http transport. Local development only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify,omitempty" json:"insecure_skip_verify,omitempty" jsonschema:"title=Insecure Skip Verify,description=Disable TLS verification"`

	// CACertificate is a path to a PEM CA bundle for the streamable-http
	// transport.
	CACertificate string `yaml:"ca_certificate,omitempty" json:"ca_certificate,omitempty" jsonschema:"title=CA Certificate,description=Path to a PEM CA bundle"`

	// Handler is the built-in function name (for type: function).
	Handler string `yaml:"handler,omitempty" json:"handler,omitempty" jsonschema:"title=Handler,description=Built-in function name (for type=function)"`
}

// SetDefaults applies default values.
func (c *ToolConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = ToolTypeMCP
	}
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}

	if c.Type == ToolTypeMCP {
		if c.Transport == "" {
			if c.URL != "" {
				c.Transport = "streamable-http"
			} else if c.Command != "" {
				c.Transport = "stdio"
			}
		}
		if c.MaxRetries == 0 {
			c.MaxRetries = DefaultMCPMaxRetries
		}
		if c.RetryDelay == 0 {
			c.RetryDelay = DefaultMCPRetryDelay
		}
	}
}

// Validate checks the tool configuration.
func (c *ToolConfig) Validate() error {
	switch c.Type {
	case ToolTypeMCP:
		if c.URL == "" && c.Command == "" {
			return fmt.Errorf("mcp tool requires url or command")
		}
		switch c.Transport {
		case "stdio":
			if c.Command == "" {
				return fmt.Errorf("stdio transport requires command")
			}
		case "streamable-http":
			if c.URL == "" {
				return fmt.Errorf("streamable-http transport requires url")
			}
		case "":
		default:
			return fmt.Errorf("invalid transport %q (valid: stdio, streamable-http)", c.Transport)
		}
	case ToolTypeFunction:
		if c.Handler == "" {
			return fmt.Errorf("function tool requires handler")
		}
	default:
		return fmt.Errorf("invalid tool type %q (valid: mcp, function)", c.Type)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be non-negative")
	}

	return nil
}

// IsEnabled returns whether the source is enabled.
func (c *ToolConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
