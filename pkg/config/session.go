package config

import "fmt"

// DefaultSessionWindow is the number of recent messages kept per session.
const DefaultSessionWindow = 20

// DefaultTokenEncoding is the tiktoken encoding used for budget counting.
const DefaultTokenEncoding = "cl100k_base"

// StorageBackend identifies a session storage backend.
type StorageBackend string

const (
	// StorageBackendInMemory keeps sessions in process memory (default).
	StorageBackendInMemory StorageBackend = "inmemory"

	// StorageBackendSQL persists sessions to a SQL database.
	StorageBackendSQL StorageBackend = "sql"
)

// SessionConfig configures conversation history retention.
//
// WindowSize bounds history by message count; TokenBudget optionally bounds
// it by token count on top of that. Both trims keep the most recent
// messages.
type SessionConfig struct {
	// WindowSize is the number of recent messages retained per session.
	// Default: 20
	WindowSize int `yaml:"window_size,omitempty" json:"window_size,omitempty" jsonschema:"title=Window Size,description=Recent messages retained per session,minimum=1,default=20"`

	// TokenBudget trims history to approximately this many tokens.
	// 0 disables token-based trimming.
	TokenBudget int `yaml:"token_budget,omitempty" json:"token_budget,omitempty" jsonschema:"title=Token Budget,description=Token cap for history (0 disables),minimum=0"`

	// TokenEncoding selects the tokenizer used for budget counting.
	// Default: "cl100k_base"
	TokenEncoding string `yaml:"token_encoding,omitempty" json:"token_encoding,omitempty" jsonschema:"title=Token Encoding,description=Tokenizer encoding name,default=cl100k_base"`

	// Backend specifies the storage backend: "inmemory" (default) or "sql".
	Backend StorageBackend `yaml:"backend,omitempty" json:"backend,omitempty" jsonschema:"title=Backend,description=Session storage backend,enum=inmemory,enum=sql,default=inmemory"`

	// Database configures the SQL connection. Required when Backend is "sql".
	Database *DatabaseConfig `yaml:"database,omitempty" json:"database,omitempty" jsonschema:"title=Database,description=SQL connection settings"`
}

// SetDefaults applies default values to SessionConfig.
func (c *SessionConfig) SetDefaults() {
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultSessionWindow
	}
	if c.TokenEncoding == "" {
		c.TokenEncoding = DefaultTokenEncoding
	}
	if c.Backend == "" {
		c.Backend = StorageBackendInMemory
	}
	if c.Database != nil {
		c.Database.SetDefaults()
	}
}

// Validate checks the session configuration.
func (c *SessionConfig) Validate() error {
	if c.WindowSize < 1 {
		return fmt.Errorf("window_size must be at least 1")
	}
	if c.TokenBudget < 0 {
		return fmt.Errorf("token_budget must be non-negative")
	}
	switch c.Backend {
	case StorageBackendInMemory, "":
	case StorageBackendSQL:
		if c.Database == nil {
			return fmt.Errorf("database is required when backend is %q", StorageBackendSQL)
		}
	default:
		return fmt.Errorf("invalid backend %q (valid: inmemory, sql)", c.Backend)
	}
	if c.Database != nil {
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	return nil
}
