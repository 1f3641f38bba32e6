package config

import "fmt"

// AgentCore runtime contract: the container must listen on 0.0.0.0:8080.
const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
)

// ServerConfig configures the runtime HTTP service started by `drover serve`.
type ServerConfig struct {
	// Host to bind to.
	// Default: "0.0.0.0"
	Host string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"title=Host,description=Bind address,default=0.0.0.0"`

	// Port to listen on. AgentCore routes invocations to port 8080.
	// Default: 8080
	Port int `yaml:"port,omitempty" json:"port,omitempty" jsonschema:"title=Port,description=Listen port,minimum=1,maximum=65535,default=8080"`
}

// SetDefaults applies default values to ServerConfig.
func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = DefaultServerHost
	}
	if c.Port == 0 {
		c.Port = DefaultServerPort
	}
}

// Validate checks the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Address returns the host:port string to listen on.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
