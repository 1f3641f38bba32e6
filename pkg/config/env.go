package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultEnvFiles are loaded in order when no explicit env file is given.
// Earlier files win because godotenv never overwrites a key that is
// already set.
var DefaultEnvFiles = []string{".env.local", ".env"}

// LoadEnvFiles loads the given .env files into the process environment.
// Variables already present in the real environment are never overwritten,
// and missing files are skipped silently.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = DefaultEnvFiles
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnvOverrides overrides file-sourced agent settings from well-known
// environment variables. Deployment writes AGENT_RUNTIME_ARN after creating
// the runtime, so the environment must win over whatever the file says.
func ApplyEnvOverrides(c *Config) {
	if v := os.Getenv("AGENT_RUNTIME_ARN"); v != "" {
		c.Agent.AgentRuntimeARN = v
	}
	if v := os.Getenv("AGENT_ENDPOINT"); v != "" {
		c.Agent.AgentEndpoint = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Agent.AWSRegion = v
	}
	if v := os.Getenv("MEMORY_ID"); v != "" {
		c.Agent.MemoryID = v
	}
	if v := os.Getenv("MODEL"); v != "" {
		c.Agent.Model = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Agent.Environment = v
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default}, and $VAR references.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// ExpandEnvVars recursively expands environment variable references in all
// string values of a parsed config map.
func ExpandEnvVars(input map[string]any) map[string]any {
	result := make(map[string]any, len(input))
	for k, v := range input {
		result[k] = expandValue(v)
	}
	return result
}

func expandValue(v any) any {
	switch val := v.(type) {
	case string:
		return expandEnvString(val)
	case map[string]any:
		return ExpandEnvVars(val)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = expandValue(item)
		}
		return result
	default:
		return v
	}
}

func expandEnvString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "${") {
			inner := match[2 : len(match)-1]

			// ${VAR:-default}
			if idx := strings.Index(inner, ":-"); idx != -1 {
				varName := inner[:idx]
				defaultVal := inner[idx+2:]
				if val := os.Getenv(varName); val != "" {
					return val
				}
				return defaultVal
			}

			return os.Getenv(inner)
		}

		// $VAR
		return os.Getenv(match[1:])
	})
}
