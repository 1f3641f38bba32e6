package runtime

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/droverhq/drover/pkg/agent"
	"github.com/droverhq/drover/pkg/config"
	"github.com/droverhq/drover/pkg/mcp"
	"github.com/droverhq/drover/pkg/model"
	"github.com/droverhq/drover/pkg/model/bedrock"
	"github.com/droverhq/drover/pkg/observability"
	"github.com/droverhq/drover/pkg/session"
)

// DefaultProviderFactory builds the model provider selected by the
// agent's "provider:model-id" setting. Bedrock model ids contain colons,
// so only the first segment names the provider.
func DefaultProviderFactory(ctx context.Context, cfg *config.AgentConfig) (model.Provider, error) {
	provider, modelID, ok := strings.Cut(cfg.Model, ":")
	if !ok || modelID == "" {
		return nil, fmt.Errorf("model %q is not in provider:model-id form", cfg.Model)
	}

	switch provider {
	case "bedrock":
		return bedrock.New(ctx, bedrock.Config{
			ModelID: modelID,
			Region:  cfg.AWSRegion,
		})
	default:
		return nil, fmt.Errorf("unknown model provider: %s", provider)
	}
}

// DefaultHistoryFactory builds conversation storage for the configured
// backend. SQL stores draw connections from pool so stores can share a
// database across agents.
func DefaultHistoryFactory(cfg *config.SessionConfig, pool *config.DBPool, agentName string) (agent.History, error) {
	if cfg.Backend == config.StorageBackendSQL {
		return session.NewSQLStoreFromConfig(cfg, pool, agentName)
	}
	return session.NewWindowHistory(session.OptionsFromConfig(cfg))
}

// DefaultFunctionTool maps a configured handler name to its built-in
// implementation.
func DefaultFunctionTool(name string, tc *config.ToolConfig) (agent.Tool, error) {
	switch tc.Handler {
	case "simple_calculator":
		return calculatorTool(), nil
	case "greet":
		return greetTool(), nil
	case "get_weather":
		return weatherTool(), nil
	default:
		return nil, fmt.Errorf("tool %s: unknown function handler %q", name, tc.Handler)
	}
}

// Assembly is a composed agent plus the resources behind it. Close
// releases the MCP connections and database pools; the agent must not
// be used afterwards.
type Assembly struct {
	Agent *agent.Agent
	MCP   *mcp.Group

	pool *config.DBPool
}

// Close releases the assembly's connections.
func (a *Assembly) Close() error {
	var firstErr error
	if a.MCP != nil {
		if err := a.MCP.Close(); err != nil {
			firstErr = err
		}
	}
	if a.pool != nil {
		if err := a.pool.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BuildAgent composes an agent from configuration: model provider,
// built-in function tools, MCP servers, history, and structured output.
// MCP servers are not connected yet; the first Tools listing connects
// them, or call Assembly.MCP.Connect to fail fast.
func BuildAgent(ctx context.Context, cfg *config.Config, obs *observability.Manager) (*Assembly, error) {
	provider, err := DefaultProviderFactory(ctx, &cfg.Agent)
	if err != nil {
		return nil, fmt.Errorf("model provider: %w", err)
	}

	group, err := mcp.NewGroup(cfg.Tools)
	if err != nil {
		return nil, err
	}

	localTools, err := functionTools(cfg.Tools)
	if err != nil {
		return nil, err
	}

	pool := config.NewDBPool()
	history, err := DefaultHistoryFactory(&cfg.Session, pool, cfg.Agent.Name)
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("session history: %w", err)
	}

	opts := agent.Options{
		Name:          cfg.Agent.Name,
		Description:   cfg.Agent.Description,
		SystemPrompt:  cfg.Agent.SystemPrompt,
		Provider:      provider,
		Tools:         localTools,
		History:       history,
		MaxIterations: cfg.Agent.MaxToolIterations,
		Observability: obs,
	}
	if group.Len() > 0 {
		opts.MCP = group
	}
	if cfg.Agent.StructuredOutput != nil {
		opts.Structured = agent.StructuredFromConfig(cfg.Agent.StructuredOutput)
	}

	ag, err := agent.New(opts)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}

	return &Assembly{Agent: ag, MCP: group, pool: pool}, nil
}

// functionTools builds the enabled function entries in name order.
func functionTools(tools map[string]*config.ToolConfig) ([]agent.Tool, error) {
	names := make([]string, 0, len(tools))
	for name, tc := range tools {
		if tc == nil || !tc.IsEnabled() || tc.Type != config.ToolTypeFunction {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	built := make([]agent.Tool, 0, len(names))
	for _, name := range names {
		tool, err := DefaultFunctionTool(name, tools[name])
		if err != nil {
			return nil, err
		}
		built = append(built, tool)
	}
	return built, nil
}

func calculatorTool() agent.Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a":         map[string]any{"type": "integer", "description": "First number"},
			"b":         map[string]any{"type": "integer", "description": "Second number"},
			"operation": map[string]any{"type": "string", "description": "One of 'add', 'subtract', 'multiply', 'divide'", "enum": []string{"add", "subtract", "multiply", "divide"}},
		},
		"required": []string{"a", "b", "operation"},
	}
	return agent.NewFuncTool("simple_calculator", "Perform simple arithmetic operations.", schema,
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			a := floatArg(args, "a")
			b := floatArg(args, "b")

			var text string
			switch args["operation"] {
			case "add":
				text = formatNumber(a + b)
			case "subtract":
				text = formatNumber(a - b)
			case "multiply":
				text = formatNumber(a * b)
			case "divide":
				if b == 0 {
					text = "Error: Division by zero"
				} else {
					text = formatNumber(a / b)
				}
			default:
				text = "Error: Unknown operation"
			}
			return map[string]any{"result": text}, nil
		})
}

func greetTool() agent.Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "description": "The name of the person to greet"},
		},
		"required": []string{"name"},
	}
	return agent.NewFuncTool("greet", "Greet someone by name.", schema,
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			name, _ := args["name"].(string)
			return map[string]any{"result": fmt.Sprintf("Hello, %s! Nice to meet you.", name)}, nil
		})
}

func weatherTool() agent.Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{"type": "string", "description": "The city name"},
		},
		"required": []string{"city"},
	}
	return agent.NewFuncTool("get_weather", "Get weather information for a city.", schema,
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			city, _ := args["city"].(string)
			return map[string]any{"result": fmt.Sprintf("The weather in %s is sunny and 72°F.", city)}, nil
		})
}

// floatArg reads a numeric argument. JSON decoding yields float64; int
// covers arguments built directly in tests.
func floatArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
