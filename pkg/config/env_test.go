package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("DROVER_TEST_VALUE", "from-env")
	defer os.Unsetenv("DROVER_TEST_VALUE")
	os.Unsetenv("DROVER_TEST_MISSING")

	input := map[string]any{
		"braced":       "${DROVER_TEST_VALUE}",
		"bare":         "prefix-$DROVER_TEST_VALUE",
		"with_default": "${DROVER_TEST_MISSING:-fallback}",
		"default_skip": "${DROVER_TEST_VALUE:-fallback}",
		"missing":      "${DROVER_TEST_MISSING}",
		"plain":        "no variables here",
		"number":       42,
		"nested": map[string]any{
			"inner": "${DROVER_TEST_VALUE}",
		},
		"list": []any{"${DROVER_TEST_VALUE}", "static", 7},
	}

	result := ExpandEnvVars(input)

	if result["braced"] != "from-env" {
		t.Errorf("braced = %v, want from-env", result["braced"])
	}
	if result["bare"] != "prefix-from-env" {
		t.Errorf("bare = %v, want prefix-from-env", result["bare"])
	}
	if result["with_default"] != "fallback" {
		t.Errorf("with_default = %v, want fallback", result["with_default"])
	}
	if result["default_skip"] != "from-env" {
		t.Errorf("default_skip = %v, want from-env", result["default_skip"])
	}
	if result["missing"] != "" {
		t.Errorf("missing = %v, want empty string", result["missing"])
	}
	if result["plain"] != "no variables here" {
		t.Errorf("plain = %v, should be untouched", result["plain"])
	}
	if result["number"] != 42 {
		t.Errorf("number = %v, should be untouched", result["number"])
	}

	nested := result["nested"].(map[string]any)
	if nested["inner"] != "from-env" {
		t.Errorf("nested.inner = %v, want from-env", nested["inner"])
	}

	list := result["list"].([]any)
	if list[0] != "from-env" || list[1] != "static" || list[2] != 7 {
		t.Errorf("list = %v, want expanded first element only", list)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, "test.env")

	content := "DROVER_ENVFILE_A=file-value\nDROVER_ENVFILE_B=other\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	// A variable already set in the real environment must win
	os.Setenv("DROVER_ENVFILE_A", "real-env")
	defer os.Unsetenv("DROVER_ENVFILE_A")
	defer os.Unsetenv("DROVER_ENVFILE_B")

	if err := LoadEnvFiles(envFile); err != nil {
		t.Fatalf("LoadEnvFiles() error: %v", err)
	}

	if got := os.Getenv("DROVER_ENVFILE_A"); got != "real-env" {
		t.Errorf("existing env var was overwritten: got %v", got)
	}
	if got := os.Getenv("DROVER_ENVFILE_B"); got != "other" {
		t.Errorf("env file var not loaded: got %v", got)
	}
}

func TestLoadEnvFiles_Missing(t *testing.T) {
	if err := LoadEnvFiles("/nonexistent/.env"); err != nil {
		t.Errorf("missing env file should be skipped, got %v", err)
	}
}

func TestLoadEnvFiles_Malformed(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, "bad.env")

	if err := os.WriteFile(envFile, []byte("not a valid line\n===\n"), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	if err := LoadEnvFiles(envFile); err == nil {
		t.Error("expected error for malformed env file")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	clearOverrideEnv(t)

	os.Setenv("AGENT_RUNTIME_ARN", "arn:aws:bedrock-agentcore:us-east-1:123456789012:runtime/test")
	os.Setenv("AGENT_ENDPOINT", "canary")
	os.Setenv("MEMORY_ID", "mem-abc123")
	defer func() {
		os.Unsetenv("AGENT_RUNTIME_ARN")
		os.Unsetenv("AGENT_ENDPOINT")
		os.Unsetenv("MEMORY_ID")
	}()

	cfg := &Config{
		Agent: AgentConfig{
			AgentRuntimeARN: "arn:from-file",
			AgentEndpoint:   "dev",
			Model:           "bedrock:from-file",
		},
	}
	ApplyEnvOverrides(cfg)

	if cfg.Agent.AgentRuntimeARN != "arn:aws:bedrock-agentcore:us-east-1:123456789012:runtime/test" {
		t.Errorf("runtime ARN not overridden: %v", cfg.Agent.AgentRuntimeARN)
	}
	if cfg.Agent.AgentEndpoint != "canary" {
		t.Errorf("endpoint not overridden: %v", cfg.Agent.AgentEndpoint)
	}
	if cfg.Agent.MemoryID != "mem-abc123" {
		t.Errorf("memory ID not overridden: %v", cfg.Agent.MemoryID)
	}
	// MODEL unset, so the file value stays
	if cfg.Agent.Model != "bedrock:from-file" {
		t.Errorf("model should keep file value: %v", cfg.Agent.Model)
	}
}
