package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/droverhq/drover/pkg/config"
)

// defaultConfigFile is picked up from the working directory when --config
// is not given.
const defaultConfigFile = "drover.yaml"

// loadConfig resolves configuration for a command: explicit --config path
// first, then drover.yaml in the working directory, then zero-config
// defaults driven by environment variables. The returned loader is nil
// outside file mode; callers that get one own closing it.
func loadConfig(ctx context.Context, path string) (*config.Config, *config.Loader, error) {
	if path == "" && fileExists(defaultConfigFile) {
		path = defaultConfigFile
	}

	if path != "" {
		cfg, loader, err := config.LoadConfigFile(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		slog.Info("Loaded configuration", "path", path)
		return cfg, loader, nil
	}

	cfg := &config.Config{}
	config.ApplyEnvOverrides(cfg)
	cfg.SetDefaults()
	slog.Info("Using zero-config defaults")
	return cfg, nil, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
