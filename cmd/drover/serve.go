package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/droverhq/drover/pkg/config"
	"github.com/droverhq/drover/pkg/observability"
	"github.com/droverhq/drover/pkg/runtime"
)

// ServeCmd starts the AgentCore runtime service.
type ServeCmd struct {
	Host  string `help:"Bind address (overrides config)."`
	Port  int    `help:"Port to listen on (overrides config)."`
	Watch bool   `help:"Watch config file for changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, loader, err := loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	obs, err := observability.NewManager(ctx, cfg.Observability)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			slog.Warn("Observability shutdown failed", "error", err)
		}
	}()

	assembly, err := runtime.BuildAgent(ctx, cfg, obs)
	if err != nil {
		return fmt.Errorf("failed to build agent: %w", err)
	}
	// Closed via closure: a config reload may have swapped in a fresh
	// assembly by the time the command returns.
	defer func() { assembly.Close() }()

	// Connect MCP servers up front so a bad gateway fails the start, not
	// the first invocation.
	if assembly.MCP.Len() > 0 {
		if err := assembly.MCP.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect MCP servers: %w", err)
		}
		slog.Info("MCP servers connected", "servers", assembly.MCP.Names())
	}

	app := runtime.New(cfg, assembly.Agent, runtime.WithObservability(obs))

	printServeInfo(cfg, assembly)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Start(gctx)
	})
	if c.Watch && loader != nil {
		// Apply reloads by rebuilding the assembly and swapping the
		// served agent. A rebuild failure keeps the previous agent; a
		// changed listen address still needs a restart.
		loader.SetOnChange(func(newCfg *config.Config) {
			rebuilt, err := runtime.BuildAgent(gctx, newCfg, obs)
			if err != nil {
				slog.Error("Config reload failed, keeping previous agent", "error", err)
				return
			}
			if rebuilt.MCP.Len() > 0 {
				if err := rebuilt.MCP.Connect(gctx); err != nil {
					rebuilt.Close()
					slog.Error("Config reload failed to connect MCP servers, keeping previous agent", "error", err)
					return
				}
			}
			previous := assembly
			assembly = rebuilt
			app.SetAgent(rebuilt.Agent)
			if err := previous.Close(); err != nil {
				slog.Warn("Failed to close previous assembly", "error", err)
			}
			if newCfg.Server.Address() != cfg.Server.Address() {
				slog.Warn("Server address change requires a restart",
					"current", cfg.Server.Address(),
					"configured", newCfg.Server.Address(),
				)
			}
			slog.Info("Config reload applied", "agent", newCfg.Agent.Name, "model", newCfg.Agent.Model)
		})
		g.Go(func() error {
			if err := loader.Watch(gctx); err != nil && gctx.Err() == nil {
				return fmt.Errorf("config watch: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// printServeInfo prints the startup summary.
func printServeInfo(cfg *config.Config, assembly *runtime.Assembly) {
	amberColor := "\033[38;2;217;119;6m"
	resetColor := "\033[0m"
	addr := cfg.Server.Address()

	fmt.Printf("\n%s🚀 Drover runtime ready!%s\n", amberColor, resetColor)
	fmt.Printf("   Agent:       %s (%s)\n", cfg.Agent.Name, cfg.Agent.Model)
	fmt.Printf("   Invocations: http://%s/invocations\n", addr)
	fmt.Printf("   Stream chat: http://%s/stream-chat\n", addr)
	fmt.Printf("   Health:      http://%s/ping\n", addr)

	if cfg.Session.Backend == config.StorageBackendSQL && cfg.Session.Database != nil {
		fmt.Printf("   Sessions:    %s (%s)\n", cfg.Session.Database.Driver, cfg.Session.Database.Database)
	} else {
		fmt.Printf("   Sessions:    in-memory (not persisted)\n")
	}

	if n := assembly.MCP.Len(); n > 0 {
		fmt.Printf("   MCP servers: %d\n", n)
	}

	if cfg.Observability != nil {
		if cfg.Observability.Tracing.Enabled {
			fmt.Printf("   Tracing:     %s (%s)\n", cfg.Observability.Tracing.Exporter, cfg.Observability.Tracing.Endpoint)
		}
		if cfg.Observability.Metrics.Enabled && cfg.Observability.Metrics.Exporter == "prometheus" {
			fmt.Printf("   Metrics:     http://%s%s\n", addr, cfg.Observability.Metrics.Path)
		}
	}

	fmt.Println("\nPress Ctrl+C to stop")
}
