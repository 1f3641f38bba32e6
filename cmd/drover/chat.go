package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/droverhq/drover/pkg/agent"
	"github.com/droverhq/drover/pkg/chat"
	"github.com/droverhq/drover/pkg/config"
	"github.com/droverhq/drover/pkg/invoker"
	"github.com/droverhq/drover/pkg/runtime"
)

// ChatCmd starts the interactive terminal client. The default drives an
// in-process agent; --remote drives a deployed runtime over the
// invocation data plane.
type ChatCmd struct {
	Remote     bool   `help:"Chat with a deployed runtime instead of a local agent."`
	SessionID  string `name:"session-id" help:"Session id (default: a fresh default-session-<uuid>)."`
	UserID     string `name:"user-id" help:"User id." placeholder:"ID"`
	Endpoint   string `help:"Endpoint qualifier (remote mode)."`
	RuntimeARN string `name:"runtime-arn" help:"Agent runtime ARN (remote mode)."`
	Region     string `help:"AWS region (overrides config)."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, loader, err := loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}
	if loader != nil {
		loader.Close()
	}

	var backend chat.Backend
	if c.Remote {
		backend, err = c.buildRemote(ctx, cfg)
		if err != nil {
			return err
		}
	} else {
		assembly, local, err := c.buildLocal(ctx, cfg)
		if err != nil {
			return err
		}
		defer assembly.Close()
		backend = local
	}

	repl := chat.New(backend, os.Stdin, os.Stdout)
	return repl.Run(ctx)
}

// buildLocal composes the in-process agent.
func (c *ChatCmd) buildLocal(ctx context.Context, cfg *config.Config) (*runtime.Assembly, chat.Backend, error) {
	fmt.Println("\nInitializing agent...")

	if c.Region != "" {
		cfg.Agent.AWSRegion = c.Region
	}

	assembly, err := runtime.BuildAgent(ctx, cfg, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build agent: %w", err)
	}

	if assembly.MCP.Len() > 0 {
		if err := assembly.MCP.Connect(ctx); err != nil {
			assembly.Close()
			return nil, nil, fmt.Errorf("failed to connect MCP servers: %w", err)
		}
	}

	fmt.Println("✅ Agent ready!")

	run := agent.RunConfig{SessionID: c.SessionID, UserID: c.UserID}
	return assembly, chat.Local(assembly.Agent, run), nil
}

// buildRemote wires the deployed runtime through the invoker.
func (c *ChatCmd) buildRemote(ctx context.Context, cfg *config.Config) (chat.Backend, error) {
	arn, err := invoker.ResolveRuntimeARN(c.RuntimeARN, cfg.Agent.AgentRuntimeARN)
	if err != nil {
		return nil, err
	}

	region := c.Region
	if region == "" {
		region = cfg.Agent.AWSRegion
	}

	qualifier := invoker.ResolveQualifier(c.Endpoint)
	if qualifier == "" {
		qualifier = cfg.Agent.AgentEndpoint
	}

	client, err := invoker.New(ctx, invoker.Options{
		RuntimeARN: arn,
		Qualifier:  qualifier,
		Region:     region,
	})
	if err != nil {
		return nil, err
	}

	return chat.Remote(client, c.SessionID, c.UserID), nil
}
