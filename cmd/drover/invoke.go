package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/droverhq/drover/pkg/invoker"
)

// InvokeCmd invokes a deployed agent runtime and renders the response.
type InvokeCmd struct {
	Input string `arg:"" help:"Input text for the agent."`

	SessionID  string `name:"session-id" help:"Session id (default: a fresh default-session-<uuid>)."`
	UserID     string `name:"user-id" help:"User id." placeholder:"ID"`
	Stream     bool   `help:"Stream the response as plain text events."`
	AGUI       bool   `name:"agui" help:"Stream the response as AG-UI events."`
	Endpoint   string `help:"Endpoint qualifier (dev, canary, prod). Falls back to AGENT_ENDPOINT."`
	RuntimeARN string `name:"runtime-arn" help:"Agent runtime ARN. Falls back to AGENT_RUNTIME_ARN, then config."`
	Region     string `help:"AWS region (overrides config)."`
}

func (c *InvokeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, loader, err := loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}
	if loader != nil {
		loader.Close()
	}

	arn, err := invoker.ResolveRuntimeARN(c.RuntimeARN, cfg.Agent.AgentRuntimeARN)
	if err != nil {
		return err
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
		return err
	}

	result, err := client.Invoke(ctx, invoker.Request{
		Input:      c.Input,
		SessionID:  c.SessionID,
		UserID:     c.UserID,
		Stream:     c.Stream,
		StreamAGUI: c.AGUI,
	})
	if err != nil {
		return err
	}

	return result.Render(os.Stdout)
}
