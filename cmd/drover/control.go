package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/droverhq/drover/pkg/control"
)

// controlClient builds the control-plane client, resolving the region
// from the flag, then the environment, then config.
func controlClient(ctx context.Context, cli *CLI, region string) (*control.Client, error) {
	if region == "" {
		cfg, loader, err := loadConfig(ctx, cli.Config)
		if err != nil {
			return nil, err
		}
		if loader != nil {
			loader.Close()
		}
		region = cfg.Agent.AWSRegion
	}
	return control.New(ctx, region)
}

// VersionsCmd lists versions of an agent runtime, newest first.
type VersionsCmd struct {
	RuntimeID string `arg:"" help:"Agent runtime id."`
	Latest    bool   `help:"Print only the latest version."`
	Region    string `help:"AWS region (overrides config)."`
}

func (c *VersionsCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := controlClient(ctx, cli, c.Region)
	if err != nil {
		return err
	}

	// Bare version on --latest so pipelines can capture it.
	if c.Latest {
		version, err := client.LatestVersion(ctx, c.RuntimeID)
		if err != nil {
			return err
		}
		fmt.Println(version)
		return nil
	}

	versions, err := client.ListVersions(ctx, c.RuntimeID)
	if err != nil {
		return err
	}

	fmt.Printf("%-10s %-12s %s\n", "VERSION", "STATUS", "UPDATED")
	for _, v := range versions {
		updated := ""
		if !v.LastUpdated.IsZero() {
			updated = v.LastUpdated.Format(time.RFC3339)
		}
		fmt.Printf("%-10s %-12s %s\n", v.Version, v.Status, updated)
	}
	return nil
}

// PromoteCmd points an endpoint alias at a runtime version. The canary
// flow is promote --to canary, validate, then promote --to prod.
type PromoteCmd struct {
	RuntimeID string `arg:"" help:"Agent runtime id."`
	Version   string `arg:"" help:"Target runtime version (e.g. V3)."`

	To            string `help:"Endpoint alias to repoint (dev, canary, prod, or custom)." default:"dev"`
	DryRun        bool   `name:"dry-run" help:"Report the would-be change without applying it."`
	CreateMissing bool   `name:"create-missing" help:"Create the endpoint when it does not exist yet."`
	Region        string `help:"AWS region (overrides config)."`
}

func (c *PromoteCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := controlClient(ctx, cli, c.Region)
	if err != nil {
		return err
	}

	result, err := client.Promote(ctx, c.RuntimeID, c.To, c.Version, control.PromoteOptions{
		DryRun:        c.DryRun,
		CreateMissing: c.CreateMissing,
	})
	if err != nil {
		return err
	}

	switch {
	case result.DryRun && result.Created:
		fmt.Printf("Would create endpoint %q on runtime %s at version %s\n",
			result.EndpointName, result.RuntimeID, result.TargetVersion)
	case result.DryRun:
		fmt.Printf("Would point endpoint %q on runtime %s at version %s (live: %s)\n",
			result.EndpointName, result.RuntimeID, result.TargetVersion, result.LiveVersion)
	case result.Created:
		fmt.Printf("✅ Created endpoint %q at version %s (status: %s)\n",
			result.EndpointName, result.TargetVersion, result.Status)
	default:
		fmt.Printf("✅ Endpoint %q now targets version %s (was: %s, status: %s)\n",
			result.EndpointName, result.TargetVersion, result.LiveVersion, result.Status)
	}
	return nil
}

// EndpointsCmd lists endpoint aliases of an agent runtime.
type EndpointsCmd struct {
	RuntimeID string `arg:"" help:"Agent runtime id."`
	Region    string `help:"AWS region (overrides config)."`
}

func (c *EndpointsCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := controlClient(ctx, cli, c.Region)
	if err != nil {
		return err
	}

	endpoints, err := client.Endpoints(ctx, c.RuntimeID)
	if err != nil {
		return err
	}

	fmt.Printf("%-12s %-8s %-8s %s\n", "NAME", "LIVE", "TARGET", "STATUS")
	for _, e := range endpoints {
		fmt.Printf("%-12s %-8s %-8s %s\n", e.Name, e.LiveVersion, e.TargetVersion, e.Status)
	}
	return nil
}
