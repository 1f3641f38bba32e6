// Copyright 2025 The Drover Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package control manages AgentCore runtime versions and endpoint aliases
// over the control plane. Promotion repoints a named endpoint (dev,
// canary, prod) at a specific runtime version.
package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol/types"
)

// ControlAPI is the slice of the bedrockagentcorecontrol client the
// package uses.
type ControlAPI interface {
	ListAgentRuntimeVersions(ctx context.Context, params *bedrockagentcorecontrol.ListAgentRuntimeVersionsInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.ListAgentRuntimeVersionsOutput, error)
	ListAgentRuntimeEndpoints(ctx context.Context, params *bedrockagentcorecontrol.ListAgentRuntimeEndpointsInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.ListAgentRuntimeEndpointsOutput, error)
	GetAgentRuntimeEndpoint(ctx context.Context, params *bedrockagentcorecontrol.GetAgentRuntimeEndpointInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.GetAgentRuntimeEndpointOutput, error)
	UpdateAgentRuntimeEndpoint(ctx context.Context, params *bedrockagentcorecontrol.UpdateAgentRuntimeEndpointInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.UpdateAgentRuntimeEndpointOutput, error)
	CreateAgentRuntimeEndpoint(ctx context.Context, params *bedrockagentcorecontrol.CreateAgentRuntimeEndpointInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.CreateAgentRuntimeEndpointOutput, error)
}

// Client manages one region's AgentCore control plane.
type Client struct {
	api ControlAPI
}

// New creates a Client using the standard AWS credential chain.
func New(ctx context.Context, region string) (*Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithAPI(bedrockagentcorecontrol.NewFromConfig(awsCfg)), nil
}

// NewWithAPI creates a Client around an existing control-plane client.
func NewWithAPI(api ControlAPI) *Client {
	return &Client{api: api}
}

// Version is one runtime version row.
type Version struct {
	Version     string
	Status      string
	LastUpdated time.Time
}

// ListVersions returns every version of the runtime, newest first, the
// order the control plane reports them in.
func (c *Client) ListVersions(ctx context.Context, runtimeID string) ([]Version, error) {
	var versions []Version
	var nextToken *string

	for {
		out, err := c.api.ListAgentRuntimeVersions(ctx, &bedrockagentcorecontrol.ListAgentRuntimeVersionsInput{
			AgentRuntimeId: aws.String(runtimeID),
			NextToken:      nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list versions for runtime %s: %w", runtimeID, err)
		}

		for _, rt := range out.AgentRuntimes {
			v := Version{
				Version: aws.ToString(rt.AgentRuntimeVersion),
				Status:  string(rt.Status),
			}
			if rt.LastUpdatedAt != nil {
				v.LastUpdated = *rt.LastUpdatedAt
			}
			versions = append(versions, v)
		}

		if out.NextToken == nil {
			return versions, nil
		}
		nextToken = out.NextToken
	}
}

// LatestVersion returns the runtime's newest version, the first row the
// control plane lists.
func (c *Client) LatestVersion(ctx context.Context, runtimeID string) (string, error) {
	versions, err := c.ListVersions(ctx, runtimeID)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("no versions found for runtime %s", runtimeID)
	}
	return versions[0].Version, nil
}

// Endpoint is one endpoint alias row.
type Endpoint struct {
	Name          string
	LiveVersion   string
	TargetVersion string
	Status        string
}

// Endpoints returns the runtime's endpoint aliases with the versions they
// serve and point at.
func (c *Client) Endpoints(ctx context.Context, runtimeID string) ([]Endpoint, error) {
	var endpoints []Endpoint
	var nextToken *string

	for {
		out, err := c.api.ListAgentRuntimeEndpoints(ctx, &bedrockagentcorecontrol.ListAgentRuntimeEndpointsInput{
			AgentRuntimeId: aws.String(runtimeID),
			NextToken:      nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list endpoints for runtime %s: %w", runtimeID, err)
		}

		for _, ep := range out.RuntimeEndpoints {
			endpoints = append(endpoints, Endpoint{
				Name:          aws.ToString(ep.Name),
				LiveVersion:   aws.ToString(ep.LiveVersion),
				TargetVersion: aws.ToString(ep.TargetVersion),
				Status:        string(ep.Status),
			})
		}

		if out.NextToken == nil {
			return endpoints, nil
		}
		nextToken = out.NextToken
	}
}

// PromoteOptions tunes a promotion.
type PromoteOptions struct {
	// DryRun reports the would-be change without touching the endpoint.
	DryRun bool

	// CreateMissing creates the endpoint when it does not exist yet,
	// instead of failing.
	CreateMissing bool
}

// PromoteResult describes the promotion that happened, or with DryRun the
// one that would.
type PromoteResult struct {
	RuntimeID     string
	EndpointName  string
	TargetVersion string

	// LiveVersion is the version serving traffic before the rollout
	// completes. Empty for freshly created endpoints.
	LiveVersion string

	// Created reports that the endpoint did not exist and was (or would
	// be) created.
	Created bool

	DryRun bool
	Status string
}

// Promote points the named endpoint at a runtime version. The endpoint is
// updated in place; with CreateMissing a missing endpoint is created
// instead.
func (c *Client) Promote(ctx context.Context, runtimeID, endpointName, version string, opts PromoteOptions) (*PromoteResult, error) {
	result := &PromoteResult{
		RuntimeID:     runtimeID,
		EndpointName:  endpointName,
		TargetVersion: version,
		DryRun:        opts.DryRun,
	}

	if opts.DryRun {
		out, err := c.api.GetAgentRuntimeEndpoint(ctx, &bedrockagentcorecontrol.GetAgentRuntimeEndpointInput{
			AgentRuntimeId: aws.String(runtimeID),
			EndpointName:   aws.String(endpointName),
		})
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				if !opts.CreateMissing {
					return nil, fmt.Errorf("endpoint %q not found for runtime %s: %w", endpointName, runtimeID, err)
				}
				result.Created = true
				return result, nil
			}
			return nil, fmt.Errorf("get endpoint %q for runtime %s: %w", endpointName, runtimeID, err)
		}

		result.LiveVersion = aws.ToString(out.LiveVersion)
		result.Status = string(out.Status)
		return result, nil
	}

	out, err := c.api.UpdateAgentRuntimeEndpoint(ctx, &bedrockagentcorecontrol.UpdateAgentRuntimeEndpointInput{
		AgentRuntimeId:      aws.String(runtimeID),
		EndpointName:        aws.String(endpointName),
		AgentRuntimeVersion: aws.String(version),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("update endpoint %q for runtime %s: %w", endpointName, runtimeID, err)
		}
		if !opts.CreateMissing {
			return nil, fmt.Errorf("endpoint %q not found for runtime %s: %w", endpointName, runtimeID, err)
		}

		created, err := c.api.CreateAgentRuntimeEndpoint(ctx, &bedrockagentcorecontrol.CreateAgentRuntimeEndpointInput{
			AgentRuntimeId:      aws.String(runtimeID),
			Name:                aws.String(endpointName),
			AgentRuntimeVersion: aws.String(version),
		})
		if err != nil {
			return nil, fmt.Errorf("create endpoint %q for runtime %s: %w", endpointName, runtimeID, err)
		}

		result.Created = true
		result.Status = string(created.Status)
		return result, nil
	}

	result.LiveVersion = aws.ToString(out.LiveVersion)
	result.Status = string(out.Status)
	return result, nil
}
