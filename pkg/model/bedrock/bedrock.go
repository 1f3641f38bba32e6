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

// Package bedrock implements model.Provider over the Amazon Bedrock
// Converse API.
package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/droverhq/drover/pkg/model"
)

const (
	defaultMaxTokens = 4096
)

// Config configures the Bedrock client.
type Config struct {
	// ModelID is the bare Bedrock model id, without any provider prefix.
	ModelID string

	// Region selects the AWS region. Empty falls through to the standard
	// AWS environment resolution.
	Region string

	// MaxTokens limits response length. Default: 4096.
	MaxTokens int

	// Temperature overrides the model default when set.
	Temperature *float64
}

// ConverseAPI is the slice of the bedrockruntime client the provider uses.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// Client is a Bedrock model provider.
type Client struct {
	api    ConverseAPI
	config Config
}

// New creates a Client using the standard AWS credential chain.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("model id is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithAPI(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

// NewWithAPI creates a Client around an existing Bedrock runtime client.
func NewWithAPI(api ConverseAPI, cfg Config) *Client {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Client{api: api, config: cfg}
}

// Name returns the model identifier.
func (c *Client) Name() string {
	return c.config.ModelID
}

// Converse runs one non-streaming model turn.
func (c *Client) Converse(ctx context.Context, req *model.Request) (*model.Response, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId:         &c.config.ModelID,
		Messages:        toMessages(req.Messages),
		System:          toSystem(req.System),
		InferenceConfig: c.inferenceConfig(req),
		ToolConfig:      toToolConfig(req.Tools, req.ToolChoice),
	}

	out, err := c.api.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock converse: %w", err)
	}

	return fromConverseOutput(out)
}

// Stream runs one streaming model turn. Wire events are re-emitted in the
// model package's shapes; every text delta is followed by its convenience
// Data chunk.
func (c *Client) Stream(ctx context.Context, req *model.Request) (<-chan model.StreamEvent, error) {
	input := &bedrockruntime.ConverseStreamInput{
		ModelId:         &c.config.ModelID,
		Messages:        toMessages(req.Messages),
		System:          toSystem(req.System),
		InferenceConfig: c.inferenceConfig(req),
		ToolConfig:      toToolConfig(req.Tools, req.ToolChoice),
	}

	out, err := c.api.ConverseStream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock converse stream: %w", err)
	}

	events := make(chan model.StreamEvent, 100)

	go func() {
		defer close(events)
		stream := out.GetStream()
		defer func() { _ = stream.Close() }()

		for wire := range stream.Events() {
			for _, ev := range fromStreamEvent(wire) {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			select {
			case events <- model.ErrorEvent(fmt.Errorf("bedrock stream: %w", err)):
			case <-ctx.Done():
			}
		}
	}()

	return events, nil
}

// inferenceConfig merges per-request limits with client defaults.
func (c *Client) inferenceConfig(req *model.Request) *types.InferenceConfiguration {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}

	cfg := &types.InferenceConfiguration{}
	if maxTokens > 0 {
		mt := int32(maxTokens)
		cfg.MaxTokens = &mt
	}

	temperature := req.Temperature
	if temperature == nil {
		temperature = c.config.Temperature
	}
	if temperature != nil {
		temp := float32(*temperature)
		cfg.Temperature = &temp
	}

	return cfg
}

var _ model.Provider = (*Client)(nil)
