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

// Package invoker calls deployed AgentCore runtimes over the data plane
// and renders their responses for the terminal.
package invoker

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"
	"github.com/google/uuid"
)

// DefaultUserID identifies invocations that carry no explicit user.
const DefaultUserID = "default-user"

// InvokeAPI is the slice of the bedrockagentcore client the invoker uses.
type InvokeAPI interface {
	InvokeAgentRuntime(ctx context.Context, params *bedrockagentcore.InvokeAgentRuntimeInput, optFns ...func(*bedrockagentcore.Options)) (*bedrockagentcore.InvokeAgentRuntimeOutput, error)
}

// Options configures a Client.
type Options struct {
	// RuntimeARN is the deployed runtime to invoke. Required; resolve it
	// with ResolveRuntimeARN.
	RuntimeARN string

	// Qualifier selects the endpoint alias serving the call (dev, canary,
	// prod). Empty invokes the runtime's default endpoint.
	Qualifier string

	// Region selects the AWS region. Empty falls through to the standard
	// AWS environment resolution.
	Region string
}

// Request is one invocation. Zero-value session and user ids get the
// defaults.
type Request struct {
	Input      string
	SessionID  string
	UserID     string
	Stream     bool
	StreamAGUI bool
}

// payload is the invocation body the runtime's /invocations handler
// decodes.
type payload struct {
	Input      string `json:"input"`
	UserID     string `json:"user_id"`
	SessionID  string `json:"session_id"`
	Stream     bool   `json:"stream"`
	StreamAGUI bool   `json:"stream_agui"`
}

// Client invokes an AgentCore runtime.
type Client struct {
	api  InvokeAPI
	opts Options
}

// New creates a Client using the standard AWS credential chain.
func New(ctx context.Context, opts Options) (*Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithAPI(bedrockagentcore.NewFromConfig(awsCfg), opts), nil
}

// NewWithAPI creates a Client around an existing data-plane client.
func NewWithAPI(api InvokeAPI, opts Options) *Client {
	return &Client{api: api, opts: opts}
}

// Invoke posts one invocation and returns the undecoded response. The
// caller owns the result body.
func (c *Client) Invoke(ctx context.Context, req Request) (*Result, error) {
	if c.opts.RuntimeARN == "" {
		return nil, errors.New("AGENT_RUNTIME_ARN not set. Deploy first or set manually.")
	}

	if req.SessionID == "" {
		req.SessionID = DefaultSessionID()
	}
	if req.UserID == "" {
		req.UserID = DefaultUserID
	}

	body, err := json.Marshal(payload{
		Input:      req.Input,
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Stream:     req.Stream,
		StreamAGUI: req.StreamAGUI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	input := &bedrockagentcore.InvokeAgentRuntimeInput{
		AgentRuntimeArn:  aws.String(c.opts.RuntimeARN),
		RuntimeSessionId: aws.String(req.SessionID),
		Payload:          body,
	}
	if c.opts.Qualifier != "" {
		input.Qualifier = aws.String(c.opts.Qualifier)
	}

	out, err := c.api.InvokeAgentRuntime(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("invoke agent runtime: %w", err)
	}

	return &Result{
		ContentType: aws.ToString(out.ContentType),
		SessionID:   req.SessionID,
		Body:        out.Response,
		agui:        req.StreamAGUI,
	}, nil
}

// Result is an undecoded runtime response.
type Result struct {
	// ContentType tells SSE streams from synchronous JSON apart.
	ContentType string

	// SessionID is the session the invocation ran under, after defaults.
	SessionID string

	// Body is the raw response stream.
	Body io.ReadCloser

	agui bool
}

// Close releases the response stream.
func (r *Result) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// DefaultSessionID generates a fresh default session id. AgentCore
// requires runtime session ids of at least 33 characters.
func DefaultSessionID() string {
	id := uuid.New()
	return "default-session-" + hex.EncodeToString(id[:])
}

// ResolveRuntimeARN picks the runtime ARN: explicit value, then the
// AGENT_RUNTIME_ARN environment variable, then the configured value.
func ResolveRuntimeARN(explicit, configured string) (string, error) {
	for _, arn := range []string{explicit, os.Getenv("AGENT_RUNTIME_ARN"), configured} {
		if arn != "" {
			return arn, nil
		}
	}
	return "", errors.New("AGENT_RUNTIME_ARN not set. Deploy first or set manually.")
}

// ResolveQualifier picks the endpoint alias: explicit value, then the
// AGENT_ENDPOINT environment variable.
func ResolveQualifier(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv("AGENT_ENDPOINT")
}
