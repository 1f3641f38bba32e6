// Package drover provides a deployment and invocation harness for AI
// agents hosted on Amazon Bedrock AgentCore.
//
// Drover wraps a Bedrock-backed agent loop with the HTTP contract
// AgentCore expects, translates the agent's native event stream into the
// AG-UI protocol for browser consumers, and ships the operator tooling
// around it: remote invocation, endpoint promotion across environments,
// and a terminal chat client.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/droverhq/drover/cmd/drover@latest
//
// Create an agent configuration:
//
//	agent:
//	  model: "bedrock:us.anthropic.claude-haiku-4-5-20251001-v1:0"
//	  system_prompt: "You are a helpful assistant"
//	tools:
//	  gateway:
//	    url: "https://gateway.example.com/mcp"
//
// Serve the AgentCore runtime contract locally:
//
//	drover serve --config agent.yaml
//
// Invoke a deployed runtime:
//
//	drover invoke "What can you do?" --agui
//
// # Using as Go Library
//
// Import the packages the CLI composes:
//
//	import (
//	    "github.com/droverhq/drover/pkg/agent"
//	    "github.com/droverhq/drover/pkg/agui"
//	    "github.com/droverhq/drover/pkg/runtime"
//	)
//
// # Key Features
//
//   - **AgentCore Contract**: POST /invocations and GET /ping, hostable
//     as-is on Bedrock AgentCore Runtime
//   - **AG-UI Streaming**: typed protocol events over SSE for browser
//     front ends
//   - **MCP Tools**: stdio and streamable-http tool servers with
//     reconnect and retry
//   - **Structured Output**: schema-constrained final responses
//   - **Operator Tooling**: invoke, versions, promote, endpoints, chat
//
// # Architecture
//
// One binary serves both sides of the deployment:
//
//	Client → AgentCore Runtime → drover serve → Agent loop → Bedrock Converse
//	Operator → drover invoke/promote → AgentCore data/control planes
//
// # Documentation
//
// For complete documentation, see:
//   - [README](https://github.com/droverhq/drover/blob/main/README.md)
//   - [API Reference](https://godoc.org/github.com/droverhq/drover)
//
// # License
//
// Apache-2.0 - See LICENSE for details.
package drover
