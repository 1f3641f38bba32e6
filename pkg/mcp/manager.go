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

// Package mcp manages connections to MCP (Model Context Protocol) tool
// servers and exposes their tools to the agent.
//
// Two transports are supported:
//   - stdio: a subprocess speaking MCP over stdin/stdout, via mcp-go
//   - streamable-http: a gateway URL speaking JSON-RPC over HTTP, via the
//     retrying httpclient, with mcp-session-id passthrough and SSE
//     response reading
//
// Connections are established lazily and retried with exponential
// backoff; a connection failure detected during a tool call triggers one
// reconnect-and-retry before the error propagates.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/droverhq/drover"
	"github.com/droverhq/drover/internal/httpclient"
	"github.com/droverhq/drover/pkg/agent"
	"github.com/droverhq/drover/pkg/config"
)

const (
	// ProtocolVersion is the MCP protocol revision spoken on initialize.
	ProtocolVersion = "2024-11-05"

	// DefaultSSEResponseTimeout caps how long a single JSON-RPC response
	// is awaited on an SSE stream. Long enough for slow tools.
	DefaultSSEResponseTimeout = 5 * time.Minute
)

// Config configures one MCP server connection.
type Config struct {
	// Name identifies this server in logs and tool wiring.
	Name string

	// Transport selects stdio or streamable-http. Inferred from Command
	// or URL when empty.
	Transport string

	// Command starts a local server over stdio.
	Command string

	// Args for the stdio command.
	Args []string

	// Env for the stdio command.
	Env map[string]string

	// URL is the gateway URL for streamable-http.
	URL string

	// HeadersFactory produces the HTTP headers for a connection. Called
	// once per connect, so rotating credentials refresh on reconnect.
	HeadersFactory func() map[string]string

	// TLS configures the streamable-http transport.
	TLS *httpclient.TLSConfig

	// Tags keeps only tools whose server-side metadata carries at least
	// one of these tags. Empty keeps everything.
	Tags []string

	// Filter keeps only tools with these exact names. Applied after Tags.
	Filter []string

	// MaxRetries is the connect attempt budget. Default: 3.
	MaxRetries int

	// RetryDelay is the base backoff delay; it doubles each attempt.
	// Default: 1s.
	RetryDelay time.Duration

	// SSETimeout bounds SSE response reads. Default: 5m.
	SSETimeout time.Duration
}

// FromToolConfig builds a Config from the configuration file's tool entry.
func FromToolConfig(name string, tc *config.ToolConfig) Config {
	cfg := Config{
		Name:       name,
		Transport:  tc.Transport,
		Command:    tc.Command,
		Args:       tc.Args,
		Env:        tc.Env,
		URL:        tc.URL,
		Tags:       tc.Tags,
		Filter:     tc.Filter,
		MaxRetries: tc.MaxRetries,
		RetryDelay: tc.RetryDelay,
	}
	if len(tc.Headers) > 0 {
		headers := tc.Headers
		cfg.HeadersFactory = func() map[string]string { return headers }
	}
	if tc.InsecureSkipVerify || tc.CACertificate != "" {
		cfg.TLS = &httpclient.TLSConfig{
			InsecureSkipVerify: tc.InsecureSkipVerify,
			CACertificate:      tc.CACertificate,
		}
	}
	return cfg
}

// Manager owns one MCP server connection and its tool set.
type Manager struct {
	cfg       Config
	filterSet map[string]bool

	mu        sync.Mutex
	stdio     *client.Client     // stdio transport
	http      *httpclient.Client // streamable-http transport
	headers   map[string]string  // snapshot from HeadersFactory at connect
	tools     []agent.Tool
	connected bool

	sessionMu sync.RWMutex
	sessionID string
}

// NewManager creates a Manager. The connection is established lazily on
// the first Tools or CallTool.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.URL == "" && cfg.Command == "" {
		return nil, fmt.Errorf("either url or command is required")
	}
	if cfg.Transport == "" {
		if cfg.Command != "" {
			cfg.Transport = "stdio"
		} else {
			cfg.Transport = "streamable-http"
		}
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = config.DefaultMCPMaxRetries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = config.DefaultMCPRetryDelay
	}
	if cfg.SSETimeout == 0 {
		cfg.SSETimeout = DefaultSSEResponseTimeout
	}

	var filterSet map[string]bool
	if len(cfg.Filter) > 0 {
		filterSet = make(map[string]bool, len(cfg.Filter))
		for _, name := range cfg.Filter {
			filterSet[name] = true
		}
	}

	return &Manager{cfg: cfg, filterSet: filterSet}, nil
}

// Name returns the configured server name.
func (m *Manager) Name() string { return m.cfg.Name }

// MaxRetries returns the connect attempt budget.
func (m *Manager) MaxRetries() int { return m.cfg.MaxRetries }

// RetryDelay returns the base backoff delay.
func (m *Manager) RetryDelay() time.Duration { return m.cfg.RetryDelay }

// Connect establishes the connection, retrying with exponential backoff
// on connection errors. Non-connection errors fail immediately.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		return nil
	}
	return m.connectWithRetry(ctx)
}

// connectWithRetry runs connect attempts with delay * 2^attempt backoff.
// Callers hold m.mu.
func (m *Manager) connectWithRetry(ctx context.Context) error {
	var lastErr error

	for attempt := 0; attempt < m.cfg.MaxRetries; attempt++ {
		err := m.connectOnce(ctx)
		if err == nil {
			if attempt > 0 {
				slog.Info("MCP client initialized after retries", "server", m.cfg.Name, "attempt", attempt+1)
			}
			return nil
		}

		var connErr *agent.ConnectionError
		if !errors.As(err, &connErr) {
			return err
		}
		lastErr = err

		if attempt < m.cfg.MaxRetries-1 {
			delay := m.cfg.RetryDelay * (1 << attempt)
			slog.Warn("MCP server not ready, retrying",
				"server", m.cfg.Name,
				"attempt", attempt+1,
				"max_retries", m.cfg.MaxRetries,
				"delay", delay,
				"error", err,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return agent.NewExecutionError("error initializing MCP client after %d attempts: %v", m.cfg.MaxRetries, lastErr)
}

// connectOnce establishes the transport, initializes the session, and
// caches the filtered tool set. Callers hold m.mu.
func (m *Manager) connectOnce(ctx context.Context) error {
	m.closeLocked()

	if m.cfg.Transport == "stdio" {
		return m.connectStdio(ctx)
	}
	return m.connectHTTP(ctx)
}

func (m *Manager) connectStdio(ctx context.Context) error {
	mcpClient, err := client.NewStdioMCPClient(m.cfg.Command, envSlice(m.cfg.Env), m.cfg.Args...)
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		_ = mcpClient.Close()
		return agent.NewConnectionError(fmt.Sprintf("failed to start MCP client: %v", err), err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "drover",
		Version: drover.Version,
	}
	initReq.Params.ProtocolVersion = ProtocolVersion

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		_ = mcpClient.Close()
		return agent.NewConnectionError(fmt.Sprintf("failed to initialize MCP session: %v", err), err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		_ = mcpClient.Close()
		return agent.NewConnectionError(fmt.Sprintf("failed to list tools: %v", err), err)
	}

	var tools []agent.Tool
	for _, mcpTool := range listResp.Tools {
		if !m.keepTool(mcpTool.Name, stdioToolTags(mcpTool)) {
			continue
		}
		tools = append(tools, &managedTool{
			manager: m,
			name:    mcpTool.Name,
			desc:    mcpTool.Description,
			schema:  convertSchema(mcpTool.InputSchema),
		})
	}

	m.stdio = mcpClient
	m.tools = tools
	m.connected = true

	slog.Info("Connected to MCP server (stdio)",
		"server", m.cfg.Name,
		"command", m.cfg.Command,
		"tools", len(tools),
	)
	return nil
}

func (m *Manager) connectHTTP(ctx context.Context) error {
	if m.cfg.HeadersFactory != nil {
		m.headers = m.cfg.HeadersFactory()
	}

	opts := []httpclient.Option{
		httpclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		httpclient.WithMaxRetries(m.cfg.MaxRetries),
		httpclient.WithBaseDelay(2 * time.Second),
	}
	if m.cfg.TLS != nil {
		opts = append(opts, httpclient.WithTLSConfig(m.cfg.TLS))
	}
	m.http = httpclient.New(opts...)

	initResp, err := m.makeHTTPRequest(ctx, "initialize", map[string]any{
		"protocolVersion": ProtocolVersion,
		"clientInfo": map[string]any{
			"name":    "drover",
			"version": drover.Version,
		},
		"capabilities": map[string]any{},
	})
	if err != nil {
		return agent.NewConnectionError(fmt.Sprintf("failed to initialize MCP session: %v", err), err)
	}
	if initResp.Error != nil {
		return agent.NewConnectionError(fmt.Sprintf("MCP init error: %s", initResp.Error.Message), nil)
	}

	// Servers expect the initialized notification before serving requests.
	m.sendNotification(ctx, "notifications/initialized")

	listResp, err := m.makeHTTPRequest(ctx, "tools/list", nil)
	if err != nil {
		return agent.NewConnectionError(fmt.Sprintf("failed to list tools: %v", err), err)
	}
	if listResp.Error != nil {
		return agent.NewConnectionError(fmt.Sprintf("MCP list error: %s", listResp.Error.Message), nil)
	}

	resultMap, ok := listResp.Result.(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected result type from tools/list")
	}
	toolsList, ok := resultMap["tools"].([]any)
	if !ok {
		return fmt.Errorf("missing tools in tools/list response")
	}

	var tools []agent.Tool
	for _, toolRaw := range toolsList {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}

		name, _ := toolMap["name"].(string)
		desc, _ := toolMap["description"].(string)
		if !m.keepTool(name, httpToolTags(toolMap)) {
			continue
		}

		var schema map[string]any
		if inputSchema, ok := toolMap["inputSchema"].(map[string]any); ok {
			schema = inputSchema
		}

		tools = append(tools, &managedTool{
			manager: m,
			name:    name,
			desc:    desc,
			schema:  schema,
		})
	}

	m.tools = tools
	m.connected = true

	slog.Info("Connected to MCP server (streamable-http)",
		"server", m.cfg.Name,
		"url", m.cfg.URL,
		"tools", len(tools),
	)
	return nil
}

// keepTool applies the tag filter, then the name filter.
func (m *Manager) keepTool(name string, tags []string) bool {
	if len(m.cfg.Tags) > 0 {
		matched := false
		for _, want := range m.cfg.Tags {
			for _, have := range tags {
				if want == have {
					matched = true
					break
				}
			}
		}
		if !matched {
			return false
		}
	}
	if m.filterSet != nil && !m.filterSet[name] {
		return false
	}
	return true
}

// Tools returns the available tools, connecting lazily if needed.
func (m *Manager) Tools(ctx context.Context) ([]agent.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		if err := m.connectWithRetry(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
		}
	}

	tools := make([]agent.Tool, len(m.tools))
	copy(tools, m.tools)
	return tools, nil
}

// ReconnectAll drops the current connection and reconnects with retry.
func (m *Manager) ReconnectAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked()
	if err := m.connectWithRetry(ctx); err != nil {
		return err
	}

	slog.Info("MCP client reconnected", "server", m.cfg.Name)
	return nil
}

// CallTool executes a tool by name. A connection failure detected in the
// result or the error triggers one reconnect-and-retry.
func (m *Manager) CallTool(ctx context.Context, name, toolUseID string, args map[string]any) (map[string]any, error) {
	if err := m.Connect(ctx); err != nil {
		return nil, err
	}

	result, err := m.callToolOnce(ctx, name, toolUseID, args)
	connErr := connectionFailure(name, result, err)
	if connErr == nil {
		return result, err
	}

	slog.Warn("MCP connection error during tool call, reconnecting",
		"server", m.cfg.Name,
		"tool", name,
		"error", connErr,
	)
	if rerr := m.ReconnectAll(ctx); rerr != nil {
		return nil, rerr
	}
	return m.callToolOnce(ctx, name, toolUseID, args)
}

func (m *Manager) callToolOnce(ctx context.Context, name, toolUseID string, args map[string]any) (map[string]any, error) {
	m.mu.Lock()
	stdioClient := m.stdio
	m.mu.Unlock()

	if stdioClient != nil {
		return m.callStdio(ctx, stdioClient, name, toolUseID, args)
	}
	return m.callHTTP(ctx, name, toolUseID, args)
}

func (m *Manager) callStdio(ctx context.Context, mcpClient *client.Client, name, toolUseID string, args map[string]any) (map[string]any, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	if toolUseID != "" {
		req.Params.Meta = &mcp.Meta{ProgressToken: toolUseID}
	}

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("MCP call failed: %w", err)
	}
	return parseCallResult(resp), nil
}

func (m *Manager) callHTTP(ctx context.Context, name, toolUseID string, args map[string]any) (map[string]any, error) {
	params := map[string]any{
		"name":      name,
		"arguments": args,
	}
	if toolUseID != "" {
		params["_meta"] = map[string]any{"progressToken": toolUseID}
	}

	resp, err := m.makeHTTPRequest(ctx, "tools/call", params)
	if err != nil {
		return nil, fmt.Errorf("MCP call failed: %w", err)
	}
	if resp.Error != nil {
		return map[string]any{"error": resp.Error.Message}, nil
	}
	return parseRawCallResult(resp.Result), nil
}

// connectionFailure classifies a tool call outcome. It returns a
// ConnectionError when the error or the rendered result carries one of
// the known connection failure indicators.
func connectionFailure(name string, result map[string]any, err error) *agent.ConnectionError {
	if err != nil && agent.IsConnectionErrorText(err.Error()) {
		return agent.NewConnectionError(fmt.Sprintf("MCP connection error in tool %q: %v", name, err), err)
	}
	if result != nil && agent.IsConnectionErrorText(fmt.Sprintf("%v", result)) {
		return agent.NewConnectionError(fmt.Sprintf("MCP connection error in tool %q: %v", name, result), nil)
	}
	return nil
}

// Close shuts the connection down.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
	return nil
}

// closeLocked drops the connection state. Callers hold m.mu.
func (m *Manager) closeLocked() {
	if m.stdio != nil {
		_ = m.stdio.Close()
		m.stdio = nil
	}
	m.http = nil
	m.tools = nil
	m.connected = false

	m.sessionMu.Lock()
	m.sessionID = ""
	m.sessionMu.Unlock()
}

func envSlice(env map[string]string) []string {
	if env == nil {
		return nil
	}
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// JSON-RPC types for the streamable-http transport.
type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// makeHTTPRequest sends one JSON-RPC request over streamable-http and
// reads the response, which may arrive as JSON or as an SSE stream.
func (m *Manager) makeHTTPRequest(ctx context.Context, method string, params any) (*jsonRPCResponse, error) {
	body, err := json.Marshal(jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpResp, err := m.postJSONRPC(ctx, method, body)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("HTTP error %d: %s (response: %s)", httpResp.StatusCode, httpResp.Status, string(responseBody))
	}

	if strings.Contains(httpResp.Header.Get("Content-Type"), "text/event-stream") {
		return m.readSSEResponse(httpResp)
	}

	responseBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp jsonRPCResponse
	if err := json.Unmarshal(responseBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// sendNotification posts a JSON-RPC notification (no id, no response
// expected). Failures are logged and ignored.
func (m *Manager) sendNotification(ctx context.Context, method string) {
	body, err := json.Marshal(struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
	}{JSONRPC: "2.0", Method: method})
	if err != nil {
		return
	}

	httpResp, err := m.postJSONRPC(ctx, method, body)
	if err != nil {
		slog.Debug("MCP notification failed", "server", m.cfg.Name, "method", method, "error", err)
		return
	}
	_, _ = io.Copy(io.Discard, httpResp.Body)
	_ = httpResp.Body.Close()
}

func (m *Manager) postJSONRPC(ctx context.Context, method string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range m.headers {
		httpReq.Header.Set(k, v)
	}

	m.sessionMu.RLock()
	sessionID := m.sessionID
	m.sessionMu.RUnlock()
	if sessionID != "" {
		httpReq.Header.Set("mcp-session-id", sessionID)
	}

	httpResp, err := m.http.Do(httpReq)
	if err != nil {
		slog.Debug("MCP HTTP request failed",
			"server", m.cfg.Name,
			"url", m.cfg.URL,
			"method", method,
			"error", err,
		)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if newSessionID := httpResp.Header.Get("mcp-session-id"); newSessionID != "" {
		m.sessionMu.Lock()
		m.sessionID = newSessionID
		m.sessionMu.Unlock()
	}

	return httpResp, nil
}

// readSSEResponse reads the first complete JSON-RPC response from an SSE
// stream.
func (m *Manager) readSSEResponse(httpResp *http.Response) (*jsonRPCResponse, error) {
	type result struct {
		response *jsonRPCResponse
		err      error
	}
	resultChan := make(chan result, 1)

	go func() {
		defer httpResp.Body.Close()

		reader := bufio.NewReader(httpResp.Body)
		var currentData strings.Builder

		for {
			line, err := reader.ReadBytes('\n')
			if err != nil {
				if err != io.EOF {
					slog.Debug("MCP SSE read error", "server", m.cfg.Name, "error", err)
				}
				break
			}

			lineStr := strings.TrimSpace(string(line))

			// Empty line signals end of event.
			if lineStr == "" {
				if currentData.Len() > 0 {
					var resp jsonRPCResponse
					if parseErr := json.Unmarshal([]byte(currentData.String()), &resp); parseErr == nil {
						resultChan <- result{response: &resp}
						return
					}
					currentData.Reset()
				}
				continue
			}

			if strings.HasPrefix(lineStr, "data:") {
				currentData.WriteString(strings.TrimSpace(strings.TrimPrefix(lineStr, "data:")))
			}
		}

		if currentData.Len() > 0 {
			var resp jsonRPCResponse
			if parseErr := json.Unmarshal([]byte(currentData.String()), &resp); parseErr == nil {
				resultChan <- result{response: &resp}
				return
			}
		}

		resultChan <- result{err: fmt.Errorf("SSE stream ended without complete message")}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			return nil, res.err
		}
		return res.response, nil
	case <-time.After(m.cfg.SSETimeout):
		return nil, fmt.Errorf("timeout reading SSE response after %v", m.cfg.SSETimeout)
	}
}

var _ agent.MCPManager = (*Manager)(nil)
