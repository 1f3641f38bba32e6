package mcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/droverhq/drover/pkg/agent"
	"github.com/droverhq/drover/pkg/config"
)

// Group presents several server connections as one MCP surface. The agent
// holds a single manager; a Group lets one configuration wire any number
// of MCP servers behind it. Tool name collisions across servers are not
// detected; the first server's tool wins at call time because each tool
// closes over its own connection.
type Group struct {
	managers []*Manager
}

// NewGroup builds one Manager per enabled MCP entry in tools, sorted by
// name so connect order and log output are stable across runs.
func NewGroup(tools map[string]*config.ToolConfig) (*Group, error) {
	names := make([]string, 0, len(tools))
	for name, tc := range tools {
		if tc == nil || !tc.IsEnabled() || tc.Type != config.ToolTypeMCP {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	g := &Group{managers: make([]*Manager, 0, len(names))}
	for _, name := range names {
		m, err := NewManager(FromToolConfig(name, tools[name]))
		if err != nil {
			return nil, fmt.Errorf("mcp server %s: %w", name, err)
		}
		g.managers = append(g.managers, m)
	}
	return g, nil
}

// Len returns the number of member servers.
func (g *Group) Len() int { return len(g.managers) }

// Names returns the member server names in connect order.
func (g *Group) Names() []string {
	names := make([]string, len(g.managers))
	for i, m := range g.managers {
		names[i] = m.Name()
	}
	return names
}

// Connect establishes every member connection. The first server that
// exhausts its retry budget fails the whole group.
func (g *Group) Connect(ctx context.Context) error {
	for _, m := range g.managers {
		if err := m.Connect(ctx); err != nil {
			return fmt.Errorf("mcp server %s: %w", m.Name(), err)
		}
	}
	return nil
}

// Tools lists every member's tools in connect order, connecting members
// on demand.
func (g *Group) Tools(ctx context.Context) ([]agent.Tool, error) {
	var tools []agent.Tool
	for _, m := range g.managers {
		ts, err := m.Tools(ctx)
		if err != nil {
			return nil, fmt.Errorf("mcp server %s: %w", m.Name(), err)
		}
		tools = append(tools, ts...)
	}
	return tools, nil
}

// ReconnectAll reconnects every member. All members are attempted even
// after a failure; the first error is returned.
func (g *Group) ReconnectAll(ctx context.Context) error {
	var firstErr error
	for _, m := range g.managers {
		if err := m.ReconnectAll(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("mcp server %s: %w", m.Name(), err)
		}
	}
	return firstErr
}

// MaxRetries reports the largest member budget, so a run-level retry
// covers the slowest server.
func (g *Group) MaxRetries() int {
	budget := 0
	for _, m := range g.managers {
		if r := m.MaxRetries(); r > budget {
			budget = r
		}
	}
	return budget
}

// RetryDelay reports the largest member base delay.
func (g *Group) RetryDelay() time.Duration {
	var delay time.Duration
	for _, m := range g.managers {
		if d := m.RetryDelay(); d > delay {
			delay = d
		}
	}
	return delay
}

// Close closes every member connection, keeping the first error.
func (g *Group) Close() error {
	var firstErr error
	for _, m := range g.managers {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
