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

package observability

import (
	"context"
	"errors"
	"fmt"
)

// Manager owns the tracer and metrics recorder for one process.
type Manager struct {
	tracer  *Tracer
	metrics *Metrics
}

// NewManager initializes tracing and metrics from configuration.
// A nil config yields a fully disabled manager.
func NewManager(ctx context.Context, cfg *Config) (*Manager, error) {
	if cfg == nil {
		return NoopManager(), nil
	}

	tracer, err := NewTracer(ctx, &cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	metrics, err := NewMetrics(ctx, &cfg.Metrics)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}

	return &Manager{tracer: tracer, metrics: metrics}, nil
}

// NoopManager returns a manager whose tracer and metrics do nothing.
func NoopManager() *Manager {
	return &Manager{metrics: &Metrics{}}
}

// Tracer returns the tracer. It may be nil when tracing is disabled;
// nil Tracer methods are safe and produce non-recording spans.
func (m *Manager) Tracer() *Tracer {
	if m == nil {
		return nil
	}
	return m.tracer
}

// Metrics returns the metrics recorder, never nil.
func (m *Manager) Metrics() *Metrics {
	if m == nil || m.metrics == nil {
		return &Metrics{}
	}
	return m.metrics
}

// Shutdown flushes and stops both the tracer and the metrics provider.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return errors.Join(
		m.tracer.Shutdown(ctx),
		m.metrics.Shutdown(ctx),
	)
}
