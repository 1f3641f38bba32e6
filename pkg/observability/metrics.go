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
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records named measurements through OpenTelemetry instruments.
// Instruments are created lazily on first use, so callers just record
// against a name without registering anything up front. The zero value
// (and a nil *Metrics) is a disabled recorder that drops everything.
type Metrics struct {
	enabled   bool
	namespace string
	path      string

	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry

	mu         sync.Mutex
	histograms map[string]metric.Float64Histogram
}

// NewMetrics creates a Metrics recorder from configuration. A disabled
// configuration yields a recorder whose methods do nothing.
func NewMetrics(ctx context.Context, cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return &Metrics{}, nil
	}

	cfg.SetDefaults()

	m := &Metrics{
		enabled:    true,
		namespace:  cfg.Namespace,
		path:       cfg.Path,
		histograms: make(map[string]metric.Float64Histogram),
	}

	switch cfg.Exporter {
	case "prometheus":
		m.registry = prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(m.registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		m.provider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	case "otlp":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		}
		if cfg.IsInsecure() {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
		}
		reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))
		m.provider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}

	m.meter = m.provider.Meter(DefaultMeterName)
	return m, nil
}

// Enabled reports whether measurements are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Path returns the configured Prometheus scrape path.
func (m *Metrics) Path() string {
	if m == nil || m.path == "" {
		return DefaultMetricsPath
	}
	return m.path
}

// Handler returns the Prometheus scrape handler. When the prometheus
// exporter is not active, the handler answers 503 so probes can tell
// metrics are off rather than missing.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics not enabled"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordLatency records a latency measurement in milliseconds against the
// named histogram, creating the instrument on first use.
func (m *Metrics) RecordLatency(ctx context.Context, name string, value float64, description string, attrs map[string]string) {
	if !m.Enabled() {
		return
	}
	h := m.histogram(name, description, "ms")
	if h == nil {
		return
	}
	h.Record(ctx, value, metric.WithAttributes(toAttributes(attrs)...))
}

// RecordEvent records a single occurrence against the named histogram,
// creating the instrument on first use.
func (m *Metrics) RecordEvent(ctx context.Context, name string, description string, attrs map[string]string) {
	if !m.Enabled() {
		return
	}
	h := m.histogram(name, description, "1")
	if h == nil {
		return
	}
	h.Record(ctx, 1, metric.WithAttributes(toAttributes(attrs)...))
}

// histogram returns the instrument for name, creating it if needed.
// The first creation fixes the description and unit for that name.
func (m *Metrics) histogram(name, description, unit string) metric.Float64Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.histograms[name]; ok {
		return h
	}

	h, err := m.meter.Float64Histogram(
		m.metricName(name),
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		otel.Handle(err)
		return nil
	}

	m.histograms[name] = h
	return h
}

// metricName prefixes name with the configured namespace.
func (m *Metrics) metricName(name string) string {
	if m.namespace == "" {
		return name
	}
	return m.namespace + "_" + name
}

// Shutdown flushes pending readings and shuts the provider down.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

// toAttributes converts a string map to OTel attributes.
func toAttributes(attrs map[string]string) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, attribute.String(k, v))
	}
	return kvs
}
