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

// Package runtime is the deployable HTTP service: the app an AgentCore
// container runs.
//
// It serves the AgentCore runtime contract (POST /invocations, GET /ping
// on 0.0.0.0:8080) plus the conversational surface used by frontends
// (POST /stream-chat, GET /health) and, when observability is configured,
// the Prometheus scrape endpoint.
package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/droverhq/drover/pkg/agent"
	"github.com/droverhq/drover/pkg/config"
	"github.com/droverhq/drover/pkg/observability"
)

// sessionHeader carries the session id AgentCore assigns to an
// invocation.
const sessionHeader = "X-Amzn-Bedrock-AgentCore-Runtime-Session-Id"

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// App is the runtime HTTP application. The served agent sits behind an
// atomic pointer so a config reload can swap it between requests.
type App struct {
	cfg    *config.Config
	agent  atomic.Pointer[agent.Agent]
	obs    *observability.Manager
	server *http.Server
}

// Option configures an App.
type Option func(*App)

// WithObservability wires tracing, metrics and the /metrics endpoint.
func WithObservability(obs *observability.Manager) Option {
	return func(a *App) {
		a.obs = obs
	}
}

// New creates the runtime app around one agent.
func New(cfg *config.Config, ag *agent.Agent, opts ...Option) *App {
	if cfg == nil {
		cfg = &config.Config{}
		cfg.SetDefaults()
	}

	app := &App{cfg: cfg}
	app.agent.Store(ag)
	for _, opt := range opts {
		opt(app)
	}
	if app.obs == nil {
		app.obs = observability.NoopManager()
	}
	return app
}

// Agent returns the agent currently serving requests.
func (a *App) Agent() *agent.Agent {
	return a.agent.Load()
}

// SetAgent swaps the served agent. In-flight requests finish on the agent
// they started with; new requests see the replacement.
func (a *App) SetAgent(ag *agent.Agent) {
	a.agent.Store(ag)
}

// Handler builds the chi router with the full middleware chain.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(a.obs.Tracer(), a.obs.Metrics()))

	// AgentCore runtime contract.
	r.Get("/ping", a.handlePing)
	r.Post("/invocations", a.handleInvocations)

	// Conversational surface.
	r.Get("/health", a.handleHealth)
	r.Post("/stream-chat", a.handleStreamChat)

	if a.obs.Metrics().Enabled() {
		path := a.obs.Metrics().Path()
		r.Get(path, a.obs.Metrics().Handler().ServeHTTP)
		slog.Info("Metrics endpoint enabled", "path", path)
	}

	return r
}

// Start serves until the context is canceled, then shuts down gracefully.
func (a *App) Start(ctx context.Context) error {
	a.server = &http.Server{
		Addr:        a.cfg.Server.Address(),
		Handler:     a.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	slog.Info("Runtime service starting",
		"address", a.server.Addr,
		"agent", a.Agent().ID(),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return a.Shutdown(context.Background())
	}
}

// Shutdown stops the server, letting in-flight requests drain.
func (a *App) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	slog.Info("Runtime service shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}

// handlePing answers the AgentCore health probe.
func (a *App) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Healthy"})
}

// handleHealth answers the conventional health probe.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requestLogger logs requests without wrapping the ResponseWriter, which
// would hide http.Flusher from the SSE handlers.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}
