package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const readinessCheckTimeout = 2 * time.Second

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type namedCheck struct {
	name  string
	check ReadinessCheck
}

type mount struct {
	pattern string
	handler http.Handler
}

// HealthServer serves the worker's health endpoints and, optionally, extra routes
// such as the admin API:
//
//	GET /health        liveness, always 200
//	GET /health/ready  200 when SetReady(true) was called and every check passes, else 503
type HealthServer struct {
	addr    string
	logger  *slog.Logger
	isReady *atomic.Bool
	checks  []namedCheck
	mounts  []mount
	server  *http.Server
}

// HealthOption configures a HealthServer.
type HealthOption func(*HealthServer)

// WithReadinessCheck adds a named dependency check to /health/ready.
func WithReadinessCheck(name string, check ReadinessCheck) HealthOption {
	return func(h *HealthServer) {
		h.checks = append(h.checks, namedCheck{name: name, check: check})
	}
}

// WithMount serves handler under pattern (a chi mount prefix).
func WithMount(pattern string, handler http.Handler) HealthOption {
	return func(h *HealthServer) {
		h.mounts = append(h.mounts, mount{pattern: pattern, handler: handler})
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewHealthServer creates a server that is not ready until SetReady(true).
func NewHealthServer(addr string, logger *slog.Logger, opts ...HealthOption) *HealthServer {
	h := &HealthServer{
		addr:    addr,
		logger:  logger,
		isReady: &atomic.Bool{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handler returns the router serving every endpoint of the server.
func (h *HealthServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.handleLiveness)
	r.Get("/health/ready", h.handleReadiness)
	for _, m := range h.mounts {
		r.Mount(m.pattern, m.handler)
	}
	return r
}

// Start serves until ctx is cancelled, then shuts down within five seconds.
// It returns http.ErrServerClosed after a graceful shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:              h.addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// POST /api/monitor/run waits for a whole cycle.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("health server failed", slog.Any("error", err))
		}
		return err
	}
}

// SetReady sets the readiness flag reported by /health/ready.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if !h.isReady.Load() {
		h.write(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
		return
	}

	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), readinessCheckTimeout)
		defer cancel()

		resp.Checks = make(map[string]string, len(h.checks))
		for _, c := range h.checks {
			if err := c.check(ctx); err != nil {
				resp.Checks[c.name] = err.Error()
				resp.Status = "not ready"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.name] = "ok"
		}
	}
	h.write(w, code, resp)
}

func (h *HealthServer) write(w http.ResponseWriter, code int, body healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
