// ABOUTME: HTTP server wiring for the gateway
// ABOUTME: Registers API routes with their middleware chains, the page catch-all and metrics

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/famquest/gateway/config"
	"github.com/famquest/gateway/handlers"
	"github.com/famquest/gateway/metrics"
	"github.com/famquest/gateway/middleware"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 15 * time.Second

	// writeMargin leaves room past the upstream deadline to write the error response.
	writeMargin = 10 * time.Second
)

// Server is the gateway HTTP server.
type Server struct {
	cfg     *config.Config
	handler *handlers.Handler
	mux     *http.ServeMux
}

// New builds the server and registers every route. Background work owned by
// the server (rate limiter sweeps) stops when ctx is done.
func New(ctx context.Context, cfg *config.Config, webhook handlers.Webhook) *Server {
	s := &Server{
		cfg:     cfg,
		handler: handlers.NewHandler(cfg, webhook),
		mux:     http.NewServeMux(),
	}

	var authLimiter *middleware.RateLimiter
	if cfg.RateLimitEnabled {
		authLimiter = middleware.NewRateLimiter(ctx, cfg.RateLimitAuth)
		slog.Info("Rate limiting enabled", "auth_per_minute", cfg.RateLimitAuth)
	} else {
		slog.Warn("Rate limiting disabled")
	}

	base := []middleware.Middleware{
		middleware.Recover,
		middleware.LogRequest,
		middleware.Instrument,
		middleware.CORSWithConfig(cfg.CORSAllowedOrigins),
		middleware.SameOrigin(cfg.CORSAllowedOrigins),
	}

	for _, route := range s.handler.Routes() {
		chain := base
		if route.RateLimit == handlers.RateTierAuth {
			chain = append(chain[:len(chain):len(chain)], middleware.RateLimit(authLimiter, middleware.ClientIP))
		}
		s.mux.HandleFunc(route.Method+" "+route.Path, middleware.Chain(route.Handler, chain...))
	}

	// Preflight for any API path; CORS answers it before the handler runs.
	s.mux.HandleFunc("OPTIONS /api/", middleware.Chain(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, base...))

	if cfg.MetricsEnabled {
		s.mux.Handle("GET /metrics", metrics.Handler())
	}

	// Pages: gated by cookie presence, then served by the frontend.
	s.mux.HandleFunc("GET /", middleware.Chain(s.handler.Frontend,
		middleware.Recover,
		middleware.LogRequest,
		middleware.Instrument,
		middleware.AuthGate(middleware.GateConfig{
			ProtectedPrefixes: cfg.ProtectedPrefixes,
			LoginPath:         cfg.LoginPath,
		}),
	))

	return s
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves on l until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      s.cfg.UpstreamTimeout + writeMargin,
		IdleTimeout:       idleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
