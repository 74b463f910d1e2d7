// Package server exposes graph runs and the message bus over HTTP.
//
// Routes:
//
//	POST /v1/runs            run a graph document, reply with the report and outputs
//	POST /v1/runs/stream     same, streaming run events as SSE data frames
//	POST /v1/topics/{topic}  publish the request body
//	GET  /v1/topics/{topic}  consume one payload; 204 when the topic is empty
//	GET  /healthz
//	GET  /metrics            when a metrics handler is configured
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leofalp/nodeflow/core/bus"
	"github.com/leofalp/nodeflow/core/runner"
)

// DefaultMaxBodySize caps graph documents and published payloads.
const DefaultMaxBodySize = 4 << 20

// Server serves the HTTP API.
type Server struct {
	runner  *runner.Runner
	bus     bus.Bus
	metrics http.Handler
	logger  *slog.Logger

	maxBodySize int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(server *Server) {
		server.logger = logger
	}
}

// WithMetricsHandler mounts handler on /metrics.
func WithMetricsHandler(handler http.Handler) Option {
	return func(server *Server) {
		server.metrics = handler
	}
}

// WithMaxBodySize caps request bodies.
func WithMaxBodySize(size int64) Option {
	return func(server *Server) {
		server.maxBodySize = size
	}
}

// New creates a Server. messageBus must be the bus the runner's engine uses.
func New(graphRunner *runner.Runner, messageBus bus.Bus, opts ...Option) *Server {
	server := &Server{
		runner:      graphRunner,
		bus:         messageBus,
		logger:      slog.Default(),
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(server)
	}
	return server
}

// Handler returns the router.
func (server *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(server.logRequests)

	router.Get("/healthz", server.health)
	if server.metrics != nil {
		router.Handle("/metrics", server.metrics)
	}

	router.Route("/v1", func(router chi.Router) {
		router.Post("/runs", server.createRun)
		router.Post("/runs/stream", server.streamRun)
		router.Post("/topics/{topic}", server.publish)
		router.Get("/topics/{topic}", server.consume)
	})
	return router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down,
// giving in-flight requests up to shutdownTimeout to finish.
func (server *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		server.logger.Info("http server listening", "addr", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		server.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			server.logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err.Error())
			return httpServer.Close()
		}
		return nil
	}
}

func (server *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)
		server.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
