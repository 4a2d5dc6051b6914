// Package server exposes the question flow over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"routeqa/config"
	"routeqa/llm/flow"
	"routeqa/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Runner answers one question.
type Runner interface {
	Run(ctx context.Context, question, documentRef string, opts ...flow.RunOption) flow.Result
}

// Ingester pre-loads a document into the vector index.
type Ingester interface {
	Ingest(ctx context.Context, documentRef string) (int, error)
}

// Server is the HTTP API.
type Server struct {
	runner   Runner
	ingester Ingester
	config   config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server. ingester may be nil, which disables the ingest route.
func NewServer(runner Runner, ingester Ingester, cfg config.ServerConfig, logger *zap.Logger) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Server{
		runner:   runner,
		ingester: ingester,
		config:   cfg,
		logger:   logging.OrNop(logger),
	}
}

// Handler returns the routed handler with its middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.Timeout))

	r.Post("/api/v1/ask", s.handleAsk)
	if s.ingester != nil {
		r.Post("/api/v1/ingest", s.handleIngest)
	}
	r.Get("/health", s.handleHealth)
	return r
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", s.config.Addr))
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}
