// Package api serves crawls and category tables over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"news-crawler/pkg/metrics"
	"news-crawler/pkg/newsservice"
)

// DefaultRequestTimeout bounds one crawl request. A crawl of several pages
// and articles with the per-fetch delay easily takes a minute.
const DefaultRequestTimeout = 5 * time.Minute

// Server holds the dependencies of the HTTP server.
type Server struct {
	addr           string
	requestTimeout time.Duration
	router         http.Handler
	httpServer     *http.Server
	service        *newsservice.Service
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

// NewServer wires the router. m may be nil to disable /metrics.
func NewServer(addr string, requestTimeout time.Duration, svc *newsservice.Service, m *metrics.Metrics, logger *zap.Logger) *Server {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		addr:           addr,
		requestTimeout: requestTimeout,
		service:        svc,
		metrics:        m,
		logger:         logger,
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.requestTimeout + 10*time.Second,
	}
	s.logger.Info("API listening", zap.String("addr", s.addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
