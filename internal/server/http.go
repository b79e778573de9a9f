package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Defaults for the API server.
const (
	DefaultAPIAddr              = ":8080"
	DefaultAPIReadHeaderTimeout = 10 * time.Second
	DefaultAPIWriteTimeout      = 30 * time.Second
	DefaultAPIIdleTimeout       = 120 * time.Second
)

// APIServer serves the HTTP API and the health endpoints.
type APIServer struct {
	addr       string
	handler    http.Handler
	health     *HealthChecker
	mu         sync.Mutex
	httpServer *http.Server
	listenAddr net.Addr
	closed     bool
}

// NewAPIServer creates a server for sc listening on addr.
func NewAPIServer(addr string, sc *ServerContext) *APIServer {
	if addr == "" {
		addr = DefaultAPIAddr
	}
	health := NewHealthChecker(sc)
	return &APIServer{
		addr:    addr,
		handler: NewAPI(sc).Handler(health),
		health:  health,
	}
}

// Handler returns the wrapped HTTP handler.
func (s *APIServer) Handler() http.Handler {
	return s.handler
}

// Health returns the health checker so callers can flip readiness.
func (s *APIServer) Health() *HealthChecker {
	return s.health
}

// Start listens and serves until Shutdown. It returns nil after a graceful shutdown.
func (s *APIServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ln.Close()
	}
	s.listenAddr = ln.Addr()
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: DefaultAPIReadHeaderTimeout,
		WriteTimeout:      DefaultAPIWriteTimeout,
		IdleTimeout:       DefaultAPIIdleTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	slog.Info("starting API server", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown marks the server not ready and stops accepting requests.
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)

	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	slog.Info("shutting down API server")
	return srv.Shutdown(ctx)
}

// Addr returns the bound address once started, else the configured one.
func (s *APIServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listenAddr != nil {
		return s.listenAddr.String()
	}
	return s.addr
}
