package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/focusbot/internal/booking"
	"github.com/teemow/focusbot/internal/eventcache"
	"github.com/teemow/focusbot/internal/instrumentation"
	"github.com/teemow/focusbot/internal/notifier"
	"github.com/teemow/focusbot/internal/slots"
	"github.com/teemow/focusbot/internal/timerstate"
	"github.com/teemow/focusbot/internal/timeutil"
)

// Services are the domain components shared by the HTTP API and the MCP tools.
type Services struct {
	Finder  *slots.Finder
	Store   *timerstate.Store
	Cache   *eventcache.Cache
	Booking *booking.Service
	Chats   *notifier.ChatRegistry

	// Backend is the timer state backend; it is pinged by the readiness
	// probe when it supports Ping.
	Backend timerstate.Backend

	Location *time.Location
	Clock    timeutil.Clock
	Logger   *slog.Logger
}

// Pinger is implemented by backends that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerContext holds the services for the lifetime of the server.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	services Services
	metrics  *instrumentation.Metrics
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, services Services) (*ServerContext, error) {
	if services.Finder == nil || services.Store == nil || services.Cache == nil || services.Booking == nil {
		return nil, errors.New("finder, store, cache and booking services are required")
	}
	if services.Chats == nil {
		services.Chats = notifier.NewChatRegistry("")
	}
	if services.Location == nil {
		services.Location = timeutil.FixedZone(timeutil.DefaultOffset)
	}
	if services.Clock == nil {
		services.Clock = timeutil.SystemClock{}
	}
	if services.Logger == nil {
		services.Logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		services: services,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Finder returns the slot finder.
func (sc *ServerContext) Finder() *slots.Finder { return sc.services.Finder }

// Store returns the timer state store.
func (sc *ServerContext) Store() *timerstate.Store { return sc.services.Store }

// Cache returns today's event cache.
func (sc *ServerContext) Cache() *eventcache.Cache { return sc.services.Cache }

// Booking returns the booking service.
func (sc *ServerContext) Booking() *booking.Service { return sc.services.Booking }

// Chats returns the notification chat registry.
func (sc *ServerContext) Chats() *notifier.ChatRegistry { return sc.services.Chats }

// Location returns the zone dates are interpreted in.
func (sc *ServerContext) Location() *time.Location { return sc.services.Location }

// Clock returns the server clock.
func (sc *ServerContext) Clock() timeutil.Clock { return sc.services.Clock }

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger { return sc.services.Logger }

// SetMetrics sets the metrics recorder. nil disables recording.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder, possibly nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// Ping checks the state backend when it supports it.
func (sc *ServerContext) Ping(ctx context.Context) error {
	if p, ok := sc.services.Backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
