package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/focusbot/internal/timerstate"
)

type pingBackend struct {
	*timerstate.MemoryBackend
	err error
}

func (p *pingBackend) Ping(context.Context) error { return p.err }

func TestHealth_Liveness(t *testing.T) {
	h := NewHealthChecker(nil)
	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth_Readiness(t *testing.T) {
	f := newFixture(t)
	backend := &pingBackend{MemoryBackend: f.backend}
	f.sc.services.Backend = backend

	rec := f.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Checks["state_backend"])

	backend.err = errors.New("connection refused")
	rec = f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp = decode[HealthResponse](t, rec)
	assert.Equal(t, "unreachable", resp.Checks["state_backend"])

	backend.err = nil
	require.NoError(t, f.sc.Shutdown())
	rec = f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, f.sc.IsShutdown())
}

func TestHealth_NotReady(t *testing.T) {
	h := NewHealthChecker(nil)
	h.SetReady(false)
	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, h.IsReady())
}

func TestHealth_Detailed(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz/detailed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[DetailedHealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "unset", resp.Checks["chat"], "a missing chat does not fail readiness")
	assert.Equal(t, loc.String(), resp.Timezone)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	f.sc.Chats().Set("+4912345")
	resp = decode[DetailedHealthResponse](t, f.do(t, http.MethodGet, "/healthz/detailed", ""))
	assert.Equal(t, "ok", resp.Checks["chat"])

	require.NoError(t, f.sc.Shutdown())
	rec = f.do(t, http.MethodGet, "/healthz/detailed", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "shutting down", decode[DetailedHealthResponse](t, rec).Status)
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/healthz", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPIServer_ShutdownBeforeStart(t *testing.T) {
	f := newFixture(t)
	srv := NewAPIServer("127.0.0.1:0", f.sc)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, srv.Start(), "a server shut down before it started returns at once")
}

func TestAPIServer_StartAndShutdown(t *testing.T) {
	f := newFixture(t)
	srv := NewAPIServer("127.0.0.1:0", f.sc)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, <-done)
	assert.False(t, srv.Health().IsReady())
}
