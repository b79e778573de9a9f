package ticker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/focusbot/internal/timerstate"
)

func TestNewRemoteClient_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "://bad"} {
		_, err := NewRemoteClient(u, nil)
		assert.Error(t, err, u)
	}
}

func TestRemoteClient_RoundTrip(t *testing.T) {
	var saved timerstate.Update
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"X","title":"Deep work","start":"2024-03-15T10:00:00+08:00","end":"2024-03-15T11:00:00+08:00"}]`))
	})
	mux.HandleFunc("GET /api/timer-state", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"activeTaskId":"X","timers":{"X":{"seconds":42,"isRunning":true,"autoStarted":false,"finalized":false}},"lastTick":1710468000000}`))
	})
	mux.HandleFunc("POST /api/timer-state", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		u, err := timerstate.DecodeUpdate(r.Body)
		require.NoError(t, err)
		saved = u
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/tasks/{id}/complete", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a b", r.PathValue("id"))
		_, _ = w.Write([]byte(`{"taskId":"a b","timer":{"seconds":5,"isRunning":false,"autoStarted":false,"finalized":true},"message":"done","reported":true}`))
	})
	mux.HandleFunc("POST /api/events/renew", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Title   string `json:"title"`
			Minutes int    `json:"minutes"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Deep work", body.Title)
		assert.Equal(t, 30, body.Minutes)
		_, _ = w.Write([]byte(`{"id":"new","title":"Deep work","start":"2024-03-15T11:00:00+08:00","end":"2024-03-15T11:30:00+08:00"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := NewRemoteClient(srv.URL+"/", nil)
	require.NoError(t, err)
	ctx := context.Background()

	tasks, err := c.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "X", tasks[0].ID)
	assert.Equal(t, time.Hour, tasks[0].End.Sub(tasks[0].Start))

	st, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "X", st.ActiveTaskID)
	assert.Equal(t, int64(42), st.Timers["X"].Seconds)

	active := "X"
	require.NoError(t, c.Save(ctx, timerstate.Update{
		ActiveTaskID: &active,
		Timers:       map[string]timerstate.TaskTimer{"X": {Seconds: 43, IsRunning: true}},
	}))
	require.NotNil(t, saved.ActiveTaskID)
	assert.Equal(t, "X", *saved.ActiveTaskID)
	assert.Equal(t, int64(43), saved.Timers["X"].Seconds)

	res, err := c.Complete(ctx, "a b", "Deep work")
	require.NoError(t, err)
	assert.True(t, res.Timer.Finalized)
	assert.True(t, res.Reported)

	ev, err := c.Renew(ctx, "Deep work", 30)
	require.NoError(t, err)
	assert.Equal(t, "new", ev.ID)
}

func TestRemoteClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"conflict","details":"overlaps \"Standup\""}`))
	}))
	defer srv.Close()

	c, err := NewRemoteClient(srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Renew(context.Background(), "x", 30)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "conflict", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "Standup")
}

func TestRemoteClient_ErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewRemoteClient(srv.URL, nil)
	require.NoError(t, err)

	_, err = c.ListTasks(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}
