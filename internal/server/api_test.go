package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/focusbot/internal/booking"
	"github.com/teemow/focusbot/internal/calendar"
	"github.com/teemow/focusbot/internal/eventcache"
	"github.com/teemow/focusbot/internal/logging"
	"github.com/teemow/focusbot/internal/notifier"
	"github.com/teemow/focusbot/internal/slots"
	"github.com/teemow/focusbot/internal/timerstate"
	"github.com/teemow/focusbot/internal/timeutil"
)

var loc = timeutil.FixedZone(8 * time.Hour)

func at(h, m int) time.Time {
	return time.Date(2024, 3, 15, h, m, 0, 0, loc)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSender) Send(_ context.Context, chatID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, chatID+": "+text)
	return nil
}

type fixture struct {
	clock   *timeutil.FakeClock
	cal     *calendar.MemoryCalendar
	backend *timerstate.MemoryBackend
	sender  *recordingSender
	sc      *ServerContext
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock: timeutil.NewFakeClock(at(9, 30)),
		cal: calendar.NewMemoryCalendar(calendar.Event{
			ID: "standup", Title: "Standup", Start: at(10, 0), End: at(11, 0),
		}),
		backend: timerstate.NewMemoryBackend(),
		sender:  &recordingSender{},
	}
	logger := logging.Discard()
	hours := slots.DefaultWorkHours(loc)
	cache := eventcache.New(f.cal, eventcache.Options{Location: loc, Clock: f.clock, Logger: logger})
	store := timerstate.NewStore(f.backend, f.clock, logger, nil)
	chats := notifier.NewChatRegistry("")

	finder, err := slots.NewFinder(f.cal, hours, f.clock)
	require.NoError(t, err)
	sc, err := NewServerContext(context.Background(), Services{
		Finder: finder,
		Store:  store,
		Cache:  cache,
		Booking: booking.NewService(f.cal, cache, booking.Options{
			Hours: hours, Clock: f.clock, Logger: logger,
			Store: store, Sender: f.sender, Chats: chats,
		}),
		Chats:    chats,
		Backend:  f.backend,
		Location: loc,
		Clock:    f.clock,
		Logger:   logger,
	})
	require.NoError(t, err)
	f.sc = sc
	f.handler = NewAPI(sc).Handler(NewHealthChecker(sc))
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewServerContext_RequiresServices(t *testing.T) {
	_, err := NewServerContext(context.Background(), Services{})
	assert.Error(t, err)
}

func TestAPI_Slots(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/slots", `{"date":"2024-03-15"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[slots.Result](t, rec)
	assert.Equal(t, "2024-03-15", res.Date)
	assert.Equal(t, 8, res.Count, "the running 09:00 slot stays, 10:00 is busy")
	require.NotEmpty(t, res.Slots)
	assert.True(t, res.Slots[0].Start.Equal(at(9, 0)))
	assert.True(t, res.Slots[1].Start.Equal(at(11, 0)))

	rec = f.do(t, http.MethodGet, "/api/slots?date=2024-03-16", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 9, decode[slots.Result](t, rec).Count)

	rec = f.do(t, http.MethodPost, "/api/slots", "")
	require.Equal(t, http.StatusOK, rec.Code, "empty body means today")

	rec = f.do(t, http.MethodGet, "/api/slots?date=15/03/2024", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "invalid input", body.Error)
	assert.NotEmpty(t, body.Details)
}

func TestAPI_SlotsUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.cal.SetFailure(errors.New("calendar down"))

	rec := f.do(t, http.MethodGet, "/api/slots", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream unavailable", decode[ErrorResponse](t, rec).Error)
}

func TestAPI_TimerStateRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/timer-state",
		`{"activeTaskId":"t1","timers":{"t1":{"seconds":100,"isRunning":true,"autoStarted":false,"finalized":false}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decode[timerstate.TimerState](t, rec)
	assert.Equal(t, "t1", st.ActiveTaskID)
	assert.True(t, st.LastTick.Equal(f.clock.Now()))

	f.clock.Advance(5 * time.Second)
	rec = f.do(t, http.MethodGet, "/api/timer-state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st = decode[timerstate.TimerState](t, rec)
	assert.Equal(t, int64(105), st.Timers["t1"].Seconds)

	rec = f.do(t, http.MethodGet, "/api/timer-state", "")
	st = decode[timerstate.TimerState](t, rec)
	assert.Equal(t, int64(105), st.Timers["t1"].Seconds, "repeated reads at the same instant do not add time")
}

func TestAPI_TimerStateRejectsInvalidPayload(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{
		`[]`,
		`{"activeTaskId":"t1"}`,
		`{"timers":{"t1":{"seconds":-1}}}`,
		`{"timers":{},"extra":true}`,
	} {
		rec := f.do(t, http.MethodPost, "/api/timer-state", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Zero(t, f.backend.Saves())
}

func TestAPI_EventsLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/events",
		`{"title":"Deep work","start":"2024-03-15T10:30:00+08:00","end":"2024-03-15T11:30:00+08:00"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/events",
		`{"title":"Deep work","start":"2024-03-15T11:00:00+08:00","end":"2024-03-15T12:00:00+08:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[calendar.Event](t, rec)
	assert.NotEmpty(t, ev.ID)

	rec = f.do(t, http.MethodGet, "/api/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := decode[[]calendar.Event](t, rec)
	require.Len(t, tasks, 2, "the cache is invalidated by the booking")
	assert.Equal(t, "standup", tasks[0].ID)

	rec = f.do(t, http.MethodDelete, "/api/events/"+ev.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/events/"+ev.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/events", `{"title":"x"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_BookSlot(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/slots/book",
		`{"startTimestamp":`+jsonInt(at(14, 0).UnixMilli())+`,"who":"Ada"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[calendar.Event](t, rec)
	assert.Equal(t, "Focus Session (Ada)", ev.Title)
	assert.Equal(t, time.Hour, ev.End.Sub(ev.Start))

	rec = f.do(t, http.MethodPost, "/api/slots/book", `{"who":"Ada"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/slots/book", `{"start":"2024-03-15T10:00:00+08:00"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_Renew(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(at(11, 0))

	rec := f.do(t, http.MethodPost, "/api/events/renew", `{"title":"Standup"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[calendar.Event](t, rec)
	assert.True(t, ev.Start.Equal(at(11, 0)))
	assert.True(t, ev.End.Equal(at(11, 30)))

	rec = f.do(t, http.MethodPost, "/api/events/renew", `{"minutes":10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_CompleteReportsToChat(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/chat", `{"chatId":"+4912345"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+4912345", f.sc.Chats().Get())

	_, err := f.sc.Store().Write(context.Background(), timerstate.Update{
		Timers: map[string]timerstate.TaskTimer{"standup": {Seconds: 125, IsRunning: true}},
	})
	require.NoError(t, err)

	rec = f.do(t, http.MethodPost, "/api/tasks/standup/complete", `{"title":"Standup"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[booking.CompleteResult](t, rec)
	assert.True(t, res.Timer.Finalized)
	assert.False(t, res.Timer.IsRunning)
	assert.True(t, res.Reported)
	assert.Equal(t, []string{"+4912345: ✅ Standup completed: 02:05"}, f.sender.sent)

	rec = f.do(t, http.MethodPut, "/api/chat", `{"chatId":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RequestID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/timer-state", "")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/timer-state", nil)
	req.Header.Set(RequestIDHeader, "3f2504e0-4f89-11d3-9a0c-0305e82c3301")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "3f2504e0-4f89-11d3-9a0c-0305e82c3301", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/api/timer-state", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPatch, "/api/timer-state", "{}")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("boom")))
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
