package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/focusbot/internal/apperrors"
	"github.com/teemow/focusbot/internal/calendar"
	"github.com/teemow/focusbot/internal/logging"
	"github.com/teemow/focusbot/internal/timerstate"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// API serves the focusbot HTTP endpoints.
type API struct {
	sc *ServerContext
}

// NewAPI creates the API over sc.
func NewAPI(sc *ServerContext) *API {
	return &API{sc: sc}
}

// Register adds the API routes to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/timer-state", a.getTimerState)
	mux.HandleFunc("POST /api/timer-state", a.postTimerState)
	mux.HandleFunc("GET /api/slots", a.getSlots)
	mux.HandleFunc("POST /api/slots", a.postSlots)
	mux.HandleFunc("POST /api/slots/book", a.bookSlot)
	mux.HandleFunc("GET /api/tasks", a.listTasks)
	mux.HandleFunc("POST /api/tasks/{id}/complete", a.completeTask)
	mux.HandleFunc("POST /api/events", a.createEvent)
	mux.HandleFunc("POST /api/events/renew", a.renewEvent)
	mux.HandleFunc("DELETE /api/events/{id}", a.deleteEvent)
	mux.HandleFunc("PUT /api/chat", a.putChat)
}

// Handler returns the API and health endpoints wrapped in the request id,
// logging, metrics and tracing middleware.
func (a *API) Handler(health *HealthChecker) http.Handler {
	mux := http.NewServeMux()
	a.Register(mux)
	if health != nil {
		health.RegisterHealthEndpoints(mux)
	}
	logger := logging.WithComponent(a.sc.Logger(), "api")
	h := withObservability(mux, logger, a.sc.Metrics)
	return otelhttp.NewHandler(withRequestID(h), "focusbot.api")
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, a.sc.Logger(), err)
}

func (a *API) getTimerState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.sc.Store().Read(r.Context()))
}

func (a *API) postTimerState(w http.ResponseWriter, r *http.Request) {
	u, err := timerstate.DecodeUpdate(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	st, err := a.sc.Store().Write(r.Context(), u)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) getSlots(w http.ResponseWriter, r *http.Request) {
	a.findSlots(w, r, r.URL.Query().Get("date"))
}

func (a *API) postSlots(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := decodeBody(w, r, &req, true); err != nil {
		a.fail(w, r, err)
		return
	}
	a.findSlots(w, r, req.Date)
}

func (a *API) findSlots(w http.ResponseWriter, r *http.Request, date string) {
	res, err := a.sc.Finder().Find(r.Context(), strings.TrimSpace(date))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// bookSlot books the slot starting at start (RFC3339) or startTimestamp (ms).
func (a *API) bookSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start          time.Time `json:"start"`
		StartTimestamp int64     `json:"startTimestamp"`
		Who            string    `json:"who"`
	}
	if err := decodeBody(w, r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	start := req.Start
	if start.IsZero() && req.StartTimestamp > 0 {
		start = time.UnixMilli(req.StartTimestamp)
	}
	if start.IsZero() {
		a.fail(w, r, apperrors.InvalidInput("api.slots.book", "start or startTimestamp is required"))
		return
	}
	ev, err := a.sc.Booking().BookSlot(r.Context(), start.In(a.sc.Location()), req.Who)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (a *API) listTasks(w http.ResponseWriter, r *http.Request) {
	events, err := a.sc.Cache().Load(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if events == nil {
		events = []calendar.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (a *API) completeTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeBody(w, r, &req, true); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.sc.Booking().Complete(r.Context(), r.PathValue("id"), req.Title)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) createEvent(w http.ResponseWriter, r *http.Request) {
	var in calendar.EventInput
	if err := decodeBody(w, r, &in, false); err != nil {
		a.fail(w, r, err)
		return
	}
	ev, err := a.sc.Booking().Create(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (a *API) renewEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Minutes int    `json:"minutes"`
	}
	if err := decodeBody(w, r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		a.fail(w, r, apperrors.InvalidInput("api.events.renew", "title is required"))
		return
	}
	ev, err := a.sc.Booking().Renew(r.Context(), req.Title, time.Duration(req.Minutes)*time.Minute)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (a *API) deleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := a.sc.Booking().Delete(r.Context(), r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) putChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatID string `json:"chatId"`
	}
	if err := decodeBody(w, r, &req, false); err != nil {
		a.fail(w, r, err)
		return
	}
	chatID := strings.TrimSpace(req.ChatID)
	if chatID == "" {
		a.fail(w, r, apperrors.InvalidInput("api.chat", "chatId is required"))
		return
	}
	a.sc.Chats().Set(chatID)
	a.sc.Logger().Info("notification chat updated", logging.ChatHash(chatID))
	writeJSON(w, http.StatusOK, map[string]string{"chatId": chatID})
}

// decodeBody reads a JSON object into v. An empty body is accepted when
// optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return apperrors.InvalidInput("api.decode", "invalid JSON body: %v", err)
	}
	return nil
}
