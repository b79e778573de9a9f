package timerstate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/teemow/focusbot/internal/apperrors"
)

// TaskTimer is the timer of one task.
type TaskTimer struct {
	Seconds     int64 `json:"seconds"`
	IsRunning   bool  `json:"isRunning"`
	AutoStarted bool  `json:"autoStarted"`
	Finalized   bool  `json:"finalized"`
}

// TimerState is the deployment-wide timer state.
type TimerState struct {
	ActiveTaskID string
	Timers       map[string]TaskTimer
	LastTick     time.Time
}

// New returns an empty state stamped at now.
func New(now time.Time) *TimerState {
	return &TimerState{Timers: make(map[string]TaskTimer), LastTick: now}
}

// Clone returns a deep copy.
func (s *TimerState) Clone() *TimerState {
	out := &TimerState{
		ActiveTaskID: s.ActiveTaskID,
		Timers:       make(map[string]TaskTimer, len(s.Timers)),
		LastTick:     s.LastTick,
	}
	for id, t := range s.Timers {
		out.Timers[id] = t
	}
	return out
}

// Active returns the active timer, if any.
func (s *TimerState) Active() (TaskTimer, bool) {
	if s.ActiveTaskID == "" {
		return TaskTimer{}, false
	}
	t, ok := s.Timers[s.ActiveTaskID]
	return t, ok
}

// Running returns the ids of all running timers, sorted.
func (s *TimerState) Running() []string {
	var ids []string
	for id, t := range s.Timers {
		if t.IsRunning {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

type wireState struct {
	ActiveTaskID *string              `json:"activeTaskId"`
	Timers       map[string]TaskTimer `json:"timers"`
	LastTick     int64                `json:"lastTick"`
}

// MarshalJSON encodes the wire form; lastTick is epoch milliseconds and an
// empty active task is null.
func (s TimerState) MarshalJSON() ([]byte, error) {
	w := wireState{Timers: s.Timers}
	if w.Timers == nil {
		w.Timers = map[string]TaskTimer{}
	}
	if s.ActiveTaskID != "" {
		id := s.ActiveTaskID
		w.ActiveTaskID = &id
	}
	if !s.LastTick.IsZero() {
		w.LastTick = s.LastTick.UnixMilli()
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form without validation; stored state is
// trusted, client payloads go through DecodeUpdate.
func (s *TimerState) UnmarshalJSON(data []byte) error {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.ActiveTaskID = ""
	if w.ActiveTaskID != nil {
		s.ActiveTaskID = *w.ActiveTaskID
	}
	s.Timers = w.Timers
	if s.Timers == nil {
		s.Timers = make(map[string]TaskTimer)
	}
	s.LastTick = time.Time{}
	if w.LastTick > 0 {
		s.LastTick = time.UnixMilli(w.LastTick)
	}
	return nil
}

// Update is a client write. Nil ActiveTaskID leaves the active task
// untouched; Timers replaces the whole map.
type Update struct {
	ActiveTaskID *string              `json:"activeTaskId"`
	Timers       map[string]TaskTimer `json:"timers"`
}

// Validate checks an update against the wire schema.
func (u Update) Validate() error {
	const op = "timerstate.decode"
	if u.Timers == nil {
		return apperrors.InvalidInput(op, "timers is required")
	}
	for id, t := range u.Timers {
		if id == "" {
			return apperrors.InvalidInput(op, "timer ids must not be empty")
		}
		if t.Seconds < 0 {
			return apperrors.InvalidInput(op, "timer %q has negative seconds %d", id, t.Seconds)
		}
		if t.Finalized && t.IsRunning {
			return apperrors.InvalidInput(op, "timer %q is finalized and running", id)
		}
	}
	if u.ActiveTaskID != nil && *u.ActiveTaskID != "" {
		if _, ok := u.Timers[*u.ActiveTaskID]; !ok {
			return apperrors.InvalidInput(op, "activeTaskId %q has no timer", *u.ActiveTaskID)
		}
	}
	return nil
}

// DecodeUpdate reads and validates a client payload. An explicit null
// activeTaskId clears the active task; an absent one keeps it.
func DecodeUpdate(r io.Reader) (Update, error) {
	const op = "timerstate.decode"

	data, err := io.ReadAll(r)
	if err != nil {
		return Update{}, apperrors.InvalidInput(op, "failed to read body: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Update{}, apperrors.InvalidInput(op, "body must be a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var raw struct {
		Update
		LastTick json.RawMessage `json:"lastTick"`
	}
	if err := dec.Decode(&raw); err != nil {
		return Update{}, apperrors.InvalidInput(op, "malformed timer state: %v", err)
	}
	u := raw.Update

	if active, ok := fields["activeTaskId"]; ok {
		id := ""
		if string(bytes.TrimSpace(active)) != "null" {
			id = *u.ActiveTaskID
		}
		u.ActiveTaskID = &id
	}

	if err := u.Validate(); err != nil {
		return Update{}, err
	}
	return u, nil
}

// String summarizes the state for logs.
func (s *TimerState) String() string {
	return fmt.Sprintf("active=%q timers=%d running=%v lastTick=%s",
		s.ActiveTaskID, len(s.Timers), s.Running(), s.LastTick.Format(time.RFC3339))
}
