package timerstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/focusbot/internal/apperrors"
	"github.com/teemow/focusbot/internal/instrumentation"
	"github.com/teemow/focusbot/internal/logging"
	"github.com/teemow/focusbot/internal/timeutil"
)

// Persist sources recorded in metrics.
const (
	sourceRead   = "read"
	sourceWrite  = "write"
	sourceAction = "action"
)

// Store reads and writes the TimerState through a Backend. Storage failures
// never reach the caller: a failed load yields an empty state and a failed
// save is logged.
//
// The mutex only serializes callers inside this process; separate processes
// sharing a backend follow last-write-wins.
type Store struct {
	mu      sync.Mutex
	backend Backend
	clock   timeutil.Clock
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewStore creates a Store. clock, logger and metrics may be nil.
func NewStore(backend Backend, clock timeutil.Clock, logger *slog.Logger, metrics *instrumentation.Metrics) *Store {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Store{
		backend: backend,
		clock:   clock,
		logger:  logging.WithComponent(logger, "timerstate"),
		metrics: metrics,
	}
}

// Read returns the current state after catch-up. The caught-up state is
// persisted only when a running timer advanced.
func (s *Store) Read(ctx context.Context) TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	st := s.load(ctx)
	if CatchUp(st, now) {
		s.save(ctx, st, sourceRead)
	}
	return *st.Clone()
}

// Write applies a client update: the supplied fields overwrite the stored
// ones, LastTick is stamped with now, and the result is persisted.
func (s *Store) Write(ctx context.Context, u Update) (TimerState, error) {
	if err := u.Validate(); err != nil {
		return TimerState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	st := s.load(ctx)
	CatchUp(st, now)

	if u.ActiveTaskID != nil {
		st.ActiveTaskID = *u.ActiveTaskID
	}
	st.Timers = make(map[string]TaskTimer, len(u.Timers))
	for id, t := range u.Timers {
		st.Timers[id] = t
	}
	st.LastTick = now

	s.save(ctx, st, sourceWrite)
	return *st.Clone(), nil
}

// Apply runs fn against the caught-up state and persists the result.
// When fn fails nothing is saved.
func (s *Store) Apply(ctx context.Context, fn func(*TimerState) error) (TimerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	st := s.load(ctx)
	CatchUp(st, now)

	if err := fn(st); err != nil {
		return TimerState{}, err
	}
	st.LastTick = now

	s.save(ctx, st, sourceAction)
	return *st.Clone(), nil
}

// Complete finalizes taskID and returns its frozen timer.
func (s *Store) Complete(ctx context.Context, taskID string) (TaskTimer, error) {
	if taskID == "" {
		return TaskTimer{}, apperrors.InvalidInput("timerstate.complete", "task id is required")
	}
	var done TaskTimer
	_, err := s.Apply(ctx, func(st *TimerState) error {
		done = st.Complete(taskID)
		return nil
	})
	return done, err
}

func (s *Store) load(ctx context.Context) *TimerState {
	st, err := s.backend.Load(ctx)
	switch {
	case errors.Is(err, ErrNoState):
		return New(s.clock.Now())
	case err != nil:
		s.logger.Error("failed to load timer state, using empty state",
			logging.Operation("timerstate.load"),
			logging.Err(apperrors.Persistence("timerstate.load", err)))
		return New(s.clock.Now())
	}
	if st.Timers == nil {
		st.Timers = make(map[string]TaskTimer)
	}
	return st
}

func (s *Store) save(ctx context.Context, st *TimerState, source string) {
	if err := s.backend.Save(ctx, st); err != nil {
		s.metrics.RecordTimerStateWrite(ctx, source, instrumentation.StatusError)
		s.logger.Error("failed to persist timer state",
			logging.Operation("timerstate.save"),
			slog.String("source", source),
			logging.Err(apperrors.Persistence("timerstate.save", err)))
		return
	}
	s.metrics.RecordTimerStateWrite(ctx, source, instrumentation.StatusSuccess)
	s.logger.Debug("timer state persisted", slog.String("source", source), slog.String("state", st.String()))
}
