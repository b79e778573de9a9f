package timerstate

import "github.com/teemow/focusbot/internal/apperrors"

// Status is the lifecycle state of a TaskTimer.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusFinalized Status = "finalized"
)

// Status reports the timer's lifecycle state.
func (t TaskTimer) Status() Status {
	switch {
	case t.Finalized:
		return StatusFinalized
	case t.IsRunning:
		return StatusRunning
	default:
		return StatusIdle
	}
}

// Ensure creates a zero timer for id if none exists.
func (s *TimerState) Ensure(id string) TaskTimer {
	if s.Timers == nil {
		s.Timers = make(map[string]TaskTimer)
	}
	t, ok := s.Timers[id]
	if !ok {
		s.Timers[id] = t
	}
	return t
}

// Switch makes id the active task, pausing the previously active timer.
// Entries are never removed, so elapsed time survives switches.
func (s *TimerState) Switch(id string) {
	if s.ActiveTaskID == id {
		s.Ensure(id)
		return
	}
	if prev, ok := s.Active(); ok {
		prev.IsRunning = false
		s.Timers[s.ActiveTaskID] = prev
	}
	s.Ensure(id)
	s.ActiveTaskID = id
}

// Start switches to id and runs its timer. Starting a running timer is a no-op.
func (s *TimerState) Start(id string) error {
	if t := s.Ensure(id); t.Finalized {
		return apperrors.InvalidInput("timerstate.start", "task %q is already completed", id)
	}
	s.Switch(id)
	t := s.Timers[id]
	t.IsRunning = true
	s.Timers[id] = t
	return nil
}

// Pause stops id's timer without changing the active task.
func (s *TimerState) Pause(id string) {
	t, ok := s.Timers[id]
	if !ok || !t.IsRunning {
		return
	}
	t.IsRunning = false
	s.Timers[id] = t
}

// Toggle starts an idle timer or pauses a running one.
func (s *TimerState) Toggle(id string) error {
	if t, ok := s.Timers[id]; ok && t.IsRunning {
		s.Pause(id)
		return nil
	}
	return s.Start(id)
}

// Complete finalizes id: the timer stops and its seconds are frozen.
// Completing an already finalized timer returns it unchanged.
func (s *TimerState) Complete(id string) TaskTimer {
	t := s.Ensure(id)
	if t.Finalized {
		return t
	}
	t.IsRunning = false
	t.Finalized = true
	s.Timers[id] = t
	return t
}
