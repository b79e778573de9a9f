package timerstate

import "time"

// CatchUp adds the whole seconds elapsed since LastTick to every running,
// non-finalized timer. When any timer advanced, LastTick moves to now and
// CatchUp reports true. A zero LastTick is treated as now. The sub-second
// remainder is dropped when LastTick moves.
func CatchUp(s *TimerState, now time.Time) bool {
	if s.LastTick.IsZero() {
		s.LastTick = now
		return false
	}

	elapsed := int64(now.Sub(s.LastTick) / time.Second)
	if elapsed <= 0 {
		return false
	}

	advanced := false
	for id, t := range s.Timers {
		if !t.IsRunning || t.Finalized {
			continue
		}
		t.Seconds += elapsed
		s.Timers[id] = t
		advanced = true
	}
	if advanced {
		s.LastTick = now
	}
	return advanced
}
