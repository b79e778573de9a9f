package timerstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func TestCatchUp_AdvancesRunningTimer(t *testing.T) {
	st := &TimerState{
		ActiveTaskID: "A",
		Timers:       map[string]TaskTimer{"A": {Seconds: 10, IsRunning: true}},
		LastTick:     t0,
	}

	assert.True(t, CatchUp(st, t0.Add(5*time.Second)))
	assert.Equal(t, int64(15), st.Timers["A"].Seconds)
	assert.True(t, st.Timers["A"].IsRunning)
	assert.True(t, st.LastTick.Equal(t0.Add(5*time.Second)))
}

func TestCatchUp_Properties(t *testing.T) {
	for _, k := range []int64{1, 7, 59, 3600, 86400} {
		st := &TimerState{
			Timers:   map[string]TaskTimer{"A": {Seconds: 42, IsRunning: true}},
			LastTick: t0,
		}
		now := t0.Add(time.Duration(k) * time.Second)

		CatchUp(st, now)
		assert.Equal(t, 42+k, st.Timers["A"].Seconds)
		assert.True(t, st.LastTick.Equal(now))

		// An immediate second catch-up changes nothing.
		assert.False(t, CatchUp(st, now))
		assert.Equal(t, 42+k, st.Timers["A"].Seconds)
	}
}

func TestCatchUp_FloorsPartialSeconds(t *testing.T) {
	st := &TimerState{
		Timers:   map[string]TaskTimer{"A": {IsRunning: true}},
		LastTick: t0,
	}

	assert.False(t, CatchUp(st, t0.Add(900*time.Millisecond)))
	assert.True(t, st.LastTick.Equal(t0))

	assert.True(t, CatchUp(st, t0.Add(2500*time.Millisecond)))
	assert.Equal(t, int64(2), st.Timers["A"].Seconds)
}

func TestCatchUp_NothingRunning(t *testing.T) {
	st := &TimerState{
		Timers:   map[string]TaskTimer{"A": {Seconds: 5}, "B": {Seconds: 9, Finalized: true}},
		LastTick: t0,
	}

	assert.False(t, CatchUp(st, t0.Add(time.Minute)))
	assert.True(t, st.LastTick.Equal(t0), "lastTick must not move when nothing advanced")
	assert.Equal(t, int64(5), st.Timers["A"].Seconds)
	assert.Equal(t, int64(9), st.Timers["B"].Seconds)
}

func TestCatchUp_SeveralRunning(t *testing.T) {
	st := &TimerState{
		Timers: map[string]TaskTimer{
			"A": {Seconds: 1, IsRunning: true},
			"B": {Seconds: 2, IsRunning: true},
			"C": {Seconds: 3},
		},
		LastTick: t0,
	}

	assert.True(t, CatchUp(st, t0.Add(10*time.Second)))
	assert.Equal(t, int64(11), st.Timers["A"].Seconds)
	assert.Equal(t, int64(12), st.Timers["B"].Seconds)
	assert.Equal(t, int64(3), st.Timers["C"].Seconds)
}

func TestCatchUp_ZeroOrFutureLastTick(t *testing.T) {
	st := &TimerState{Timers: map[string]TaskTimer{"A": {IsRunning: true}}}
	assert.False(t, CatchUp(st, t0))
	assert.True(t, st.LastTick.Equal(t0))

	st.LastTick = t0.Add(time.Hour)
	assert.False(t, CatchUp(st, t0))
	assert.Zero(t, st.Timers["A"].Seconds)
}
