package timerstate

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/focusbot/internal/apperrors"
)

func TestTimerState_JSON(t *testing.T) {
	st := TimerState{
		ActiveTaskID: "evt1",
		Timers:       map[string]TaskTimer{"evt1": {Seconds: 10, IsRunning: true}},
		LastTick:     time.UnixMilli(1700000000000),
	}

	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"activeTaskId": "evt1",
		"timers": {"evt1": {"seconds": 10, "isRunning": true, "autoStarted": false, "finalized": false}},
		"lastTick": 1700000000000
	}`, string(data))

	var back TimerState
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, st.ActiveTaskID, back.ActiveTaskID)
	assert.Equal(t, st.Timers, back.Timers)
	assert.True(t, st.LastTick.Equal(back.LastTick))
}

func TestTimerState_JSONEmpty(t *testing.T) {
	data, err := json.Marshal(TimerState{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"activeTaskId": null, "timers": {}, "lastTick": 0}`, string(data))

	var back TimerState
	require.NoError(t, json.Unmarshal([]byte(`{"activeTaskId": null}`), &back))
	assert.Empty(t, back.ActiveTaskID)
	assert.NotNil(t, back.Timers)
	assert.True(t, back.LastTick.IsZero())
}

func TestDecodeUpdate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    bool
		wantActive *string
		wantTimers int
	}{
		{
			name:       "full payload",
			body:       `{"activeTaskId":"a","timers":{"a":{"seconds":3,"isRunning":true}}}`,
			wantActive: ptr("a"),
			wantTimers: 1,
		},
		{
			name:       "null active clears",
			body:       `{"activeTaskId":null,"timers":{}}`,
			wantActive: ptr(""),
		},
		{
			name:       "absent active keeps",
			body:       `{"timers":{"a":{"seconds":1}}}`,
			wantTimers: 1,
		},
		{
			name: "client lastTick is ignored",
			body: `{"timers":{},"lastTick":123}`,
		},
		{name: "not an object", body: `[1,2]`, wantErr: true},
		{name: "null body", body: `null`, wantErr: true},
		{name: "garbage", body: `{"timers":`, wantErr: true},
		{name: "missing timers", body: `{"activeTaskId":"a"}`, wantErr: true},
		{name: "negative seconds", body: `{"timers":{"a":{"seconds":-1}}}`, wantErr: true},
		{name: "seconds as string", body: `{"timers":{"a":{"seconds":"5"}}}`, wantErr: true},
		{name: "unknown field", body: `{"timers":{},"extra":1}`, wantErr: true},
		{name: "active without timer", body: `{"activeTaskId":"b","timers":{"a":{}}}`, wantErr: true},
		{name: "finalized and running", body: `{"timers":{"a":{"isRunning":true,"finalized":true}}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := DecodeUpdate(strings.NewReader(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantActive, u.ActiveTaskID)
			assert.Len(t, u.Timers, tt.wantTimers)
		})
	}
}

func ptr(s string) *string { return &s }
