package batch

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    []string
		wantErr string
	}{
		{name: "one event id", input: "evt-1", want: []string{"evt-1"}},
		{name: "id list from tool args", input: []any{"evt-1", "evt-2"}, want: []string{"evt-1", "evt-2"}},
		{name: "typed slice", input: []string{"evt-3"}, want: []string{"evt-3"}},
		{name: "json encoded list", input: `["evt-1","evt-2"]`, want: []string{"evt-1", "evt-2"}},
		{name: "bracketed id that is not json", input: "[evt", want: []string{"[evt"}},
		{name: "missing", input: nil, wantErr: "eventId is required"},
		{name: "blank", input: "", wantErr: "eventId cannot be empty"},
		{name: "empty list", input: []any{}, wantErr: "eventId cannot be empty"},
		{name: "number in list", input: []any{"evt-1", 7}, wantErr: "eventId[1] must be a string"},
		{name: "blank in list", input: []any{"evt-1", ""}, wantErr: "eventId[1] cannot be empty"},
		{name: "wrong type", input: 42, wantErr: "must be a string or array of strings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.input, "eventId")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSummarize(t *testing.T) {
	br := Summarize([]Result{
		NewSuccessResult("evt-1", "cancelled"),
		NewErrorResult("evt-2", errors.New("event not found")),
		NewSuccessResult("evt-3", "cancelled"),
	})

	assert.Equal(t, 3, br.Total)
	assert.Equal(t, 2, br.Successful)
	assert.Equal(t, 1, br.Failed)
	assert.Equal(t, StatusError, br.Results[1].Status)
	assert.Equal(t, "event not found", br.Results[1].Error)
	assert.Empty(t, br.Results[1].Result)
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]Result{
		NewSuccessResult("evt-1", "cancelled"),
		NewErrorResult("evt-2", errors.New("calendar unavailable")),
	})

	var decoded BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 2, decoded.Total)
	assert.Equal(t, 1, decoded.Failed)
	assert.Equal(t, "evt-2", decoded.Results[1].ID)
	assert.Contains(t, out, "\n  ")
}

func TestProcessBatch_KeepsInputOrder(t *testing.T) {
	ids := []string{"evt-3", "evt-1", "evt-2"}
	delays := map[string]time.Duration{"evt-3": 20 * time.Millisecond, "evt-1": 0, "evt-2": 5 * time.Millisecond}

	results := ProcessBatch(context.Background(), ids, 3, func(_ context.Context, id string) (string, error) {
		time.Sleep(delays[id])
		if id == "evt-1" {
			return "", errors.New("event not found")
		}
		return "cancelled " + id, nil
	})

	require.Len(t, results, 3)
	for i, id := range ids {
		assert.Equal(t, id, results[i].ID)
	}
	assert.Equal(t, "cancelled evt-3", results[0].Result)
	assert.Equal(t, StatusError, results[1].Status)
	assert.Equal(t, StatusSuccess, results[2].Status)
}

func TestProcessBatch_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	ids := make([]string, 12)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}

	ProcessBatch(context.Background(), ids, 2, func(context.Context, string) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return "ok", nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestProcessBatch_DefaultConcurrency(t *testing.T) {
	results := ProcessBatch(context.Background(), []string{"evt-1"}, 0, func(context.Context, string) (string, error) {
		return "cancelled", nil
	})
	require.Len(t, results, 1)
	assert.Equal(t, StatusSuccess, results[0].Status)
}

func TestProcessBatch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := ProcessBatch(ctx, []string{"evt-1", "evt-2"}, 1, func(context.Context, string) (string, error) {
		calls.Add(1)
		return "cancelled", nil
	})

	assert.Zero(t, calls.Load())
	for _, r := range results {
		assert.Equal(t, StatusError, r.Status)
		assert.Equal(t, context.Canceled.Error(), r.Error)
	}
}
