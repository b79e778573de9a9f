package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teemow/focusbot/internal/apperrors"
)

var tz = time.FixedZone("UTC+08:00", 8*3600)

func at(hour, min int) time.Time {
	return time.Date(2024, 3, 15, hour, min, 0, 0, tz)
}

func TestTimeRange_Overlaps(t *testing.T) {
	slot := TimeRange{Start: at(10, 0), End: at(11, 0)}

	tests := []struct {
		name string
		busy TimeRange
		want bool
	}{
		{"identical", TimeRange{at(10, 0), at(11, 0)}, true},
		{"inside", TimeRange{at(10, 15), at(10, 45)}, true},
		{"covering", TimeRange{at(9, 0), at(12, 0)}, true},
		{"tail overlap", TimeRange{at(10, 59), at(11, 30)}, true},
		{"abutting before", TimeRange{at(9, 0), at(10, 0)}, false},
		{"abutting after", TimeRange{at(11, 0), at(12, 0)}, false},
		{"disjoint", TimeRange{at(13, 0), at(14, 0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slot.Overlaps(tt.busy))
			assert.Equal(t, tt.want, tt.busy.Overlaps(slot), "overlap must be symmetric")
		})
	}
}

func TestTimeRange_Valid(t *testing.T) {
	assert.True(t, TimeRange{at(10, 0), at(11, 0)}.Valid())
	assert.False(t, TimeRange{at(11, 0), at(11, 0)}.Valid())
	assert.False(t, TimeRange{at(11, 0), at(10, 0)}.Valid())
	assert.Equal(t, time.Hour, TimeRange{at(10, 0), at(11, 0)}.Duration())
}

func TestEventInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   EventInput
		wantErr bool
	}{
		{"valid", EventInput{Title: "Focus", Start: at(10, 0), End: at(11, 0)}, false},
		{"missing title", EventInput{Title: "  ", Start: at(10, 0), End: at(11, 0)}, true},
		{"missing end", EventInput{Title: "Focus", Start: at(10, 0)}, true},
		{"inverted", EventInput{Title: "Focus", Start: at(11, 0), End: at(10, 0)}, true},
		{"empty", EventInput{Title: "Focus", Start: at(10, 0), End: at(10, 0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFirstOverlap(t *testing.T) {
	busy := []TimeRange{{at(9, 0), at(10, 0)}, {at(12, 0), at(13, 0)}}

	_, found := FirstOverlap(busy, TimeRange{at(10, 0), at(11, 0)})
	assert.False(t, found)

	hit, found := FirstOverlap(busy, TimeRange{at(11, 30), at(12, 30)})
	assert.True(t, found)
	assert.Equal(t, at(12, 0), hit.Start)
}

func TestDetectsConflicts(t *testing.T) {
	assert.True(t, DetectsConflicts(NewMemoryCalendar()))
	assert.False(t, DetectsConflicts(NewGoogleCalendarWithService(nil, GoogleOptions{})))
	assert.True(t, DetectsConflicts(NewInstrumented(NewMemoryCalendar(), "memory", nil)))

	ics, err := NewICSCalendar(ICSOptions{Source: "feed.ics"})
	assert.NoError(t, err)
	assert.False(t, DetectsConflicts(ics))
}

func TestInstrumented_ForwardsResults(t *testing.T) {
	ctx := context.Background()
	cal := NewInstrumented(NewMemoryCalendar(), "memory", nil)

	ev, err := cal.CreateEvent(ctx, EventInput{Title: "Focus", Start: at(10, 0), End: at(11, 0)})
	assert.NoError(t, err)

	busy, err := cal.ListBusy(ctx, TimeRange{at(0, 0), at(23, 0)})
	assert.NoError(t, err)
	assert.Len(t, busy, 1)

	assert.NoError(t, cal.DeleteEvent(ctx, ev.ID))
	assert.ErrorIs(t, cal.DeleteEvent(ctx, ev.ID), apperrors.ErrNotFound)
}
