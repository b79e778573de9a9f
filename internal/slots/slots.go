// Package slots finds bookable focus-session slots on a fixed daily grid.
package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/teemow/focusbot/internal/apperrors"
	"github.com/teemow/focusbot/internal/calendar"
	"github.com/teemow/focusbot/internal/timeutil"
)

// Default work window: 09:00 to 18:00, one-hour slots.
const (
	DefaultStartHour    = 9
	DefaultEndHour      = 18
	DefaultSlotDuration = time.Hour
)

// WorkHours describes the daily grid slots are cut from.
type WorkHours struct {
	StartHour    int
	EndHour      int
	SlotDuration time.Duration
	Location     *time.Location
}

// DefaultWorkHours returns 09:00-18:00 with one-hour slots in loc.
func DefaultWorkHours(loc *time.Location) WorkHours {
	return WorkHours{
		StartHour:    DefaultStartHour,
		EndHour:      DefaultEndHour,
		SlotDuration: DefaultSlotDuration,
		Location:     loc,
	}
}

// Validate checks the grid parameters.
func (h WorkHours) Validate() error {
	if h.Location == nil {
		return fmt.Errorf("work hours need a location")
	}
	if h.StartHour < 0 || h.EndHour > 24 || h.StartHour >= h.EndHour {
		return fmt.Errorf("invalid work hours %d-%d", h.StartHour, h.EndHour)
	}
	if h.SlotDuration <= 0 {
		return fmt.Errorf("slot duration must be positive, got %s", h.SlotDuration)
	}
	return nil
}

// Window returns the work window on day's calendar date.
func (h WorkHours) Window(day time.Time) calendar.TimeRange {
	return calendar.TimeRange{
		Start: timeutil.At(day, h.StartHour, 0, h.Location),
		End:   timeutil.At(day, h.EndHour, 0, h.Location),
	}
}

// FreeSlot is a bookable grid cell.
type FreeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// StartTimestamp is Start in epoch milliseconds, the booking handle clients send back.
	StartTimestamp int64 `json:"startTimestamp"`
}

// Range returns the slot as a time range.
func (s FreeSlot) Range() calendar.TimeRange {
	return calendar.TimeRange{Start: s.Start, End: s.End}
}

// FindFreeSlots walks the grid of day's work window and returns every slot
// that has not ended by now and does not strictly overlap a busy range.
// A trailing cell shorter than SlotDuration is not offered, and an invalid
// grid yields no slots.
func FindFreeSlots(busy []calendar.TimeRange, day time.Time, hours WorkHours, now time.Time) []FreeSlot {
	out := []FreeSlot{}
	if hours.Validate() != nil {
		return out
	}
	window := hours.Window(day)

	for cursor := window.Start; !cursor.Add(hours.SlotDuration).After(window.End); cursor = cursor.Add(hours.SlotDuration) {
		slot := calendar.TimeRange{Start: cursor, End: cursor.Add(hours.SlotDuration)}
		if !slot.End.After(now) {
			continue
		}
		if _, hit := calendar.FirstOverlap(busy, slot); hit {
			continue
		}
		out = append(out, FreeSlot{Start: slot.Start, End: slot.End, StartTimestamp: slot.Start.UnixMilli()})
	}
	return out
}

// Result is the response of a slot query.
type Result struct {
	Date  string     `json:"date"`
	Slots []FreeSlot `json:"slots"`
	Count int        `json:"count"`
}

// Finder answers slot queries against a calendar.
type Finder struct {
	cal   calendar.Calendar
	hours WorkHours
	clock timeutil.Clock
}

// NewFinder creates a Finder for a valid grid.
func NewFinder(cal calendar.Calendar, hours WorkHours, clock timeutil.Clock) (*Finder, error) {
	if err := hours.Validate(); err != nil {
		return nil, fmt.Errorf("invalid slot grid: %w", err)
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Finder{cal: cal, hours: hours, clock: clock}, nil
}

// Hours returns the configured grid.
func (f *Finder) Hours() WorkHours {
	return f.hours
}

// Find returns the free slots on date (YYYY-MM-DD, today when empty).
func (f *Finder) Find(ctx context.Context, date string) (Result, error) {
	now := f.clock.Now()

	day := timeutil.StartOfDay(now, f.hours.Location)
	if date != "" {
		d, err := timeutil.ParseDate(date, f.hours.Location)
		if err != nil {
			return Result{}, err
		}
		day = d
	}

	window := f.hours.Window(day)
	busy, err := f.cal.ListBusy(ctx, window)
	if err != nil {
		return Result{}, apperrors.Upstream("slots.find", err)
	}

	free := FindFreeSlots(busy, day, f.hours, now)
	return Result{
		Date:  timeutil.DateString(day, f.hours.Location),
		Slots: free,
		Count: len(free),
	}, nil
}
