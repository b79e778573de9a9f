package calendar

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/teemow/focusbot/internal/apperrors"
)

// MemoryCalendar keeps events in memory. It rejects overlapping bookings the
// way a conflict-aware calendar backend would.
type MemoryCalendar struct {
	mu     sync.Mutex
	events map[string]Event
	fail   error
}

// NewMemoryCalendar returns a calendar seeded with events. Seeded events
// without an id get a generated one.
func NewMemoryCalendar(seed ...Event) *MemoryCalendar {
	c := &MemoryCalendar{events: make(map[string]Event)}
	for _, ev := range seed {
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		c.events[ev.ID] = ev
	}
	return c
}

// SetFailure makes every following call fail with err until it is reset with nil.
func (c *MemoryCalendar) SetFailure(err error) {
	c.mu.Lock()
	c.fail = err
	c.mu.Unlock()
}

// ListBusy returns the ranges of all timed events overlapping r.
func (c *MemoryCalendar) ListBusy(ctx context.Context, r TimeRange) ([]TimeRange, error) {
	events, err := c.ListEvents(ctx, r)
	if err != nil {
		return nil, err
	}
	busy := make([]TimeRange, 0, len(events))
	for _, ev := range events {
		if ev.AllDay {
			continue
		}
		busy = append(busy, ev.Range())
	}
	return busy, nil
}

// ListEvents returns the events overlapping r ordered by start.
func (c *MemoryCalendar) ListEvents(_ context.Context, r TimeRange) ([]Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return nil, apperrors.Upstream("calendar.list", c.fail)
	}

	var out []Event
	for _, ev := range c.events {
		if ev.Range().Overlaps(r) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

// CreateEvent stores a new event unless it overlaps an existing one.
func (c *MemoryCalendar) CreateEvent(_ context.Context, in EventInput) (*Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return nil, apperrors.Upstream("calendar.create", c.fail)
	}

	for _, ev := range c.events {
		if !ev.AllDay && ev.Range().Overlaps(in.Range()) {
			return nil, apperrors.Conflict("calendar.create", "overlaps %q (%s)", ev.Title, ev.ID)
		}
	}

	ev := Event{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Start:       in.Start,
		End:         in.End,
	}
	c.events[ev.ID] = ev
	return &ev, nil
}

// DeleteEvent removes an event by id.
func (c *MemoryCalendar) DeleteEvent(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return apperrors.Upstream("calendar.delete", c.fail)
	}
	if _, ok := c.events[id]; !ok {
		return apperrors.NotFound("calendar.delete", id)
	}
	delete(c.events, id)
	return nil
}

// DetectsConflicts implements ConflictDetector.
func (c *MemoryCalendar) DetectsConflicts() bool { return true }
