package calendar

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/teemow/focusbot/internal/apperrors"
)

// ErrReadOnly is returned by calendars that cannot be written to (ICS feeds).
var ErrReadOnly = errors.New("calendar is read-only")

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether Start < End.
func (r TimeRange) Valid() bool {
	return r.Start.Before(r.End)
}

// Overlaps reports whether r and o share any instant. Abutting ranges
// (r.End == o.Start) do not overlap.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Duration returns End - Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Event is a calendar entry. Booked focus sessions and the tasks shown by the
// timer client are both events.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"allDay,omitempty"`
	HTMLLink    string    `json:"htmlLink,omitempty"`
}

// Range returns the event's time range.
func (e Event) Range() TimeRange {
	return TimeRange{Start: e.Start, End: e.End}
}

// EventInput represents the input for creating a calendar event
type EventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// Validate checks the required fields and the time order.
func (in EventInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperrors.InvalidInput("calendar.create", "title is required")
	}
	if in.Start.IsZero() || in.End.IsZero() {
		return apperrors.InvalidInput("calendar.create", "start and end are required")
	}
	if !in.Start.Before(in.End) {
		return apperrors.InvalidInput("calendar.create", "start %s must be before end %s",
			in.Start.Format(time.RFC3339), in.End.Format(time.RFC3339))
	}
	return nil
}

// Range returns the input's time range.
func (in EventInput) Range() TimeRange {
	return TimeRange{Start: in.Start, End: in.End}
}

// Calendar is the external calendar collaborator.
//
// Implementations return errors of kind apperrors.ErrUpstreamUnavailable for
// transport failures, apperrors.ErrNotFound for unknown ids and
// apperrors.ErrConflict when they reject an overlapping booking themselves.
type Calendar interface {
	ListBusy(ctx context.Context, r TimeRange) ([]TimeRange, error)
	ListEvents(ctx context.Context, r TimeRange) ([]Event, error)
	CreateEvent(ctx context.Context, in EventInput) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// ConflictDetector is implemented by calendars that reject overlapping
// bookings on their own. Callers precheck overlaps for every other calendar.
type ConflictDetector interface {
	DetectsConflicts() bool
}

// DetectsConflicts reports whether cal rejects overlapping bookings itself.
func DetectsConflicts(cal Calendar) bool {
	d, ok := cal.(ConflictDetector)
	return ok && d.DetectsConflicts()
}

// FirstOverlap returns the first range in busy that overlaps r.
func FirstOverlap(busy []TimeRange, r TimeRange) (TimeRange, bool) {
	for _, b := range busy {
		if b.Overlaps(r) {
			return b, true
		}
	}
	return TimeRange{}, false
}
