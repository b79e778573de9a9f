package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/focusbot/internal/apperrors"
)

// GoogleOptions configures a GoogleCalendar.
type GoogleOptions struct {
	// CredentialsFile is a service account JSON key with access to CalendarID.
	CredentialsFile string

	// CalendarID defaults to "primary".
	CalendarID string

	// TimeZone is an optional IANA zone name stored on created events.
	// Instants are always sent with their offset, so it only affects display.
	TimeZone string

	// Location interprets all-day event dates.
	Location *time.Location
}

// GoogleCalendar wraps the Google Calendar service
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	timeZone   string
	loc        *time.Location
}

// NewGoogleCalendar creates a Google Calendar client authenticated with a service account key.
func NewGoogleCalendar(ctx context.Context, opts GoogleOptions) (*GoogleCalendar, error) {
	if opts.CredentialsFile == "" {
		return nil, fmt.Errorf("google credentials file is required")
	}
	data, err := os.ReadFile(opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	svc, err := gcal.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return NewGoogleCalendarWithService(svc, opts), nil
}

// NewGoogleCalendarWithService wraps an existing service. Tests point the
// service at an httptest server.
func NewGoogleCalendarWithService(svc *gcal.Service, opts GoogleOptions) *GoogleCalendar {
	if opts.CalendarID == "" {
		opts.CalendarID = "primary"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &GoogleCalendar{
		svc:        svc,
		calendarID: opts.CalendarID,
		timeZone:   opts.TimeZone,
		loc:        opts.Location,
	}
}

// ListBusy queries the freebusy endpoint for the configured calendar.
func (c *GoogleCalendar) ListBusy(ctx context.Context, r TimeRange) ([]TimeRange, error) {
	query := &gcal.FreeBusyRequest{
		TimeMin: r.Start.Format(time.RFC3339),
		TimeMax: r.End.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: c.calendarID}},
	}

	result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.Upstream("calendar.freebusy", fmt.Errorf("failed to query freebusy: %w", err))
	}

	cal, ok := result.Calendars[c.calendarID]
	if !ok {
		return nil, nil
	}
	if len(cal.Errors) > 0 {
		return nil, apperrors.Upstream("calendar.freebusy",
			fmt.Errorf("freebusy for %s: %s", c.calendarID, cal.Errors[0].Reason))
	}

	busy := make([]TimeRange, 0, len(cal.Busy))
	for _, b := range cal.Busy {
		start, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			return nil, apperrors.Upstream("calendar.freebusy", fmt.Errorf("bad busy start %q: %w", b.Start, err))
		}
		end, err := time.Parse(time.RFC3339, b.End)
		if err != nil {
			return nil, apperrors.Upstream("calendar.freebusy", fmt.Errorf("bad busy end %q: %w", b.End, err))
		}
		busy = append(busy, TimeRange{Start: start, End: end})
	}
	return busy, nil
}

// ListEvents lists single (expanded) events within a time range, ordered by start.
func (c *GoogleCalendar) ListEvents(ctx context.Context, r TimeRange) ([]Event, error) {
	call := c.svc.Events.List(c.calendarID).
		TimeMin(r.Start.Format(time.RFC3339)).
		TimeMax(r.End.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	var events []Event
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			events = append(events, c.toEvent(item))
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Upstream("calendar.list", fmt.Errorf("failed to list events: %w", err))
	}
	return events, nil
}

// CreateEvent creates a new calendar event. Google Calendar accepts
// overlapping events, so no conflict is ever reported here.
func (c *GoogleCalendar) CreateEvent(ctx context.Context, in EventInput) (*Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	event := &gcal.Event{
		Summary:     in.Title,
		Description: in.Description,
		Start: &gcal.EventDateTime{
			DateTime: in.Start.Format(time.RFC3339),
			TimeZone: c.timeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: in.End.Format(time.RFC3339),
			TimeZone: c.timeZone,
		},
	}

	created, err := c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.Upstream("calendar.create", fmt.Errorf("failed to create event: %w", err))
	}

	ev := c.toEvent(created)
	return &ev, nil
}

// DeleteEvent deletes a calendar event
func (c *GoogleCalendar) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("calendar.delete", "event id is required")
	}
	err := c.svc.Events.Delete(c.calendarID, id).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return apperrors.NotFound("calendar.delete", id)
		}
		return apperrors.Upstream("calendar.delete", fmt.Errorf("failed to delete event: %w", err))
	}
	return nil
}

// DetectsConflicts implements ConflictDetector.
func (c *GoogleCalendar) DetectsConflicts() bool { return false }

func (c *GoogleCalendar) toEvent(event *gcal.Event) Event {
	if event == nil {
		return Event{}
	}
	ev := Event{
		ID:          event.Id,
		Title:       event.Summary,
		Description: event.Description,
		HTMLLink:    event.HtmlLink,
	}
	ev.Start, ev.AllDay = c.parseDateTime(event.Start)
	ev.End, _ = c.parseDateTime(event.End)
	return ev
}

// parseDateTime reads either a timed instant or an all-day date.
func (c *GoogleCalendar) parseDateTime(dt *gcal.EventDateTime) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t, false
		}
	} else if dt.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02", dt.Date, c.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
