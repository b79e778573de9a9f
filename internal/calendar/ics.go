package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/spf13/afero"
	"github.com/teambition/rrule-go"

	"github.com/teemow/focusbot/internal/apperrors"
)

const maxOccurrencesPerEvent = 1000

// ICSOptions configures an ICSCalendar.
type ICSOptions struct {
	// Source is an http(s) URL or a file path.
	Source string

	// Location interprets floating times and all-day dates.
	Location *time.Location

	// HTTPClient fetches URL sources. Defaults to a client with a 15s timeout.
	HTTPClient *http.Client

	// Fs reads file sources. Defaults to the OS filesystem.
	Fs afero.Fs
}

// ICSCalendar is a read-only calendar backed by an iCalendar feed.
// The feed is fetched on every call; EventCache sits in front of it.
type ICSCalendar struct {
	source string
	loc    *time.Location
	client *http.Client
	fs     afero.Fs
}

// NewICSCalendar returns a calendar reading opts.Source.
func NewICSCalendar(opts ICSOptions) (*ICSCalendar, error) {
	if opts.Source == "" {
		return nil, fmt.Errorf("ics source is required")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	return &ICSCalendar{
		source: opts.Source,
		loc:    opts.Location,
		client: opts.HTTPClient,
		fs:     opts.Fs,
	}, nil
}

// ListBusy returns the ranges of timed occurrences overlapping r.
func (c *ICSCalendar) ListBusy(ctx context.Context, r TimeRange) ([]TimeRange, error) {
	events, err := c.ListEvents(ctx, r)
	if err != nil {
		return nil, err
	}
	busy := make([]TimeRange, 0, len(events))
	for _, ev := range events {
		if ev.AllDay || !ev.Range().Valid() {
			continue
		}
		busy = append(busy, ev.Range())
	}
	return busy, nil
}

// ListEvents expands the feed into occurrences overlapping r.
func (c *ICSCalendar) ListEvents(ctx context.Context, r TimeRange) ([]Event, error) {
	body, err := c.fetch(ctx)
	if err != nil {
		return nil, apperrors.Upstream("calendar.ics.fetch", err)
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Upstream("calendar.ics.parse", fmt.Errorf("failed to parse feed: %w", err))
	}

	var base []icsEvent
	overrides := make(map[string][]icsEvent)
	for _, ve := range cal.Events() {
		ev, ok := c.parseVEvent(ve)
		if !ok {
			continue
		}
		if ev.recurrenceID != nil {
			overrides[ev.ID] = append(overrides[ev.ID], ev)
			continue
		}
		base = append(base, ev)
	}

	var out []Event
	for _, ev := range base {
		out = append(out, c.expand(ev, overrides[ev.ID], r)...)
	}
	for _, list := range overrides {
		for _, o := range list {
			if within(o.Event, r) {
				o.Event.ID = occurrenceID(o.ID, *o.recurrenceID)
				out = append(out, o.Event)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// CreateEvent is not supported by ICS feeds.
func (c *ICSCalendar) CreateEvent(context.Context, EventInput) (*Event, error) {
	return nil, apperrors.New(apperrors.ErrUpstreamUnavailable, "calendar.create", ErrReadOnly)
}

// DeleteEvent is not supported by ICS feeds.
func (c *ICSCalendar) DeleteEvent(context.Context, string) error {
	return apperrors.New(apperrors.ErrUpstreamUnavailable, "calendar.delete", ErrReadOnly)
}

func (c *ICSCalendar) fetch(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(c.source, "http://") && !strings.HasPrefix(c.source, "https://") {
		return afero.ReadFile(c.fs, c.source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ics feed returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

type icsEvent struct {
	Event
	rrule        string
	exdates      []time.Time
	recurrenceID *time.Time
}

func (c *ICSCalendar) parseVEvent(ve *ical.VEvent) (icsEvent, bool) {
	var out icsEvent
	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, false
	}
	out.ID = uid.Value
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
		return out, false
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, false
	}
	start, allDay, err := c.parseValue(dtStart.Value, dtStart.ICalParameters)
	if err != nil {
		return out, false
	}
	out.Start, out.AllDay = start, allDay

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		if end, _, err := c.parseValue(dtEnd.Value, dtEnd.ICalParameters); err == nil {
			out.End = end
		}
	}
	if out.End.IsZero() {
		if allDay {
			out.End = out.Start.AddDate(0, 0, 1)
		} else {
			out.End = out.Start
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.rrule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, v := range strings.Split(p.Value, ",") {
			if t, _, err := c.parseValue(strings.TrimSpace(v), p.ICalParameters); err == nil {
				out.exdates = append(out.exdates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		if t, _, err := c.parseValue(p.Value, p.ICalParameters); err == nil {
			out.recurrenceID = &t
		}
	}
	return out, true
}

// parseValue reads DATE and DATE-TIME values. Floating times and dates are
// interpreted in the calendar's location rather than the process zone.
func (c *ICSCalendar) parseValue(v string, params map[string][]string) (time.Time, bool, error) {
	loc := c.loc
	if tz, ok := params["TZID"]; ok && len(tz) == 1 {
		if l, err := time.LoadLocation(tz[0]); err == nil {
			loc = l
		}
	}
	switch {
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse("20060102T150405Z", v)
		return t, false, err
	case strings.Contains(v, "T"):
		t, err := time.ParseInLocation("20060102T150405", v, loc)
		return t, false, err
	default:
		t, err := time.ParseInLocation("20060102", v, c.loc)
		return t, true, err
	}
}

func (c *ICSCalendar) expand(ev icsEvent, overrides []icsEvent, r TimeRange) []Event {
	if ev.rrule == "" {
		if within(ev.Event, r) {
			return []Event{ev.Event}
		}
		return nil
	}

	rule, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		return nil
	}
	rule.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range ev.exdates {
		set.ExDate(ex.In(ev.Start.Location()))
	}
	for _, o := range overrides {
		set.ExDate(o.recurrenceID.In(ev.Start.Location()))
	}

	d := ev.End.Sub(ev.Start)
	// Occurrences starting up to one duration before r.Start can still overlap it.
	starts := set.Between(r.Start.Add(-d).In(ev.Start.Location()), r.End.In(ev.Start.Location()), true)
	if len(starts) > maxOccurrencesPerEvent {
		starts = starts[:maxOccurrencesPerEvent]
	}

	var out []Event
	for _, s := range starts {
		occ := ev.Event
		occ.ID = occurrenceID(ev.ID, s)
		occ.Start = s
		occ.End = s.Add(d)
		if within(occ, r) {
			out = append(out, occ)
		}
	}
	return out
}

// within reports whether ev falls in r. An event without duration counts
// when its instant lies in [r.Start, r.End).
func within(ev Event, r TimeRange) bool {
	if ev.Start.Equal(ev.End) {
		return !ev.Start.Before(r.Start) && ev.Start.Before(r.End)
	}
	return ev.Range().Overlaps(r)
}

func occurrenceID(uid string, start time.Time) string {
	return uid + "_" + start.UTC().Format("20060102T150405Z")
}
