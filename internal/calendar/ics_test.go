package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/focusbot/internal/apperrors"
)

const testFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//focusbot//test//EN
BEGIN:VEVENT
UID:single@test
DTSTAMP:20240301T000000Z
DTSTART:20240315T020000Z
DTEND:20240315T030000Z
SUMMARY:Standup
END:VEVENT
BEGIN:VEVENT
UID:daily@test
DTSTAMP:20240301T000000Z
DTSTART:20240311T140000
DTEND:20240311T150000
RRULE:FREQ=DAILY;COUNT=10
EXDATE:20240314T140000
SUMMARY:Review
END:VEVENT
BEGIN:VEVENT
UID:daily@test
DTSTAMP:20240301T000000Z
RECURRENCE-ID:20240316T140000
DTSTART:20240316T160000
DTEND:20240316T170000
SUMMARY:Review (moved)
END:VEVENT
BEGIN:VEVENT
UID:holiday@test
DTSTAMP:20240301T000000Z
DTSTART;VALUE=DATE:20240315
SUMMARY:Holiday
END:VEVENT
BEGIN:VEVENT
UID:cancelled@test
DTSTAMP:20240301T000000Z
DTSTART:20240315T050000Z
DTEND:20240315T060000Z
STATUS:CANCELLED
SUMMARY:Dropped
END:VEVENT
END:VCALENDAR
`

func newFileICS(t *testing.T) *ICSCalendar {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/feeds/work.ics", []byte(testFeed), 0o600))

	cal, err := NewICSCalendar(ICSOptions{Source: "/feeds/work.ics", Location: tz, Fs: fs})
	require.NoError(t, err)
	return cal
}

func day(d int) TimeRange {
	start := time.Date(2024, 3, d, 0, 0, 0, 0, tz)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

func TestICSCalendar_ListEvents(t *testing.T) {
	cal := newFileICS(t)

	events, err := cal.ListEvents(context.Background(), day(15))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "Holiday", events[0].Title)
	assert.True(t, events[0].AllDay)

	assert.Equal(t, "Standup", events[1].Title)
	assert.True(t, events[1].Start.Equal(time.Date(2024, 3, 15, 10, 0, 0, 0, tz)))

	// Floating times are read in the configured zone.
	assert.Equal(t, "Review", events[2].Title)
	assert.True(t, events[2].Start.Equal(time.Date(2024, 3, 15, 14, 0, 0, 0, tz)))
	assert.Equal(t, time.Hour, events[2].End.Sub(events[2].Start))
	assert.Equal(t, "daily@test_20240315T060000Z", events[2].ID)
}

func TestICSCalendar_ExdateAndOverride(t *testing.T) {
	cal := newFileICS(t)
	ctx := context.Background()

	events, err := cal.ListEvents(ctx, day(14))
	require.NoError(t, err)
	assert.Empty(t, events, "EXDATE removes the 14th")

	events, err = cal.ListEvents(ctx, day(16))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Review (moved)", events[0].Title)
	assert.True(t, events[0].Start.Equal(time.Date(2024, 3, 16, 16, 0, 0, 0, tz)))
}

const instantFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//focusbot//test//EN
BEGIN:VEVENT
UID:deadline@test
DTSTAMP:20240301T000000Z
DTSTART:20240315T090000
SUMMARY:Deadline
END:VEVENT
BEGIN:VEVENT
UID:checkin@test
DTSTAMP:20240301T000000Z
DTSTART:20240311T080000
RRULE:FREQ=DAILY;COUNT=10
SUMMARY:Check-in
END:VEVENT
END:VCALENDAR
`

func TestICSCalendar_ZeroDurationEvents(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/feeds/instants.ics", []byte(instantFeed), 0o600))
	cal, err := NewICSCalendar(ICSOptions{Source: "/feeds/instants.ics", Location: tz, Fs: fs})
	require.NoError(t, err)

	events, err := cal.ListEvents(context.Background(), day(15))
	require.NoError(t, err)
	require.Len(t, events, 2, "single and recurring instants are listed alike")
	assert.Equal(t, "Check-in", events[0].Title)
	assert.True(t, events[0].Start.Equal(events[0].End))
	assert.True(t, events[0].Start.Equal(time.Date(2024, 3, 15, 8, 0, 0, 0, tz)))
	assert.Equal(t, "Deadline", events[1].Title)

	// An instant on the range end belongs to the next range.
	r := TimeRange{Start: time.Date(2024, 3, 15, 7, 0, 0, 0, tz), End: time.Date(2024, 3, 15, 8, 0, 0, 0, tz)}
	events, err = cal.ListEvents(context.Background(), r)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestICSCalendar_ListBusySkipsAllDay(t *testing.T) {
	cal := newFileICS(t)

	busy, err := cal.ListBusy(context.Background(), day(15))
	require.NoError(t, err)
	assert.Len(t, busy, 2)
}

func TestICSCalendar_HTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cal.ics" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(testFeed))
	}))
	defer srv.Close()

	cal, err := NewICSCalendar(ICSOptions{Source: srv.URL + "/cal.ics", Location: tz, HTTPClient: srv.Client()})
	require.NoError(t, err)

	events, err := cal.ListEvents(context.Background(), day(15))
	require.NoError(t, err)
	assert.Len(t, events, 3)

	missing, err := NewICSCalendar(ICSOptions{Source: srv.URL + "/missing.ics", Location: tz, HTTPClient: srv.Client()})
	require.NoError(t, err)
	_, err = missing.ListEvents(context.Background(), day(15))
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}

func TestICSCalendar_ReadOnly(t *testing.T) {
	cal := newFileICS(t)
	ctx := context.Background()

	_, err := cal.CreateEvent(ctx, EventInput{Title: "Focus", Start: at(10, 0), End: at(11, 0)})
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, cal.DeleteEvent(ctx, "single@test"), ErrReadOnly)
}

func TestNewICSCalendar_RequiresSource(t *testing.T) {
	_, err := NewICSCalendar(ICSOptions{})
	assert.Error(t, err)
}
