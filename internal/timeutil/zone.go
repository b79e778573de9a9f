// Package timeutil holds the fixed-offset day arithmetic and formatting used by
// the scheduler. Every computation takes an explicit *time.Location; the
// process-local zone is never consulted.
package timeutil

import (
	"fmt"
	"time"

	"github.com/teemow/focusbot/internal/apperrors"
)

// DefaultOffset is the deployment offset used when none is configured (UTC+08:00).
const DefaultOffset = 8 * time.Hour

// Layouts used on the wire and in messages.
const (
	DateLayout      = "2006-01-02"
	ClockLayout     = "15:04"
	DisplayDate     = "2006/01/02"
	DisplayDateTime = "2006/01/02 15:04"
)

// FixedZone returns a location with the given offset from UTC, named like "UTC+08:00".
func FixedZone(offset time.Duration) *time.Location {
	sign := '+'
	o := offset
	if o < 0 {
		sign = '-'
		o = -o
	}
	h := int(o / time.Hour)
	m := int((o % time.Hour) / time.Minute)
	return time.FixedZone(fmt.Sprintf("UTC%c%02d:%02d", sign, h, m), int(offset/time.Second))
}

// ParseOffset parses "+08:00", "-05:30" or "8h" style offsets.
func ParseOffset(s string) (time.Duration, error) {
	if s == "" {
		return DefaultOffset, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	t, err := time.Parse("-07:00", s)
	if err != nil {
		return 0, apperrors.InvalidInput("timeutil.offset", "unrecognized offset %q", s)
	}
	_, secs := t.Zone()
	return time.Duration(secs) * time.Second, nil
}

// ParseDate parses a YYYY-MM-DD date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("timeutil.date", "date %q must be YYYY-MM-DD", s)
	}
	return d, nil
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayBounds returns [midnight, next midnight) of t's day in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, loc)
	return start, start.AddDate(0, 0, 1)
}

// At returns the instant hour:minute on day's calendar date in loc.
func At(day time.Time, hour, minute int, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc)
}

// DateString formats t's day in loc as YYYY-MM-DD.
func DateString(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// FormatTime formats t as HH:MM in loc.
func FormatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(ClockLayout)
}

// FormatDate formats t as YYYY/MM/DD in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DisplayDate)
}

// FormatDateTime formats t as YYYY/MM/DD HH:MM in loc.
func FormatDateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DisplayDateTime)
}

// FormatCountup renders elapsed seconds as MM:SS, or H:MM:SS from one hour on.
func FormatCountup(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
