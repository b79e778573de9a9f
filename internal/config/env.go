package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "FOCUSBOT_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides c with the FOCUSBOT_* variables that are set.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return v, ok && v != ""
	}

	strs := map[string]*string{
		"LISTEN":             &c.Listen,
		"SERVER_URL":         &c.ServerURL,
		"TIMEZONE":           &c.Timezone,
		"CALENDAR_BACKEND":   &c.Calendar.Backend,
		"GOOGLE_CREDENTIALS": &c.Calendar.CredentialsFile,
		"GOOGLE_CALENDAR_ID": &c.Calendar.CalendarID,
		"ICS_SOURCE":         &c.Calendar.ICSSource,
		"GOOGLE_TIME_ZONE":   &c.Calendar.TimeZone,
		"STATE_BACKEND":      &c.State.Backend,
		"STATE_PATH":         &c.State.Path,
		"VALKEY_ADDRESS":     &c.State.Valkey.Address,
		"VALKEY_PASSWORD":    &c.State.Valkey.Password,
		"VALKEY_KEY":         &c.State.Valkey.Key,
		"SIGNAL_USER":        &c.Signal.User,
		"SIGNAL_CHAT_ID":     &c.Signal.ChatID,
		"METRICS_ADDR":       &c.Metrics.Addr,
	}
	for name, dst := range strs {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	var errs []error
	ints := map[string]*int{
		"WORK_START":   &c.WorkHours.Start,
		"WORK_END":     &c.WorkHours.End,
		"SLOT_MINUTES": &c.WorkHours.SlotMinutes,
		"VALKEY_DB":    &c.State.Valkey.DB,
	}
	for name, dst := range ints {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				continue
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"NOTIFY_LOOK_AHEAD":     &c.Notifier.LookAhead,
		"NOTIFY_GRACE":          &c.Notifier.Grace,
		"NOTIFY_CHECK_INTERVAL": &c.Notifier.CheckInterval,
		"CACHE_TTL":             &c.Notifier.CacheTTL,
	}
	for name, dst := range durations {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				continue
			}
			*dst = d
		}
	}

	if v, ok := get("METRICS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMETRICS_ENABLED: %w", EnvPrefix, err))
		} else {
			c.Metrics.Enabled = b
		}
	}
	return errors.Join(errs...)
}
