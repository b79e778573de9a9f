package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "/home/user/.config/focusbot/config.yaml"

	cfg, err := Load(fsys, path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "+08:00", cfg.Timezone)
	assert.Equal(t, CalendarMemory, cfg.Calendar.Backend)
	assert.True(t, cfg.Metrics.Enabled)

	info, err := fsys.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())

	again, err := Load(fsys, path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/c.yaml", []byte(`
timezone: "-05:00"
work_hours:
  start: 8
  end: 12
  slot_minutes: 30
state:
  backend: valkey
  valkey:
    address: localhost:6379
notifier:
  look_ahead: 2m
metrics:
  enabled: false
`), 0o600))

	cfg, err := Load(fsys, "/c.yaml")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2*time.Minute, cfg.Notifier.LookAhead)
	assert.Equal(t, 30*time.Second, cfg.Notifier.Grace, "unset durations fall back")
	assert.Equal(t, "focusbot:timer-state", cfg.State.Valkey.Key)
	assert.False(t, cfg.Metrics.Enabled)

	hours, err := cfg.Hours()
	require.NoError(t, err)
	assert.Equal(t, 8, hours.StartHour)
	assert.Equal(t, 30*time.Minute, hours.SlotDuration)
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, hours.Location).Zone()
	assert.Equal(t, -5*3600, offset)
}

func TestLoad_InvalidYAML(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/c.yaml", []byte("listen: [oops"), 0o600))
	_, err := Load(fsys, "/c.yaml")
	assert.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "negative offset", mutate: func(c *Config) { c.Timezone = "-05:30" }},
		{name: "process local zone", mutate: func(c *Config) { c.Timezone = "Local" }, wantErr: "timezone"},
		{name: "iana zone", mutate: func(c *Config) { c.Timezone = "America/New_York" }, wantErr: "timezone"},
		{name: "utc name", mutate: func(c *Config) { c.Timezone = "UTC" }, wantErr: "timezone"},
		{name: "offset out of range", mutate: func(c *Config) { c.Timezone = "+15:00" }, wantErr: "out of range"},
		{name: "google display zone", mutate: func(c *Config) { c.Calendar.TimeZone = "Asia/Singapore" }},
		{name: "bad google display zone", mutate: func(c *Config) { c.Calendar.TimeZone = "Mars/Olympus" }, wantErr: "calendar.time_zone"},
		{name: "inverted hours", mutate: func(c *Config) { c.WorkHours.Start, c.WorkHours.End = 18, 9 }, wantErr: "work hours"},
		{name: "google without credentials", mutate: func(c *Config) { c.Calendar.Backend = CalendarGoogle }, wantErr: "credentials_file"},
		{name: "ics without source", mutate: func(c *Config) { c.Calendar.Backend = CalendarICS }, wantErr: "ics_source"},
		{name: "unknown calendar", mutate: func(c *Config) { c.Calendar.Backend = "outlook" }, wantErr: "calendar backend"},
		{name: "valkey without address", mutate: func(c *Config) { c.State.Backend = StateValkey }, wantErr: "valkey.address"},
		{name: "unknown state", mutate: func(c *Config) { c.State.Backend = "s3" }, wantErr: "state backend"},
		{name: "fast check", mutate: func(c *Config) { c.Notifier.CheckInterval = time.Millisecond }, wantErr: "check_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocation_FixedOffsetOnly(t *testing.T) {
	c := Default()
	c.Timezone = "-04:00"
	loc, err := c.Location()
	require.NoError(t, err)
	assert.NotEqual(t, time.Local, loc)

	winter := time.Date(2024, 1, 15, 12, 0, 0, 0, loc)
	summer := time.Date(2024, 7, 15, 12, 0, 0, 0, loc)
	_, winterOffset := winter.Zone()
	_, summerOffset := summer.Zone()
	assert.Equal(t, -4*3600, winterOffset)
	assert.Equal(t, winterOffset, summerOffset)

	for _, tz := range []string{"Local", "America/New_York", "Europe/Berlin"} {
		c.Timezone = tz
		_, err := c.Location()
		assert.Error(t, err, tz)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"FOCUSBOT_LISTEN":            ":9999",
		"FOCUSBOT_CALENDAR_BACKEND":  "ics",
		"FOCUSBOT_ICS_SOURCE":        "https://example.com/cal.ics",
		"FOCUSBOT_SLOT_MINUTES":      "45",
		"FOCUSBOT_NOTIFY_LOOK_AHEAD": "3m",
		"FOCUSBOT_METRICS_ENABLED":   "false",
		"FOCUSBOT_SIGNAL_USER":       "",
		"FOCUSBOT_GOOGLE_TIME_ZONE":  "Asia/Singapore",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	c := Default()
	c.Signal.User = "+4900"
	require.NoError(t, c.ApplyEnv(lookup))

	assert.Equal(t, ":9999", c.Listen)
	assert.Equal(t, CalendarICS, c.Calendar.Backend)
	assert.Equal(t, 45, c.WorkHours.SlotMinutes)
	assert.Equal(t, "Asia/Singapore", c.Calendar.TimeZone)
	assert.Equal(t, 3*time.Minute, c.Notifier.LookAhead)
	assert.False(t, c.Metrics.Enabled)
	assert.Equal(t, "+4900", c.Signal.User, "empty variables are ignored")
	assert.NoError(t, c.Validate())
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	env := map[string]string{
		"FOCUSBOT_WORK_START": "nine",
		"FOCUSBOT_CACHE_TTL":  "soon",
	}
	c := Default()
	err := c.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOCUSBOT_WORK_START")
	assert.Contains(t, err.Error(), "FOCUSBOT_CACHE_TTL")
	assert.Equal(t, 9, c.WorkHours.Start)
}
