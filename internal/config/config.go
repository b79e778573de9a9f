// Package config holds the focusbot configuration model.
//
// Values are layered: built-in defaults, then the YAML file, then FOCUSBOT_*
// environment variables, then command-line flags (applied by cmd). The first
// run writes the defaults to the config path with 0600 permissions.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/teemow/focusbot/internal/eventcache"
	"github.com/teemow/focusbot/internal/notifier"
	"github.com/teemow/focusbot/internal/slots"
	"github.com/teemow/focusbot/internal/timerstate"
	"github.com/teemow/focusbot/internal/timeutil"
)

// Calendar backends.
const (
	CalendarGoogle = "google"
	CalendarICS    = "ics"
	CalendarMemory = "memory"
)

// State backends.
const (
	StateFile   = "file"
	StateValkey = "valkey"
	StateMemory = "memory"
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP API listen address.
	Listen string `yaml:"listen"`

	// ServerURL is where `focusbot client` reaches the API.
	ServerURL string `yaml:"server_url"`

	// Timezone is the fixed UTC offset ("+08:00") every day boundary is
	// computed in. Zone names are rejected: they follow daylight saving.
	Timezone string `yaml:"timezone"`

	WorkHours WorkHoursConfig `yaml:"work_hours"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	State     StateConfig     `yaml:"state"`
	Signal    SignalConfig    `yaml:"signal"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// WorkHoursConfig is the daily slot grid.
type WorkHoursConfig struct {
	Start       int `yaml:"start"`
	End         int `yaml:"end"`
	SlotMinutes int `yaml:"slot_minutes"`
}

// CalendarConfig selects and configures the calendar collaborator.
type CalendarConfig struct {
	Backend         string `yaml:"backend"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
	CalendarID      string `yaml:"calendar_id,omitempty"`
	// ICSSource is a feed URL or file path for the ics backend.
	ICSSource string `yaml:"ics_source,omitempty"`
	// TimeZone is an IANA name stored on events the google backend creates.
	// It only affects how Google displays them.
	TimeZone string `yaml:"time_zone,omitempty"`
}

// StateConfig selects the timer state backend.
type StateConfig struct {
	Backend string       `yaml:"backend"`
	Path    string       `yaml:"path,omitempty"`
	Valkey  ValkeyConfig `yaml:"valkey,omitempty"`
}

// ValkeyConfig configures the valkey state backend.
type ValkeyConfig struct {
	Address  string `yaml:"address,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Key      string `yaml:"key,omitempty"`
}

// SignalConfig configures reminder delivery through signal-cli.
// Without a User reminders are only logged.
type SignalConfig struct {
	User string `yaml:"user,omitempty"`
	// ChatID is a phone number ("+...") or a group name.
	ChatID string `yaml:"chat_id,omitempty"`
}

// NotifierConfig tunes the reminder scheduler and its event cache.
type NotifierConfig struct {
	LookAhead     time.Duration `yaml:"look_ahead"`
	Grace         time.Duration `yaml:"grace"`
	CheckInterval time.Duration `yaml:"check_interval"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

// MetricsConfig controls the dedicated metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{Metrics: MetricsConfig{Enabled: true}}
	c.Normalize()
	return c
}

// DefaultPath is $XDG_CONFIG_HOME/focusbot/config.yaml or its platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "focusbot.yaml"
	}
	return filepath.Join(dir, "focusbot", "config.yaml")
}

// DefaultStatePath is the file backend location next to the config.
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "timer-state.json"
	}
	return filepath.Join(dir, "focusbot", "timer-state.json")
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.ServerURL == "" {
		c.ServerURL = "http://localhost:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "+08:00"
	}
	if c.WorkHours.Start == 0 && c.WorkHours.End == 0 {
		c.WorkHours.Start = slots.DefaultStartHour
		c.WorkHours.End = slots.DefaultEndHour
	}
	if c.WorkHours.SlotMinutes == 0 {
		c.WorkHours.SlotMinutes = int(slots.DefaultSlotDuration / time.Minute)
	}
	if c.Calendar.Backend == "" {
		c.Calendar.Backend = CalendarMemory
	}
	c.Calendar.Backend = strings.ToLower(c.Calendar.Backend)
	if c.Calendar.Backend == CalendarGoogle && c.Calendar.CalendarID == "" {
		c.Calendar.CalendarID = "primary"
	}
	if c.State.Backend == "" {
		c.State.Backend = StateFile
	}
	c.State.Backend = strings.ToLower(c.State.Backend)
	if c.State.Backend == StateFile && c.State.Path == "" {
		c.State.Path = DefaultStatePath()
	}
	if c.State.Backend == StateValkey && c.State.Valkey.Key == "" {
		c.State.Valkey.Key = timerstate.DefaultValkeyKey
	}
	if c.Notifier.LookAhead == 0 {
		c.Notifier.LookAhead = notifier.DefaultLookAhead
	}
	if c.Notifier.Grace == 0 {
		c.Notifier.Grace = notifier.DefaultGrace
	}
	if c.Notifier.CheckInterval == 0 {
		c.Notifier.CheckInterval = notifier.DefaultCheckInterval
	}
	if c.Notifier.CacheTTL == 0 {
		c.Notifier.CacheTTL = eventcache.DefaultTTL
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
}

// Validate checks the configuration for values no component can run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := c.workHours(time.UTC).Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Calendar.TimeZone != "" {
		if _, err := time.LoadLocation(c.Calendar.TimeZone); err != nil {
			errs = append(errs, fmt.Errorf("invalid calendar.time_zone %q: %w", c.Calendar.TimeZone, err))
		}
	}

	switch c.Calendar.Backend {
	case CalendarMemory:
	case CalendarGoogle:
		if c.Calendar.CredentialsFile == "" {
			errs = append(errs, errors.New("calendar.credentials_file is required for the google backend"))
		}
	case CalendarICS:
		if c.Calendar.ICSSource == "" {
			errs = append(errs, errors.New("calendar.ics_source is required for the ics backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid calendar backend %q, must be one of: google, ics, memory", c.Calendar.Backend))
	}

	switch c.State.Backend {
	case StateMemory:
	case StateFile:
		if c.State.Path == "" {
			errs = append(errs, errors.New("state.path is required for the file backend"))
		}
	case StateValkey:
		if c.State.Valkey.Address == "" {
			errs = append(errs, errors.New("state.valkey.address is required for the valkey backend"))
		}
		if c.State.Valkey.DB < 0 {
			errs = append(errs, fmt.Errorf("state.valkey.db must not be negative, got %d", c.State.Valkey.DB))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid state backend %q, must be one of: file, valkey, memory", c.State.Backend))
	}

	if c.Notifier.LookAhead < 0 || c.Notifier.Grace < 0 {
		errs = append(errs, errors.New("notifier look_ahead and grace must not be negative"))
	}
	if c.Notifier.CheckInterval < time.Second {
		errs = append(errs, fmt.Errorf("notifier.check_interval must be at least 1s, got %s", c.Notifier.CheckInterval))
	}
	if c.Notifier.CacheTTL < 0 {
		errs = append(errs, errors.New("notifier.cache_ttl must not be negative"))
	}
	return errors.Join(errs...)
}

// maxOffset bounds Timezone to the offsets in use worldwide.
const maxOffset = 14 * time.Hour

// Location resolves Timezone to a fixed zone.
func (c *Config) Location() (*time.Location, error) {
	offset, err := timeutil.ParseOffset(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q, must be a UTC offset such as +08:00: %w", c.Timezone, err)
	}
	if offset < -maxOffset || offset > maxOffset || offset%time.Minute != 0 {
		return nil, fmt.Errorf("invalid timezone %q, offset %s is out of range", c.Timezone, offset)
	}
	return timeutil.FixedZone(offset), nil
}

// Hours returns the slot grid in the configured zone.
func (c *Config) Hours() (slots.WorkHours, error) {
	loc, err := c.Location()
	if err != nil {
		return slots.WorkHours{}, err
	}
	h := c.workHours(loc)
	return h, h.Validate()
}

func (c *Config) workHours(loc *time.Location) slots.WorkHours {
	return slots.WorkHours{
		StartHour:    c.WorkHours.Start,
		EndHour:      c.WorkHours.End,
		SlotDuration: time.Duration(c.WorkHours.SlotMinutes) * time.Minute,
		Location:     loc,
	}
}

// Load reads path from fsys. A missing file is created with the defaults.
func Load(fsys afero.Fs, path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			return cfg, Save(fsys, path, cfg)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(fsys afero.Fs, path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp, err := afero.TempFile(fsys, dir, ".focusbot-config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = fsys.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := fsys.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}
