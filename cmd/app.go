package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/teemow/focusbot/internal/booking"
	"github.com/teemow/focusbot/internal/calendar"
	"github.com/teemow/focusbot/internal/config"
	"github.com/teemow/focusbot/internal/eventcache"
	"github.com/teemow/focusbot/internal/instrumentation"
	"github.com/teemow/focusbot/internal/notifier"
	"github.com/teemow/focusbot/internal/server"
	"github.com/teemow/focusbot/internal/signal"
	"github.com/teemow/focusbot/internal/slots"
	"github.com/teemow/focusbot/internal/timerstate"
	"github.com/teemow/focusbot/internal/timeutil"
)

// flagBindings maps command-line flags onto config fields. Flags only
// override the file and environment when set explicitly.
var flagBindings = map[string]func(cfg *config.Config, v string){
	"listen":       func(c *config.Config, v string) { c.Listen = v },
	"server-url":   func(c *config.Config, v string) { c.ServerURL = v },
	"timezone":     func(c *config.Config, v string) { c.Timezone = v },
	"calendar":     func(c *config.Config, v string) { c.Calendar.Backend = v },
	"credentials":  func(c *config.Config, v string) { c.Calendar.CredentialsFile = v },
	"calendar-id":  func(c *config.Config, v string) { c.Calendar.CalendarID = v },
	"ics-source":   func(c *config.Config, v string) { c.Calendar.ICSSource = v },
	"state":        func(c *config.Config, v string) { c.State.Backend = v },
	"state-path":   func(c *config.Config, v string) { c.State.Path = v },
	"valkey-addr":  func(c *config.Config, v string) { c.State.Valkey.Address = v },
	"signal-user":  func(c *config.Config, v string) { c.Signal.User = v },
	"chat-id":      func(c *config.Config, v string) { c.Signal.ChatID = v },
	"metrics-addr": func(c *config.Config, v string) { c.Metrics.Addr = v },
}

// addCalendarFlags registers the flags selecting the calendar collaborator.
func addCalendarFlags(flags *pflag.FlagSet) {
	flags.String("timezone", "", "fixed UTC offset of the deployment, e.g. +08:00")
	flags.String("calendar", "", "Calendar backend: google, ics or memory")
	flags.String("credentials", "", "Google service account key file (google backend)")
	flags.String("calendar-id", "", "Google calendar id (google backend)")
	flags.String("ics-source", "", "ICS feed URL or file (ics backend)")
}

// addStateFlags registers the flags selecting the timer state backend.
func addStateFlags(flags *pflag.FlagSet) {
	flags.String("state", "", "Timer state backend: file, valkey or memory")
	flags.String("state-path", "", "Timer state file (file backend)")
	flags.String("valkey-addr", "", "Valkey address (valkey backend)")
}

// applyFlags copies explicitly set flags into cfg.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	for name, set := range flagBindings {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		set(cfg, f.Value.String())
	}
}

// loadConfig layers defaults, the config file, FOCUSBOT_* variables and flags.
func loadConfig(cmd *cobra.Command, fsys afero.Fs, lookup config.LookupFunc) (*config.Config, error) {
	cfg, err := config.Load(fsys, rootFlags.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	applyFlags(cmd.Flags(), cfg)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// app holds the wired services shared by serve and mcp.
type app struct {
	cfg     *config.Config
	loc     *time.Location
	logger  *slog.Logger
	cal     calendar.Calendar
	backend timerstate.Backend
	cache   *eventcache.Cache
	store   *timerstate.Store
	chats   *notifier.ChatRegistry
	sender  notifier.Sender
	booking *booking.Service
	sc      *server.ServerContext

	closers []func()
}

// newApp builds every service from cfg. metrics may be nil.
func newApp(ctx context.Context, cfg *config.Config, fsys afero.Fs, logger *slog.Logger, metrics *instrumentation.Metrics) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	hours, err := cfg.Hours()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, loc: loc, logger: logger}
	clock := timeutil.SystemClock{}

	a.cal, err = buildCalendar(ctx, cfg, loc, fsys, metrics)
	if err != nil {
		return nil, err
	}
	backend, closer, err := buildBackend(cfg, fsys)
	if err != nil {
		return nil, err
	}
	a.backend = backend
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	a.sender, err = buildSender(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.cache = eventcache.New(a.cal, eventcache.Options{
		TTL:      cfg.Notifier.CacheTTL,
		Location: loc,
		Clock:    clock,
		Logger:   logger,
		Metrics:  metrics,
	})
	a.store = timerstate.NewStore(backend, clock, logger, metrics)
	a.chats = notifier.NewChatRegistry(cfg.Signal.ChatID)
	a.booking = booking.NewService(a.cal, a.cache, booking.Options{
		Hours:  hours,
		Clock:  clock,
		Logger: logger,
		Store:  a.store,
		Sender: a.sender,
		Chats:  a.chats,
	})

	finder, err := slots.NewFinder(a.cal, hours, clock)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sc, err = server.NewServerContext(ctx, server.Services{
		Finder:   finder,
		Store:    a.store,
		Cache:    a.cache,
		Booking:  a.booking,
		Chats:    a.chats,
		Backend:  backend,
		Location: loc,
		Clock:    clock,
		Logger:   logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	a.sc.SetMetrics(metrics)
	return a, nil
}

// scheduler returns the reminder scheduler over the app's cache.
func (a *app) scheduler(metrics *instrumentation.Metrics) *notifier.Scheduler {
	return notifier.New(a.cache, notifier.NewNotifiedSet(), a.sender, a.chats, timeutil.SystemClock{}, notifier.Options{
		Location:      a.loc,
		LookAhead:     a.cfg.Notifier.LookAhead,
		Grace:         a.cfg.Notifier.Grace,
		CheckInterval: a.cfg.Notifier.CheckInterval,
		Logger:        a.logger,
		Metrics:       metrics,
	})
}

// Close releases backend connections.
func (a *app) Close() {
	if a.sc != nil {
		_ = a.sc.Shutdown()
	}
	for _, c := range a.closers {
		c()
	}
}

func buildCalendar(ctx context.Context, cfg *config.Config, loc *time.Location, fsys afero.Fs, metrics *instrumentation.Metrics) (calendar.Calendar, error) {
	switch cfg.Calendar.Backend {
	case config.CalendarGoogle:
		g, err := calendar.NewGoogleCalendar(ctx, calendar.GoogleOptions{
			CredentialsFile: cfg.Calendar.CredentialsFile,
			CalendarID:      cfg.Calendar.CalendarID,
			TimeZone:        cfg.Calendar.TimeZone,
			Location:        loc,
		})
		if err != nil {
			return nil, err
		}
		return calendar.NewInstrumented(g, instrumentation.BackendGoogle, metrics), nil
	case config.CalendarICS:
		c, err := calendar.NewICSCalendar(calendar.ICSOptions{
			Source:   cfg.Calendar.ICSSource,
			Location: loc,
			Fs:       fsys,
		})
		if err != nil {
			return nil, err
		}
		return calendar.NewInstrumented(c, instrumentation.BackendICS, metrics), nil
	case config.CalendarMemory:
		return calendar.NewInstrumented(calendar.NewMemoryCalendar(), instrumentation.BackendMemory, metrics), nil
	default:
		return nil, fmt.Errorf("unknown calendar backend %q", cfg.Calendar.Backend)
	}
}

func buildBackend(cfg *config.Config, fsys afero.Fs) (timerstate.Backend, func(), error) {
	switch cfg.State.Backend {
	case config.StateFile:
		b, err := timerstate.NewFileBackend(fsys, cfg.State.Path)
		return b, nil, err
	case config.StateValkey:
		b, err := timerstate.NewValkeyBackend(timerstate.ValkeyOptions{
			Address:  cfg.State.Valkey.Address,
			Password: cfg.State.Valkey.Password,
			DB:       cfg.State.Valkey.DB,
			Key:      cfg.State.Valkey.Key,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case config.StateMemory:
		return timerstate.NewMemoryBackend(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}

func buildSender(cfg *config.Config, logger *slog.Logger) (notifier.Sender, error) {
	if cfg.Signal.User == "" {
		logger.Warn("no signal user configured, reminders are only logged")
		return notifier.NewLogSender(logger), nil
	}
	client, err := signal.NewClient(cfg.Signal.User)
	if err != nil {
		return nil, fmt.Errorf("failed to create signal client: %w", err)
	}
	return notifier.NewSignalSender(client), nil
}

// osLookup reads environment variables.
func osLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}
