package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/focusbot/internal/calendar"
	"github.com/teemow/focusbot/internal/instrumentation"
	"github.com/teemow/focusbot/internal/logging"
	"github.com/teemow/focusbot/internal/recurring"
	"github.com/teemow/focusbot/internal/timeutil"
)

// Window and cadence defaults.
const (
	DefaultLookAhead     = 90 * time.Second
	DefaultGrace         = 30 * time.Second
	DefaultCheckInterval = time.Minute
	DefaultResetInterval = 24 * time.Hour
)

// Job names registered with the recurring runner.
const (
	JobCheck = "notifier.check"
	JobReset = "notifier.reset"
)

// EventSource returns today's events without failing; eventcache.Cache
// satisfies it.
type EventSource interface {
	Get(ctx context.Context) []calendar.Event
}

// Options configures a Scheduler.
type Options struct {
	Location      *time.Location
	LookAhead     time.Duration
	Grace         time.Duration
	CheckInterval time.Duration
	ResetInterval time.Duration
	Logger        *slog.Logger
	Metrics       *instrumentation.Metrics
}

// Scheduler sends one reminder per upcoming event.
type Scheduler struct {
	events  EventSource
	set     *NotifiedSet
	sender  Sender
	chats   *ChatRegistry
	clock   timeutil.Clock
	opts    Options
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// New creates a Scheduler.
func New(events EventSource, set *NotifiedSet, sender Sender, chats *ChatRegistry, clock timeutil.Clock, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = timeutil.FixedZone(timeutil.DefaultOffset)
	}
	if opts.LookAhead <= 0 {
		opts.LookAhead = DefaultLookAhead
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	if opts.ResetInterval <= 0 {
		opts.ResetInterval = DefaultResetInterval
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Scheduler{
		events:  events,
		set:     set,
		sender:  sender,
		chats:   chats,
		clock:   clock,
		opts:    opts,
		logger:  logging.WithComponent(opts.Logger, "notifier"),
		metrics: opts.Metrics,
	}
}

// Due reports whether an event starting at start should be reminded at now.
func (s *Scheduler) Due(start, now time.Time) bool {
	diff := start.Sub(now)
	return diff <= s.opts.LookAhead && diff > -s.opts.Grace
}

// Check sends reminders for due events and returns how many were sent.
// With no chat configured it does nothing. An id is marked before sending,
// so a failed send is not retried.
func (s *Scheduler) Check(ctx context.Context) (int, error) {
	chatID := s.chats.Get()
	if chatID == "" {
		return 0, nil
	}

	now := s.clock.Now()
	var (
		sent int
		errs []error
	)
	for _, ev := range s.events.Get(ctx) {
		if ev.AllDay || !s.Due(ev.Start, now) {
			continue
		}
		if !s.set.Mark(ev.ID) {
			continue
		}

		text := Message(ev, s.opts.Location)
		if err := s.sender.Send(ctx, chatID, text); err != nil {
			s.metrics.RecordNotification(ctx, instrumentation.StatusError)
			s.logger.Error("failed to send reminder",
				logging.EventID(ev.ID), logging.ChatHash(chatID), logging.Err(err))
			errs = append(errs, fmt.Errorf("event %s: %w", ev.ID, err))
			continue
		}
		sent++
		s.metrics.RecordNotification(ctx, instrumentation.StatusSuccess)
		s.logger.Info("reminder sent", logging.EventID(ev.ID), slog.String("title", ev.Title))
	}
	return sent, errors.Join(errs...)
}

// Reset clears the notified set.
func (s *Scheduler) Reset(context.Context) error {
	n := s.set.Len()
	s.set.Clear()
	s.logger.Debug("notified set cleared", slog.Int("cleared", n))
	return nil
}

// Jobs returns the recurring jobs driving the scheduler.
func (s *Scheduler) Jobs() []recurring.Job {
	return []recurring.Job{
		{
			Name:   JobCheck,
			Period: s.opts.CheckInterval,
			Run: func(ctx context.Context) error {
				_, err := s.Check(ctx)
				return err
			},
		},
		{
			Name:   JobReset,
			Period: s.opts.ResetInterval,
			Run:    s.Reset,
		},
	}
}

// Message formats the reminder for ev.
func Message(ev calendar.Event, loc *time.Location) string {
	return fmt.Sprintf("🔔 Task Starting: %s\n⏰ %s", ev.Title, timeutil.FormatTime(ev.Start, loc))
}
