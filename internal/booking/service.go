// Package booking creates and removes focus sessions on the calendar.
//
// Every successful mutation invalidates the event cache. Calendars that do
// not reject overlapping bookings themselves get a strict-overlap precheck
// against their busy ranges before the create is issued.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/focusbot/internal/apperrors"
	"github.com/teemow/focusbot/internal/calendar"
	"github.com/teemow/focusbot/internal/logging"
	"github.com/teemow/focusbot/internal/notifier"
	"github.com/teemow/focusbot/internal/slots"
	"github.com/teemow/focusbot/internal/timerstate"
	"github.com/teemow/focusbot/internal/timeutil"
)

// DefaultRenewDuration is the length of a renewed session.
const DefaultRenewDuration = 30 * time.Minute

// maxSessionDuration bounds renew and free-form bookings.
const maxSessionDuration = 12 * time.Hour

// Invalidator drops cached calendar data; eventcache.Cache satisfies it.
type Invalidator interface {
	Invalidate()
}

// Options configures a Service.
type Options struct {
	Hours  slots.WorkHours
	Clock  timeutil.Clock
	Logger *slog.Logger

	// Store, Sender and Chats are needed by Complete only.
	Store  *timerstate.Store
	Sender notifier.Sender
	Chats  *notifier.ChatRegistry
}

// Service performs booking mutations.
type Service struct {
	cal    calendar.Calendar
	cache  Invalidator
	hours  slots.WorkHours
	clock  timeutil.Clock
	logger *slog.Logger
	store  *timerstate.Store
	sender notifier.Sender
	chats  *notifier.ChatRegistry
}

// NewService creates a Service. cache may be nil.
func NewService(cal calendar.Calendar, cache Invalidator, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock{}
	}
	if opts.Hours.Location == nil {
		opts.Hours = slots.DefaultWorkHours(timeutil.FixedZone(timeutil.DefaultOffset))
	}
	return &Service{
		cal:    cal,
		cache:  cache,
		hours:  opts.Hours,
		clock:  opts.Clock,
		logger: logging.WithComponent(opts.Logger, "booking"),
		store:  opts.Store,
		sender: opts.Sender,
		chats:  opts.Chats,
	}
}

// Create books in. A strict overlap with a busy range is ErrConflict; an
// event that only touches an existing boundary is accepted.
func (s *Service) Create(ctx context.Context, in calendar.EventInput) (*calendar.Event, error) {
	const op = "booking.create"

	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Range().Duration() > maxSessionDuration {
		return nil, apperrors.InvalidInput(op, "sessions are limited to %s", maxSessionDuration)
	}

	if !calendar.DetectsConflicts(s.cal) {
		busy, err := s.cal.ListBusy(ctx, in.Range())
		if err != nil {
			return nil, apperrors.Upstream(op, err)
		}
		if b, hit := calendar.FirstOverlap(busy, in.Range()); hit {
			return nil, apperrors.Conflict(op, "busy from %s to %s",
				timeutil.FormatDateTime(b.Start, s.hours.Location),
				timeutil.FormatTime(b.End, s.hours.Location))
		}
	}

	ev, err := s.cal.CreateEvent(ctx, in)
	if err != nil {
		return nil, apperrors.Upstream(op, err)
	}
	s.invalidate()

	s.logger.Info("session booked",
		logging.Operation(op),
		logging.EventID(ev.ID),
		slog.String("title", ev.Title),
		slog.Time("start", ev.Start))
	return ev, nil
}

// Delete removes the event with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "booking.delete"

	if strings.TrimSpace(id) == "" {
		return apperrors.InvalidInput(op, "event id is required")
	}
	if err := s.cal.DeleteEvent(ctx, id); err != nil {
		return apperrors.Upstream(op, err)
	}
	s.invalidate()

	s.logger.Info("session cancelled", logging.Operation(op), logging.EventID(id))
	return nil
}

// BookSlot books one slot-length session starting at start for who.
func (s *Service) BookSlot(ctx context.Context, start time.Time, who string) (*calendar.Event, error) {
	end := start.Add(s.hours.SlotDuration)
	if !end.After(s.clock.Now()) {
		return nil, apperrors.InvalidInput("booking.slot", "slot %s has already ended",
			timeutil.FormatDateTime(start, s.hours.Location))
	}
	return s.Create(ctx, calendar.EventInput{
		Title:       SessionTitle(who),
		Description: "Booked via focusbot",
		Start:       start,
		End:         end,
	})
}

// Renew books a new session named title from now for d (DefaultRenewDuration when zero).
func (s *Service) Renew(ctx context.Context, title string, d time.Duration) (*calendar.Event, error) {
	if d == 0 {
		d = DefaultRenewDuration
	}
	if d < 0 {
		return nil, apperrors.InvalidInput("booking.renew", "duration must be positive, got %s", d)
	}
	now := s.clock.Now().Truncate(time.Second)
	return s.Create(ctx, calendar.EventInput{
		Title: title,
		Start: now,
		End:   now.Add(d),
	})
}

// CompleteResult reports a completed task.
type CompleteResult struct {
	TaskID   string               `json:"taskId"`
	Timer    timerstate.TaskTimer `json:"timer"`
	Message  string               `json:"message"`
	Reported bool                 `json:"reported"`
}

// Complete finalizes the task's timer and reports the focused time to the
// saved chat. A failed report is logged; the timer stays finalized.
func (s *Service) Complete(ctx context.Context, taskID, title string) (CompleteResult, error) {
	if s.store == nil {
		return CompleteResult{}, fmt.Errorf("booking service has no timer store")
	}
	timer, err := s.store.Complete(ctx, taskID)
	if err != nil {
		return CompleteResult{}, err
	}
	if strings.TrimSpace(title) == "" {
		title = taskID
	}

	res := CompleteResult{
		TaskID:  taskID,
		Timer:   timer,
		Message: CompletionMessage(title, timer.Seconds),
	}

	chatID := ""
	if s.chats != nil {
		chatID = s.chats.Get()
	}
	if chatID != "" && s.sender != nil {
		if err := s.sender.Send(ctx, chatID, res.Message); err != nil {
			s.logger.Error("failed to report completed task",
				logging.TaskID(taskID), logging.ChatHash(chatID), logging.Err(err))
		} else {
			res.Reported = true
		}
	}

	s.logger.Info("task completed", logging.TaskID(taskID), slog.Int64("seconds", timer.Seconds))
	return res, nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

// SessionTitle is the summary of a booked focus session.
func SessionTitle(who string) string {
	who = strings.TrimSpace(who)
	if who == "" {
		who = "User"
	}
	return fmt.Sprintf("Focus Session (%s)", who)
}

// CompletionMessage is the chat report of a completed task.
func CompletionMessage(title string, seconds int64) string {
	return fmt.Sprintf("✅ %s completed: %s", title, timeutil.FormatCountup(seconds))
}
