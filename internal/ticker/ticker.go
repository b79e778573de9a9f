// Package ticker is the client side of the focus timer: a cooperative 1 Hz
// loop that auto-starts scheduled tasks, counts up the active timer, and
// keeps the server's timer state in sync.
package ticker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/focusbot/internal/apperrors"
	"github.com/teemow/focusbot/internal/calendar"
	"github.com/teemow/focusbot/internal/logging"
	"github.com/teemow/focusbot/internal/timerstate"
	"github.com/teemow/focusbot/internal/timeutil"
)

// Defaults for the loop cadence.
const (
	DefaultTickInterval    = time.Second
	DefaultSaveInterval    = 10 * time.Second
	DefaultAutoStartWindow = 2 * time.Second
)

// TaskSource lists today's tasks.
type TaskSource interface {
	ListTasks(ctx context.Context) ([]calendar.Event, error)
}

// StateClient reads and writes the server-side timer state.
type StateClient interface {
	Load(ctx context.Context) (timerstate.TimerState, error)
	Save(ctx context.Context, u timerstate.Update) error
}

// Options configures a Ticker.
type Options struct {
	Location        *time.Location
	TickInterval    time.Duration
	SaveInterval    time.Duration
	SaveCooldown    time.Duration
	AutoStartWindow time.Duration
	Clock           timeutil.Clock
	Logger          *slog.Logger

	// OnRender receives the view after every tick and user action.
	OnRender func(View)
}

// View is what the client shows for the active task.
type View struct {
	TaskID   string
	Title    string
	Schedule string
	Seconds  int64
	Countup  string
	Running  bool
	Expired  bool
	Progress float64
}

// Ticker drives the timers of today's tasks.
type Ticker struct {
	source TaskSource
	client StateClient
	opts   Options
	clock  timeutil.Clock
	logger *slog.Logger
	saver  *SaveCoalescer

	mu    sync.Mutex
	tasks []calendar.Event
	state *timerstate.TimerState
}

// New creates a Ticker.
func New(source TaskSource, client StateClient, opts Options) *Ticker {
	if opts.Location == nil {
		opts.Location = timeutil.FixedZone(timeutil.DefaultOffset)
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.SaveInterval <= 0 {
		opts.SaveInterval = DefaultSaveInterval
	}
	if opts.AutoStartWindow <= 0 {
		opts.AutoStartWindow = DefaultAutoStartWindow
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock{}
	}
	t := &Ticker{
		source: source,
		client: client,
		opts:   opts,
		clock:  opts.Clock,
		logger: logging.WithComponent(opts.Logger, "ticker"),
		state:  timerstate.New(time.Time{}),
	}
	t.saver = NewSaveCoalescer(opts.Clock, opts.SaveCooldown, t.push)
	return t
}

// Init loads today's tasks and the server state. Server timers win for ids
// it knows; completed tasks are hidden. A server state that cannot be read
// is logged and the local zero timers are used.
func (t *Ticker) Init(ctx context.Context) error {
	all, err := t.source.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	server, err := t.client.Load(ctx)
	if err != nil {
		t.logger.Warn("failed to load timer state, starting from zero", logging.Err(err))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st := timerstate.New(time.Time{})
	for id, timer := range server.Timers {
		st.Timers[id] = timer
	}

	t.tasks = t.tasks[:0]
	for _, task := range all {
		if task.AllDay {
			continue
		}
		if timer := st.Ensure(task.ID); timer.Finalized {
			continue
		}
		t.tasks = append(t.tasks, task)
	}

	st.ActiveTaskID = server.ActiveTaskID
	if _, ok := t.taskLocked(st.ActiveTaskID); !ok {
		st.ActiveTaskID = DecideActiveTask(t.tasks, t.clock.Now())
	}
	t.state = st

	t.logger.Info("ticker initialized",
		slog.Int("tasks", len(t.tasks)),
		logging.TaskID(st.ActiveTaskID))
	t.renderLocked(t.clock.Now())
	return nil
}

// Tick runs one cycle: auto-start scan, then the increment of the running
// active timer, then the view (with progress) is computed.
func (t *Ticker) Tick(ctx context.Context) View {
	t.mu.Lock()
	now := t.clock.Now()

	started := false
	for _, task := range t.tasks {
		timer := t.state.Timers[task.ID]
		diff := now.Sub(task.Start)
		if diff < 0 || diff >= t.opts.AutoStartWindow || timer.AutoStarted {
			continue
		}
		timer.AutoStarted = true
		t.state.Timers[task.ID] = timer
		if err := t.state.Start(task.ID); err != nil {
			t.logger.Warn("auto-start rejected", logging.TaskID(task.ID), logging.Err(err))
			continue
		}
		started = true
		t.logger.Info("task auto-started", logging.TaskID(task.ID), slog.String("title", task.Title))
	}

	if active, ok := t.state.Active(); ok && active.IsRunning {
		active.Seconds++
		t.state.Timers[t.state.ActiveTaskID] = active
	}

	view := t.renderLocked(now)
	t.mu.Unlock()

	if started {
		t.requestSave(ctx)
	}
	if _, err := t.saver.Flush(ctx); err != nil {
		t.logger.Warn("failed to push timer state", logging.Err(err))
	}
	return view
}

// Toggle starts or pauses the active timer.
func (t *Ticker) Toggle(ctx context.Context) error {
	return t.act(ctx, func(st *timerstate.TimerState) error {
		if st.ActiveTaskID == "" {
			return apperrors.InvalidInput("ticker.toggle", "no active task")
		}
		return st.Toggle(st.ActiveTaskID)
	})
}

// Start runs the active timer.
func (t *Ticker) Start(ctx context.Context) error {
	return t.act(ctx, func(st *timerstate.TimerState) error {
		if st.ActiveTaskID == "" {
			return apperrors.InvalidInput("ticker.start", "no active task")
		}
		return st.Start(st.ActiveTaskID)
	})
}

// Pause stops the active timer.
func (t *Ticker) Pause(ctx context.Context) error {
	return t.act(ctx, func(st *timerstate.TimerState) error {
		st.Pause(st.ActiveTaskID)
		return nil
	})
}

// Switch makes id the active task, pausing the previous one.
func (t *Ticker) Switch(ctx context.Context, id string) error {
	return t.act(ctx, func(st *timerstate.TimerState) error {
		if _, ok := t.taskLocked(id); !ok {
			return apperrors.NotFound("ticker.switch", id)
		}
		st.Switch(id)
		return nil
	})
}

// Complete stops and finalizes id locally. Every push after it carries the
// finalized timer, so a save racing the server's completion cannot revive it.
func (t *Ticker) Complete(ctx context.Context, id string) (timerstate.TaskTimer, error) {
	var done timerstate.TaskTimer
	err := t.act(ctx, func(st *timerstate.TimerState) error {
		if id == "" {
			return apperrors.InvalidInput("ticker.complete", "no active task")
		}
		done = st.Complete(id)
		return nil
	})
	return done, err
}

// Run drives Tick every TickInterval and pushes the full state every
// SaveInterval until ctx ends, then pushes once more.
func (t *Ticker) Run(ctx context.Context) error {
	tick := time.NewTicker(t.opts.TickInterval)
	defer tick.Stop()
	save := time.NewTicker(t.opts.SaveInterval)
	defer save.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := t.saver.PushNow(flushCtx); err != nil {
				t.logger.Warn("final timer state push failed", logging.Err(err))
			}
			return nil
		case <-tick.C:
			t.Tick(ctx)
		case <-save.C:
			if err := t.saver.PushNow(ctx); err != nil {
				t.logger.Warn("periodic timer state push failed", logging.Err(err))
			}
		}
	}
}

// View returns the current view without advancing time.
func (t *Ticker) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewLocked(t.clock.Now())
}

// Snapshot returns the timer state as it would be pushed.
func (t *Ticker) Snapshot() timerstate.Update {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updateLocked()
}

// Tasks returns the visible tasks.
func (t *Ticker) Tasks() []calendar.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]calendar.Event, len(t.tasks))
	copy(out, t.tasks)
	return out
}

func (t *Ticker) act(ctx context.Context, fn func(*timerstate.TimerState) error) error {
	t.mu.Lock()
	if err := fn(t.state); err != nil {
		t.mu.Unlock()
		return err
	}
	t.renderLocked(t.clock.Now())
	t.mu.Unlock()

	t.requestSave(ctx)
	return nil
}

func (t *Ticker) requestSave(ctx context.Context) {
	if _, err := t.saver.Request(ctx); err != nil {
		t.logger.Warn("failed to push timer state", logging.Err(err))
	}
}

func (t *Ticker) push(ctx context.Context) error {
	return t.client.Save(ctx, t.Snapshot())
}

func (t *Ticker) updateLocked() timerstate.Update {
	active := t.state.ActiveTaskID
	timers := make(map[string]timerstate.TaskTimer, len(t.state.Timers))
	for id, timer := range t.state.Timers {
		timers[id] = timer
	}
	return timerstate.Update{ActiveTaskID: &active, Timers: timers}
}

func (t *Ticker) taskLocked(id string) (calendar.Event, bool) {
	if id == "" {
		return calendar.Event{}, false
	}
	for _, task := range t.tasks {
		if task.ID == id {
			return task, true
		}
	}
	return calendar.Event{}, false
}

func (t *Ticker) renderLocked(now time.Time) View {
	v := t.viewLocked(now)
	if t.opts.OnRender != nil {
		t.opts.OnRender(v)
	}
	return v
}

func (t *Ticker) viewLocked(now time.Time) View {
	task, ok := t.taskLocked(t.state.ActiveTaskID)
	if !ok {
		return View{Title: "No Tasks", Countup: timeutil.FormatCountup(0)}
	}
	timer := t.state.Timers[task.ID]
	return View{
		TaskID:   task.ID,
		Title:    task.Title,
		Schedule: timeutil.FormatTime(task.Start, t.opts.Location) + " - " + timeutil.FormatTime(task.End, t.opts.Location),
		Seconds:  timer.Seconds,
		Countup:  timeutil.FormatCountup(timer.Seconds),
		Running:  timer.IsRunning,
		Expired:  task.End.Before(now),
		Progress: Progress(task, now),
	}
}

// DecideActiveTask picks the ongoing task, else the next upcoming one, else the first.
func DecideActiveTask(tasks []calendar.Event, now time.Time) string {
	if len(tasks) == 0 {
		return ""
	}
	for _, task := range tasks {
		if !task.Start.After(now) && task.End.After(now) {
			return task.ID
		}
	}
	for _, task := range tasks {
		if task.Start.After(now) {
			return task.ID
		}
	}
	return tasks[0].ID
}

// Progress is the remaining fraction of task's scheduled window, clamped to [0, 1].
func Progress(task calendar.Event, now time.Time) float64 {
	total := task.End.Sub(task.Start)
	if total <= 0 {
		return 0
	}
	p := 1 - float64(now.Sub(task.Start))/float64(total)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
