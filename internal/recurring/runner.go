// Package recurring runs fixed-period background jobs.
//
// Every run is isolated: errors are logged, panics are recovered, and a run
// never overlaps the previous run of the same job (it is skipped instead).
// Scheduling is delegated to robfig/cron; RunOnce executes a single run
// synchronously so tests can drive jobs without real delays.
package recurring

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/teemow/focusbot/internal/instrumentation"
	"github.com/teemow/focusbot/internal/logging"
)

// Job is a named periodic task.
type Job struct {
	Name   string
	Period time.Duration
	Run    func(ctx context.Context) error

	// RunAtStart also runs the job once when the runner starts.
	RunAtStart bool
}

// Result of a single run.
const (
	ResultSuccess = instrumentation.StatusSuccess
	ResultError   = instrumentation.StatusError
	ResultPanic   = instrumentation.RunPanic
	ResultSkipped = instrumentation.RunSkipped
)

type entry struct {
	job     Job
	running atomic.Bool
}

// Runner owns a set of jobs.
type Runner struct {
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	cron    *cron.Cron

	mu      sync.Mutex
	entries map[string]*entry
	ctx     context.Context
	started bool
}

// NewRunner creates a Runner. logger and metrics may be nil.
func NewRunner(logger *slog.Logger, metrics *instrumentation.Metrics) *Runner {
	logger = logging.WithComponent(logger, "recurring")
	return &Runner{
		logger:  logger,
		metrics: metrics,
		cron: cron.New(
			cron.WithLogger(cronLogger{logger}),
			cron.WithChain(cron.Recover(cronLogger{logger})),
		),
		entries: make(map[string]*entry),
		ctx:     context.Background(),
	}
}

// Add registers a job. Jobs must be added before Start.
func (r *Runner) Add(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if job.Run == nil {
		return fmt.Errorf("job %q has no run function", job.Name)
	}
	// cron's constant-delay schedule has one-second resolution.
	if job.Period < time.Second {
		return fmt.Errorf("job %q period must be at least 1s, got %s", job.Name, job.Period)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("cannot add job %q to a started runner", job.Name)
	}
	if _, ok := r.entries[job.Name]; ok {
		return fmt.Errorf("job %q already registered", job.Name)
	}

	e := &entry{job: job}
	r.entries[job.Name] = e
	r.cron.Schedule(cron.Every(job.Period), cron.FuncJob(func() {
		r.run(r.context(), e)
	}))
	return nil
}

// Start begins scheduling. Runs receive ctx.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.started = true
	n := len(r.entries)
	var initial []*entry
	for _, e := range r.entries {
		if e.job.RunAtStart {
			initial = append(initial, e)
		}
	}
	r.mu.Unlock()

	for _, e := range initial {
		go r.run(ctx, e)
	}
	r.cron.Start()
	r.logger.Info("recurring jobs started", slog.Int("jobs", n))
}

// Stop halts scheduling and waits for in-flight runs or ctx.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		r.logger.Info("recurring jobs stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the runner and blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.Start(ctx)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.Stop(stopCtx)
}

// RunOnce executes one run of the named job synchronously and returns its result.
func (r *Runner) RunOnce(ctx context.Context, name string) (string, error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown job %q", name)
	}
	return r.run(ctx, e), nil
}

func (r *Runner) context() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx
}

func (r *Runner) run(ctx context.Context, e *entry) (result string) {
	logger := r.logger.With(logging.Operation(e.job.Name))

	if !e.running.CompareAndSwap(false, true) {
		logger.Warn("previous run still in progress, skipping")
		r.metrics.RecordRecurringRun(ctx, e.job.Name, ResultSkipped)
		return ResultSkipped
	}
	defer e.running.Store(false)

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			result = ResultPanic
			logger.Error("recurring job panicked",
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())))
		}
		r.metrics.RecordRecurringRun(ctx, e.job.Name, result)
	}()

	if err := e.job.Run(ctx); err != nil {
		logger.Error("recurring job failed", logging.Err(err), slog.Duration("duration", time.Since(start)))
		return ResultError
	}
	logger.Debug("recurring job finished", slog.Duration("duration", time.Since(start)))
	return ResultSuccess
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{logging.Err(err)}, keysAndValues...)...)
}
