package calendar

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/focusbot/internal/instrumentation"
)

// Instrumented decorates a Calendar with metrics and tracing.
type Instrumented struct {
	next    Calendar
	backend string
	metrics *instrumentation.Metrics
}

// NewInstrumented wraps next. backend names the implementation in metrics and
// spans (instrumentation.BackendGoogle, ...). metrics may be nil.
func NewInstrumented(next Calendar, backend string, metrics *instrumentation.Metrics) *Instrumented {
	return &Instrumented{next: next, backend: backend, metrics: metrics}
}

func (c *Instrumented) observe(ctx context.Context, op string, start time.Time, span trace.Span, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordCalendarOperation(ctx, c.backend, op, status, time.Since(start))
}

// ListBusy implements Calendar.
func (c *Instrumented) ListBusy(ctx context.Context, r TimeRange) ([]TimeRange, error) {
	start := time.Now()
	attrs := instrumentation.NewSpanAttributeBuilder().
		WithRange(r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339)).Build()
	ctx, span := instrumentation.StartCalendarSpan(ctx, c.backend, instrumentation.OpListBusy, attrs...)
	defer span.End()

	busy, err := c.next.ListBusy(ctx, r)
	c.observe(ctx, instrumentation.OpListBusy, start, span, err)
	return busy, err
}

// ListEvents implements Calendar.
func (c *Instrumented) ListEvents(ctx context.Context, r TimeRange) ([]Event, error) {
	start := time.Now()
	attrs := instrumentation.NewSpanAttributeBuilder().
		WithRange(r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339)).Build()
	ctx, span := instrumentation.StartCalendarSpan(ctx, c.backend, instrumentation.OpListEvents, attrs...)
	defer span.End()

	events, err := c.next.ListEvents(ctx, r)
	c.observe(ctx, instrumentation.OpListEvents, start, span, err)
	return events, err
}

// CreateEvent implements Calendar.
func (c *Instrumented) CreateEvent(ctx context.Context, in EventInput) (*Event, error) {
	start := time.Now()
	ctx, span := instrumentation.StartCalendarSpan(ctx, c.backend, instrumentation.OpCreate)
	defer span.End()

	ev, err := c.next.CreateEvent(ctx, in)
	c.observe(ctx, instrumentation.OpCreate, start, span, err)
	return ev, err
}

// DeleteEvent implements Calendar.
func (c *Instrumented) DeleteEvent(ctx context.Context, id string) error {
	start := time.Now()
	b := instrumentation.NewSpanAttributeBuilder()
	if c.metrics.DetailedLabels() {
		b.WithEventID(id)
	}
	ctx, span := instrumentation.StartCalendarSpan(ctx, c.backend, instrumentation.OpDelete, b.Build()...)
	defer span.End()

	err := c.next.DeleteEvent(ctx, id)
	c.observe(ctx, instrumentation.OpDelete, start, span, err)
	return err
}

// DetectsConflicts forwards to the wrapped calendar.
func (c *Instrumented) DetectsConflicts() bool {
	return DetectsConflicts(c.next)
}
