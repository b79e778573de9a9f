// Package eventcache keeps today's calendar events for a short time-to-live.
//
// Booking mutations call Invalidate so the next lookup refetches. When a
// refetch fails, Get keeps serving the last good list so the notifier rides
// out transient calendar outages; Load reports the failure instead.
package eventcache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/focusbot/internal/calendar"
	"github.com/teemow/focusbot/internal/instrumentation"
	"github.com/teemow/focusbot/internal/logging"
	"github.com/teemow/focusbot/internal/timeutil"
)

// DefaultTTL is how long a fetched list stays fresh.
const DefaultTTL = 5 * time.Minute

// Source lists events in a range; calendar.Calendar satisfies it.
type Source interface {
	ListEvents(ctx context.Context, r calendar.TimeRange) ([]calendar.Event, error)
}

// Options configures a Cache.
type Options struct {
	TTL      time.Duration
	Location *time.Location
	Clock    timeutil.Clock
	Logger   *slog.Logger
	Metrics  *instrumentation.Metrics
}

// Cache is a TTL cache of today's events.
type Cache struct {
	source  Source
	ttl     time.Duration
	loc     *time.Location
	clock   timeutil.Clock
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu        sync.Mutex
	events    []calendar.Event
	day       string
	fetchedAt time.Time
	valid     bool
}

// New creates a Cache reading from source.
func New(source Source, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Location == nil {
		opts.Location = timeutil.FixedZone(timeutil.DefaultOffset)
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock{}
	}
	return &Cache{
		source:  source,
		ttl:     opts.TTL,
		loc:     opts.Location,
		clock:   opts.Clock,
		logger:  logging.WithComponent(opts.Logger, "eventcache"),
		metrics: opts.Metrics,
	}
}

// Load returns today's events, refetching when the cache is stale,
// invalidated or from another day. Fetch errors are returned.
func (c *Cache) Load(ctx context.Context) ([]calendar.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.freshLocked(now) {
		c.metrics.RecordCacheLookup(ctx, instrumentation.CacheHit)
		return c.copyLocked(), nil
	}

	start, end := timeutil.DayBounds(now, c.loc)
	events, err := c.source.ListEvents(ctx, calendar.TimeRange{Start: start, End: end})
	if err != nil {
		return nil, err
	}
	c.metrics.RecordCacheLookup(ctx, instrumentation.CacheMiss)

	c.events = events
	c.day = timeutil.DateString(now, c.loc)
	c.fetchedAt = now
	c.valid = true
	return c.copyLocked(), nil
}

// Get is Load with stale fallback: on fetch failure it logs and returns the
// last good list, which may be empty.
func (c *Cache) Get(ctx context.Context) []calendar.Event {
	events, err := c.Load(ctx)
	if err == nil {
		return events
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.RecordCacheLookup(ctx, instrumentation.CacheStale)
	c.logger.Warn("event refresh failed, serving cached events",
		logging.Operation("eventcache.get"),
		slog.Int("cached", len(c.events)),
		slog.Time("fetched_at", c.fetchedAt),
		logging.Err(err))
	return c.copyLocked()
}

// Invalidate forces the next lookup to refetch. The stale list stays
// available as a fallback.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// FetchedAt returns when the current list was fetched (zero before the first fetch).
func (c *Cache) FetchedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchedAt
}

func (c *Cache) freshLocked(now time.Time) bool {
	return c.valid &&
		now.Sub(c.fetchedAt) < c.ttl &&
		c.day == timeutil.DateString(now, c.loc)
}

func (c *Cache) copyLocked() []calendar.Event {
	out := make([]calendar.Event, len(c.events))
	copy(out, c.events)
	return out
}
