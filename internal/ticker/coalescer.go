package ticker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/teemow/focusbot/internal/timeutil"
)

// DefaultSaveCooldown is the minimum spacing of action-triggered pushes.
const DefaultSaveCooldown = 2 * time.Second

// SaveCoalescer limits state pushes triggered by user actions to one per
// cooldown. A request inside the cooldown is remembered as pending and
// pushed by the next Flush that is allowed.
type SaveCoalescer struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	clock   timeutil.Clock
	pending bool
	push    func(ctx context.Context) error
}

// NewSaveCoalescer creates a coalescer calling push.
func NewSaveCoalescer(clock timeutil.Clock, cooldown time.Duration, push func(ctx context.Context) error) *SaveCoalescer {
	if cooldown <= 0 {
		cooldown = DefaultSaveCooldown
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &SaveCoalescer{
		limiter: rate.NewLimiter(rate.Every(cooldown), 1),
		clock:   clock,
		push:    push,
	}
}

// Request pushes now if the cooldown allows it, otherwise marks a push pending.
func (c *SaveCoalescer) Request(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if !c.limiter.AllowN(c.clock.Now(), 1) {
		c.pending = true
		c.mu.Unlock()
		return false, nil
	}
	c.pending = false
	c.mu.Unlock()
	return true, c.push(ctx)
}

// Flush pushes a pending request once the cooldown has passed.
func (c *SaveCoalescer) Flush(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if !c.pending || !c.limiter.AllowN(c.clock.Now(), 1) {
		c.mu.Unlock()
		return false, nil
	}
	c.pending = false
	c.mu.Unlock()
	return true, c.push(ctx)
}

// PushNow pushes regardless of the cooldown and clears any pending request.
func (c *SaveCoalescer) PushNow(ctx context.Context) error {
	c.mu.Lock()
	c.pending = false
	c.mu.Unlock()
	return c.push(ctx)
}

// Pending reports whether a request is waiting for the cooldown.
func (c *SaveCoalescer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}
