package timerstate

import (
	"context"
	"errors"
	"sync"
)

// ErrNoState is returned by Backend.Load when nothing has been stored yet.
var ErrNoState = errors.New("no timer state stored")

// Backend is the durable key-value store holding the single TimerState.
type Backend interface {
	// Load returns the stored state or ErrNoState.
	Load(ctx context.Context) (*TimerState, error)

	// Save replaces the stored state atomically.
	Save(ctx context.Context, s *TimerState) error
}

// MemoryBackend keeps the state in process memory.
type MemoryBackend struct {
	mu    sync.Mutex
	state *TimerState
	saves int
	fail  error
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// SetFailure makes Load and Save fail with err until reset with nil.
func (b *MemoryBackend) SetFailure(err error) {
	b.mu.Lock()
	b.fail = err
	b.mu.Unlock()
}

// Saves returns the number of successful saves.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

// Load implements Backend.
func (b *MemoryBackend) Load(context.Context) (*TimerState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return nil, b.fail
	}
	if b.state == nil {
		return nil, ErrNoState
	}
	return b.state.Clone(), nil
}

// Save implements Backend.
func (b *MemoryBackend) Save(_ context.Context, s *TimerState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.state = s.Clone()
	b.saves++
	return nil
}
