package timerstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"
)

// DefaultValkeyKey is the key holding the state when none is configured.
const DefaultValkeyKey = "focusbot:timer-state"

// ValkeyOptions configures a ValkeyBackend.
type ValkeyOptions struct {
	// Address is the server address (e.g., "valkey.namespace.svc:6379").
	Address  string
	Password string
	DB       int
	Key      string
}

// ValkeyBackend stores the state as a JSON string under one key.
type ValkeyBackend struct {
	client valkey.Client
	key    string
}

// NewValkeyBackend connects to the server described by opts.
func NewValkeyBackend(opts ValkeyOptions) (*ValkeyBackend, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("valkey address is required")
	}
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{opts.Address},
		Password:    opts.Password,
		SelectDB:    opts.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", opts.Address, err)
	}
	return NewValkeyBackendWithClient(client, opts.Key), nil
}

// NewValkeyBackendWithClient wraps an existing client.
func NewValkeyBackendWithClient(client valkey.Client, key string) *ValkeyBackend {
	if key == "" {
		key = DefaultValkeyKey
	}
	return &ValkeyBackend{client: client, key: key}
}

// Load implements Backend.
func (b *ValkeyBackend) Load(ctx context.Context) (*TimerState, error) {
	raw, err := b.client.Do(ctx, b.client.B().Get().Key(b.key).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", b.key, err)
	}

	var s TimerState
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", b.key, err)
	}
	return &s, nil
}

// Save implements Backend.
func (b *ValkeyBackend) Save(ctx context.Context, s *TimerState) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := b.client.Do(ctx, b.client.B().Set().Key(b.key).Value(string(data)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to set %s: %w", b.key, err)
	}
	return nil
}

// Ping checks connectivity.
func (b *ValkeyBackend) Ping(ctx context.Context) error {
	return b.client.Do(ctx, b.client.B().Ping().Build()).Error()
}

// Close releases the connection.
func (b *ValkeyBackend) Close() {
	b.client.Close()
}
