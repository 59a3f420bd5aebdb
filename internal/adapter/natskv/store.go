// Package natskv stores idempotent HTTP responses in a NATS JetStream KV bucket.
package natskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/StackForge/internal/middleware"
)

// Compile-time interface check.
var _ middleware.IdempotencyStore = (*Store)(nil)

// Store wraps a JetStream KeyValue bucket. Entry TTL is managed at bucket level.
type Store struct {
	kv jetstream.KeyValue
}

// New creates a KV-backed store.
func New(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

// Get returns the stored value; a missing key is ok=false without error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kv get: %w", err)
	}
	return entry.Value(), true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("kv put: %w", err)
	}
	return nil
}
