// auth/state.go
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStateStore persists pending authorization states in Redis with a TTL.
type RedisStateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStateStore creates a Redis-backed state store.
func NewRedisStateStore(client redis.UniversalClient, prefix string) *RedisStateStore {
	return &RedisStateStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStateStore) key(state string) string {
	return fmt.Sprintf("%s:oauth-state:%s", s.prefix, state)
}

// PutState stores a pending state until its TTL elapses.
func (s *RedisStateStore) PutState(ctx context.Context, state string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(state), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// ConsumeState deletes the state and reports whether it existed. DEL is
// atomic, so two racing callbacks with the same state succeed at most once.
func (s *RedisStateStore) ConsumeState(ctx context.Context, state string) error {
	deleted, err := s.client.Del(ctx, s.key(state)).Result()
	if err != nil {
		return fmt.Errorf("failed to consume state: %w", err)
	}
	if deleted == 0 {
		return ErrInvalidState
	}
	return nil
}

// MemoryStateStore keeps pending states in process memory. Used in tests
// and single-node deployments without Redis.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

// NewMemoryStateStore creates an in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		states: make(map[string]time.Time),
	}
}

// PutState stores a pending state with its expiry deadline.
func (s *MemoryStateStore) PutState(ctx context.Context, state string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = time.Now().Add(ttl)
	return nil
}

// ConsumeState removes the state on first use, expired or not.
func (s *MemoryStateStore) ConsumeState(ctx context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.states[state]
	delete(s.states, state)

	if !ok || time.Now().After(deadline) {
		return ErrInvalidState
	}
	return nil
}
