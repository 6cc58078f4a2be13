// record/store.go
package record

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store is the single typed accessor for service records. Business logic
// never branches on which backend holds the data.
type Store interface {
	Get(ctx context.Context, id string) (*ServiceRecord, error)
	Save(ctx context.Context, rec *ServiceRecord) error
	UpdateRemoteFields(ctx context.Context, id string, remote RemoteFields) error
}

// RedisStore persists service records in Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed record store.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:record:%s", s.prefix, id)
}

// Get retrieves a record by id.
func (s *RedisStore) Get(ctx context.Context, id string) (*ServiceRecord, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	var rec ServiceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

// Save persists a record.
func (s *RedisStore) Save(ctx context.Context, rec *ServiceRecord) error {
	rec.UpdatedAt = time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(rec.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// UpdateRemoteFields overwrites only the remote-owned fields of a record,
// leaving every locally owned field untouched.
func (s *RedisStore) UpdateRemoteFields(ctx context.Context, id string, remote RemoteFields) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rec.Remote = remote
	return s.Save(ctx, rec)
}

// MemoryStore keeps records in process memory, for tests and local
// development.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*ServiceRecord
}

// NewMemoryStore creates an in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*ServiceRecord),
	}
}

// Get returns a copy of the record.
func (s *MemoryStore) Get(ctx context.Context, id string) (*ServiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

// Save stores a copy of the record.
func (s *MemoryStore) Save(ctx context.Context, rec *ServiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.UpdatedAt = time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	copied := *rec
	s.records[rec.ID] = &copied
	return nil
}

// UpdateRemoteFields overwrites only the remote-owned fields.
func (s *MemoryStore) UpdateRemoteFields(ctx context.Context, id string, remote RemoteFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Remote = remote
	rec.UpdatedAt = time.Now()
	return nil
}
