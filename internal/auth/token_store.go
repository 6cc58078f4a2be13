// auth/token_store.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisTokenStore implements TokenStore using Redis.
type RedisTokenStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisTokenStore creates a new Redis-backed token store.
func NewRedisTokenStore(client redis.UniversalClient, prefix string) *RedisTokenStore {
	return &RedisTokenStore{
		client: client,
		prefix: prefix,
	}
}

// key generates the Redis key for a realm's token.
func (s *RedisTokenStore) key(realmID string) string {
	return fmt.Sprintf("%s:token:%s", s.prefix, realmID)
}

// SaveToken stores a token for a realm.
func (s *RedisTokenStore) SaveToken(ctx context.Context, realmID string, token *OAuthToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	// Keep the record well past access-token expiry: the refresh token
	// inside it stays valid much longer.
	ttl := time.Until(token.ExpiresAt) + (90 * 24 * time.Hour)

	if err := s.client.Set(ctx, s.key(realmID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

// GetToken retrieves a token for a realm.
func (s *RedisTokenStore) GetToken(ctx context.Context, realmID string) (*OAuthToken, error) {
	data, err := s.client.Get(ctx, s.key(realmID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var token OAuthToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &token, nil
}

// DeleteToken removes a realm's token.
func (s *RedisTokenStore) DeleteToken(ctx context.Context, realmID string) error {
	if err := s.client.Del(ctx, s.key(realmID)).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// MemoryTokenStore implements TokenStore in process memory, for tests and
// local development.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*OAuthToken
}

// NewMemoryTokenStore creates an in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		tokens: make(map[string]*OAuthToken),
	}
}

// SaveToken stores a copy of the token.
func (s *MemoryTokenStore) SaveToken(ctx context.Context, realmID string, token *OAuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *token
	s.tokens[realmID] = &copied
	return nil
}

// GetToken returns a copy of the stored token.
func (s *MemoryTokenStore) GetToken(ctx context.Context, realmID string) (*OAuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[realmID]
	if !ok {
		return nil, ErrNoToken
	}
	copied := *token
	return &copied, nil
}

// DeleteToken removes the realm's token.
func (s *MemoryTokenStore) DeleteToken(ctx context.Context, realmID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, realmID)
	return nil
}
