// auth/token_store_fallback.go
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// FallbackTokenStore keeps Redis as the durable store but continues serving
// and accepting tokens from a local cache when Redis is unhealthy, so a
// Redis outage never strands an otherwise valid credential.
type FallbackTokenStore struct {
	redisStore  *RedisTokenStore
	localCache  map[string]*OAuthToken
	cacheMutex  sync.RWMutex
	healthCheck func() bool
	log         *logrus.Logger
}

// NewFallbackTokenStore creates a token store with Redis and local fallback.
func NewFallbackTokenStore(redisClient redis.UniversalClient, prefix string, healthCheck func() bool, log *logrus.Logger) *FallbackTokenStore {
	return &FallbackTokenStore{
		redisStore:  NewRedisTokenStore(redisClient, prefix),
		localCache:  make(map[string]*OAuthToken),
		healthCheck: healthCheck,
		log:         log,
	}
}

// SaveToken stores a token in the local cache and, when healthy, in Redis.
func (s *FallbackTokenStore) SaveToken(ctx context.Context, realmID string, token *OAuthToken) error {
	s.cacheMutex.Lock()
	s.localCache[realmID] = token
	s.cacheMutex.Unlock()

	if s.healthCheck() {
		if err := s.redisStore.SaveToken(ctx, realmID, token); err != nil {
			s.log.WithError(err).WithField("realm_id", realmID).Warn("failed to save token to Redis, serving from local cache")
		}
	}

	return nil
}

// GetToken retrieves a token, trying Redis first, falling back to the cache.
func (s *FallbackTokenStore) GetToken(ctx context.Context, realmID string) (*OAuthToken, error) {
	if s.healthCheck() {
		token, err := s.redisStore.GetToken(ctx, realmID)
		if err == nil {
			s.cacheMutex.Lock()
			s.localCache[realmID] = token
			s.cacheMutex.Unlock()
			return token, nil
		}
		if err == ErrNoToken {
			return nil, ErrNoToken
		}
		s.log.WithError(err).WithField("realm_id", realmID).Warn("failed to get token from Redis, trying local cache")
	}

	s.cacheMutex.RLock()
	token, exists := s.localCache[realmID]
	s.cacheMutex.RUnlock()

	if exists {
		return token, nil
	}

	return nil, ErrNoToken
}

// DeleteToken removes a token from both stores.
func (s *FallbackTokenStore) DeleteToken(ctx context.Context, realmID string) error {
	s.cacheMutex.Lock()
	delete(s.localCache, realmID)
	s.cacheMutex.Unlock()

	if s.healthCheck() {
		if err := s.redisStore.DeleteToken(ctx, realmID); err != nil {
			s.log.WithError(err).WithField("realm_id", realmID).Warn("failed to delete token from Redis")
		}
	}

	return nil
}

// StartReplicationRoutine begins background sync of the local cache to
// Redis, catching up writes that happened during an outage.
func (s *FallbackTokenStore) StartReplicationRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !s.healthCheck() {
					continue
				}

				s.cacheMutex.RLock()
				tokensToReplicate := make(map[string]*OAuthToken, len(s.localCache))
				for id, token := range s.localCache {
					tokensToReplicate[id] = token
				}
				s.cacheMutex.RUnlock()

				for id, token := range tokensToReplicate {
					if err := s.redisStore.SaveToken(ctx, id, token); err != nil {
						s.log.WithError(err).WithField("realm_id", id).Warn("token replication failed")
					}
				}
			}
		}
	}()
}
