// infrastructure/redis/healthcheck.go
package redis

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// HealthChecker monitors Redis connection health. Stores consult it before
// choosing between Redis and their local fallback.
type HealthChecker struct {
	client         redis.UniversalClient
	circuitBreaker *gobreaker.CircuitBreaker
	status         bool
	mu             sync.RWMutex
	checkInterval  time.Duration
	log            *logrus.Logger
}

// NewHealthChecker creates a Redis health checker and starts its periodic
// checks, which stop when ctx is cancelled.
func NewHealthChecker(ctx context.Context, client redis.UniversalClient, checkInterval time.Duration, log *logrus.Logger) *HealthChecker {
	settings := gobreaker.Settings{
		Name:        "redis-circuit-breaker",
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 3 },
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Redis circuit breaker state changed")
		},
	}

	checker := &HealthChecker{
		client:         client,
		circuitBreaker: gobreaker.NewCircuitBreaker(settings),
		status:         false,
		checkInterval:  checkInterval,
		log:            log,
	}

	go checker.startPeriodicChecks(ctx)

	return checker
}

// IsHealthy returns current Redis connection health status
func (h *HealthChecker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Check performs a health check and returns the result
func (h *HealthChecker) Check(ctx context.Context) bool {
	result, err := h.circuitBreaker.Execute(func() (interface{}, error) {
		return h.client.Ping(ctx).Result()
	})

	isHealthy := err == nil && result.(string) == "PONG"

	h.mu.Lock()
	h.status = isHealthy
	h.mu.Unlock()

	return isHealthy
}

// startPeriodicChecks begins regular health checking
func (h *HealthChecker) startPeriodicChecks(ctx context.Context) {
	ticker := time.NewTicker(h.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			h.Check(checkCtx)
			cancel()
		}
	}
}
