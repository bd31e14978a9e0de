package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"virtualphone-platform/pkg/utils"
)

// CallSlotLimiter caps simultaneous outbound calls per account.
type CallSlotLimiter interface {
	Acquire(ctx context.Context, accountID string) (bool, error)
	Release(ctx context.Context, accountID string)
}

// RedisCallLimiter enforces the cap across instances. Slots carry a TTL
// so a crashed instance cannot strand an account at its limit.
type RedisCallLimiter struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisCallLimiter(rdb *redis.Client, limit int, ttl time.Duration) *RedisCallLimiter {
	return &RedisCallLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func (l *RedisCallLimiter) key(accountID string) string {
	return fmt.Sprintf("calls:concurrent:%s", accountID)
}

func (l *RedisCallLimiter) Acquire(ctx context.Context, accountID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, l.key(accountID), l.limit, l.ttl)
}

func (l *RedisCallLimiter) Release(ctx context.Context, accountID string) {
	_ = utils.ReleaseConcurrencyCap(ctx, l.rdb, l.key(accountID))
}

// UnlimitedCalls disables the cap. Used in tests and local development.
type UnlimitedCalls struct{}

func (UnlimitedCalls) Acquire(ctx context.Context, accountID string) (bool, error) { return true, nil }
func (UnlimitedCalls) Release(ctx context.Context, accountID string)               {}
