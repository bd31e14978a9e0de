package activecall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "activecall:"

// RedisIndex stores index entries in Redis with a TTL so entries for
// crashed or abandoned calls cannot leak forever. The TTL must comfortably
// exceed the longest expected call; expiry is only a safety net.
type RedisIndex struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIndex(rdb *redis.Client, ttl time.Duration) (*RedisIndex, error) {
	if rdb == nil {
		return nil, errors.New("activecall: redis client is nil")
	}
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	return &RedisIndex{rdb: rdb, ttl: ttl}, nil
}

func (i *RedisIndex) Put(ctx context.Context, externalCallID, sessionID string) error {
	if externalCallID == "" || sessionID == "" {
		return errors.New("activecall: external call id and session id required")
	}
	if err := i.rdb.Set(ctx, keyPrefix+externalCallID, sessionID, i.ttl).Err(); err != nil {
		return fmt.Errorf("activecall: put failed: %w", err)
	}
	return nil
}

func (i *RedisIndex) Get(ctx context.Context, externalCallID string) (string, bool, error) {
	if externalCallID == "" {
		return "", false, nil
	}
	v, err := i.rdb.Get(ctx, keyPrefix+externalCallID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("activecall: get failed: %w", err)
	}
	return v, true, nil
}

func (i *RedisIndex) Delete(ctx context.Context, externalCallID string) error {
	if externalCallID == "" {
		return nil
	}
	if err := i.rdb.Del(ctx, keyPrefix+externalCallID).Err(); err != nil {
		return fmt.Errorf("activecall: delete failed: %w", err)
	}
	return nil
}
