package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/redis/go-redis/v9"
)

const redisPrefix = "medkeeper:lockout:"

// redisAPI is the subset of *redis.Client used by Redis.
type redisAPI interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis shares lockout state between processes. Failures live in a counter
// that expires after Window; a lock is a separate key that expires after
// Duration.
type Redis struct {
	rdb    redisAPI
	policy Policy
}

func NewRedis(rdb redisAPI, p Policy) *Redis {
	return &Redis{rdb: rdb, policy: p}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func failKey(key string) string { return redisPrefix + "fail:" + key }
func lockKey(key string) string { return redisPrefix + "lock:" + key }

func (r *Redis) Check(ctx context.Context, key string) error {
	n, err := r.rdb.Exists(ctx, lockKey(key)).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if n > 0 {
		return common.ErrTooManyAttempts
	}
	return nil
}

func (r *Redis) Fail(ctx context.Context, key string) error {
	n, err := r.rdb.Incr(ctx, failKey(key)).Result()
	if err != nil {
		return fmt.Errorf("redis incr: %w", err)
	}
	if n == 1 {
		if err := r.rdb.Expire(ctx, failKey(key), r.policy.Window).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}

	if n >= int64(r.policy.MaxAttempts) {
		if err := r.rdb.Set(ctx, lockKey(key), 1, r.policy.Duration).Err(); err != nil {
			return fmt.Errorf("redis set: %w", err)
		}
		if err := r.rdb.Del(ctx, failKey(key)).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, failKey(key), lockKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
