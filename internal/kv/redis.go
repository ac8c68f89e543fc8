// AngelaMos | 2026
// redis.go

package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var incrementScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RedisStore shares state across instances. Counters go through Increment,
// which runs as one script so replicas never lose a hit.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get: %w", err)
	}
	return val, true, nil
}

func (s *RedisStore) Set(
	ctx context.Context,
	key string,
	value []byte,
	ttl time.Duration,
) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("kv delete: %w", err)
	}
	return nil
}

func (s *RedisStore) Increment(
	ctx context.Context,
	key string,
	ttl time.Duration,
) (int64, time.Duration, error) {
	if ttl <= 0 {
		return 0, 0, fmt.Errorf("kv increment: ttl must be positive")
	}

	vals, err := incrementScript.Run(ctx, s.client, []string{s.prefix + key}, ttl.Milliseconds()).
		Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("kv increment: %w", err)
	}
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("kv increment: unexpected reply %v", vals)
	}

	return vals[0], time.Duration(vals[1]) * time.Millisecond, nil
}

var (
	_ Store   = (*RedisStore)(nil)
	_ Counter = (*RedisStore)(nil)
)
