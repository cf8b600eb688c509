package coordstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when it still holds the caller's value.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// incrWindowScript increments the counter and starts the window expiry on the
// first increment only, so the window is not extended by later attempts.
var incrWindowScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return c
`)

// RedisStore implements Store on a shared Redis instance. All primitives
// execute server-side (SETNX, GETDEL, Lua), so they are atomic across
// processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis at addr and verifies the connection.
// Caller must call Close when shutting down.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// Reserve sets key=value with ttl only if key is absent (SET NX PX).
func (s *RedisStore) Reserve(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

// Release deletes key only while it still holds value.
func (s *RedisStore) Release(ctx context.Context, key, value string) error {
	return releaseScript.Run(ctx, s.client, []string{key}, value).Err()
}

// RegisterOnce creates the single-use marker with ttl.
func (s *RedisStore) RegisterOnce(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyRegistered
	}
	return nil
}

// ConsumeMatching deletes key only if it holds value, reporting whether this
// caller deleted it. Runs the same compare-and-delete script as Release.
func (s *RedisStore) ConsumeMatching(ctx context.Context, key, value string) (bool, error) {
	res, err := releaseScript.Run(ctx, s.client, []string{key}, value).Result()
	if err != nil {
		return false, err
	}
	n, ok := res.(int64)
	if !ok {
		return false, errors.New("coordstore: unexpected script result")
	}
	return n == 1, nil
}

// ConsumeOnce atomically removes the marker and reports whether it existed.
func (s *RedisStore) ConsumeOnce(ctx context.Context, key string) (bool, error) {
	_, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IncrWindow increments the sliding-window counter and returns the new count.
func (s *RedisStore) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	res, err := incrWindowScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	n, ok := res.(int64)
	if !ok {
		return 0, errors.New("coordstore: unexpected script result")
	}
	return n, nil
}

// Get returns the value for key and whether it exists.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores key=value with ttl.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Del removes key.
func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
