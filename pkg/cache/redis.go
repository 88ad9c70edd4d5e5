package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
	config *RedisConfig
}

type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// guardedIncrScript increments a bounded counter only while it is below the
// limit, setting the expiry on first use. Returns {count, allowed}. Keeping
// the check and the increment in one script is what makes N concurrent
// reservations admit exactly min(N, remaining).
var guardedIncrScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if count >= limit then
    return {count, 0}
end
count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {count, 1}
`)

func NewRedisCache(config *RedisConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: rdb,
		config: config,
	}, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Exists(ctx, key).Result()
	return count > 0, err
}

// GuardedIncrement atomically increments key only while its value is below
// limit. Returns the observed count and whether the increment was admitted.
func (r *RedisCache) GuardedIncrement(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	result, err := guardedIncrScript.Run(ctx, r.client, []string{key}, limit, ttl.Milliseconds()).Slice()
	if err != nil {
		return 0, false, fmt.Errorf("guarded increment failed: %w", err)
	}
	if len(result) != 2 {
		return 0, false, fmt.Errorf("unexpected guarded increment reply: %v", result)
	}

	count, ok := result[0].(int64)
	if !ok {
		return 0, false, fmt.Errorf("unexpected count type %T from guarded increment", result[0])
	}
	allowed, ok := result[1].(int64)
	if !ok {
		return 0, false, fmt.Errorf("unexpected flag type %T from guarded increment", result[1])
	}
	return count, allowed == 1, nil
}

// Decrement compensates a previously admitted GuardedIncrement.
func (r *RedisCache) Decrement(ctx context.Context, key string) (int64, error) {
	return r.client.Decr(ctx, key).Result()
}

// GetCounter reads an integer counter, returning 0 for a missing key.
func (r *RedisCache) GetCounter(ctx context.Context, key string) (int64, error) {
	value, err := r.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return value, err
}

func (r *RedisCache) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	return r.client.TTL(ctx, key).Result()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
