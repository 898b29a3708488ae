package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hazz-dev/resmon/internal/check"
)

const redisKeyPrefix = "resmon:result:"

// redisRetention bounds how long an entry outlives its TTL in Redis. The
// entry must survive past its own expiry so Last can read the previous
// result for transition detection; retention only reclaims keys for
// resources that stopped being checked entirely.
const redisRetention = 24 * time.Hour

// RedisOptions configures the Redis cache backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// Redis is a Cache backed by a Redis server, for deployments where several
// engine restarts (or replicas reading the same state) must share debounce
// history. Entries carry their own expiry; the Redis key TTL is only a
// retention bound.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	return &Redis{client: client}, nil
}

// NewRedisWithClient wraps an existing client (for testing against miniredis).
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, name string) (*Entry, error) {
	entry, err := r.Last(ctx, name)
	if err != nil {
		return nil, err
	}
	if entry.Expired() {
		return nil, ErrMiss
	}
	return entry, nil
}

func (r *Redis) Last(ctx context.Context, name string) (*Entry, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+name).Result()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", name, err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("decoding cached entry for %q: %w", name, err)
	}
	return &entry, nil
}

func (r *Redis) Put(ctx context.Context, name string, result check.Result, ttl time.Duration) error {
	entry := Entry{
		Result:    result,
		ExpiresAt: time.Now().Add(ttl),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding entry for %q: %w", name, err)
	}

	retention := redisRetention
	if ttl > 0 {
		retention += ttl
	}
	if err := r.client.Set(ctx, redisKeyPrefix+name, raw, retention).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", name, err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, name string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+name).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", name, err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
