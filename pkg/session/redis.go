package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"
)

const redisKeyPrefix = "novo:session:"

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
	MaxAge     time.Duration
}

// RedisStore keeps sessions as JSON values whose TTL is the time left until
// the session expires.
type RedisStore struct {
	client *redis.Client
	maxAge time.Duration
	group  singleflight.Group
	now    func() time.Time
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, config RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if config.Password != "" {
		opts.Password = config.Password
	}
	if config.DB > 0 {
		opts.DB = config.DB
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreFromClient(client, config.MaxAge), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, maxAge time.Duration) *RedisStore {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &RedisStore{
		client: client,
		maxAge: maxAge,
		now:    time.Now,
	}
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}

// Get loads a session. Concurrent lookups of the same key share one round
// trip, which runs detached from the first caller's cancellation so that one
// abandoned request cannot fail the others waiting on it.
func (r *RedisStore) Get(ctx context.Context, key string) (Session, error) {
	if key == "" {
		return Session{}, ErrInvalidKey
	}

	shared := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.load(shared, key)
	})
	if err != nil {
		return Session{}, err
	}
	return v.(Session), nil
}

func (r *RedisStore) load(ctx context.Context, key string) (Session, error) {
	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	} else if err != nil {
		return Session{}, fmt.Errorf("redis get failed: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		// Drop corrupt entries so the next login replaces them.
		r.client.Del(ctx, redisKey(key))
		return Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.Modules == nil {
		s.Modules = []Module{}
	}
	return s, nil
}

// Put stores s with a TTL of its remaining lifetime, capped at the store's
// max age.
func (r *RedisStore) Put(ctx context.Context, key string, s Session) error {
	if key == "" {
		return ErrInvalidKey
	}

	ttl := ttlFor(s, r.now(), r.maxAge)
	if ttl < 0 {
		r.client.Del(ctx, redisKey(key))
		return ErrExpired
	}
	if ttl == 0 {
		// A zero expiration would make the key persistent.
		ttl = time.Millisecond
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, redisKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if err := r.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Sweep scans every stored session and deletes the stale ones. Redis expires
// keys on its own; this catches sessions that became stale some other way.
func (r *RedisStore) Sweep(ctx context.Context, stale func(Session) bool) (int, error) {
	removed := 0
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		fullKey := iter.Val()
		data, err := r.client.Get(ctx, fullKey).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		} else if err != nil {
			return removed, fmt.Errorf("redis get failed for %s: %w", fullKey, err)
		}

		var s Session
		if err := json.Unmarshal(data, &s); err != nil || stale(s) {
			if err := r.client.Del(ctx, fullKey).Err(); err != nil {
				return removed, fmt.Errorf("failed to delete key %s: %w", fullKey, err)
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan failed: %w", err)
	}
	return removed, nil
}

// Ping checks Redis connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Client returns the underlying client for health checks.
func (r *RedisStore) Client() *redis.Client {
	return r.client
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
