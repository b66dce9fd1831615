package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout = 5 * time.Second
	DefaultOpTimeout   = 3 * time.Second
	DefaultKeyPrefix   = "cd:auth:"
	scanBatch          = 100
)

// Redis is a fiber.Storage on a go-redis client. Every key is namespaced
// below a prefix, so Reset only removes the keys of this storage.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
	timeout   time.Duration
}

var _ fiber.Storage = (*Redis)(nil)

// NewRedis dials addr and checks the connection.
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultOpTimeout,
		WriteTimeout: DefaultOpTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the client to prevent resource leak
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisWithClient(client, DefaultKeyPrefix), nil
}

// NewRedisWithClient wraps a pre-configured client.
func NewRedisWithClient(client redis.UniversalClient, keyPrefix string) *Redis {
	return &Redis{
		client:    client,
		keyPrefix: keyPrefix,
		timeout:   DefaultOpTimeout,
	}
}

func (r *Redis) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

// Get returns nil, nil for a missing key.
func (r *Redis) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	ctx, cancel := r.ctx()
	defer cancel()

	val, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	return val, nil
}

// Set stores val under key. A zero exp keeps the key forever.
func (r *Redis) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	ctx, cancel := r.ctx()
	defer cancel()

	if err := r.client.Set(ctx, r.keyPrefix+key, val, exp).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *Redis) Delete(key string) error {
	if key == "" {
		return nil
	}

	ctx, cancel := r.ctx()
	defer cancel()

	if err := r.client.Del(ctx, r.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}

	return nil
}

// Reset removes every key below the prefix.
func (r *Redis) Reset() error {
	ctx, cancel := r.ctx()
	defer cancel()

	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", scanBatch).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis reset: %w", err)
	}

	return nil
}

// Close closes the Redis client connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
