package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auth_backend/internal/storage"

	"github.com/redis/go-redis/v9"
)

type RedisLedger struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisLedger, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisLedger{
		client: client,
	}, nil
}

func (r *RedisLedger) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	const op = "storage.redis.Set"

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisLedger) Get(ctx context.Context, key string) (string, error) {
	const op = "storage.redis.Get"

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrKeyNotFound
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return val, nil
}

func (r *RedisLedger) Delete(ctx context.Context, key string) error {
	const op = "storage.redis.Delete"

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisLedger) Increment(ctx context.Context, key string) (int64, error) {
	const op = "storage.redis.Increment"

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func (r *RedisLedger) Expire(ctx context.Context, key string, ttl time.Duration) error {
	const op = "storage.redis.Expire"

	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Close закрывает соединение с базой данных.
func (r *RedisLedger) Close() {
	r.client.Close()
}
