package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrKeyNotFound  = errors.New("key not found")
)

// * Ledger — TTL-хранилище эфемерного состояния аутентификации
// (refresh токены, блэклист, коды подтверждения, счетчики).
// Конкретный бэкенд (redis, in-memory) подставляется за этим интерфейсом.
type Ledger interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
