package auth

import (
	"context"
	"errors"
	"time"

	"auth_backend/internal/storage"
)

const (
	refreshPrefix   = "REFRESH_TOKEN:"
	blacklistPrefix = "BLACKLIST:"
	whitelistPrefix = "WHITELIST:"
)

// * refreshStore хранит единственный живой refresh токен на пользователя
type refreshStore struct {
	ledger storage.Ledger
}

func (s *refreshStore) Save(ctx context.Context, userID, token string, ttl time.Duration) error {
	return s.ledger.Set(ctx, refreshPrefix+userID, token, ttl)
}

func (s *refreshStore) Get(ctx context.Context, userID string) (string, error) {
	return s.ledger.Get(ctx, refreshPrefix+userID)
}

func (s *refreshStore) Delete(ctx context.Context, userID string) error {
	return s.ledger.Delete(ctx, refreshPrefix+userID)
}

// * blacklist — токены, отозванные до истечения собственного срока.
// TTL записи не превышает остаток жизни токена.
type blacklist struct {
	ledger storage.Ledger
}

func (b *blacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	return b.ledger.Set(ctx, blacklistPrefix+token, token, ttl)
}

func (b *blacklist) Contains(ctx context.Context, token string) (bool, error) {
	saved, err := b.ledger.Get(ctx, blacklistPrefix+token)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}

		return false, err
	}

	return saved == token, nil
}

type whitelist struct {
	ledger storage.Ledger
}

func (w *whitelist) Add(ctx context.Context, token string, ttl time.Duration) error {
	return w.ledger.Set(ctx, whitelistPrefix+token, token, ttl)
}

func (w *whitelist) Delete(ctx context.Context, token string) error {
	return w.ledger.Delete(ctx, whitelistPrefix+token)
}
