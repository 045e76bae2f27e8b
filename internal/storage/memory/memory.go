package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"auth_backend/internal/storage"
)

type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// * Ledger — in-memory реализация хранилища с TTL.
// Используется в тестах и при локальной разработке без redis.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]entry
	done    chan struct{}
	once    sync.Once
}

func New() *Ledger {
	l := &Ledger{
		entries: make(map[string]entry),
		done:    make(chan struct{}),
	}

	go l.reap(time.Minute)

	return l
}

func (l *Ledger) Set(_ context.Context, key, value string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	l.entries[key] = e

	return nil
}

func (l *Ledger) Get(_ context.Context, key string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return "", storage.ErrKeyNotFound
	}

	if e.expired(time.Now()) {
		delete(l.entries, key)
		return "", storage.ErrKeyNotFound
	}

	return e.value, nil
}

func (l *Ledger) Delete(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, key)

	return nil
}

// * Increment повторяет семантику redis INCR: отсутствующий ключ
// считается нулем, TTL существующего ключа сохраняется
func (l *Ledger) Increment(_ context.Context, key string) (int64, error) {
	const op = "storage.memory.Increment"

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	e, ok := l.entries[key]
	if !ok || e.expired(now) {
		l.entries[key] = entry{value: "1"}
		return 1, nil
	}

	count, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: value is not an integer: %w", op, err)
	}

	count++
	e.value = strconv.FormatInt(count, 10)
	l.entries[key] = e

	return count, nil
}

func (l *Ledger) Expire(_ context.Context, key string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || e.expired(time.Now()) {
		return storage.ErrKeyNotFound
	}

	e.expiresAt = time.Now().Add(ttl)
	l.entries[key] = e

	return nil
}

func (l *Ledger) Close() {
	l.once.Do(func() {
		close(l.done)
	})
}

func (l *Ledger) reap(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for key, e := range l.entries {
				if e.expired(now) {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
