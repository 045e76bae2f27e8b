package memory

import (
	"context"
	"testing"
	"time"

	"auth_backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	l := New()
	defer l.Close()
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "k", "v", 0))

	val, err := l.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestGetMissing(t *testing.T) {
	l := New()
	defer l.Close()

	_, err := l.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestTTLExpiry(t *testing.T) {
	l := New()
	defer l.Close()
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "k", "v", 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)

	_, err := l.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestDelete(t *testing.T) {
	l := New()
	defer l.Close()
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "k", "v", 0))
	require.NoError(t, l.Delete(ctx, "k"))

	_, err := l.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	// deleting a missing key is not an error
	assert.NoError(t, l.Delete(ctx, "k"))
}

func TestIncrement(t *testing.T) {
	l := New()
	defer l.Close()
	ctx := context.Background()

	count, err := l.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = l.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	val, err := l.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "2", val)
}

func TestIncrementNonInteger(t *testing.T) {
	l := New()
	defer l.Close()
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "k", "abc", 0))

	_, err := l.Increment(ctx, "k")
	assert.Error(t, err)
}

func TestIncrementExpiredKeyRestarts(t *testing.T) {
	l := New()
	defer l.Close()
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "counter", "5", 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)

	count, err := l.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestExpire(t *testing.T) {
	l := New()
	defer l.Close()
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "k", "v", 0))
	require.NoError(t, l.Expire(ctx, "k", 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)

	_, err := l.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestExpireMissing(t *testing.T) {
	l := New()
	defer l.Close()

	err := l.Expire(context.Background(), "missing", time.Minute)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}
