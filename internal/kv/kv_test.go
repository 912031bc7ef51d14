package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, "test:"), mr
}

// exercise runs the behavior every Store must share.
func exercise(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "a", "1", 0))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	got, err = s.Take(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	_, err = s.Take(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "b", "2", time.Hour))
	require.NoError(t, s.Delete(ctx, "b"))
	_, err = s.Get(ctx, "b")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "never-set"))
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemory())
}

func TestRedisStore(t *testing.T) {
	s, _ := setupTestRedis(t)
	exercise(t, s)
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "session:1", "u", time.Minute))
	require.NoError(t, m.Set(ctx, "session:2", "u", 0))

	now = now.Add(2 * time.Minute)
	_, err := m.Get(ctx, "session:1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(ctx, "session:3", "u", time.Second))
	now = now.Add(time.Minute)
	assert.Equal(t, 1, m.Sweep())

	got, err := m.Get(ctx, "session:2")
	require.NoError(t, err)
	assert.Equal(t, "u", got)
}

func TestRedisExpiryAndPrefix(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	assert.True(t, mr.Exists("test:k"))

	mr.FastForward(2 * time.Minute)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDialFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Dial(ctx, addr, "", 0)
	assert.Error(t, err)
}
