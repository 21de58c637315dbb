package dedup

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisBackend(t *testing.T) *RedisBackend {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	return OpenRedisBackend(context.Background(), client)
}

func TestRedisBackend_AppendAndLookup(t *testing.T) {
	b := newTestRedisBackend(t)

	_, ok := b.Lookup(7)
	require.False(t, ok)

	b.AppendEntry(7, 1)
	b.AppendEntry(7, 2)

	got, ok := b.Lookup(7)
	require.True(t, ok)
	require.ElementsMatch(t, []uint64{1, 2}, got)
}

func TestRedisBackend_VerificationHash(t *testing.T) {
	b := newTestRedisBackend(t)

	var hash [32]byte
	hash[5] = 0x11
	b.AppendVerificationHash(4, hash)

	got, ok := b.VerificationHash(4)
	require.True(t, ok)
	require.Equal(t, hash, got)
}

func TestRedisBackend_DistinctFingerprintsDoNotCollide(t *testing.T) {
	b := newTestRedisBackend(t)
	b.AppendEntry(1, 100)
	b.AppendEntry(2, 200)

	got1, ok := b.Lookup(1)
	require.True(t, ok)
	require.Equal(t, []uint64{100}, got1)

	got2, ok := b.Lookup(2)
	require.True(t, ok)
	require.Equal(t, []uint64{200}, got2)
}
