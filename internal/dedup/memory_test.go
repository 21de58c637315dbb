package dedup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_AppendAndLookup(t *testing.T) {
	b := NewMemoryBackend()

	_, ok := b.Lookup(0xABCD)
	require.False(t, ok)

	b.AppendEntry(0xABCD, 1)
	b.AppendEntry(0xABCD, 7)

	got, ok := b.Lookup(0xABCD)
	require.True(t, ok)
	require.Equal(t, []uint64{1, 7}, got)
}

func TestMemoryBackend_VerificationHash(t *testing.T) {
	b := NewMemoryBackend()
	_, ok := b.VerificationHash(3)
	require.False(t, ok)

	var hash [32]byte
	hash[0] = 0x42
	b.AppendVerificationHash(3, hash)

	got, ok := b.VerificationHash(3)
	require.True(t, ok)
	require.Equal(t, hash, got)
}

func TestMemoryBackend_LookupReturnsIndependentCopy(t *testing.T) {
	b := NewMemoryBackend()
	b.AppendEntry(1, 10)

	got, _ := b.Lookup(1)
	got[0] = 999

	got2, _ := b.Lookup(1)
	require.Equal(t, uint64(10), got2[0], "mutating a returned slice must not corrupt internal state")
}
