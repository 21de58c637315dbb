package dedup

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBboltBackend_AppendAndLookup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "dedup.bbolt")
	b, err := OpenBboltBackend(dbPath)
	require.NoError(t, err)
	defer b.Close()

	_, ok := b.Lookup(42)
	require.False(t, ok)

	b.AppendEntry(42, 1)
	b.AppendEntry(42, 5)

	got, ok := b.Lookup(42)
	require.True(t, ok)
	require.Equal(t, []uint64{1, 5}, got)
}

func TestBboltBackend_VerificationHash(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "dedup.bbolt")
	b, err := OpenBboltBackend(dbPath)
	require.NoError(t, err)
	defer b.Close()

	var hash [32]byte
	hash[31] = 0x7F
	b.AppendVerificationHash(9, hash)

	got, ok := b.VerificationHash(9)
	require.True(t, ok)
	require.Equal(t, hash, got)

	_, ok = b.VerificationHash(10)
	require.False(t, ok)
}

func TestBboltBackend_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "dedup.bbolt")

	b1, err := OpenBboltBackend(dbPath)
	require.NoError(t, err)
	b1.AppendEntry(100, 3)
	require.NoError(t, b1.Close())

	b2, err := OpenBboltBackend(dbPath)
	require.NoError(t, err)
	defer b2.Close()

	got, ok := b2.Lookup(100)
	require.True(t, ok)
	require.Equal(t, []uint64{3}, got)
}
