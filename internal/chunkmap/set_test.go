package chunkmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet_AppendChunk_PopulatesConditionalMaps(t *testing.T) {
	s := NewSet(32768)

	require.NoError(t, s.AppendChunk(ChunkEntry{
		ChunkNumber: 1,
		Offset:      0,
		Size:        0,
		Flags:       FlagSameBytes,
		Xxhash:      0x1111,
		SameByte:    0xFF,
	}))
	require.NoError(t, s.AppendChunk(ChunkEntry{
		ChunkNumber: 2,
		Offset:      0,
		Size:        0,
		Flags:       FlagDuplicate,
		Xxhash:      0x1111,
		DuplicateOf: 1,
	}))
	require.NoError(t, s.AppendChunk(ChunkEntry{
		ChunkNumber: 3,
		Offset:      32768,
		Size:        1024,
		Flags:       FlagCompression,
		Xxhash:      0x2222,
	}))

	v, ok := s.samebytes.Get(1)
	require.True(t, ok)
	require.Equal(t, byte(0xFF), v)

	_, ok = s.samebytes.Get(3)
	require.False(t, ok, "chunk 3 has no same_bytes flag and must not appear in the samebytes map")

	d, ok := s.dedup.Get(2)
	require.True(t, ok)
	require.Equal(t, uint64(1), d)

	require.Equal(t, 3, s.offset.Len())
	require.Equal(t, 3, s.size.Len())
	require.Equal(t, 3, s.flags.Len())
	require.Equal(t, 3, s.xxhash.Len())
}

func TestSet_AppendChunk_RejectsSameBytesAndDuplicateTogether(t *testing.T) {
	s := NewSet(32768)
	err := s.AppendChunk(ChunkEntry{
		ChunkNumber: 1,
		Flags:       FlagSameBytes | FlagDuplicate,
	})
	require.Error(t, err)
}

func TestSet_FlushAllNonEmpty_ClearsAndReportsHighestChunkNumbers(t *testing.T) {
	s := NewSet(32768)
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, s.AppendChunk(ChunkEntry{
			ChunkNumber: i,
			Offset:      i * 100,
			Size:        100,
			Flags:       0,
			Xxhash:      i,
		}))
	}

	results := s.FlushAllNonEmpty()
	// Only the four unconditional maps (offset, size, flags, xxhash) have
	// entries; samebytes/dedup stay empty since no chunk set those flags.
	require.Len(t, results, 4)
	for _, r := range results {
		require.Equal(t, uint64(5), r.HighestChunkNumber)
		require.NotEmpty(t, r.Body)
	}

	// After flushing, the underlying maps are fresh and empty.
	require.Equal(t, 0, s.offset.Len())
	require.Empty(t, s.Due())
}

func TestSet_Due_TriggersOnlyForFullMaps(t *testing.T) {
	s := NewSet(32768)
	require.Empty(t, s.Due())

	require.NoError(t, s.AppendChunk(ChunkEntry{ChunkNumber: 1, Offset: 0, Size: 10, Flags: 0, Xxhash: 1}))
	require.Empty(t, s.Due(), "a single small entry should not fill a 32KiB-target map")
}
