package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/zffcore/internal/chunking"
	"github.com/kenneth/zffcore/internal/chunkmap"
	"github.com/kenneth/zffcore/internal/coding"
)

func TestWriter_SegmentPath_Naming(t *testing.T) {
	assert.Equal(t, filepath.Join("dir", "case.z00"), segmentPath("dir", "case", 1))
	assert.Equal(t, filepath.Join("dir", "case.z09"), segmentPath("dir", "case", 10))
}

func TestWriter_WriteAndReadBack(t *testing.T) {
	dir := t.TempDir()
	stem := "case"

	w, err := NewWriter(dir, stem, Policy{TargetSegmentSize: 1 << 30, ChunkmapSize: 1 << 20})
	require.NoError(t, err)

	objectHeader := coding.EncodeFrame(coding.IdentifierObjectHeader, coding.VersionObjectHeader, []byte("object-header-body"))
	require.NoError(t, w.WriteObjectHeader(1, objectHeader))

	chunks := []chunking.PreparedChunk{
		{ChunkNumber: 1, Payload: []byte("hello"), Entry: chunkmap.ChunkEntry{ChunkNumber: 1, Size: 5, Flags: 0, Xxhash: 111}},
		{ChunkNumber: 2, Payload: []byte("world!"), Entry: chunkmap.ChunkEntry{ChunkNumber: 2, Size: 6, Flags: 0, Xxhash: 222}},
		{ChunkNumber: 3, Payload: nil, Entry: chunkmap.ChunkEntry{ChunkNumber: 3, Size: 0, Flags: chunkmap.FlagSameBytes, SameByte: 0x00}},
	}
	for _, pc := range chunks {
		require.NoError(t, w.AppendChunk(pc))
	}

	objectFooter := coding.EncodeFrame(coding.IdentifierObjectFooterPhysical, coding.VersionObjectFooterPhysical, []byte("object-footer-body"))
	require.NoError(t, w.WriteObjectFooter(1, objectFooter))

	w.SetDescriptionNotes("integration test segment")
	require.NoError(t, w.Close())

	path := segmentPath(dir, stem, 1)
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, w.UniqueIdentifier(), r.Header.UniqueIdentifier)
	assert.Equal(t, uint64(1), r.Header.SegmentNumber)

	require.Contains(t, r.Footer.ObjectHeaderOffsets, uint64(1))
	require.Contains(t, r.Footer.ObjectFooterOffsets, uint64(1))
	assert.Equal(t, uint64(1), r.Footer.FirstChunkNumber)

	entry1, err := r.Chunk(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), entry1.Size)
	assert.Equal(t, uint64(111), entry1.Xxhash)
	assert.False(t, entry1.Flags.IsSameBytes())

	entry3, err := r.Chunk(3)
	require.NoError(t, err)
	assert.True(t, entry3.Flags.IsSameBytes())
	assert.Equal(t, byte(0x00), entry3.SameByte)

	frame, body, err := r.ReadFrameAt(r.Footer.ObjectHeaderOffsets[1], coding.IdentifierObjectHeader)
	require.NoError(t, err)
	assert.Equal(t, coding.IdentifierObjectHeader, frame.Identifier)
	assert.Equal(t, "object-header-body", string(body))
}

func TestWriter_RolloverAcrossSegments(t *testing.T) {
	dir := t.TempDir()
	stem := "roll"

	// A tiny target forces a rollover after the very first chunk.
	w, err := NewWriter(dir, stem, Policy{TargetSegmentSize: 32, ChunkmapSize: 1 << 20})
	require.NoError(t, err)

	require.NoError(t, w.AppendChunk(chunking.PreparedChunk{
		ChunkNumber: 1, Payload: []byte("0123456789abcdef"),
		Entry: chunkmap.ChunkEntry{ChunkNumber: 1, Size: 16, Xxhash: 1},
	}))
	assert.Equal(t, uint64(2), w.SegmentNumber())

	require.NoError(t, w.AppendChunk(chunking.PreparedChunk{
		ChunkNumber: 2, Payload: []byte("fedcba9876543210"),
		Entry: chunkmap.ChunkEntry{ChunkNumber: 2, Size: 16, Xxhash: 2},
	}))
	require.NoError(t, w.Close())

	_, err = os.Stat(segmentPath(dir, stem, 1))
	require.NoError(t, err)
	_, err = os.Stat(segmentPath(dir, stem, 2))
	require.NoError(t, err)

	r1, err := Open(segmentPath(dir, stem, 1))
	require.NoError(t, err)
	defer r1.Close()
	entry1, err := r1.Chunk(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), entry1.Size)

	r2, err := Open(segmentPath(dir, stem, 2))
	require.NoError(t, err)
	defer r2.Close()
	entry2, err := r2.Chunk(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), entry2.Size)
}

func TestExtend_ResumesAppending(t *testing.T) {
	dir := t.TempDir()
	stem := "extend"

	w, err := NewWriter(dir, stem, Policy{TargetSegmentSize: 1 << 30, ChunkmapSize: 1 << 20})
	require.NoError(t, err)
	require.NoError(t, w.AppendChunk(chunking.PreparedChunk{
		ChunkNumber: 1, Payload: []byte("first"),
		Entry: chunkmap.ChunkEntry{ChunkNumber: 1, Size: 5, Xxhash: 1},
	}))
	require.NoError(t, w.Close())

	w2, nextChunk, err := Extend(dir, stem, Policy{TargetSegmentSize: 1 << 30, ChunkmapSize: 1 << 20})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), nextChunk)

	require.NoError(t, w2.AppendChunk(chunking.PreparedChunk{
		ChunkNumber: nextChunk, Payload: []byte("second"),
		Entry: chunkmap.ChunkEntry{ChunkNumber: nextChunk, Size: 6, Xxhash: 2},
	}))
	require.NoError(t, w2.Close())

	r, err := Open(segmentPath(dir, stem, 1))
	require.NoError(t, err)
	defer r.Close()

	e1, err := r.Chunk(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), e1.Size)

	e2, err := r.Chunk(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), e2.Size)
}
