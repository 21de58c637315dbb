package acquire

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/zffcore/internal/container"
	"github.com/kenneth/zffcore/internal/dedup"
	"github.com/kenneth/zffcore/internal/object"
	"github.com/kenneth/zffcore/internal/segment"
	"github.com/kenneth/zffcore/internal/zcrypto"
)

func TestAcquirePhysical_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := segment.NewWriter(dir, "case", segment.Policy{TargetSegmentSize: 1 << 30, ChunkmapSize: 1 << 20})
	require.NoError(t, err)

	plaintext := make([]byte, 5*64*1024+37)
	_, err = rand.Read(plaintext)
	require.NoError(t, err)

	desc := object.NewDescriptionHeader()
	desc.SetCaseNumber("case-001")

	nextChunk, err := AcquirePhysical(context.Background(), w, 1, 0, bytes.NewReader(plaintext), Options{
		ChunkSize:   64 * 1024,
		Dedup:       dedup.NewMemoryBackend(),
		HashTypes:   []object.HashType{object.HashTypeBlake3, object.HashTypeSHA256},
		Description: desc,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(6), nextChunk)
	require.NoError(t, w.Close())

	c, err := container.Open(dir, "case")
	require.NoError(t, err)
	defer c.Close()

	obj, err := c.OpenObject(1, "")
	require.NoError(t, err)

	out := make([]byte, len(plaintext))
	n, err := obj.ReadAt(out, 0)
	require.True(t, err == nil || err == io.EOF)
	assert.Equal(t, len(plaintext), n)
	assert.Equal(t, plaintext, out)

	require.NotNil(t, obj.Physical)
	footer := obj.Physical
	assert.Equal(t, uint64(len(plaintext)), footer.LengthOfData)
	assert.Equal(t, uint64(6), footer.NumberOfChunks)

	blake3Value, ok := footer.HashHeader.ByType(object.HashTypeBlake3)
	require.True(t, ok)
	want := zcrypto.Blake3Sum256(plaintext)
	assert.Equal(t, want[:], blake3Value.Digest)
}

func TestAcquirePhysical_EmptyStream(t *testing.T) {
	dir := t.TempDir()
	w, err := segment.NewWriter(dir, "empty", segment.Policy{TargetSegmentSize: 1 << 30, ChunkmapSize: 1 << 20})
	require.NoError(t, err)

	nextChunk, err := AcquirePhysical(context.Background(), w, 1, 0, bytes.NewReader(nil), Options{
		ChunkSize: 64 * 1024,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nextChunk)
	require.NoError(t, w.Close())

	c, err := container.Open(dir, "empty")
	require.NoError(t, err)
	defer c.Close()

	obj, err := c.OpenObject(1, "")
	require.NoError(t, err)
	require.NotNil(t, obj.Physical)
	assert.Equal(t, uint64(0), obj.Physical.LengthOfData)
	assert.Equal(t, uint64(1), obj.Physical.NumberOfChunks)
}
