package chunking

import (
	"bytes"
	"context"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kenneth/zffcore/internal/zcrypto"
)

// memDedup is a minimal in-test Dedup implementation so pipeline tests
// don't depend on internal/dedup's concrete backends. It is mutex-guarded
// because the pipeline's workers call it concurrently.
type memDedup struct {
	mu      sync.Mutex
	entries map[uint64][]uint64
	verify  map[uint64][32]byte
}

func newMemDedup() *memDedup {
	return &memDedup{entries: make(map[uint64][]uint64), verify: make(map[uint64][32]byte)}
}

func (d *memDedup) Lookup(xxhash uint64) ([]uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.entries[xxhash]
	return append([]uint64(nil), v...), ok
}

func (d *memDedup) AppendEntry(xxhash uint64, chunkNumber uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[xxhash] = append(d.entries[xxhash], chunkNumber)
}

func (d *memDedup) VerificationHash(chunkNumber uint64) ([32]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.verify[chunkNumber]
	return v, ok
}

func (d *memDedup) AppendVerificationHash(chunkNumber uint64, hash [32]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.verify[chunkNumber] = hash
}

func collect(t *testing.T, results <-chan Result) []PreparedChunk {
	t.Helper()
	var out []PreparedChunk
	for r := range results {
		require.NoError(t, r.Err)
		out = append(out, r.Chunk)
	}
	return out
}

// TestPipeline_ScenarioI mirrors spec scenario (i): three 32 KiB blocks —
// all-zero, random, all-0xFF — with no compression/encryption/dedup.
func TestPipeline_ScenarioI(t *testing.T) {
	const chunkSize = 32 * 1024
	block0 := bytes.Repeat([]byte{0x00}, chunkSize)
	block1 := make([]byte, chunkSize)
	_, err := rand.Read(block1)
	require.NoError(t, err)
	// Ensure block1 is never accidentally uniform (would break the test's premise).
	block1[0] ^= 0x01
	block1[1] = block1[0] ^ 0xFF
	block2 := bytes.Repeat([]byte{0xFF}, chunkSize)

	input := append(append(append([]byte{}, block0...), block1...), block2...)

	p := NewPipeline(Config{ChunkSize: chunkSize})
	results := p.ProcessStream(context.Background(), bytes.NewReader(input), 1, false)
	chunks := collect(t, results)

	require.Len(t, chunks, 3)

	require.True(t, chunks[0].Entry.Flags.IsSameBytes())
	require.Equal(t, byte(0x00), chunks[0].Entry.SameByte)
	require.Empty(t, chunks[0].Payload)

	require.False(t, chunks[1].Entry.Flags.IsSameBytes())
	require.False(t, chunks[1].Entry.Flags.IsDuplicate())
	require.Len(t, chunks[1].Payload, chunkSize)

	require.True(t, chunks[2].Entry.Flags.IsSameBytes())
	require.Equal(t, byte(0xFF), chunks[2].Entry.SameByte)
	require.Empty(t, chunks[2].Payload)
}

// TestPipeline_ScenarioII mirrors spec scenario (ii): 8 copies of the same
// 32 KiB random block, Zstd + dedup enabled — chunk 1 compresses, 2..8
// dedup against it.
func TestPipeline_ScenarioII(t *testing.T) {
	const chunkSize = 32 * 1024
	block := make([]byte, chunkSize)
	_, err := rand.Read(block)
	require.NoError(t, err)
	// Make the block compressible so the threshold is met deterministically.
	for i := range block {
		block[i] = byte(i % 7)
	}

	var input bytes.Buffer
	for i := 0; i < 8; i++ {
		input.Write(block)
	}

	dedup := newMemDedup()
	p := NewPipeline(Config{
		ChunkSize:   chunkSize,
		Compression: CompressionConfig{Algorithm: CompressionZstd, Level: 3, Threshold: 1.05},
		Dedup:       dedup,
	})
	results := p.ProcessStream(context.Background(), &input, 1, false)
	chunks := collect(t, results)

	require.Len(t, chunks, 8)
	require.True(t, chunks[0].Entry.Flags.IsCompressed())
	require.NotEmpty(t, chunks[0].Payload)

	for i := 1; i < 8; i++ {
		require.True(t, chunks[i].Entry.Flags.IsDuplicate(), "chunk %d should be a duplicate", i+1)
		require.Equal(t, uint64(1), chunks[i].Entry.DuplicateOf)
		require.Empty(t, chunks[i].Payload)
	}
}

// TestPipeline_ScenarioIII mirrors spec scenario (iii): same_bytes
// short-circuits before encryption — a uniform chunk never carries the
// encryption flag even when an AEAD is configured.
func TestPipeline_ScenarioIII(t *testing.T) {
	const chunkSize = 32 * 1024
	key := make([]byte, zcrypto.AlgorithmAES256GCMSIV.KeyLen())
	_, err := rand.Read(key)
	require.NoError(t, err)
	aead, err := zcrypto.NewAEAD(zcrypto.AlgorithmAES256GCMSIV, key)
	require.NoError(t, err)

	input := bytes.Repeat([]byte{0xA5}, chunkSize)

	p := NewPipeline(Config{
		ChunkSize:  chunkSize,
		Encryption: &EncryptionConfig{Algorithm: zcrypto.AlgorithmAES256GCMSIV, AEAD: aead},
	})
	results := p.ProcessStream(context.Background(), bytes.NewReader(input), 1, false)
	chunks := collect(t, results)

	require.Len(t, chunks, 1)
	require.True(t, chunks[0].Entry.Flags.IsSameBytes())
	require.False(t, chunks[0].Entry.Flags.IsEncrypted())
	require.Equal(t, byte(0xA5), chunks[0].Entry.SameByte)
	require.Empty(t, chunks[0].Payload)
}

func TestPipeline_EmptyFile(t *testing.T) {
	p := NewPipeline(Config{ChunkSize: 32 * 1024})
	results := p.ProcessStream(context.Background(), bytes.NewReader(nil), 1, true)
	chunks := collect(t, results)

	require.Len(t, chunks, 1)
	require.True(t, chunks[0].Entry.Flags.IsEmptyFile())
	require.Empty(t, chunks[0].Payload)
}

func TestPipeline_EncryptionWithoutCompression(t *testing.T) {
	const chunkSize = 4096
	key := make([]byte, zcrypto.AlgorithmChaCha20Poly1305.KeyLen())
	_, err := rand.Read(key)
	require.NoError(t, err)
	aead, err := zcrypto.NewAEAD(zcrypto.AlgorithmChaCha20Poly1305, key)
	require.NoError(t, err)

	plaintext := make([]byte, chunkSize)
	_, err = rand.Read(plaintext)
	require.NoError(t, err)

	p := NewPipeline(Config{
		ChunkSize:  chunkSize,
		Encryption: &EncryptionConfig{Algorithm: zcrypto.AlgorithmChaCha20Poly1305, AEAD: aead},
	})
	results := p.ProcessStream(context.Background(), bytes.NewReader(plaintext), 1, false)
	chunks := collect(t, results)

	require.Len(t, chunks, 1)
	require.True(t, chunks[0].Entry.Flags.IsEncrypted())
	require.NotEqual(t, plaintext, chunks[0].Payload)

	decrypted, err := zcrypto.Open(aead, chunks[0].ChunkNumber, zcrypto.DomainChunkPayload, chunks[0].Payload)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
	require.Equal(t, zcrypto.Xxh3(plaintext), chunks[0].Entry.Xxhash)
}

func TestPipeline_ChunksInOrderDespiteParallelism(t *testing.T) {
	const chunkSize = 1024
	const numChunks = 50
	input := make([]byte, chunkSize*numChunks)
	_, err := rand.Read(input)
	require.NoError(t, err)

	p := NewPipeline(Config{ChunkSize: chunkSize, Workers: 8})
	results := p.ProcessStream(context.Background(), bytes.NewReader(input), 100, false)
	chunks := collect(t, results)

	require.Len(t, chunks, numChunks)
	for i, c := range chunks {
		require.Equal(t, uint64(100+i), c.ChunkNumber)
	}
}
