// Package dedup implements the deduplication engine (§4.E): a fingerprint
// index from xxh3 to the set of prior chunk numbers sharing that
// fingerprint, plus an optional BLAKE3 verification hash per chunk to
// defeat xxh3 collisions before two chunks are declared identical.
//
// Three backends are provided, matching spec.md's "picked per run" choice:
// an in-memory table (this file) and two persistent key-value stores
// (bbolt, Redis).
package dedup

import "sync"

// MemoryBackend is the in-memory Dedup backend: a map[xxh3]->[]chunk_number
// plus a map[chunk_number]->blake3, guarded by a single mutex. Reads never
// mutate (§4.E).
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[uint64][]uint64
	verify  map[uint64][32]byte
}

// NewMemoryBackend constructs an empty in-memory dedup index.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[uint64][]uint64),
		verify:  make(map[uint64][32]byte),
	}
}

// Lookup returns every chunk number previously recorded under xxhash.
func (b *MemoryBackend) Lookup(xxhash uint64) ([]uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.entries[xxhash]
	if !ok {
		return nil, false
	}
	out := make([]uint64, len(v))
	copy(out, v)
	return out, true
}

// AppendEntry records that xxhash was observed at chunkNumber.
func (b *MemoryBackend) AppendEntry(xxhash uint64, chunkNumber uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[xxhash] = append(b.entries[xxhash], chunkNumber)
}

// VerificationHash returns the BLAKE3 digest recorded for chunkNumber, if any.
func (b *MemoryBackend) VerificationHash(chunkNumber uint64) ([32]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.verify[chunkNumber]
	return v, ok
}

// AppendVerificationHash records hash as chunkNumber's strong verifier.
func (b *MemoryBackend) AppendVerificationHash(chunkNumber uint64, hash [32]byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verify[chunkNumber] = hash
}

// Close is a no-op for the in-memory backend; present so MemoryBackend
// satisfies the same io.Closer-shaped lifecycle as the persistent backends.
func (b *MemoryBackend) Close() error { return nil }
