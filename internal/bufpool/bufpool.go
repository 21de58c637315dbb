// Package bufpool pools the fixed- and chunk-sized byte buffers the engine
// allocates on every chunk: AEAD nonces, derived keys, and the chunk-size
// read window the chunking pipeline fills on every pass.
package bufpool

import (
	"sync"
	"sync/atomic"
)

// Pool provides thread-safe pooling of byte buffers to reduce allocations
// on the per-chunk hot path. Buffers are zeroized before returning to the
// pool, since a chunk buffer can hold plaintext acquired from evidence.
type Pool struct {
	chunkSize int

	nonce *sync.Pool // 12-byte AEAD nonces
	key   *sync.Pool // 32-byte derived keys / salts
	chunk *sync.Pool // chunkSize-byte read windows

	hitsNonce, missesNonce int64
	hitsKey, missesKey     int64
	hitsChunk, missesChunk int64
}

// New creates a buffer pool sized for a container's configured chunk size.
func New(chunkSize int) *Pool {
	p := &Pool{chunkSize: chunkSize}
	p.nonce = &sync.Pool{}
	p.key = &sync.Pool{}
	p.chunk = &sync.Pool{}
	return p
}

// GetNonce returns a 12-byte buffer from the pool.
func (p *Pool) GetNonce() []byte {
	if buf := p.nonce.Get(); buf != nil {
		atomic.AddInt64(&p.hitsNonce, 1)
		return buf.([]byte)
	}
	atomic.AddInt64(&p.missesNonce, 1)
	return make([]byte, 12)
}

// PutNonce returns a 12-byte buffer to the pool after zeroizing it.
func (p *Pool) PutNonce(buf []byte) {
	if cap(buf) != 12 {
		return
	}
	zero(buf)
	p.nonce.Put(buf[:12])
}

// GetKey returns a 32-byte buffer from the pool.
func (p *Pool) GetKey() []byte {
	if buf := p.key.Get(); buf != nil {
		atomic.AddInt64(&p.hitsKey, 1)
		return buf.([]byte)
	}
	atomic.AddInt64(&p.missesKey, 1)
	return make([]byte, 32)
}

// PutKey returns a 32-byte buffer to the pool after zeroizing it.
func (p *Pool) PutKey(buf []byte) {
	if cap(buf) != 32 {
		return
	}
	zero(buf)
	p.key.Put(buf[:32])
}

// GetChunk returns a chunkSize-byte read window from the pool.
func (p *Pool) GetChunk() []byte {
	if buf := p.chunk.Get(); buf != nil {
		atomic.AddInt64(&p.hitsChunk, 1)
		return buf.([]byte)
	}
	atomic.AddInt64(&p.missesChunk, 1)
	return make([]byte, p.chunkSize)
}

// PutChunk returns a chunkSize-byte buffer to the pool after zeroizing it.
// A buffer whose capacity no longer matches the pool's chunk size (the
// pool was resized, or the caller grew the slice) is dropped instead of
// pooled, since sync.Pool assumes a uniform size class.
func (p *Pool) PutChunk(buf []byte) {
	if cap(buf) != p.chunkSize {
		return
	}
	zero(buf[:cap(buf)])
	p.chunk.Put(buf[:p.chunkSize])
}

func zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// Metrics reports pool hit/miss counters for the metrics package to export.
type Metrics struct {
	HitsNonce, MissesNonce int64
	HitsKey, MissesKey     int64
	HitsChunk, MissesChunk int64
}

// Snapshot returns the current hit/miss counters.
func (p *Pool) Snapshot() Metrics {
	return Metrics{
		HitsNonce:   atomic.LoadInt64(&p.hitsNonce),
		MissesNonce: atomic.LoadInt64(&p.missesNonce),
		HitsKey:     atomic.LoadInt64(&p.hitsKey),
		MissesKey:   atomic.LoadInt64(&p.missesKey),
		HitsChunk:   atomic.LoadInt64(&p.hitsChunk),
		MissesChunk: atomic.LoadInt64(&p.missesChunk),
	}
}
