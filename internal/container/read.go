package container

import (
	"bytes"
	"fmt"
	"io"

	"github.com/kenneth/zffcore/internal/chunking"
	"github.com/kenneth/zffcore/internal/segment"
	"github.com/kenneth/zffcore/internal/zcrypto"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// readRange serves up to len(p) bytes starting at logical byte offset off
// within a chunk range [firstChunk, firstChunk+numberOfChunks) whose total
// logical length is totalLength, per the §4.I per-request algorithm.
//
// Every chunk but the last is exactly o.Header.ChunkSize bytes long; the
// last chunk's logical length is whatever totalLength leaves over. Neither
// the chunk-flags map nor the chunk-size map records this directly (the
// size map holds on-disk payload sizes, 0 for same_bytes and duplicate
// chunks), so it is derived here
// from the object/file footer's own length and chunk count rather than
// trusted per chunk.
func (c *Container) readRange(o *Object, firstChunk, numberOfChunks, totalLength uint64, p []byte, off uint64) (int, error) {
	if numberOfChunks == 0 || off >= totalLength {
		return 0, io.EOF
	}
	chunkSize := o.Header.ChunkSize
	if chunkSize == 0 {
		return 0, fmt.Errorf("container: object %d has zero chunk_size", o.Number)
	}

	chunkNumber := firstChunk + off/chunkSize
	skip := off % chunkSize
	n := 0

	for n < len(p) {
		index := chunkNumber - firstChunk
		if index >= numberOfChunks {
			break
		}
		logicalLen := chunkSize
		if index == numberOfChunks-1 {
			logicalLen = totalLength - chunkSize*(numberOfChunks-1)
		}

		entry, seg, resolvedChunk, err := c.resolveChunk(chunkNumber)
		if err != nil {
			return n, err
		}
		if entry.Flags.IsEmptyFile() {
			break
		}

		data, err := o.decodeChunkPayload(entry, seg, resolvedChunk, logicalLen)
		if err != nil {
			return n, err
		}
		if skip >= uint64(len(data)) {
			break
		}

		avail := uint64(len(data)) - skip
		take := uint64(len(p) - n)
		if take > avail {
			take = avail
		}
		copy(p[n:uint64(n)+take], data[skip:skip+take])
		n += int(take)

		chunkNumber++
		skip = 0
	}

	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// resolveChunk follows a chunk's duplicate_of chain to its stored payload,
// detecting cycles per spec: "the format has no structural defense against
// a malicious duplicate_of cycle, so the reader MUST detect cycles ... and
// return MalformedSegment if one is found." It returns the resolved target
// chunk's own number alongside its entry: the target's payload was sealed
// using its own chunk number as the AEAD nonce input, not the original
// pointer chunk's, so callers must decode against the returned number.
func (c *Container) resolveChunk(chunkNumber uint64) (segment.ChunkMapEntry, *segment.Reader, uint64, error) {
	seen := make(map[uint64]bool)
	for {
		if seen[chunkNumber] {
			return segment.ChunkMapEntry{}, nil, 0, fmt.Errorf("container: duplicate_of cycle at chunk %d: %w", chunkNumber, zfferr.ErrMalformedSegment)
		}
		seen[chunkNumber] = true

		seg, err := c.resolveChunkSegment(chunkNumber)
		if err != nil {
			return segment.ChunkMapEntry{}, nil, 0, err
		}
		entry, err := seg.Chunk(chunkNumber)
		if err != nil {
			return segment.ChunkMapEntry{}, nil, 0, zfferr.WithChunk(chunkNumber, err)
		}
		if !entry.Flags.IsDuplicate() {
			return entry, seg, chunkNumber, nil
		}
		chunkNumber = entry.DuplicateOf
	}
}

// decodeChunkPayload reverses encryption/compression for one chunk's stored
// bytes and verifies its xxh3 fingerprint (§4.I step 6). same_bytes chunks
// are synthesized directly from the stored byte and never touch disk.
func (o *Object) decodeChunkPayload(entry segment.ChunkMapEntry, seg *segment.Reader, chunkNumber, logicalLen uint64) ([]byte, error) {
	if entry.Flags.IsSameBytes() {
		return bytes.Repeat([]byte{entry.SameByte}, int(logicalLen)), nil
	}

	raw, err := seg.ReadAt(entry.Offset, int(entry.Size))
	if err != nil {
		return nil, zfferr.WithChunk(chunkNumber, err)
	}

	plaintext := raw
	if entry.Flags.IsEncrypted() {
		if o.aead == nil {
			return nil, zfferr.WithChunk(chunkNumber, zfferr.ErrMissingEncryptionKey)
		}
		plaintext, err = zcrypto.Open(o.aead, chunkNumber, zcrypto.DomainChunkPayload, raw)
		if err != nil {
			return nil, zfferr.WithChunk(chunkNumber, err)
		}
	}
	if entry.Flags.IsCompressed() {
		plaintext, err = chunking.Decompress(o.Header.CompressionHeader.Algorithm, plaintext)
		if err != nil {
			return nil, zfferr.WithChunk(chunkNumber, err)
		}
	}
	if zcrypto.Xxh3(plaintext) != entry.Xxhash {
		return nil, zfferr.WithChunk(chunkNumber, zfferr.ErrXxhashMismatch)
	}
	return plaintext, nil
}
