package chunkmap

import (
	"fmt"
	"sort"

	"github.com/kenneth/zffcore/internal/coding"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// entry is one (chunk_number, value) pair. Chunk numbers are appended in
// strictly increasing order (§3 invariant 1), so entries is always sorted
// and a plain slice serves the role the reference implementation gives a
// BTreeMap.
type entry[V any] struct {
	ChunkNumber uint64
	Value       V
}

// Map is one of the six per-chunk map kinds (§4.D), generic over its value
// type (uint64 for offset/size/xxhash/dedup, Flags/byte for flags/samebytes).
type Map[V any] struct {
	Magic      uint32
	Version    uint8
	TargetSize uint64

	entries   []entry[V]
	valueSize int

	encodeValue func([]byte, V) []byte
	decodeValue func(*coding.Reader) (V, error)
}

// NewMap constructs an empty map of the given kind. valueSize is the
// on-wire byte width of V, used by IsFull's conservative size estimate.
func NewMap[V any](magic uint32, version uint8, targetSize uint64, valueSize int,
	encodeValue func([]byte, V) []byte, decodeValue func(*coding.Reader) (V, error)) *Map[V] {
	return &Map[V]{
		Magic:       magic,
		Version:     version,
		TargetSize:  targetSize,
		valueSize:   valueSize,
		encodeValue: encodeValue,
		decodeValue: decodeValue,
	}
}

// Append records value for chunkNumber. Per §3 invariant 1, chunk numbers
// must be dense and monotonic; Append enforces strictly increasing order.
func (m *Map[V]) Append(chunkNumber uint64, value V) error {
	if len(m.entries) > 0 && chunkNumber <= m.entries[len(m.entries)-1].ChunkNumber {
		return fmt.Errorf("chunkmap: chunk number %d not greater than last appended %d: %w",
			chunkNumber, m.entries[len(m.entries)-1].ChunkNumber, zfferr.ErrInvalidFlagValue)
	}
	m.entries = append(m.entries, entry[V]{ChunkNumber: chunkNumber, Value: value})
	return nil
}

// Len returns the number of entries currently buffered.
func (m *Map[V]) Len() int {
	return len(m.entries)
}

func (m *Map[V]) entryWidth() int {
	return 8 + m.valueSize
}

// encodedSize estimates the total framed size if flushed right now.
func (m *Map[V]) encodedSize() uint64 {
	return uint64(coding.FrameHeaderSize) + 8 + uint64(len(m.entries)*m.entryWidth())
}

// IsFull is a conservative predicate (§4.D): true once the encoded size,
// including room for one more entry and the enclosing frame, would reach
// the map's target_size.
func (m *Map[V]) IsFull() bool {
	nextSize := uint64(coding.FrameHeaderSize) + 8 + uint64((len(m.entries)+1)*m.entryWidth())
	return nextSize >= m.TargetSize
}

// HighestChunkNumber returns the largest chunk number currently buffered,
// used by the segment writer to populate the segment footer's chunk-map
// table (§4.G) — the key it indexes flushed maps by.
func (m *Map[V]) HighestChunkNumber() (uint64, bool) {
	if len(m.entries) == 0 {
		return 0, false
	}
	return m.entries[len(m.entries)-1].ChunkNumber, true
}

// Get looks up the value for chunkNumber via binary search, since entries
// are always stored in increasing chunk-number order.
func (m *Map[V]) Get(chunkNumber uint64) (V, bool) {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].ChunkNumber >= chunkNumber })
	var zero V
	if i >= len(m.entries) || m.entries[i].ChunkNumber != chunkNumber {
		return zero, false
	}
	return m.entries[i].Value, true
}

// Encode produces the plaintext body for this map: count:u64 LE followed by
// (chunk_number:u64 LE, value) pairs in increasing chunk-number order. The
// caller is responsible for framing (coding.EncodeFrame) and for optional
// whole-body encryption (§9 "whole-header encryption wrapping"), since
// whether a given map kind is encrypted is a container-wide policy decision
// made by the segment writer, not by the map itself.
func (m *Map[V]) Encode() []byte {
	buf := make([]byte, 0, m.encodedSize())
	buf = coding.PutU64(buf, uint64(len(m.entries)))
	for _, e := range m.entries {
		buf = coding.PutU64(buf, e.ChunkNumber)
		buf = m.encodeValue(buf, e.Value)
	}
	return buf
}

// DecodeMapBody parses a map's plaintext body (as produced by Encode) back
// into a fresh Map of the same kind.
func DecodeMapBody[V any](magic uint32, version uint8, targetSize uint64, valueSize int, body []byte,
	encodeValue func([]byte, V) []byte, decodeValue func(*coding.Reader) (V, error)) (*Map[V], error) {
	r := coding.NewReader(body)
	count, err := r.U64()
	if err != nil {
		return nil, fmt.Errorf("chunkmap: decode count: %w", err)
	}
	m := NewMap[V](magic, version, targetSize, valueSize, encodeValue, decodeValue)
	m.entries = make([]entry[V], 0, count)
	for i := uint64(0); i < count; i++ {
		chunkNumber, err := r.U64()
		if err != nil {
			return nil, fmt.Errorf("chunkmap: decode chunk number: %w", err)
		}
		value, err := decodeValue(r)
		if err != nil {
			return nil, fmt.Errorf("chunkmap: decode value: %w", err)
		}
		m.entries = append(m.entries, entry[V]{ChunkNumber: chunkNumber, Value: value})
	}
	return m, nil
}

// Entries returns a copy of the buffered entries as parallel slices, used by
// the container reader to preload a map wholesale at mount time (§5
// "preloaded chunk maps").
func (m *Map[V]) Entries() (chunkNumbers []uint64, values []V) {
	chunkNumbers = make([]uint64, len(m.entries))
	values = make([]V, len(m.entries))
	for i, e := range m.entries {
		chunkNumbers[i] = e.ChunkNumber
		values[i] = e.Value
	}
	return chunkNumbers, values
}
