package coding

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// PutU8/PutU16/... append a little-endian primitive to buf and return the result.

func PutU8(buf []byte, v uint8) []byte {
	return append(buf, v)
}

func PutU16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func PutU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func PutU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// PutString encodes a UTF-8 string as len:u64 LE ‖ bytes.
func PutString(buf []byte, s string) []byte {
	buf = PutU64(buf, uint64(len(s)))
	return append(buf, s...)
}

// PutBytes encodes a byte slice the same way as a string.
func PutBytes(buf []byte, b []byte) []byte {
	buf = PutU64(buf, uint64(len(b)))
	return append(buf, b...)
}

// Reader is a cursor over an in-memory body, used to decode the primitives
// above back out in order, over a body decoded wholesale from one read (as
// chunk maps are). Bytes and String return copies of the bytes they read.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return fmt.Errorf("coding: need %d bytes, have %d", n, r.Remaining())
	}
	return nil
}

// PeekFrameTotalLength reads the total_length field (bytes 4..12) of a
// nested frame starting at the reader's current position, without
// advancing it. Callers use this to slice out an embedded sub-structure's
// full encoded bytes (identifier ‖ length ‖ version ‖ body) before handing
// it to that structure's own decoder.
func (r *Reader) PeekFrameTotalLength() (int, error) {
	if err := r.need(FrameHeaderSize); err != nil {
		return 0, err
	}
	total := binary.LittleEndian.Uint64(r.buf[r.pos+4 : r.pos+12])
	return int(total), nil
}

func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) String() (string, error) {
	n, err := r.U64()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}

func (r *Reader) ByteSlice() ([]byte, error) {
	n, err := r.U64()
	if err != nil {
		return nil, err
	}
	return r.Bytes(int(n))
}

// PutUnorderedMapU64 encodes a map[uint64]uint64 as len:u64 LE ‖ pairs sorted
// by key, matching the "unordered map" wire convention of §4.A: any
// iteration order is acceptable at the type level, but the wire bytes are
// deterministic so two writers of the same logical map produce identical
// segments.
func PutUnorderedMapU64(buf []byte, m map[uint64]uint64) []byte {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	buf = PutU64(buf, uint64(len(keys)))
	for _, k := range keys {
		buf = PutU64(buf, k)
		buf = PutU64(buf, m[k])
	}
	return buf
}

func (r *Reader) UnorderedMapU64() (map[uint64]uint64, error) {
	n, err := r.U64()
	if err != nil {
		return nil, err
	}
	m := make(map[uint64]uint64, n)
	for i := uint64(0); i < n; i++ {
		k, err := r.U64()
		if err != nil {
			return nil, err
		}
		v, err := r.U64()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

// OrderedPairsU64 is an insertion-ordered list of (key, value) pairs.
// Ordered lists of single values whose order must round-trip (e.g. root
// directory file numbers) are plain []uint64 instead, written by
// PutOrderedPairsU64 as a u64 count followed by each value and read back by
// OrderedU64Slice.
type OrderedPairsU64 []struct {
	Key, Value uint64
}

func PutOrderedPairsU64(buf []byte, pairs []uint64) []byte {
	buf = PutU64(buf, uint64(len(pairs)))
	for _, v := range pairs {
		buf = PutU64(buf, v)
	}
	return buf
}

func (r *Reader) OrderedU64Slice() ([]uint64, error) {
	n, err := r.U64()
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := r.U64()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Equal reports whether two encoded buffers are byte-identical; used by
// round-trip tests instead of reflect.DeepEqual on decoded structures so
// wire-format drift is caught directly.
func Equal(a, b []byte) bool {
	return bytes.Equal(a, b)
}
