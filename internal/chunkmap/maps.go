package chunkmap

import (
	"github.com/kenneth/zffcore/internal/coding"
)

func encodeU64(buf []byte, v uint64) []byte { return coding.PutU64(buf, v) }
func decodeU64(r *coding.Reader) (uint64, error) { return r.U64() }

func encodeFlags(buf []byte, v Flags) []byte { return coding.PutU8(buf, uint8(v)) }
func decodeFlags(r *coding.Reader) (Flags, error) {
	v, err := r.U8()
	return Flags(v), err
}

func encodeByte(buf []byte, v byte) []byte { return coding.PutU8(buf, v) }
func decodeByte(r *coding.Reader) (byte, error) { return r.U8() }

// OffsetMap records each chunk's absolute byte offset within its segment.
type OffsetMap = Map[uint64]

// NewOffsetMap constructs an empty chunk-offset map.
func NewOffsetMap(targetSize uint64) *OffsetMap {
	return NewMap(coding.IdentifierChunkOffsetMap, coding.VersionChunkMap, targetSize, 8, encodeU64, decodeU64)
}

// DecodeOffsetMap parses a previously-encoded chunk-offset map body.
func DecodeOffsetMap(targetSize uint64, body []byte) (*OffsetMap, error) {
	return DecodeMapBody(coding.IdentifierChunkOffsetMap, coding.VersionChunkMap, targetSize, 8, body, encodeU64, decodeU64)
}

// SizeMap records each chunk's on-disk payload length.
type SizeMap = Map[uint64]

func NewSizeMap(targetSize uint64) *SizeMap {
	return NewMap(coding.IdentifierChunkSizeMap, coding.VersionChunkMap, targetSize, 8, encodeU64, decodeU64)
}

func DecodeSizeMap(targetSize uint64, body []byte) (*SizeMap, error) {
	return DecodeMapBody(coding.IdentifierChunkSizeMap, coding.VersionChunkMap, targetSize, 8, body, encodeU64, decodeU64)
}

// FlagsMap records each chunk's packed flags byte.
type FlagsMap = Map[Flags]

func NewFlagsMap(targetSize uint64) *FlagsMap {
	return NewMap(coding.IdentifierChunkFlagsMap, coding.VersionChunkMap, targetSize, 1, encodeFlags, decodeFlags)
}

func DecodeFlagsMap(targetSize uint64, body []byte) (*FlagsMap, error) {
	return DecodeMapBody(coding.IdentifierChunkFlagsMap, coding.VersionChunkMap, targetSize, 1, body, encodeFlags, decodeFlags)
}

// XxhashMap records each chunk's xxh3 fingerprint of its plaintext.
type XxhashMap = Map[uint64]

func NewXxhashMap(targetSize uint64) *XxhashMap {
	return NewMap(coding.IdentifierChunkXxhashMap, coding.VersionChunkMap, targetSize, 8, encodeU64, decodeU64)
}

func DecodeXxhashMap(targetSize uint64, body []byte) (*XxhashMap, error) {
	return DecodeMapBody(coding.IdentifierChunkXxhashMap, coding.VersionChunkMap, targetSize, 8, body, encodeU64, decodeU64)
}

// SamebytesMap records, for chunks with FlagSameBytes set, the single byte
// value the chunk's plaintext consists of.
type SamebytesMap = Map[byte]

func NewSamebytesMap(targetSize uint64) *SamebytesMap {
	return NewMap(coding.IdentifierChunkSamebytesMap, coding.VersionChunkMap, targetSize, 1, encodeByte, decodeByte)
}

func DecodeSamebytesMap(targetSize uint64, body []byte) (*SamebytesMap, error) {
	return DecodeMapBody(coding.IdentifierChunkSamebytesMap, coding.VersionChunkMap, targetSize, 1, body, encodeByte, decodeByte)
}

// DedupMap records, for chunks with FlagDuplicate set, the chunk number
// whose plaintext this chunk equals.
type DedupMap = Map[uint64]

func NewDedupMap(targetSize uint64) *DedupMap {
	return NewMap(coding.IdentifierChunkDedupMap, coding.VersionChunkMap, targetSize, 8, encodeU64, decodeU64)
}

func DecodeDedupMap(targetSize uint64, body []byte) (*DedupMap, error) {
	return DecodeMapBody(coding.IdentifierChunkDedupMap, coding.VersionChunkMap, targetSize, 8, body, encodeU64, decodeU64)
}

// Kinds enumerates the six map kinds, for callers that iterate over all of
// them uniformly (e.g. the segment writer's flush loop).
type Kind uint8

const (
	KindOffset Kind = iota
	KindSize
	KindFlags
	KindXxhash
	KindSamebytes
	KindDedup
)

func (k Kind) String() string {
	switch k {
	case KindOffset:
		return "offset"
	case KindSize:
		return "size"
	case KindFlags:
		return "flags"
	case KindXxhash:
		return "xxhash"
	case KindSamebytes:
		return "samebytes"
	case KindDedup:
		return "dedup"
	default:
		return "unknown"
	}
}
