package chunkmap

// FlushResult is one flushed map's plaintext encoding, ready for the segment
// writer to optionally AEAD-encrypt, frame, and append to the segment
// (§4.D, §9 "whole-header encryption wrapping").
type FlushResult struct {
	Kind               Kind
	Magic              uint32
	Version            uint8
	Body               []byte
	HighestChunkNumber uint64
}

// Set bundles the six per-object map kinds (§4.D) that together describe
// every chunk belonging to one object. Each kind is flushed independently
// and at its own cadence — the samebytes and dedup maps only gain an entry
// for chunks of their own kind, and the flags map's entries are narrower
// than the offset map's, for instance — so Set tracks
// each map's fullness separately rather than flushing all six in lockstep.
type Set struct {
	TargetSize uint64

	offset    *OffsetMap
	size      *SizeMap
	flags     *FlagsMap
	xxhash    *XxhashMap
	samebytes *SamebytesMap
	dedup     *DedupMap
}

// NewSet constructs a fresh, empty map set with the given target encoded
// size per flushed map (the segment's chunkmap_size, §3 invariant 6).
func NewSet(targetSize uint64) *Set {
	return &Set{
		TargetSize: targetSize,
		offset:     NewOffsetMap(targetSize),
		size:       NewSizeMap(targetSize),
		flags:      NewFlagsMap(targetSize),
		xxhash:     NewXxhashMap(targetSize),
		samebytes:  NewSamebytesMap(targetSize),
		dedup:      NewDedupMap(targetSize),
	}
}

// ChunkEntry is the full per-chunk record the pipeline hands to the segment
// writer once a chunk has been placed on disk (§4.C step 6).
type ChunkEntry struct {
	ChunkNumber uint64
	Offset      uint64
	Size        uint64
	Flags       Flags
	Xxhash      uint64
	SameByte    byte   // valid only if Flags.IsSameBytes()
	DuplicateOf uint64 // valid only if Flags.IsDuplicate()
}

// AppendChunk records one chunk across the four primary maps (offset, size,
// flags, xxhash) and, conditionally, the samebytes or dedup map per §4.C
// step 6 and §4.D's table ("only if same_bytes flag" / "only if duplicate
// flag").
func (s *Set) AppendChunk(e ChunkEntry) error {
	if err := e.Flags.Validate(); err != nil {
		return err
	}
	if err := s.offset.Append(e.ChunkNumber, e.Offset); err != nil {
		return err
	}
	if err := s.size.Append(e.ChunkNumber, e.Size); err != nil {
		return err
	}
	if err := s.flags.Append(e.ChunkNumber, e.Flags); err != nil {
		return err
	}
	if err := s.xxhash.Append(e.ChunkNumber, e.Xxhash); err != nil {
		return err
	}
	if e.Flags.IsSameBytes() {
		if err := s.samebytes.Append(e.ChunkNumber, e.SameByte); err != nil {
			return err
		}
	}
	if e.Flags.IsDuplicate() {
		if err := s.dedup.Append(e.ChunkNumber, e.DuplicateOf); err != nil {
			return err
		}
	}
	return nil
}

// Due reports which map kinds are currently full and ready to flush.
func (s *Set) Due() []Kind {
	var due []Kind
	if s.offset.Len() > 0 && s.offset.IsFull() {
		due = append(due, KindOffset)
	}
	if s.size.Len() > 0 && s.size.IsFull() {
		due = append(due, KindSize)
	}
	if s.flags.Len() > 0 && s.flags.IsFull() {
		due = append(due, KindFlags)
	}
	if s.xxhash.Len() > 0 && s.xxhash.IsFull() {
		due = append(due, KindXxhash)
	}
	if s.samebytes.Len() > 0 && s.samebytes.IsFull() {
		due = append(due, KindSamebytes)
	}
	if s.dedup.Len() > 0 && s.dedup.IsFull() {
		due = append(due, KindDedup)
	}
	return due
}

// Flush encodes and clears the named map kind unconditionally (used both
// when a kind reports Due and when the segment writer force-flushes every
// non-empty map at segment-boundary/close time, §4.G).
func (s *Set) Flush(kind Kind) (FlushResult, bool) {
	switch kind {
	case KindOffset:
		return flushOne(kind, &s.offset, func() *OffsetMap { return NewOffsetMap(s.TargetSize) })
	case KindSize:
		return flushOne(kind, &s.size, func() *SizeMap { return NewSizeMap(s.TargetSize) })
	case KindFlags:
		return flushOne(kind, &s.flags, func() *FlagsMap { return NewFlagsMap(s.TargetSize) })
	case KindXxhash:
		return flushOne(kind, &s.xxhash, func() *XxhashMap { return NewXxhashMap(s.TargetSize) })
	case KindSamebytes:
		return flushOne(kind, &s.samebytes, func() *SamebytesMap { return NewSamebytesMap(s.TargetSize) })
	case KindDedup:
		return flushOne(kind, &s.dedup, func() *DedupMap { return NewDedupMap(s.TargetSize) })
	default:
		return FlushResult{}, false
	}
}

// FlushAllNonEmpty flushes every map kind that currently holds at least one
// entry, regardless of fullness — used at segment-boundary or object-close
// time when every accumulated map must be committed to disk (§4.G).
func (s *Set) FlushAllNonEmpty() []FlushResult {
	var out []FlushResult
	for _, k := range []Kind{KindOffset, KindSize, KindFlags, KindXxhash, KindSamebytes, KindDedup} {
		if r, ok := s.Flush(k); ok {
			out = append(out, r)
		}
	}
	return out
}

func flushOne[V any](kind Kind, mapPtr **Map[V], newFn func() *Map[V]) (FlushResult, bool) {
	m := *mapPtr
	if m.Len() == 0 {
		return FlushResult{}, false
	}
	highest, _ := m.HighestChunkNumber()
	res := FlushResult{
		Kind:               kind,
		Magic:              m.Magic,
		Version:            m.Version,
		Body:               m.Encode(),
		HighestChunkNumber: highest,
	}
	*mapPtr = newFn()
	return res, true
}
