package segment

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/kenneth/zffcore/internal/chunkmap"
	"github.com/kenneth/zffcore/internal/coding"
)

// Reader gives random-access read-only access to one segment file: its
// Header, its Footer, and the chunk maps and object header/footer frames
// the footer indexes (§4.H).
type Reader struct {
	path string
	f    *os.File

	Header     Header
	Footer     *Footer
	MainFooter *MainFooter // non-nil only for the container's last segment

	sortedHighest []uint64 // ChunkMapTable keys, ascending, for binary search
}

// Open parses a segment file's header and footer and returns a Reader ready
// for random-access lookups. The chunk payload region between header and
// footer is read lazily, by offset, never loaded wholesale.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("segment: open %s: %w", path, err)
	}

	header, err := readHeaderAt(f, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: %s: %w", path, err)
	}

	footer, mainFooter, err := readFooter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: %s: %w", path, err)
	}

	highest := make([]uint64, 0, len(footer.ChunkMapTable))
	for k := range footer.ChunkMapTable {
		highest = append(highest, k)
	}
	sort.Slice(highest, func(i, j int) bool { return highest[i] < highest[j] })

	return &Reader{path: path, f: f, Header: header, Footer: footer, MainFooter: mainFooter, sortedHighest: highest}, nil
}

func readHeaderAt(f *os.File, offset int64) (Header, error) {
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return Header{}, fmt.Errorf("seek segment_header: %w", err)
	}
	_, body, err := coding.ReadFrame(f, coding.IdentifierSegmentHeader)
	if err != nil {
		return Header{}, fmt.Errorf("read segment_header: %w", err)
	}
	r := coding.NewReader(body)
	uid, err := r.U64()
	if err != nil {
		return Header{}, err
	}
	segmentNumber, err := r.U64()
	if err != nil {
		return Header{}, err
	}
	chunkmapSize, err := r.U64()
	if err != nil {
		return Header{}, err
	}
	return Header{UniqueIdentifier: uid, SegmentNumber: segmentNumber, ChunkmapSize: chunkmapSize}, nil
}

// readTrailerU64 reads the 8-byte little-endian pointer at the very end of
// the file.
func readTrailerU64(f *os.File) (uint64, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek end: %w", err)
	}
	if size < 8 {
		return 0, fmt.Errorf("segment file too short for a trailer")
	}
	if _, err := f.Seek(size-8, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek trailer: %w", err)
	}
	var trailer [8]byte
	if _, err := io.ReadFull(f, trailer[:]); err != nil {
		return 0, fmt.Errorf("read trailer: %w", err)
	}
	return coding.NewReader(trailer[:]).U64()
}

// readTrailerAt reads the 8-byte little-endian pointer at an arbitrary
// segment-relative offset (used to read the segment footer's own trailer,
// which precedes the main footer frame rather than sitting at end-of-file).
func readTrailerAt(f *os.File, offset uint64) (uint64, error) {
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek trailer at %d: %w", offset, err)
	}
	var trailer [8]byte
	if _, err := io.ReadFull(f, trailer[:]); err != nil {
		return 0, fmt.Errorf("read trailer at %d: %w", offset, err)
	}
	return coding.NewReader(trailer[:]).U64()
}

func readFooterFrameAt(f *os.File, offset uint64) (*Footer, error) {
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek segment_footer: %w", err)
	}
	_, body, err := coding.ReadFrame(f, coding.IdentifierSegmentFooter)
	if err != nil {
		return nil, fmt.Errorf("read segment_footer: %w", err)
	}
	fr := coding.NewReader(body)
	lengthOfSegment, err := fr.U64()
	if err != nil {
		return nil, err
	}
	objectHeaderOffsets, err := fr.UnorderedMapU64()
	if err != nil {
		return nil, err
	}
	objectFooterOffsets, err := fr.UnorderedMapU64()
	if err != nil {
		return nil, err
	}
	chunkMapTable, err := fr.UnorderedMapU64()
	if err != nil {
		return nil, err
	}
	firstChunkNumber, err := fr.U64()
	if err != nil {
		return nil, err
	}
	selfOffset, err := fr.U64()
	if err != nil {
		return nil, err
	}
	return &Footer{
		LengthOfSegment:     lengthOfSegment,
		ObjectHeaderOffsets: objectHeaderOffsets,
		ObjectFooterOffsets: objectFooterOffsets,
		ChunkMapTable:       chunkMapTable,
		FirstChunkNumber:    firstChunkNumber,
		FooterOffset:        selfOffset,
	}, nil
}

func readMainFooterFrameAt(f *os.File, offset uint64) (*MainFooter, error) {
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek main_footer: %w", err)
	}
	_, body, err := coding.ReadFrame(f, coding.IdentifierMainFooter)
	if err != nil {
		return nil, fmt.Errorf("read main_footer: %w", err)
	}
	fr := coding.NewReader(body)
	numberOfSegments, err := fr.U64()
	if err != nil {
		return nil, err
	}
	objectHeaderSegments, err := fr.UnorderedMapU64()
	if err != nil {
		return nil, err
	}
	objectFooterSegments, err := fr.UnorderedMapU64()
	if err != nil {
		return nil, err
	}
	chunkMaps, err := fr.UnorderedMapU64()
	if err != nil {
		return nil, err
	}
	descriptionNotes, err := fr.String()
	if err != nil {
		return nil, err
	}
	selfOffset, err := fr.U64()
	if err != nil {
		return nil, err
	}
	return &MainFooter{
		NumberOfSegments:     numberOfSegments,
		ObjectHeaderSegments: objectHeaderSegments,
		ObjectFooterSegments: objectFooterSegments,
		ChunkMaps:            chunkMaps,
		DescriptionNotes:     descriptionNotes,
		FooterOffset:         selfOffset,
	}, nil
}

// readFooter locates this segment's footer by walking backward from
// end-of-file (§4.H). The file's final 8 bytes point either directly at the
// SegmentFooter (every non-last segment) or at a MainFooter (the container's
// last segment, §3 "file layout"); in the latter case the SegmentFooter's
// own trailer sits immediately before the MainFooter frame, so it is read
// from there.
func readFooter(f *os.File) (*Footer, *MainFooter, error) {
	trailingOffset, err := readTrailerU64(f)
	if err != nil {
		return nil, nil, err
	}

	if _, err := f.Seek(int64(trailingOffset), io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("seek trailer target %d: %w", trailingOffset, err)
	}
	frame, _, err := coding.ReadFrame(f, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("read frame at trailer target %d: %w", trailingOffset, err)
	}

	switch frame.Identifier {
	case coding.IdentifierSegmentFooter:
		footer, err := readFooterFrameAt(f, trailingOffset)
		if err != nil {
			return nil, nil, err
		}
		return footer, nil, nil
	case coding.IdentifierMainFooter:
		mainFooter, err := readMainFooterFrameAt(f, trailingOffset)
		if err != nil {
			return nil, nil, err
		}
		segmentFooterOffset, err := readTrailerAt(f, trailingOffset-8)
		if err != nil {
			return nil, nil, err
		}
		footer, err := readFooterFrameAt(f, segmentFooterOffset)
		if err != nil {
			return nil, nil, err
		}
		return footer, mainFooter, nil
	default:
		return nil, nil, fmt.Errorf("segment: unexpected frame identifier %08x at trailer target", frame.Identifier)
	}
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}

// OpenAll opens every segment of a container in ascending segment_number
// order (§4.I "open every segment file, read its header and footer"). The
// caller is responsible for closing every returned Reader; on failure, the
// readers opened so far are closed before the error is returned.
func OpenAll(dir, stem string) ([]*Reader, error) {
	var readers []*Reader
	for n := uint64(1); ; n++ {
		path := segmentPath(dir, stem, n)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				break
			}
			closeAll(readers)
			return nil, fmt.Errorf("segment: stat %s: %w", path, err)
		}
		r, err := Open(path)
		if err != nil {
			closeAll(readers)
			return nil, err
		}
		readers = append(readers, r)
	}
	if len(readers) == 0 {
		closeAll(readers)
		return nil, fmt.Errorf("segment: no segments found for stem %q in %s", stem, dir)
	}
	return readers, nil
}

func closeAll(readers []*Reader) {
	for _, r := range readers {
		r.Close()
	}
}

// ReadAt reads raw bytes at a segment-relative offset, used to pull a
// chunk's payload or an object header/footer frame once its offset is
// known (§4.I step 4-6).
func (r *Reader) ReadAt(offset uint64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := r.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("segment: read %d bytes at %d: %w", n, offset, err)
	}
	return buf, nil
}

// ReadFrameAt reads one length-prefixed frame starting at a segment-relative
// offset, used for object headers/footers whose total length isn't known in
// advance by the caller (§4.I).
func (r *Reader) ReadFrameAt(offset uint64, wantIdentifier uint32) (coding.Frame, []byte, error) {
	if _, err := r.f.Seek(int64(offset), io.SeekStart); err != nil {
		return coding.Frame{}, nil, fmt.Errorf("segment: seek %d: %w", offset, err)
	}
	return coding.ReadFrame(r.f, wantIdentifier)
}

// mapForChunk finds the ChunkMapTable entry covering chunkNumber: the
// smallest recorded highest_chunk_number that is >= chunkNumber.
func (r *Reader) mapForChunk(chunkNumber uint64) (offset uint64, ok bool) {
	i := sort.Search(len(r.sortedHighest), func(i int) bool { return r.sortedHighest[i] >= chunkNumber })
	if i >= len(r.sortedHighest) {
		return 0, false
	}
	highest := r.sortedHighest[i]
	return r.Footer.ChunkMapTable[highest], true
}

// ChunkMapEntry is one decoded chunk's full record, assembled by reading
// whichever of the six maps cover it (§4.D, §4.H).
type ChunkMapEntry struct {
	Offset      uint64
	Size        uint64
	Flags       chunkmap.Flags
	Xxhash      uint64
	SameByte    byte
	DuplicateOf uint64
}

// Chunk resolves the full map entry for one chunk number by reading the
// offset/size/flags maps (always present) and, conditionally, the samebytes
// or dedup map, per the flags found.
func (r *Reader) Chunk(chunkNumber uint64) (ChunkMapEntry, error) {
	mapOffset, ok := r.mapForChunk(chunkNumber)
	if !ok {
		return ChunkMapEntry{}, fmt.Errorf("segment: chunk %d not covered by any chunk map in %s", chunkNumber, r.path)
	}

	var entry ChunkMapEntry
	var flagsFound bool

	// Each map kind is its own frame; the maps flushed together when a
	// segment is finished are written as separate frames back to back, and
	// the table records the run's first frame under the run's highest chunk
	// number, so each kind is looked up at its own offset within that run.
	offsets, err := r.chunkMapOffsetsAround(mapOffset)
	if err != nil {
		return ChunkMapEntry{}, err
	}

	if off, ok := offsets[coding.IdentifierChunkOffsetMap]; ok {
		m, err := r.decodeOffsetMap(off)
		if err != nil {
			return ChunkMapEntry{}, err
		}
		if v, ok := m.Get(chunkNumber); ok {
			entry.Offset = v
		}
	}
	if off, ok := offsets[coding.IdentifierChunkSizeMap]; ok {
		m, err := r.decodeSizeMap(off)
		if err != nil {
			return ChunkMapEntry{}, err
		}
		if v, ok := m.Get(chunkNumber); ok {
			entry.Size = v
		}
	}
	if off, ok := offsets[coding.IdentifierChunkFlagsMap]; ok {
		m, err := r.decodeFlagsMap(off)
		if err != nil {
			return ChunkMapEntry{}, err
		}
		if v, ok := m.Get(chunkNumber); ok {
			entry.Flags = v
			flagsFound = true
		}
	}
	if off, ok := offsets[coding.IdentifierChunkXxhashMap]; ok {
		m, err := r.decodeXxhashMap(off)
		if err != nil {
			return ChunkMapEntry{}, err
		}
		if v, ok := m.Get(chunkNumber); ok {
			entry.Xxhash = v
		}
	}
	if !flagsFound {
		return ChunkMapEntry{}, fmt.Errorf("segment: chunk %d missing from flags map in %s", chunkNumber, r.path)
	}
	if entry.Flags.IsSameBytes() {
		if off, ok := offsets[coding.IdentifierChunkSamebytesMap]; ok {
			m, err := r.decodeSamebytesMap(off)
			if err != nil {
				return ChunkMapEntry{}, err
			}
			if v, ok := m.Get(chunkNumber); ok {
				entry.SameByte = v
			}
		}
	}
	if entry.Flags.IsDuplicate() {
		if off, ok := offsets[coding.IdentifierChunkDedupMap]; ok {
			m, err := r.decodeDedupMap(off)
			if err != nil {
				return ChunkMapEntry{}, err
			}
			if v, ok := m.Get(chunkNumber); ok {
				entry.DuplicateOf = v
			}
		}
	}
	return entry, nil
}

// chunkMapOffsetsAround resolves every map-kind frame belonging to the same
// flush as the one recorded at anchorOffset. The writer appends the kinds
// flushed together back to back; this walks forward reading frame headers
// (via coding.ReadFrame with wantIdentifier=0, since the kind isn't known
// up front) and stops at a read error, a non-chunk-map identifier, a kind
// already seen (the start of another flush), or after six frames.
func (r *Reader) chunkMapOffsetsAround(anchorOffset uint64) (map[uint32]uint64, error) {
	result := make(map[uint32]uint64)
	offset := anchorOffset
	for i := 0; i < 6; i++ {
		if _, err := r.f.Seek(int64(offset), io.SeekStart); err != nil {
			return nil, fmt.Errorf("segment: seek chunk map at %d: %w", offset, err)
		}
		frame, _, err := coding.ReadFrame(r.f, 0)
		if err != nil {
			break
		}
		if !isChunkMapIdentifier(frame.Identifier) {
			break
		}
		if _, seen := result[frame.Identifier]; seen {
			break
		}
		result[frame.Identifier] = offset
		offset += frame.TotalLength
	}
	return result, nil
}

func isChunkMapIdentifier(id uint32) bool {
	switch id {
	case coding.IdentifierChunkOffsetMap, coding.IdentifierChunkSizeMap, coding.IdentifierChunkFlagsMap,
		coding.IdentifierChunkXxhashMap, coding.IdentifierChunkSamebytesMap, coding.IdentifierChunkDedupMap:
		return true
	default:
		return false
	}
}

func (r *Reader) readMapBody(offset uint64) (coding.Frame, []byte, error) {
	if _, err := r.f.Seek(int64(offset), io.SeekStart); err != nil {
		return coding.Frame{}, nil, fmt.Errorf("segment: seek map at %d: %w", offset, err)
	}
	return coding.ReadFrame(r.f, 0)
}

func (r *Reader) decodeOffsetMap(offset uint64) (*chunkmap.OffsetMap, error) {
	_, body, err := r.readMapBody(offset)
	if err != nil {
		return nil, err
	}
	return chunkmap.DecodeOffsetMap(r.Header.ChunkmapSize, body)
}

func (r *Reader) decodeSizeMap(offset uint64) (*chunkmap.SizeMap, error) {
	_, body, err := r.readMapBody(offset)
	if err != nil {
		return nil, err
	}
	return chunkmap.DecodeSizeMap(r.Header.ChunkmapSize, body)
}

func (r *Reader) decodeFlagsMap(offset uint64) (*chunkmap.FlagsMap, error) {
	_, body, err := r.readMapBody(offset)
	if err != nil {
		return nil, err
	}
	return chunkmap.DecodeFlagsMap(r.Header.ChunkmapSize, body)
}

func (r *Reader) decodeXxhashMap(offset uint64) (*chunkmap.XxhashMap, error) {
	_, body, err := r.readMapBody(offset)
	if err != nil {
		return nil, err
	}
	return chunkmap.DecodeXxhashMap(r.Header.ChunkmapSize, body)
}

func (r *Reader) decodeSamebytesMap(offset uint64) (*chunkmap.SamebytesMap, error) {
	_, body, err := r.readMapBody(offset)
	if err != nil {
		return nil, err
	}
	return chunkmap.DecodeSamebytesMap(r.Header.ChunkmapSize, body)
}

func (r *Reader) decodeDedupMap(offset uint64) (*chunkmap.DedupMap, error) {
	_, body, err := r.readMapBody(offset)
	if err != nil {
		return nil, err
	}
	return chunkmap.DecodeDedupMap(r.Header.ChunkmapSize, body)
}
