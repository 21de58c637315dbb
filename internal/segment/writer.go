package segment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kenneth/zffcore/internal/chunking"
	"github.com/kenneth/zffcore/internal/chunkmap"
	"github.com/kenneth/zffcore/internal/coding"
)

// Policy bounds how large one segment file may grow and how large a
// flushed chunk map may grow before it is written out (§4.G, §3 invariant
// 6).
type Policy struct {
	TargetSegmentSize uint64
	ChunkmapSize      uint64
}

// Writer accepts PreparedChunks and object header/footer bytes and places
// them across a rolling sequence of segment files (§4.G). Exactly one
// Writer may be active per container at a time (§5 "single-writer,
// multi-reader").
type Writer struct {
	dir  string
	stem string

	uniqueIdentifier uint64
	policy           Policy

	file   *os.File
	header Header
	footer *Footer
	offset uint64

	chunks         *chunkmap.Set
	firstChunkSeen bool

	mainFooter   *MainFooter
	segmentCount uint64
	closed       bool
}

func segmentPath(dir, stem string, segmentNumber uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s.z%02d", stem, segmentNumber-1))
}

// NewWriter creates the first segment (.z00) of a new container rooted at
// dir/stem, with a freshly minted unique_identifier.
func NewWriter(dir, stem string, policy Policy) (*Writer, error) {
	w := &Writer{
		dir:              dir,
		stem:             stem,
		uniqueIdentifier: NewUniqueIdentifier(),
		policy:           policy,
		mainFooter:       NewMainFooter(),
	}
	if err := w.openSegment(1); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) openSegment(segmentNumber uint64) error {
	path := segmentPath(w.dir, w.stem, segmentNumber)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("segment: create %s: %w", path, err)
	}
	w.file = f
	w.header = Header{UniqueIdentifier: w.uniqueIdentifier, SegmentNumber: segmentNumber, ChunkmapSize: w.policy.ChunkmapSize}
	headerBytes := w.header.Encode()
	if _, err := f.Write(headerBytes); err != nil {
		return fmt.Errorf("segment: write segment_header: %w", err)
	}
	w.offset = uint64(len(headerBytes))
	w.footer = NewFooter()
	w.chunks = chunkmap.NewSet(w.policy.ChunkmapSize)
	w.firstChunkSeen = false
	w.segmentCount++
	return nil
}

func (w *Writer) write(b []byte) error {
	n, err := w.file.Write(b)
	w.offset += uint64(n)
	if err != nil {
		return fmt.Errorf("segment: write: %w", err)
	}
	return nil
}

// SegmentNumber returns the segment currently being written to.
func (w *Writer) SegmentNumber() uint64 { return w.header.SegmentNumber }

// SegmentPaths returns the on-disk path of every segment file written so
// far (1..SegmentNumber), for a caller that archives sealed segments once
// Close has returned.
func (w *Writer) SegmentPaths() []string {
	paths := make([]string, 0, w.header.SegmentNumber)
	for n := uint64(1); n <= w.header.SegmentNumber; n++ {
		paths = append(paths, segmentPath(w.dir, w.stem, n))
	}
	return paths
}

// UniqueIdentifier returns the container-wide identifier shared by every
// segment this writer produces.
func (w *Writer) UniqueIdentifier() uint64 { return w.uniqueIdentifier }

// WriteObjectHeader appends an already-framed ObjectHeader and records its
// offset in both the current segment footer and the eventual main footer.
func (w *Writer) WriteObjectHeader(objectNumber uint64, encoded []byte) error {
	w.footer.ObjectHeaderOffsets[objectNumber] = w.offset
	w.mainFooter.ObjectHeaderSegments[objectNumber] = w.header.SegmentNumber
	return w.write(encoded)
}

// WriteObjectFooter appends an already-framed object footer (physical,
// logical, or virtual) and records its offset the same way.
func (w *Writer) WriteObjectFooter(objectNumber uint64, encoded []byte) error {
	w.footer.ObjectFooterOffsets[objectNumber] = w.offset
	w.mainFooter.ObjectFooterSegments[objectNumber] = w.header.SegmentNumber
	return w.write(encoded)
}

// WriteFileHeader and WriteFileFooter append a logical object's per-file
// structures; their placement is tracked by the caller (ObjectFooterLogical's
// four file-number maps), not by the segment footer, mirroring how the
// reference format only tracks object-level offsets at the segment level.
func (w *Writer) WriteFileHeader(encoded []byte) (segmentNumber, offset uint64, err error) {
	segmentNumber, offset = w.header.SegmentNumber, w.offset
	return segmentNumber, offset, w.write(encoded)
}

func (w *Writer) WriteFileFooter(encoded []byte) (segmentNumber, offset uint64, err error) {
	segmentNumber, offset = w.header.SegmentNumber, w.offset
	return segmentNumber, offset, w.write(encoded)
}

// AppendChunk places one prepared chunk (§4.C step 6) at the writer's
// current offset, records it across the six per-chunk maps, flushes any map
// that becomes due, and rolls to a new segment once the target size is
// reached.
func (w *Writer) AppendChunk(pc chunking.PreparedChunk) error {
	if !w.firstChunkSeen {
		w.footer.FirstChunkNumber = pc.ChunkNumber
		w.firstChunkSeen = true
	}

	entry := pc.Entry
	entry.Offset = w.offset
	if len(pc.Payload) > 0 {
		if err := w.write(pc.Payload); err != nil {
			return err
		}
	}
	if err := w.chunks.AppendChunk(entry); err != nil {
		return fmt.Errorf("segment: append chunk %d: %w", pc.ChunkNumber, err)
	}
	for _, kind := range w.chunks.Due() {
		if err := w.flushMap(kind); err != nil {
			return err
		}
	}
	if w.offset >= w.policy.TargetSegmentSize {
		return w.rollover()
	}
	return nil
}

func (w *Writer) flushMap(kind chunkmap.Kind) error {
	res, ok := w.chunks.Flush(kind)
	if !ok {
		return nil
	}
	frameOffset := w.offset
	if err := w.write(coding.EncodeFrame(res.Magic, res.Version, res.Body)); err != nil {
		return err
	}
	w.footer.ChunkMapTable[res.HighestChunkNumber] = frameOffset
	w.mainFooter.ChunkMaps[res.HighestChunkNumber] = frameOffset
	return nil
}

// rollover finalizes the current segment (non-last) and opens the next one.
func (w *Writer) rollover() error {
	if err := w.finishSegment(false); err != nil {
		return err
	}
	return w.openSegment(w.header.SegmentNumber + 1)
}

func (w *Writer) finishSegment(isLast bool) error {
	// The maps flushed here form one back-to-back run of frames; the table
	// records the run's first frame under the run's highest chunk number.
	runStart, runHighest := w.offset, uint64(0)
	results := w.chunks.FlushAllNonEmpty()
	for _, res := range results {
		if err := w.write(coding.EncodeFrame(res.Magic, res.Version, res.Body)); err != nil {
			return err
		}
		if res.HighestChunkNumber > runHighest {
			runHighest = res.HighestChunkNumber
		}
	}
	if len(results) > 0 {
		w.footer.ChunkMapTable[runHighest] = runStart
		w.mainFooter.ChunkMaps[runHighest] = runStart
	}

	w.footer.LengthOfSegment = w.offset
	w.footer.FooterOffset = w.offset
	if err := w.write(w.footer.Encode()); err != nil {
		return fmt.Errorf("segment: write segment_footer: %w", err)
	}
	if err := w.write(coding.PutU64(nil, w.footer.FooterOffset)); err != nil {
		return fmt.Errorf("segment: write segment_footer trailer: %w", err)
	}

	if isLast {
		w.mainFooter.NumberOfSegments = w.segmentCount
		mainFooterOffset := w.offset
		w.mainFooter.FooterOffset = mainFooterOffset
		if err := w.write(w.mainFooter.Encode()); err != nil {
			return fmt.Errorf("segment: write main_footer: %w", err)
		}
		if err := w.write(coding.PutU64(nil, mainFooterOffset)); err != nil {
			return fmt.Errorf("segment: write main_footer trailer: %w", err)
		}
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("segment: close %s: %w", w.file.Name(), err)
	}
	return nil
}

// SetDescriptionNotes attaches free-form notes to the eventual main footer.
func (w *Writer) SetDescriptionNotes(notes string) {
	w.mainFooter.DescriptionNotes = notes
}

// Close finalizes the last segment, writing the container-wide main footer
// after it. The Writer must not be used afterward.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.finishSegment(true)
}

// Extend reopens the most recently written segment of an existing container
// so a new writing session can continue chunk allocation from where the
// prior one left off (§4.G "On Extend, the writer opens the previous last
// segment ... and continues chunk allocation from previous_max_chunk + 1").
// The previous last segment's footer and main footer trailer are discarded
// by truncating the file back to the old footer's offset; the new last
// segment (which may be this same file, if no rollover happens before the
// next Close) will carry a freshly written footer and main footer. Per the
// decided Open Question (§9), the reader always resolves the main footer
// from the highest-numbered segment on disk, so the stale footer bytes
// never need to be zeroed in place — only physically removed here so the
// writer can resume appending at the right offset.
func Extend(dir, stem string, policy Policy) (w *Writer, nextChunkNumber uint64, err error) {
	path, segmentNumber, err := findLastSegment(dir, stem)
	if err != nil {
		return nil, 0, err
	}
	r, err := Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("segment: open last segment for extend: %w", err)
	}
	defer r.Close()

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, 0, fmt.Errorf("segment: reopen %s for extend: %w", path, err)
	}
	if err := f.Truncate(int64(r.Footer.FooterOffset)); err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("segment: truncate %s: %w", path, err)
	}
	if _, err := f.Seek(int64(r.Footer.FooterOffset), io.SeekStart); err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("segment: seek %s: %w", path, err)
	}

	mainFooter := carryForwardMainFooter(r.MainFooter)

	w = &Writer{
		dir:              dir,
		stem:             stem,
		uniqueIdentifier: r.Header.UniqueIdentifier,
		policy:           policy,
		file:             f,
		header:           r.Header,
		footer:           r.Footer,
		offset:           r.Footer.FooterOffset,
		chunks:           chunkmap.NewSet(policy.ChunkmapSize),
		firstChunkSeen:   len(r.Footer.ChunkMapTable) > 0,
		mainFooter:       mainFooter,
		segmentCount:     segmentNumber,
	}
	next := highestChunkNumber(r.Footer) + 1
	if len(r.Footer.ChunkMapTable) == 0 && r.MainFooter != nil {
		// A last segment opened by a rollover just before Close holds no
		// chunk maps; the main footer's table spans every segment.
		next = highestChunkNumber(&Footer{ChunkMapTable: r.MainFooter.ChunkMaps}) + 1
	}
	return w, next, nil
}

// carryForwardMainFooter seeds a fresh MainFooter with the container-wide
// tables from the previous main footer (§4.G Extend: "the previous main
// footer is invalidated; the new last segment will carry a fresh one" —
// fresh framing, not fresh content). prev is nil when the highest-numbered
// segment on disk carries only a segment footer, which Open accepts; a
// fresh, empty MainFooter is returned then.
func carryForwardMainFooter(prev *MainFooter) *MainFooter {
	if prev == nil {
		return NewMainFooter()
	}
	mf := NewMainFooter()
	for k, v := range prev.ObjectHeaderSegments {
		mf.ObjectHeaderSegments[k] = v
	}
	for k, v := range prev.ObjectFooterSegments {
		mf.ObjectFooterSegments[k] = v
	}
	for k, v := range prev.ChunkMaps {
		mf.ChunkMaps[k] = v
	}
	mf.DescriptionNotes = prev.DescriptionNotes
	return mf
}

func highestChunkNumber(f *Footer) uint64 {
	var max uint64
	for k := range f.ChunkMapTable {
		if k > max {
			max = k
		}
	}
	return max
}

func findLastSegment(dir, stem string) (path string, segmentNumber uint64, err error) {
	var best uint64
	var found bool
	for n := uint64(1); ; n++ {
		p := segmentPath(dir, stem, n)
		if _, statErr := os.Stat(p); statErr != nil {
			break
		}
		best = n
		found = true
	}
	if !found {
		return "", 0, fmt.Errorf("segment: no existing segments found for %s in %s", stem, dir)
	}
	return segmentPath(dir, stem, best), best, nil
}
