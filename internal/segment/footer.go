package segment

import (
	"fmt"

	"github.com/kenneth/zffcore/internal/coding"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// Footer closes every segment file (§3 Data Model, §4.G). ChunkMapTable
// keys are the highest chunk number recorded in each flushed chunk-map
// frame, letting the reader binary-search for the map covering a given
// chunk number (§4.H).
type Footer struct {
	LengthOfSegment     uint64
	ObjectHeaderOffsets map[uint64]uint64 // object_number -> offset
	ObjectFooterOffsets map[uint64]uint64 // object_number -> offset
	ChunkMapTable       map[uint64]uint64 // highest_chunk_number -> offset
	FirstChunkNumber    uint64
	FooterOffset        uint64
}

// NewFooter returns an empty footer ready for incremental population as the
// writer places objects and chunk maps in a segment.
func NewFooter() *Footer {
	return &Footer{
		ObjectHeaderOffsets: make(map[uint64]uint64),
		ObjectFooterOffsets: make(map[uint64]uint64),
		ChunkMapTable:       make(map[uint64]uint64),
	}
}

// Encode returns the framed Footer.
func (f Footer) Encode() []byte {
	body := make([]byte, 0, 64)
	body = coding.PutU64(body, f.LengthOfSegment)
	body = coding.PutUnorderedMapU64(body, f.ObjectHeaderOffsets)
	body = coding.PutUnorderedMapU64(body, f.ObjectFooterOffsets)
	body = coding.PutUnorderedMapU64(body, f.ChunkMapTable)
	body = coding.PutU64(body, f.FirstChunkNumber)
	body = coding.PutU64(body, f.FooterOffset)
	return coding.EncodeFrame(coding.IdentifierSegmentFooter, coding.VersionSegmentFooter, body)
}

// DecodeFooter parses a framed Footer previously produced by Encode.
func DecodeFooter(data []byte) (*Footer, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierSegmentFooter)
	if err != nil {
		return nil, err
	}
	if f.Version != coding.VersionSegmentFooter {
		return nil, fmt.Errorf("segment: segment_footer version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	lengthOfSegment, err := r.U64()
	if err != nil {
		return nil, err
	}
	objectHeaderOffsets, err := r.UnorderedMapU64()
	if err != nil {
		return nil, err
	}
	objectFooterOffsets, err := r.UnorderedMapU64()
	if err != nil {
		return nil, err
	}
	chunkMapTable, err := r.UnorderedMapU64()
	if err != nil {
		return nil, err
	}
	firstChunkNumber, err := r.U64()
	if err != nil {
		return nil, err
	}
	footerOffset, err := r.U64()
	if err != nil {
		return nil, err
	}
	return &Footer{
		LengthOfSegment:     lengthOfSegment,
		ObjectHeaderOffsets: objectHeaderOffsets,
		ObjectFooterOffsets: objectFooterOffsets,
		ChunkMapTable:       chunkMapTable,
		FirstChunkNumber:    firstChunkNumber,
		FooterOffset:        footerOffset,
	}, nil
}
