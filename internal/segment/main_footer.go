package segment

import (
	"fmt"

	"github.com/kenneth/zffcore/internal/coding"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// MainFooter is written once, at the end of the last segment, and is the
// entry point a container reader resolves first (§4.G, §4.I): "locate the
// main footer (tail of the largest segment_number)".
type MainFooter struct {
	NumberOfSegments    uint64
	ObjectHeaderSegments map[uint64]uint64 // object_number -> segment_number
	ObjectFooterSegments map[uint64]uint64 // object_number -> segment_number
	ChunkMaps            map[uint64]uint64 // highest_chunk_number -> map_offset_in_its_segment
	DescriptionNotes     string            // empty when absent
	FooterOffset         uint64
}

// NewMainFooter returns an empty main footer ready for incremental
// population as the writer finalizes the last segment.
func NewMainFooter() *MainFooter {
	return &MainFooter{
		ObjectHeaderSegments: make(map[uint64]uint64),
		ObjectFooterSegments: make(map[uint64]uint64),
		ChunkMaps:            make(map[uint64]uint64),
	}
}

// Encode returns the framed MainFooter.
func (f MainFooter) Encode() []byte {
	body := make([]byte, 0, 64)
	body = coding.PutU64(body, f.NumberOfSegments)
	body = coding.PutUnorderedMapU64(body, f.ObjectHeaderSegments)
	body = coding.PutUnorderedMapU64(body, f.ObjectFooterSegments)
	body = coding.PutUnorderedMapU64(body, f.ChunkMaps)
	body = coding.PutString(body, f.DescriptionNotes)
	body = coding.PutU64(body, f.FooterOffset)
	return coding.EncodeFrame(coding.IdentifierMainFooter, coding.VersionMainFooter, body)
}

// DecodeMainFooter parses a framed MainFooter previously produced by Encode.
func DecodeMainFooter(data []byte) (*MainFooter, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierMainFooter)
	if err != nil {
		return nil, err
	}
	if f.Version != coding.VersionMainFooter {
		return nil, fmt.Errorf("segment: main_footer version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	numberOfSegments, err := r.U64()
	if err != nil {
		return nil, err
	}
	objectHeaderSegments, err := r.UnorderedMapU64()
	if err != nil {
		return nil, err
	}
	objectFooterSegments, err := r.UnorderedMapU64()
	if err != nil {
		return nil, err
	}
	chunkMaps, err := r.UnorderedMapU64()
	if err != nil {
		return nil, err
	}
	descriptionNotes, err := r.String()
	if err != nil {
		return nil, err
	}
	footerOffset, err := r.U64()
	if err != nil {
		return nil, err
	}
	return &MainFooter{
		NumberOfSegments:     numberOfSegments,
		ObjectHeaderSegments: objectHeaderSegments,
		ObjectFooterSegments: objectFooterSegments,
		ChunkMaps:            chunkMaps,
		DescriptionNotes:     descriptionNotes,
		FooterOffset:         footerOffset,
	}, nil
}
