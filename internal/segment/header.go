// Package segment implements the §4.G/H segment writer and reader: the
// container's on-disk unit of storage, framed by a Header and closed by a
// Footer (plus, in the last segment written, the container-wide MainFooter).
package segment

import (
	"fmt"

	"github.com/kenneth/zffcore/internal/coding"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// Header opens every segment file (§3 Data Model: "a file beginning with a
// SegmentHeader { unique_identifier, segment_number, chunkmap_size }").
type Header struct {
	UniqueIdentifier uint64
	SegmentNumber    uint64
	ChunkmapSize     uint64
}

// Encode returns the framed Header.
func (h Header) Encode() []byte {
	body := make([]byte, 0, 24)
	body = coding.PutU64(body, h.UniqueIdentifier)
	body = coding.PutU64(body, h.SegmentNumber)
	body = coding.PutU64(body, h.ChunkmapSize)
	return coding.EncodeFrame(coding.IdentifierSegmentHeader, coding.VersionSegmentHeader, body)
}

// DecodeHeader parses a framed Header previously produced by Encode.
func DecodeHeader(data []byte) (Header, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierSegmentHeader)
	if err != nil {
		return Header{}, err
	}
	if f.Version != coding.VersionSegmentHeader {
		return Header{}, fmt.Errorf("segment: segment_header version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
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

// NextHeader returns the header for the segment that follows this one,
// carrying the same identifier and chunkmap policy forward (original_source/
// version2/header/segment_header.rs's next_header).
func (h Header) NextHeader() Header {
	return Header{UniqueIdentifier: h.UniqueIdentifier, SegmentNumber: h.SegmentNumber + 1, ChunkmapSize: h.ChunkmapSize}
}
