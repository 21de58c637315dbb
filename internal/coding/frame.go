// Package coding implements the container's binary wire format: fixed
// endian primitives plus the framed-header convention every persisted
// structure uses.
//
// Every frame is: identifier:u32 BE ‖ total_length:u64 LE ‖ version:u8 ‖ body.
// The identifier is big-endian (it reads as four ASCII bytes on disk); every
// other multi-byte integer in the format is little-endian. This asymmetry is
// historical and is preserved bit-for-bit for container interoperability.
package coding

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kenneth/zffcore/internal/zfferr"
)

// FrameHeaderSize is the size in bytes of the fixed frame prefix, before body.
const FrameHeaderSize = 4 + 8 + 1

// Frame is the decoded prefix of any persisted structure.
type Frame struct {
	Identifier   uint32
	TotalLength  uint64
	Version      uint8
}

// WriteFrame writes the frame prefix followed by body to w.
func WriteFrame(w io.Writer, identifier uint32, version uint8, body []byte) (int, error) {
	total := uint64(FrameHeaderSize) + uint64(len(body))

	buf := make([]byte, FrameHeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], identifier)
	binary.LittleEndian.PutUint64(buf[4:12], total)
	buf[12] = version

	n1, err := w.Write(buf)
	if err != nil {
		return n1, fmt.Errorf("coding: write frame header: %w", err)
	}
	n2, err := w.Write(body)
	if err != nil {
		return n1 + n2, fmt.Errorf("coding: write frame body: %w", err)
	}
	return n1 + n2, nil
}

// EncodeFrame returns the full framed encoding of body under identifier/version.
func EncodeFrame(identifier uint32, version uint8, body []byte) []byte {
	out := make([]byte, 0, FrameHeaderSize+len(body))
	var hdr [FrameHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], identifier)
	binary.LittleEndian.PutUint64(hdr[4:12], uint64(FrameHeaderSize+len(body)))
	hdr[12] = version
	out = append(out, hdr[:]...)
	out = append(out, body...)
	return out
}

// ReadFrame reads and validates a frame prefix from r, returning the parsed
// Frame and the raw body bytes. A wantIdentifier of 0 disables the
// identifier check; the version byte is returned unchecked for the caller
// to validate.
func ReadFrame(r io.Reader, wantIdentifier uint32) (Frame, []byte, error) {
	var hdr [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, nil, fmt.Errorf("coding: read frame header: %w", err)
	}

	f := Frame{
		Identifier:  binary.BigEndian.Uint32(hdr[0:4]),
		TotalLength: binary.LittleEndian.Uint64(hdr[4:12]),
		Version:     hdr[12],
	}

	if wantIdentifier != 0 && f.Identifier != wantIdentifier {
		return f, nil, fmt.Errorf("coding: identifier %08x != expected %08x: %w", f.Identifier, wantIdentifier, zfferr.ErrMismatchIdentifier)
	}
	if f.TotalLength < uint64(FrameHeaderSize) {
		return f, nil, fmt.Errorf("coding: total_length %d shorter than frame header: %w", f.TotalLength, zfferr.ErrHeaderLength)
	}

	bodyLen := f.TotalLength - uint64(FrameHeaderSize)
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return f, nil, fmt.Errorf("coding: read frame body: %w", err)
	}
	return f, body, nil
}

// ParseFrame parses a frame prefix + body out of a byte slice already held
// in memory (used by chunk-map decoding, which reads whole maps at once).
func ParseFrame(data []byte, wantIdentifier uint32) (Frame, []byte, error) {
	if len(data) < FrameHeaderSize {
		return Frame{}, nil, fmt.Errorf("coding: frame shorter than header: %w", zfferr.ErrHeaderLength)
	}
	f := Frame{
		Identifier:  binary.BigEndian.Uint32(data[0:4]),
		TotalLength: binary.LittleEndian.Uint64(data[4:12]),
		Version:     data[12],
	}
	if wantIdentifier != 0 && f.Identifier != wantIdentifier {
		return f, nil, fmt.Errorf("coding: identifier %08x != expected %08x: %w", f.Identifier, wantIdentifier, zfferr.ErrMismatchIdentifier)
	}
	if f.TotalLength < uint64(FrameHeaderSize) || f.TotalLength > uint64(len(data)) {
		return f, nil, fmt.Errorf("coding: total_length %d inconsistent with buffer of %d: %w", f.TotalLength, len(data), zfferr.ErrHeaderLength)
	}
	return f, data[FrameHeaderSize:f.TotalLength], nil
}
