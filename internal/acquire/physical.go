// Package acquire ties the per-chunk pipeline, the six chunk maps, and the
// segment writer together into the whole-object acquisition flow (§4.C–§4.G
// control flow): write an object header, stream the source through
// internal/chunking, append every PreparedChunk to internal/segment, digest
// the plaintext as it passes, and close out with an object footer.
package acquire

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"time"

	"github.com/kenneth/zffcore/internal/chunking"
	"github.com/kenneth/zffcore/internal/object"
	"github.com/kenneth/zffcore/internal/segment"
	"github.com/kenneth/zffcore/internal/zcrypto"
	"github.com/kenneth/zffcore/internal/zfflog"

	"github.com/sirupsen/logrus"
)

// Options configures one object's acquisition.
type Options struct {
	ChunkSize   uint32
	Compression chunking.CompressionConfig
	Encryption  *chunking.EncryptionConfig
	Dedup       chunking.Dedup
	VerifyWithBlake3 bool
	Workers     int

	// HashTypes selects which digests the object footer's hash_header
	// carries. Only HashTypeBlake3 and HashTypeSHA256 are computed by this
	// package; any other value is accepted (for forward compatibility with
	// readers) but silently produces no HashValue.
	HashTypes []object.HashType

	// SigningKey, if non-nil, Ed25519-signs every computed digest.
	SigningKey ed25519.PrivateKey

	Description *object.DescriptionHeader
}

func newHashers(types []object.HashType) (map[object.HashType]hash.Hash, []io.Writer) {
	hashers := make(map[object.HashType]hash.Hash, len(types))
	sinks := make([]io.Writer, 0, len(types))
	for _, t := range types {
		var h hash.Hash
		switch t {
		case object.HashTypeBlake3:
			h = zcrypto.NewBlake3Hasher()
		case object.HashTypeSHA256:
			h = sha256.New()
		default:
			continue
		}
		hashers[t] = h
		sinks = append(sinks, h)
	}
	return hashers, sinks
}

// countingReader tees every byte read from r into sinks and counts the
// total bytes that pass through, giving AcquirePhysical an exact
// length_of_data and whole-object digests without buffering the stream.
type countingReader struct {
	r     io.Reader
	sinks []io.Writer
	n     uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.n += uint64(n)
		for _, s := range c.sinks {
			s.Write(p[:n])
		}
	}
	return n, err
}

// AcquirePhysical runs the full §4.F/§4.C/§4.G physical-object acquisition
// flow: writes the object header, streams r through the chunking pipeline
// starting at startChunkNumber, appends every prepared chunk to w, and
// writes the closing ObjectFooterPhysical with hash_header populated from
// opts.HashTypes. It returns the next unused chunk number.
func AcquirePhysical(ctx context.Context, w *segment.Writer, objectNumber uint64, startChunkNumber uint64, r io.Reader, opts Options) (nextChunkNumber uint64, err error) {
	header := object.ObjectHeader{
		ObjectNumber:      objectNumber,
		ChunkSize:         uint64(opts.ChunkSize),
		ObjectType:        object.ObjectTypePhysical,
		DescriptionHeader: opts.Description,
		CompressionHeader: object.CompressionHeader{
			Algorithm: opts.Compression.Algorithm,
			Level:     int32(opts.Compression.Level),
			Threshold: opts.Compression.Threshold,
		},
	}
	if err := w.WriteObjectHeader(objectNumber, header.Encode()); err != nil {
		return 0, fmt.Errorf("acquire: write object %d header: %w", objectNumber, err)
	}

	hashers, sinks := newHashers(opts.HashTypes)
	counting := &countingReader{r: r, sinks: sinks}

	br := bufio.NewReader(counting)
	emptyFile := false
	if _, err := br.Peek(1); err == io.EOF {
		emptyFile = true
	}

	pipeline := chunking.NewPipeline(chunking.Config{
		ChunkSize:        opts.ChunkSize,
		Compression:      opts.Compression,
		Encryption:       opts.Encryption,
		Dedup:            opts.Dedup,
		VerifyWithBlake3: opts.VerifyWithBlake3,
		Workers:          opts.Workers,
	})

	acquisitionStart := time.Now().Unix()

	var firstChunkNumber, numberOfChunks uint64
	first := true
	for res := range pipeline.ProcessStream(ctx, br, startChunkNumber, emptyFile) {
		if res.Err != nil {
			return 0, fmt.Errorf("acquire: object %d: %w", objectNumber, res.Err)
		}
		if first {
			firstChunkNumber = res.Chunk.ChunkNumber
			first = false
		}
		numberOfChunks++
		if err := w.AppendChunk(res.Chunk); err != nil {
			return 0, fmt.Errorf("acquire: object %d: append chunk %d: %w", objectNumber, res.Chunk.ChunkNumber, err)
		}
	}

	acquisitionEnd := time.Now().Unix()

	values := make([]object.HashValue, 0, len(opts.HashTypes))
	for _, t := range opts.HashTypes {
		h, ok := hashers[t]
		if !ok {
			continue
		}
		digest := h.Sum(nil)
		hv := object.HashValue{HashType: t, Digest: digest}
		if opts.SigningKey != nil {
			sig, err := zcrypto.SignHashValue([]byte(opts.SigningKey), digest)
			if err != nil {
				return 0, fmt.Errorf("acquire: object %d: sign %s digest: %w", objectNumber, t, err)
			}
			hv.Signature = sig
		}
		values = append(values, hv)
	}

	footer := object.ObjectFooterPhysical{
		ObjectNumber:     objectNumber,
		AcquisitionStart: uint64(acquisitionStart),
		AcquisitionEnd:   uint64(acquisitionEnd),
		LengthOfData:     counting.n,
		FirstChunkNumber: firstChunkNumber,
		NumberOfChunks:   numberOfChunks,
		HashHeader:       object.HashHeader{Values: values},
	}
	if err := w.WriteObjectFooter(objectNumber, footer.Encode()); err != nil {
		return 0, fmt.Errorf("acquire: write object %d footer: %w", objectNumber, err)
	}

	zfflog.WithFields(logrus.Fields{
		"object_number":    objectNumber,
		"number_of_chunks": numberOfChunks,
		"length_of_data":   counting.n,
	}).Info("acquire: physical object sealed")

	return startChunkNumber + numberOfChunks, nil
}
