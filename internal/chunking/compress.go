package chunking

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/kenneth/zffcore/internal/zfferr"
)

// compress applies algo to plaintext at the given level, returning the
// compressed bytes. The caller (pipeline.runJob) is responsible for
// enforcing the ratio threshold (§4.C step 4); compress itself always
// compresses when asked.
func compress(algo CompressionAlgorithm, level int, plaintext []byte) ([]byte, error) {
	switch algo {
	case CompressionZstd:
		return compressZstd(level, plaintext)
	case CompressionLZ4:
		return compressLZ4(level, plaintext)
	default:
		return nil, fmt.Errorf("chunking: unknown compression algorithm %d", algo)
	}
}

// Decompress reverses compress, used by the container reader.
func Decompress(algo CompressionAlgorithm, compressed []byte) ([]byte, error) {
	switch algo {
	case CompressionZstd:
		return decompressZstd(compressed)
	case CompressionLZ4:
		return decompressLZ4(compressed)
	default:
		return nil, fmt.Errorf("chunking: unknown compression algorithm %d: %w", algo, zfferr.ErrDecompressionFailure)
	}
}

func compressZstd(level int, plaintext []byte) ([]byte, error) {
	zlevel := zstd.SpeedDefault
	switch {
	case level <= 1:
		zlevel = zstd.SpeedFastest
	case level >= 9:
		zlevel = zstd.SpeedBestCompression
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zlevel))
	if err != nil {
		return nil, fmt.Errorf("chunking: zstd.NewWriter: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(plaintext, nil), nil
}

func decompressZstd(compressed []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("chunking: zstd.NewReader: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("chunking: zstd decode: %w: %w", err, zfferr.ErrDecompressionFailure)
	}
	return out, nil
}

func compressLZ4(level int, plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if level >= 9 {
		// lz4.Level9 trades speed for ratio; anything below it uses the
		// writer's fast default, matching the CLI's `-l 1..9` knob (§6).
		if err := w.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, fmt.Errorf("chunking: lz4 apply options: %w", err)
		}
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("chunking: lz4 write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("chunking: lz4 close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressLZ4(compressed []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(compressed))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("chunking: lz4 decode: %w: %w", err, zfferr.ErrDecompressionFailure)
	}
	return out, nil
}
