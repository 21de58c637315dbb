package acquire

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kenneth/zffcore/internal/chunking"
	"github.com/kenneth/zffcore/internal/object"
	"github.com/kenneth/zffcore/internal/segment"
	"github.com/kenneth/zffcore/internal/zfflog"

	"github.com/sirupsen/logrus"
)

// LogicalEntry describes one node of a logical object's file tree (§4.F).
// Open is only consulted for FileTypeFile entries; every other kind's
// on-disk content is derived from the entry's own fields via
// object.FileTypeEncodingInformation.SerializeBody.
type LogicalEntry struct {
	FileNumber       uint64
	ParentFileNumber uint64
	Filename         string
	Type             object.FileTypeKind
	Atime            uint64
	Mtime            uint64
	Ctime            uint64
	Btime            uint64
	MetadataExt      map[string]string

	DirectoryChildren []uint64
	SymlinkTarget     string
	HardlinkTarget    uint64
	SpecialRdev       uint64
	SpecialKind       object.SpecialFileKind

	// Open returns the file's content for FileTypeFile entries. Called at
	// most once per entry, and the returned ReadCloser is always closed
	// before AcquireLogical moves to the next entry.
	Open func() (io.ReadCloser, error)
}

// LogicalOptions configures one logical object's acquisition. It mirrors
// Options, minus SigningKey (file digests are not signed), and additionally
// names which file numbers sit at the root of the tree.
type LogicalOptions struct {
	ChunkSize        uint32
	Compression      chunking.CompressionConfig
	Encryption       *chunking.EncryptionConfig
	Dedup            chunking.Dedup
	VerifyWithBlake3 bool
	Workers          int

	HashTypes []object.HashType

	Description     *object.DescriptionHeader
	RootFileNumbers []uint64
}

// AcquireLogical runs the logical-object acquisition flow (§4.F): writes
// the object header, then for every entry (in caller-supplied order, which
// must list a directory's own FileHeader before the FileHeaders of its
// children reference it) writes a FileHeader, streams the entry's content
// through the chunking pipeline, writes a FileFooter, and finally an
// ObjectFooterLogical recording where every FileHeader/FileFooter landed.
// It returns the next unused chunk number.
func AcquireLogical(ctx context.Context, w *segment.Writer, objectNumber uint64, startChunkNumber uint64, entries []LogicalEntry, opts LogicalOptions) (nextChunkNumber uint64, err error) {
	header := object.ObjectHeader{
		ObjectNumber:      objectNumber,
		ChunkSize:         uint64(opts.ChunkSize),
		ObjectType:        object.ObjectTypeLogical,
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

	footer := object.ObjectFooterLogical{
		ObjectNumber:             objectNumber,
		AcquisitionStart:         uint64(time.Now().Unix()),
		RootDirFilenumbers:       opts.RootFileNumbers,
		FileHeaderSegmentNumbers: make(map[uint64]uint64, len(entries)),
		FileHeaderOffsets:        make(map[uint64]uint64, len(entries)),
		FileFooterSegmentNumbers: make(map[uint64]uint64, len(entries)),
		FileFooterOffsets:        make(map[uint64]uint64, len(entries)),
	}

	chunkNumber := startChunkNumber
	for _, entry := range entries {
		nextChunkNumber, err := acquireFileEntry(ctx, w, &footer, chunkNumber, entry, opts)
		if err != nil {
			return 0, err
		}
		chunkNumber = nextChunkNumber
	}

	footer.AcquisitionEnd = uint64(time.Now().Unix())
	if err := w.WriteObjectFooter(objectNumber, footer.Encode()); err != nil {
		return 0, fmt.Errorf("acquire: write object %d footer: %w", objectNumber, err)
	}

	zfflog.WithFields(logrus.Fields{
		"object_number": objectNumber,
		"file_count":    len(entries),
	}).Info("acquire: logical object sealed")

	return chunkNumber, nil
}

func acquireFileEntry(ctx context.Context, w *segment.Writer, footer *object.ObjectFooterLogical, startChunkNumber uint64, entry LogicalEntry, opts LogicalOptions) (uint64, error) {
	fileHeader := object.FileHeader{
		FileNumber:       entry.FileNumber,
		FileType:         entry.Type,
		Filename:         entry.Filename,
		ParentFileNumber: entry.ParentFileNumber,
		Atime:            entry.Atime,
		Mtime:            entry.Mtime,
		Ctime:            entry.Ctime,
		Btime:            entry.Btime,
		MetadataExt:      entry.MetadataExt,
	}
	headerSeg, headerOffset, err := w.WriteFileHeader(fileHeader.Encode())
	if err != nil {
		return 0, fmt.Errorf("acquire: write file %d header: %w", entry.FileNumber, err)
	}
	footer.FileHeaderSegmentNumbers[entry.FileNumber] = headerSeg
	footer.FileHeaderOffsets[entry.FileNumber] = headerOffset

	body, closeBody, err := fileEntryReader(entry)
	if err != nil {
		return 0, fmt.Errorf("acquire: file %d: %w", entry.FileNumber, err)
	}
	defer closeBody()

	hashers, sinks := newHashers(opts.HashTypes)
	counting := &countingReader{r: body, sinks: sinks}

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
			return 0, fmt.Errorf("acquire: file %d: %w", entry.FileNumber, res.Err)
		}
		if first {
			firstChunkNumber = res.Chunk.ChunkNumber
			first = false
		}
		numberOfChunks++
		if err := w.AppendChunk(res.Chunk); err != nil {
			return 0, fmt.Errorf("acquire: file %d: append chunk %d: %w", entry.FileNumber, res.Chunk.ChunkNumber, err)
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
		values = append(values, object.HashValue{HashType: t, Digest: digest})
	}

	fileFooter := object.FileFooter{
		FileNumber:       entry.FileNumber,
		AcquisitionStart: uint64(acquisitionStart),
		AcquisitionEnd:   uint64(acquisitionEnd),
		HashHeader:       object.HashHeader{Values: values},
		FirstChunkNumber: firstChunkNumber,
		NumberOfChunks:   numberOfChunks,
		LengthOfData:     counting.n,
	}
	footerSeg, footerOffset, err := w.WriteFileFooter(fileFooter.Encode())
	if err != nil {
		return 0, fmt.Errorf("acquire: write file %d footer: %w", entry.FileNumber, err)
	}
	footer.FileFooterSegmentNumbers[entry.FileNumber] = footerSeg
	footer.FileFooterOffsets[entry.FileNumber] = footerOffset

	return startChunkNumber + numberOfChunks, nil
}

// fileEntryReader returns the plaintext entry.Type's chunking pipeline runs
// over: the caller's own reader for FileTypeFile, or the serialized
// type-specific payload (directory children, symlink target, ...) for
// every other kind (§4.F).
func fileEntryReader(entry LogicalEntry) (io.Reader, func(), error) {
	if entry.Type == object.FileTypeFile {
		if entry.Open == nil {
			return nil, nil, fmt.Errorf("file %d has no Open func", entry.FileNumber)
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open file %d: %w", entry.FileNumber, err)
		}
		return rc, func() { rc.Close() }, nil
	}

	info := object.FileTypeEncodingInformation{
		Kind:              entry.Type,
		DirectoryChildren: entry.DirectoryChildren,
		SymlinkTarget:     entry.SymlinkTarget,
		HardlinkTarget:    entry.HardlinkTarget,
		SpecialRdev:       entry.SpecialRdev,
		SpecialKind:       entry.SpecialKind,
	}
	body, err := info.SerializeBody()
	if err != nil {
		return nil, nil, err
	}
	return bytes.NewReader(body), func() {}, nil
}
