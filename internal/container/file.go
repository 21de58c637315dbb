package container

import (
	"fmt"

	"github.com/kenneth/zffcore/internal/coding"
	"github.com/kenneth/zffcore/internal/object"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// RootFiles returns the file numbers at the root of a Logical object's
// file tree.
func (o *Object) RootFiles() ([]uint64, error) {
	if o.Logical == nil {
		return nil, fmt.Errorf("container: object %d is not a logical object", o.Number)
	}
	return o.Logical.RootDirFilenumbers, nil
}

// FileHeader resolves one file tree entry's header (§4.F): its name, type,
// parent, timestamps, and extended metadata. Directory/Symlink/Hardlink/
// SpecialFile entries carry their type-specific payload as a serialized
// body over the object's own chunk stream rather than in the header.
func (o *Object) FileHeader(fileNumber uint64) (object.FileHeader, error) {
	if o.Logical == nil {
		return object.FileHeader{}, fmt.Errorf("container: object %d is not a logical object", o.Number)
	}
	segNum, ok := o.Logical.FileHeaderSegmentNumbers[fileNumber]
	if !ok {
		return object.FileHeader{}, fmt.Errorf("container: file %d: %w", fileNumber, zfferr.ErrMissingFileNumber)
	}
	offset, ok := o.Logical.FileHeaderOffsets[fileNumber]
	if !ok {
		return object.FileHeader{}, fmt.Errorf("container: file %d: %w", fileNumber, zfferr.ErrMissingFileNumber)
	}
	seg, err := o.container.segment(segNum)
	if err != nil {
		return object.FileHeader{}, err
	}
	_, raw, err := readRawFrame(seg, offset, coding.IdentifierFileHeader)
	if err != nil {
		return object.FileHeader{}, fmt.Errorf("container: file %d header: %w", fileNumber, err)
	}
	if o.aead != nil {
		return object.DecodeEncryptedFileHeader(raw, o.aead)
	}
	return object.DecodeFileHeader(raw)
}

// fileFooter resolves one file tree entry's footer: its chunk range and
// overall hash.
func (o *Object) fileFooter(fileNumber uint64) (object.FileFooter, error) {
	if o.Logical == nil {
		return object.FileFooter{}, fmt.Errorf("container: object %d is not a logical object", o.Number)
	}
	segNum, ok := o.Logical.FileFooterSegmentNumbers[fileNumber]
	if !ok {
		return object.FileFooter{}, fmt.Errorf("container: file %d: %w", fileNumber, zfferr.ErrMissingFileNumber)
	}
	offset, ok := o.Logical.FileFooterOffsets[fileNumber]
	if !ok {
		return object.FileFooter{}, fmt.Errorf("container: file %d: %w", fileNumber, zfferr.ErrMissingFileNumber)
	}
	seg, err := o.container.segment(segNum)
	if err != nil {
		return object.FileFooter{}, err
	}
	_, raw, err := readRawFrame(seg, offset, coding.IdentifierFileFooter)
	if err != nil {
		return object.FileFooter{}, fmt.Errorf("container: file %d footer: %w", fileNumber, err)
	}
	if o.aead != nil {
		return object.DecodeEncryptedFileFooter(raw, o.aead)
	}
	return object.DecodeFileFooter(raw)
}

// FileReader gives random-access read access to one logical file's content,
// following the same chunk-range algorithm a physical object's stream uses
// (§4.I "per-file reads on a logical object traverse the file's chunk
// range").
type FileReader struct {
	object *Object
	footer object.FileFooter
}

// OpenFile mounts a logical object's file footer and returns a seekable
// reader over its content chunks.
func (o *Object) OpenFile(fileNumber uint64) (*FileReader, error) {
	footer, err := o.fileFooter(fileNumber)
	if err != nil {
		return nil, err
	}
	return &FileReader{object: o, footer: footer}, nil
}

// FileNumber returns the file number this reader was opened for.
func (fr *FileReader) FileNumber() uint64 { return fr.footer.FileNumber }

// Size returns the file's total logical length.
func (fr *FileReader) Size() uint64 { return fr.footer.LengthOfData }

// ReadAt implements io.ReaderAt over the file's content.
func (fr *FileReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, zfferr.ErrUnseekableNegativePosition
	}
	return fr.object.container.readRange(fr.object, fr.footer.FirstChunkNumber, fr.footer.NumberOfChunks, fr.footer.LengthOfData, p, uint64(off))
}
