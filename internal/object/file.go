package object

import (
	"crypto/cipher"
	"fmt"
	"sort"

	"github.com/kenneth/zffcore/internal/coding"
	"github.com/kenneth/zffcore/internal/zcrypto"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// FileTypeKind is the discriminant of a FileTypeEncodingInformation (§4.F):
// "one of File(reader), Directory(children:[u64]), Symlink(target_path),
// Hardlink(target_file_number), SpecialFile(rdev, kind)".
type FileTypeKind uint8

const (
	FileTypeFile FileTypeKind = iota + 1
	FileTypeDirectory
	FileTypeSymlink
	FileTypeHardlink
	FileTypeSpecialFile
)

func (k FileTypeKind) String() string {
	switch k {
	case FileTypeFile:
		return "File"
	case FileTypeDirectory:
		return "Directory"
	case FileTypeSymlink:
		return "Symlink"
	case FileTypeHardlink:
		return "Hardlink"
	case FileTypeSpecialFile:
		return "SpecialFile"
	default:
		return "Unknown"
	}
}

// SpecialFileKind narrows FileTypeSpecialFile to the kind of special node.
type SpecialFileKind uint8

const (
	SpecialFileFifo SpecialFileKind = iota
	SpecialFileChar
	SpecialFileBlock
	SpecialFileSocket
)

// FileTypeEncodingInformation is the type-specific payload of a logical
// tree entry. For File entries, the caller streams the actual file content
// through the chunking pipeline directly (there is no serialized body);
// for every other kind, SerializeBody returns the bytes the chunking
// pipeline runs over instead.
type FileTypeEncodingInformation struct {
	Kind FileTypeKind

	DirectoryChildren []uint64 // Directory
	SymlinkTarget     string   // Symlink
	HardlinkTarget    uint64   // Hardlink
	SpecialRdev       uint64          // SpecialFile
	SpecialKind       SpecialFileKind // SpecialFile
}

// SerializeBody returns the plaintext bytes this file-type variant's
// content chunking should run over. Regular files have no serialized body:
// their own reader is chunked directly, so callers must not call this for
// FileTypeFile.
func (info FileTypeEncodingInformation) SerializeBody() ([]byte, error) {
	switch info.Kind {
	case FileTypeDirectory:
		buf := make([]byte, 0, 8+8*len(info.DirectoryChildren))
		buf = coding.PutOrderedPairsU64(buf, info.DirectoryChildren)
		return buf, nil
	case FileTypeSymlink:
		return coding.PutString(nil, info.SymlinkTarget), nil
	case FileTypeHardlink:
		return coding.PutU64(nil, info.HardlinkTarget), nil
	case FileTypeSpecialFile:
		buf := coding.PutU64(nil, info.SpecialRdev)
		buf = coding.PutU8(buf, uint8(info.SpecialKind))
		return buf, nil
	case FileTypeFile:
		return nil, fmt.Errorf("object: FileTypeFile has no serialized body, stream the file reader directly")
	default:
		return nil, fmt.Errorf("object: unknown file type kind %d: %w", info.Kind, zfferr.ErrInvalidFlagValue)
	}
}

// FileHeader identifies one entry of a logical object's file tree (§4.F,
// version2/file_header.rs's field shape, generalized to v3's split of
// identity/metadata from the type-specific payload).
type FileHeader struct {
	FileNumber       uint64
	FileType         FileTypeKind
	Filename         string
	ParentFileNumber uint64
	Atime            uint64
	Mtime            uint64
	Ctime            uint64
	Btime            uint64
	MetadataExt      map[string]string
}

func (h FileHeader) encodeContent() []byte {
	keys := make([]string, 0, len(h.MetadataExt))
	for k := range h.MetadataExt {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := make([]byte, 0, 64+len(h.Filename))
	buf = coding.PutU8(buf, uint8(h.FileType))
	buf = coding.PutString(buf, h.Filename)
	buf = coding.PutU64(buf, h.ParentFileNumber)
	buf = coding.PutU64(buf, h.Atime)
	buf = coding.PutU64(buf, h.Mtime)
	buf = coding.PutU64(buf, h.Ctime)
	buf = coding.PutU64(buf, h.Btime)
	buf = coding.PutU64(buf, uint64(len(keys)))
	for _, k := range keys {
		buf = coding.PutString(buf, k)
		buf = coding.PutString(buf, h.MetadataExt[k])
	}
	return buf
}

// Encode returns the framed, unencrypted FileHeader.
func (h FileHeader) Encode() []byte {
	body := make([]byte, 0, 64+len(h.Filename))
	body = coding.PutU64(body, h.FileNumber)
	body = coding.PutU8(body, 0) // encryption flag
	body = append(body, h.encodeContent()...)
	return coding.EncodeFrame(coding.IdentifierFileHeader, coding.VersionFileHeader, body)
}

// EncodeEncrypted whole-encrypts the header content under aead (§9).
func (h FileHeader) EncodeEncrypted(aead cipher.AEAD) []byte {
	ciphertext := zcrypto.Seal(aead, h.FileNumber, zcrypto.DomainFileHeader, h.encodeContent())
	body := make([]byte, 0, 32+len(ciphertext))
	body = coding.PutU64(body, h.FileNumber)
	body = coding.PutU8(body, 1)
	body = coding.PutBytes(body, ciphertext)
	return coding.EncodeFrame(coding.IdentifierFileHeader, coding.VersionFileHeader, body)
}

// DecodeFileHeader parses a framed, unencrypted FileHeader.
func DecodeFileHeader(data []byte) (FileHeader, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierFileHeader)
	if err != nil {
		return FileHeader{}, err
	}
	if f.Version != coding.VersionFileHeader {
		return FileHeader{}, fmt.Errorf("object: file_header version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	fileNumber, err := r.U64()
	if err != nil {
		return FileHeader{}, err
	}
	encFlag, err := r.U8()
	if err != nil {
		return FileHeader{}, err
	}
	if encFlag != 0 {
		return FileHeader{}, fmt.Errorf("object: file_header %d is whole-encrypted: %w", fileNumber, zfferr.ErrMissingEncryptionKey)
	}
	return decodeFileHeaderContent(fileNumber, r)
}

// DecodeEncryptedFileHeader parses and decrypts a whole-encrypted FileHeader.
func DecodeEncryptedFileHeader(data []byte, aead cipher.AEAD) (FileHeader, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierFileHeader)
	if err != nil {
		return FileHeader{}, err
	}
	if f.Version != coding.VersionFileHeader {
		return FileHeader{}, fmt.Errorf("object: file_header version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	fileNumber, err := r.U64()
	if err != nil {
		return FileHeader{}, err
	}
	encFlag, err := r.U8()
	if err != nil {
		return FileHeader{}, err
	}
	if encFlag == 0 {
		return FileHeader{}, fmt.Errorf("object: file_header %d is not encrypted", fileNumber)
	}
	ciphertext, err := r.ByteSlice()
	if err != nil {
		return FileHeader{}, err
	}
	plaintext, err := zcrypto.Open(aead, fileNumber, zcrypto.DomainFileHeader, ciphertext)
	if err != nil {
		return FileHeader{}, err
	}
	return decodeFileHeaderContent(fileNumber, coding.NewReader(plaintext))
}

func decodeFileHeaderContent(fileNumber uint64, r *coding.Reader) (FileHeader, error) {
	fileType, err := r.U8()
	if err != nil {
		return FileHeader{}, err
	}
	filename, err := r.String()
	if err != nil {
		return FileHeader{}, err
	}
	parentFileNumber, err := r.U64()
	if err != nil {
		return FileHeader{}, err
	}
	atime, err := r.U64()
	if err != nil {
		return FileHeader{}, err
	}
	mtime, err := r.U64()
	if err != nil {
		return FileHeader{}, err
	}
	ctime, err := r.U64()
	if err != nil {
		return FileHeader{}, err
	}
	btime, err := r.U64()
	if err != nil {
		return FileHeader{}, err
	}
	count, err := r.U64()
	if err != nil {
		return FileHeader{}, err
	}
	metadata := make(map[string]string, count)
	for i := uint64(0); i < count; i++ {
		k, err := r.String()
		if err != nil {
			return FileHeader{}, err
		}
		v, err := r.String()
		if err != nil {
			return FileHeader{}, err
		}
		metadata[k] = v
	}
	return FileHeader{
		FileNumber:       fileNumber,
		FileType:         FileTypeKind(fileType),
		Filename:         filename,
		ParentFileNumber: parentFileNumber,
		Atime:            atime,
		Mtime:            mtime,
		Ctime:            ctime,
		Btime:            btime,
		MetadataExt:      metadata,
	}, nil
}

// FileFooter closes one logical tree entry (§4.F, footer/file_footer.rs).
// Empty regular files still occupy exactly one empty-file chunk (§4.C step
// 1), so NumberOfChunks is never 0 for a File entry.
type FileFooter struct {
	FileNumber       uint64
	AcquisitionStart uint64
	AcquisitionEnd   uint64
	HashHeader       HashHeader
	FirstChunkNumber uint64
	NumberOfChunks   uint64
	LengthOfData     uint64
}

func (f FileFooter) encodeContent() []byte {
	buf := make([]byte, 0, 48)
	buf = coding.PutU64(buf, f.AcquisitionStart)
	buf = coding.PutU64(buf, f.AcquisitionEnd)
	buf = append(buf, f.HashHeader.Encode()...)
	buf = coding.PutU64(buf, f.FirstChunkNumber)
	buf = coding.PutU64(buf, f.NumberOfChunks)
	buf = coding.PutU64(buf, f.LengthOfData)
	return buf
}

// Encode returns the framed, unencrypted FileFooter.
func (f FileFooter) Encode() []byte {
	body := make([]byte, 0, 64)
	body = coding.PutU64(body, f.FileNumber)
	body = append(body, f.encodeContent()...)
	return coding.EncodeFrame(coding.IdentifierFileFooter, coding.VersionFileFooter, body)
}

// EncodeEncrypted whole-encrypts the footer content under aead.
func (f FileFooter) EncodeEncrypted(aead cipher.AEAD) []byte {
	ciphertext := zcrypto.Seal(aead, f.FileNumber, zcrypto.DomainFileFooter, f.encodeContent())
	body := make([]byte, 0, 32+len(ciphertext))
	body = coding.PutU64(body, f.FileNumber)
	body = coding.PutBytes(body, ciphertext)
	return coding.EncodeFrame(coding.IdentifierFileFooter, coding.VersionFileFooter, body)
}

// DecodeFileFooter parses a framed, unencrypted FileFooter.
func DecodeFileFooter(data []byte) (FileFooter, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierFileFooter)
	if err != nil {
		return FileFooter{}, err
	}
	if f.Version != coding.VersionFileFooter {
		return FileFooter{}, fmt.Errorf("object: file_footer version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	fileNumber, err := r.U64()
	if err != nil {
		return FileFooter{}, err
	}
	return decodeFileFooterContent(fileNumber, r)
}

// DecodeEncryptedFileFooter parses and decrypts a whole-encrypted FileFooter.
func DecodeEncryptedFileFooter(data []byte, aead cipher.AEAD) (FileFooter, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierFileFooter)
	if err != nil {
		return FileFooter{}, err
	}
	if f.Version != coding.VersionFileFooter {
		return FileFooter{}, fmt.Errorf("object: file_footer version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	fileNumber, err := r.U64()
	if err != nil {
		return FileFooter{}, err
	}
	ciphertext, err := r.ByteSlice()
	if err != nil {
		return FileFooter{}, err
	}
	plaintext, err := zcrypto.Open(aead, fileNumber, zcrypto.DomainFileFooter, ciphertext)
	if err != nil {
		return FileFooter{}, err
	}
	return decodeFileFooterContent(fileNumber, coding.NewReader(plaintext))
}

func decodeFileFooterContent(fileNumber uint64, r *coding.Reader) (FileFooter, error) {
	acqStart, err := r.U64()
	if err != nil {
		return FileFooter{}, err
	}
	acqEnd, err := r.U64()
	if err != nil {
		return FileFooter{}, err
	}
	hashLen, err := r.PeekFrameTotalLength()
	if err != nil {
		return FileFooter{}, err
	}
	hashBytes, err := r.Bytes(hashLen)
	if err != nil {
		return FileFooter{}, err
	}
	hashHeader, err := DecodeHashHeader(hashBytes)
	if err != nil {
		return FileFooter{}, err
	}
	firstChunk, err := r.U64()
	if err != nil {
		return FileFooter{}, err
	}
	numberOfChunks, err := r.U64()
	if err != nil {
		return FileFooter{}, err
	}
	lengthOfData, err := r.U64()
	if err != nil {
		return FileFooter{}, err
	}
	return FileFooter{
		FileNumber:       fileNumber,
		AcquisitionStart: acqStart,
		AcquisitionEnd:   acqEnd,
		HashHeader:       hashHeader,
		FirstChunkNumber: firstChunk,
		NumberOfChunks:   numberOfChunks,
		LengthOfData:     lengthOfData,
	}, nil
}
