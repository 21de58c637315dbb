package object

import (
	"crypto/cipher"
	"fmt"

	"github.com/kenneth/zffcore/internal/coding"
	"github.com/kenneth/zffcore/internal/zcrypto"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// ObjectFooterLogical closes a logical object (§4.F, object_footer_logical.rs):
// the root of the file tree plus, for every file number visited during the
// tree walk, where its FileHeader and FileFooter landed.
type ObjectFooterLogical struct {
	ObjectNumber            uint64
	AcquisitionStart        uint64
	AcquisitionEnd          uint64
	RootDirFilenumbers      []uint64
	FileHeaderSegmentNumbers map[uint64]uint64
	FileHeaderOffsets        map[uint64]uint64
	FileFooterSegmentNumbers map[uint64]uint64
	FileFooterOffsets        map[uint64]uint64
}

func (f ObjectFooterLogical) encodeContent() []byte {
	buf := make([]byte, 0, 64)
	buf = coding.PutU64(buf, f.AcquisitionStart)
	buf = coding.PutU64(buf, f.AcquisitionEnd)
	buf = coding.PutOrderedPairsU64(buf, f.RootDirFilenumbers)
	buf = coding.PutUnorderedMapU64(buf, f.FileHeaderSegmentNumbers)
	buf = coding.PutUnorderedMapU64(buf, f.FileHeaderOffsets)
	buf = coding.PutUnorderedMapU64(buf, f.FileFooterSegmentNumbers)
	buf = coding.PutUnorderedMapU64(buf, f.FileFooterOffsets)
	return buf
}

// Encode returns the framed, unencrypted footer.
func (f ObjectFooterLogical) Encode() []byte {
	body := make([]byte, 0, 64)
	body = coding.PutU64(body, f.ObjectNumber)
	body = coding.PutU8(body, 0) // encryption flag
	body = append(body, f.encodeContent()...)
	return coding.EncodeFrame(coding.IdentifierObjectFooterLogical, coding.VersionObjectFooterLogical, body)
}

// EncodeEncrypted whole-encrypts the footer content under aead (§9).
func (f ObjectFooterLogical) EncodeEncrypted(aead cipher.AEAD) []byte {
	ciphertext := zcrypto.Seal(aead, f.ObjectNumber, zcrypto.DomainObjectFooter, f.encodeContent())
	body := make([]byte, 0, 32+len(ciphertext))
	body = coding.PutU64(body, f.ObjectNumber)
	body = coding.PutU8(body, 1)
	body = coding.PutBytes(body, ciphertext)
	return coding.EncodeFrame(coding.IdentifierObjectFooterLogical, coding.VersionObjectFooterLogical, body)
}

// DecodeObjectFooterLogical parses a framed, unencrypted footer.
func DecodeObjectFooterLogical(data []byte) (ObjectFooterLogical, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierObjectFooterLogical)
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	if f.Version != coding.VersionObjectFooterLogical {
		return ObjectFooterLogical{}, fmt.Errorf("object: object_footer_logical version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	objectNumber, err := r.U64()
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	encFlag, err := r.U8()
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	if encFlag != 0 {
		return ObjectFooterLogical{}, fmt.Errorf("object: object_footer_logical %d is whole-encrypted: %w", objectNumber, zfferr.ErrMissingEncryptionKey)
	}
	return decodeObjectFooterLogicalContent(objectNumber, r)
}

// DecodeEncryptedObjectFooterLogical parses and decrypts a whole-encrypted
// footer using aead.
func DecodeEncryptedObjectFooterLogical(data []byte, aead cipher.AEAD) (ObjectFooterLogical, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierObjectFooterLogical)
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	if f.Version != coding.VersionObjectFooterLogical {
		return ObjectFooterLogical{}, fmt.Errorf("object: object_footer_logical version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	objectNumber, err := r.U64()
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	encFlag, err := r.U8()
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	if encFlag == 0 {
		return ObjectFooterLogical{}, fmt.Errorf("object: object_footer_logical %d is not encrypted", objectNumber)
	}
	ciphertext, err := r.ByteSlice()
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	plaintext, err := zcrypto.Open(aead, objectNumber, zcrypto.DomainObjectFooter, ciphertext)
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	return decodeObjectFooterLogicalContent(objectNumber, coding.NewReader(plaintext))
}

func decodeObjectFooterLogicalContent(objectNumber uint64, r *coding.Reader) (ObjectFooterLogical, error) {
	acqStart, err := r.U64()
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	acqEnd, err := r.U64()
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	rootDirs, err := r.OrderedU64Slice()
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	headerSegments, err := r.UnorderedMapU64()
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	headerOffsets, err := r.UnorderedMapU64()
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	footerSegments, err := r.UnorderedMapU64()
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	footerOffsets, err := r.UnorderedMapU64()
	if err != nil {
		return ObjectFooterLogical{}, err
	}
	return ObjectFooterLogical{
		ObjectNumber:             objectNumber,
		AcquisitionStart:         acqStart,
		AcquisitionEnd:           acqEnd,
		RootDirFilenumbers:       rootDirs,
		FileHeaderSegmentNumbers: headerSegments,
		FileHeaderOffsets:        headerOffsets,
		FileFooterSegmentNumbers: footerSegments,
		FileFooterOffsets:        footerOffsets,
	}, nil
}
