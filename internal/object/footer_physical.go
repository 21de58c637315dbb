package object

import (
	"crypto/cipher"
	"fmt"

	"github.com/kenneth/zffcore/internal/coding"
	"github.com/kenneth/zffcore/internal/zcrypto"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// ObjectFooterPhysical closes a physical object (§4.F): "finalize()
// produces ObjectFooterPhysical { object_number, acquisition_start,
// acquisition_end, length_of_data, first_chunk_number, number_of_chunks,
// hash_header }".
type ObjectFooterPhysical struct {
	ObjectNumber      uint64
	AcquisitionStart  uint64
	AcquisitionEnd    uint64
	LengthOfData      uint64
	FirstChunkNumber  uint64
	NumberOfChunks    uint64
	HashHeader        HashHeader
}

func (f ObjectFooterPhysical) encodeContent() []byte {
	buf := make([]byte, 0, 48)
	buf = coding.PutU64(buf, f.AcquisitionStart)
	buf = coding.PutU64(buf, f.AcquisitionEnd)
	buf = coding.PutU64(buf, f.LengthOfData)
	buf = coding.PutU64(buf, f.FirstChunkNumber)
	buf = coding.PutU64(buf, f.NumberOfChunks)
	buf = append(buf, f.HashHeader.Encode()...)
	return buf
}

// Encode returns the framed, unencrypted footer.
func (f ObjectFooterPhysical) Encode() []byte {
	body := make([]byte, 0, 64)
	body = coding.PutU64(body, f.ObjectNumber)
	body = coding.PutU8(body, 0) // encryption flag
	body = append(body, f.encodeContent()...)
	return coding.EncodeFrame(coding.IdentifierObjectFooterPhysical, coding.VersionObjectFooterPhysical, body)
}

// EncodeEncrypted whole-encrypts the footer content under aead (§9).
func (f ObjectFooterPhysical) EncodeEncrypted(aead cipher.AEAD) []byte {
	ciphertext := zcrypto.Seal(aead, f.ObjectNumber, zcrypto.DomainObjectFooter, f.encodeContent())
	body := make([]byte, 0, 32+len(ciphertext))
	body = coding.PutU64(body, f.ObjectNumber)
	body = coding.PutU8(body, 1) // encryption flag
	body = coding.PutBytes(body, ciphertext)
	return coding.EncodeFrame(coding.IdentifierObjectFooterPhysical, coding.VersionObjectFooterPhysical, body)
}

// DecodeObjectFooterPhysical parses a framed, unencrypted footer.
func DecodeObjectFooterPhysical(data []byte) (ObjectFooterPhysical, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierObjectFooterPhysical)
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	if f.Version != coding.VersionObjectFooterPhysical {
		return ObjectFooterPhysical{}, fmt.Errorf("object: object_footer_physical version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	objectNumber, err := r.U64()
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	encFlag, err := r.U8()
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	if encFlag != 0 {
		return ObjectFooterPhysical{}, fmt.Errorf("object: object_footer_physical %d is whole-encrypted: %w", objectNumber, zfferr.ErrMissingEncryptionKey)
	}
	return decodeObjectFooterPhysicalContent(objectNumber, r)
}

// DecodeEncryptedObjectFooterPhysical parses and decrypts a whole-encrypted
// footer using aead.
func DecodeEncryptedObjectFooterPhysical(data []byte, aead cipher.AEAD) (ObjectFooterPhysical, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierObjectFooterPhysical)
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	if f.Version != coding.VersionObjectFooterPhysical {
		return ObjectFooterPhysical{}, fmt.Errorf("object: object_footer_physical version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	objectNumber, err := r.U64()
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	encFlag, err := r.U8()
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	if encFlag == 0 {
		return ObjectFooterPhysical{}, fmt.Errorf("object: object_footer_physical %d is not encrypted", objectNumber)
	}
	ciphertext, err := r.ByteSlice()
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	plaintext, err := zcrypto.Open(aead, objectNumber, zcrypto.DomainObjectFooter, ciphertext)
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	return decodeObjectFooterPhysicalContent(objectNumber, coding.NewReader(plaintext))
}

func decodeObjectFooterPhysicalContent(objectNumber uint64, r *coding.Reader) (ObjectFooterPhysical, error) {
	acqStart, err := r.U64()
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	acqEnd, err := r.U64()
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	lengthOfData, err := r.U64()
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	firstChunk, err := r.U64()
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	numberOfChunks, err := r.U64()
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	hashLen, err := r.PeekFrameTotalLength()
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	hashBytes, err := r.Bytes(hashLen)
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	hashHeader, err := DecodeHashHeader(hashBytes)
	if err != nil {
		return ObjectFooterPhysical{}, err
	}
	return ObjectFooterPhysical{
		ObjectNumber:     objectNumber,
		AcquisitionStart: acqStart,
		AcquisitionEnd:   acqEnd,
		LengthOfData:     lengthOfData,
		FirstChunkNumber: firstChunk,
		NumberOfChunks:   numberOfChunks,
		HashHeader:       hashHeader,
	}, nil
}
