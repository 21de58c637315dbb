package object

import (
	"crypto/cipher"
	"fmt"
	"math"

	"github.com/kenneth/zffcore/internal/chunking"
	"github.com/kenneth/zffcore/internal/coding"
	"github.com/kenneth/zffcore/internal/zcrypto"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// ObjectFlags records which optional behaviors an object opted into (§4.F,
// object_header.rs's ObjectFlags).
type ObjectFlags struct {
	Encryption    bool
	SignHash      bool
	PassiveObject bool
}

const (
	flagEncryptObject uint8 = 1 << 0
	flagSignHash      uint8 = 1 << 1
	flagPassiveObject uint8 = 1 << 2
)

func (f ObjectFlags) encode() uint8 {
	var v uint8
	if f.Encryption {
		v |= flagEncryptObject
	}
	if f.SignHash {
		v |= flagSignHash
	}
	if f.PassiveObject {
		v |= flagPassiveObject
	}
	return v
}

func decodeObjectFlags(v uint8) ObjectFlags {
	return ObjectFlags{
		Encryption:    v&flagEncryptObject != 0,
		SignHash:      v&flagSignHash != 0,
		PassiveObject: v&flagPassiveObject != 0,
	}
}

// ObjectType distinguishes a physical (single stream) object from a
// logical (file tree) one. Virtual objects (§4 supplemented features) reuse
// ObjectType Physical in the header; the footer kind actually stored
// alongside it is what the reader uses to tell a virtual object apart,
// matching the reference encoder's own convention.
type ObjectType uint8

const (
	ObjectTypePhysical ObjectType = iota
	ObjectTypeLogical
)

func (t ObjectType) String() string {
	if t == ObjectTypeLogical {
		return "Logical"
	}
	return "Physical"
}

// EncryptionHeader records how an object's whole-header/footer encryption
// key was wrapped (§4.B PBE key-wrap, §9 whole-header encryption).
type EncryptionHeader struct {
	Algorithm  zcrypto.Algorithm
	PBE        zcrypto.PBEHeader
	WrappedKey []byte
}

func (h EncryptionHeader) encode() []byte {
	buf := make([]byte, 0, 64+len(h.WrappedKey))
	buf = coding.PutU8(buf, uint8(h.Algorithm))
	buf = coding.PutU8(buf, uint8(h.PBE.KDFScheme))
	buf = coding.PutU8(buf, uint8(h.PBE.PBEScheme))
	buf = coding.PutBytes(buf, h.PBE.Params.Salt)
	buf = coding.PutU32(buf, h.PBE.Params.Iterations)
	buf = coding.PutU8(buf, h.PBE.Params.LogN)
	buf = coding.PutU32(buf, h.PBE.Params.R)
	buf = coding.PutU32(buf, h.PBE.Params.P)
	buf = coding.PutU32(buf, h.PBE.Params.MemoryKiB)
	buf = coding.PutU32(buf, h.PBE.Params.Lanes)
	buf = coding.PutU32(buf, h.PBE.Params.Time)
	buf = append(buf, h.PBE.Nonce[:]...)
	buf = coding.PutBytes(buf, h.WrappedKey)
	return buf
}

func decodeEncryptionHeader(r *coding.Reader) (EncryptionHeader, error) {
	var h EncryptionHeader
	algo, err := r.U8()
	if err != nil {
		return h, fmt.Errorf("object: decode encryption_header algorithm: %w", err)
	}
	h.Algorithm = zcrypto.Algorithm(algo)
	kdf, err := r.U8()
	if err != nil {
		return h, err
	}
	h.PBE.KDFScheme = zcrypto.KDFScheme(kdf)
	pbe, err := r.U8()
	if err != nil {
		return h, err
	}
	h.PBE.PBEScheme = zcrypto.PBEScheme(pbe)
	if h.PBE.Params.Salt, err = r.ByteSlice(); err != nil {
		return h, err
	}
	if h.PBE.Params.Iterations, err = r.U32(); err != nil {
		return h, err
	}
	if h.PBE.Params.LogN, err = r.U8(); err != nil {
		return h, err
	}
	if h.PBE.Params.R, err = r.U32(); err != nil {
		return h, err
	}
	if h.PBE.Params.P, err = r.U32(); err != nil {
		return h, err
	}
	if h.PBE.Params.MemoryKiB, err = r.U32(); err != nil {
		return h, err
	}
	if h.PBE.Params.Lanes, err = r.U32(); err != nil {
		return h, err
	}
	if h.PBE.Params.Time, err = r.U32(); err != nil {
		return h, err
	}
	nonce, err := r.Bytes(16)
	if err != nil {
		return h, err
	}
	copy(h.PBE.Nonce[:], nonce)
	if h.WrappedKey, err = r.ByteSlice(); err != nil {
		return h, err
	}
	return h, nil
}

// CompressionHeader records the compression policy an object's chunks were
// produced under (§4.C step 4).
type CompressionHeader struct {
	Algorithm chunking.CompressionAlgorithm
	Level     int32
	Threshold float64
}

func (h CompressionHeader) encode() []byte {
	buf := make([]byte, 0, 1+4+8)
	buf = coding.PutU8(buf, uint8(h.Algorithm))
	buf = coding.PutU32(buf, uint32(h.Level))
	buf = coding.PutU64(buf, math.Float64bits(h.Threshold))
	return buf
}

func decodeCompressionHeader(r *coding.Reader) (CompressionHeader, error) {
	var h CompressionHeader
	algo, err := r.U8()
	if err != nil {
		return h, err
	}
	h.Algorithm = chunking.CompressionAlgorithm(algo)
	level, err := r.U32()
	if err != nil {
		return h, err
	}
	h.Level = int32(level)
	bits, err := r.U64()
	if err != nil {
		return h, err
	}
	h.Threshold = math.Float64frombits(bits)
	return h, nil
}

// ObjectHeader prefixes every object (§4.F, object_header.rs).
type ObjectHeader struct {
	ObjectNumber      uint64
	Flags             ObjectFlags
	EncryptionHeader  *EncryptionHeader
	ChunkSize         uint64
	CompressionHeader CompressionHeader
	DescriptionHeader *DescriptionHeader
	ObjectType        ObjectType
}

func (h ObjectHeader) encodeContent() []byte {
	buf := make([]byte, 0, 64)
	buf = coding.PutU64(buf, h.ChunkSize)
	buf = append(buf, h.CompressionHeader.encode()...)
	buf = append(buf, h.DescriptionHeader.Encode()...)
	buf = coding.PutU8(buf, uint8(h.ObjectType))
	return buf
}

// Encode returns the framed, unencrypted ObjectHeader.
func (h ObjectHeader) Encode() []byte {
	body := make([]byte, 0, 64)
	body = coding.PutU64(body, h.ObjectNumber)
	body = coding.PutU8(body, h.Flags.encode())
	body = append(body, h.encodeContent()...)
	return coding.EncodeFrame(coding.IdentifierObjectHeader, coding.VersionObjectHeader, body)
}

// EncodeEncrypted whole-encrypts the header content under aead, keyed by
// object_number and the ObjectHeader domain (§9: "{magic, length, version,
// object_number, encryption_flag:bool}" prefix, body AEAD-sealed).
func (h ObjectHeader) EncodeEncrypted(aead cipher.AEAD) ([]byte, error) {
	if h.EncryptionHeader == nil {
		return nil, fmt.Errorf("object: encode encrypted object_header: %w", zfferr.ErrMissingEncryptionHeader)
	}
	plaintext := h.encodeContent()
	ciphertext := zcrypto.Seal(aead, h.ObjectNumber, zcrypto.DomainObjectHeader, plaintext)

	body := make([]byte, 0, 32+len(ciphertext))
	body = coding.PutU64(body, h.ObjectNumber)
	flags := h.Flags
	flags.Encryption = true
	body = coding.PutU8(body, flags.encode())
	body = append(body, h.EncryptionHeader.encode()...)
	body = coding.PutBytes(body, ciphertext)
	return coding.EncodeFrame(coding.IdentifierObjectHeader, coding.VersionObjectHeader, body), nil
}

// DecodeObjectHeader parses a framed ObjectHeader previously produced by
// Encode. It returns zfferr.ErrMissingEncryptionKey if the header is
// whole-encrypted — callers must use DecodeEncryptedObjectHeader instead.
func DecodeObjectHeader(data []byte) (ObjectHeader, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierObjectHeader)
	if err != nil {
		return ObjectHeader{}, err
	}
	if f.Version != coding.VersionObjectHeader {
		return ObjectHeader{}, fmt.Errorf("object: object_header version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	objectNumber, err := r.U64()
	if err != nil {
		return ObjectHeader{}, err
	}
	flagByte, err := r.U8()
	if err != nil {
		return ObjectHeader{}, err
	}
	flags := decodeObjectFlags(flagByte)
	if flags.Encryption {
		return ObjectHeader{}, fmt.Errorf("object: object_header %d is whole-encrypted: %w", objectNumber, zfferr.ErrMissingEncryptionKey)
	}
	return decodeObjectHeaderContent(objectNumber, flags, nil, r)
}

// PeekEncryptionHeader reads just the EncryptionHeader of a whole-encrypted
// ObjectHeader frame, without an AEAD. The container reader uses this to
// recover the PBE parameters and wrapped key, derive the AEAD from the
// user-supplied password, and only then call DecodeEncryptedObjectHeader.
func PeekEncryptionHeader(data []byte) (EncryptionHeader, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierObjectHeader)
	if err != nil {
		return EncryptionHeader{}, err
	}
	if f.Version != coding.VersionObjectHeader {
		return EncryptionHeader{}, fmt.Errorf("object: object_header version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	objectNumber, err := r.U64()
	if err != nil {
		return EncryptionHeader{}, err
	}
	flagByte, err := r.U8()
	if err != nil {
		return EncryptionHeader{}, err
	}
	if !decodeObjectFlags(flagByte).Encryption {
		return EncryptionHeader{}, fmt.Errorf("object: object_header %d is not encrypted", objectNumber)
	}
	return decodeEncryptionHeader(r)
}

// DecodeEncryptedObjectHeader parses and decrypts a whole-encrypted
// ObjectHeader using aead (derived from the password-unwrapped DEK).
func DecodeEncryptedObjectHeader(data []byte, aead cipher.AEAD) (ObjectHeader, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierObjectHeader)
	if err != nil {
		return ObjectHeader{}, err
	}
	if f.Version != coding.VersionObjectHeader {
		return ObjectHeader{}, fmt.Errorf("object: object_header version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	objectNumber, err := r.U64()
	if err != nil {
		return ObjectHeader{}, err
	}
	flagByte, err := r.U8()
	if err != nil {
		return ObjectHeader{}, err
	}
	flags := decodeObjectFlags(flagByte)
	if !flags.Encryption {
		return ObjectHeader{}, fmt.Errorf("object: object_header %d is not encrypted", objectNumber)
	}
	encHeader, err := decodeEncryptionHeader(r)
	if err != nil {
		return ObjectHeader{}, err
	}
	ciphertext, err := r.ByteSlice()
	if err != nil {
		return ObjectHeader{}, err
	}
	plaintext, err := zcrypto.Open(aead, objectNumber, zcrypto.DomainObjectHeader, ciphertext)
	if err != nil {
		return ObjectHeader{}, err
	}
	pr := coding.NewReader(plaintext)
	return decodeObjectHeaderContent(objectNumber, flags, &encHeader, pr)
}

func decodeObjectHeaderContent(objectNumber uint64, flags ObjectFlags, encHeader *EncryptionHeader, r *coding.Reader) (ObjectHeader, error) {
	chunkSize, err := r.U64()
	if err != nil {
		return ObjectHeader{}, err
	}
	compressionHeader, err := decodeCompressionHeader(r)
	if err != nil {
		return ObjectHeader{}, err
	}
	descLen, err := r.PeekFrameTotalLength()
	if err != nil {
		return ObjectHeader{}, err
	}
	descBytes, err := r.Bytes(descLen)
	if err != nil {
		return ObjectHeader{}, err
	}
	descriptionHeader, err := DecodeDescriptionHeader(descBytes)
	if err != nil {
		return ObjectHeader{}, err
	}
	objectTypeByte, err := r.U8()
	if err != nil {
		return ObjectHeader{}, err
	}
	return ObjectHeader{
		ObjectNumber:      objectNumber,
		Flags:             flags,
		EncryptionHeader:  encHeader,
		ChunkSize:         chunkSize,
		CompressionHeader: compressionHeader,
		DescriptionHeader: descriptionHeader,
		ObjectType:        ObjectType(objectTypeByte),
	}, nil
}
