// Package object implements the physical and logical object encoders
// (§4.F): object headers/footers, the description and hash headers they
// carry, and the file header/footer pairs a logical object's tree walk
// produces.
package object

import (
	"fmt"

	"github.com/kenneth/zffcore/internal/coding"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// HashType identifies one of the digest algorithms a HashHeader may record
// simultaneously (§4 supplemented features — original_source/hashing.rs
// carries more than one concurrent digest per object).
type HashType uint8

const (
	HashTypeBlake2b512 HashType = iota
	HashTypeSHA256
	HashTypeSHA512
	HashTypeSHA3_256
	HashTypeBlake3
)

func (h HashType) String() string {
	switch h {
	case HashTypeBlake2b512:
		return "blake2b-512"
	case HashTypeSHA256:
		return "sha256"
	case HashTypeSHA512:
		return "sha512"
	case HashTypeSHA3_256:
		return "sha3-256"
	case HashTypeBlake3:
		return "blake3"
	default:
		return "unknown"
	}
}

// HashValue is one digest of a HashHeader, optionally Ed25519-signed (§4.B,
// §4.F: "hash_header contains one HashValue per configured algorithm,
// optionally each signed").
type HashValue struct {
	HashType  HashType
	Digest    []byte
	Signature []byte // ed25519.SignatureSize bytes when signed, else nil
}

// Signed reports whether this HashValue carries an Ed25519 signature.
func (v HashValue) Signed() bool {
	return len(v.Signature) > 0
}

func (v HashValue) encode() []byte {
	buf := make([]byte, 0, 1+8+len(v.Digest)+len(v.Signature))
	buf = coding.PutU8(buf, uint8(v.HashType))
	buf = coding.PutBytes(buf, v.Digest)
	hasSig := uint8(0)
	if v.Signed() {
		hasSig = 1
	}
	buf = coding.PutU8(buf, hasSig)
	if v.Signed() {
		buf = coding.PutBytes(buf, v.Signature)
	}
	return buf
}

func decodeHashValue(r *coding.Reader) (HashValue, error) {
	var v HashValue
	t, err := r.U8()
	if err != nil {
		return v, fmt.Errorf("object: decode hash_value type: %w", err)
	}
	v.HashType = HashType(t)
	digest, err := r.ByteSlice()
	if err != nil {
		return v, fmt.Errorf("object: decode hash_value digest: %w", err)
	}
	v.Digest = digest
	hasSig, err := r.U8()
	if err != nil {
		return v, fmt.Errorf("object: decode hash_value signature flag: %w", err)
	}
	if hasSig != 0 {
		sig, err := r.ByteSlice()
		if err != nil {
			return v, fmt.Errorf("object: decode hash_value signature: %w", err)
		}
		v.Signature = sig
	}
	return v, nil
}

// HashHeader carries every configured digest for one object or file (§4.F).
type HashHeader struct {
	Values []HashValue
}

// Encode returns the framed HashHeader body.
func (h HashHeader) Encode() []byte {
	body := make([]byte, 0, 64)
	body = coding.PutU64(body, uint64(len(h.Values)))
	for _, v := range h.Values {
		body = append(body, v.encode()...)
	}
	return coding.EncodeFrame(coding.IdentifierHashHeader, coding.VersionHashHeader, body)
}

// DecodeHashHeader parses a framed HashHeader previously produced by Encode.
func DecodeHashHeader(data []byte) (HashHeader, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierHashHeader)
	if err != nil {
		return HashHeader{}, err
	}
	if f.Version != coding.VersionHashHeader {
		return HashHeader{}, fmt.Errorf("object: hash_header version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	count, err := r.U64()
	if err != nil {
		return HashHeader{}, fmt.Errorf("object: decode hash_header count: %w", err)
	}
	values := make([]HashValue, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := decodeHashValue(r)
		if err != nil {
			return HashHeader{}, err
		}
		values = append(values, v)
	}
	return HashHeader{Values: values}, nil
}

// ByType returns the HashValue for the given algorithm, if present.
func (h HashHeader) ByType(t HashType) (HashValue, bool) {
	for _, v := range h.Values {
		if v.HashType == t {
			return v, true
		}
	}
	return HashValue{}, false
}
