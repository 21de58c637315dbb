package zcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"

	"crypto/sha256"

	"github.com/kenneth/zffcore/internal/zfferr"
)

// KDFScheme identifies the key-derivation function used to turn a password
// into a key-wrapping key (§4.B).
type KDFScheme uint8

const (
	KDFPBKDF2SHA256 KDFScheme = iota
	KDFScrypt
	KDFArgon2ID
)

// PBEScheme identifies the symmetric cipher used to wrap the data
// encryption key once the wrapping key has been derived.
type PBEScheme uint8

const (
	PBEAES128CBC PBEScheme = iota
	PBEAES256CBC
)

func (s PBEScheme) keyLen() int {
	if s == PBEAES256CBC {
		return 32
	}
	return 16
}

// KDFParameters holds every parameter needed to re-derive the same wrapping
// key from the same password: the salt plus whichever of PBKDF2/Scrypt/
// Argon2id's own parameters are relevant.
type KDFParameters struct {
	Salt []byte

	// PBKDF2
	Iterations uint32

	// Scrypt
	LogN uint8
	R    uint32
	P    uint32

	// Argon2id
	MemoryKiB uint32
	Lanes     uint32
	Time      uint32
}

// PBEHeader is the on-wire record of how a data-encryption key was wrapped
// (§4.B, §9 whole-header encryption wrapping is applied one level above
// this: the PBE header itself is never encrypted).
type PBEHeader struct {
	KDFScheme  KDFScheme
	PBEScheme  PBEScheme
	Params     KDFParameters
	Nonce      [16]byte // IV for the AES-CBC key-wrap
}

// DeriveWrappingKey runs the configured KDF against password, producing a
// key of the length PBEScheme requires.
func DeriveWrappingKey(password string, h PBEHeader) ([]byte, error) {
	keyLen := h.PBEScheme.keyLen()
	switch h.KDFScheme {
	case KDFPBKDF2SHA256:
		return pbkdf2.Key([]byte(password), h.Params.Salt, int(h.Params.Iterations), keyLen, sha256.New), nil
	case KDFScrypt:
		return scrypt.Key([]byte(password), h.Params.Salt, 1<<h.Params.LogN, int(h.Params.R), int(h.Params.P), keyLen)
	case KDFArgon2ID:
		return argon2.IDKey([]byte(password), h.Params.Salt, h.Params.Time, h.Params.MemoryKiB, uint8(h.Params.Lanes), uint32(keyLen)), nil
	default:
		return nil, fmt.Errorf("zcrypto: unknown KDF scheme %d: %w", h.KDFScheme, zfferr.ErrInvalidFlagValue)
	}
}

// WrapKey AES-CBC-encrypts the raw data encryption key under a wrapping key
// derived from password. The PBEHeader's Nonce field is filled with a fresh
// random IV and must be persisted alongside the returned ciphertext.
func WrapKey(password string, scheme PBEScheme, kdf KDFScheme, params KDFParameters, dek []byte) (PBEHeader, []byte, error) {
	h := PBEHeader{KDFScheme: kdf, PBEScheme: scheme, Params: params}
	if _, err := io.ReadFull(rand.Reader, h.Nonce[:]); err != nil {
		return h, nil, fmt.Errorf("zcrypto: generate IV: %w", err)
	}

	wrapKey, err := DeriveWrappingKey(password, h)
	if err != nil {
		return h, nil, err
	}

	block, err := aes.NewCipher(wrapKey)
	if err != nil {
		return h, nil, fmt.Errorf("zcrypto: aes.NewCipher: %w", err)
	}

	padded := pkcs7Pad(dek, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cbc := cipher.NewCBCEncrypter(block, h.Nonce[:])
	cbc.CryptBlocks(ciphertext, padded)

	return h, ciphertext, nil
}

// UnwrapKey reverses WrapKey. A failure here — whether from a bad password
// or from corrupted ciphertext — surfaces as ErrWrongPassword: the format
// offers no authenticated tag on the key-wrap layer, so a wrong password
// silently produces garbage key bytes rather than a hard decrypt failure,
// and that garbage must never be handed back to the caller as the DEK.
func UnwrapKey(password string, h PBEHeader, wrapped []byte) ([]byte, error) {
	if len(wrapped) == 0 || len(wrapped)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("zcrypto: wrapped key is not block-aligned: %w", zfferr.ErrWrongPassword)
	}

	wrapKey, err := DeriveWrappingKey(password, h)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(wrapKey)
	if err != nil {
		return nil, fmt.Errorf("zcrypto: aes.NewCipher: %w", err)
	}

	padded := make([]byte, len(wrapped))
	cbc := cipher.NewCBCDecrypter(block, h.Nonce[:])
	cbc.CryptBlocks(padded, wrapped)

	dek, err := pkcs7Unpad(padded)
	if err != nil {
		return nil, fmt.Errorf("zcrypto: unwrap key: %w", zfferr.ErrWrongPassword)
	}
	return dek, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("zcrypto: empty padded data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) || padLen > aes.BlockSize {
		return nil, fmt.Errorf("zcrypto: invalid PKCS7 padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("zcrypto: invalid PKCS7 padding")
		}
	}
	return data[:len(data)-padLen], nil
}

// DefaultKDFParameters returns reasonable parameters for each scheme, used
// by callers (e.g. cmd/zffcli) that don't want to hand-tune KDF cost.
func DefaultKDFParameters(scheme KDFScheme) (KDFParameters, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return KDFParameters{}, fmt.Errorf("zcrypto: generate salt: %w", err)
	}
	switch scheme {
	case KDFPBKDF2SHA256:
		return KDFParameters{Salt: salt, Iterations: 600_000}, nil
	case KDFScrypt:
		return KDFParameters{Salt: salt, LogN: 15, R: 8, P: 1}, nil
	case KDFArgon2ID:
		return KDFParameters{Salt: salt, MemoryKiB: 64 * 1024, Lanes: 4, Time: 3}, nil
	default:
		return KDFParameters{}, fmt.Errorf("zcrypto: unknown KDF scheme %d: %w", scheme, zfferr.ErrInvalidFlagValue)
	}
}
