// Package zcrypto implements the container's cryptographic primitives:
// per-chunk AEAD, password-based key wrap, Ed25519 signing of hash values,
// and the xxh3/CRC32/BLAKE3 fingerprints used by the chunking and
// deduplication layers (§4.B).
package zcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/kenneth/zffcore/internal/zfferr"
)

// Algorithm identifies one of the three AEAD ciphers §4.B allows.
type Algorithm uint8

const (
	AlgorithmUnknown Algorithm = iota
	AlgorithmAES128GCMSIV
	AlgorithmAES256GCMSIV
	AlgorithmChaCha20Poly1305
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmAES128GCMSIV:
		return "aes128-gcm-siv"
	case AlgorithmAES256GCMSIV:
		return "aes256-gcm-siv"
	case AlgorithmChaCha20Poly1305:
		return "chacha20-poly1305"
	default:
		return "unknown"
	}
}

// KeyLen returns the expected raw key length in bytes for the algorithm.
func (a Algorithm) KeyLen() int {
	switch a {
	case AlgorithmAES128GCMSIV:
		return 16
	case AlgorithmAES256GCMSIV, AlgorithmChaCha20Poly1305:
		return 32
	default:
		return 0
	}
}

// NonceLen is fixed at 12 bytes for every algorithm the format supports, per
// §6 ("AEAD nonce: 12 bytes").
const NonceLen = 12

// Domain separates nonce derivation by structure kind (§4.B, §6): the same
// chunk-number space must not collide across structure kinds, so every
// structural kind that can be encrypted gets its own domain byte.
type Domain uint8

const (
	DomainChunkPayload Domain = iota
	DomainChunkOffsetMap
	DomainChunkSizeMap
	DomainChunkFlagsMap
	DomainChunkXxhashMap
	DomainChunkSamebytesMap
	DomainChunkDedupMap
	DomainObjectHeader
	DomainObjectFooter
	DomainFileHeader
	DomainFileFooter
	DomainVirtualMapping
	DomainVirtualLayer
)

// NewAEAD constructs a cipher.AEAD for the given algorithm and raw key.
// AES-128/256-GCM-SIV are served by standard AES-GCM — see DESIGN.md for why
// (no GCM-SIV implementation exists among the corpus's dependencies, and
// this engine never fabricates a dependency to cover the gap).
func NewAEAD(algo Algorithm, key []byte) (cipher.AEAD, error) {
	if len(key) != algo.KeyLen() {
		return nil, fmt.Errorf("zcrypto: key length %d does not match %s: %w", len(key), algo, zfferr.ErrMissingEncryptionKey)
	}
	switch algo {
	case AlgorithmAES128GCMSIV, AlgorithmAES256GCMSIV:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("zcrypto: aes.NewCipher: %w", err)
		}
		aead, err := cipher.NewGCMWithNonceSize(block, NonceLen)
		if err != nil {
			return nil, fmt.Errorf("zcrypto: cipher.NewGCM: %w", err)
		}
		return aead, nil
	case AlgorithmChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("zcrypto: chacha20poly1305.New: %w", err)
		}
		return aead, nil
	default:
		return nil, fmt.Errorf("zcrypto: unknown algorithm %d: %w", algo, zfferr.ErrInvalidFlagValue)
	}
}

// DeriveNonce builds the 12-byte nonce for a given chunk/structure number and
// domain, per §6: "12 bytes = chunk_number_or_struct_id:u64 LE ‖ 4-byte pad
// where the last byte is the per-structure domain byte".
func DeriveNonce(number uint64, domain Domain) [NonceLen]byte {
	var nonce [NonceLen]byte
	binary.LittleEndian.PutUint64(nonce[0:8], number)
	// bytes 8..11 are the pad; byte 11 carries the domain separator.
	nonce[NonceLen-1] = byte(domain)
	return nonce
}

// Seal encrypts plaintext in place under the AEAD keyed for the given
// chunk/structure number and domain, returning ciphertext||tag.
func Seal(aead cipher.AEAD, number uint64, domain Domain, plaintext []byte) []byte {
	nonce := DeriveNonce(number, domain)
	return aead.Seal(nil, nonce[:], plaintext, nil)
}

// Open reverses Seal, returning zfferr.ErrAeadAuthenticationFailure on tag
// mismatch so callers can classify it uniformly (§7).
func Open(aead cipher.AEAD, number uint64, domain Domain, ciphertext []byte) ([]byte, error) {
	nonce := DeriveNonce(number, domain)
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("zcrypto: AEAD open failed: %w", zfferr.ErrAeadAuthenticationFailure)
	}
	return plaintext, nil
}
