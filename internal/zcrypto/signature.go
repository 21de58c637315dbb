package zcrypto

import (
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/kenneth/zffcore/internal/zfferr"
)

// SignatureFlag records what, if anything, a signing key is used to sign.
// Per §4.B, per-chunk signing is not enabled in v3: a key may only sign
// whole per-object hash values.
type SignatureFlag uint8

const (
	SignatureFlagNone SignatureFlag = iota
	SignatureFlagHashValuesOnly
)

// GenerateSigningKey creates a new Ed25519 key pair for signing hash values.
func GenerateSigningKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("zcrypto: generate ed25519 key: %w", err)
	}
	return pub, priv, nil
}

// SignHashValue signs a per-algorithm hash digest for inclusion in a
// HashValue structure (§9 hash_header).
func SignHashValue(priv ed25519.PrivateKey, digest []byte) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("zcrypto: signing key has %d bytes, want %d: %w", len(priv), ed25519.PrivateKeySize, zfferr.ErrWrongSignatureKeyLength)
	}
	return ed25519.Sign(priv, digest), nil
}

// VerifyHashValue verifies a signature produced by SignHashValue. Per §7,
// a failed verification at mount time is a warning unless the caller opted
// into strict mode — callers decide that policy; this just reports the
// boolean result.
func VerifyHashValue(pub ed25519.PublicKey, digest, signature []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, digest, signature)
}
