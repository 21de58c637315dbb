package zcrypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyHashValue_RoundTrip(t *testing.T) {
	pub, priv, err := GenerateSigningKey()
	require.NoError(t, err)

	digest := Blake3Sum256([]byte("object footer hash value"))
	sig, err := SignHashValue(priv, digest[:])
	require.NoError(t, err)

	require.True(t, VerifyHashValue(pub, digest[:], sig))
}

func TestVerifyHashValue_TamperedDigestFails(t *testing.T) {
	pub, priv, err := GenerateSigningKey()
	require.NoError(t, err)

	digest := Blake3Sum256([]byte("object footer hash value"))
	sig, err := SignHashValue(priv, digest[:])
	require.NoError(t, err)

	tampered := Blake3Sum256([]byte("a different hash value"))
	require.False(t, VerifyHashValue(pub, tampered[:], sig))
}

func TestSignHashValue_WrongKeyLength(t *testing.T) {
	_, err := SignHashValue(make([]byte, 10), []byte("digest"))
	require.Error(t, err)
}

func TestVerifyHashValue_WrongPublicKeyLength(t *testing.T) {
	require.False(t, VerifyHashValue(make([]byte, 10), []byte("digest"), []byte("sig")))
}
