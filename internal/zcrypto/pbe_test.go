package zcrypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapUnwrapKey_RoundTrip(t *testing.T) {
	schemes := []struct {
		name string
		kdf  KDFScheme
		pbe  PBEScheme
	}{
		{name: "pbkdf2+aes128cbc", kdf: KDFPBKDF2SHA256, pbe: PBEAES128CBC},
		{name: "scrypt+aes256cbc", kdf: KDFScrypt, pbe: PBEAES256CBC},
		{name: "argon2id+aes256cbc", kdf: KDFArgon2ID, pbe: PBEAES256CBC},
	}

	for _, tt := range schemes {
		t.Run(tt.name, func(t *testing.T) {
			params, err := DefaultKDFParameters(tt.kdf)
			require.NoError(t, err)
			// Keep test KDF cost low regardless of production defaults.
			params.Iterations = 10
			params.LogN = 4
			params.MemoryKiB = 8 * 1024
			params.Lanes = 1
			params.Time = 1

			dek := []byte("0123456789abcdef0123456789abcdef")
			h, wrapped, err := WrapKey("correct horse battery staple", tt.pbe, tt.kdf, params, dek)
			require.NoError(t, err)
			require.NotEmpty(t, wrapped)

			got, err := UnwrapKey("correct horse battery staple", h, wrapped)
			require.NoError(t, err)
			require.Equal(t, dek, got)
		})
	}
}

func TestUnwrapKey_WrongPasswordNeverReturnsPlaintext(t *testing.T) {
	params, err := DefaultKDFParameters(KDFPBKDF2SHA256)
	require.NoError(t, err)
	params.Iterations = 10

	dek := []byte("the secret data encryption key!")
	h, wrapped, err := WrapKey("right-password", PBEAES256CBC, KDFPBKDF2SHA256, params, dek)
	require.NoError(t, err)

	got, err := UnwrapKey("wrong-password", h, wrapped)
	require.Error(t, err)
	require.Nil(t, got)
	require.NotEqual(t, dek, got)
}

func TestUnwrapKey_CorruptedCiphertextFailsAsWrongPassword(t *testing.T) {
	params, err := DefaultKDFParameters(KDFScrypt)
	require.NoError(t, err)
	params.LogN = 4

	dek := []byte("another-data-encryption-key-here")
	h, wrapped, err := WrapKey("hunter2", PBEAES128CBC, KDFScrypt, params, dek)
	require.NoError(t, err)

	wrapped[len(wrapped)-1] ^= 0xFF

	_, err = UnwrapKey("hunter2", h, wrapped)
	require.Error(t, err)
}
