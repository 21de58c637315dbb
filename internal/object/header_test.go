package object

import (
	"crypto/cipher"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kenneth/zffcore/internal/chunking"
	"github.com/kenneth/zffcore/internal/zcrypto"
)

func sampleDescriptionHeader() *DescriptionHeader {
	d := NewDescriptionHeader()
	d.SetCaseNumber("2026-0099")
	d.SetExaminerName("A. Examiner")
	return d
}

func TestObjectHeader_PlainRoundTrip(t *testing.T) {
	h := ObjectHeader{
		ObjectNumber: 1,
		Flags:        ObjectFlags{SignHash: true},
		ChunkSize:    32 * 1024,
		CompressionHeader: CompressionHeader{
			Algorithm: chunking.CompressionNone,
			Level:     0,
			Threshold: 0.9,
		},
		DescriptionHeader: sampleDescriptionHeader(),
		ObjectType:        ObjectTypePhysical,
	}

	got, err := DecodeObjectHeader(h.Encode())
	require.NoError(t, err)
	require.Equal(t, h.ObjectNumber, got.ObjectNumber)
	require.Equal(t, h.Flags, got.Flags)
	require.Equal(t, h.ChunkSize, got.ChunkSize)
	require.Equal(t, h.CompressionHeader, got.CompressionHeader)
	require.Equal(t, h.DescriptionHeader.Fields, got.DescriptionHeader.Fields)
	require.Equal(t, h.ObjectType, got.ObjectType)
}

func TestObjectHeader_PlainDecode_RejectsEncrypted(t *testing.T) {
	aead := newTestAEAD(t)
	h := ObjectHeader{
		ObjectNumber:      5,
		Flags:             ObjectFlags{Encryption: true},
		EncryptionHeader:  sampleEncryptionHeader(t),
		ChunkSize:         4096,
		CompressionHeader: CompressionHeader{Algorithm: chunking.CompressionNone},
		DescriptionHeader: sampleDescriptionHeader(),
		ObjectType:        ObjectTypeLogical,
	}
	encoded, err := h.EncodeEncrypted(aead)
	require.NoError(t, err)

	_, err = DecodeObjectHeader(encoded)
	require.Error(t, err)
}

func TestObjectHeader_EncryptedRoundTrip(t *testing.T) {
	aead := newTestAEAD(t)
	h := ObjectHeader{
		ObjectNumber:      9,
		Flags:             ObjectFlags{PassiveObject: true},
		EncryptionHeader:  sampleEncryptionHeader(t),
		ChunkSize:         65536,
		CompressionHeader: CompressionHeader{Algorithm: chunking.CompressionNone, Level: 3, Threshold: 0.5},
		DescriptionHeader: sampleDescriptionHeader(),
		ObjectType:        ObjectTypePhysical,
	}

	encoded, err := h.EncodeEncrypted(aead)
	require.NoError(t, err)

	got, err := DecodeEncryptedObjectHeader(encoded, aead)
	require.NoError(t, err)
	require.Equal(t, h.ObjectNumber, got.ObjectNumber)
	require.True(t, got.Flags.Encryption)
	require.True(t, got.Flags.PassiveObject)
	require.Equal(t, h.ChunkSize, got.ChunkSize)
	require.Equal(t, h.DescriptionHeader.Fields, got.DescriptionHeader.Fields)
}

func TestObjectHeader_EncryptedRoundTrip_WrongKeyFails(t *testing.T) {
	aead := newTestAEAD(t)
	other := newTestAEAD(t)
	h := ObjectHeader{
		ObjectNumber:      3,
		Flags:             ObjectFlags{},
		EncryptionHeader:  sampleEncryptionHeader(t),
		ChunkSize:         1024,
		CompressionHeader: CompressionHeader{Algorithm: chunking.CompressionNone},
		DescriptionHeader: sampleDescriptionHeader(),
		ObjectType:        ObjectTypePhysical,
	}

	encoded, err := h.EncodeEncrypted(aead)
	require.NoError(t, err)

	_, err = DecodeEncryptedObjectHeader(encoded, other)
	require.Error(t, err)
}

func TestObjectHeader_EncodeEncrypted_MissingEncryptionHeader(t *testing.T) {
	aead := newTestAEAD(t)
	h := ObjectHeader{
		ObjectNumber:      1,
		CompressionHeader: CompressionHeader{Algorithm: chunking.CompressionNone},
		DescriptionHeader: sampleDescriptionHeader(),
	}
	_, err := h.EncodeEncrypted(aead)
	require.Error(t, err)
}

// newTestAEAD builds a usable AEAD for encrypt/decrypt round-trips in this
// package's tests.
func newTestAEAD(t *testing.T) cipher.AEAD {
	t.Helper()
	key := make([]byte, zcrypto.AlgorithmAES256GCMSIV.KeyLen())
	_, err := rand.Read(key)
	require.NoError(t, err)
	aead, err := zcrypto.NewAEAD(zcrypto.AlgorithmAES256GCMSIV, key)
	require.NoError(t, err)
	return aead
}

func sampleEncryptionHeader(t *testing.T) *EncryptionHeader {
	t.Helper()
	params, err := zcrypto.DefaultKDFParameters(zcrypto.KDFArgon2ID)
	require.NoError(t, err)
	pbeHeader, wrapped, err := zcrypto.WrapKey("correct horse battery staple", zcrypto.PBEAES256CBC, zcrypto.KDFArgon2ID, params, make([]byte, 32))
	require.NoError(t, err)
	return &EncryptionHeader{
		Algorithm:  zcrypto.AlgorithmAES256GCMSIV,
		PBE:        pbeHeader,
		WrappedKey: wrapped,
	}
}
