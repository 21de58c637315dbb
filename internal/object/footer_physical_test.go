package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleHashHeader() HashHeader {
	return HashHeader{Values: []HashValue{
		{HashType: HashTypeSHA256, Digest: []byte("0123456789abcdef0123456789abcdef")},
		{HashType: HashTypeBlake3, Digest: []byte("fedcba9876543210fedcba9876543210")},
	}}
}

func TestObjectFooterPhysical_PlainRoundTrip(t *testing.T) {
	f := ObjectFooterPhysical{
		ObjectNumber:     2,
		AcquisitionStart: 1000,
		AcquisitionEnd:   2000,
		LengthOfData:     4096,
		FirstChunkNumber: 1,
		NumberOfChunks:   8,
		HashHeader:       sampleHashHeader(),
	}

	got, err := DecodeObjectFooterPhysical(f.Encode())
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestObjectFooterPhysical_EncryptedRoundTrip(t *testing.T) {
	aead := newTestAEAD(t)
	f := ObjectFooterPhysical{
		ObjectNumber:     4,
		AcquisitionStart: 1,
		AcquisitionEnd:   2,
		LengthOfData:     99,
		FirstChunkNumber: 0,
		NumberOfChunks:   1,
		HashHeader:       sampleHashHeader(),
	}

	encoded := f.EncodeEncrypted(aead)
	got, err := DecodeEncryptedObjectFooterPhysical(encoded, aead)
	require.NoError(t, err)
	require.Equal(t, f, got)

	_, err = DecodeObjectFooterPhysical(encoded)
	require.Error(t, err)
}

func TestObjectFooterPhysical_EncryptedRoundTrip_TamperedFails(t *testing.T) {
	aead := newTestAEAD(t)
	f := ObjectFooterPhysical{ObjectNumber: 1, HashHeader: sampleHashHeader()}
	encoded := f.EncodeEncrypted(aead)
	encoded[len(encoded)-1] ^= 0xFF

	_, err := DecodeEncryptedObjectFooterPhysical(encoded, aead)
	require.Error(t, err)
}
