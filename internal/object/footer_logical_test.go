package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectFooterLogical_PlainRoundTrip(t *testing.T) {
	f := ObjectFooterLogical{
		ObjectNumber:             3,
		AcquisitionStart:         10,
		AcquisitionEnd:           20,
		RootDirFilenumbers:       []uint64{1, 2},
		FileHeaderSegmentNumbers: map[uint64]uint64{1: 1, 2: 1, 3: 2},
		FileHeaderOffsets:        map[uint64]uint64{1: 64, 2: 128, 3: 0},
		FileFooterSegmentNumbers: map[uint64]uint64{1: 1, 2: 1, 3: 2},
		FileFooterOffsets:        map[uint64]uint64{1: 200, 2: 260, 3: 50},
	}

	got, err := DecodeObjectFooterLogical(f.Encode())
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestObjectFooterLogical_EncryptedRoundTrip(t *testing.T) {
	aead := newTestAEAD(t)
	f := ObjectFooterLogical{
		ObjectNumber:             6,
		RootDirFilenumbers:       []uint64{1},
		FileHeaderSegmentNumbers: map[uint64]uint64{1: 1},
		FileHeaderOffsets:        map[uint64]uint64{1: 0},
		FileFooterSegmentNumbers: map[uint64]uint64{1: 1},
		FileFooterOffsets:        map[uint64]uint64{1: 10},
	}

	encoded := f.EncodeEncrypted(aead)
	got, err := DecodeEncryptedObjectFooterLogical(encoded, aead)
	require.NoError(t, err)
	require.Equal(t, f, got)

	_, err = DecodeObjectFooterLogical(encoded)
	require.Error(t, err)
}
