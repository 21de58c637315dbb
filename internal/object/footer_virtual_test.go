package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVirtualLayer_RoundTrip(t *testing.T) {
	l := VirtualLayer{
		Depth: 2,
		OffsetMap: map[uint64]uint64{
			0:  100,
			10: 200,
		},
	}
	got, err := DecodeVirtualLayer(l.Encode())
	require.NoError(t, err)
	require.Equal(t, l, got)
}

func TestObjectFooterVirtual_PlainRoundTrip(t *testing.T) {
	f := ObjectFooterVirtual{
		ObjectNumber:                  7,
		CreationTimestamp:             123456,
		PassiveObjects:                []uint64{1, 2, 3},
		LengthOfData:                  2048,
		VirtualObjectMapOffset:        512,
		VirtualObjectMapSegmentNumber: 1,
	}
	got, err := DecodeObjectFooterVirtual(f.Encode())
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestObjectFooterVirtual_EncryptedRoundTrip(t *testing.T) {
	aead := newTestAEAD(t)
	f := ObjectFooterVirtual{
		ObjectNumber:           11,
		CreationTimestamp:      1,
		PassiveObjects:         []uint64{9},
		LengthOfData:           1,
		VirtualObjectMapOffset: 1,
	}
	encoded := f.EncodeEncrypted(aead)
	got, err := DecodeEncryptedObjectFooterVirtual(encoded, aead)
	require.NoError(t, err)
	require.Equal(t, f, got)

	_, err = DecodeObjectFooterVirtual(encoded)
	require.Error(t, err)
}
