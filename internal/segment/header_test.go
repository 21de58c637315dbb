package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_RoundTrip(t *testing.T) {
	h := Header{UniqueIdentifier: 0xdeadbeef, SegmentNumber: 3, ChunkmapSize: 1 << 20}
	decoded, err := DecodeHeader(h.Encode())
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestHeader_NextHeader(t *testing.T) {
	h := Header{UniqueIdentifier: 42, SegmentNumber: 1, ChunkmapSize: 512}
	next := h.NextHeader()
	assert.Equal(t, uint64(2), next.SegmentNumber)
	assert.Equal(t, h.UniqueIdentifier, next.UniqueIdentifier)
	assert.Equal(t, h.ChunkmapSize, next.ChunkmapSize)
}

func TestDecodeHeader_WrongIdentifier(t *testing.T) {
	f := NewFooter()
	f.LengthOfSegment = 10
	_, err := DecodeHeader(f.Encode())
	assert.Error(t, err)
}
