package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainFooter_RoundTrip(t *testing.T) {
	f := NewMainFooter()
	f.NumberOfSegments = 3
	f.ObjectHeaderSegments[1] = 1
	f.ObjectFooterSegments[1] = 3
	f.ChunkMaps[500] = 1200
	f.DescriptionNotes = "acquired 2026-07-30"
	f.FooterOffset = 9000

	decoded, err := DecodeMainFooter(f.Encode())
	require.NoError(t, err)
	assert.Equal(t, f, decoded)
}

func TestMainFooter_EmptyNotesRoundTrip(t *testing.T) {
	f := NewMainFooter()
	f.NumberOfSegments = 1
	decoded, err := DecodeMainFooter(f.Encode())
	require.NoError(t, err)
	assert.Equal(t, "", decoded.DescriptionNotes)
}

func TestDecodeMainFooter_WrongIdentifier(t *testing.T) {
	f := NewFooter()
	_, err := DecodeMainFooter(f.Encode())
	assert.Error(t, err)
}
