package chunkmap

import (
	"testing"

	"github.com/kenneth/zffcore/internal/coding"
	"github.com/stretchr/testify/require"
)

func TestOffsetMap_AppendAndEncodeRoundTrip(t *testing.T) {
	m := NewOffsetMap(32768)
	require.NoError(t, m.Append(1, 0))
	require.NoError(t, m.Append(2, 32768))
	require.NoError(t, m.Append(3, 65536))

	body := m.Encode()
	decoded, err := DecodeOffsetMap(32768, body)
	require.NoError(t, err)

	v, ok := decoded.Get(2)
	require.True(t, ok)
	require.Equal(t, uint64(32768), v)

	highest, ok := decoded.HighestChunkNumber()
	require.True(t, ok)
	require.Equal(t, uint64(3), highest)
}

func TestFlagsMap_AppendAndEncodeRoundTrip(t *testing.T) {
	m := NewFlagsMap(4096)
	require.NoError(t, m.Append(1, FlagSameBytes))
	require.NoError(t, m.Append(2, FlagCompression|FlagEncryption))

	body := m.Encode()
	decoded, err := DecodeFlagsMap(4096, body)
	require.NoError(t, err)

	v, ok := decoded.Get(1)
	require.True(t, ok)
	require.True(t, v.IsSameBytes())

	v2, ok := decoded.Get(2)
	require.True(t, ok)
	require.True(t, v2.IsCompressed())
	require.True(t, v2.IsEncrypted())
	require.False(t, v2.IsSameBytes())
}

func TestMap_Append_RejectsNonIncreasingChunkNumber(t *testing.T) {
	m := NewOffsetMap(32768)
	require.NoError(t, m.Append(5, 0))
	require.Error(t, m.Append(5, 100))
	require.Error(t, m.Append(3, 100))
}

func TestMap_Get_MissingChunkNumber(t *testing.T) {
	m := NewXxhashMap(32768)
	require.NoError(t, m.Append(1, 0xDEADBEEF))
	_, ok := m.Get(99)
	require.False(t, ok)
}

func TestMap_IsFull_FiresBeforeTargetSizeExceeded(t *testing.T) {
	// Small target forces fullness after very few entries; this verifies
	// IsFull trips before an oversized map could ever be encoded (§8
	// property 7: "an oversized encoded map never appears on disk").
	target := uint64(coding.FrameHeaderSize) + 8 + 16*3 // room for ~3 offset entries
	m := NewOffsetMap(target)
	require.NoError(t, m.Append(1, 10))
	require.NoError(t, m.Append(2, 20))
	require.True(t, m.IsFull())

	body := m.Encode()
	require.LessOrEqual(t, uint64(coding.FrameHeaderSize+len(body)), target+16)
}

func TestFlags_Validate_RejectsSameBytesAndDuplicate(t *testing.T) {
	f := FlagSameBytes | FlagDuplicate
	require.Error(t, f.Validate())
}

func TestFlags_String(t *testing.T) {
	require.Equal(t, "none", Flags(0).String())
	require.Contains(t, (FlagCompression | FlagEncryption).String(), "compression")
	require.Contains(t, (FlagCompression | FlagEncryption).String(), "encryption")
}
