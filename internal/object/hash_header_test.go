package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashHeader_RoundTrip(t *testing.T) {
	h := HashHeader{Values: []HashValue{
		{HashType: HashTypeSHA256, Digest: []byte("0123456789abcdef0123456789abcdef")},
		{HashType: HashTypeBlake3, Digest: []byte("abcdefabcdefabcdefabcdefabcdefab"), Signature: []byte("sig-bytes")},
	}}

	encoded := h.Encode()
	got, err := DecodeHashHeader(encoded)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestHashHeader_ByType(t *testing.T) {
	h := HashHeader{Values: []HashValue{
		{HashType: HashTypeSHA512, Digest: []byte("digest")},
	}}

	v, ok := h.ByType(HashTypeSHA512)
	require.True(t, ok)
	require.Equal(t, []byte("digest"), v.Digest)

	_, ok = h.ByType(HashTypeBlake2b512)
	require.False(t, ok)
}

func TestHashValue_Signed(t *testing.T) {
	require.False(t, HashValue{HashType: HashTypeSHA256}.Signed())
	require.True(t, HashValue{HashType: HashTypeSHA256, Signature: []byte{1}}.Signed())
}

func TestDecodeHashHeader_WrongIdentifier(t *testing.T) {
	dh := NewDescriptionHeader()
	dh.SetNotes("not a hash header")
	_, err := DecodeHashHeader(dh.Encode())
	require.Error(t, err)
}
