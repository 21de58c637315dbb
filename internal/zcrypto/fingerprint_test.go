package zcrypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXxh3_Deterministic(t *testing.T) {
	data := []byte("a chunk of forensic acquisition data")
	require.Equal(t, Xxh3(data), Xxh3(data))
	require.NotEqual(t, Xxh3(data), Xxh3([]byte("different data")))
}

func TestCrc32_Deterministic(t *testing.T) {
	data := []byte("raw on-disk chunk bytes")
	require.Equal(t, Crc32(data), Crc32(data))
	require.NotEqual(t, Crc32(data), Crc32([]byte("other bytes")))
}

func TestBlake3Sum256_Deterministic(t *testing.T) {
	data := []byte("candidate duplicate chunk")
	a := Blake3Sum256(data)
	b := Blake3Sum256(data)
	require.Equal(t, a, b)

	c := Blake3Sum256([]byte("not a duplicate"))
	require.NotEqual(t, a, c)
}

func TestFingerprints_EmptyInput(t *testing.T) {
	require.NotPanics(t, func() {
		Xxh3(nil)
		Crc32(nil)
		Blake3Sum256(nil)
	})
}
