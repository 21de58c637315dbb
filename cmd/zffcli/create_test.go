package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kenneth/zffcore/internal/chunking"
)

func TestParseCompressionAlgorithm(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    chunking.CompressionAlgorithm
		wantErr bool
	}{
		{"empty defaults to none", "", chunking.CompressionNone, false},
		{"explicit none", "none", chunking.CompressionNone, false},
		{"zstd", "zstd", chunking.CompressionZstd, false},
		{"lz4", "lz4", chunking.CompressionLZ4, false},
		{"unknown", "brotli", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseCompressionAlgorithm(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseObjectNumber(t *testing.T) {
	n, err := parseObjectNumber("42")
	assert.NoError(t, err)
	assert.Equal(t, uint64(42), n)

	_, err = parseObjectNumber("not-a-number")
	assert.Error(t, err)
}
