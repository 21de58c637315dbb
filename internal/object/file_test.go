package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleFileHeader(fileType FileTypeKind) FileHeader {
	return FileHeader{
		FileNumber:       5,
		FileType:         fileType,
		Filename:         "evidence.dd",
		ParentFileNumber: 1,
		Atime:            100,
		Mtime:            200,
		Ctime:            300,
		Btime:            50,
		MetadataExt:      map[string]string{"inode": "42"},
	}
}

func TestFileHeader_PlainRoundTrip(t *testing.T) {
	h := sampleFileHeader(FileTypeFile)
	got, err := DecodeFileHeader(h.Encode())
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestFileHeader_EncryptedRoundTrip(t *testing.T) {
	aead := newTestAEAD(t)
	h := sampleFileHeader(FileTypeDirectory)
	encoded := h.EncodeEncrypted(aead)

	got, err := DecodeEncryptedFileHeader(encoded, aead)
	require.NoError(t, err)
	require.Equal(t, h, got)

	_, err = DecodeFileHeader(encoded)
	require.Error(t, err)
}

func TestFileFooter_PlainRoundTrip(t *testing.T) {
	f := FileFooter{
		FileNumber:       5,
		AcquisitionStart: 10,
		AcquisitionEnd:   20,
		HashHeader:       sampleHashHeader(),
		FirstChunkNumber: 0,
		NumberOfChunks:   3,
		LengthOfData:     4096,
	}
	got, err := DecodeFileFooter(f.Encode())
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestFileFooter_EncryptedRoundTrip(t *testing.T) {
	aead := newTestAEAD(t)
	f := FileFooter{
		FileNumber:     7,
		HashHeader:     sampleHashHeader(),
		NumberOfChunks: 1,
		LengthOfData:   0,
	}
	encoded := f.EncodeEncrypted(aead)

	got, err := DecodeEncryptedFileFooter(encoded, aead)
	require.NoError(t, err)
	require.Equal(t, f, got)

	_, err = DecodeFileFooter(encoded)
	require.Error(t, err)
}

func TestFileTypeEncodingInformation_SerializeBody(t *testing.T) {
	tests := []struct {
		name string
		info FileTypeEncodingInformation
	}{
		{name: "directory", info: FileTypeEncodingInformation{Kind: FileTypeDirectory, DirectoryChildren: []uint64{1, 2, 3}}},
		{name: "symlink", info: FileTypeEncodingInformation{Kind: FileTypeSymlink, SymlinkTarget: "/evidence/original"}},
		{name: "hardlink", info: FileTypeEncodingInformation{Kind: FileTypeHardlink, HardlinkTarget: 42}},
		{name: "special-fifo", info: FileTypeEncodingInformation{Kind: FileTypeSpecialFile, SpecialRdev: 7, SpecialKind: SpecialFileFifo}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := tt.info.SerializeBody()
			require.NoError(t, err)
			require.NotEmpty(t, body)
		})
	}
}

func TestFileTypeEncodingInformation_FileHasNoSerializedBody(t *testing.T) {
	_, err := FileTypeEncodingInformation{Kind: FileTypeFile}.SerializeBody()
	require.Error(t, err)
}
