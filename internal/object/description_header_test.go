package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescriptionHeader_RoundTrip(t *testing.T) {
	d := NewDescriptionHeader()
	d.SetCaseNumber("2026-0042")
	d.SetEvidenceNumber("EV-7")
	d.SetExaminerName("J. Doe")
	d.SetNotes("acquired from a degraded RAID array")
	d.SetCustom("lab", "digital-forensics-1")

	got, err := DecodeDescriptionHeader(d.Encode())
	require.NoError(t, err)
	require.Equal(t, d.Fields, got.Fields)

	caseNumber, ok := got.CaseNumber()
	require.True(t, ok)
	require.Equal(t, "2026-0042", caseNumber)
}

func TestDescriptionHeader_EmptyRoundTrip(t *testing.T) {
	d := NewDescriptionHeader()
	got, err := DecodeDescriptionHeader(d.Encode())
	require.NoError(t, err)
	require.Empty(t, got.Fields)

	_, ok := got.Notes()
	require.False(t, ok)
}

func TestDescriptionHeader_DeterministicEncoding(t *testing.T) {
	a := NewDescriptionHeader()
	a.SetNotes("n")
	a.SetCaseNumber("c")

	b := NewDescriptionHeader()
	b.SetCaseNumber("c")
	b.SetNotes("n")

	require.Equal(t, a.Encode(), b.Encode())
}

func TestDecodeDescriptionHeader_WrongIdentifier(t *testing.T) {
	hh := HashHeader{Values: []HashValue{{HashType: HashTypeSHA256, Digest: []byte("d")}}}
	_, err := DecodeDescriptionHeader(hh.Encode())
	require.Error(t, err)
}
