// Package chunkmap implements the six parallel per-chunk maps (§4.D):
// offset, size, flags, xxhash, samebytes, and dedup, each a
// BTreeMap<chunk_number, V> that is encoded, optionally encrypted, and
// flushed once it approaches its target encoded size.
package chunkmap

import "fmt"

// Flags is the packed per-chunk bitset (§6 "Chunk flags byte"). Bit
// positions are fixed by the wire format: error=0, compression=1,
// same_bytes=2, duplicate=3, encryption=4, empty_file=5, virtual=6.
type Flags uint8

const (
	FlagError Flags = 1 << iota
	FlagCompression
	FlagSameBytes
	FlagDuplicate
	FlagEncryption
	FlagEmptyFile
	FlagVirtual
)

func (f Flags) IsError() bool       { return f&FlagError != 0 }
func (f Flags) IsCompressed() bool  { return f&FlagCompression != 0 }
func (f Flags) IsSameBytes() bool   { return f&FlagSameBytes != 0 }
func (f Flags) IsDuplicate() bool   { return f&FlagDuplicate != 0 }
func (f Flags) IsEncrypted() bool   { return f&FlagEncryption != 0 }
func (f Flags) IsEmptyFile() bool   { return f&FlagEmptyFile != 0 }
func (f Flags) IsVirtual() bool     { return f&FlagVirtual != 0 }

func (f Flags) With(other Flags) Flags    { return f | other }
func (f Flags) Without(other Flags) Flags { return f &^ other }

// Validate enforces invariant 3 (§3): same_bytes and duplicate are mutually
// exclusive.
func (f Flags) Validate() error {
	if f.IsSameBytes() && f.IsDuplicate() {
		return fmt.Errorf("chunkmap: flags has both same_bytes and duplicate set")
	}
	return nil
}

func (f Flags) String() string {
	names := []struct {
		bit  Flags
		name string
	}{
		{FlagError, "error"},
		{FlagCompression, "compression"},
		{FlagSameBytes, "same_bytes"},
		{FlagDuplicate, "duplicate"},
		{FlagEncryption, "encryption"},
		{FlagEmptyFile, "empty_file"},
		{FlagVirtual, "virtual"},
	}
	s := ""
	for _, n := range names {
		if f&n.bit != 0 {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}
