package object

import (
	"crypto/cipher"
	"fmt"

	"github.com/kenneth/zffcore/internal/coding"
	"github.com/kenneth/zffcore/internal/zcrypto"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// VirtualMapping is one entry of a virtual object's mapping table (§4
// supplemented features, virtual_maps.rs's VirtualMappingInformation): it
// points at a contiguous run of another ("passive") object's chunks.
type VirtualMapping struct {
	ObjectNumber uint64
	StartChunkNumber uint64
	ChunkOffset  uint64
	Length       uint64
}

func (m VirtualMapping) encode() []byte {
	buf := make([]byte, 0, 32)
	buf = coding.PutU64(buf, m.ObjectNumber)
	buf = coding.PutU64(buf, m.StartChunkNumber)
	buf = coding.PutU64(buf, m.ChunkOffset)
	buf = coding.PutU64(buf, m.Length)
	return buf
}

func decodeVirtualMapping(r *coding.Reader) (VirtualMapping, error) {
	var m VirtualMapping
	var err error
	if m.ObjectNumber, err = r.U64(); err != nil {
		return m, err
	}
	if m.StartChunkNumber, err = r.U64(); err != nil {
		return m, err
	}
	if m.ChunkOffset, err = r.U64(); err != nil {
		return m, err
	}
	if m.Length, err = r.U64(); err != nil {
		return m, err
	}
	return m, nil
}

// VirtualLayer is one depth level of a virtual object's chunk-offset
// rewriting (virtual_maps.rs's VirtualLayer): an ordered offset map from
// this layer's own logical offset to the next layer down.
type VirtualLayer struct {
	Depth     uint8
	OffsetMap map[uint64]uint64
}

// Encode returns the framed VirtualLayer body.
func (l VirtualLayer) Encode() []byte {
	body := make([]byte, 0, 32)
	body = coding.PutU8(body, l.Depth)
	body = coding.PutUnorderedMapU64(body, l.OffsetMap)
	return coding.EncodeFrame(coding.IdentifierVirtualMapping, coding.VersionObjectFooterVirtual, body)
}

// DecodeVirtualLayer parses a framed VirtualLayer.
func DecodeVirtualLayer(data []byte) (VirtualLayer, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierVirtualMapping)
	if err != nil {
		return VirtualLayer{}, err
	}
	if f.Version != coding.VersionObjectFooterVirtual {
		return VirtualLayer{}, fmt.Errorf("object: virtual_layer version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	depth, err := r.U8()
	if err != nil {
		return VirtualLayer{}, err
	}
	offsetMap, err := r.UnorderedMapU64()
	if err != nil {
		return VirtualLayer{}, err
	}
	return VirtualLayer{Depth: depth, OffsetMap: offsetMap}, nil
}

// ObjectFooterVirtual closes a virtual object (§4 supplemented features,
// object_footer_virtual.rs): a declared view over ranges of other objects'
// chunks rather than an independently chunked stream.
type ObjectFooterVirtual struct {
	ObjectNumber           uint64
	CreationTimestamp      uint64
	PassiveObjects         []uint64
	LengthOfData           uint64
	VirtualObjectMapOffset uint64
	VirtualObjectMapSegmentNumber uint64
}

func (f ObjectFooterVirtual) encodeContent() []byte {
	buf := make([]byte, 0, 48)
	buf = coding.PutU64(buf, f.CreationTimestamp)
	buf = coding.PutOrderedPairsU64(buf, f.PassiveObjects)
	buf = coding.PutU64(buf, f.LengthOfData)
	buf = coding.PutU64(buf, f.VirtualObjectMapOffset)
	buf = coding.PutU64(buf, f.VirtualObjectMapSegmentNumber)
	return buf
}

// Encode returns the framed, unencrypted footer.
func (f ObjectFooterVirtual) Encode() []byte {
	body := make([]byte, 0, 64)
	body = coding.PutU64(body, f.ObjectNumber)
	body = coding.PutU8(body, 0) // encryption flag
	body = append(body, f.encodeContent()...)
	return coding.EncodeFrame(coding.IdentifierObjectFooterVirtual, coding.VersionObjectFooterVirtual, body)
}

// EncodeEncrypted whole-encrypts the footer content under aead.
func (f ObjectFooterVirtual) EncodeEncrypted(aead cipher.AEAD) []byte {
	ciphertext := zcrypto.Seal(aead, f.ObjectNumber, zcrypto.DomainObjectFooter, f.encodeContent())
	body := make([]byte, 0, 32+len(ciphertext))
	body = coding.PutU64(body, f.ObjectNumber)
	body = coding.PutU8(body, 1)
	body = coding.PutBytes(body, ciphertext)
	return coding.EncodeFrame(coding.IdentifierObjectFooterVirtual, coding.VersionObjectFooterVirtual, body)
}

// DecodeObjectFooterVirtual parses a framed, unencrypted footer.
func DecodeObjectFooterVirtual(data []byte) (ObjectFooterVirtual, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierObjectFooterVirtual)
	if err != nil {
		return ObjectFooterVirtual{}, err
	}
	if f.Version != coding.VersionObjectFooterVirtual {
		return ObjectFooterVirtual{}, fmt.Errorf("object: object_footer_virtual version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	objectNumber, err := r.U64()
	if err != nil {
		return ObjectFooterVirtual{}, err
	}
	encFlag, err := r.U8()
	if err != nil {
		return ObjectFooterVirtual{}, err
	}
	if encFlag != 0 {
		return ObjectFooterVirtual{}, fmt.Errorf("object: object_footer_virtual %d is whole-encrypted: %w", objectNumber, zfferr.ErrMissingEncryptionKey)
	}
	return decodeObjectFooterVirtualContent(objectNumber, r)
}

// DecodeEncryptedObjectFooterVirtual parses and decrypts a whole-encrypted
// footer using aead.
func DecodeEncryptedObjectFooterVirtual(data []byte, aead cipher.AEAD) (ObjectFooterVirtual, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierObjectFooterVirtual)
	if err != nil {
		return ObjectFooterVirtual{}, err
	}
	if f.Version != coding.VersionObjectFooterVirtual {
		return ObjectFooterVirtual{}, fmt.Errorf("object: object_footer_virtual version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	objectNumber, err := r.U64()
	if err != nil {
		return ObjectFooterVirtual{}, err
	}
	encFlag, err := r.U8()
	if err != nil {
		return ObjectFooterVirtual{}, err
	}
	if encFlag == 0 {
		return ObjectFooterVirtual{}, fmt.Errorf("object: object_footer_virtual %d is not encrypted", objectNumber)
	}
	ciphertext, err := r.ByteSlice()
	if err != nil {
		return ObjectFooterVirtual{}, err
	}
	plaintext, err := zcrypto.Open(aead, objectNumber, zcrypto.DomainObjectFooter, ciphertext)
	if err != nil {
		return ObjectFooterVirtual{}, err
	}
	return decodeObjectFooterVirtualContent(objectNumber, coding.NewReader(plaintext))
}

func decodeObjectFooterVirtualContent(objectNumber uint64, r *coding.Reader) (ObjectFooterVirtual, error) {
	creationTimestamp, err := r.U64()
	if err != nil {
		return ObjectFooterVirtual{}, err
	}
	passiveObjects, err := r.OrderedU64Slice()
	if err != nil {
		return ObjectFooterVirtual{}, err
	}
	lengthOfData, err := r.U64()
	if err != nil {
		return ObjectFooterVirtual{}, err
	}
	mapOffset, err := r.U64()
	if err != nil {
		return ObjectFooterVirtual{}, err
	}
	mapSegmentNumber, err := r.U64()
	if err != nil {
		return ObjectFooterVirtual{}, err
	}
	return ObjectFooterVirtual{
		ObjectNumber:                  objectNumber,
		CreationTimestamp:             creationTimestamp,
		PassiveObjects:                passiveObjects,
		LengthOfData:                  lengthOfData,
		VirtualObjectMapOffset:        mapOffset,
		VirtualObjectMapSegmentNumber: mapSegmentNumber,
	}, nil
}
