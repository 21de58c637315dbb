package container

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/kenneth/zffcore/internal/coding"
	"github.com/kenneth/zffcore/internal/object"
	"github.com/kenneth/zffcore/internal/segment"
	"github.com/kenneth/zffcore/internal/zcrypto"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// Object is one mounted object: its header, whichever footer variant it
// carries, and the AEAD (if any) recovered from the caller's password.
type Object struct {
	container *Container

	Number  uint64
	Header  object.ObjectHeader
	aead    cipher.AEAD

	Physical *object.ObjectFooterPhysical
	Logical  *object.ObjectFooterLogical
	Virtual  *object.ObjectFooterVirtual
}

// readRawFrame reads a frame at a segment-relative offset and re-serializes
// it into the self-contained form the object package's Decode* functions
// expect (magic ‖ length ‖ version ‖ body), since segment.Reader.ReadFrameAt
// already strips that prefix off for its own callers.
func readRawFrame(seg *segment.Reader, offset uint64, wantIdentifier uint32) (coding.Frame, []byte, error) {
	frame, body, err := seg.ReadFrameAt(offset, wantIdentifier)
	if err != nil {
		return coding.Frame{}, nil, err
	}
	return frame, coding.EncodeFrame(frame.Identifier, frame.Version, body), nil
}

// OpenObject mounts one object: it locates and decodes the object header
// (deriving the AEAD from password if the header is whole-encrypted), then
// locates and decodes whichever footer variant the object carries (§4.I
// "look up object_number in the main footer's header and footer tables,
// open each, decrypt with the user-supplied password if the object header
// is encrypted").
func (c *Container) OpenObject(objectNumber uint64, password string) (*Object, error) {
	hdrSegNum, ok := c.mainFooter.ObjectHeaderSegments[objectNumber]
	if !ok {
		return nil, fmt.Errorf("container: object %d: %w", objectNumber, zfferr.ErrMissingObjectHeader)
	}
	hdrSeg, err := c.segment(hdrSegNum)
	if err != nil {
		return nil, err
	}
	hdrOffset, ok := hdrSeg.Footer.ObjectHeaderOffsets[objectNumber]
	if !ok {
		return nil, fmt.Errorf("container: object %d: %w", objectNumber, zfferr.ErrMissingObjectHeader)
	}
	_, hdrRaw, err := readRawFrame(hdrSeg, hdrOffset, coding.IdentifierObjectHeader)
	if err != nil {
		return nil, fmt.Errorf("container: object %d header: %w", objectNumber, err)
	}

	var aead cipher.AEAD
	hdr, err := object.DecodeObjectHeader(hdrRaw)
	switch {
	case errors.Is(err, zfferr.ErrMissingEncryptionKey):
		if password == "" {
			return nil, fmt.Errorf("container: object %d is encrypted: %w", objectNumber, zfferr.ErrMissingEncryptionKey)
		}
		encHeader, peekErr := object.PeekEncryptionHeader(hdrRaw)
		if peekErr != nil {
			return nil, fmt.Errorf("container: object %d: %w", objectNumber, peekErr)
		}
		dek, unwrapErr := zcrypto.UnwrapKey(password, encHeader.PBE, encHeader.WrappedKey)
		if unwrapErr != nil {
			return nil, fmt.Errorf("container: object %d: %w", objectNumber, unwrapErr)
		}
		aead, err = zcrypto.NewAEAD(encHeader.Algorithm, dek)
		if err != nil {
			return nil, fmt.Errorf("container: object %d: %w", objectNumber, err)
		}
		hdr, err = object.DecodeEncryptedObjectHeader(hdrRaw, aead)
		if err != nil {
			return nil, fmt.Errorf("container: object %d: %w", objectNumber, err)
		}
	case err != nil:
		return nil, fmt.Errorf("container: object %d: %w", objectNumber, err)
	}

	obj := &Object{container: c, Number: objectNumber, Header: hdr, aead: aead}

	if err := obj.mountFooter(); err != nil {
		return nil, err
	}
	return obj, nil
}

func (o *Object) mountFooter() error {
	c := o.container
	footerSegNum, ok := c.mainFooter.ObjectFooterSegments[o.Number]
	if !ok {
		return fmt.Errorf("container: object %d: %w", o.Number, zfferr.ErrMissingObjectFooter)
	}
	footerSeg, err := c.segment(footerSegNum)
	if err != nil {
		return err
	}
	footerOffset, ok := footerSeg.Footer.ObjectFooterOffsets[o.Number]
	if !ok {
		return fmt.Errorf("container: object %d: %w", o.Number, zfferr.ErrMissingObjectFooter)
	}

	frame, raw, err := readRawFrame(footerSeg, footerOffset, 0)
	if err != nil {
		return fmt.Errorf("container: object %d footer: %w", o.Number, err)
	}

	switch frame.Identifier {
	case coding.IdentifierObjectFooterPhysical:
		pf, err := o.decodePhysicalFooter(raw)
		if err != nil {
			return err
		}
		o.Physical = &pf
	case coding.IdentifierObjectFooterLogical:
		lf, err := o.decodeLogicalFooter(raw)
		if err != nil {
			return err
		}
		o.Logical = &lf
	case coding.IdentifierObjectFooterVirtual:
		vf, err := o.decodeVirtualFooter(raw)
		if err != nil {
			return err
		}
		o.Virtual = &vf
	default:
		return fmt.Errorf("container: object %d: unexpected footer identifier %08x", o.Number, frame.Identifier)
	}
	return nil
}

func (o *Object) decodePhysicalFooter(raw []byte) (object.ObjectFooterPhysical, error) {
	if o.aead != nil {
		return object.DecodeEncryptedObjectFooterPhysical(raw, o.aead)
	}
	return object.DecodeObjectFooterPhysical(raw)
}

func (o *Object) decodeLogicalFooter(raw []byte) (object.ObjectFooterLogical, error) {
	if o.aead != nil {
		return object.DecodeEncryptedObjectFooterLogical(raw, o.aead)
	}
	return object.DecodeObjectFooterLogical(raw)
}

func (o *Object) decodeVirtualFooter(raw []byte) (object.ObjectFooterVirtual, error) {
	if o.aead != nil {
		return object.DecodeEncryptedObjectFooterVirtual(raw, o.aead)
	}
	return object.DecodeObjectFooterVirtual(raw)
}

// ReadAt implements io.ReaderAt over a Physical object's chunk stream
// (§4.I). It returns an error if the object is not Physical.
func (o *Object) ReadAt(p []byte, off int64) (int, error) {
	if o.Physical == nil {
		return 0, fmt.Errorf("container: object %d is not a physical object", o.Number)
	}
	if off < 0 {
		return 0, zfferr.ErrUnseekableNegativePosition
	}
	return o.container.readRange(o, o.Physical.FirstChunkNumber, o.Physical.NumberOfChunks, o.Physical.LengthOfData, p, uint64(off))
}
