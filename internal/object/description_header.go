package object

import (
	"fmt"
	"sort"

	"github.com/kenneth/zffcore/internal/coding"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// Well-known DescriptionHeader keys (§4 supplemented features,
// description_header.rs): predefined so different tools agree on where to
// find the common acquisition metadata, while still allowing arbitrary
// custom key/value pairs.
const (
	DescriptionKeyCaseNumber    = "case_number"
	DescriptionKeyEvidenceNumber = "evidence_number"
	DescriptionKeyExaminerName  = "examiner_name"
	DescriptionKeyNotes         = "notes"
)

// DescriptionHeader is the free-form examiner/case-number/notes metadata
// carried by every object header. Fields beyond the four predefined keys
// are simple custom key/value pairs.
type DescriptionHeader struct {
	Fields map[string]string
}

// NewDescriptionHeader returns an empty header ready for Set* calls.
func NewDescriptionHeader() *DescriptionHeader {
	return &DescriptionHeader{Fields: make(map[string]string)}
}

func (d *DescriptionHeader) set(key, value string) {
	if d.Fields == nil {
		d.Fields = make(map[string]string)
	}
	d.Fields[key] = value
}

func (d *DescriptionHeader) SetCaseNumber(v string)    { d.set(DescriptionKeyCaseNumber, v) }
func (d *DescriptionHeader) SetEvidenceNumber(v string) { d.set(DescriptionKeyEvidenceNumber, v) }
func (d *DescriptionHeader) SetExaminerName(v string)  { d.set(DescriptionKeyExaminerName, v) }
func (d *DescriptionHeader) SetNotes(v string)         { d.set(DescriptionKeyNotes, v) }
func (d *DescriptionHeader) SetCustom(key, value string) { d.set(key, value) }

func (d *DescriptionHeader) CaseNumber() (string, bool)    { v, ok := d.Fields[DescriptionKeyCaseNumber]; return v, ok }
func (d *DescriptionHeader) EvidenceNumber() (string, bool) { v, ok := d.Fields[DescriptionKeyEvidenceNumber]; return v, ok }
func (d *DescriptionHeader) ExaminerName() (string, bool)  { v, ok := d.Fields[DescriptionKeyExaminerName]; return v, ok }
func (d *DescriptionHeader) Notes() (string, bool)         { v, ok := d.Fields[DescriptionKeyNotes]; return v, ok }

// Encode returns the framed DescriptionHeader body. Keys are sorted so two
// encoders of the same logical map produce identical bytes. A nil receiver
// encodes as an empty header, so callers that never set one (e.g. a bare
// acquisition with no case metadata) don't need a nil check of their own.
func (d *DescriptionHeader) Encode() []byte {
	if d == nil {
		d = &DescriptionHeader{}
	}
	keys := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	body := make([]byte, 0, 64)
	body = coding.PutU64(body, uint64(len(keys)))
	for _, k := range keys {
		body = coding.PutString(body, k)
		body = coding.PutString(body, d.Fields[k])
	}
	return coding.EncodeFrame(coding.IdentifierDescriptionHdr, coding.VersionDescriptionHeader, body)
}

// DecodeDescriptionHeader parses a framed DescriptionHeader.
func DecodeDescriptionHeader(data []byte) (*DescriptionHeader, error) {
	f, body, err := coding.ParseFrame(data, coding.IdentifierDescriptionHdr)
	if err != nil {
		return nil, err
	}
	if f.Version != coding.VersionDescriptionHeader {
		return nil, fmt.Errorf("object: description_header version %d: %w", f.Version, zfferr.ErrUnsupportedVersion)
	}
	r := coding.NewReader(body)
	count, err := r.U64()
	if err != nil {
		return nil, fmt.Errorf("object: decode description_header count: %w", err)
	}
	fields := make(map[string]string, count)
	for i := uint64(0); i < count; i++ {
		k, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("object: decode description_header key: %w", err)
		}
		v, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("object: decode description_header value: %w", err)
		}
		fields[k] = v
	}
	return &DescriptionHeader{Fields: fields}, nil
}
