package segment

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// NewUniqueIdentifier mints the container-wide identifier every segment of
// one container shares (§3 Data Model: "an ordered collection of segments
// sharing a unique_identifier (u64)"). The identifier is a fresh random
// UUIDv4 folded down to 64 bits by XORing its two halves, giving every
// container a collision-resistant identifier without changing the wire
// format's u64 field width.
func NewUniqueIdentifier() uint64 {
	id := uuid.New()
	hi := binary.BigEndian.Uint64(id[0:8])
	lo := binary.BigEndian.Uint64(id[8:16])
	return hi ^ lo
}
