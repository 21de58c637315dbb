package coding

// Structure identifiers (magic values). These reuse the container format's
// historical "zff" namespacing: the high three bytes spell 'z','f','f' and
// the low byte distinguishes the structure kind, exactly as the reference
// encoder does (e.g. chunk header = 0x7A666643, chunk-map frame family =
// 0x7a666678). The six per-kind chunk-map magics below are this engine's
// concrete assignment of that same "zff + kind byte" scheme, one per map
// kind, so each map kind is independently identifiable on disk.
const (
	IdentifierEncryptedHeader  uint32 = 0x7A666645 // 'zffE'
	IdentifierDescriptionHdr   uint32 = 0x7A666664 // 'zffd'
	IdentifierSegmentHeader    uint32 = 0x7A66666D // 'zffm'
	IdentifierCompressionHdr   uint32 = 0x7A666663 // 'zffc'
	IdentifierPBEHeader        uint32 = 0x7A666670 // 'zffp'
	IdentifierEncryptionHeader uint32 = 0x7A666665 // 'zffe'
	IdentifierChunkHeader      uint32 = 0x7A666643 // 'zffC'
	IdentifierHashHeader       uint32 = 0x7A666668 // 'zffh'
	IdentifierHashValue        uint32 = 0x7A666648 // 'zffH'
	IdentifierObjectHeader     uint32 = 0x7A66664F // 'zffO'
	IdentifierFileHeader       uint32 = 0x7A666666 // 'zfff'
	IdentifierChunkMapFrame    uint32 = 0x7A666678 // 'zffx'

	IdentifierSegmentFooter        uint32 = 0x7A666646 // 'zffF'
	IdentifierMainFooter            uint32 = 0x7A66664D // 'zffM'
	IdentifierObjectFooterPhysical  uint32 = 0x7A666650 // 'zffP'
	IdentifierObjectFooterLogical   uint32 = 0x7A66664C // 'zffL'
	IdentifierObjectFooterVirtual   uint32 = 0x7A666656 // 'zffV'
	IdentifierFileFooter            uint32 = 0x7A666649 // 'zffI'
	IdentifierVirtualMapping        uint32 = 0x7A666677 // 'zffw'

	// Per-kind chunk map frames (§4.D): one magic per map kind so the
	// segment footer's chunk-map table and the reader can identify which
	// kind an encoded, possibly-encrypted map blob is without guessing.
	IdentifierChunkOffsetMap    uint32 = 0x7A666601
	IdentifierChunkSizeMap      uint32 = 0x7A666602
	IdentifierChunkFlagsMap     uint32 = 0x7A666603
	IdentifierChunkXxhashMap    uint32 = 0x7A666604
	IdentifierChunkSamebytesMap uint32 = 0x7A666605
	IdentifierChunkDedupMap     uint32 = 0x7A666606

	PBEKDFParametersPBKDF2  uint32 = 0x6B646670 // 'kdfp'
	PBEKDFParametersScrypt  uint32 = 0x6B646673 // 'kdfs'
	PBEKDFParametersArgon2  uint32 = 0x6B646661 // 'kdfa'
)

// Default structure versions, matching the reference encoder's defaults.
const (
	VersionChunkHeader       uint8 = 2
	VersionHashValueHeader   uint8 = 2
	VersionHashHeader        uint8 = 2
	VersionSegmentHeader     uint8 = 3
	VersionCompressionHeader uint8 = 1
	VersionDescriptionHeader uint8 = 2
	VersionPBEHeader         uint8 = 2
	VersionEncryptionHeader  uint8 = 2
	VersionObjectHeader      uint8 = 2
	VersionFileHeader        uint8 = 2
	VersionChunkMap          uint8 = 1

	VersionObjectFooterPhysical uint8 = 1
	VersionObjectFooterLogical  uint8 = 1
	VersionObjectFooterVirtual  uint8 = 1
	VersionSegmentFooter        uint8 = 2
	VersionMainFooter           uint8 = 1
	VersionFileFooter           uint8 = 2
)

// InitialObjectNumber is the first valid object number in a container.
const InitialObjectNumber uint64 = 1

// DefaultChunkmapSize is the default target encoded size, in bytes, of one
// flushed chunk map (§4.D).
const DefaultChunkmapSize uint64 = 32768

// FileExtensionInitializer is the first segment's file suffix.
const FileExtensionInitializer = "z00"
