package bplist

const (
	bplistMagic       = "bplist"
	bplistTrailerSize = 32
	// magic plus trailer; anything shorter cannot hold a document.
	bplistMinSize = len(bplistMagic) + bplistTrailerSize
)

const (
	// DefaultMaxObjectCount bounds the number of objects a trailer may declare.
	DefaultMaxObjectCount = 32768
	// DefaultMaxPayloadSize bounds any single payload or table, in bytes.
	DefaultMaxPayloadSize = 100000000
)

type bplistTrailer struct {
	Unused            [5]uint8
	SortVersion       uint8
	OffsetIntSize     uint8
	ObjectRefSize     uint8
	NumObjects        uint64
	TopObject         uint64
	OffsetTableOffset uint64
}

const (
	bpTagNull        uint8 = 0x00
	bpTagBoolFalse   uint8 = 0x08
	bpTagBoolTrue    uint8 = 0x09
	bpTagFill        uint8 = 0x0F
	bpTagInteger     uint8 = 0x10
	bpTagReal        uint8 = 0x20
	bpTagDate        uint8 = 0x30
	bpTagData        uint8 = 0x40
	bpTagASCIIString uint8 = 0x50
	bpTagUTF16String uint8 = 0x60
	bpTagUID         uint8 = 0x80
	bpTagArray       uint8 = 0xA0
	bpTagDictionary  uint8 = 0xD0

	// low nibble of a tag that says "length follows as an integer object"
	bpLengthExtended uint8 = 0x0F
	// date objects are always tagged 0x33
	bpDateInfo uint8 = 0x03
)
