package javaobj

// Content tag bytes (ObjectStreamConstants in the JDK).
const (
	tcNull           byte = 0x70
	tcReference      byte = 0x71
	tcClassDesc      byte = 0x72
	tcObject         byte = 0x73
	tcString         byte = 0x74
	tcArray          byte = 0x75
	tcClass          byte = 0x76
	tcBlockData      byte = 0x77
	tcEndBlockData   byte = 0x78
	tcReset          byte = 0x79
	tcBlockDataLong  byte = 0x7A
	tcException      byte = 0x7B
	tcLongString     byte = 0x7C
	tcProxyClassDesc byte = 0x7D
	tcEnum           byte = 0x7E
)

var tagNames = map[byte]string{
	tcNull:           "NULL",
	tcReference:      "REFERENCE",
	tcClassDesc:      "CLASSDESC",
	tcObject:         "OBJECT",
	tcString:         "STRING",
	tcArray:          "ARRAY",
	tcClass:          "CLASS",
	tcBlockData:      "BLOCKDATA",
	tcEndBlockData:   "ENDBLOCKDATA",
	tcReset:          "RESET",
	tcBlockDataLong:  "BLOCKDATALONG",
	tcException:      "EXCEPTION",
	tcLongString:     "LONGSTRING",
	tcProxyClassDesc: "PROXYCLASSDESC",
	tcEnum:           "ENUM",
}

// Class descriptor flag bits (ObjectStreamConstants.SC_*).
const (
	scWriteMethod    uint8 = 0x01
	scSerializable   uint8 = 0x02
	scExternalizable uint8 = 0x04
	scBlockData      uint8 = 0x08
	scEnum           uint8 = 0x10
)

const (
	streamMagic   uint16 = 0xACED
	streamVersion uint16 = 5
)

// endBlockMarker is returned by the content dispatcher when it consumes a
// TC_ENDBLOCKDATA tag, letting annotation/block-data loops detect their own
// terminator without a separate sentinel type per call site.
type endBlockMarker struct{}

// allowedClassDescTags restricts the content tag that may open a class
// description reference.
var allowedClassDescTags = map[byte]bool{
	tcClassDesc:      true,
	tcProxyClassDesc: true,
	tcNull:           true,
	tcReference:      true,
}
