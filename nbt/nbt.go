// Package nbt walks NBT, Minecraft's tag-based binary format, directly off
// a byte stream.
//
// Nothing is materialized: every tag is dispatched through a Handlers table
// to caller code as it is read, and tags of a type with no handler are
// skipped by advancing the stream without copying their payload. Handlers
// may recurse into ParseCompound and ParseList to descend into containers.
//
// All multi-byte values are big-endian. The input must already be
// decompressed.
package nbt

import "fmt"

// TagType is the one byte type tag that precedes every NBT value.
type TagType uint8

const (
	TagEnd       TagType = iota // No payload, no name.
	TagByte                     // Signed 8 bit integer.
	TagShort                    // Signed 16 bit integer.
	TagInt                      // Signed 32 bit integer.
	TagLong                     // Signed 64 bit integer.
	TagFloat                    // IEEE 754 32 bit float.
	TagDouble                   // IEEE 754 64 bit float.
	TagByteArray                // size TagInt, then [size]int8.
	TagString                   // length uint16, then modified UTF-8 bytes.
	TagList                     // element TagType, size TagInt, then [size] unnamed payloads.
	TagCompound                 // { TagType, name, payload }... TagEnd
	TagIntArray                 // size TagInt, then [size]int32.
	TagLongArray                // size TagInt, then [size]int64.

	// NumTypes is the number of valid tag types; any type byte >= NumTypes
	// is invalid.
	NumTypes = 13
)

var tagNames = [NumTypes]string{
	TagEnd:       "TAG_End",
	TagByte:      "TAG_Byte",
	TagShort:     "TAG_Short",
	TagInt:       "TAG_Int",
	TagLong:      "TAG_Long",
	TagFloat:     "TAG_Float",
	TagDouble:    "TAG_Double",
	TagByteArray: "TAG_Byte_Array",
	TagString:    "TAG_String",
	TagList:      "TAG_List",
	TagCompound:  "TAG_Compound",
	TagIntArray:  "TAG_Int_Array",
	TagLongArray: "TAG_Long_Array",
}

// Valid reports whether t is one of the 13 known tag types.
func (t TagType) Valid() bool { return t < NumTypes }

func (t TagType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Unknown (0x%02x)", byte(t))
	}
	return tagNames[t]
}

// width is the payload size of fixed-width scalar types and the element
// size of array types; 0 for everything else.
func (t TagType) width() int64 {
	switch t {
	case TagByte, TagByteArray:
		return 1
	case TagShort:
		return 2
	case TagInt, TagFloat, TagIntArray:
		return 4
	case TagLong, TagDouble, TagLongArray:
		return 8
	}
	return 0
}
