// Package nbttest builds binary NBT documents for tests.
//
// Calls chain and append raw framing in order, so malformed documents are
// as easy to write as valid ones:
//
//	doc := nbttest.New().
//		Tag(nbt.TagCompound, "").
//		Tag(nbt.TagByte, "a").Byte(1).
//		End().
//		Bytes()
package nbttest

import (
	"encoding/binary"
	"math"

	"github.com/jmoiron/nbts/nbt"
)

// Builder accumulates NBT bytes in big-endian order.
type Builder struct {
	buf []byte
}

// New returns an empty Builder.
func New() *Builder { return &Builder{} }

// Bytes returns the document built so far.
func (b *Builder) Bytes() []byte { return b.buf }

// Len returns the number of bytes built so far.
func (b *Builder) Len() int { return len(b.buf) }

// Raw appends bytes verbatim.
func (b *Builder) Raw(p ...byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

// Type appends a type byte.
func (b *Builder) Type(t nbt.TagType) *Builder { return b.Raw(byte(t)) }

// Name appends a length-prefixed name.
func (b *Builder) Name(s string) *Builder { return b.Str(s) }

// Tag appends a tag header: type byte then name.
func (b *Builder) Tag(t nbt.TagType, name string) *Builder {
	return b.Type(t).Name(name)
}

// End appends a TagEnd byte.
func (b *Builder) End() *Builder { return b.Type(nbt.TagEnd) }

func (b *Builder) Byte(v int8) *Builder { return b.Raw(byte(v)) }

func (b *Builder) Short(v int16) *Builder {
	b.buf = binary.BigEndian.AppendUint16(b.buf, uint16(v))
	return b
}

func (b *Builder) Int(v int32) *Builder {
	b.buf = binary.BigEndian.AppendUint32(b.buf, uint32(v))
	return b
}

func (b *Builder) Long(v int64) *Builder {
	b.buf = binary.BigEndian.AppendUint64(b.buf, uint64(v))
	return b
}

func (b *Builder) Float(v float32) *Builder {
	b.buf = binary.BigEndian.AppendUint32(b.buf, math.Float32bits(v))
	return b
}

func (b *Builder) Double(v float64) *Builder {
	b.buf = binary.BigEndian.AppendUint64(b.buf, math.Float64bits(v))
	return b
}

// Str appends a string payload: uint16 length then the bytes.
func (b *Builder) Str(s string) *Builder {
	b.buf = binary.BigEndian.AppendUint16(b.buf, uint16(len(s)))
	b.buf = append(b.buf, s...)
	return b
}

// ListHeader appends a list's element type and count.
func (b *Builder) ListHeader(t nbt.TagType, n int32) *Builder {
	return b.Type(t).Int(n)
}

func (b *Builder) ByteArray(vs ...int8) *Builder {
	b.Int(int32(len(vs)))
	for _, v := range vs {
		b.Byte(v)
	}
	return b
}

func (b *Builder) IntArray(vs ...int32) *Builder {
	b.Int(int32(len(vs)))
	for _, v := range vs {
		b.Int(v)
	}
	return b
}

func (b *Builder) LongArray(vs ...int64) *Builder {
	b.Int(int32(len(vs)))
	for _, v := range vs {
		b.Long(v)
	}
	return b
}
