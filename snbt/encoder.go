package snbt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jmoiron/nbts/nbt"
)

// ChunkSize bounds the buffers used to stream strings and arrays. Declared
// lengths come from the input and are never used to size an allocation.
const ChunkSize = 2048

// Option configures an Encoder.
type Option func(*Encoder)

// SingleQuotes delimits strings and names with ' instead of ".
func SingleQuotes() Option {
	return func(e *Encoder) { e.quote = '\'' }
}

// MaxDepth limits list/compound nesting of the input (see nbt.MaxDepth).
func MaxDepth(n int) Option {
	return func(e *Encoder) { e.ropts = append(e.ropts, nbt.MaxDepth(n)) }
}

// WithHandlers makes the encoder dispatch through h, which is usually a
// modified copy of Handlers(). Types with a nil entry are skipped and leave
// no trace in the output.
func WithHandlers(h *nbt.Handlers[*Encoder]) Option {
	return func(e *Encoder) { e.table = h }
}

// Encoder renders NBT as single-line SNBT while it is parsed.
//
// An Encoder is the handler context of its table: it holds the output and
// the index of the next element within the container being printed, which
// decides whether a separator is due. Containers save the index, restart it
// at 0 for their children and restore it afterwards.
type Encoder struct {
	w     io.Writer
	quote byte
	index int
	table *nbt.Handlers[*Encoder]
	ropts []nbt.Option

	in  [ChunkSize]byte
	out [ChunkSize + 64]byte
}

// NewEncoder returns an Encoder writing to w. Output is not buffered.
func NewEncoder(w io.Writer, opts ...Option) *Encoder {
	e := &Encoder{w: w, quote: '"', table: &printHandlers}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode reads one named tag from r and writes its SNBT form. A tag with a
// non-empty name is written as "name":value. No newline is written.
func (e *Encoder) Encode(r io.Reader) error {
	e.index = 0
	return nbt.ParseTag(nbt.NewReader(r, e.ropts...), e.table, e)
}

// EncodeNetwork is Encode for a tag in network framing, which has no name.
func (e *Encoder) EncodeNetwork(r io.Reader) error {
	e.index = 0
	return nbt.ParseNetworkTag(nbt.NewReader(r, e.ropts...), e.table, e)
}

// WriteBool writes v as true or false, with no separator or name; handlers
// printing bytes as booleans call Preamble before it.
func (e *Encoder) WriteBool(v int8) error {
	return e.write(AppendBool(e.out[:0], v))
}

var printHandlers = nbt.Handlers[*Encoder]{
	nbt.TagByte:      (*Encoder).handleByte,
	nbt.TagShort:     (*Encoder).handleShort,
	nbt.TagInt:       (*Encoder).handleInt,
	nbt.TagLong:      (*Encoder).handleLong,
	nbt.TagFloat:     (*Encoder).handleFloat,
	nbt.TagDouble:    (*Encoder).handleDouble,
	nbt.TagString:    (*Encoder).handleString,
	nbt.TagByteArray: (*Encoder).handleByteArray,
	nbt.TagIntArray:  (*Encoder).handleIntArray,
	nbt.TagLongArray: (*Encoder).handleLongArray,
	nbt.TagList:      (*Encoder).handleList,
	nbt.TagCompound:  (*Encoder).handleCompound,
}

// Handlers returns a copy of the table an Encoder uses by default.
func Handlers() nbt.Handlers[*Encoder] { return printHandlers }

func (e *Encoder) write(p []byte) error {
	if _, err := e.w.Write(p); err != nil {
		return fmt.Errorf("%w: %w", nbt.ErrWrite, err)
	}
	return nil
}

func (e *Encoder) writeString(s string) error {
	if _, err := io.WriteString(e.w, s); err != nil {
		return fmt.Errorf("%w: %w", nbt.ErrWrite, err)
	}
	return nil
}

// Preamble writes the separator and the name that precede every value. A
// handler installed with WithHandlers calls it first, then reads and prints
// its payload:
//
//	h := snbt.Handlers()
//	h[nbt.TagByte] = func(e *snbt.Encoder, nameLen uint16, r *nbt.Reader) error {
//		if err := e.Preamble(nameLen, r); err != nil {
//			return err
//		}
//		v, err := r.ReadInt8()
//		if err != nil {
//			return err
//		}
//		return e.WriteBool(v)
//	}
//
// It consumes the nameLen name bytes from r.
func (e *Encoder) Preamble(nameLen uint16, r *nbt.Reader) error {
	e.index++
	if e.index > 1 {
		if err := e.writeString(", "); err != nil {
			return err
		}
	}
	if nameLen == 0 {
		return nil
	}
	if err := e.quoted(int(nameLen), r); err != nil {
		return err
	}
	return e.writeString(":")
}

// quoted streams n bytes of string data from r as a quoted string, escaping
// backslashes and the active quote character.
func (e *Encoder) quoted(n int, r *nbt.Reader) error {
	if err := e.writeQuote(); err != nil {
		return err
	}
	for n > 0 {
		c := min(n, ChunkSize)
		if err := r.ReadFull(e.in[:c]); err != nil {
			return err
		}
		if err := e.escape(e.in[:c]); err != nil {
			return err
		}
		n -= c
	}
	return e.writeQuote()
}

func (e *Encoder) writeQuote() error {
	e.out[0] = e.quote
	return e.write(e.out[:1])
}

func (e *Encoder) escape(p []byte) error {
	for len(p) > 0 {
		i := e.nextSpecial(p)
		if i < 0 {
			return e.write(p)
		}
		if err := e.write(p[:i]); err != nil {
			return err
		}
		e.out[0], e.out[1] = '\\', p[i]
		if err := e.write(e.out[:2]); err != nil {
			return err
		}
		p = p[i+1:]
	}
	return nil
}

// nextSpecial returns the index of the nearer of the next backslash or
// quote in p, or -1.
func (e *Encoder) nextSpecial(p []byte) int {
	b := bytes.IndexByte(p, '\\')
	q := bytes.IndexByte(p, e.quote)
	if b < 0 || (q >= 0 && q < b) {
		return q
	}
	return b
}

func (e *Encoder) handleByte(nameLen uint16, r *nbt.Reader) error {
	if err := e.Preamble(nameLen, r); err != nil {
		return err
	}
	v, err := r.ReadInt8()
	if err != nil {
		return err
	}
	return e.write(AppendByte(e.out[:0], v))
}

func (e *Encoder) handleShort(nameLen uint16, r *nbt.Reader) error {
	if err := e.Preamble(nameLen, r); err != nil {
		return err
	}
	v, err := r.ReadInt16()
	if err != nil {
		return err
	}
	return e.write(AppendShort(e.out[:0], v))
}

func (e *Encoder) handleInt(nameLen uint16, r *nbt.Reader) error {
	if err := e.Preamble(nameLen, r); err != nil {
		return err
	}
	v, err := r.ReadInt32()
	if err != nil {
		return err
	}
	return e.write(AppendInt(e.out[:0], v))
}

func (e *Encoder) handleLong(nameLen uint16, r *nbt.Reader) error {
	if err := e.Preamble(nameLen, r); err != nil {
		return err
	}
	v, err := r.ReadInt64()
	if err != nil {
		return err
	}
	return e.write(AppendLong(e.out[:0], v))
}

func (e *Encoder) handleFloat(nameLen uint16, r *nbt.Reader) error {
	if err := e.Preamble(nameLen, r); err != nil {
		return err
	}
	v, err := r.ReadFloat32()
	if err != nil {
		return err
	}
	return e.write(AppendFloat(e.out[:0], v))
}

func (e *Encoder) handleDouble(nameLen uint16, r *nbt.Reader) error {
	if err := e.Preamble(nameLen, r); err != nil {
		return err
	}
	v, err := r.ReadFloat64()
	if err != nil {
		return err
	}
	return e.write(AppendDouble(e.out[:0], v))
}

func (e *Encoder) handleString(nameLen uint16, r *nbt.Reader) error {
	if err := e.Preamble(nameLen, r); err != nil {
		return err
	}
	n, err := r.ReadStringSize()
	if err != nil {
		return err
	}
	return e.quoted(int(n), r)
}

func (e *Encoder) handleByteArray(nameLen uint16, r *nbt.Reader) error {
	return e.array(nameLen, r, nbt.TagByteArray)
}

func (e *Encoder) handleIntArray(nameLen uint16, r *nbt.Reader) error {
	return e.array(nameLen, r, nbt.TagIntArray)
}

func (e *Encoder) handleLongArray(nameLen uint16, r *nbt.Reader) error {
	return e.array(nameLen, r, nbt.TagLongArray)
}

// array prints [X;v0,v1,...], reading elements ChunkSize bytes at a time
// and flushing text whenever a chunk's worth has accumulated.
func (e *Encoder) array(nameLen uint16, r *nbt.Reader, t nbt.TagType) error {
	if err := e.Preamble(nameLen, r); err != nil {
		return err
	}
	n, err := r.ReadSize()
	if err != nil {
		return err
	}

	var width int
	out := e.out[:0]
	switch t {
	case nbt.TagByteArray:
		width, out = 1, append(out, "[B;"...)
	case nbt.TagIntArray:
		width, out = 4, append(out, "[I;"...)
	default:
		width, out = 8, append(out, "[L;"...)
	}

	first := true
	for left := int(n); left > 0; {
		c := min(left, ChunkSize/width)
		p := e.in[:c*width]
		if err := r.ReadFull(p); err != nil {
			return err
		}
		for ; len(p) > 0; p = p[width:] {
			if !first {
				out = append(out, ',')
			}
			first = false
			switch width {
			case 1:
				out = AppendByte(out, int8(p[0]))
			case 4:
				out = AppendInt(out, int32(binary.BigEndian.Uint32(p)))
			default:
				out = AppendLong(out, int64(binary.BigEndian.Uint64(p)))
			}
			if len(out) >= ChunkSize {
				if err := e.write(out); err != nil {
					return err
				}
				out = e.out[:0]
			}
		}
		left -= c
	}
	return e.write(append(out, ']'))
}

func (e *Encoder) handleList(nameLen uint16, r *nbt.Reader) error {
	index := e.index
	if err := e.Preamble(nameLen, r); err != nil {
		return err
	}
	t, n, err := r.ReadListHeader()
	if err != nil {
		return err
	}
	if err := e.writeString("["); err != nil {
		return err
	}
	e.index = 0
	if err := nbt.ParseList(r, t, n, e.table, e); err != nil {
		return err
	}
	e.index = index + 1
	return e.writeString("]")
}

func (e *Encoder) handleCompound(nameLen uint16, r *nbt.Reader) error {
	index := e.index
	if err := e.Preamble(nameLen, r); err != nil {
		return err
	}
	if err := e.writeString("{"); err != nil {
		return err
	}
	e.index = 0
	if err := nbt.ParseCompound(r, e.table, e); err != nil {
		return err
	}
	e.index = index + 1
	return e.writeString("}")
}
