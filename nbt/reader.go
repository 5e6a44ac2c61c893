package nbt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// config holds Reader configuration.
type config struct {
	maxDepth int
}

// Option configures a Reader.
type Option func(*config)

// MaxDepth limits how many lists and compounds may be nested inside each
// other. Parsing deeper input fails with ErrTooDeep.
//
// Default: 0, no limit. Recursion then only ends when the input does, so
// untrusted input should set a limit.
func MaxDepth(n int) Option {
	return func(c *config) {
		c.maxDepth = n
	}
}

type discarder interface {
	Discard(n int) (int, error)
}

// Reader is the byte stream the parse engine and handlers consume.
//
// Skipping prefers, in order: seeking forward when the source is an
// io.Seeker, a Discard method (as on *bufio.Reader), and finally draining
// through io.Discard. None of them allocate in proportion to the skipped
// length.
type Reader struct {
	r   io.Reader
	sk  io.Seeker
	dc  discarder
	end int64 // bytes left in a seekable source at construction; -1 if unknown
	off int64

	depth    int
	maxDepth int

	buf [8]byte
}

// NewReader returns a Reader consuming r from its current position.
func NewReader(r io.Reader, opts ...Option) *Reader {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	rd := &Reader{r: r, end: -1, maxDepth: cfg.maxDepth}
	if sk, ok := r.(io.Seeker); ok {
		if size, ok := remaining(sk); ok {
			rd.sk = sk
			rd.end = size
		}
	}
	if rd.sk == nil {
		rd.dc, _ = r.(discarder)
	}
	return rd
}

// remaining measures how many bytes are left in sk and restores its
// position. Pipes and terminals report an error and are not seekable.
func remaining(sk io.Seeker) (int64, bool) {
	cur, err := sk.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, false
	}
	end, err := sk.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, false
	}
	if _, err := sk.Seek(cur, io.SeekStart); err != nil {
		return 0, false
	}
	return end - cur, true
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 { return r.off }

// Depth returns the current list/compound nesting depth.
func (r *Reader) Depth() int { return r.depth }

// ReadFull reads exactly len(p) bytes into p.
func (r *Reader) ReadFull(p []byte) error {
	n, err := io.ReadFull(r.r, p)
	r.off += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return r.fail(ErrUnexpectedEOF, nil)
		}
		return r.fail(ErrRead, err)
	}
	return nil
}

// Discard advances the stream by n bytes without copying them out.
func (r *Reader) Discard(n int64) error {
	if n <= 0 {
		return nil
	}
	switch {
	case r.sk != nil:
		// seeking past the end succeeds on most sources, so check first
		if r.off+n > r.end {
			n = r.end - r.off
			if _, err := r.sk.Seek(n, io.SeekCurrent); err != nil {
				return r.fail(ErrRead, err)
			}
			r.off += n
			return r.fail(ErrUnexpectedEOF, nil)
		}
		if _, err := r.sk.Seek(n, io.SeekCurrent); err != nil {
			return r.fail(ErrRead, err)
		}
		r.off += n
		return nil
	case r.dc != nil:
		for n > 0 {
			step := min(n, math.MaxInt32)
			d, err := r.dc.Discard(int(step))
			r.off += int64(d)
			n -= int64(d)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return r.fail(ErrUnexpectedEOF, nil)
				}
				return r.fail(ErrRead, err)
			}
		}
		return nil
	default:
		d, err := io.CopyN(io.Discard, r.r, n)
		r.off += d
		if err != nil {
			if errors.Is(err, io.EOF) {
				return r.fail(ErrUnexpectedEOF, nil)
			}
			return r.fail(ErrRead, err)
		}
		return nil
	}
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.ReadFull(r.buf[:1]); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

// ReadUint16 reads a big-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.ReadFull(r.buf[:2]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(r.buf[:2]), nil
}

// ReadUint32 reads a big-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.ReadFull(r.buf[:4]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(r.buf[:4]), nil
}

// ReadUint64 reads a big-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.ReadFull(r.buf[:8]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(r.buf[:8]), nil
}

func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadType reads a type byte and checks it names a known tag type.
func (r *Reader) ReadType() (TagType, error) {
	v, err := r.ReadUint8()
	if err != nil {
		return 0, err
	}
	t := TagType(v)
	if !t.Valid() {
		return 0, r.fail(ErrInvalidType, fmt.Errorf("type byte 0x%02x", v))
	}
	return t, nil
}

// ReadStringSize reads the unsigned 16 bit length that prefixes names and
// string payloads.
func (r *Reader) ReadStringSize() (uint16, error) {
	return r.ReadUint16()
}

// ReadSize reads the signed 32 bit count that prefixes lists and arrays.
// Negative counts fail with ErrInvalidSize.
func (r *Reader) ReadSize() (int32, error) {
	v, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, r.fail(ErrInvalidSize, fmt.Errorf("count %d", v))
	}
	return v, nil
}

// ReadListHeader reads the element type and count that open a list
// payload. The element type must be valid even when the count is 0.
func (r *Reader) ReadListHeader() (TagType, int32, error) {
	t, err := r.ReadType()
	if err != nil {
		return 0, 0, err
	}
	n, err := r.ReadSize()
	if err != nil {
		return 0, 0, err
	}
	return t, n, nil
}

func (r *Reader) enter() error {
	if r.maxDepth > 0 && r.depth >= r.maxDepth {
		return r.fail(ErrTooDeep, fmt.Errorf("limit %d", r.maxDepth))
	}
	r.depth++
	return nil
}

func (r *Reader) leave() { r.depth-- }
