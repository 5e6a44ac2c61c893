// Package compr undoes the compression NBT usually travels in: gzip for
// files on disk, zlib for region chunks and some network payloads, and
// zstd for newer tooling. The nbt package itself only reads raw tag
// streams.
package compr

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compression names a framing around a raw NBT stream.
type Compression uint8

const (
	Auto Compression = iota
	None
	GZip
	ZLib
	Zstd
)

var names = [...]string{
	Auto: "auto",
	None: "none",
	GZip: "gzip",
	ZLib: "zlib",
	Zstd: "zstd",
}

func (c Compression) String() string {
	if int(c) < len(names) {
		return names[c]
	}
	return fmt.Sprintf("Compression(%d)", c)
}

// ErrUnknown is returned by ParseCompression for unrecognized names.
var ErrUnknown = errors.New("compr: unknown compression")

// ParseCompression maps a name as printed by String back to its value.
// The empty string means Auto.
func ParseCompression(s string) (Compression, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Auto, nil
	}
	for c, name := range names {
		if s == name {
			return Compression(c), nil
		}
	}
	return Auto, fmt.Errorf("%w: %q", ErrUnknown, s)
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Detect peeks at the start of br and guesses its compression. None of the
// magic numbers is a valid NBT type byte, so raw input is never mistaken
// for compressed input. Empty input is None.
func Detect(br *bufio.Reader) (Compression, error) {
	p, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return None, err
	}
	switch {
	case len(p) >= 2 && p[0] == 0x1f && p[1] == 0x8b:
		return GZip, nil
	case len(p) >= 2 && p[0] == 0x78 && (uint16(p[0])<<8|uint16(p[1]))%31 == 0:
		// deflate with a 32K window, FLG check bits per RFC 1950
		return ZLib, nil
	case len(p) == 4 && string(p) == string(zstdMagic):
		return Zstd, nil
	}
	return None, nil
}

// Reader yields decompressed bytes. It embeds a *bufio.Reader, so nbt
// readers built on it skip with Discard.
type Reader struct {
	*bufio.Reader
	// Compression is the framing in effect, resolved if Auto was asked for.
	Compression Compression
	closer      io.Closer
}

// Close releases the decompressor. It does not close the source.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// NewReader returns a Reader decompressing src according to c. With Auto
// the framing is detected from the first bytes of src.
func NewReader(src io.Reader, c Compression) (*Reader, error) {
	br, ok := src.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(src)
	}
	if c == Auto {
		var err error
		if c, err = Detect(br); err != nil {
			return nil, err
		}
	}

	r := &Reader{Compression: c}
	switch c {
	case None:
		r.Reader = br
		return r, nil
	case GZip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		r.closer = zr
		r.Reader = bufio.NewReader(zr)
	case ZLib:
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		r.closer = zr
		r.Reader = bufio.NewReader(zr)
	case Zstd:
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		rc := zr.IOReadCloser()
		r.closer = rc
		r.Reader = bufio.NewReader(rc)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknown, c)
	}
	return r, nil
}
