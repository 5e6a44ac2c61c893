package nbt

import (
	"errors"
	"fmt"
)

// Sentinel errors. Failures produced by this package are *Error values
// that unwrap to one of these, so callers test with errors.Is.
var (
	// ErrRead is a fault reported by the underlying stream.
	ErrRead = errors.New("nbt: read error")

	// ErrWrite is a fault reported by an output sink (see package snbt).
	ErrWrite = errors.New("nbt: write error")

	// ErrUnexpectedEOF means the input ended in the middle of a value.
	ErrUnexpectedEOF = errors.New("nbt: unexpected end of input")

	// ErrUnexpectedEndTag is returned by ParseTag when it reads a TagEnd.
	// ParseCompound consumes it as the end of the compound; anywhere else
	// it is a malformed document.
	ErrUnexpectedEndTag = errors.New("nbt: unexpected end tag")

	// ErrInvalidType means a type byte was >= NumTypes.
	ErrInvalidType = errors.New("nbt: invalid tag type")

	// ErrInvalidSize means a signed list or array count was negative.
	ErrInvalidSize = errors.New("nbt: invalid size")

	// ErrTooDeep means containers nested past the Reader's MaxDepth.
	ErrTooDeep = errors.New("nbt: nesting too deep")
)

// Error describes a failure at a position in the input.
type Error struct {
	Kind   error // one of the sentinel errors above
	Offset int64 // bytes consumed from the stream when the failure occurred
	Err    error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v at offset %d: %v", e.Kind, e.Offset, e.Err)
	}
	return fmt.Sprintf("%v at offset %d", e.Kind, e.Offset)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func (r *Reader) fail(kind, cause error) error {
	return &Error{Kind: kind, Offset: r.off, Err: cause}
}
