// Package snbt renders binary NBT as SNBT, its human-readable text form,
// without building the tree in memory.
//
// The Encoder is itself a set of nbt handlers: each value is printed as the
// parser reaches it and containers recurse through the same table.
//
//	{"a":1B, "b":[1, 2, 3], "c":"x\"y"}
//
// Scalars carry a type suffix (B, S, L, F; none for int and double),
// container elements are separated by ", " and array elements by ",",
// and strings escape only backslash and the active quote character.
package snbt

import "io"

// Encode renders the named tag read from r to w.
func Encode(w io.Writer, r io.Reader, opts ...Option) error {
	return NewEncoder(w, opts...).Encode(r)
}

// EncodeNetwork renders the unnamed, network framed tag read from r to w.
func EncodeNetwork(w io.Writer, r io.Reader, opts ...Option) error {
	return NewEncoder(w, opts...).EncodeNetwork(r)
}
