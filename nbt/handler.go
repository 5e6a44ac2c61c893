package nbt

// HandlerFunc handles one tag of the type it is registered for.
//
// It is called with the stream positioned just after the tag's name length
// field. It must consume exactly nameLen bytes of name followed by exactly
// one payload of its type, e.g. with Reader.Discard and the Reader.ReadXxx
// methods, or by recursing into ParseCompound / ParseList for containers.
// List elements and network tags are unnamed and arrive with nameLen 0.
//
// ctx is the caller's state, passed unchanged through every call of one
// parse.
type HandlerFunc[T any] func(ctx T, nameLen uint16, r *Reader) error

// Handlers is a dispatch table indexed by TagType. A nil entry means tags of
// that type are skipped; the decision is made per type, so a table can
// handle compounds and skip every scalar. A nil *Handlers skips everything.
// The TagEnd entry is never called.
//
// A table must not be modified while a parse is using it.
type Handlers[T any] [NumTypes]HandlerFunc[T]

// Lookup returns the handler registered for t, or nil if tags of type t are
// to be skipped.
func (h *Handlers[T]) Lookup(t TagType) HandlerFunc[T] {
	if h == nil || t == TagEnd || !t.Valid() {
		return nil
	}
	return h[t]
}

// Skip returns a handler that discards a tag of type t: its name bytes and
// its payload, descending into lists and compounds without dispatching.
func Skip[T any](t TagType) HandlerFunc[T] {
	return func(_ T, nameLen uint16, r *Reader) error {
		return skipTag(t, nameLen, r)
	}
}

// SkipAll returns a table with every entry set to the Skip handler for its
// type. Parsing with it consumes the same bytes as parsing with a nil table.
func SkipAll[T any]() *Handlers[T] {
	h := new(Handlers[T])
	for t := TagByte; t < NumTypes; t++ {
		h[t] = Skip[T](t)
	}
	return h
}
