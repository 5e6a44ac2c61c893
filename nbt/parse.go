package nbt

// ParseTag reads one named tag (type, name length, name, payload) and
// dispatches it to h. Reading a TagEnd instead fails with
// ErrUnexpectedEndTag. Errors returned by handlers are passed through
// unchanged.
func ParseTag[T any](r *Reader, h *Handlers[T], ctx T) error {
	end, err := parseTag(r, h, ctx)
	if end {
		return r.fail(ErrUnexpectedEndTag, nil)
	}
	return err
}

// ParseNetworkTag is ParseTag for the network framing, where the outermost
// tag carries no name: the type byte is followed directly by the payload
// and the handler is called with nameLen 0. Nested tags are named as usual.
func ParseNetworkTag[T any](r *Reader, h *Handlers[T], ctx T) error {
	t, err := r.ReadType()
	if err != nil {
		return err
	}
	if t == TagEnd {
		return r.fail(ErrUnexpectedEndTag, nil)
	}
	if fn := h.Lookup(t); fn != nil {
		return fn(ctx, 0, r)
	}
	return skipPayload(t, r)
}

// ParseCompound reads named tags until the compound's TagEnd and dispatches
// each to h. An immediate TagEnd is an empty compound.
func ParseCompound[T any](r *Reader, h *Handlers[T], ctx T) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.leave()

	for {
		end, err := parseTag(r, h, ctx)
		if err != nil {
			return err
		}
		if end {
			return nil
		}
	}
}

// ParseList dispatches n unnamed payloads of type t to h, as found after a
// list header (see Reader.ReadListHeader). The handler is looked up once
// for the whole list.
func ParseList[T any](r *Reader, t TagType, n int32, h *Handlers[T], ctx T) error {
	if !t.Valid() {
		return r.fail(ErrInvalidType, nil)
	}
	if n < 0 {
		return r.fail(ErrInvalidSize, nil)
	}
	if err := r.enter(); err != nil {
		return err
	}
	defer r.leave()

	fn := h.Lookup(t)
	if fn == nil {
		return skipElems(t, n, r)
	}
	for i := int32(0); i < n; i++ {
		if err := fn(ctx, 0, r); err != nil {
			return err
		}
	}
	return nil
}

// parseTag reports end when it reads a TagEnd instead of a tag. Only the
// loop in ParseCompound treats that as success, so an ErrUnexpectedEndTag
// coming out of a handler still propagates past it.
func parseTag[T any](r *Reader, h *Handlers[T], ctx T) (end bool, err error) {
	t, err := r.ReadType()
	if err != nil {
		return false, err
	}
	if t == TagEnd {
		return true, nil
	}
	nameLen, err := r.ReadStringSize()
	if err != nil {
		return false, err
	}
	if fn := h.Lookup(t); fn != nil {
		return false, fn(ctx, nameLen, r)
	}
	return false, skipTag(t, nameLen, r)
}
