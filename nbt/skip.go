package nbt

// The skip path mirrors the parse path's framing exactly but never copies
// a payload: fixed-width values and the bodies of strings and arrays are
// passed over with Reader.Discard, and containers are walked through
// ParseList / ParseCompound with a nil table so nothing is dispatched.

type none struct{}

// skipTag discards the name and payload of a tag whose type and name length
// have already been read.
func skipTag(t TagType, nameLen uint16, r *Reader) error {
	if err := r.Discard(int64(nameLen)); err != nil {
		return err
	}
	return skipPayload(t, r)
}

func skipPayload(t TagType, r *Reader) error {
	switch t {
	case TagEnd:
		return nil
	case TagByte, TagShort, TagInt, TagLong, TagFloat, TagDouble:
		return r.Discard(t.width())
	case TagString:
		n, err := r.ReadStringSize()
		if err != nil {
			return err
		}
		return r.Discard(int64(n))
	case TagByteArray, TagIntArray, TagLongArray:
		n, err := r.ReadSize()
		if err != nil {
			return err
		}
		return r.Discard(int64(n) * t.width())
	case TagList:
		et, n, err := r.ReadListHeader()
		if err != nil {
			return err
		}
		return ParseList[none](r, et, n, nil, none{})
	case TagCompound:
		return ParseCompound[none](r, nil, none{})
	}
	return r.fail(ErrInvalidType, nil)
}

// skipElems discards n list elements of type t. Elements of type TagEnd
// have no payload.
func skipElems(t TagType, n int32, r *Reader) error {
	switch t {
	case TagEnd, TagByte, TagShort, TagInt, TagLong, TagFloat, TagDouble:
		return r.Discard(int64(n) * t.width())
	}
	for i := int32(0); i < n; i++ {
		if err := skipPayload(t, r); err != nil {
			return err
		}
	}
	return nil
}
