package nbt_test

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmoiron/nbts/internal/nbttest"
	"github.com/jmoiron/nbts/nbt"
)

// onlyReader hides Seek and Discard so the drain path is exercised.
type onlyReader struct{ io.Reader }

// sources returns one constructor per skip strategy of nbt.Reader.
func sources(doc []byte) map[string]func() io.Reader {
	return map[string]func() io.Reader{
		"seek":    func() io.Reader { return bytes.NewReader(doc) },
		"discard": func() io.Reader { return bufio.NewReaderSize(bytes.NewReader(doc), 16) },
		"drain":   func() io.Reader { return onlyReader{bytes.NewReader(doc)} },
	}
}

func minimalTags() map[nbt.TagType][]byte {
	b := nbttest.New
	return map[nbt.TagType][]byte{
		nbt.TagByte:      b().Tag(nbt.TagByte, "").Byte(1).Bytes(),
		nbt.TagShort:     b().Tag(nbt.TagShort, "").Short(1).Bytes(),
		nbt.TagInt:       b().Tag(nbt.TagInt, "").Int(1).Bytes(),
		nbt.TagLong:      b().Tag(nbt.TagLong, "").Long(1).Bytes(),
		nbt.TagFloat:     b().Tag(nbt.TagFloat, "").Float(1).Bytes(),
		nbt.TagDouble:    b().Tag(nbt.TagDouble, "").Double(1).Bytes(),
		nbt.TagByteArray: b().Tag(nbt.TagByteArray, "ba").ByteArray(1, 2, 3).Bytes(),
		nbt.TagString:    b().Tag(nbt.TagString, "s").Str("hello").Bytes(),
		nbt.TagList:      b().Tag(nbt.TagList, "l").ListHeader(nbt.TagInt, 2).Int(1).Int(2).Bytes(),
		nbt.TagCompound:  b().Tag(nbt.TagCompound, "c").End().Bytes(),
		nbt.TagIntArray:  b().Tag(nbt.TagIntArray, "").IntArray(1, 2).Bytes(),
		nbt.TagLongArray: b().Tag(nbt.TagLongArray, "").LongArray(1).Bytes(),
	}
}

func TestSkipConsumesExactly(t *testing.T) {
	wantLen := map[nbt.TagType]int{
		nbt.TagByte: 4, nbt.TagShort: 5, nbt.TagInt: 7, nbt.TagLong: 11,
		nbt.TagFloat: 7, nbt.TagDouble: 11, nbt.TagByteArray: 12,
		nbt.TagString: 11, nbt.TagList: 17, nbt.TagCompound: 5,
		nbt.TagIntArray: 15, nbt.TagLongArray: 15,
	}
	for tt, doc := range minimalTags() {
		require.Len(t, doc, wantLen[tt], "%v encoding", tt)
		// a trailing marker must be left unread
		doc = append(doc, 0xAA)
		for name, src := range sources(doc) {
			t.Run(fmt.Sprintf("%v/%s", tt, name), func(t *testing.T) {
				r := nbt.NewReader(src())
				require.NoError(t, nbt.ParseTag[any](r, nil, nil))
				assert.EqualValues(t, wantLen[tt], r.Offset())
				b, err := r.ReadUint8()
				require.NoError(t, err)
				assert.Equal(t, byte(0xAA), b)

				r = nbt.NewReader(src())
				require.NoError(t, nbt.ParseTag(r, nbt.SkipAll[any](), nil))
				assert.EqualValues(t, wantLen[tt], r.Offset())
			})
		}
	}

	// TagEnd is only meaningful as the close of a compound
	r := nbt.NewReader(bytes.NewReader([]byte{0}))
	require.NoError(t, nbt.ParseCompound[any](r, nil, nil))
	assert.EqualValues(t, 1, r.Offset())
}

func TestInvalidType(t *testing.T) {
	for v := 13; v < 256; v++ {
		doc := []byte{byte(v), 0, 0, 1, 2, 3, 4}
		err := nbt.ParseTag[any](nbt.NewReader(bytes.NewReader(doc)), nil, nil)
		require.ErrorIs(t, err, nbt.ErrInvalidType, "type byte %d", v)
	}

	t.Run("nested", func(t *testing.T) {
		doc := nbttest.New().Tag(nbt.TagCompound, "").Raw(13).Bytes()
		err := nbt.ParseTag[any](nbt.NewReader(bytes.NewReader(doc)), nil, nil)
		assert.ErrorIs(t, err, nbt.ErrInvalidType)
	})

	t.Run("empty list", func(t *testing.T) {
		doc := nbttest.New().Tag(nbt.TagList, "").Raw(13).Int(0).Bytes()
		err := nbt.ParseTag[any](nbt.NewReader(bytes.NewReader(doc)), nil, nil)
		assert.ErrorIs(t, err, nbt.ErrInvalidType)
	})

	t.Run("network", func(t *testing.T) {
		err := nbt.ParseNetworkTag[any](nbt.NewReader(bytes.NewReader([]byte{200})), nil, nil)
		assert.ErrorIs(t, err, nbt.ErrInvalidType)
	})
}

func TestNegativeSize(t *testing.T) {
	const neg = int32(-1 << 31)
	docs := map[string][]byte{
		"list":       nbttest.New().Tag(nbt.TagList, "").ListHeader(nbt.TagByte, neg).Bytes(),
		"list -1":    nbttest.New().Tag(nbt.TagList, "").ListHeader(nbt.TagCompound, -1).Bytes(),
		"byte array": nbttest.New().Tag(nbt.TagByteArray, "").Int(neg).Bytes(),
		"int array":  nbttest.New().Tag(nbt.TagIntArray, "").Int(-5).Bytes(),
		"long array": nbttest.New().Tag(nbt.TagLongArray, "").Int(neg | 7).Bytes(),
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			err := nbt.ParseTag[any](nbt.NewReader(bytes.NewReader(doc)), nil, nil)
			assert.ErrorIs(t, err, nbt.ErrInvalidSize)
		})
	}

	t.Run("handled list", func(t *testing.T) {
		var h nbt.Handlers[any]
		h[nbt.TagList] = func(_ any, nameLen uint16, r *nbt.Reader) error {
			if err := r.Discard(int64(nameLen)); err != nil {
				return err
			}
			et, n, err := r.ReadListHeader()
			if err != nil {
				return err
			}
			return nbt.ParseList(r, et, n, &h, nil)
		}
		err := nbt.ParseTag(nbt.NewReader(bytes.NewReader(docs["list"])), &h, nil)
		assert.ErrorIs(t, err, nbt.ErrInvalidSize)
	})
}

// counter is a handler context that counts calls per type.
type counter map[nbt.TagType]int

func countingHandlers(types ...nbt.TagType) *nbt.Handlers[counter] {
	h := new(nbt.Handlers[counter])
	for _, tt := range types {
		skip := nbt.Skip[counter](tt)
		h[tt] = func(c counter, nameLen uint16, r *nbt.Reader) error {
			c[tt]++
			return skip(c, nameLen, r)
		}
	}
	return h
}

func TestEmptyCompound(t *testing.T) {
	c := counter{}
	h := countingHandlers(nbt.TagByte, nbt.TagCompound, nbt.TagString)
	r := nbt.NewReader(bytes.NewReader([]byte{0}))
	require.NoError(t, nbt.ParseCompound(r, h, c))
	assert.Empty(t, c)
	assert.EqualValues(t, 1, r.Offset())
}

func TestPerTypeFallback(t *testing.T) {
	doc := nbttest.New().
		Tag(nbt.TagCompound, "root").
		Tag(nbt.TagByte, "b").Byte(1).
		Tag(nbt.TagString, "s").Str("skipped").
		Tag(nbt.TagList, "l").ListHeader(nbt.TagCompound, 2).
		Tag(nbt.TagInt, "x").Int(1).End().
		End().
		Tag(nbt.TagCompound, "inner").
		Tag(nbt.TagLong, "n").Long(9).
		End().
		End().
		Bytes()

	c := counter{}
	h := new(nbt.Handlers[counter])
	h[nbt.TagCompound] = func(c counter, nameLen uint16, r *nbt.Reader) error {
		c[nbt.TagCompound]++
		if err := r.Discard(int64(nameLen)); err != nil {
			return err
		}
		return nbt.ParseCompound(r, h, c)
	}
	h[nbt.TagLong] = func(c counter, nameLen uint16, r *nbt.Reader) error {
		c[nbt.TagLong]++
		if err := r.Discard(int64(nameLen)); err != nil {
			return err
		}
		v, err := r.ReadInt64()
		if err != nil {
			return err
		}
		if v != 9 {
			return fmt.Errorf("long: got %d want 9", v)
		}
		return nil
	}

	r := nbt.NewReader(bytes.NewReader(doc))
	require.NoError(t, nbt.ParseTag(r, h, c))
	// the list's compounds are skipped because the list type has no handler
	assert.Equal(t, counter{nbt.TagCompound: 2, nbt.TagLong: 1}, c)
	assert.EqualValues(t, len(doc), r.Offset())
}

func TestParseList(t *testing.T) {
	var (
		names []uint16
		vals  []int32
	)
	h := new(nbt.Handlers[any])
	h[nbt.TagInt] = func(_ any, nameLen uint16, r *nbt.Reader) error {
		names = append(names, nameLen)
		v, err := r.ReadInt32()
		vals = append(vals, v)
		return err
	}

	doc := nbttest.New().Int(7).Int(-8).Int(1 << 30).Bytes()
	r := nbt.NewReader(bytes.NewReader(doc))
	require.NoError(t, nbt.ParseList(r, nbt.TagInt, 3, h, nil))
	assert.Equal(t, []uint16{0, 0, 0}, names)
	assert.Equal(t, []int32{7, -8, 1 << 30}, vals)

	t.Run("empty", func(t *testing.T) {
		called := false
		h := new(nbt.Handlers[any])
		h[nbt.TagString] = func(any, uint16, *nbt.Reader) error {
			called = true
			return nil
		}
		r := nbt.NewReader(bytes.NewReader(nil))
		require.NoError(t, nbt.ParseList(r, nbt.TagString, 0, h, nil))
		assert.False(t, called)
		assert.Zero(t, r.Offset())
	})

	t.Run("list of end", func(t *testing.T) {
		r := nbt.NewReader(bytes.NewReader(nil))
		require.NoError(t, nbt.ParseList[any](r, nbt.TagEnd, 4, nil, nil))
		assert.Zero(t, r.Offset())
	})
}

func TestHandlerErrorPropagates(t *testing.T) {
	errAbort := errors.New("abort")
	h := new(nbt.Handlers[any])
	h[nbt.TagShort] = func(any, uint16, *nbt.Reader) error { return errAbort }

	doc := nbttest.New().
		Tag(nbt.TagCompound, "").
		Tag(nbt.TagList, "").ListHeader(nbt.TagCompound, 1).
		Tag(nbt.TagShort, "s").Short(1).
		End().
		End().
		Bytes()

	// the list and compounds are skipped, but Short has a handler only at
	// top level; skipping never dispatches
	err := nbt.ParseTag(nbt.NewReader(bytes.NewReader(doc)), h, nil)
	require.NoError(t, err)

	h[nbt.TagCompound] = func(ctx any, nameLen uint16, r *nbt.Reader) error {
		if err := r.Discard(int64(nameLen)); err != nil {
			return err
		}
		return nbt.ParseCompound(r, h, ctx)
	}
	h[nbt.TagList] = func(ctx any, nameLen uint16, r *nbt.Reader) error {
		if err := r.Discard(int64(nameLen)); err != nil {
			return err
		}
		et, n, err := r.ReadListHeader()
		if err != nil {
			return err
		}
		return nbt.ParseList(r, et, n, h, ctx)
	}
	err = nbt.ParseTag(nbt.NewReader(bytes.NewReader(doc)), h, nil)
	assert.True(t, err == errAbort, "handler error must not be wrapped, got %v", err)
}

func TestEndTagCaughtOnce(t *testing.T) {
	r := nbt.NewReader(bytes.NewReader([]byte{0}))
	assert.ErrorIs(t, nbt.ParseTag[any](r, nil, nil), nbt.ErrUnexpectedEndTag)

	// A compound handler that reads its body with ParseTag sees the end tag
	// as an error. Returning it must fail the enclosing compound too rather
	// than ending it.
	h := new(nbt.Handlers[any])
	h[nbt.TagCompound] = func(ctx any, nameLen uint16, r *nbt.Reader) error {
		if err := r.Discard(int64(nameLen)); err != nil {
			return err
		}
		return nbt.ParseTag(r, h, ctx)
	}
	doc := nbttest.New().Tag(nbt.TagCompound, "c").End().Tag(nbt.TagByte, "b").Byte(1).End().Bytes()
	err := nbt.ParseCompound(nbt.NewReader(bytes.NewReader(doc)), h, nil)
	assert.ErrorIs(t, err, nbt.ErrUnexpectedEndTag)
}

func nested(depth int) []byte {
	b := nbttest.New()
	for i := 0; i < depth; i++ {
		b.Tag(nbt.TagCompound, "")
	}
	b.Tag(nbt.TagInt, "x").Int(42)
	for i := 0; i < depth; i++ {
		b.End()
	}
	return b.Bytes()
}

func TestDeepNesting(t *testing.T) {
	doc := nested(1000)
	for name, src := range sources(doc) {
		t.Run(name, func(t *testing.T) {
			r := nbt.NewReader(src())
			require.NoError(t, nbt.ParseTag[any](r, nil, nil))
			assert.EqualValues(t, len(doc), r.Offset())
			assert.Zero(t, r.Depth())
		})
	}

	t.Run("allocations", func(t *testing.T) {
		br := bytes.NewReader(doc)
		allocs := testing.AllocsPerRun(10, func() {
			br.Reset(doc)
			if err := nbt.ParseTag[any](nbt.NewReader(br), nil, nil); err != nil {
				t.Fatal(err)
			}
		})
		assert.Less(t, allocs, float64(10), "skipping must not allocate per level")
	})

	t.Run("limit", func(t *testing.T) {
		r := nbt.NewReader(bytes.NewReader(doc), nbt.MaxDepth(512))
		err := nbt.ParseTag[any](r, nil, nil)
		assert.ErrorIs(t, err, nbt.ErrTooDeep)

		r = nbt.NewReader(bytes.NewReader(nested(512)), nbt.MaxDepth(512))
		assert.NoError(t, nbt.ParseTag[any](r, nil, nil))
	})
}

func TestNetworkTag(t *testing.T) {
	type seen struct {
		nameLen uint16
		value   string
	}
	h := new(nbt.Handlers[*seen])
	h[nbt.TagString] = func(s *seen, nameLen uint16, r *nbt.Reader) error {
		s.nameLen = nameLen
		if err := r.Discard(int64(nameLen)); err != nil {
			return err
		}
		n, err := r.ReadStringSize()
		if err != nil {
			return err
		}
		p := make([]byte, n)
		if err := r.ReadFull(p); err != nil {
			return err
		}
		s.value = string(p)
		return nil
	}

	var named, network seen
	doc := nbttest.New().Tag(nbt.TagString, "").Str("payload").Bytes()
	require.NoError(t, nbt.ParseTag(nbt.NewReader(bytes.NewReader(doc)), h, &named))

	doc = nbttest.New().Type(nbt.TagString).Str("payload").Bytes()
	r := nbt.NewReader(bytes.NewReader(doc))
	require.NoError(t, nbt.ParseNetworkTag(r, h, &network))
	assert.Equal(t, named, network)
	assert.EqualValues(t, len(doc), r.Offset())

	t.Run("skipped", func(t *testing.T) {
		doc := nbttest.New().Type(nbt.TagCompound).Tag(nbt.TagString, "k").Str("v").End().Bytes()
		r := nbt.NewReader(bytes.NewReader(doc))
		require.NoError(t, nbt.ParseNetworkTag[any](r, nil, nil))
		assert.EqualValues(t, len(doc), r.Offset())
	})

	t.Run("end", func(t *testing.T) {
		r := nbt.NewReader(bytes.NewReader([]byte{0}))
		assert.ErrorIs(t, nbt.ParseNetworkTag[any](r, nil, nil), nbt.ErrUnexpectedEndTag)
	})
}

func TestTruncatedInput(t *testing.T) {
	docs := map[string][]byte{
		"string":  nbttest.New().Tag(nbt.TagString, "").Raw(0, 100).Raw('a', 'b', 'c').Bytes(),
		"name":    nbttest.New().Type(nbt.TagInt).Raw(0, 9).Raw('n').Bytes(),
		"array":   nbttest.New().Tag(nbt.TagLongArray, "").Int(3).Long(1).Bytes(),
		"list":    nbttest.New().Tag(nbt.TagList, "").ListHeader(nbt.TagShort, 4).Short(1).Bytes(),
		"header":  nbttest.New().Tag(nbt.TagList, "").Raw(byte(nbt.TagInt), 0).Bytes(),
		"no end":  nbttest.New().Tag(nbt.TagCompound, "").Tag(nbt.TagByte, "").Byte(1).Bytes(),
		"no type": nil,
	}
	for name, doc := range docs {
		for kind, src := range sources(doc) {
			t.Run(name+"/"+kind, func(t *testing.T) {
				err := nbt.ParseTag[any](nbt.NewReader(src()), nil, nil)
				assert.ErrorIs(t, err, nbt.ErrUnexpectedEOF)
			})
		}
	}
}

func TestTagTypeString(t *testing.T) {
	assert.Equal(t, "TAG_Compound", nbt.TagCompound.String())
	assert.Equal(t, "TAG_Long_Array", nbt.TagLongArray.String())
	assert.Equal(t, "Unknown (0x0d)", nbt.TagType(13).String())
	assert.True(t, nbt.TagLongArray.Valid())
	assert.False(t, nbt.TagType(13).Valid())
}
