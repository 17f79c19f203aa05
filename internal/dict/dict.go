package dict

import "fmt"

// Dict owns a resizable byte buffer holding a sequence of attribute
// records terminated by a single End byte. size is the used prefix
// (buf[size-1] == End); len(buf) is the reserved capacity. Dict is not
// safe for concurrent use -- callers are expected to run single-threaded
// cooperative, not hand a Dict across goroutines.
type Dict struct {
	mgr  *Mgr
	buf  []byte
	size int
}

// Size returns the used prefix length, End byte included.
func (d *Dict) Size() int { return d.size }

// record describes one parsed attribute at a given buffer offset.
type record struct {
	typ         Type
	isShorthand bool
	name        []byte // nil for shorthand records
	headerLen   int    // bytes before the value, from off
	valueOff    int
	valueLen    int // raw stored footprint, not NUL-scanned
	span        int // total on-buffer length of the record (header+value)
}

// parseRecord reads the record starting at buf[off]. ok is false if off is
// out of range, names End, or the buffer is malformed (used only by the
// external-boundary decode path in wire.go; internal callers only ever
// parse buffers this package itself produced, where malformed records are
// a programmer-invariant violation).
func parseRecord(buf []byte, off int) (record, bool) {
	if off < 0 || off >= len(buf) {
		return record{}, false
	}
	t := Type(buf[off])
	if t == TypeEnd {
		return record{}, false
	}
	if t.IsShorthand() {
		_, base, ok := Name(t)
		if !ok {
			return record{}, false
		}
		if n, fixed := FixedSize(base); fixed {
			if off+1+n > len(buf) {
				return record{}, false
			}
			return record{
				typ: t, isShorthand: true,
				headerLen: 1, valueOff: off + 1, valueLen: n,
				span: 1 + n,
			}, true
		}
		// Variable base (Opaque/String): type(1) size_hi(1) size_lo(1) value.
		if off+3 > len(buf) {
			return record{}, false
		}
		size := int(buf[off+1])<<8 | int(buf[off+2])
		if off+3+size > len(buf) {
			return record{}, false
		}
		return record{
			typ: t, isShorthand: true,
			headerLen: 3, valueOff: off + 3, valueLen: size,
			span: 3 + size,
		}, true
	}

	// Long form: type(1) size_hi(1) size_lo(1) name(NUL-terminated) value.
	if !isBaseType(t) {
		return record{}, false
	}
	if off+3 > len(buf) {
		return record{}, false
	}
	size := int(buf[off+1])<<8 | int(buf[off+2])
	nameStart := off + 3
	if nameStart+size > len(buf) {
		return record{}, false
	}
	nulAt := -1
	for i := 0; i < size; i++ {
		if buf[nameStart+i] == 0 {
			nulAt = i
			break
		}
	}
	if nulAt < 0 {
		return record{}, false
	}
	name := buf[nameStart : nameStart+nulAt]
	valueLen := size - nulAt - 1
	if valueLen < 0 {
		return record{}, false
	}
	return record{
		typ: t, isShorthand: false,
		name:      name,
		headerLen: 3 + nulAt + 1,
		valueOff:  nameStart + nulAt + 1,
		valueLen:  valueLen,
		span:      3 + size,
	}, true
}

func isBaseType(t Type) bool {
	switch t {
	case TypeOpaque, TypeString, TypeVoid, TypeBool, TypeSmallUnsigned,
		TypeSmallInt, TypeUnsigned, TypeInt, TypeRational, TypeFloat:
		return true
	}
	return false
}

// locate scans from offset 0 for a record matching (name, typ): for
// shorthand typ, name is ignored; for long-form typ, name must match
// exactly. Returns the record and its starting offset.
func (d *Dict) locate(name string, typ Type) (record, int, bool) {
	off := 0
	for off < d.size-1 {
		rec, ok := parseRecord(d.buf, off)
		if !ok {
			panic(fmt.Sprintf("dict: corrupt buffer at offset %d", off))
		}
		if rec.typ == typ && (rec.isShorthand || string(rec.name) == name) {
			return rec, off, true
		}
		off += rec.span
	}
	return record{}, 0, false
}

// Iterate walks the dictionary's records one at a time: pass name="" and
// typ=TypeEnd to start; pass back the previously returned (name, typ) to
// advance. Returns typ=TypeEnd once iteration is exhausted.
func (d *Dict) Iterate(name string, typ Type) (nextName string, nextType Type) {
	var off int
	if typ == TypeEnd {
		off = 0
	} else {
		rec, start, ok := d.locate(name, typ)
		if !ok {
			return "", TypeEnd
		}
		off = start + rec.span
	}
	if off >= d.size-1 {
		return "", TypeEnd
	}
	rec, ok := parseRecord(d.buf, off)
	if !ok {
		panic(fmt.Sprintf("dict: corrupt buffer at offset %d", off))
	}
	if rec.isShorthand {
		return "", rec.typ
	}
	return string(rec.name), rec.typ
}

// Get locates the record matching (name, typ) -- name is ignored when typ
// is a shorthand code -- and returns its value bytes. The returned slice
// aliases the dictionary's internal buffer and is only valid until the
// next mutating call on d. For TypeString records, the reported length is
// the NUL-terminated string length within the record's stored footprint
// (see Set's shrink-in-place fast path), not necessarily the full
// footprint.
func (d *Dict) Get(name string, typ Type) ([]byte, bool) {
	rec, _, ok := d.locate(name, typ)
	if !ok {
		return nil, false
	}
	if rec.typ == TypeString || (rec.isShorthand && shorthandBaseIs(rec.typ, TypeString)) {
		return stringValue(d.buf, rec), true
	}
	return d.buf[rec.valueOff : rec.valueOff+rec.valueLen], true
}

func shorthandBaseIs(code Type, base Type) bool {
	_, b, ok := Name(code)
	return ok && b == base
}

// stringValue returns the logical (possibly shrunk) content of a STRING
// record: bytes up to and including the first NUL within the stored
// footprint, or the whole footprint if no NUL is present.
func stringValue(buf []byte, rec record) []byte {
	region := buf[rec.valueOff : rec.valueOff+rec.valueLen]
	for i, b := range region {
		if b == 0 {
			return region[:i+1]
		}
	}
	return region
}

// Delete removes the record matching (name, typ), shifting the remainder
// of the buffer (including the terminating End) left over it. Reports
// whether a record existed.
func (d *Dict) Delete(name string, typ Type) bool {
	rec, off, ok := d.locate(name, typ)
	if !ok {
		return false
	}
	tailStart := off + rec.span
	n := copy(d.buf[off:], d.buf[tailStart:d.size])
	d.size = off + n
	return true
}

// Set writes or overwrites the record matching (name, typ) idempotently.
// valueLen must equal the base type's fixed size when typ (or typ's
// shorthand base) has one; that mismatch is a programmer error, not a
// recoverable failure. On success, Set returns a writable slice of
// exactly valueLen bytes for the caller to fill; the slice is only valid
// until the next mutating call on d. On allocator failure, Set returns
// (nil, false) leaving d unchanged.
func (d *Dict) Set(name string, typ Type, valueLen int) ([]byte, bool) {
	base := typ
	isShort := typ.IsShorthand()
	if isShort {
		n, b, ok := Name(typ)
		if !ok {
			panic(fmt.Sprintf("dict: Set: invalid shorthand code %d", typ))
		}
		_ = n
		base = b
		name = ""
	} else if !isBaseType(typ) {
		panic(fmt.Sprintf("dict: Set: invalid base type %d", typ))
	}
	if fixed, ok := FixedSize(base); ok && fixed != valueLen {
		panic(fmt.Sprintf("dict: Set: %v requires value length %d, got %d", typ, fixed, valueLen))
	}

	rec, off, found := d.locate(name, typ)
	if found && base == TypeString && rec.valueLen > valueLen {
		for i := rec.valueOff; i < rec.valueOff+rec.valueLen; i++ {
			d.buf[i] = 0
		}
		return d.buf[rec.valueOff : rec.valueOff+valueLen], true
	}
	if found && rec.valueLen == valueLen {
		return d.buf[rec.valueOff : rec.valueOff+valueLen], true
	}
	if found {
		// Grow before deleting, so an allocator failure leaves d unchanged.
		headerLen := 1
		if !isShort {
			headerLen = 3 + len(name) + 1
		} else if _, fixed := FixedSize(base); !fixed {
			headerLen = 3
		}
		if needed := d.size - rec.span + headerLen + valueLen; needed > len(d.buf) {
			newBuf, err := d.mgr.allocator.Alloc(needed + d.mgr.extraSize)
			if err != nil {
				return nil, false
			}
			copy(newBuf, d.buf[:d.size])
			d.buf = newBuf
		}
		d.Delete(name, typ)
	}
	return d.appendRecord(name, typ, isShort, valueLen)
}

// appendRecord writes a brand new record just before the terminating End
// byte, growing the buffer through the manager's allocator if necessary.
func (d *Dict) appendRecord(name string, typ Type, isShort bool, valueLen int) ([]byte, bool) {
	off := d.size - 1 // overwrite the old End

	var headerLen int
	if isShort {
		if _, fixed := fixedSizeForShorthand(typ); fixed {
			headerLen = 1
		} else {
			headerLen = 3
		}
	} else {
		headerLen = 3 + len(name) + 1
	}
	span := headerLen + valueLen
	needed := off + span + 1 // +1 for the new End

	if needed > len(d.buf) {
		newCap := needed + d.mgr.extraSize
		newBuf, err := d.mgr.allocator.Alloc(newCap)
		if err != nil {
			return nil, false
		}
		copy(newBuf, d.buf[:off])
		d.buf = newBuf
	}

	p := off
	if isShort {
		d.buf[p] = byte(typ)
		p++
		if _, fixed := fixedSizeForShorthand(typ); !fixed {
			d.buf[p] = byte(valueLen >> 8)
			d.buf[p+1] = byte(valueLen)
			p += 2
		}
	} else {
		d.buf[p] = byte(typ)
		size := len(name) + 1 + valueLen
		d.buf[p+1] = byte(size >> 8)
		d.buf[p+2] = byte(size)
		p += 3
		p += copy(d.buf[p:], name)
		d.buf[p] = 0
		p++
	}
	valueOff := p
	d.size = off + span + 1
	d.buf[d.size-1] = byte(TypeEnd)
	return d.buf[valueOff : valueOff+valueLen], true
}

func fixedSizeForShorthand(code Type) (int, bool) {
	_, base, ok := Name(code)
	if !ok {
		return 0, false
	}
	return FixedSize(base)
}
