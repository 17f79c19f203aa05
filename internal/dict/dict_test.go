package dict

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func newTestMgr() *Mgr {
	return NewMgr(4, nil, 0, 0)
}

func setUnsigned(t *testing.T, d *Dict, name string, typ Type, v uint64) {
	t.Helper()
	val, ok := d.Set(name, typ, 8)
	if !ok {
		t.Fatalf("Set(%s) failed", name)
	}
	binary.BigEndian.PutUint64(val, v)
}

func getUnsigned(t *testing.T, d *Dict, name string, typ Type) uint64 {
	t.Helper()
	val, ok := d.Get(name, typ)
	if !ok {
		t.Fatalf("Get(%s) not found", name)
	}
	if len(val) != 8 {
		t.Fatalf("Get(%s) length = %d, want 8", name, len(val))
	}
	return binary.BigEndian.Uint64(val)
}

// Scenario A: shorthand set/get/delete.
func TestScenarioA_ShorthandSetGetDelete(t *testing.T) {
	mgr := newTestMgr()
	d, ok := mgr.Alloc(0)
	if !ok {
		t.Fatal("Alloc failed")
	}

	code, _, ok := Shorthand("k.pts")
	if !ok {
		t.Fatal("k.pts not found in Shorts")
	}
	setUnsigned(t, d, "", code, 9000)

	if got := getUnsigned(t, d, "", code); got != 9000 {
		t.Fatalf("got %d, want 9000", got)
	}

	if !d.Delete("", code) {
		t.Fatal("Delete returned false")
	}
	if _, ok := d.Get("", code); ok {
		t.Fatal("Get found a value after Delete")
	}
	if d.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", d.Size())
	}
}

// Scenario B: string shrink in place.
func TestScenarioB_StringShrink(t *testing.T) {
	mgr := newTestMgr()
	d, _ := mgr.Alloc(0)

	code, _, ok := Shorthand("f.def")
	if !ok {
		t.Fatal("f.def not found in Shorts")
	}

	val, ok := d.Set("", code, 6)
	if !ok {
		t.Fatal("Set(6) failed")
	}
	copy(val, "block\x00")

	val, ok = d.Set("", code, 4)
	if !ok {
		t.Fatal("Set(4) failed")
	}
	copy(val, "blo\x00")

	got, ok := d.Get("", code)
	if !ok {
		t.Fatal("Get not found")
	}
	if !bytes.Equal(got, []byte("blo\x00")) {
		t.Fatalf("Get = %q, want %q", got, "blo\x00")
	}

	rec, off, ok := d.locate("", code)
	if !ok {
		t.Fatal("locate failed")
	}
	tail := d.buf[rec.valueOff+4 : rec.valueOff+rec.valueLen]
	for i, b := range tail {
		if b != 0 {
			t.Fatalf("tail byte %d = %d, want 0", i, b)
		}
	}
	if rec.valueLen != 6 {
		t.Fatalf("footprint shrank to %d, want unchanged 6", rec.valueLen)
	}
	_ = off
}

// Scenario C: dup equality.
func TestScenarioC_DupEquality(t *testing.T) {
	mgr := newTestMgr()
	d, _ := mgr.Alloc(0)

	hsizeCode, _, _ := Shorthand("p.hsize")
	vsizeCode, _, _ := Shorthand("p.vsize")
	aspectCode, _, _ := Shorthand("p.aspect")

	setUnsigned(t, d, "", hsizeCode, 1920)
	setUnsigned(t, d, "", vsizeCode, 1080)
	val, ok := d.Set("", aspectCode, 16)
	if !ok {
		t.Fatal("Set aspect failed")
	}
	binary.BigEndian.PutUint64(val[:8], 16)
	binary.BigEndian.PutUint64(val[8:], 9)

	dup, ok := Dup(d)
	if !ok {
		t.Fatal("Dup failed")
	}

	var origSeq, dupSeq []Type
	name, typ := "", TypeEnd
	for {
		name, typ = d.Iterate(name, typ)
		if typ == TypeEnd {
			break
		}
		origSeq = append(origSeq, typ)
	}
	name, typ = "", TypeEnd
	for {
		name, typ = dup.Iterate(name, typ)
		if typ == TypeEnd {
			break
		}
		dupSeq = append(dupSeq, typ)
	}
	if len(origSeq) != len(dupSeq) {
		t.Fatalf("iteration length mismatch: %d vs %d", len(origSeq), len(dupSeq))
	}
	for i := range origSeq {
		if origSeq[i] != dupSeq[i] {
			t.Fatalf("iteration[%d] mismatch: %v vs %v", i, origSeq[i], dupSeq[i])
		}
	}

	if getUnsigned(t, dup, "", hsizeCode) != 1920 {
		t.Fatal("dup hsize mismatch")
	}
	if getUnsigned(t, dup, "", vsizeCode) != 1080 {
		t.Fatal("dup vsize mismatch")
	}
}

func TestIterate_InsertionOrderAndTermination(t *testing.T) {
	mgr := newTestMgr()
	d, _ := mgr.Alloc(0)

	names := []string{"zeta", "alpha", "middle"}
	for _, n := range names {
		val, ok := d.Set(n, TypeUnsigned, 8)
		if !ok {
			t.Fatalf("Set(%s) failed", n)
		}
		binary.BigEndian.PutUint64(val, 1)
	}

	var got []string
	name, typ := "", TypeEnd
	for {
		name, typ = d.Iterate(name, typ)
		if typ == TypeEnd {
			break
		}
		got = append(got, name)
	}
	if len(got) != len(names) {
		t.Fatalf("got %d entries, want %d", len(got), len(names))
	}
	for i, n := range names {
		if got[i] != n {
			t.Fatalf("iterate[%d] = %q, want %q (insertion order)", i, got[i], n)
		}
	}
}

func TestSet_GrowthReservesManagerExtra(t *testing.T) {
	mgr := NewMgr(4, nil, 8, 64)
	d, ok := mgr.Alloc(8)
	if !ok {
		t.Fatal("Alloc failed")
	}
	val, ok := d.Set("bignameformorelength", TypeOpaque, 500)
	if !ok {
		t.Fatal("Set(500) failed")
	}
	for i := range val {
		val[i] = byte(i)
	}
	if cap := len(d.buf); cap < d.size+mgr.extraSize-1 {
		// needed = size; growth target was needed+extraSize, so remaining slack
		// should be close to extraSize.
		t.Fatalf("buffer cap %d too small relative to extraSize %d", cap, mgr.extraSize)
	}
	got, ok := d.Get("bignameformorelength", TypeOpaque)
	if !ok || len(got) != 500 {
		t.Fatalf("Get after growth: ok=%v len=%d", ok, len(got))
	}
}

func TestDelete_NotFound(t *testing.T) {
	mgr := newTestMgr()
	d, _ := mgr.Alloc(0)
	if d.Delete("nope", TypeUnsigned) {
		t.Fatal("Delete on empty dict returned true")
	}
}

func TestGet_LongFormNameUniqueness(t *testing.T) {
	mgr := newTestMgr()
	d, _ := mgr.Alloc(0)
	setUnsigned(t, d, "dup", TypeUnsigned, 1)
	setUnsigned(t, d, "dup", TypeUnsigned, 2)
	if got := getUnsigned(t, d, "dup", TypeUnsigned); got != 2 {
		t.Fatalf("second Set should overwrite in place: got %d, want 2", got)
	}
	// still a single record -- idempotent overwrite, not an append.
	count := 0
	name, typ := "", TypeEnd
	for {
		name, typ = d.Iterate(name, typ)
		if typ == TypeEnd {
			break
		}
		count++
	}
	if count != 1 {
		t.Fatalf("record count = %d, want 1", count)
	}
}
