package dict

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWire_MarshalUnmarshalRoundTrip(t *testing.T) {
	mgr := newTestMgr()
	d, _ := mgr.Alloc(0)
	code, _, _ := Shorthand("k.pts")
	setUnsigned(t, d, "", code, 42)

	wire := Marshal(d)

	other := NewMgr(4, nil, 0, 0)
	d2, err := Unmarshal(other, wire)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := getUnsigned(t, d2, "", code); got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestWire_CompressedRoundTrip(t *testing.T) {
	mgr := newTestMgr()
	d, _ := mgr.Alloc(0)
	val, ok := d.Set("a-fairly-long-attribute-name-for-compression", TypeOpaque, 64)
	if !ok {
		t.Fatal("Set failed")
	}
	for i := range val {
		val[i] = byte(i % 7)
	}

	compressed, err := MarshalCompressed(d)
	if err != nil {
		t.Fatalf("MarshalCompressed: %v", err)
	}

	other := NewMgr(4, nil, 0, 0)
	d2, err := UnmarshalCompressed(other, compressed)
	if err != nil {
		t.Fatalf("UnmarshalCompressed: %v", err)
	}
	got, ok := d2.Get("a-fairly-long-attribute-name-for-compression", TypeOpaque)
	if !ok {
		t.Fatal("Get after decompress: not found")
	}
	if !bytes.Equal(got, val) {
		t.Fatalf("round-tripped value mismatch")
	}
}

func TestWire_UnmarshalRejectsMissingEnd(t *testing.T) {
	mgr := NewMgr(4, nil, 0, 0)
	buf := []byte{byte(TypeUnsigned), 0, 1} // truncated, no End
	if _, err := Unmarshal(mgr, buf); err == nil {
		t.Fatal("Unmarshal accepted a buffer without a trailing End byte")
	}
}

func TestWire_UnmarshalRejectsCorruptRecord(t *testing.T) {
	mgr := NewMgr(4, nil, 0, 0)
	// Claims a 100-byte long-form record but the buffer is far shorter.
	buf := make([]byte, 6)
	buf[0] = byte(TypeUnsigned)
	binary.BigEndian.PutUint16(buf[1:3], 100)
	buf[5] = byte(TypeEnd)
	if _, err := Unmarshal(mgr, buf); err == nil {
		t.Fatal("Unmarshal accepted a corrupt record")
	}
}
