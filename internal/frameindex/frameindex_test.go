package frameindex

import (
	"path/filepath"
	"testing"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLookup(t *testing.T) {
	s := openTest(t)
	rec := FrameRecord{
		PictureNumber: 7,
		CodingType:    "I",
		HasPTSOrig:    true,
		PTSOrig:       900000,
		RandomAccess:  true,
		HasDuration:   true,
		Duration:      3000,
		ByteOffset:    1024,
		ByteLength:    4096,
	}
	if err := s.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, ok, err := s.Lookup(7)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("Lookup: not found")
	}
	if got != rec {
		t.Errorf("Lookup() = %+v, want %+v", got, rec)
	}
}

func TestLookup_missing(t *testing.T) {
	s := openTest(t)
	_, ok, err := s.Lookup(99)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Error("Lookup() on empty store should report not found")
	}
}

func TestRecord_overwritesOnConflict(t *testing.T) {
	s := openTest(t)
	if err := s.Record(FrameRecord{PictureNumber: 1, CodingType: "P", ByteOffset: 0, ByteLength: 10}); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(FrameRecord{PictureNumber: 1, CodingType: "I", ByteOffset: 0, ByteLength: 20, RandomAccess: true}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Lookup(1)
	if err != nil || !ok {
		t.Fatalf("Lookup: %v ok=%v", err, ok)
	}
	if got.CodingType != "I" || got.ByteLength != 20 || !got.RandomAccess {
		t.Errorf("Lookup() after overwrite = %+v", got)
	}
}

func TestNearest(t *testing.T) {
	s := openTest(t)
	frames := []FrameRecord{
		{PictureNumber: 0, CodingType: "I", HasPTSOrig: true, PTSOrig: 0, RandomAccess: true, ByteOffset: 0, ByteLength: 10},
		{PictureNumber: 1, CodingType: "P", HasPTSOrig: true, PTSOrig: 3000, ByteOffset: 10, ByteLength: 10},
		{PictureNumber: 2, CodingType: "I", HasPTSOrig: true, PTSOrig: 90000, RandomAccess: true, ByteOffset: 20, ByteLength: 10},
		{PictureNumber: 3, CodingType: "P", HasPTSOrig: true, PTSOrig: 93000, ByteOffset: 30, ByteLength: 10},
	}
	for _, f := range frames {
		if err := s.Record(f); err != nil {
			t.Fatal(err)
		}
	}
	got, ok, err := s.Nearest(92000)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if !ok {
		t.Fatal("Nearest: not found")
	}
	if got.PictureNumber != 2 {
		t.Errorf("Nearest(92000).PictureNumber = %d, want 2", got.PictureNumber)
	}
}

func TestNearest_noRandomAccessBefore(t *testing.T) {
	s := openTest(t)
	if err := s.Record(FrameRecord{PictureNumber: 0, CodingType: "I", HasPTSOrig: true, PTSOrig: 50000, RandomAccess: true, ByteOffset: 0, ByteLength: 10}); err != nil {
		t.Fatal(err)
	}
	_, ok, err := s.Nearest(1000)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if ok {
		t.Error("Nearest before any random-access point should report not found")
	}
}

func TestCount(t *testing.T) {
	s := openTest(t)
	for i := int64(0); i < 3; i++ {
		if err := s.Record(FrameRecord{PictureNumber: i, CodingType: "P", ByteOffset: i * 10, ByteLength: 10}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestSessionID_nonEmpty(t *testing.T) {
	s := openTest(t)
	if s.SessionID() == "" {
		t.Error("SessionID() should be non-empty")
	}
}
