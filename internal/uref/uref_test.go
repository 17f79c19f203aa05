package uref

import (
	"testing"

	"github.com/studoret/upipe/internal/dict"
)

func newTestMgr() *dict.Mgr {
	return dict.NewMgr(4, nil, 0, 0)
}

func TestUref_PTSRoundTrip(t *testing.T) {
	mgr := newTestMgr()
	u, ok := New(mgr)
	if !ok {
		t.Fatal("New failed")
	}
	defer u.Free()

	if !u.SetPTS(90000) {
		t.Fatal("SetPTS failed")
	}
	got, ok := u.PTS()
	if !ok || got != 90000 {
		t.Fatalf("PTS() = %d, %v; want 90000, true", got, ok)
	}
	if !u.DeletePTS() {
		t.Fatal("DeletePTS failed")
	}
	if _, ok := u.PTS(); ok {
		t.Fatal("PTS found after delete")
	}
}

func TestUref_FlowDefAndFlags(t *testing.T) {
	mgr := newTestMgr()
	u, _ := New(mgr)
	defer u.Free()

	if !u.SetFlowDef("block.mpeg2video.pic.planar8_420.") {
		t.Fatal("SetFlowDef failed")
	}
	got, ok := u.FlowDef()
	if !ok || got != "block.mpeg2video.pic.planar8_420." {
		t.Fatalf("FlowDef() = %q, %v", got, ok)
	}

	if u.HasRandomAccess() {
		t.Fatal("HasRandomAccess true before set")
	}
	if !u.SetRandomAccess() {
		t.Fatal("SetRandomAccess failed")
	}
	if !u.HasRandomAccess() {
		t.Fatal("HasRandomAccess false after set")
	}
}

func TestUref_Aspect(t *testing.T) {
	mgr := newTestMgr()
	u, _ := New(mgr)
	defer u.Free()

	if !u.SetAspect(dict.Rational{Num: 16, Den: 9}) {
		t.Fatal("SetAspect failed")
	}
	r, ok := u.Aspect()
	if !ok || r.Num != 16 || r.Den != 9 {
		t.Fatalf("Aspect() = %+v, %v", r, ok)
	}
}

func TestUref_Dup(t *testing.T) {
	mgr := newTestMgr()
	u, _ := New(mgr)
	u.SetPTS(1234)
	u.Block = []byte("payload")

	dup, ok := Dup(u)
	if !ok {
		t.Fatal("Dup failed")
	}
	defer dup.Free()

	got, ok := dup.PTS()
	if !ok || got != 1234 {
		t.Fatalf("dup PTS() = %d, %v", got, ok)
	}
	if string(dup.Block) != "payload" {
		t.Fatalf("dup Block = %q", dup.Block)
	}
	u.Free()
}
