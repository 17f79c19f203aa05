package dict

import (
	"errors"
	"testing"
)

type failingAllocator struct{ fail bool }

func (f *failingAllocator) Alloc(n int) ([]byte, error) {
	if f.fail {
		return nil, errors.New("boom")
	}
	return make([]byte, n), nil
}

func TestMgr_AllocFailureReturnsShellToPool(t *testing.T) {
	alloc := &failingAllocator{}
	mgr := NewMgr(4, alloc, 0, 0)

	d, ok := mgr.Alloc(16)
	if !ok {
		t.Fatal("first Alloc should succeed")
	}
	d.Free()
	if len(mgr.pool) != 1 {
		t.Fatalf("pool depth after Free = %d, want 1", len(mgr.pool))
	}

	alloc.fail = true
	if _, ok := mgr.Alloc(16); ok {
		t.Fatal("Alloc should fail when allocator fails")
	}
	if len(mgr.pool) != 1 {
		t.Fatalf("pool depth after failed Alloc = %d, want shell returned (1)", len(mgr.pool))
	}
}

func TestMgr_RefcountAndDeferredDestroy(t *testing.T) {
	closed := false
	alloc := &closingAllocator{closed: &closed}
	mgr := NewMgr(4, alloc, 0, 0)

	d1, _ := mgr.Alloc(16)
	d2, _ := mgr.Alloc(16)
	if mgr.Refcount() != 2 {
		t.Fatalf("refcount = %d, want 2", mgr.Refcount())
	}

	mgr.Free()
	if closed {
		t.Fatal("allocator closed while dictionaries still outstanding")
	}

	d1.Free()
	if closed {
		t.Fatal("allocator closed before all dictionaries freed")
	}
	d2.Free()
	if !closed {
		t.Fatal("allocator not closed after last dictionary freed")
	}
}

func TestMgr_PoolDepthCap(t *testing.T) {
	mgr := NewMgr(1, nil, 0, 0)
	d1, _ := mgr.Alloc(8)
	d2, _ := mgr.Alloc(8)
	d1.Free()
	d2.Free()
	if len(mgr.pool) != 1 {
		t.Fatalf("pool depth = %d, want capped at 1", len(mgr.pool))
	}
}

type closingAllocator struct {
	closed *bool
}

func (c *closingAllocator) Alloc(n int) ([]byte, error) { return make([]byte, n), nil }
func (c *closingAllocator) Close() error                { *c.closed = true; return nil }
