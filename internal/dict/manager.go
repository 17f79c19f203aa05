package dict

// BufferAllocator is the external byte-buffer allocator a Mgr holds a
// reference to. It is treated as an external collaborator -- its own
// thread-safety and allocation strategy are out of scope for this package
// -- and is modeled as the narrowest interface this package needs.
type BufferAllocator interface {
	Alloc(n int) ([]byte, error)
}

// Closer is implemented by allocators that hold resources beyond plain Go
// memory (e.g. a backing arena or mmap region) and need releasing when the
// manager is freed.
type Closer interface {
	Close() error
}

// simpleAllocator is the default BufferAllocator: plain Go heap
// allocation. Callers that need a pool or arena allocator supply their
// own BufferAllocator instead.
type simpleAllocator struct{}

func (simpleAllocator) Alloc(n int) ([]byte, error) {
	return make([]byte, n), nil
}

const (
	defaultMinSize   = 128
	defaultExtraSize = 64
)

// Mgr is the dictionary manager (DICT-MGR): it allocates and frees
// dictionaries through a LIFO pool of reusable shells to minimize
// allocator traffic, and tracks a refcount of outstanding dictionaries so
// that manager destruction can be deferred until all of them are
// returned. Mgr is not safe for concurrent use.
type Mgr struct {
	allocator BufferAllocator
	poolDepth int
	minSize   int
	extraSize int

	pool      []*Dict
	refcount  int
	destroyed bool
	destroy   bool // Free() was called; destroy once refcount hits 0
}

// NewMgr constructs a dictionary manager. poolDepth bounds how many freed
// shells are retained for reuse; minSize and extraSize default to 128 and
// 64 respectively when <= 0.
func NewMgr(poolDepth int, allocator BufferAllocator, minSize, extraSize int) *Mgr {
	if allocator == nil {
		allocator = simpleAllocator{}
	}
	if minSize <= 0 {
		minSize = defaultMinSize
	}
	if extraSize <= 0 {
		extraSize = defaultExtraSize
	}
	return &Mgr{
		allocator: allocator,
		poolDepth: poolDepth,
		minSize:   minSize,
		extraSize: extraSize,
	}
}

// Refcount returns the number of dictionaries currently outstanding from
// this manager.
func (m *Mgr) Refcount() int { return m.refcount }

// Alloc pops a shell from the pool (or allocates a new one) and reserves a
// buffer of at least max(hintSize, minSize), writing a single End byte.
// It fails, leaving the manager's pool intact, if the buffer allocation
// fails.
func (m *Mgr) Alloc(hintSize int) (*Dict, bool) {
	var d *Dict
	if n := len(m.pool); n > 0 {
		d = m.pool[n-1]
		m.pool = m.pool[:n-1]
	} else {
		d = &Dict{}
	}

	size := hintSize
	if size < m.minSize {
		size = m.minSize
	}
	buf, err := m.allocator.Alloc(size)
	if err != nil {
		m.pool = append(m.pool, d)
		return nil, false
	}

	d.mgr = m
	d.buf = buf
	d.buf[0] = byte(TypeEnd)
	d.size = 1
	m.refcount++
	return d, true
}

// Dup allocates a new dictionary from src's manager with capacity for
// src's used prefix and copies it byte for byte.
func Dup(src *Dict) (*Dict, bool) {
	dst, ok := src.mgr.Alloc(src.size)
	if !ok {
		return nil, false
	}
	copy(dst.buf, src.buf[:src.size])
	dst.size = src.size
	return dst, true
}

// Free returns d's shell to its manager's pool (if there is room) and
// releases its buffer, decrementing the manager's refcount. It triggers
// deferred manager destruction if the manager's Free was already called
// and this was the last outstanding dictionary. Using d after Free is a
// programmer error.
func (d *Dict) Free() {
	m := d.mgr
	d.buf = nil
	d.size = 0
	d.mgr = nil

	if len(m.pool) < m.poolDepth {
		m.pool = append(m.pool, d)
	}
	m.refcount--
	if m.destroy && m.refcount <= 0 {
		m.destroyNow()
	}
}

// Vacuum drains the pool of reusable shells.
func (m *Mgr) Vacuum() {
	m.pool = nil
}

// Free vacuums the pool, then releases the buffer allocator (if it
// implements Closer) and destroys the manager. If dictionaries are still
// outstanding, destruction is deferred until the last one calls Dict.Free.
func (m *Mgr) Free() {
	m.Vacuum()
	m.destroy = true
	if m.refcount <= 0 {
		m.destroyNow()
	}
}

func (m *Mgr) destroyNow() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	if c, ok := m.allocator.(Closer); ok {
		_ = c.Close()
	}
}
