// Package ustream implements the byte-stream accumulator: it appends
// incoming buffers and exposes their concatenation as one logical byte
// stream with find/extract/peek/consume operations, without ever copying
// data that does not need to move.
package ustream

// Chunk is one appended buffer together with whatever metadata its
// producer attached (clock references, discontinuity flags, ...). Meta is
// opaque to this package; FRAMER uses it to carry the buffer's
// *framer.BufferMeta so it can copy timestamps forward across a promotion.
type Chunk struct {
	Data []byte
	Meta any
}

// Accumulator is the STREAM component. All offsets passed to its methods
// are relative to the first not-yet-consumed byte -- consuming bytes
// shifts what offset 0 means. Accumulator is not safe for concurrent use.
type Accumulator struct {
	chunks     []Chunk
	headOffset int // bytes already consumed from chunks[0]

	// OnPromote, if set, is called whenever the head chunk is fully
	// consumed and the next queued chunk becomes the new head.
	OnPromote func(newHead Chunk)
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Append enqueues buf. The first appended chunk becomes the head
// immediately; later ones wait in the queue until promoted.
func (a *Accumulator) Append(c Chunk) {
	a.chunks = append(a.chunks, c)
}

// Len returns the number of not-yet-consumed bytes currently buffered.
func (a *Accumulator) Len() int {
	total := 0
	for i, c := range a.chunks {
		if i == 0 {
			total += len(c.Data) - a.headOffset
		} else {
			total += len(c.Data)
		}
	}
	return total
}

// Head returns the current head chunk and true, or false if empty.
func (a *Accumulator) Head() (Chunk, bool) {
	if len(a.chunks) == 0 {
		return Chunk{}, false
	}
	return a.chunks[0], true
}

// At returns the byte at offset p relative to the first unconsumed byte.
func (a *Accumulator) At(p int) (byte, bool) {
	return a.byteAt(p)
}

func (a *Accumulator) byteAt(p int) (byte, bool) {
	if p < 0 {
		return 0, false
	}
	off := a.headOffset
	for _, c := range a.chunks {
		avail := len(c.Data) - off
		if p < avail {
			return c.Data[off+p], true
		}
		p -= avail
		off = 0
	}
	return 0, false
}

// Find searches forward from offset `from` for the first occurrence of
// pattern, returning its offset. It returns found=false if the data seen
// so far does not contain pattern (the caller should wait for more input
// and retry; it makes no claim about bytes not yet appended).
func (a *Accumulator) Find(pattern []byte, from int) (offset int, found bool) {
	if len(pattern) == 0 {
		return from, true
	}
	for p := from; ; p++ {
		matched := true
		for k := 0; k < len(pattern); k++ {
			b, ok := a.byteAt(p + k)
			if !ok {
				return 0, false
			}
			if b != pattern[k] {
				matched = false
				break
			}
		}
		if matched {
			return p, true
		}
	}
}

// Extract copies length bytes starting at offset into dst (which must have
// length >= length), returning false if fewer bytes are available.
func (a *Accumulator) Extract(offset, length int, dst []byte) bool {
	for i := 0; i < length; i++ {
		b, ok := a.byteAt(offset + i)
		if !ok {
			return false
		}
		dst[i] = b
	}
	return true
}

// Peek borrows a contiguous view of length bytes at offset. When the range
// falls entirely within one chunk, it returns a slice aliasing that
// chunk's backing array at no copy cost; otherwise it copies into scratch
// (which must have length >= length) and returns that instead. The
// returned release func must be called before the next mutating call on a
// (Append/Consume/Clean) -- mirroring a borrow/unmap discipline, even
// though the Go runtime does not require an explicit unmap to reclaim
// memory.
func (a *Accumulator) Peek(offset, length int, scratch []byte) (data []byte, release func(), ok bool) {
	off := a.headOffset
	pos := offset
	for _, c := range a.chunks {
		avail := len(c.Data) - off
		if pos < avail {
			if pos+length <= avail {
				return c.Data[off+pos : off+pos+length], func() {}, true
			}
			break
		}
		pos -= avail
		off = 0
	}
	if len(scratch) < length {
		return nil, nil, false
	}
	if !a.Extract(offset, length, scratch[:length]) {
		return nil, nil, false
	}
	return scratch[:length], func() {}, true
}

// Consume drops the first n bytes, promoting queued chunks into head
// position as needed and invoking OnPromote for each promotion.
func (a *Accumulator) Consume(n int) {
	for n > 0 && len(a.chunks) > 0 {
		avail := len(a.chunks[0].Data) - a.headOffset
		if n < avail {
			a.headOffset += n
			return
		}
		n -= avail
		a.chunks = a.chunks[1:]
		a.headOffset = 0
		if len(a.chunks) > 0 && a.OnPromote != nil {
			a.OnPromote(a.chunks[0])
		}
	}
}

// Clean discards all buffered data.
func (a *Accumulator) Clean() {
	a.chunks = nil
	a.headOffset = 0
}
