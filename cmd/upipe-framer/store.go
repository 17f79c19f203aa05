package main

import (
	"fmt"
	"log"
	"sync"

	"github.com/studoret/upipe/internal/framer"
	"github.com/studoret/upipe/internal/frameindex"
	"github.com/studoret/upipe/internal/framerfs"
	"github.com/studoret/upipe/internal/uref"
)

const unknownFlow = "unknown"

// frameStore is the glue between the framer's FrameSink callback, the
// sqlite frame index, and framerfs's read surface: every emitted frame is
// recorded to the index and kept in memory (grouped by flow definition) so
// framerfs can serve its bytes on demand.
type frameStore struct {
	index *frameindex.Store

	mu           sync.Mutex
	byteOffset   int64
	framesByFlow map[string][]framerfs.FrameInfo
	bytesByFlow  map[string]map[int64][]byte
}

func newFrameStore(index *frameindex.Store) *frameStore {
	return &frameStore{
		index:        index,
		framesByFlow: make(map[string][]framerfs.FrameInfo),
		bytesByFlow:  make(map[string]map[int64][]byte),
	}
}

var _ framer.FrameSink = (*frameStore)(nil)
var _ framerfs.FrameStore = (*frameStore)(nil)

// EmitFrame implements framer.FrameSink.
func (s *frameStore) EmitFrame(u *uref.Uref, codingType framer.CodingType) {
	flow, ok := u.FlowDef()
	if !ok || flow == "" {
		flow = unknownFlow
	}
	pictureNumber, _ := u.PictureNumber()
	block := u.Block

	s.mu.Lock()
	offset := s.byteOffset
	s.byteOffset += int64(len(block))
	if s.bytesByFlow[flow] == nil {
		s.bytesByFlow[flow] = make(map[int64][]byte)
	}
	s.bytesByFlow[flow][int64(pictureNumber)] = append([]byte(nil), block...)
	s.framesByFlow[flow] = append(s.framesByFlow[flow], framerfs.FrameInfo{
		PictureNumber: int64(pictureNumber),
		ByteLength:    int64(len(block)),
	})
	s.mu.Unlock()

	rec := frameindex.FrameRecord{
		PictureNumber: int64(pictureNumber),
		CodingType:    codingType.String(),
		RandomAccess:  u.HasRandomAccess(),
		ByteOffset:    offset,
		ByteLength:    int64(len(block)),
	}
	if pts, ok := u.PTSOrig(); ok {
		rec.HasPTSOrig, rec.PTSOrig = true, pts
	}
	if dts, ok := u.DTSOrig(); ok {
		rec.HasDTSOrig, rec.DTSOrig = true, dts
	}
	if dur, ok := u.Duration(); ok {
		rec.HasDuration, rec.Duration = true, dur
	}
	if err := s.index.Record(rec); err != nil {
		log.Printf("upipe-framer: frame index record failed picture=%d: %v", pictureNumber, err)
	}

	u.Free()
}

// Flows implements framerfs.FrameStore.
func (s *frameStore) Flows() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	flows := make([]string, 0, len(s.framesByFlow))
	for flow := range s.framesByFlow {
		flows = append(flows, flow)
	}
	return flows
}

// Frames implements framerfs.FrameStore.
func (s *frameStore) Frames(flow string) ([]framerfs.FrameInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames, ok := s.framesByFlow[flow]
	if !ok {
		return nil, false
	}
	out := make([]framerfs.FrameInfo, len(frames))
	copy(out, frames)
	return out, true
}

// ReadFrame implements framerfs.FrameStore.
func (s *frameStore) ReadFrame(flow string, pictureNumber int64, off int64, dest []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byFlow, ok := s.bytesByFlow[flow]
	if !ok {
		return 0, fmt.Errorf("upipe-framer: unknown flow %q", flow)
	}
	b, ok := byFlow[pictureNumber]
	if !ok {
		return 0, fmt.Errorf("upipe-framer: unknown frame picture=%d flow=%q", pictureNumber, flow)
	}
	if off >= int64(len(b)) {
		return 0, nil
	}
	return copy(dest, b[off:]), nil
}
