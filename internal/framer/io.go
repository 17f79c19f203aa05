package framer

import "github.com/studoret/upipe/internal/uref"

// Timestamp is an optional 90kHz-domain (or caller-defined ClockHz-domain)
// clock value: upstream buffers carry these alongside payload bytes, and
// FRAMER threads them onto the frame they apply to.
type Timestamp struct {
	Valid bool
	Value uint64
}

// BufferMeta accompanies one buffer pushed into a Framer: optional
// timestamps in the original/stream/system PTS and DTS variants, the
// random-access system-time baseline carried by a sequence-bearing buffer,
// and a discontinuity flag.
type BufferMeta struct {
	Discontinuity bool

	PTS, PTSOrig, PTSSys Timestamp
	DTS, DTSOrig, DTSSys Timestamp
	SystimeRap           Timestamp
}

type timestamps struct {
	PTS, PTSOrig, PTSSys Timestamp
	DTS, DTSOrig, DTSSys Timestamp
	SystimeRap           Timestamp
}

// FrameSink receives each frame FRAMER assembles. codingType is surfaced
// alongside the *uref.Uref rather than through a DICT attribute, since
// picture coding type is not one of the canonical SHORTS entries and this
// core never extends that wire contract ad hoc.
type FrameSink interface {
	EmitFrame(u *uref.Uref, codingType CodingType)
}

// FrameSinkFunc adapts a plain function to FrameSink.
type FrameSinkFunc func(u *uref.Uref, codingType CodingType)

func (f FrameSinkFunc) EmitFrame(u *uref.Uref, codingType CodingType) { f(u, codingType) }
