// Package framer implements the MPEG-2 video elementary-stream framer: a
// state machine driven by start codes that delimits frames, extracts
// sequence/extension/display headers, parses picture headers, derives flow
// definitions, and manages timestamps, discontinuities and random-access
// points.
package framer

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/time/rate"

	"github.com/studoret/upipe/internal/dict"
	"github.com/studoret/upipe/internal/ustream"
	"github.com/studoret/upipe/internal/uref"
)

// defaultClockHz is the default clock domain FRAMER expresses derived
// durations and VBV delays in: the same 90kHz domain MPEG-2 presentation
// timestamps are carried in, so WithClockHz need not be set at all unless
// a caller wants a different output clock.
const defaultClockHz = 90000

var errAllocationFailure = errors.New("framer: buffer allocation failed")

// Framer is the FRAMER state machine. It is not safe for concurrent use:
// one instance processes one input at a time.
type Framer struct {
	mgr     *dict.Mgr
	sink    FrameSink
	events  EventSink
	metrics *Metrics

	logLimiter *rate.Limiter
	clockHz    uint64

	stream *ustream.Accumulator

	flowDefInput    string
	hasFlowDefInput bool
	flowDefOutput   *FlowDef

	cachedSeq  *SequenceHeader
	cachedExt  *SequenceExtension
	cachedDisp *SequenceDisplayExtension

	progressiveSequence bool
	acquired             bool
	gotDiscontinuity     bool
	insertSequence       bool

	lastPictureNumber     int64
	lastTemporalReference int64
	frameRate             dict.Rational

	hasRandomAccessSystime bool
	randomAccessSystime    uint64

	nextFrameSize     int
	nextFrameSequence bool
	hasPictureOffset  bool
	pictureOffset     int
	hasGOP            bool
	gopOffset         int
	nextFrameSlice    bool
	frameErrorMark    bool

	pending timestamps
}

// Option configures a Framer at construction time.
type Option func(*Framer)

// WithMetrics attaches a prometheus-backed event sink used for
// frame-level counters that aren't themselves part of the EventKind set.
func WithMetrics(m *Metrics) Option { return func(f *Framer) { f.metrics = m } }

// WithLogLimiter rate-limits structural-error log lines, so a persistently
// malformed or resyncing stream can't flood stderr.
func WithLogLimiter(l *rate.Limiter) Option { return func(f *Framer) { f.logLimiter = l } }

// WithClockHz overrides the clock domain durations and VBV delays are
// expressed in. Default is the 90kHz PTS/DTS domain.
func WithClockHz(hz uint64) Option {
	return func(f *Framer) {
		if hz > 0 {
			f.clockHz = hz
		}
	}
}

// WithSequenceInsertion sets the initial sequence-insertion flag.
func WithSequenceInsertion(b bool) Option { return func(f *Framer) { f.insertSequence = b } }

// New returns a Framer that allocates output frame dictionaries from mgr
// and delivers completed frames to sink. events may be nil.
func New(mgr *dict.Mgr, sink FrameSink, events EventSink, opts ...Option) *Framer {
	fr := &Framer{
		mgr:                   mgr,
		sink:                  sink,
		events:                events,
		stream:                ustream.New(),
		clockHz:               defaultClockHz,
		lastPictureNumber:     -1,
		lastTemporalReference: -1,
	}
	fr.stream.OnPromote = func(c ustream.Chunk) {
		if m, ok := c.Meta.(*BufferMeta); ok && m != nil {
			fr.mergeTimestamps(m)
		}
	}
	for _, opt := range opts {
		opt(fr)
	}
	fr.emitEvent(Event{Kind: EventReady})
	return fr
}

// GetOutputFlowDef implements the GET_OUTPUT control command.
func (fr *Framer) GetOutputFlowDef() (*FlowDef, bool) {
	if fr.flowDefOutput == nil {
		return nil, false
	}
	return fr.flowDefOutput, true
}

// SetOutputFlowDef implements the SET_OUTPUT control command, letting a
// caller override the derived output flow definition (e.g. to inject a
// downstream-negotiated field).
func (fr *Framer) SetOutputFlowDef(fd *FlowDef) { fr.flowDefOutput = fd }

// GetSequenceInsertion implements GET_SEQUENCE_INSERTION.
func (fr *Framer) GetSequenceInsertion() bool { return fr.insertSequence }

// SetSequenceInsertion implements SET_SEQUENCE_INSERTION.
func (fr *Framer) SetSequenceInsertion(b bool) { fr.insertSequence = b }

// SetInputFlowDef validates and stores the input flow definition. def must
// begin with "block.mpeg2video."; on mismatch the cached flow state is
// cleared and a flow-definition error is raised. On match, if a sequence
// header is already cached, the output flow definition is re-derived and
// announced.
func (fr *Framer) SetInputFlowDef(def string) error {
	if !strings.HasPrefix(def, "block.mpeg2video.") {
		fr.flowDefInput = ""
		fr.hasFlowDefInput = false
		fr.flowDefOutput = nil
		err := fmt.Errorf("framer: input flow definition %q does not start with block.mpeg2video.", def)
		fr.emitEvent(Event{Kind: EventFlowDefinitionError, Err: err})
		return err
	}
	fr.flowDefInput = def
	fr.hasFlowDefInput = true
	if fr.cachedSeq != nil {
		fd, err := deriveFlowDef(fr.cachedSeq, fr.cachedExt, fr.cachedDisp)
		if err != nil {
			return err
		}
		fr.flowDefOutput = fd
		fr.emitEvent(Event{Kind: EventNewFlowDefinition, FlowDef: fd})
	}
	return nil
}

// PushBuffer feeds one upstream data buffer into the framer: handles
// discontinuity, appends the bytes to the stream accumulator, and drives
// the assembly loop.
func (fr *Framer) PushBuffer(data []byte, meta *BufferMeta) {
	if len(data) == 0 {
		return
	}
	if meta != nil && meta.Discontinuity {
		if !fr.nextFrameSlice {
			fr.stream.Clean()
			fr.resetFrameCursor()
			fr.pending = timestamps{}
			fr.gotDiscontinuity = true
		} else {
			fr.frameErrorMark = true
		}
	}
	_, hadHead := fr.stream.Head()
	fr.stream.Append(ustream.Chunk{Data: data, Meta: meta})
	if !hadHead && meta != nil {
		fr.mergeTimestamps(meta)
	}
	fr.runAssemblyLoop()
}

func (fr *Framer) mergeTimestamps(m *BufferMeta) {
	if m.PTS.Valid {
		fr.pending.PTS = m.PTS
	}
	if m.PTSOrig.Valid {
		fr.pending.PTSOrig = m.PTSOrig
	}
	if m.PTSSys.Valid {
		fr.pending.PTSSys = m.PTSSys
	}
	if m.DTS.Valid {
		fr.pending.DTS = m.DTS
	}
	if m.DTSOrig.Valid {
		fr.pending.DTSOrig = m.DTSOrig
	}
	if m.DTSSys.Valid {
		fr.pending.DTSSys = m.DTSSys
	}
	if m.SystimeRap.Valid {
		fr.pending.SystimeRap = m.SystimeRap
	}
}

func (fr *Framer) flushPendingTimestamps() {
	fr.pending = timestamps{}
}

func (fr *Framer) resetFrameCursor() {
	fr.nextFrameSize = 0
	fr.nextFrameSequence = false
	fr.hasPictureOffset = false
	fr.pictureOffset = 0
	fr.hasGOP = false
	fr.gopOffset = 0
	fr.nextFrameSlice = false
	fr.frameErrorMark = false
}

func (fr *Framer) emitEvent(ev Event) {
	if fr.events != nil {
		fr.events.HandleEvent(ev)
	}
}

func (fr *Framer) logStructuralError(err error) {
	if fr.logLimiter == nil || fr.logLimiter.Allow() {
		log.Printf("framer: %v", err)
	}
}

func (fr *Framer) warnf(format string, args ...any) {
	if fr.logLimiter == nil || fr.logLimiter.Allow() {
		log.Printf("framer: "+format, args...)
	}
}

// runAssemblyLoop scans for start codes and dispatches each one to the
// appropriate state handler for as long as they're available in the
// accumulated stream.
func (fr *Framer) runAssemblyLoop() {
	for {
		offset, found := fr.stream.Find(startCodePrefix[:], fr.nextFrameSize)
		if !found {
			return
		}
		code, ok := fr.stream.At(offset + 3)
		if !ok {
			return
		}
		switch {
		case !fr.acquired:
			fr.handleUnacquired(code, offset)
		case !fr.hasPictureOffset:
			fr.handlePrePicture(code, offset)
		default:
			fr.handlePostPicture(code, offset)
		}
	}
}

func (fr *Framer) handleUnacquired(code byte, offset int) {
	switch code {
	case startCodeSeq:
		fr.stream.Consume(offset)
		fr.nextFrameSize = 4
		fr.nextFrameSequence = true
		fr.acquired = true
		fr.emitEvent(Event{Kind: EventSyncAcquired})
	case startCodePic:
		fr.stream.Consume(offset + 4)
		fr.nextFrameSize = 0
		fr.flushPendingTimestamps()
	default:
		fr.stream.Consume(offset + 4)
		fr.nextFrameSize = 0
	}
}

func (fr *Framer) handlePrePicture(code byte, offset int) {
	switch code {
	case startCodePic:
		fr.hasPictureOffset = true
		fr.pictureOffset = offset
	case startCodeGOP:
		fr.hasGOP = true
		fr.gopOffset = offset
	}
	fr.nextFrameSize = offset + 4
}

func (fr *Framer) handlePostPicture(code byte, offset int) {
	switch {
	case code == startCodeExt:
		fr.nextFrameSize = offset + 4
	case isSlice(code):
		fr.nextFrameSlice = true
		fr.nextFrameSize = offset + 4
	case code == startCodeEnd:
		fr.nextFrameSize = offset + 4
		fr.emitFrame()
	case code == startCodeSeq || code == startCodeGOP || code == startCodePic:
		fr.nextFrameSize = offset
		fr.emitFrame()
		fr.reseedWithStartCode(code)
	default:
		fr.nextFrameSize = offset + 4
	}
}

// reseedWithStartCode re-arms the per-frame cursor for a new frame that
// begins with the start code just found (SEQ, GOP or PIC), after the
// previous frame was emitted without consuming these 4 bytes.
func (fr *Framer) reseedWithStartCode(code byte) {
	fr.resetFrameCursor()
	switch code {
	case startCodeSeq:
		fr.nextFrameSequence = true
	case startCodeGOP:
		fr.hasGOP = true
		fr.gopOffset = 0
	case startCodePic:
		fr.hasPictureOffset = true
		fr.pictureOffset = 0
	}
	fr.nextFrameSize = 4
}
