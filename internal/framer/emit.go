package framer

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/studoret/upipe/internal/uref"
)

func findStartCodeIn(buf []byte, from int, want byte) (int, bool) {
	for i := from; i+4 <= len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 && buf[i+3] == want {
			return i, true
		}
	}
	return 0, false
}

// emitFrame extracts the current frame's bytes, assembles and delivers a
// uref for it, then unconditionally consumes the frame and resets the
// per-frame cursor -- on both success and structural failure.
func (fr *Framer) emitFrame() {
	frameLen := fr.nextFrameSize
	buf := make([]byte, frameLen)
	if !fr.stream.Extract(0, frameLen, buf) {
		panic("framer: assembly cursor exceeds buffered bytes")
	}

	err := fr.processFrame(buf)
	if err != nil {
		if errors.Is(err, errAllocationFailure) {
			fr.emitEvent(Event{Kind: EventAllocationError, Err: err})
		} else {
			fr.logStructuralError(err)
			fr.emitEvent(Event{Kind: EventSyncLost, Err: err})
			fr.acquired = false
		}
	}

	fr.stream.Consume(frameLen)
	fr.resetFrameCursor()
}

// processFrame handles the sequence portion, the picture portion, and
// random-access/sequence-insertion handling on one frame's bytes, and
// delivers the result to fr.sink.
func (fr *Framer) processFrame(buf []byte) error {
	flowChanged, err := fr.handleSequencePortion(buf)
	if err != nil {
		return err
	}
	if flowChanged {
		fr.emitEvent(Event{Kind: EventNewFlowDefinition, FlowDef: fr.flowDefOutput})
	}
	return fr.handlePicturePortion(buf)
}

// handleSequencePortion parses a frame's sequence header and any trailing
// extensions, updating the cached headers and deriving a new flow
// definition when they change. It is a no-op (aside from reusing the
// previously cached headers) when the current frame did not itself begin
// with a sequence header.
func (fr *Framer) handleSequencePortion(buf []byte) (flowChanged bool, err error) {
	if !fr.nextFrameSequence {
		return false, nil
	}

	loadIntra, loadNonIntra, err := peekSequenceHeaderFlags(buf)
	if err != nil {
		return false, err
	}
	seqLen := sequenceHeaderLen(loadIntra, loadNonIntra)
	if len(buf) < seqLen {
		return false, fmt.Errorf("framer: sequence header truncated")
	}
	seq, err := parseSequenceHeader(buf[:seqLen])
	if err != nil {
		return false, err
	}

	var ext *SequenceExtension
	var disp *SequenceDisplayExtension

	pos := seqLen
	if extOff, found := findStartCodeIn(buf, pos, startCodeExt); found {
		id, err := extensionIdentifier(buf[extOff:])
		if err != nil {
			return false, err
		}
		if id != extIDSequence {
			return false, fmt.Errorf("framer: first extension after sequence header is not a sequence extension (id=%d)", id)
		}
		extEnd := extOff + seqExtLen
		if len(buf) < extEnd {
			return false, fmt.Errorf("framer: sequence extension truncated")
		}
		ext, err = parseSequenceExtension(buf[extOff:extEnd])
		if err != nil {
			return false, err
		}
		pos = extEnd

		if dispOff, found := findStartCodeIn(buf, pos, startCodeExt); found {
			if id2, err := extensionIdentifier(buf[dispOff:]); err == nil && id2 == extIDSequenceDisplay {
				dLen, err := sequenceDisplayExtensionLen(buf[dispOff:])
				if err != nil {
					return false, err
				}
				dEnd := dispOff + dLen
				if len(buf) < dEnd {
					return false, fmt.Errorf("framer: sequence display extension truncated")
				}
				disp, err = parseSequenceDisplayExtension(buf[dispOff:dEnd])
				if err != nil {
					return false, err
				}
			}
		}
	}

	identical := fr.cachedSeq != nil && bytes.Equal(fr.cachedSeq.Raw, seq.Raw) &&
		sequenceExtensionRawEqual(fr.cachedExt, ext) &&
		sequenceDisplayRawEqual(fr.cachedDisp, disp)

	fr.cachedSeq = seq
	fr.cachedExt = ext
	fr.cachedDisp = disp

	if identical {
		return false, nil
	}

	fd, err := deriveFlowDef(seq, ext, disp)
	if err != nil {
		return false, err
	}
	fr.flowDefOutput = fd
	fr.progressiveSequence = fd.ProgressiveSequence
	fr.frameRate = fd.FrameRate
	return true, nil
}

func sequenceExtensionRawEqual(a, b *SequenceExtension) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return bytes.Equal(a.Raw, b.Raw)
}

func sequenceDisplayRawEqual(a, b *SequenceDisplayExtension) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return bytes.Equal(a.Raw, b.Raw)
}

// handlePicturePortion parses the GOP and picture headers, computes
// picture numbering, duration, and random-access status, assembles the
// resulting uref, and delivers it to fr.sink.
func (fr *Framer) handlePicturePortion(buf []byte) error {
	var gop *GOPHeader
	if fr.hasGOP {
		if len(buf) < fr.gopOffset+gopHeaderLen {
			return fmt.Errorf("framer: GOP header truncated")
		}
		var err error
		gop, err = parseGOPHeader(buf[fr.gopOffset : fr.gopOffset+gopHeaderLen])
		if err != nil {
			return err
		}
		fr.lastTemporalReference = -1
	}

	discontinuousFrame := false
	if gop != nil {
		if gop.BrokenLink || (!gop.ClosedGOP && fr.gotDiscontinuity) {
			discontinuousFrame = true
		}
	}

	if !fr.hasPictureOffset {
		return fmt.Errorf("framer: emitted frame has no picture header")
	}
	picBuf := buf[fr.pictureOffset:]
	if len(picBuf) < picHeaderLen {
		return fmt.Errorf("framer: picture header truncated")
	}
	pic, err := parsePictureHeader(picBuf[:picHeaderLen])
	if err != nil {
		return err
	}

	tr := int64(pic.TemporalReference)
	pictureNumber := fr.lastPictureNumber + (tr - fr.lastTemporalReference)
	if tr > fr.lastTemporalReference {
		fr.lastPictureNumber = pictureNumber
		fr.lastTemporalReference = tr
	}

	hasVBVDelay := pic.VBVDelay != vbvDelayNone
	var vbvDelayTicks uint64
	if hasVBVDelay {
		vbvDelayTicks = uint64(pic.VBVDelay) * fr.clockHz / 90000
	}

	var picx *PictureCodingExtension
	if pcxOff, found := findStartCodeIn(picBuf, picHeaderLen, startCodeExt); found {
		id, idErr := extensionIdentifier(picBuf[pcxOff:])
		if idErr == nil && id == extIDPictureCoding {
			end := pcxOff + picCodingExtLen
			if len(picBuf) < end {
				return fmt.Errorf("framer: picture coding extension truncated")
			}
			picx, err = parsePictureCodingExtension(picBuf[pcxOff:end])
			if err != nil {
				return err
			}
		}
	}

	var duration uint64
	hasDuration := false
	var topField, bottomField, tff, progressive bool
	if picx != nil {
		if picx.IntraDCPrecision != 0 {
			fr.warnf("intra_dc_precision = %d (expected 0)", picx.IntraDCPrecision)
		}
		switch picx.PictureStructure {
		case StructureTopField:
			topField = true
		case StructureBottomField:
			bottomField = true
		case StructureFrame:
			topField, bottomField = true, true
		}
		tff = picx.TopFieldFirst
		progressive = picx.ProgressiveFrame

		if fr.frameRate.Num != 0 {
			base := fr.clockHz * uint64(fr.frameRate.Den) / uint64(fr.frameRate.Num)
			switch {
			case fr.progressiveSequence:
				duration = base
				if picx.RepeatFirstField {
					tffN := uint64(0)
					if picx.TopFieldFirst {
						tffN = 1
					}
					duration = base * (1 + tffN)
				}
			case picx.PictureStructure == StructureFrame:
				duration = base
				if picx.RepeatFirstField {
					duration = base + base/2
				}
			default:
				duration = base / 2
			}
			hasDuration = true
		}
	}

	u, ok := uref.New(fr.mgr)
	if !ok {
		return fmt.Errorf("uref allocation: %w", errAllocationFailure)
	}

	if fr.flowDefOutput != nil {
		u.SetFlowDef(fr.flowDefOutput.Def)
		u.SetHSize(uint64(fr.flowDefOutput.HSize))
		u.SetVSize(uint64(fr.flowDefOutput.VSize))
		if fr.flowDefOutput.HasVisible {
			u.SetHSizeVisible(uint64(fr.flowDefOutput.HSizeVisible))
			u.SetVSizeVisible(uint64(fr.flowDefOutput.VSizeVisible))
		}
		u.SetAspect(fr.flowDefOutput.Aspect)
	}
	u.SetPictureNumber(uint64(pictureNumber))
	if hasVBVDelay {
		u.SetVBVDelay(vbvDelayTicks)
	}
	if hasDuration {
		u.SetDuration(duration)
	}
	if topField {
		u.SetTopField()
	}
	if bottomField {
		u.SetBottomField()
	}
	if tff {
		u.SetTopFieldFirst()
	}
	if progressive {
		u.SetProgressive()
	}
	if discontinuousFrame {
		u.SetDiscontinuity()
	}
	if fr.frameErrorMark {
		u.SetError()
	}

	if fr.pending.PTS.Valid {
		u.SetPTS(fr.pending.PTS.Value)
	}
	if fr.pending.PTSOrig.Valid {
		u.SetPTSOrig(fr.pending.PTSOrig.Value)
	}
	if fr.pending.PTSSys.Valid {
		u.SetPTSSys(fr.pending.PTSSys.Value)
	}
	fr.pending.PTS = Timestamp{}
	fr.pending.PTSOrig = Timestamp{}
	fr.pending.PTSSys = Timestamp{}

	if fr.pending.DTS.Valid {
		u.SetDTS(fr.pending.DTS.Value)
		if hasDuration {
			fr.pending.DTS.Value += duration
		}
	}
	if fr.pending.DTSOrig.Valid {
		u.SetDTSOrig(fr.pending.DTSOrig.Value)
		if hasDuration {
			fr.pending.DTSOrig.Value += duration
		}
	}
	if fr.pending.DTSSys.Valid {
		u.SetDTSSys(fr.pending.DTSSys.Value)
		if hasDuration {
			fr.pending.DTSSys.Value += duration
		}
	}

	randomAccess := false
	if pic.CodingType == CodingTypeI {
		if fr.nextFrameSequence {
			randomAccess = true
		} else if fr.insertSequence && fr.cachedSeq != nil {
			prefix := append([]byte(nil), fr.cachedSeq.Raw...)
			if fr.cachedExt != nil {
				prefix = append(prefix, fr.cachedExt.Raw...)
			}
			if fr.cachedDisp != nil {
				prefix = append(prefix, fr.cachedDisp.Raw...)
			}
			buf = append(prefix, buf...)
			randomAccess = true
		}
		if randomAccess && fr.pending.SystimeRap.Valid {
			fr.hasRandomAccessSystime = true
			fr.randomAccessSystime = fr.pending.SystimeRap.Value
		}
	}
	if randomAccess {
		u.SetRandomAccess()
	}
	if fr.hasRandomAccessSystime {
		u.SetSystimeRap(fr.randomAccessSystime)
	}

	u.Block = buf
	if gop != nil {
		fr.gotDiscontinuity = false
	}

	fr.sink.EmitFrame(u, pic.CodingType)
	if fr.metrics != nil {
		fr.metrics.RecordFrame(len(buf), randomAccess)
	}
	return nil
}
