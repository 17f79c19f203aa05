package framer

import (
	"fmt"

	"github.com/studoret/upipe/internal/dict"
)

// frameRateTable is indexed by the sequence header's 4-bit frame_rate_code.
// Entries 0, 14 and 15 are invalid; 9-13 are legacy/non-standard values
// recognized for robustness, not emitted by any modern encoder.
var frameRateTable = [16]dict.Rational{
	{Num: 0, Den: 0},
	{Num: 24000, Den: 1001},
	{Num: 24, Den: 1},
	{Num: 25, Den: 1},
	{Num: 30000, Den: 1001},
	{Num: 30, Den: 1},
	{Num: 50, Den: 1},
	{Num: 60000, Den: 1001},
	{Num: 60, Den: 1},
	{Num: 15000, Den: 1001},
	{Num: 5000, Den: 1001},
	{Num: 10000, Den: 1001},
	{Num: 12000, Den: 1001},
	{Num: 15000, Den: 1001},
	{Num: 0, Den: 0},
	{Num: 0, Den: 0},
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func simplify(num, den int64) dict.Rational {
	g := gcd(num, den)
	return dict.Rational{Num: num / g, Den: den / g}
}

// Max octet rates per MPEG-2 level, expressed in bits/s in the standard
// and converted here to octets/s (÷8), matching how OctetRate below is
// already expressed.
const (
	levelLow      = 0xA
	levelMain     = 0x8
	levelHigh1440 = 0x6
	levelHigh     = 0x4
)

var maxOctetRateByLevel = map[uint8]uint64{
	levelLow:      4_000_000 / 8,
	levelMain:     15_000_000 / 8,
	levelHigh1440: 60_000_000 / 8,
	levelHigh:     80_000_000 / 8,
}

// FlowDef is the derived output flow definition: the parameters a
// downstream consumer needs to configure itself for a decoded picture
// stream, plus the flow-definition string identifying the pixel layout.
type FlowDef struct {
	Def string

	HSize, VSize               uint32
	HSizeVisible, VSizeVisible uint32
	HasVisible                 bool

	Aspect    dict.Rational
	FrameRate dict.Rational

	OctetRate uint64
	CPBBuffer uint64

	Planes string // "420", "422" or "444"

	HasProfileLevel bool
	ProfileLevel    uint8
	HasMaxOctetRate bool
	MaxOctetRate    uint64

	LowDelay            bool
	ProgressiveSequence bool
}

// deriveFlowDef derives a FlowDef from a parsed sequence header and its
// optional extensions: aspect ratio, frame rate, chroma sampling, octet
// rate, and CPB buffer size. ext and disp may be nil (no SEQX/SEQDX seen
// yet); a nil ext means the sequence is base-profile MPEG-1-style and
// chroma defaults to 4:2:0.
func deriveFlowDef(seq *SequenceHeader, ext *SequenceExtension, disp *SequenceDisplayExtension) (*FlowDef, error) {
	f := &FlowDef{}

	f.HSize = seq.HSize
	f.VSize = seq.VSize
	if ext != nil {
		f.HSize |= uint32(ext.HSizeExtension) << 12
		f.VSize |= uint32(ext.VSizeExtension) << 12
	}

	switch seq.AspectRatioInfo {
	case 1:
		f.Aspect = dict.Rational{Num: 1, Den: 1}
	case 2:
		f.Aspect = simplify(int64(seq.VSize)*4, int64(seq.HSize)*3)
	case 3:
		f.Aspect = simplify(int64(seq.VSize)*16, int64(seq.HSize)*9)
	case 4:
		f.Aspect = simplify(int64(seq.VSize)*221, int64(seq.HSize)*100)
	default:
		return nil, fmt.Errorf("framer: invalid aspect_ratio_information %d", seq.AspectRatioInfo)
	}

	rate := frameRateTable[seq.FrameRateCode]
	if rate.Num == 0 {
		return nil, fmt.Errorf("framer: invalid frame_rate_code %d", seq.FrameRateCode)
	}
	if ext != nil {
		rate = simplify(rate.Num*int64(ext.FrameRateExtN+1), rate.Den*int64(ext.FrameRateExtD+1))
		f.ProgressiveSequence = ext.ProgressiveSequence
	}
	f.FrameRate = rate

	f.OctetRate = uint64(seq.BitRate) * 400 / 8
	f.CPBBuffer = uint64(seq.VBVBufferSize) * 16 * 1024 / 8

	chroma := uint8(1) // default 4:2:0 when no sequence extension is present
	if ext != nil {
		chroma = ext.ChromaFormat
		level := ext.ProfileAndLevel & 0x0F
		max, ok := maxOctetRateByLevel[level]
		if !ok {
			return nil, fmt.Errorf("framer: unrecognized level %x in profile_and_level_indication", level)
		}
		f.HasProfileLevel = true
		f.ProfileLevel = ext.ProfileAndLevel
		f.HasMaxOctetRate = true
		f.MaxOctetRate = max
		f.LowDelay = ext.LowDelay
	}

	switch chroma {
	case 1:
		f.Planes = "420"
	case 2:
		f.Planes = "422"
	case 3:
		f.Planes = "444"
	default:
		return nil, fmt.Errorf("framer: invalid chroma_format %d", chroma)
	}
	f.Def = "block.mpeg2video.pic.planar8_" + f.Planes + "."

	if disp != nil {
		f.HSizeVisible = uint32(disp.DisplayHSize)
		f.VSizeVisible = uint32(disp.DisplayVSize)
		f.HasVisible = true
	}

	return f, nil
}
