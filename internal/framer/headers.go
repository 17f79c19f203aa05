package framer

import "fmt"

// CodingType is the MPEG-2 picture_coding_type field.
type CodingType uint8

const (
	CodingTypeI CodingType = 1
	CodingTypeP CodingType = 2
	CodingTypeB CodingType = 3
)

func (c CodingType) String() string {
	switch c {
	case CodingTypeI:
		return "I"
	case CodingTypeP:
		return "P"
	case CodingTypeB:
		return "B"
	default:
		return "?"
	}
}

// PictureStructure is the picture_coding_extension's picture_structure field.
type PictureStructure uint8

const (
	StructureTopField    PictureStructure = 1
	StructureBottomField PictureStructure = 2
	StructureFrame       PictureStructure = 3
)

// SequenceHeader holds the fields FRAMER needs out of sequence_header().
// Raw carries the header's exact on-wire bytes (prefix included) so it can
// be byte-compared against the cached copy and, with insert_sequence, be
// prepended verbatim ahead of a random-access frame.
type SequenceHeader struct {
	HSize, VSize             uint32
	AspectRatioInfo          uint8
	FrameRateCode            uint8
	BitRate                  uint32
	VBVBufferSize            uint16
	ConstrainedParams        bool
	IntraQuantiserPresent    bool
	NonIntraQuantiserPresent bool
	Raw                      []byte
}

// sequenceHeaderLen returns the total byte length of a sequence_header
// starting at buf[0:seqHeaderBaseLen], given its two quantiser-matrix flag
// bits, without requiring the matrices themselves to already be present.
func sequenceHeaderLen(loadIntra, loadNonIntra bool) int {
	n := seqHeaderBaseLen
	if loadIntra {
		n += quantiserMatrixLen
	}
	if loadNonIntra {
		n += quantiserMatrixLen
	}
	return n
}

// peekSequenceHeaderFlags reads just enough of buf (seqHeaderBaseLen bytes)
// to learn whether either quantiser matrix follows, so the caller can size
// its extraction of the full header before parsing it.
func peekSequenceHeaderFlags(buf []byte) (loadIntra, loadNonIntra bool, err error) {
	if len(buf) < seqHeaderBaseLen {
		return false, false, fmt.Errorf("framer: sequence header truncated")
	}
	r := newBitReader(buf[4:seqHeaderBaseLen])
	r.read(12) // horizontal_size_value
	r.read(12) // vertical_size_value
	r.read(4)  // aspect_ratio_information
	r.read(4)  // frame_rate_code
	r.read(18) // bit_rate_value
	r.read(1)  // marker_bit
	r.read(10) // vbv_buffer_size_value
	r.read(1)  // constrained_parameters_flag
	loadIntra = r.flag()
	loadNonIntra = r.flag()
	return loadIntra, loadNonIntra, nil
}

// parseSequenceHeader parses a full sequence_header (prefix included) whose
// length was already sized via peekSequenceHeaderFlags.
func parseSequenceHeader(buf []byte) (*SequenceHeader, error) {
	if len(buf) < seqHeaderBaseLen {
		return nil, fmt.Errorf("framer: sequence header truncated")
	}
	r := newBitReader(buf[4:seqHeaderBaseLen])
	h := &SequenceHeader{}
	h.HSize = r.read(12)
	h.VSize = r.read(12)
	h.AspectRatioInfo = uint8(r.read(4))
	h.FrameRateCode = uint8(r.read(4))
	h.BitRate = r.read(18)
	r.read(1)
	h.VBVBufferSize = uint16(r.read(10))
	h.ConstrainedParams = r.flag()
	h.IntraQuantiserPresent = r.flag()
	h.NonIntraQuantiserPresent = r.flag()
	want := sequenceHeaderLen(h.IntraQuantiserPresent, h.NonIntraQuantiserPresent)
	if len(buf) < want {
		return nil, fmt.Errorf("framer: sequence header truncated")
	}
	h.Raw = append([]byte(nil), buf[:want]...)
	return h, nil
}

// SequenceExtension holds the fields FRAMER needs out of sequence_extension().
type SequenceExtension struct {
	ProfileAndLevel     uint8
	ProgressiveSequence bool
	ChromaFormat        uint8
	HSizeExtension      uint8
	VSizeExtension      uint8
	BitRateExtension    uint16
	VBVBufferSizeExt    uint8
	LowDelay            bool
	FrameRateExtN       uint8
	FrameRateExtD       uint8
	Raw                 []byte
}

func extensionIdentifier(buf []byte) (uint8, error) {
	if len(buf) < 5 {
		return 0, fmt.Errorf("framer: extension truncated")
	}
	return buf[4] >> 4, nil
}

func parseSequenceExtension(buf []byte) (*SequenceExtension, error) {
	if len(buf) < seqExtLen {
		return nil, fmt.Errorf("framer: sequence extension truncated")
	}
	r := newBitReader(buf[4:seqExtLen])
	id := r.read(4)
	if id != extIDSequence {
		return nil, fmt.Errorf("framer: extension identifier %d is not a sequence extension", id)
	}
	e := &SequenceExtension{}
	e.ProfileAndLevel = uint8(r.read(8))
	e.ProgressiveSequence = r.flag()
	e.ChromaFormat = uint8(r.read(2))
	e.HSizeExtension = uint8(r.read(2))
	e.VSizeExtension = uint8(r.read(2))
	e.BitRateExtension = uint16(r.read(12))
	r.read(1)
	e.VBVBufferSizeExt = uint8(r.read(8))
	e.LowDelay = r.flag()
	e.FrameRateExtN = uint8(r.read(2))
	e.FrameRateExtD = uint8(r.read(5))
	e.Raw = append([]byte(nil), buf[:seqExtLen]...)
	return e, nil
}

// SequenceDisplayExtension holds the fields FRAMER needs out of
// sequence_display_extension().
type SequenceDisplayExtension struct {
	VideoFormat             uint8
	ColourDescription       bool
	ColourPrimaries         uint8
	TransferCharacteristics uint8
	MatrixCoefficients      uint8
	DisplayHSize            uint16
	DisplayVSize            uint16
	Raw                     []byte
}

func sequenceDisplayExtensionLen(buf []byte) (int, error) {
	if len(buf) < seqDisplayBaseLen {
		return 0, fmt.Errorf("framer: sequence display extension truncated")
	}
	colour := buf[4]&0x01 != 0 // low bit of the identifier/video_format/colour_description byte
	n := seqDisplayBaseLen
	if colour {
		n += seqDisplayColourLen
	}
	return n, nil
}

func parseSequenceDisplayExtension(buf []byte) (*SequenceDisplayExtension, error) {
	want, err := sequenceDisplayExtensionLen(buf)
	if err != nil {
		return nil, err
	}
	if len(buf) < want {
		return nil, fmt.Errorf("framer: sequence display extension truncated")
	}
	r := newBitReader(buf[4:want])
	id := r.read(4)
	if id != extIDSequenceDisplay {
		return nil, fmt.Errorf("framer: extension identifier %d is not a sequence display extension", id)
	}
	e := &SequenceDisplayExtension{}
	e.VideoFormat = uint8(r.read(3))
	e.ColourDescription = r.flag()
	if e.ColourDescription {
		e.ColourPrimaries = uint8(r.read(8))
		e.TransferCharacteristics = uint8(r.read(8))
		e.MatrixCoefficients = uint8(r.read(8))
	}
	e.DisplayHSize = uint16(r.read(14))
	r.read(1)
	e.DisplayVSize = uint16(r.read(14))
	e.Raw = append([]byte(nil), buf[:want]...)
	return e, nil
}

// GOPHeader holds the fields FRAMER needs out of group_of_pictures_header().
type GOPHeader struct {
	ClosedGOP  bool
	BrokenLink bool
}

func parseGOPHeader(buf []byte) (*GOPHeader, error) {
	if len(buf) < gopHeaderLen {
		return nil, fmt.Errorf("framer: GOP header truncated")
	}
	r := newBitReader(buf[4:gopHeaderLen])
	r.read(25) // time_code
	g := &GOPHeader{}
	g.ClosedGOP = r.flag()
	g.BrokenLink = r.flag()
	return g, nil
}

// PictureHeader holds the fields FRAMER needs out of picture_header().
type PictureHeader struct {
	TemporalReference uint16
	CodingType        CodingType
	VBVDelay          uint16
}

const vbvDelayNone = 0xFFFF

func parsePictureHeader(buf []byte) (*PictureHeader, error) {
	if len(buf) < picHeaderLen {
		return nil, fmt.Errorf("framer: picture header truncated")
	}
	r := newBitReader(buf[4:picHeaderLen])
	p := &PictureHeader{}
	p.TemporalReference = uint16(r.read(10))
	ct := r.read(3)
	if ct < 1 || ct > 3 {
		return nil, fmt.Errorf("framer: invalid picture coding type %d", ct)
	}
	p.CodingType = CodingType(ct)
	p.VBVDelay = uint16(r.read(16))
	return p, nil
}

// PictureCodingExtension holds the fields FRAMER needs out of
// picture_coding_extension(). Composite-display signalling is not read;
// this core never inspects pixel data.
type PictureCodingExtension struct {
	IntraDCPrecision  uint8
	PictureStructure  PictureStructure
	TopFieldFirst     bool
	RepeatFirstField  bool
	ProgressiveFrame  bool
}

func parsePictureCodingExtension(buf []byte) (*PictureCodingExtension, error) {
	if len(buf) < picCodingExtLen {
		return nil, fmt.Errorf("framer: picture coding extension truncated")
	}
	r := newBitReader(buf[4:picCodingExtLen])
	id := r.read(4)
	if id != extIDPictureCoding {
		return nil, fmt.Errorf("framer: extension identifier %d is not a picture coding extension", id)
	}
	r.read(16) // f_code[2][2]
	e := &PictureCodingExtension{}
	e.IntraDCPrecision = uint8(r.read(2))
	e.PictureStructure = PictureStructure(r.read(2))
	e.TopFieldFirst = r.flag()
	r.flag() // frame_pred_frame_dct
	r.flag() // concealment_motion_vectors
	r.flag() // q_scale_type
	r.flag() // intra_vlc_format
	r.flag() // alternate_scan
	e.RepeatFirstField = r.flag()
	r.flag() // chroma_420_type
	e.ProgressiveFrame = r.flag()
	return e, nil
}
