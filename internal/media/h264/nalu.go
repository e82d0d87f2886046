package h264

// NAL unit types. See ITU-T H.264 Table 7-1 and
// https://tools.ietf.org/html/rfc6184#section-5.2
const (
	TypeSlice = 1
	TypeIDR   = 5
	TypeSEI   = 6
	TypeSPS   = 7
	TypePPS   = 8
	TypeAUD   = 9

	// RTP payload structures; never appear inside an Annex-B stream.
	TypeSTAPA = 24
	TypeFUA   = 28
)

type NALU []byte

func (nalu NALU) ForbiddenBit() byte {
	return nalu[0] & 0x80 >> 7
}

func (nalu NALU) NRI() byte {
	return nalu[0] & 0x60 >> 5
}

func (nalu NALU) Type() byte {
	return nalu[0] & 0x1f
}

// IsVCL reports whether the unit carries slice data that a decoder consumes.
func (nalu NALU) IsVCL() bool {
	if len(nalu) == 0 {
		return false
	}
	t := nalu.Type()
	return t == TypeSlice || t == TypeIDR
}

// IsKeyframeType reports whether a NAL unit of type t marks the start of a
// decodable stream: an IDR slice or one of the parameter sets.
func IsKeyframeType(t byte) bool {
	return t == TypeIDR || t == TypeSPS || t == TypePPS
}
