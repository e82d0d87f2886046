package h264

import (
	"github.com/nareix/joy4/codec/h264parser"
)

// SPSInfo is the subset of sequence parameter set fields the pipeline uses.
type SPSInfo struct {
	Profile uint
	Level   uint
	Width   int
	Height  int
}

// ParseSPS extracts the coded picture geometry from an SPS NAL unit,
// including its one-byte NAL header.
func ParseSPS(sps []byte) (info SPSInfo, err error) {
	if len(sps) < 4 || NALU(sps).Type() != TypeSPS {
		return info, errNotSPS
	}
	// Treat a panic in the bit reader as a parse failure.
	defer func() {
		if r := recover(); r != nil {
			err = errNotSPS
		}
	}()
	parsed, err := h264parser.ParseSPS(sps)
	if err != nil {
		return info, err
	}
	return SPSInfo{
		Profile: parsed.ProfileIdc,
		Level:   parsed.LevelIdc,
		Width:   int(parsed.Width),
		Height:  int(parsed.Height),
	}, nil
}
