package media

import (
	"fmt"

	"github.com/pkg/errors"
)

// Format identifies the memory layout of a decoded picture.
type Format int

const (
	// Packed 8-bit R, G, B.
	FormatRGB24 Format = iota
	// Full-resolution luma plane followed by one interleaved UV plane at
	// half resolution in both axes.
	FormatNV12
)

func (f Format) String() string {
	switch f {
	case FormatRGB24:
		return "rgb24"
	case FormatNV12:
		return "nv12"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat accepts the names returned by Format.String.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "rgb24", "rgb":
		return FormatRGB24, nil
	case "nv12":
		return FormatNV12, nil
	}
	return 0, errors.Errorf("unknown pixel format %q", s)
}

// FrameSize returns the number of bytes in a w x h picture of this format.
func (f Format) FrameSize(w, h int) int {
	switch f {
	case FormatRGB24:
		return 3 * w * h
	case FormatNV12:
		return w*h + 2*(w/2)*(h/2)
	}
	return 0
}

// Picture is one decoded frame. Its pixel bytes are shared between all
// subscribers that received it; each holder must call Release exactly once.
type Picture struct {
	Format    Format
	Width     int
	Height    int
	Timestamp uint32

	buf *SharedBuffer
}

// NewPicture wraps data without pooling.
func NewPicture(format Format, width, height int, timestamp uint32, data []byte) *Picture {
	return &Picture{
		Format:    format,
		Width:     width,
		Height:    height,
		Timestamp: timestamp,
		buf:       NewSharedBuffer(data, nil),
	}
}

// Bytes returns the pixel data. It must not be modified, and must not be used
// after Release.
func (p *Picture) Bytes() []byte {
	return p.buf.Bytes()
}

func (p *Picture) Hold() {
	p.buf.Hold()
}

func (p *Picture) Release() {
	if p == nil {
		return
	}
	p.buf.Release()
}

func (p *Picture) String() string {
	return fmt.Sprintf("%s %dx%d ts=%d", p.Format, p.Width, p.Height, p.Timestamp)
}
