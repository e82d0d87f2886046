// Package decoder turns H.264 access units into decoded pictures, choosing
// per stream between a hardware-accelerated decoder and a software fallback.
package decoder

import (
	"github.com/lanikai/alohadecode/internal/media"
)

// Params configures a decoder before first use.
type Params struct {
	// Working resolution. Decoded pictures are scaled to this size.
	Width  int
	Height int

	// Pixel format of the pictures passed to OnPicture.
	Format media.Format

	// Parameter sets, without start codes. Hardware decoders require both;
	// software decoders find them in the stream.
	SPS []byte
	PPS []byte

	// OnPicture receives each decoded picture on a decoder-owned goroutine.
	// The callee owns one reference and must Release it.
	OnPicture func(*media.Picture)
}

// Decoder is implemented by both the software and hardware paths.
//
// The lifecycle is Init, any number of Decode calls, then Close. Decode
// never blocks on the decoder itself; when the decoder cannot keep up the
// input is dropped and ErrQueueFull returned.
type Decoder interface {
	Init(p Params) error

	// Decode submits data for decoding. The software path takes a whole
	// Annex-B access unit; the hardware path takes one NAL unit without a
	// start code. data is copied.
	Decode(data []byte, timestamp uint32, keyframe bool) error

	// Handle returns an opaque native handle for direct embedding of the
	// decoder's output, or 0 if there is none.
	Handle() uintptr

	Close() error
}

// Factory creates decoders of one kind.
type Factory interface {
	// Available reports whether New can be expected to succeed on this host.
	Available() bool

	New() (Decoder, error)
}

// Unavailable is a Factory that never produces a decoder.
type Unavailable struct{}

func (Unavailable) Available() bool { return false }

func (Unavailable) New() (Decoder, error) { return nil, ErrUnavailable }
