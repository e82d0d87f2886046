package decoder

import (
	"github.com/pkg/errors"
)

var (
	// ErrDecoderGone is returned by Decode once the decoder can no longer
	// accept input, e.g. because its process exited. The decoder should be
	// closed and replaced.
	ErrDecoderGone = errors.New("decoder gone")

	ErrNotInitialized     = errors.New("decoder not initialized")
	ErrAlreadyInitialized = errors.New("decoder already initialized")
	ErrMissingParams      = errors.New("SPS and PPS required")
	ErrInvalidGeometry    = errors.New("width and height must be positive and even")
	ErrQueueFull          = errors.New("decode queue full")
	ErrStalled            = errors.New("decoder produced no output")
	ErrUnavailable        = errors.New("decoder not available")
)
