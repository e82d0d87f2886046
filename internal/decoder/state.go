package decoder

// HardwareState tracks one stream's hardware decode path.
type HardwareState int

const (
	// Hardware decoding is disabled or not supported on this host.
	HardwareUnavailable HardwareState = iota
	// Neither SPS nor PPS has been seen.
	HardwareNoParams
	// One of SPS and PPS has been seen.
	HardwarePartialParams
	// Both parameter sets are cached and a decoder is being created, or
	// will be on the next frame after a live decoder was lost.
	HardwareInitializing
	// A hardware decoder is live and receiving slices.
	HardwareReady
	// Initialization failed, or the decoder died before its first picture.
	// Terminal until the stream is removed; frames go to software.
	HardwareFailed
)

var hardwareStates = [...]string{
	HardwareUnavailable:   "unavailable",
	HardwareNoParams:      "no-params",
	HardwarePartialParams: "partial-params",
	HardwareInitializing:  "initializing",
	HardwareReady:         "ready",
	HardwareFailed:        "failed",
}

func (s HardwareState) String() string {
	if s >= 0 && int(s) < len(hardwareStates) {
		return hardwareStates[s]
	}
	return "unknown"
}

// Path names the decoder that handled a stream's most recent frame.
type Path int

const (
	PathNone Path = iota
	PathHardware
	PathSoftware
)

func (p Path) String() string {
	switch p {
	case PathHardware:
		return "hardware"
	case PathSoftware:
		return "software"
	default:
		return "none"
	}
}

// Stats summarizes one stream.
type Stats struct {
	Path     Path
	Hardware HardwareState

	// Geometry from the most recent SPS, if it could be parsed.
	Width  int
	Height int

	// Access units handed to each path.
	HardwareFrames uint64
	SoftwareFrames uint64

	// Pictures delivered to subscribers.
	Pictures uint64

	// Frames no decoder accepted.
	Dropped uint64

	// Subscriber counts.
	RGBSubscribers  int
	NV12Subscribers int
}

// Ready announces a live hardware decoder.
type Ready struct {
	Key StreamKey

	// Opaque native handle for direct embedding (a DRM render node file
	// descriptor for VA-API).
	Handle uintptr

	// Coded geometry from the SPS; zero if it could not be parsed.
	Profile uint
	Level   uint
	Width   int
	Height  int
}
