package ffmpeg

import (
	"strconv"
)

// DecodeArgs describes a raw H.264 to raw video filter invocation.
type DecodeArgs struct {
	// Output pixel format as ffmpeg names it, e.g. "nv12" or "rgb24".
	PixelFormat string
	Width       int
	Height      int

	// HWAccel selects a hardware decoder ("vaapi"); empty for software.
	HWAccel string
	// HWDevice is the device path passed to the hardware decoder.
	HWDevice string
}

// Args renders the command line. The input is an Annex-B elementary stream
// on stdin; the output is headerless frames of exactly the requested size
// on stdout. Probing and buffering are disabled to keep latency low.
func (a DecodeArgs) Args() []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-probesize", "32",
		"-analyzeduration", "0",
	}
	if a.HWAccel != "" {
		args = append(args, "-hwaccel", a.HWAccel, "-hwaccel_output_format", a.HWAccel)
		if a.HWDevice != "" {
			args = append(args, "-hwaccel_device", a.HWDevice)
		}
	}
	args = append(args,
		"-f", "h264",
		"-i", "pipe:0",
	)
	if a.HWAccel != "" {
		// Download decoded surfaces to system memory.
		args = append(args, "-vf", "hwdownload,format=nv12")
	}
	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", a.PixelFormat,
		"-s", strconv.Itoa(a.Width)+"x"+strconv.Itoa(a.Height),
		"pipe:1",
	)
	return args
}
