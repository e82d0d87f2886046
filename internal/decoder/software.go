package decoder

import (
	"fmt"
	"sync/atomic"

	"github.com/lanikai/alohadecode/internal/ffmpeg"
)

// SoftwareFactory creates decoders backed by a plain ffmpeg process that
// reads Annex-B access units on stdin and writes raw pictures on stdout.
type SoftwareFactory struct {
	cfg WorkerConfig
	seq atomic.Uint64
}

func NewSoftwareFactory(cfg WorkerConfig) *SoftwareFactory {
	return &SoftwareFactory{cfg: cfg.withDefaults()}
}

// Available is true whenever a process starter is configured. A missing
// binary surfaces as an Init error.
func (f *SoftwareFactory) Available() bool {
	return f.cfg.Start != nil
}

func (f *SoftwareFactory) New() (Decoder, error) {
	if f.cfg.Start == nil {
		return nil, ErrUnavailable
	}
	return &worker{
		name: fmt.Sprintf("software#%d", f.seq.Add(1)),
		cfg:  f.cfg,
		args: softwareArgs,
	}, nil
}

func softwareArgs(p Params) ffmpeg.DecodeArgs {
	return ffmpeg.DecodeArgs{
		PixelFormat: p.Format.String(),
		Width:       p.Width,
		Height:      p.Height,
	}
}
