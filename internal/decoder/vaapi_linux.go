//go:build linux

package decoder

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/lanikai/alohadecode/internal/ffmpeg"
	"github.com/lanikai/alohadecode/internal/media"
)

const (
	defaultHardwareDriver = "vaapi"

	// DefaultRenderNode is the first DRM render node.
	DefaultRenderNode = "/dev/dri/renderD128"
)

func init() {
	RegisterHardware("vaapi", newVAAPIFactory)
}

// vaapiFactory decodes through ffmpeg's VA-API hwaccel on a DRM render node.
// The decoder's native handle is a file descriptor for that node.
type vaapiFactory struct {
	cfg HardwareConfig

	// Overridable for tests.
	hwaccels func() ([]string, error)

	once      sync.Once
	available bool
	seq       atomic.Uint64
}

func newVAAPIFactory(cfg HardwareConfig) Factory {
	if cfg.Device == "" {
		cfg.Device = DefaultRenderNode
	}
	bin := cfg.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	return &vaapiFactory{
		cfg:      cfg,
		hwaccels: ffmpeg.New(bin).HWAccels,
	}
}

func (f *vaapiFactory) Available() bool {
	f.once.Do(func() {
		f.available = f.probe()
	})
	return f.available
}

func (f *vaapiFactory) probe() bool {
	if f.cfg.Worker.Start == nil {
		return false
	}
	if err := unix.Access(f.cfg.Device, unix.R_OK|unix.W_OK); err != nil {
		log.Info("VA-API unavailable: %s: %v", f.cfg.Device, err)
		return false
	}
	methods, err := f.hwaccels()
	if err != nil {
		log.Info("VA-API unavailable: %v", err)
		return false
	}
	for _, m := range methods {
		if m == "vaapi" {
			log.Info("VA-API decoding available on %s", f.cfg.Device)
			return true
		}
	}
	log.Info("VA-API unavailable: ffmpeg supports %v", methods)
	return false
}

func (f *vaapiFactory) New() (Decoder, error) {
	if !f.Available() {
		return nil, ErrUnavailable
	}

	fd, err := unix.Open(f.cfg.Device, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", f.cfg.Device)
	}

	device := f.cfg.Device
	return &worker{
		name:          fmt.Sprintf("vaapi#%d", f.seq.Add(1)),
		cfg:           f.cfg.Worker,
		requireParams: true,
		perNALU:       true,
		handle:        uintptr(fd),
		release: func() error {
			return unix.Close(fd)
		},
		args: func(p Params) ffmpeg.DecodeArgs {
			return ffmpeg.DecodeArgs{
				PixelFormat: media.FormatNV12.String(),
				Width:       p.Width,
				Height:      p.Height,
				HWAccel:     "vaapi",
				HWDevice:    device,
			}
		},
	}, nil
}
