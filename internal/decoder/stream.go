package decoder

import (
	"sync"
	"sync/atomic"

	"github.com/lanikai/alohadecode/internal/color"
	"github.com/lanikai/alohadecode/internal/media"
	"github.com/lanikai/alohadecode/internal/media/h264"
)

// streamState is everything the manager knows about one StreamKey. The
// mutex serializes frame processing and removal for the key; the flows and
// counters are safe to use without it, which lets decoder goroutines deliver
// pictures while a removal holds the lock and waits for them to exit.
type streamState struct {
	key  StreamKey
	pool *media.Pool

	mu           sync.Mutex
	software     Decoder
	wantSoftware bool
	hardware     Decoder
	hwState      HardwareState
	sps          []byte
	pps          []byte
	spsInfo      h264.SPSInfo
	path         Path
	removed      bool
	loggedDrop   bool

	rgb   media.Flow[*media.Picture]
	nv12  media.Flow[*media.Picture]
	ready media.Flow[Ready]

	// Pictures from the current hardware decoder.
	hwPictures atomic.Uint64

	hardwareFrames atomic.Uint64
	softwareFrames atomic.Uint64
	pictures       atomic.Uint64
	dropped        atomic.Uint64
}

func newStreamState(key StreamKey, pool *media.Pool, hwAvailable bool) *streamState {
	st := &streamState{key: key, pool: pool}
	st.rgb.Retain = (*media.Picture).Hold
	st.rgb.Drop = (*media.Picture).Release
	st.nv12.Retain = (*media.Picture).Hold
	st.nv12.Drop = (*media.Picture).Release
	if hwAvailable {
		st.hwState = HardwareNoParams
	}
	return st
}

// deliver fans a decoded picture out to subscribers. It runs on decoder
// goroutines and must not take st.mu.
func (st *streamState) deliver(pic *media.Picture) {
	defer pic.Release()
	st.pictures.Add(1)

	switch pic.Format {
	case media.FormatNV12:
		st.nv12.Write(pic)
		if st.rgb.Len() == 0 {
			return
		}
		rgb := st.pool.NewPicture(media.FormatRGB24, pic.Width, pic.Height, pic.Timestamp)
		if err := color.NV12ToRGBInto(rgb.Bytes(), pic.Bytes(), pic.Width, pic.Height); err != nil {
			log.Warn("%v: %v", st.key, err)
			rgb.Release()
			return
		}
		st.rgb.Write(rgb)
		rgb.Release()
	case media.FormatRGB24:
		st.rgb.Write(pic)
	}
}

func (st *streamState) deliverHardware(pic *media.Picture) {
	st.hwPictures.Add(1)
	st.deliver(pic)
}

// dispose closes both decoders and every subscriber channel. Called with
// st.mu held.
func (st *streamState) dispose() {
	st.removed = true
	if st.hardware != nil {
		if err := st.hardware.Close(); err != nil {
			log.Debug("%v: close hardware decoder: %v", st.key, err)
		}
		st.hardware = nil
	}
	if st.software != nil {
		if err := st.software.Close(); err != nil {
			log.Debug("%v: close software decoder: %v", st.key, err)
		}
		st.software = nil
	}
	st.sps, st.pps = nil, nil
	st.rgb.Close()
	st.nv12.Close()
	st.ready.Close()
}

func (st *streamState) stats() Stats {
	st.mu.Lock()
	s := Stats{
		Path:     st.path,
		Hardware: st.hwState,
		Width:    st.spsInfo.Width,
		Height:   st.spsInfo.Height,
	}
	st.mu.Unlock()

	s.HardwareFrames = st.hardwareFrames.Load()
	s.SoftwareFrames = st.softwareFrames.Load()
	s.Pictures = st.pictures.Load()
	s.Dropped = st.dropped.Load()
	s.RGBSubscribers = st.rgb.Len()
	s.NV12Subscribers = st.nv12.Len()
	return s
}
