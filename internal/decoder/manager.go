package decoder

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/lanikai/alohadecode/internal/media"
	"github.com/lanikai/alohadecode/internal/media/h264"
	"github.com/lanikai/alohadecode/internal/rtp"
)

// Default working resolution, large enough for camera and screen share
// streams.
const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

type Config struct {
	// Working resolution for every decoder.
	Width  int
	Height int

	// Output format of software decoders. Hardware decoders always
	// produce NV12.
	SoftwareFormat media.Format

	Software Factory
	Hardware Factory

	Pool *media.Pool
}

// Manager routes access units to a hardware or software decoder per stream
// and fans decoded pictures out to subscribers.
//
// Operations on different streams run concurrently; operations on the same
// stream are serialized.
type Manager struct {
	cfg         Config
	hwAvailable bool

	mu      sync.RWMutex
	streams map[StreamKey]*streamState
}

func NewManager(cfg Config) *Manager {
	if cfg.Width == 0 && cfg.Height == 0 {
		cfg.Width, cfg.Height = DefaultWidth, DefaultHeight
	}
	if cfg.Software == nil {
		cfg.Software = Unavailable{}
	}
	if cfg.Hardware == nil {
		cfg.Hardware = Unavailable{}
	}
	if cfg.Pool == nil {
		cfg.Pool = media.NewPool(0)
	}
	return &Manager{
		cfg:         cfg,
		hwAvailable: cfg.Hardware.Available(),
		streams:     make(map[StreamKey]*streamState),
	}
}

// HardwareAvailable reports whether the hardware path is usable at all.
func (m *Manager) HardwareAvailable() bool {
	return m.hwAvailable
}

func (m *Manager) lookup(key StreamKey) *streamState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.streams[key]
}

func (m *Manager) getOrCreate(key StreamKey) *streamState {
	if st := m.lookup(key); st != nil {
		return st
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.streams[key]
	if !ok {
		st = newStreamState(key, m.cfg.Pool, m.hwAvailable)
		m.streams[key] = st
	}
	return st
}

// lockLive returns the state for key locked, creating it if needed. The
// retry covers a removal that raced with the lookup.
func (m *Manager) lockLive(key StreamKey) *streamState {
	for {
		st := m.getOrCreate(key)
		st.mu.Lock()
		if !st.removed {
			return st
		}
		st.mu.Unlock()
	}
}

// EnsureSoftwareDecoder starts a software decoder for key unless one is
// already running. The request is remembered: if the decoder later dies, a
// replacement is started on the stream's next frame.
func (m *Manager) EnsureSoftwareDecoder(key StreamKey) error {
	st := m.lockLive(key)
	defer st.mu.Unlock()

	st.wantSoftware = true
	return m.ensureSoftware(st)
}

// Called with st.mu held.
func (m *Manager) ensureSoftware(st *streamState) error {
	if st.software != nil {
		return nil
	}
	d, err := m.cfg.Software.New()
	if err != nil {
		return errors.Wrapf(err, "%v: software decoder", st.key)
	}
	err = d.Init(Params{
		Width:     m.cfg.Width,
		Height:    m.cfg.Height,
		Format:    m.cfg.SoftwareFormat,
		OnPicture: st.deliver,
	})
	if err != nil {
		d.Close()
		return errors.Wrapf(err, "%v: software decoder", st.key)
	}
	st.software = d
	log.Info("%v: software decoder started", st.key)
	return nil
}

// ProcessFrame hands one complete access unit to the stream's hardware
// decoder if it takes it, otherwise to its software decoder. Frames no
// decoder accepts are dropped.
func (m *Manager) ProcessFrame(key StreamKey, frame *rtp.Frame) {
	if frame == nil || len(frame.Data) == 0 {
		return
	}

	st := m.lockLive(key)
	defer st.mu.Unlock()

	if m.tryHardware(st, frame) {
		st.path = PathHardware
		st.hardwareFrames.Add(1)
		return
	}

	if st.software == nil && st.wantSoftware {
		if err := m.ensureSoftware(st); err != nil {
			log.Warn("%v", err)
		}
	}
	if st.software == nil {
		st.path = PathNone
		m.drop(st, "no decoder")
		return
	}

	err := st.software.Decode(frame.Data, frame.Timestamp, frame.Keyframe)
	switch {
	case err == nil:
		st.path = PathSoftware
		st.softwareFrames.Add(1)
	case errors.Is(err, ErrDecoderGone):
		// Replaced on the next frame.
		st.software.Close()
		st.software = nil
		st.path = PathNone
		m.drop(st, "software decoder gone")
	default:
		m.drop(st, err.Error())
	}
}

// Called with st.mu held.
func (m *Manager) drop(st *streamState, reason string) {
	st.dropped.Add(1)
	if !st.loggedDrop {
		st.loggedDrop = true
		log.Warn("%v: dropping frames: %s", st.key, reason)
		return
	}
	log.Trace(1, "%v: dropped frame: %s", st.key, reason)
}

// tryHardware reports whether the hardware path consumed the frame. Called
// with st.mu held.
func (m *Manager) tryHardware(st *streamState, frame *rtp.Frame) bool {
	if !m.hwAvailable || st.hwState == HardwareFailed {
		return false
	}

	nalus := h264.FindNALUnits(frame.Data)
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		switch h264.NALU(nalu).Type() {
		case h264.TypeSPS:
			st.sps = append(st.sps[:0], nalu...)
			if info, err := h264.ParseSPS(nalu); err == nil {
				st.spsInfo = info
			}
		case h264.TypePPS:
			st.pps = append(st.pps[:0], nalu...)
		}
	}

	if st.hardware == nil {
		switch {
		case st.sps == nil && st.pps == nil:
			st.hwState = HardwareNoParams
			return false
		case st.sps == nil || st.pps == nil:
			st.hwState = HardwarePartialParams
			return false
		}
		if !m.startHardware(st) {
			return false
		}
	}

	sent := 0
	for _, nalu := range nalus {
		if !h264.NALU(nalu).IsVCL() {
			continue
		}
		keyframe := h264.NALU(nalu).Type() == h264.TypeIDR
		err := st.hardware.Decode(nalu, frame.Timestamp, keyframe)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ErrDecoderGone):
			m.loseHardware(st, err)
			return sent > 0
		default:
			log.Debug("%v: hardware decode: %v", st.key, err)
		}
	}
	return sent > 0
}

// Called with st.mu held and both parameter sets cached.
func (m *Manager) startHardware(st *streamState) bool {
	st.hwState = HardwareInitializing
	st.hwPictures.Store(0)

	d, err := m.cfg.Hardware.New()
	if err != nil {
		m.failHardware(st, err)
		return false
	}
	err = d.Init(Params{
		Width:     m.cfg.Width,
		Height:    m.cfg.Height,
		Format:    media.FormatNV12,
		SPS:       st.sps,
		PPS:       st.pps,
		OnPicture: st.deliverHardware,
	})
	if err != nil {
		d.Close()
		m.failHardware(st, err)
		return false
	}

	st.hardware = d
	st.hwState = HardwareReady
	info := st.spsInfo
	log.Info("%v: hardware decoder ready (profile %d level %d, %dx%d)",
		st.key, info.Profile, info.Level, info.Width, info.Height)
	st.ready.Write(Ready{
		Key:     st.key,
		Handle:  d.Handle(),
		Profile: info.Profile,
		Level:   info.Level,
		Width:   info.Width,
		Height:  info.Height,
	})
	return true
}

// loseHardware handles a live hardware decoder that stopped accepting input.
// One that never produced a picture counts as an initialization failure.
// Otherwise it is closed and recreated from the cached parameter sets on the
// next frame. Called with st.mu held.
func (m *Manager) loseHardware(st *streamState, err error) {
	if st.hwPictures.Load() == 0 {
		m.failHardware(st, err)
		return
	}
	st.hardware.Close()
	st.hardware = nil
	st.hwState = HardwareInitializing
	log.Warn("%v: hardware decoder lost, recreating on next frame: %v", st.key, err)
}

// failHardware makes the hardware path unusable for the rest of the
// stream's life. Called with st.mu held.
func (m *Manager) failHardware(st *streamState, err error) {
	if st.hardware != nil {
		st.hardware.Close()
		st.hardware = nil
	}
	st.hwState = HardwareFailed
	log.Warn("%v: hardware decoding failed, using software: %v", st.key, err)
}

// RemoveStream disposes of both decoders, forgets cached parameter sets and
// the failure flag, and closes the stream's subscriber channels.
func (m *Manager) RemoveStream(key StreamKey) {
	m.mu.Lock()
	st, ok := m.streams[key]
	delete(m.streams, key)
	m.mu.Unlock()
	if !ok {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.dispose()
	log.Debug("%v: removed", key)
}

// RemoveParticipant removes every stream kind of one participant.
func (m *Manager) RemoveParticipant(participant string) {
	for _, kind := range []StreamKind{Camera, ScreenShare} {
		m.RemoveStream(StreamKey{Participant: participant, Kind: kind})
	}
}

// ClearAll removes every known stream.
func (m *Manager) ClearAll() {
	for _, key := range m.Keys() {
		m.RemoveStream(key)
	}
}

// Keys returns every stream the manager currently tracks.
func (m *Manager) Keys() []StreamKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]StreamKey, 0, len(m.streams))
	for key := range m.streams {
		keys = append(keys, key)
	}
	return keys
}

// SubscribeRGB delivers the stream's decoded pictures as packed RGB24. Each
// received picture must be released. The channel is closed when the stream
// is removed.
func (m *Manager) SubscribeRGB(key StreamKey, capacity int) <-chan *media.Picture {
	return m.getOrCreate(key).rgb.Subscribe(capacity)
}

func (m *Manager) UnsubscribeRGB(key StreamKey, ch <-chan *media.Picture) {
	if st := m.lookup(key); st != nil {
		st.rgb.Unsubscribe(ch)
	}
}

// SubscribeNV12 delivers the stream's decoded pictures in the decoder's
// native NV12 layout.
func (m *Manager) SubscribeNV12(key StreamKey, capacity int) <-chan *media.Picture {
	return m.getOrCreate(key).nv12.Subscribe(capacity)
}

func (m *Manager) UnsubscribeNV12(key StreamKey, ch <-chan *media.Picture) {
	if st := m.lookup(key); st != nil {
		st.nv12.Unsubscribe(ch)
	}
}

// SubscribeReady announces hardware decoders as they come up.
func (m *Manager) SubscribeReady(key StreamKey, capacity int) <-chan Ready {
	return m.getOrCreate(key).ready.Subscribe(capacity)
}

func (m *Manager) UnsubscribeReady(key StreamKey, ch <-chan Ready) {
	if st := m.lookup(key); st != nil {
		st.ready.Unsubscribe(ch)
	}
}

// Stats reports on one stream. The second result is false for unknown keys.
func (m *Manager) Stats(key StreamKey) (Stats, bool) {
	st := m.lookup(key)
	if st == nil {
		return Stats{}, false
	}
	return st.stats(), true
}

// HardwareState returns the hardware path state for key.
func (m *Manager) HardwareState(key StreamKey) HardwareState {
	st := m.lookup(key)
	if st == nil {
		if m.hwAvailable {
			return HardwareNoParams
		}
		return HardwareUnavailable
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.hwState
}

// Close removes every stream.
func (m *Manager) Close() error {
	m.ClearAll()
	return nil
}
