//////////////////////////////////////////////////////////////////////////////
//
// Pipeline turns RTP payloads of H.264 video streams into decoded pictures.
//
// Each stream (participant and kind) gets its own assembler, which rebuilds
// access units from FU-A/STAP-A/single NAL payloads and holds frames back
// until a keyframe has been seen. Complete frames go to the decoder
// manager, which picks a hardware or software decoder for the stream.
//
//////////////////////////////////////////////////////////////////////////////

package alohadecode

import (
	"context"
	"sync"

	"github.com/pion/rtp"

	"github.com/lanikai/alohadecode/internal/decoder"
	"github.com/lanikai/alohadecode/internal/ffmpeg"
	"github.com/lanikai/alohadecode/internal/media"
	rtpd "github.com/lanikai/alohadecode/internal/rtp"
)

type (
	Picture        = media.Picture
	Ready          = decoder.Ready
	AssemblerStats = rtpd.AssemblerStats
	DecoderStats   = decoder.Stats
	HardwareState  = decoder.HardwareState
	PixelFormat    = media.Format
)

type StreamStats struct {
	Assembler AssemblerStats
	Decoder   DecoderStats
}

type Pipeline struct {
	cfg     Config
	manager *decoder.Manager

	mu      sync.RWMutex
	streams map[StreamKey]*ingest
	closed  bool
}

// ingest is the receive side of one stream. Its mutex serializes delivery
// so the assembler and the manager see packets in arrival order.
type ingest struct {
	sync.Mutex
	asm     *rtpd.Assembler
	started bool
	removed bool
}

// New returns a pipeline that decodes with ffmpeg, using VA-API when the
// host supports it.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, _ := media.ParseFormat(cfg.PixelFormat)

	pool := media.NewPool(0)
	ff := ffmpeg.New(cfg.FFmpegPath).
		Timeout(cfg.StopTimeout).
		Prefix("ffmpeg: ").
		StderrLogger(func(line string) { log.Warn("%s", line) })

	worker := cfg.workerConfig(pool)
	worker.Start = ff.Start

	hw := decoder.HardwareFactory(decoder.HardwareConfig{
		Enabled:    cfg.Hardware.Enabled,
		Driver:     cfg.Hardware.Driver,
		Device:     cfg.Hardware.Device,
		FFmpegPath: cfg.FFmpegPath,
		Worker:     worker,
	})

	return newPipeline(cfg, decoder.Config{
		Width:          cfg.Width,
		Height:         cfg.Height,
		SoftwareFormat: format,
		Software:       decoder.NewSoftwareFactory(worker),
		Hardware:       hw,
		Pool:           pool,
	}), nil
}

func newPipeline(cfg Config, dcfg decoder.Config) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		manager: decoder.NewManager(dcfg),
		streams: make(map[StreamKey]*ingest),
	}
	log.Info("Pipeline started: %dx%d, hardware decoding %v",
		dcfg.Width, dcfg.Height, p.manager.HardwareAvailable())
	return p
}

func (p *Pipeline) ingestFor(key StreamKey) *ingest {
	p.mu.RLock()
	in, ok := p.streams[key]
	closed := p.closed
	p.mu.RUnlock()
	if ok || closed {
		return in
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	if in, ok = p.streams[key]; !ok {
		in = &ingest{asm: rtpd.NewAssembler(key.String())}
		p.streams[key] = in
	}
	return in
}

// Deliver feeds the payload of one RTP packet for key into the pipeline.
// endOfFrame is the packet's marker bit. Payloads of one stream must be
// delivered in order; different streams may be delivered concurrently.
// Errors are logged, never returned: a bad packet costs at most its frame.
func (p *Pipeline) Deliver(key StreamKey, payload []byte, timestamp uint32, endOfFrame bool) {
	for {
		in := p.ingestFor(key)
		if in == nil {
			return
		}
		in.Lock()
		if in.removed {
			// Lost a race with RemoveStream; start over with fresh state.
			in.Unlock()
			continue
		}
		p.deliverLocked(key, in, payload, timestamp, endOfFrame)
		in.Unlock()
		return
	}
}

func (p *Pipeline) deliverLocked(key StreamKey, in *ingest, payload []byte, timestamp uint32, endOfFrame bool) {
	frame := in.asm.ProcessPacket(payload, timestamp, endOfFrame)
	if frame == nil {
		return
	}

	if !in.started && p.cfg.Software {
		in.started = true
		if err := p.manager.EnsureSoftwareDecoder(key); err != nil {
			log.Warn("%v", err)
		}
	}
	p.manager.ProcessFrame(key, frame)
}

// DeliverPacket is Deliver for an already parsed RTP packet.
func (p *Pipeline) DeliverPacket(key StreamKey, pkt *rtp.Packet) {
	p.Deliver(key, pkt.Payload, pkt.Timestamp, pkt.Marker)
}

// EnsureSoftwareDecoder starts a software decoder for key ahead of its
// first frame.
func (p *Pipeline) EnsureSoftwareDecoder(key StreamKey) error {
	return p.manager.EnsureSoftwareDecoder(key)
}

// ResetStream forgets partially assembled data and the keyframe-seen state
// of key, e.g. after renegotiation. Decoders are kept.
func (p *Pipeline) ResetStream(key StreamKey) {
	p.mu.RLock()
	in := p.streams[key]
	p.mu.RUnlock()
	if in == nil {
		return
	}
	in.Lock()
	in.asm.Reset()
	in.Unlock()
}

func (p *Pipeline) capacity(n int) int {
	if n > 0 {
		return n
	}
	if p.cfg.SubscriberCapacity > 0 {
		return p.cfg.SubscriberCapacity
	}
	return 1
}

// SubscribeRGB returns a channel of packed RGB24 pictures for key. Every
// received picture must be released. A subscriber that falls behind loses
// its oldest pictures. The channel is closed when the stream is removed.
// A capacity of 0 selects the configured default.
func (p *Pipeline) SubscribeRGB(key StreamKey, capacity int) <-chan *Picture {
	return p.manager.SubscribeRGB(key, p.capacity(capacity))
}

func (p *Pipeline) UnsubscribeRGB(key StreamKey, ch <-chan *Picture) {
	p.manager.UnsubscribeRGB(key, ch)
}

// SubscribeNV12 is SubscribeRGB for pictures in their native NV12 layout.
func (p *Pipeline) SubscribeNV12(key StreamKey, capacity int) <-chan *Picture {
	return p.manager.SubscribeNV12(key, p.capacity(capacity))
}

func (p *Pipeline) UnsubscribeNV12(key StreamKey, ch <-chan *Picture) {
	p.manager.UnsubscribeNV12(key, ch)
}

// SubscribeReady announces hardware decoders for key as they come up.
func (p *Pipeline) SubscribeReady(key StreamKey, capacity int) <-chan Ready {
	return p.manager.SubscribeReady(key, p.capacity(capacity))
}

func (p *Pipeline) UnsubscribeReady(key StreamKey, ch <-chan Ready) {
	p.manager.UnsubscribeReady(key, ch)
}

// RemoveStream stops decoding key and closes its subscriptions.
func (p *Pipeline) RemoveStream(key StreamKey) {
	p.mu.Lock()
	in := p.streams[key]
	delete(p.streams, key)
	p.mu.Unlock()

	if in != nil {
		in.Lock()
		defer in.Unlock()
		in.removed = true
	}
	p.manager.RemoveStream(key)
}

// RemoveParticipant removes every stream of one participant.
func (p *Pipeline) RemoveParticipant(participant string) {
	for _, kind := range []StreamKind{Camera, ScreenShare} {
		p.RemoveStream(StreamKey{Participant: participant, Kind: kind})
	}
}

// Stats reports on one stream. The second result is false if the pipeline
// knows nothing about key.
func (p *Pipeline) Stats(key StreamKey) (StreamStats, bool) {
	var s StreamStats

	p.mu.RLock()
	in := p.streams[key]
	p.mu.RUnlock()
	if in != nil {
		in.Lock()
		s.Assembler = in.asm.Stats()
		in.Unlock()
	}

	ds, ok := p.manager.Stats(key)
	s.Decoder = ds
	return s, ok || in != nil
}

// HardwareState returns the hardware decode state of key.
func (p *Pipeline) HardwareState(key StreamKey) HardwareState {
	return p.manager.HardwareState(key)
}

// Close removes every stream. Later deliveries are ignored.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errClosed
	}
	p.closed = true
	streams := p.streams
	p.streams = make(map[StreamKey]*ingest)
	p.mu.Unlock()

	for key, in := range streams {
		in.Lock()
		in.removed = true
		in.Unlock()
		p.manager.RemoveStream(key)
	}
	return p.manager.Close()
}

// Run closes the pipeline when ctx is done.
func (p *Pipeline) Run(ctx context.Context) error {
	<-ctx.Done()
	p.Close() //nolint:errcheck
	return ctx.Err()
}
