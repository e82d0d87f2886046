package alohadecode

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohadecode/internal/decoder"
	"github.com/lanikai/alohadecode/internal/ffmpeg/ffmock"
	"github.com/lanikai/alohadecode/internal/media"
	"github.com/lanikai/alohadecode/internal/media/h264"
	rtpd "github.com/lanikai/alohadecode/internal/rtp"
)

var (
	testSPS   = []byte{0x67, 0x42, 0x00, 0x1e, 0xf4, 0x05, 0x01, 0xec, 0x80}
	testPPS   = []byte{0x68, 0xce, 0x3c, 0x80}
	testIDR   = []byte{0x65, 0x88, 0x84, 0x00, 0x33}
	testSlice = []byte{0x41, 0x9a, 0x02, 0x04}

	userA = StreamKey{Participant: "userA", Kind: Camera}
)

// newTestPipeline decodes through an in-process fake ffmpeg at 4x2.
func newTestPipeline(t *testing.T) (*Pipeline, *ffmock.Starter) {
	t.Helper()
	starter := ffmock.NewStarter()

	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 4, 2
	cfg.Hardware.Enabled = false

	worker := cfg.workerConfig(nil)
	worker.Start = starter.Start
	p := newPipeline(cfg, decoder.Config{
		Width:          cfg.Width,
		Height:         cfg.Height,
		SoftwareFormat: media.FormatNV12,
		Software:       decoder.NewSoftwareFactory(worker),
	})
	t.Cleanup(func() { p.Close() })
	return p, starter
}

func TestPipelineDecodesFirstFrame(t *testing.T) {
	p, starter := newTestPipeline(t)
	rgb := p.SubscribeRGB(userA, 0)

	// SPS, PPS and an IDR slice, one packet each, marker on the slice.
	p.Deliver(userA, testSPS, 3000, false)
	p.Deliver(userA, testPPS, 3000, false)
	p.Deliver(userA, testIDR, 3000, true)

	var proc *ffmock.Process
	select {
	case proc = <-starter.Started():
	case <-time.After(time.Second):
		t.Fatal("software decoder not started")
	}

	want := h264.AnnexBEncode([][]byte{testSPS, testPPS, testIDR})
	got := make([]byte, len(want))
	_, err := io.ReadFull(proc.Input(), got)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A white 4x2 NV12 picture.
	_, err = proc.Output().Write([]byte{235, 235, 235, 235, 235, 235, 235, 235, 128, 128, 128, 128})
	require.NoError(t, err)

	select {
	case pic := <-rgb:
		assert.Equal(t, media.FormatRGB24, pic.Format)
		assert.Equal(t, uint32(3000), pic.Timestamp)
		assert.Equal(t, bytes.Repeat([]byte{255}, 24), pic.Bytes())
		pic.Release()
	case <-time.After(time.Second):
		t.Fatal("no picture")
	}

	stats, ok := p.Stats(userA)
	require.True(t, ok)
	assert.Equal(t, uint64(1), stats.Assembler.Emitted)
	assert.Equal(t, uint64(1), stats.Decoder.SoftwareFrames)
	assert.Equal(t, decoder.PathSoftware, stats.Decoder.Path)
}

func TestPipelineDeliverPacket(t *testing.T) {
	p, starter := newTestPipeline(t)

	packetizer := rtpd.NewPacketizer(96, 0x1234, 16)
	au := h264.AnnexBEncode([][]byte{testSPS, testPPS, bytes.Repeat(testIDR, 10)})
	packets, err := packetizer.Packetize(au, 6000)
	require.NoError(t, err)
	require.Greater(t, len(packets), 2)

	for _, pkt := range packets {
		p.DeliverPacket(userA, pkt)
	}

	proc := <-starter.Started()
	got := make([]byte, len(au))
	_, err = io.ReadFull(proc.Input(), got)
	require.NoError(t, err)
	assert.Equal(t, au, got)
}

func TestPipelineDropsBeforeKeyframe(t *testing.T) {
	p, starter := newTestPipeline(t)

	p.Deliver(userA, testSlice, 1, true)

	stats, ok := p.Stats(userA)
	require.True(t, ok)
	assert.Equal(t, uint64(1), stats.Assembler.Dropped)
	assert.Zero(t, stats.Assembler.Emitted)
	assert.Empty(t, starter.Processes())
}

func TestPipelineRemoveParticipant(t *testing.T) {
	p, starter := newTestPipeline(t)
	screen := StreamKey{Participant: "userA", Kind: ScreenShare}

	cam := p.SubscribeNV12(userA, 1)
	share := p.SubscribeNV12(screen, 1)
	p.Deliver(userA, testIDR, 1, true)
	p.Deliver(screen, testIDR, 1, true)
	require.Len(t, starter.Processes(), 2)

	p.RemoveParticipant("userA")

	_, ok := <-cam
	assert.False(t, ok)
	_, ok = <-share
	assert.False(t, ok)
	for _, proc := range starter.Processes() {
		assert.True(t, proc.Stopped())
	}
	_, ok = p.Stats(userA)
	assert.False(t, ok)

	// The stream starts over, gated on a keyframe again.
	p.Deliver(userA, testSlice, 2, true)
	stats, _ := p.Stats(userA)
	assert.Equal(t, uint64(1), stats.Assembler.Dropped)
}

func TestPipelineResetStream(t *testing.T) {
	p, _ := newTestPipeline(t)

	p.Deliver(userA, testIDR, 1, true)
	p.ResetStream(userA)
	p.Deliver(userA, testSlice, 2, true)

	stats, _ := p.Stats(userA)
	assert.Equal(t, uint64(1), stats.Assembler.Emitted)
	assert.Equal(t, uint64(1), stats.Assembler.Dropped)
}

func TestPipelineClose(t *testing.T) {
	p, starter := newTestPipeline(t)

	p.Deliver(userA, testIDR, 1, true)
	require.NoError(t, p.Close())
	assert.Equal(t, errClosed, p.Close())
	assert.True(t, starter.Processes()[0].Stopped())

	// Ignored after close.
	p.Deliver(userA, testIDR, 2, true)
	assert.Len(t, starter.Processes(), 1)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 1919
	_, err := New(cfg)
	assert.Error(t, err)
}
