package main

import (
	"context"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/alohadecode"
	"github.com/lanikai/alohadecode/internal/media/h264"
	"github.com/lanikai/alohadecode/internal/rtp"
)

// H.264 over RTP uses a 90 kHz clock.
const clockRate = 90000

// splitAccessUnits groups the NAL units of an elementary stream into access
// units. A new access unit starts at an AUD, SPS, PPS or SEI that follows a
// slice, and at any slice whose first_mb_in_slice is zero.
func splitAccessUnits(nalus [][]byte) [][][]byte {
	var units [][][]byte
	var cur [][]byte
	hasSlice := false

	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		n := h264.NALU(nalu)
		boundary := false
		switch n.Type() {
		case h264.TypeAUD, h264.TypeSPS, h264.TypePPS, h264.TypeSEI:
			boundary = hasSlice
		case h264.TypeSlice, h264.TypeIDR:
			// first_mb_in_slice is ue(v); a leading 1 bit encodes zero.
			boundary = hasSlice && len(nalu) > 1 && nalu[1]&0x80 != 0
		}
		if boundary {
			units = append(units, cur)
			cur, hasSlice = nil, false
		}
		cur = append(cur, nalu)
		if n.IsVCL() {
			hasSlice = true
		}
	}
	if len(cur) > 0 {
		units = append(units, cur)
	}
	return units
}

// replay packetizes the file's access units and delivers them to the
// pipeline at the given frame rate.
func replay(ctx context.Context, p *alohadecode.Pipeline, key alohadecode.StreamKey, path string, rate float64, loop bool) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read input")
	}
	units := splitAccessUnits(h264.FindNALUnits(data))
	if len(units) == 0 {
		return errors.Errorf("%s: no NAL units", path)
	}
	log.Info("Replaying %d access units from %s", len(units), path)

	packetizer := rtp.NewPacketizer(96, 0x616c6f68, rtp.DefaultMaxPayloadSize)

	var interval time.Duration
	step := uint32(clockRate / 30)
	if rate > 0 {
		interval = time.Duration(float64(time.Second) / rate)
		step = uint32(clockRate / rate)
	}
	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()

	var timestamp uint32
	for {
		for _, unit := range units {
			packets, err := packetizer.Packetize(h264.AnnexBEncode(unit), timestamp)
			if err != nil {
				return err
			}
			for _, pkt := range packets {
				p.DeliverPacket(key, pkt)
			}
			timestamp += step

			if interval > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			} else if ctx.Err() != nil {
				return nil
			}
		}
		if !loop {
			return nil
		}
	}
}
