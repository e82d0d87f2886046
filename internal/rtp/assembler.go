package rtp

import (
	"github.com/lanikai/alohadecode/internal/media/h264"
	"github.com/lanikai/alohadecode/internal/packet"
)

// Depacketization of H.264 video streams into Annex-B access units.
// See [RFC 6184](https://tools.ietf.org/html/rfc6184).

// A Frame is one complete access unit: every NAL unit received for a single
// RTP timestamp, in arrival order, each prefixed with a 4-byte start code.
type Frame struct {
	Timestamp uint32
	Data      []byte

	// Set if the access unit contains an IDR slice.
	Keyframe bool
}

type AssemblerStats struct {
	// Frames handed to the caller.
	Emitted uint64

	// Complete frames dropped because no keyframe had been seen yet.
	Dropped uint64

	// Partially built frames discarded because the timestamp changed.
	Discarded uint64

	// Truncated or inconsistent FU-A/STAP-A payloads that were ignored.
	Malformed uint64
}

// Assembler reconstructs access units from the RTP payloads of one stream.
// It holds no locks; each stream must be driven by a single goroutine.
type Assembler struct {
	// Name used in log messages.
	name string

	frame         []byte
	frameHasIDR   bool
	timestamp     uint32
	haveTimestamp bool

	// FU-A scratch buffer for the NAL unit currently being reassembled.
	fragment    []byte
	fragmenting bool

	keyframeSeen bool

	stats AssemblerStats
}

func NewAssembler(name string) *Assembler {
	return &Assembler{name: name}
}

// ProcessPacket consumes the payload of one RTP packet. It returns the
// completed access unit when last is set (the RTP marker bit), the frame is
// non-empty, and the stream has seen a keyframe-bearing NAL unit. Otherwise it
// returns nil.
func (a *Assembler) ProcessPacket(payload []byte, timestamp uint32, last bool) *Frame {
	if len(payload) == 0 {
		return nil
	}

	if a.haveTimestamp && timestamp != a.timestamp {
		// A skipped or reordered timestamp invalidates whatever was in flight.
		if len(a.frame) > 0 || a.fragmenting {
			a.stats.Discarded++
			log.Debug("%s: discarding partial frame %d (%d bytes), next timestamp %d",
				a.name, a.timestamp, len(a.frame), timestamp)
		}
		a.frame = a.frame[:0]
		a.frameHasIDR = false
		a.fragment = a.fragment[:0]
		a.fragmenting = false
	}
	a.timestamp = timestamp
	a.haveTimestamp = true

	switch typ := payload[0] & 0x1f; {
	case typ >= 1 && typ <= 23:
		a.noteType(typ)
		a.appendNALU(payload)

	case typ == h264.TypeFUA:
		a.processFUA(payload)

	case typ == h264.TypeSTAPA:
		a.processSTAPA(payload)

	default:
		// STAP-B, MTAP, FU-B and reserved types are not used by any sender we
		// talk to.
		log.Trace(5, "%s: ignoring payload type %d", a.name, typ)
	}

	if !last || len(a.frame) == 0 {
		return nil
	}

	if !a.keyframeSeen {
		a.stats.Dropped++
		a.frame = a.frame[:0]
		a.frameHasIDR = false
		return nil
	}

	f := &Frame{
		Timestamp: timestamp,
		Data:      a.frame,
		Keyframe:  a.frameHasIDR,
	}
	a.stats.Emitted++
	a.frame = make([]byte, 0, cap(f.Data))
	a.frameHasIDR = false
	return f
}

// noteType records keyframe-bearing NAL units.
func (a *Assembler) noteType(typ byte) {
	if typ == h264.TypeIDR {
		a.frameHasIDR = true
	}
	if !a.keyframeSeen && h264.IsKeyframeType(typ) {
		a.keyframeSeen = true
		log.Info("%s: first keyframe (NAL type %d) after %d dropped frames", a.name, typ, a.stats.Dropped)
	}
}

func (a *Assembler) appendNALU(nalu []byte) {
	a.frame = h264.AppendAnnexB(a.frame, nalu)
}

// See https://tools.ietf.org/html/rfc6184#section-5.8
//
//	+---------------+---------------+
//	|0|1|2|3|4|5|6|7|0|1|2|3|4|5|6|7|
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|F|NRI|  Type   |S|E|R|  Type   |
//	+---------------+---------------+
//	  FU indicator      FU header
func (a *Assembler) processFUA(payload []byte) {
	if len(payload) < 2 {
		a.malformed("FU-A payload of %d bytes", len(payload))
		return
	}
	indicator, header := payload[0], payload[1]
	start := header&0x80 != 0
	end := header&0x40 != 0
	typ := header & 0x1f

	if start {
		if a.fragmenting {
			a.malformed("FU-A start while a fragment of %d bytes is pending", len(a.fragment))
		}
		a.fragment = append(a.fragment[:0], indicator&0xe0|typ)
		a.fragmenting = true
	} else if !a.fragmenting {
		// Lost the starting fragment; nothing to attach this to.
		a.malformed("FU-A continuation without start")
		return
	}
	a.noteType(typ)

	a.fragment = append(a.fragment, payload[2:]...)
	if len(a.fragment) > h264.MaxNALUSize {
		a.malformed("FU-A fragment exceeds %d bytes", h264.MaxNALUSize)
		a.fragment = a.fragment[:0]
		a.fragmenting = false
		return
	}

	if end {
		a.appendNALU(a.fragment)
		a.fragment = a.fragment[:0]
		a.fragmenting = false
	}
}

// See https://tools.ietf.org/html/rfc6184#section-5.7.1
func (a *Assembler) processSTAPA(payload []byte) {
	r := packet.NewReader(payload)
	r.Skip(1) // STAP-A NAL header

	var nalus [][]byte
	for r.Remaining() > 0 {
		size, ok := r.ReadUint16()
		if !ok {
			a.malformed("STAP-A with %d trailing bytes", r.Remaining())
			break
		}
		if size == 0 {
			// Final padding.
			break
		}
		nalu, ok := r.ReadSlice(int(size))
		if !ok {
			a.malformed("STAP-A unit of %d bytes, %d remaining", size, r.Remaining())
			break
		}
		nalus = append(nalus, nalu)
	}

	for _, nalu := range nalus {
		a.noteType(h264.NALU(nalu).Type())
	}
	for _, nalu := range nalus {
		a.appendNALU(nalu)
	}
}

func (a *Assembler) malformed(format string, args ...interface{}) {
	a.stats.Malformed++
	log.Debug("%s: ignoring malformed unit: "+format, append([]interface{}{a.name}, args...)...)
}

// Reset clears reconstruction state and the keyframe flag. Use it when the
// stream restarts, e.g. after renegotiation. Stats are lifetime counters and
// survive a Reset.
func (a *Assembler) Reset() {
	a.frame = a.frame[:0]
	a.frameHasIDR = false
	a.fragment = a.fragment[:0]
	a.fragmenting = false
	a.timestamp = 0
	a.haveTimestamp = false
	a.keyframeSeen = false
}

// Dropped returns the number of complete frames dropped before the first
// keyframe.
func (a *Assembler) Dropped() uint64 {
	return a.stats.Dropped
}

// KeyframeSeen reports whether the stream has produced an IDR, SPS or PPS.
func (a *Assembler) KeyframeSeen() bool {
	return a.keyframeSeen
}

func (a *Assembler) Stats() AssemblerStats {
	return a.stats
}
