package rtp

import (
	"github.com/pion/rtp"
	errors "golang.org/x/xerrors"

	"github.com/lanikai/alohadecode/internal/media/h264"
	"github.com/lanikai/alohadecode/internal/packet"
)

// RTP packetization of H.264 video streams, the sending-side counterpart of
// Assembler. See [RFC 6184](https://tools.ietf.org/html/rfc6184).

// DefaultMaxPayloadSize keeps packets under a typical path MTU once IP, UDP,
// RTP and SRTP overhead is added.
const DefaultMaxPayloadSize = 1200

var errEmptyAccessUnit = errors.New("empty access unit")

type Packetizer struct {
	payloadType uint8
	ssrc        uint32
	sequence    uint16

	// Maximum RTP payload size.
	maxSize int

	// Accumulated STAP-A packet. This is initialized when a SPS, PPS or SEI is
	// encountered, and saved until the next coded picture needs to be sent.
	stap *packet.Writer

	out []*rtp.Packet
}

func NewPacketizer(payloadType uint8, ssrc uint32, maxSize int) *Packetizer {
	if maxSize <= 3 {
		maxSize = DefaultMaxPayloadSize
	}
	return &Packetizer{
		payloadType: payloadType,
		ssrc:        ssrc,
		sequence:    1,
		maxSize:     maxSize,
		stap:        packet.NewWriterSize(maxSize),
	}
}

// Packetize splits one Annex-B access unit into RTP packets stamped with
// timestamp. The marker bit is set on the last packet.
func (p *Packetizer) Packetize(accessUnit []byte, timestamp uint32) ([]*rtp.Packet, error) {
	nalus := h264.FindNALUnits(accessUnit)
	if len(nalus) == 0 {
		return nil, errEmptyAccessUnit
	}

	p.out = nil
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		if len(nalu) > h264.MaxNALUSize {
			return nil, errors.Errorf("NAL unit of %d bytes exceeds maximum of %d", len(nalu), h264.MaxNALUSize)
		}
		switch h264.NALU(nalu).Type() {
		case h264.TypeSEI, h264.TypeSPS, h264.TypePPS:
			// Merge consecutive SEI/SPS/PPS into a single STAP-A packet.
			p.appendSTAP(nalu, timestamp)
		default:
			p.flushSTAP(timestamp)
			p.packetize(nalu, timestamp)
		}
	}
	p.flushSTAP(timestamp)

	if len(p.out) == 0 {
		return nil, errEmptyAccessUnit
	}
	p.out[len(p.out)-1].Marker = true
	return p.out, nil
}

func (p *Packetizer) emit(timestamp uint32, payload []byte) {
	p.out = append(p.out, &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    p.payloadType,
			SequenceNumber: p.sequence,
			Timestamp:      timestamp,
			SSRC:           p.ssrc,
		},
		Payload: payload,
	})
	p.sequence++
}

// See https://tools.ietf.org/html/rfc6184#section-5.7.1
func (p *Packetizer) appendSTAP(nalu []byte, timestamp uint32) {
	n := len(nalu)
	if 3+n > p.maxSize {
		// Too big to aggregate with anything.
		p.flushSTAP(timestamp)
		p.packetize(nalu, timestamp)
		return
	}
	if p.stap.Length()+2+n > p.maxSize {
		p.flushSTAP(timestamp)
	}

	if p.stap.Length() == 0 {
		// Initialize NALU of type STAP-A, with F and NRI set to 0.
		p.stap.WriteByte(h264.TypeSTAPA)
	}
	p.stap.WriteUint16(uint16(n))
	p.stap.WriteSlice(nalu)

	stap := p.stap.Bytes()

	// STAP-A forbidden bit is bitwise-OR of all forbidden bits.
	stap[0] |= nalu[0] & 0x80

	// STAP-A NRI value is maximum of all NRI values.
	nri := nalu[0] & 0x60
	if nri > stap[0]&0x60 {
		stap[0] = (stap[0] &^ 0x60) | nri
	}
}

func (p *Packetizer) flushSTAP(timestamp uint32) {
	if p.stap.Length() > 0 {
		p.emit(timestamp, p.stap.Detach())
	}
}

func (p *Packetizer) packetize(nalu []byte, timestamp uint32) {
	// If it fits, send the NALU as a single RTP packet.
	// See https://tools.ietf.org/html/rfc6184#section-5.6
	if len(nalu) <= p.maxSize {
		p.emit(timestamp, append([]byte(nil), nalu...))
		return
	}

	// Otherwise, fragment the NALU into multiple FU-A packets.
	// See https://tools.ietf.org/html/rfc6184#section-5.8
	indicator := nalu[0]&0xe0 | h264.TypeFUA
	typ := h264.NALU(nalu).Type()
	start := byte(0x80)
	end := byte(0)
	w := packet.NewWriterSize(p.maxSize)
	for i := 1; i < len(nalu); i += p.maxSize - 2 {
		tail := i + p.maxSize - 2
		if tail >= len(nalu) {
			tail = len(nalu)
			end = 0x40
		}

		w.WriteByte(indicator)         // FU indicator
		w.WriteByte(start | end | typ) // FU header
		w.WriteSlice(nalu[i:tail])
		p.emit(timestamp, w.Detach())

		start = 0
	}
}
