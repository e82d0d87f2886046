package rtp

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohadecode/internal/media/h264"
)

func TestPacketizeAggregatesParameterSets(t *testing.T) {
	p := NewPacketizer(96, 0x1234, 1200)
	au := h264.AnnexBEncode([][]byte{testSPS, testPPS, testIDR})

	pkts, err := p.Packetize(au, 9000)
	require.NoError(t, err)
	require.Len(t, pkts, 2)

	assert.EqualValues(t, h264.TypeSTAPA, pkts[0].Payload[0]&0x1f)
	assert.EqualValues(t, 0x60, pkts[0].Payload[0]&0x60, "NRI is max of aggregated units")
	assert.False(t, pkts[0].Marker)
	assert.Equal(t, testIDR, pkts[1].Payload)
	assert.True(t, pkts[1].Marker)

	for i, pkt := range pkts {
		assert.EqualValues(t, 9000, pkt.Timestamp)
		assert.EqualValues(t, 0x1234, pkt.SSRC)
		assert.EqualValues(t, 1+i, pkt.SequenceNumber)
	}
}

func TestPacketizeFragmentsLargeUnits(t *testing.T) {
	p := NewPacketizer(96, 1, 100)
	nalu := makeNALU(0x65, 1000)

	pkts, err := p.Packetize(h264.AnnexBEncode([][]byte{nalu}), 1)
	require.NoError(t, err)
	require.True(t, len(pkts) > 1)

	for i, pkt := range pkts {
		assert.True(t, len(pkt.Payload) <= 100)
		assert.EqualValues(t, h264.TypeFUA, pkt.Payload[0]&0x1f)
		assert.Equal(t, i == 0, pkt.Payload[1]&0x80 != 0, "start bit on packet %d", i)
		assert.Equal(t, i == len(pkts)-1, pkt.Payload[1]&0x40 != 0, "end bit on packet %d", i)
		assert.Equal(t, i == len(pkts)-1, pkt.Marker)
	}
}

func TestPacketizeEmpty(t *testing.T) {
	p := NewPacketizer(96, 1, 0)
	_, err := p.Packetize(nil, 1)
	assert.Error(t, err)
}

// Packets survive a trip through the RTP wire format and reassemble into the
// original access units.
func TestPacketizerAssemblerRoundTrip(t *testing.T) {
	p := NewPacketizer(96, 42, 300)
	a := NewAssembler("roundtrip")

	aus := [][]byte{
		h264.AnnexBEncode([][]byte{testSPS, testPPS, makeNALU(0x65, 4000)}),
		h264.AnnexBEncode([][]byte{makeNALU(0x41, 250)}),
		h264.AnnexBEncode([][]byte{makeNALU(0x41, 900), makeNALU(0x01, 50)}),
	}

	for i, au := range aus {
		ts := uint32(i * 3000)
		pkts, err := p.Packetize(au, ts)
		require.NoError(t, err)

		var got *Frame
		for _, pkt := range pkts {
			raw, err := pkt.Marshal()
			require.NoError(t, err)

			var in rtp.Packet
			require.NoError(t, in.Unmarshal(raw))
			got = a.ProcessPacket(in.Payload, in.Timestamp, in.Marker)
		}
		require.NotNil(t, got, "access unit %d", i)
		assert.Equal(t, au, got.Data, "access unit %d", i)
	}
	assert.Zero(t, a.Stats().Malformed)
}
