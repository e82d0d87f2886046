package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReaderBounds(t *testing.T) {
	r := NewReader([]byte{0x01, 0x00, 0x03, 0xaa, 0xbb})

	b, ok := r.ReadUint8()
	assert.True(t, ok)
	assert.EqualValues(t, 0x01, b)

	n, ok := r.ReadUint16()
	assert.True(t, ok)
	assert.EqualValues(t, 3, n)

	// Asking for more than is left must fail without consuming anything.
	_, ok = r.ReadSlice(int(n))
	assert.False(t, ok)
	assert.Equal(t, 2, r.Remaining())

	s, ok := r.ReadSlice(2)
	assert.True(t, ok)
	assert.Equal(t, []byte{0xaa, 0xbb}, s)

	_, ok = r.ReadUint8()
	assert.False(t, ok)
	assert.Error(t, r.CheckRemaining(1))
}

func TestWriterDetach(t *testing.T) {
	w := NewWriterSize(4)
	w.WriteByte(0x18)
	w.WriteUint16(0x0102)
	w.WriteSlice([]byte{0xff, 0xfe})
	w.WriteUint32(0xdeadbeef)

	out := w.Detach()
	assert.Equal(t, []byte{0x18, 0x01, 0x02, 0xff, 0xfe, 0xde, 0xad, 0xbe, 0xef}, out)
	assert.Equal(t, 0, w.Length())

	// The detached slice must not be clobbered by later writes.
	w.WriteByte(0x00)
	assert.EqualValues(t, 0x18, out[0])
}
