package decoder

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameSplitter(t *testing.T) {
	// Three frames of 6 bytes, each filled with its index.
	stream := bytes.Join([][]byte{
		bytes.Repeat([]byte{1}, 6),
		bytes.Repeat([]byte{2}, 6),
		bytes.Repeat([]byte{3}, 6),
	}, nil)

	for _, chunks := range [][]int{
		{18},
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		{5, 8, 5},
		{7, 11},
		{12, 4, 2},
		{0, 18},
	} {
		var got [][]byte
		s := NewFrameSplitter(6, func(frame []byte) {
			got = append(got, append([]byte(nil), frame...))
		})

		p := stream
		for _, n := range chunks {
			written, err := s.Write(p[:n])
			assert.NoError(t, err)
			assert.Equal(t, n, written)
			p = p[n:]
		}

		if assert.Len(t, got, 3, "chunks %v", chunks) {
			for i, frame := range got {
				assert.Equal(t, bytes.Repeat([]byte{byte(i + 1)}, 6), frame)
			}
		}
		assert.Zero(t, s.Buffered())
	}
}

func TestFrameSplitterHoldsPartialFrame(t *testing.T) {
	n := 0
	s := NewFrameSplitter(4, func([]byte) { n++ })

	s.Write([]byte{1, 2, 3, 4, 5, 6}) //nolint:errcheck
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, s.Buffered())

	s.Reset()
	s.Write([]byte{1, 2}) //nolint:errcheck
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, s.Buffered())
}
