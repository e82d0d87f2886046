package color

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uniformBlocks builds a (2*len(colors)) x 2 RGB image in which every 2x2
// block holds one color.
func uniformBlocks(colors [][3]byte) (rgb []byte, w, h int) {
	w, h = 2*len(colors), 2
	rgb = make([]byte, RGBSize(w, h))
	for row := 0; row < h; row++ {
		for i, c := range colors {
			for k := 0; k < 2; k++ {
				off := (row*w + 2*i + k) * 3
				copy(rgb[off:off+3], c[:])
			}
		}
	}
	return rgb, w, h
}

func TestRGBToI420KnownColors(t *testing.T) {
	rgb, w, h := uniformBlocks([][3]byte{
		{0, 0, 0},
		{255, 255, 255},
		{255, 0, 0},
	})

	yuv, err := RGBToI420(rgb, w, h)
	require.NoError(t, err)
	require.Len(t, yuv, w*h+2*(w/2)*(h/2))

	assert.Equal(t, []byte{16, 16, 235, 235, 82, 82}, yuv[:w])
	assert.Equal(t, []byte{16, 16, 235, 235, 82, 82}, yuv[w:2*w])

	u := yuv[w*h : w*h+3]
	v := yuv[w*h+3:]
	assert.Equal(t, []byte{128, 128, 90}, u)
	assert.Equal(t, []byte{128, 128, 240}, v)
}

func TestBGRToI420MatchesRGB(t *testing.T) {
	rgb := make([]byte, RGBSize(8, 4))
	rand.New(rand.NewSource(1)).Read(rgb)

	fromRGB, err := RGBToI420(rgb, 8, 4)
	require.NoError(t, err)
	fromBGR, err := BGRToI420(BGRToRGB(rgb), 8, 4)
	require.NoError(t, err)
	assert.Equal(t, fromRGB, fromBGR)
}

func TestChromaSampledFromTopLeft(t *testing.T) {
	// Only pixel (0,0) of the 2x2 block is red.
	rgb := make([]byte, RGBSize(2, 2))
	rgb[0] = 255

	yuv, err := RGBToI420(rgb, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{82, 16, 16, 16, 90, 240}, yuv)
}

func TestI420ToRGBExtremes(t *testing.T) {
	// Y=16 -> black, Y=235 -> white, neutral chroma.
	yuv := []byte{16, 16, 16, 16, 128, 128}
	rgb, err := I420ToRGB(yuv, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 12), rgb)

	yuv = []byte{235, 235, 235, 235, 128, 128}
	rgb, err = I420ToRGB(yuv, 2, 2)
	require.NoError(t, err)
	for _, c := range rgb {
		assert.Equal(t, byte(255), c)
	}
}

func TestRoundTripWithinTolerance(t *testing.T) {
	var colors [][3]byte
	for r := 0; r <= 255; r += 15 {
		for g := 0; g <= 255; g += 15 {
			for b := 0; b <= 255; b += 15 {
				colors = append(colors, [3]byte{byte(r), byte(g), byte(b)})
			}
		}
	}
	rgb, w, h := uniformBlocks(colors)

	yuv, err := RGBToI420(rgb, w, h)
	require.NoError(t, err)
	back, err := I420ToRGB(yuv, w, h)
	require.NoError(t, err)
	require.Len(t, back, len(rgb))

	for i := range rgb {
		d := int(rgb[i]) - int(back[i])
		if d < -2 || d > 2 {
			t.Fatalf("pixel %d channel %d: %d -> %d", i/3, i%3, rgb[i], back[i])
		}
	}
}

func TestNV12ToRGBMatchesI420(t *testing.T) {
	const w, h = 1280, 720
	i420 := make([]byte, I420Size(w, h))
	rand.New(rand.NewSource(2)).Read(i420)

	nv12, err := I420ToNV12(i420, w, h)
	require.NoError(t, err)

	fromI420, err := I420ToRGB(i420, w, h)
	require.NoError(t, err)
	fromNV12, err := NV12ToRGB(nv12, w, h)
	require.NoError(t, err)
	assert.Equal(t, fromI420, fromNV12)

	// Spot-check against the scalar formula with the NV12 chroma index.
	px := make([]byte, 3)
	for _, p := range [][2]int{{0, 0}, {1, 1}, {639, 359}, {1279, 719}, {17, 400}} {
		x, y := p[0], p[1]
		ci := w*h + (y/2)*w + (x/2)*2
		yuvToRGB(px, nv12[y*w+x], nv12[ci], nv12[ci+1])
		off := (y*w + x) * 3
		assert.Equal(t, px, fromNV12[off:off+3], "pixel (%d,%d)", x, y)
	}
}

func TestNV12ToRGBIntoReusesBuffer(t *testing.T) {
	nv12 := []byte{235, 235, 235, 235, 128, 128}
	dst := make([]byte, 12)
	require.NoError(t, NV12ToRGBInto(dst, nv12, 2, 2))
	assert.Equal(t, byte(255), dst[11])

	assert.Equal(t, ErrShortBuffer, NV12ToRGBInto(dst[:11], nv12, 2, 2))
}

func TestPlaneRelayoutRoundTrip(t *testing.T) {
	i420 := make([]byte, I420Size(6, 4))
	rand.New(rand.NewSource(3)).Read(i420)

	nv12, err := I420ToNV12(i420, 6, 4)
	require.NoError(t, err)
	assert.Equal(t, i420[:24], nv12[:24])
	assert.Equal(t, i420[24], nv12[24])
	assert.Equal(t, i420[30], nv12[25])

	back, err := NV12ToI420(nv12, 6, 4)
	require.NoError(t, err)
	assert.Equal(t, i420, back)
}

func TestBGRToRGB(t *testing.T) {
	assert.Equal(t, []byte{3, 2, 1, 6, 5, 4, 7}, BGRToRGB([]byte{1, 2, 3, 4, 5, 6, 7}))
	assert.Empty(t, BGRToRGB(nil))
}

func TestRejectsBadDimensions(t *testing.T) {
	buf := make([]byte, 64)
	for _, d := range [][2]int{{3, 2}, {2, 3}, {0, 2}, {-2, 2}} {
		_, err := RGBToI420(buf, d[0], d[1])
		assert.Equal(t, ErrOddDimensions, err, "%v", d)
		_, err = I420ToRGB(buf, d[0], d[1])
		assert.Equal(t, ErrOddDimensions, err, "%v", d)
		_, err = NV12ToRGB(buf, d[0], d[1])
		assert.Equal(t, ErrOddDimensions, err, "%v", d)
	}

	_, err := RGBToI420(buf[:11], 2, 2)
	assert.Equal(t, ErrShortBuffer, err)
	_, err = NV12ToI420(buf[:5], 2, 2)
	assert.Equal(t, ErrShortBuffer, err)

	// Callers wrap these; the sentinel stays recoverable.
	_, err = I420ToRGB(buf, 3, 3)
	wrapped := errors.Wrap(err, "convert frame")
	assert.Equal(t, ErrOddDimensions, errors.Cause(wrapped))
	assert.True(t, errors.Is(wrapped, ErrOddDimensions))
}

func BenchmarkNV12ToRGBAt720P(b *testing.B) {
	const w, h = 1280, 720
	nv12 := make([]byte, I420Size(w, h))
	dst := make([]byte, RGBSize(w, h))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NV12ToRGBInto(dst, nv12, w, h)
	}
}

func BenchmarkRGBToI420At720P(b *testing.B) {
	const w, h = 1280, 720
	rgb := make([]byte, RGBSize(w, h))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = RGBToI420(rgb, w, h)
	}
}
