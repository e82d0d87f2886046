package color

import (
	"github.com/pkg/errors"
)

var (
	ErrOddDimensions = errors.New("color: width and height must be positive and even")
	ErrShortBuffer   = errors.New("color: buffer too small for dimensions")
)

// I420Size returns the number of bytes in a w x h I420 or NV12 picture.
func I420Size(w, h int) int {
	return w*h + 2*(w/2)*(h/2)
}

// RGBSize returns the number of bytes in a w x h packed RGB24 picture.
func RGBSize(w, h int) int {
	return 3 * w * h
}

func checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 || w%2 != 0 || h%2 != 0 {
		return ErrOddDimensions
	}
	return nil
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func rgbToY(r, g, b int) uint8 {
	return clamp(((66*r + 129*g + 25*b + 128) >> 8) + 16)
}

func rgbToU(r, g, b int) uint8 {
	return clamp(((-38*r - 74*g + 112*b + 128) >> 8) + 128)
}

func rgbToV(r, g, b int) uint8 {
	return clamp(((112*r - 94*g - 18*b + 128) >> 8) + 128)
}

// yuvToRGB writes one pixel into dst[0:3].
func yuvToRGB(dst []byte, y, u, v uint8) {
	c := int(y) - 16
	d := int(u) - 128
	e := int(v) - 128
	dst[0] = clamp((298*c + 409*e + 128) >> 8)
	dst[1] = clamp((298*c - 100*d - 208*e + 128) >> 8)
	dst[2] = clamp((298*c + 516*d + 128) >> 8)
}

// RGBToI420 converts packed RGB24 to planar I420: the full-resolution luma
// plane, then U, then V at half resolution in both axes. Chroma is taken
// from the top-left pixel of each 2x2 block.
func RGBToI420(rgb []byte, w, h int) ([]byte, error) {
	return packedToI420(rgb, w, h, 0, 2)
}

// BGRToI420 is RGBToI420 for packed BGR24 input.
func BGRToI420(bgr []byte, w, h int) ([]byte, error) {
	return packedToI420(bgr, w, h, 2, 0)
}

// ri and bi give the offsets of the red and blue samples within a pixel.
func packedToI420(src []byte, w, h int, ri, bi int) ([]byte, error) {
	if err := checkDimensions(w, h); err != nil {
		return nil, err
	}
	if len(src) < RGBSize(w, h) {
		return nil, ErrShortBuffer
	}

	dst := make([]byte, I420Size(w, h))
	yPlane := dst[:w*h]
	uPlane := dst[w*h : w*h+(w/2)*(h/2)]
	vPlane := dst[w*h+(w/2)*(h/2):]

	for row := 0; row < h; row++ {
		line := src[row*w*3 : (row+1)*w*3]
		for col := 0; col < w; col++ {
			px := line[col*3 : col*3+3]
			r, g, b := int(px[ri]), int(px[1]), int(px[bi])
			yPlane[row*w+col] = rgbToY(r, g, b)

			if row%2 == 0 && col%2 == 0 {
				i := (row/2)*(w/2) + col/2
				uPlane[i] = rgbToU(r, g, b)
				vPlane[i] = rgbToV(r, g, b)
			}
		}
	}
	return dst, nil
}

// I420ToRGB converts planar I420 to packed RGB24.
func I420ToRGB(yuv []byte, w, h int) ([]byte, error) {
	if err := checkDimensions(w, h); err != nil {
		return nil, err
	}
	dst := make([]byte, RGBSize(w, h))
	if err := I420ToRGBInto(dst, yuv, w, h); err != nil {
		return nil, err
	}
	return dst, nil
}

// I420ToRGBInto is I420ToRGB writing into a caller-provided buffer of at
// least RGBSize(w, h) bytes.
func I420ToRGBInto(dst, yuv []byte, w, h int) error {
	if err := checkDimensions(w, h); err != nil {
		return err
	}
	if len(yuv) < I420Size(w, h) || len(dst) < RGBSize(w, h) {
		return ErrShortBuffer
	}

	cw := w / 2
	yPlane := yuv[:w*h]
	uPlane := yuv[w*h : w*h+cw*(h/2)]
	vPlane := yuv[w*h+cw*(h/2) : I420Size(w, h)]

	return forEachRowBand(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			out := dst[y*w*3 : (y+1)*w*3]
			luma := yPlane[y*w : (y+1)*w]
			chroma := (y / 2) * cw
			for x := 0; x < w; x++ {
				yuvToRGB(out[x*3:], luma[x], uPlane[chroma+x/2], vPlane[chroma+x/2])
			}
		}
	})
}

// NV12ToRGB converts semi-planar NV12 (luma plane followed by one
// interleaved UV plane) to packed RGB24. Scan-lines are converted in parallel.
func NV12ToRGB(nv12 []byte, w, h int) ([]byte, error) {
	if err := checkDimensions(w, h); err != nil {
		return nil, err
	}
	dst := make([]byte, RGBSize(w, h))
	if err := NV12ToRGBInto(dst, nv12, w, h); err != nil {
		return nil, err
	}
	return dst, nil
}

// NV12ToRGBInto is NV12ToRGB writing into a caller-provided buffer of at
// least RGBSize(w, h) bytes.
func NV12ToRGBInto(dst, nv12 []byte, w, h int) error {
	if err := checkDimensions(w, h); err != nil {
		return err
	}
	if len(nv12) < I420Size(w, h) || len(dst) < RGBSize(w, h) {
		return ErrShortBuffer
	}

	yPlane := nv12[:w*h]
	uvPlane := nv12[w*h : I420Size(w, h)]

	return forEachRowBand(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			out := dst[y*w*3 : (y+1)*w*3]
			luma := yPlane[y*w : (y+1)*w]
			chroma := uvPlane[(y/2)*w : (y/2)*w+w]
			for x := 0; x < w; x++ {
				c := (x / 2) * 2
				yuvToRGB(out[x*3:], luma[x], chroma[c], chroma[c+1])
			}
		}
	})
}

// BGRToRGB swaps the first and third channel of every packed pixel. A
// trailing partial pixel is copied unchanged.
func BGRToRGB(bgr []byte) []byte {
	dst := make([]byte, len(bgr))
	n := len(bgr) / 3 * 3
	for i := 0; i < n; i += 3 {
		dst[i] = bgr[i+2]
		dst[i+1] = bgr[i+1]
		dst[i+2] = bgr[i]
	}
	copy(dst[n:], bgr[n:])
	return dst
}

// I420ToNV12 interleaves the U and V planes of an I420 picture.
func I420ToNV12(i420 []byte, w, h int) ([]byte, error) {
	if err := checkDimensions(w, h); err != nil {
		return nil, err
	}
	if len(i420) < I420Size(w, h) {
		return nil, ErrShortBuffer
	}
	n := (w / 2) * (h / 2)
	dst := make([]byte, I420Size(w, h))
	copy(dst, i420[:w*h])
	u := i420[w*h : w*h+n]
	v := i420[w*h+n : w*h+2*n]
	uv := dst[w*h:]
	for i := 0; i < n; i++ {
		uv[2*i] = u[i]
		uv[2*i+1] = v[i]
	}
	return dst, nil
}

// NV12ToI420 splits the interleaved chroma plane of an NV12 picture.
func NV12ToI420(nv12 []byte, w, h int) ([]byte, error) {
	if err := checkDimensions(w, h); err != nil {
		return nil, err
	}
	if len(nv12) < I420Size(w, h) {
		return nil, ErrShortBuffer
	}
	n := (w / 2) * (h / 2)
	dst := make([]byte, I420Size(w, h))
	copy(dst, nv12[:w*h])
	uv := nv12[w*h : w*h+2*n]
	u := dst[w*h : w*h+n]
	v := dst[w*h+n:]
	for i := 0; i < n; i++ {
		u[i] = uv[2*i]
		v[i] = uv[2*i+1]
	}
	return dst, nil
}
