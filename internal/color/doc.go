// Package color converts between packed RGB/BGR and 4:2:0 YUV layouts (I420
// and NV12) using fixed-point BT.601 studio-range coefficients.
//
// All functions are stateless and safe for concurrent use on disjoint
// buffers. Width and height must be positive and even; anything else is
// rejected with ErrOddDimensions.
//
// The conversions are not exact inverses: chroma subsampling and integer
// truncation lose low bits, so an RGB -> I420 -> RGB round trip of a uniform
// 2x2 block may differ from the input by a few units per channel.
package color
