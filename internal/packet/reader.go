package packet

import (
	"fmt"
)

// Reader consumes a byte slice front to back. Unlike a bytes.Reader it never
// copies: slices returned by ReadSlice alias the underlying buffer. Every
// read is bounds-checked; a failed read leaves the offset unchanged.
type Reader struct {
	buffer []byte
	offset int
}

func NewReader(buffer []byte) *Reader {
	return &Reader{buffer, 0}
}

func (r *Reader) ReadUint8() (byte, bool) {
	if r.Remaining() < 1 {
		return 0, false
	}
	v := r.buffer[r.offset]
	r.offset++
	return v, true
}

func (r *Reader) ReadUint16() (uint16, bool) {
	if r.Remaining() < 2 {
		return 0, false
	}
	v := networkOrder.Uint16(r.buffer[r.offset:])
	r.offset += 2
	return v, true
}

func (r *Reader) ReadUint32() (uint32, bool) {
	if r.Remaining() < 4 {
		return 0, false
	}
	v := networkOrder.Uint32(r.buffer[r.offset:])
	r.offset += 4
	return v, true
}

func (r *Reader) ReadSlice(n int) ([]byte, bool) {
	if n < 0 || r.Remaining() < n {
		return nil, false
	}
	v := r.buffer[r.offset : r.offset+n]
	r.offset += n
	return v, true
}

func (r *Reader) Skip(n int) bool {
	if n < 0 || r.Remaining() < n {
		return false
	}
	r.offset += n
	return true
}

func (r *Reader) ReadRemaining() []byte {
	v := r.buffer[r.offset:]
	r.offset += len(v)
	return v
}

// Return the number of bytes left in the buffer.
func (r *Reader) Remaining() int {
	return len(r.buffer) - r.offset
}

func (r *Reader) CheckRemaining(needed int) error {
	if r.Remaining() < needed {
		return fmt.Errorf("%d bytes remaining, %d needed", r.Remaining(), needed)
	}
	return nil
}
