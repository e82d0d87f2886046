package packet

import (
	"encoding/binary"
)

var networkOrder = binary.BigEndian

// Writer appends to a byte slice, growing it as needed. Reset() keeps the
// allocated capacity so one Writer can serialize many packets.
type Writer struct {
	buffer []byte
}

func NewWriter(buffer []byte) *Writer {
	return &Writer{buffer[:0]}
}

func NewWriterSize(n int) *Writer {
	return &Writer{make([]byte, 0, n)}
}

func (w *Writer) WriteByte(v byte) error {
	w.buffer = append(w.buffer, v)
	return nil
}

func (w *Writer) WriteUint16(v uint16) {
	w.buffer = append(w.buffer, byte(v>>8), byte(v))
}

func (w *Writer) WriteUint32(v uint32) {
	w.buffer = append(w.buffer, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (w *Writer) WriteSlice(p []byte) {
	w.buffer = append(w.buffer, p...)
}

// Return the number of bytes written so far.
func (w *Writer) Length() int {
	return len(w.buffer)
}

// Return a slice of the bytes written so far. The slice is only valid until
// the next write or Reset.
func (w *Writer) Bytes() []byte {
	return w.buffer
}

// Detach returns the bytes written so far and hands ownership to the caller.
// The Writer starts over with a fresh buffer of the same capacity.
func (w *Writer) Detach() []byte {
	b := w.buffer
	w.buffer = make([]byte, 0, cap(b))
	return b
}

func (w *Writer) Reset() {
	w.buffer = w.buffer[:0]
}
