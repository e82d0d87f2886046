package media

import "sync/atomic"

/*
A SharedBuffer represents a read-only byte buffer that may be accessed
concurrently from multiple goroutines. When a SharedBuffer is passed to a
consumer, the consumer should process the bytes and Release() the buffer as
quickly as possible. If the bytes cannot be processed quickly, the consumer
should make a copy, Release(), then continue processing its local copy.

Example usage:

	func consumer(buf *SharedBuffer) {
		defer buf.Release() // Ensure the shared buffer will be released.
		data := buf.Bytes()
		// Process data...
	}

	func producer(consumers []func(*SharedBuffer)) {
		buf := NewSharedBuffer(generateData(), nil)
		for _, consume := range consumers {
			buf.Hold()
			go consume(buf)
		}
		buf.Release()
	}

The goal is to avoid extraneous allocations/copies when a potentially large
byte buffer (a decoded picture) needs to be consumed by multiple goroutines.
*/
type SharedBuffer struct {
	data []byte

	count   atomic.Int32
	release func([]byte)
}

// NewSharedBuffer returns a buffer with a hold count of one. release, if not
// nil, receives the underlying bytes once the count drops to zero.
func NewSharedBuffer(data []byte, release func([]byte)) *SharedBuffer {
	buf := &SharedBuffer{data: data, release: release}
	buf.count.Store(1)
	return buf
}

// Bytes returns the underlying byte buffer.
func (buf *SharedBuffer) Bytes() []byte {
	return buf.data
}

// Increments the hold count.
func (buf *SharedBuffer) Hold() {
	buf.count.Add(1)
}

// Decrements the hold count. When the hold count reaches zero, the underlying
// byte buffer will be released.
func (buf *SharedBuffer) Release() {
	if buf == nil {
		return
	}
	switch n := buf.count.Add(-1); {
	case n == 0:
		if buf.release != nil {
			buf.release(buf.data)
		}
		buf.data = nil
	case n < 0:
		panic("media.SharedBuffer: released more times than held")
	}
}
