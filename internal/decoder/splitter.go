package decoder

// FrameSplitter cuts a headerless stream of raw pictures into pictures of a
// fixed byte size. Reads from a pipe may end anywhere, so bytes are buffered
// until a whole picture is available.
type FrameSplitter struct {
	size int
	buf  []byte
	emit func(frame []byte)
}

// NewFrameSplitter calls emit with every complete frame of size bytes. The
// slice passed to emit is only valid for the duration of the call.
func NewFrameSplitter(size int, emit func(frame []byte)) *FrameSplitter {
	if size <= 0 {
		panic("decoder.FrameSplitter: frame size must be positive")
	}
	return &FrameSplitter{
		size: size,
		buf:  make([]byte, 0, size),
		emit: emit,
	}
}

func (s *FrameSplitter) Write(p []byte) (int, error) {
	n := len(p)

	// Top up a partial frame first.
	if len(s.buf) > 0 {
		k := s.size - len(s.buf)
		if k > len(p) {
			k = len(p)
		}
		s.buf = append(s.buf, p[:k]...)
		p = p[k:]
		if len(s.buf) < s.size {
			return n, nil
		}
		s.emit(s.buf)
		s.buf = s.buf[:0]
	}

	// Whole frames straight from the input.
	for len(p) >= s.size {
		s.emit(p[:s.size])
		p = p[s.size:]
	}

	s.buf = append(s.buf, p...)
	return n, nil
}

// Buffered returns the number of bytes of an incomplete frame held back.
func (s *FrameSplitter) Buffered() int {
	return len(s.buf)
}

// Reset discards any partial frame.
func (s *FrameSplitter) Reset() {
	s.buf = s.buf[:0]
}
