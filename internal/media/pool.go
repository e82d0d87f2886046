package media

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// DefaultPoolSizes bounds how many distinct buffer sizes a Pool tracks.
const DefaultPoolSizes = 8

// Pool recycles picture buffers. Buffers are grouped by exact size; the least
// recently used size classes are forgotten once more than maxSizes are in
// use, so a resolution change does not pin old buffers forever.
type Pool struct {
	mu      sync.Mutex
	classes *lru.Cache // int -> *sync.Pool
}

func NewPool(maxSizes int) *Pool {
	if maxSizes <= 0 {
		maxSizes = DefaultPoolSizes
	}
	p := &Pool{classes: lru.New(maxSizes)}
	p.classes.OnEvicted = func(key lru.Key, _ interface{}) {
		log.Debug("Evicted buffer size class %v", key)
	}
	return p
}

func (p *Pool) class(size int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.classes.Get(size); ok {
		return v.(*sync.Pool)
	}
	sp := &sync.Pool{
		New: func() interface{} {
			b := make([]byte, size)
			return &b
		},
	}
	p.classes.Add(size, sp)
	return sp
}

// Get returns a buffer of exactly size bytes. Its contents are unspecified.
func (p *Pool) Get(size int) []byte {
	return *p.class(size).Get().(*[]byte)
}

// Put makes b available to a later Get of the same size.
func (p *Pool) Put(b []byte) {
	if cap(b) == 0 {
		return
	}
	b = b[:cap(b)]
	p.mu.Lock()
	v, ok := p.classes.Get(len(b))
	p.mu.Unlock()
	if !ok {
		return
	}
	v.(*sync.Pool).Put(&b)
}

// NewPicture returns a picture backed by a pooled buffer sized for the format.
// The buffer goes back to the pool when the last holder releases it.
func (p *Pool) NewPicture(format Format, width, height int, timestamp uint32) *Picture {
	data := p.Get(format.FrameSize(width, height))
	return &Picture{
		Format:    format,
		Width:     width,
		Height:    height,
		Timestamp: timestamp,
		buf:       NewSharedBuffer(data, p.Put),
	}
}
