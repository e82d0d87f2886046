package media

import (
	"sync"
	"sync/atomic"
)

// Flow fans values out to any number of subscriber channels. A subscriber
// whose channel is full loses its oldest value rather than blocking the
// writer, so delivery is FIFO per subscriber but lossy under backpressure.
type Flow[T any] struct {
	// Retain is called once per subscriber a value is delivered to. The
	// writer keeps its own reference and must drop it after Write returns.
	Retain func(T)

	// Drop is called for values discarded from a full channel or drained
	// on Close.
	Drop func(T)

	subscribers []chan T
	missed      atomic.Uint64

	sync.Mutex
}

func (f *Flow[T]) Subscribe(capacity int) <-chan T {
	f.Lock()
	defer f.Unlock()

	if capacity <= 0 {
		panic("media.Flow: receiver capacity must be positive")
	}

	s := make(chan T, capacity)
	f.subscribers = append(f.subscribers, s)
	return s
}

// Unsubscribe removes and closes s. Values still buffered in s are left for
// the receiver to drain. It reports whether s was subscribed.
func (f *Flow[T]) Unsubscribe(s <-chan T) bool {
	f.Lock()
	defer f.Unlock()

	// See https://github.com/golang/go/wiki/SliceTricks
	for i, subscriber := range f.subscribers {
		if s == subscriber {
			subs := f.subscribers
			close(subs[i])
			subs[len(subs)-1], subs[i] = subs[i], subs[len(subs)-1]
			subs[len(subs)-1] = nil
			f.subscribers = subs[:len(subs)-1]
			return true
		}
	}
	return false
}

// Len returns the number of subscribers.
func (f *Flow[T]) Len() int {
	f.Lock()
	defer f.Unlock()
	return len(f.subscribers)
}

// Missed returns how many values were discarded because a subscriber fell
// behind.
func (f *Flow[T]) Missed() uint64 {
	return f.missed.Load()
}

func (f *Flow[T]) Write(v T) {
	f.Lock()
	defer f.Unlock()

	for _, subscriber := range f.subscribers {
		if f.Retain != nil {
			f.Retain(v)
		}
		select {
		case subscriber <- v:
			continue
		default:
		}

		// Drop oldest value, add newest. Only the writer sends on
		// subscriber, and it holds the lock, so the send below cannot block
		// once a slot has been freed.
		select {
		case old := <-subscriber:
			if f.Drop != nil {
				f.Drop(old)
			}
			if f.missed.Add(1) == 1 {
				log.Warn("media.Flow: subscriber missed a value")
			}
		default:
			// The receiver freed a slot in the meantime.
		}
		subscriber <- v
	}
}

// Close closes every subscriber channel and discards anything still
// buffered in them.
func (f *Flow[T]) Close() {
	f.Lock()
	defer f.Unlock()

	for _, subscriber := range f.subscribers {
		close(subscriber)
		for v := range subscriber {
			if f.Drop != nil {
				f.Drop(v)
			}
		}
	}
	f.subscribers = nil
}
