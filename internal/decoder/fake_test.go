package decoder

import (
	"sync"

	"github.com/lanikai/alohadecode/internal/media"
)

type decodeCall struct {
	data      []byte
	timestamp uint32
	keyframe  bool
}

type fakeDecoder struct {
	mu        sync.Mutex
	params    Params
	inits     int
	calls     []decodeCall
	closed    bool
	initErr   error
	decodeErr error
	handle    uintptr
}

func (d *fakeDecoder) Init(p Params) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inits++
	d.params = p
	return d.initErr
}

func (d *fakeDecoder) Decode(data []byte, timestamp uint32, keyframe bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.decodeErr != nil {
		return d.decodeErr
	}
	d.calls = append(d.calls, decodeCall{append([]byte(nil), data...), timestamp, keyframe})
	return nil
}

func (d *fakeDecoder) Handle() uintptr { return d.handle }

func (d *fakeDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDecoder) setDecodeErr(err error) {
	d.mu.Lock()
	d.decodeErr = err
	d.mu.Unlock()
}

func (d *fakeDecoder) decoded() []decodeCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]decodeCall(nil), d.calls...)
}

func (d *fakeDecoder) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// emit plays a decoded picture through the decoder's output callback.
func (d *fakeDecoder) emit(pic *media.Picture) {
	d.mu.Lock()
	onPicture := d.params.OnPicture
	d.mu.Unlock()
	onPicture(pic)
}

type fakeFactory struct {
	available bool
	initErr   error
	handle    uintptr

	mu      sync.Mutex
	created []*fakeDecoder
}

func (f *fakeFactory) Available() bool { return f.available }

func (f *fakeFactory) New() (Decoder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &fakeDecoder{initErr: f.initErr, handle: f.handle}
	f.created = append(f.created, d)
	return d, nil
}

func (f *fakeFactory) decoders() []*fakeDecoder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeDecoder(nil), f.created...)
}

func (f *fakeFactory) last() *fakeDecoder {
	ds := f.decoders()
	if len(ds) == 0 {
		return nil
	}
	return ds[len(ds)-1]
}
