package decoder

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/alohadecode/internal/ffmpeg"
	"github.com/lanikai/alohadecode/internal/media"
	"github.com/lanikai/alohadecode/internal/media/h264"
)

// WorkerConfig holds the settings shared by every ffmpeg-backed decoder.
type WorkerConfig struct {
	// Start launches the ffmpeg process.
	Start ffmpeg.StartFunc

	// Pool supplies picture buffers. A private pool is used if nil.
	Pool *media.Pool

	// Number of access units that may wait for the process' stdin.
	QueueDepth int

	// Longest single wait on stdout and the watchdog's polling interval.
	ReadTimeout time.Duration

	// A process that was given a keyframe and has produced no picture for
	// this long is considered hung and killed.
	StallTimeout time.Duration

	// Bound on joining the worker goroutines during Close.
	StopTimeout time.Duration
}

const (
	DefaultQueueDepth   = 8
	DefaultReadTimeout  = 250 * time.Millisecond
	DefaultStallTimeout = 5 * time.Second
	DefaultStopTimeout  = 2 * time.Second

	readChunk = 64 * 1024
)

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Pool == nil {
		c.Pool = media.NewPool(0)
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.StallTimeout <= 0 {
		c.StallTimeout = DefaultStallTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	return c
}

// WorkerStats counts what passed through a worker.
type WorkerStats struct {
	Submitted uint64
	Dropped   uint64
	Pictures  uint64
}

type job struct {
	data      []byte
	timestamp uint32
	keyframe  bool
	stamped   bool
}

// worker drives one ffmpeg decode process: a writer goroutine feeds stdin
// from a bounded queue, a reader goroutine cuts stdout into pictures, and a
// watchdog kills the process if it stops producing output.
type worker struct {
	name string
	cfg  WorkerConfig

	// Builds the command line for the given parameters.
	args func(Params) ffmpeg.DecodeArgs

	// Parameter sets are mandatory and are written ahead of any slice.
	requireParams bool

	// Decode input is a bare NAL unit that needs a start code.
	perNALU bool

	handle  uintptr
	release func() error

	mu     sync.Mutex
	params Params
	proc   ffmpeg.Process
	queue  chan job
	cancel context.CancelFunc
	closed bool

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error

	gone         atomic.Bool
	sawKeyframe  atomic.Bool
	waitingSince atomic.Int64
	lastTS       atomic.Uint32

	submitted atomic.Uint64
	dropped   atomic.Uint64
	pictures  atomic.Uint64
}

func (w *worker) Init(p Params) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.proc != nil || w.closed {
		return ErrAlreadyInitialized
	}
	if p.Width <= 0 || p.Height <= 0 || p.Width%2 != 0 || p.Height%2 != 0 {
		return ErrInvalidGeometry
	}
	if w.requireParams && (len(p.SPS) == 0 || len(p.PPS) == 0) {
		return ErrMissingParams
	}

	ctx, cancel := context.WithCancel(context.Background())
	proc, err := w.cfg.Start(ctx, w.args(p).Args()...)
	if err != nil {
		cancel()
		return errors.Wrapf(err, "%s: start", w.name)
	}

	w.params = p
	w.proc = proc
	w.cancel = cancel
	w.queue = make(chan job, w.cfg.QueueDepth+1)
	if w.requireParams {
		w.queue <- job{data: h264.AnnexBEncode([][]byte{p.SPS, p.PPS})}
	}

	w.wg.Add(3)
	go w.writeLoop(ctx, proc.Stdin())
	go w.readLoop(proc.Stdout(), p.Format.FrameSize(p.Width, p.Height))
	go w.watchdog(ctx)

	log.Debug("%s: started %dx%d %s", w.name, p.Width, p.Height, p.Format)
	return nil
}

func (w *worker) Decode(data []byte, timestamp uint32, keyframe bool) error {
	if w.gone.Load() {
		return ErrDecoderGone
	}

	w.mu.Lock()
	queue, closed := w.queue, w.closed
	w.mu.Unlock()
	if closed {
		return ErrDecoderGone
	}
	if queue == nil {
		return ErrNotInitialized
	}

	var buf []byte
	if w.perNALU {
		buf = h264.AppendAnnexB(make([]byte, 0, len(h264.StartCode)+len(data)), data)
	} else {
		buf = append([]byte(nil), data...)
	}

	select {
	case queue <- job{data: buf, timestamp: timestamp, keyframe: keyframe, stamped: true}:
		w.submitted.Add(1)
		return nil
	default:
		w.dropped.Add(1)
		return ErrQueueFull
	}
}

func (w *worker) Handle() uintptr {
	return w.handle
}

func (w *worker) Stats() WorkerStats {
	return WorkerStats{
		Submitted: w.submitted.Load(),
		Dropped:   w.dropped.Load(),
		Pictures:  w.pictures.Load(),
	}
}

// Close stops the process and joins the worker goroutines. It is safe to
// call more than once.
func (w *worker) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		proc, cancel := w.proc, w.cancel
		w.mu.Unlock()

		if proc != nil {
			cancel()
			proc.Stop()
			if !waitTimeout(&w.wg, w.cfg.StopTimeout) {
				log.Warn("%s: worker goroutines still running after %v", w.name, w.cfg.StopTimeout)
			}
		}
		if w.release != nil {
			w.closeErr = w.release()
		}
		log.Debug("%s: closed (%+v)", w.name, w.Stats())
	})
	return w.closeErr
}

// markGone records an unrecoverable failure. Later Decode calls return
// ErrDecoderGone.
func (w *worker) markGone(reason error) {
	if w.gone.CompareAndSwap(false, true) {
		w.mu.Lock()
		closed := w.closed
		w.mu.Unlock()
		if !closed {
			log.Warn("%s: %v", w.name, reason)
		}
	}
}

func (w *worker) writeLoop(ctx context.Context, stdin io.WriteCloser) {
	defer w.wg.Done()
	defer stdin.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-w.queue:
			if j.stamped {
				w.lastTS.Store(j.timestamp)
			}
			if j.keyframe {
				w.sawKeyframe.Store(true)
			}
			if _, err := stdin.Write(j.data); err != nil {
				if ctx.Err() == nil {
					w.markGone(errors.Wrap(err, "write"))
				}
				return
			}
			if w.sawKeyframe.Load() {
				w.waitingSince.CompareAndSwap(0, time.Now().UnixNano())
			}
		}
	}
}

func (w *worker) readLoop(stdout io.ReadCloser, frameSize int) {
	defer w.wg.Done()
	defer stdout.Close()

	splitter := NewFrameSplitter(frameSize, w.emit)
	deadliner, _ := stdout.(interface{ SetReadDeadline(time.Time) error })
	buf := make([]byte, readChunk)

	for {
		if deadliner != nil {
			deadliner.SetReadDeadline(time.Now().Add(w.cfg.ReadTimeout)) //nolint:errcheck
		}
		n, err := stdout.Read(buf)
		if n > 0 {
			splitter.Write(buf[:n]) //nolint:errcheck
		}
		switch {
		case err == nil:
		case errors.Is(err, os.ErrDeadlineExceeded):
			if w.isClosed() {
				return
			}
		default:
			if splitter.Buffered() > 0 {
				log.Debug("%s: discarding %d bytes of a partial picture", w.name, splitter.Buffered())
			}
			w.markGone(w.exitReason(err))
			return
		}
	}
}

func (w *worker) exitReason(readErr error) error {
	if readErr != io.EOF {
		return errors.Wrap(readErr, "read")
	}
	select {
	case <-w.proc.Done():
		if err := w.proc.Err(); err != nil {
			return errors.Wrap(err, "process exited")
		}
	case <-time.After(w.cfg.ReadTimeout):
	}
	return errors.New("process closed its output")
}

func (w *worker) watchdog(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.ReadTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.proc.Done():
			return
		case <-ticker.C:
			since := w.waitingSince.Load()
			if since == 0 || time.Since(time.Unix(0, since)) < w.cfg.StallTimeout {
				continue
			}
			w.markGone(errors.Wrapf(ErrStalled, "no picture for %v", w.cfg.StallTimeout))
			w.proc.Stop()
			return
		}
	}
}

func (w *worker) emit(frame []byte) {
	w.waitingSince.Store(0)
	w.pictures.Add(1)

	p := w.params
	pic := w.cfg.Pool.NewPicture(p.Format, p.Width, p.Height, w.lastTS.Load())
	copy(pic.Bytes(), frame)
	if p.OnPicture != nil {
		p.OnPicture(pic)
	} else {
		pic.Release()
	}
}

func (w *worker) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// waitTimeout waits for wg, giving up after timeout. It reports whether the
// wait completed.
func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
