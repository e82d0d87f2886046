// Package ffmock provides an in-process stand-in for an ffmpeg filter
// process, wired with io.Pipe.
package ffmock

import (
	"context"
	"io"
	"sync"

	"github.com/lanikai/alohadecode/internal/ffmpeg"
)

// Process is a fake ffmpeg.Process. The test plays the part of ffmpeg: it
// reads what the code under test wrote with Input and produces output with
// Output.
type Process struct {
	Args []string

	inR  *io.PipeReader
	inW  *io.PipeWriter
	outR *io.PipeReader
	outW *io.PipeWriter

	done     chan struct{}
	exitOnce sync.Once
	err      error

	mu      sync.Mutex
	stopped bool
}

// NewProcess returns a running fake process.
func NewProcess(args ...string) *Process {
	p := &Process{Args: args, done: make(chan struct{})}
	p.inR, p.inW = io.Pipe()
	p.outR, p.outW = io.Pipe()
	return p
}

func (p *Process) Stdin() io.WriteCloser { return p.inW }
func (p *Process) Stdout() io.ReadCloser { return p.outR }
func (p *Process) Done() <-chan struct{} { return p.done }
func (p *Process) Err() error            { return p.err }

// Input is the fake process' stdin.
func (p *Process) Input() io.Reader { return p.inR }

// Output is the fake process' stdout.
func (p *Process) Output() io.Writer { return p.outW }

// Exit simulates the process exiting with err: stdout reaches EOF and
// writes to stdin fail.
func (p *Process) Exit(err error) {
	p.exitOnce.Do(func() {
		p.err = err
		p.outW.Close()
		p.inR.CloseWithError(io.ErrClosedPipe)
		close(p.done)
	})
}

func (p *Process) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.inW.Close()
	p.Exit(nil)
}

// Stopped reports whether Stop was called.
func (p *Process) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Starter hands out fake processes and records them.
type Starter struct {
	// Err, if set, is returned by Start instead of a process.
	Err error

	mu        sync.Mutex
	processes []*Process
	started   chan *Process
}

func NewStarter() *Starter {
	return &Starter{started: make(chan *Process, 16)}
}

// Start satisfies ffmpeg.StartFunc.
func (s *Starter) Start(ctx context.Context, args ...string) (ffmpeg.Process, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	p := NewProcess(args...)
	s.mu.Lock()
	s.processes = append(s.processes, p)
	s.mu.Unlock()
	go func() {
		select {
		case <-ctx.Done():
			p.Stop()
		case <-p.done:
		}
	}()
	select {
	case s.started <- p:
	default:
	}
	return p, nil
}

// Started delivers each process as it is started.
func (s *Starter) Started() <-chan *Process { return s.started }

// Processes returns every process started so far.
func (s *Starter) Processes() []*Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Process(nil), s.processes...)
}
