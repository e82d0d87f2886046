// Package ffmpeg runs ffmpeg as a filter process: bytes are written to its
// stdin and read back from its stdout.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultStopTimeout is how long Stop waits after an interrupt before
// killing the process.
const DefaultStopTimeout = time.Second

// Process is a running filter process.
type Process interface {
	// Stdin is closed by Stop, or may be closed earlier by the caller to
	// signal end of input.
	Stdin() io.WriteCloser

	// Stdout returns EOF once the process has exited and all its output has
	// been read.
	Stdout() io.ReadCloser

	// Done is closed when the process has exited.
	Done() <-chan struct{}

	// Err returns the exit error. Only valid once Done is closed.
	Err() error

	// Stop interrupts the process, waits up to the stop timeout for it to
	// exit, then kills it. It returns once the process is gone.
	Stop()
}

// StartFunc starts a process with the given arguments. It exists so that
// tests can substitute an in-process fake.
type StartFunc func(ctx context.Context, args ...string) (Process, error)

// FFMPEG stores ffmpeg binary location and process options.
type FFMPEG struct {
	command func(...string) *exec.Cmd

	timeout      time.Duration
	prefix       string
	stderrLogger func(string)
}

// New returns FFMPEG.
func New(bin string) *FFMPEG {
	command := func(args ...string) *exec.Cmd {
		return exec.Command(bin, args...)
	}
	return &FFMPEG{command: command, timeout: DefaultStopTimeout}
}

// Timeout sets the stop timeout.
func (f *FFMPEG) Timeout(timeout time.Duration) *FFMPEG {
	f.timeout = timeout
	return f
}

// Prefix is prepended to every forwarded stderr line.
func (f *FFMPEG) Prefix(prefix string) *FFMPEG {
	f.prefix = prefix
	return f
}

// StderrLogger receives the process' stderr line by line. Without one,
// stderr is discarded.
func (f *FFMPEG) StderrLogger(l func(string)) *FFMPEG {
	f.stderrLogger = l
	return f
}

// process manages one subprocess.
type process struct {
	cmd     *exec.Cmd
	timeout time.Duration

	stdin  *os.File
	stdout *os.File

	done chan struct{}
	err  error

	stopOnce sync.Once
}

// Start launches ffmpeg. The process is stopped when ctx is cancelled.
//
// The stdio pipes are created here rather than with cmd.StdoutPipe so that
// the read end stays open after exit, letting the caller drain buffered
// output before seeing EOF.
func (f *FFMPEG) Start(ctx context.Context, args ...string) (Process, error) {
	cmd := f.command(args...)

	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdin pipe")
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		closeAll(inR, inW)
		return nil, errors.Wrap(err, "stdout pipe")
	}
	cmd.Stdin = inR
	cmd.Stdout = outW

	var errR, errW *os.File
	if f.stderrLogger != nil {
		if errR, errW, err = os.Pipe(); err != nil {
			closeAll(inR, inW, outR, outW)
			return nil, errors.Wrap(err, "stderr pipe")
		}
		cmd.Stderr = errW
	}

	if err := cmd.Start(); err != nil {
		closeAll(inR, inW, outR, outW, errR, errW)
		return nil, errors.Wrapf(err, "start %s", cmd.Path)
	}
	// The child holds its own copies now.
	closeAll(inR, outW, errW)

	if errR != nil {
		go f.logLines(errR)
	}

	p := &process{
		cmd:     cmd,
		timeout: f.timeout,
		stdin:   inW,
		stdout:  outR,
		done:    make(chan struct{}),
	}

	go func() {
		err := cmd.Wait()
		// FFmpeg seems to return 255 on normal exit.
		if err != nil && err.Error() == "exit status 255" {
			err = nil
		}
		p.err = err
		close(p.done)
	}()

	go func() {
		select {
		case <-p.done:
		case <-ctx.Done():
			p.Stop()
		}
	}()

	log.Debug("Started %s %s (pid %d)", cmd.Path, strings.Join(args, " "), cmd.Process.Pid)
	return p, nil
}

func (f *FFMPEG) logLines(r io.ReadCloser) {
	defer r.Close()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		f.stderrLogger(f.prefix + scanner.Text())
	}
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}

func (p *process) Stdin() io.WriteCloser { return p.stdin }

func (p *process) Stdout() io.ReadCloser { return p.stdout }

func (p *process) Done() <-chan struct{} { return p.done }

func (p *process) Err() error { return p.err }

// Note, exec.CommandContext is not used to stop the process as it would
// kill the process before it has a chance to exit on its own.
func (p *process) Stop() {
	p.stopOnce.Do(func() {
		p.stdin.Close()
		p.cmd.Process.Signal(os.Interrupt) //nolint:errcheck

		select {
		case <-p.done:
		case <-time.After(p.timeout):
			log.Warn("pid %d did not exit within %v, killing", p.cmd.Process.Pid, p.timeout)
			p.cmd.Process.Kill() //nolint:errcheck
			<-p.done
		}
	})
	<-p.done
}

// HWAccels lists the hardware acceleration methods ffmpeg was built with.
func (f *FFMPEG) HWAccels() ([]string, error) {
	cmd := f.command("-hide_banner", "-hwaccels")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "hwaccels: %s", strings.TrimSpace(stderr.String()))
	}
	return parseHWAccels(stdout.String()), nil
}

// Input
//
//	Hardware acceleration methods:
//	vdpau
//	vaapi
//
// Output ["vdpau", "vaapi"]
func parseHWAccels(out string) []string {
	var methods []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		methods = append(methods, line)
	}
	return methods
}
