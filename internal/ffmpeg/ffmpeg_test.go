package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeProcess(t *testing.T) {
	if os.Getenv("GO_TEST_PROCESS") != "1" {
		return
	}
	switch os.Getenv("MODE") {
	case "echo":
		io.Copy(os.Stdout, os.Stdin) //nolint:errcheck
	case "sleep":
		time.Sleep(1 * time.Hour)
	case "stderr":
		fmt.Fprintln(os.Stderr, "first")
		fmt.Fprintln(os.Stderr, "second")
	case "hwaccels":
		fmt.Fprint(os.Stdout, "Hardware acceleration methods:\nvdpau\nvaapi\n\n")
	}
	os.Exit(0)
}

func fakeFFMPEG(mode string) *FFMPEG {
	f := New("")
	f.command = func(...string) *exec.Cmd {
		cmd := exec.Command(os.Args[0], "-test.run=TestFakeProcess")
		cmd.Env = []string{"GO_TEST_PROCESS=1", "MODE=" + mode}
		return cmd
	}
	return f
}

func TestProcess(t *testing.T) {
	t.Run("echo", func(t *testing.T) {
		p, err := fakeFFMPEG("echo").Start(context.Background())
		require.NoError(t, err)
		defer p.Stdout().Close()

		_, err = p.Stdin().Write([]byte("hello"))
		require.NoError(t, err)
		require.NoError(t, p.Stdin().Close())

		out, err := io.ReadAll(p.Stdout())
		require.NoError(t, err)
		assert.Equal(t, "hello", string(out))

		<-p.Done()
		assert.NoError(t, p.Err())
	})
	t.Run("stopKillsUnresponsive", func(t *testing.T) {
		p, err := fakeFFMPEG("sleep").Timeout(50 * time.Millisecond).Start(context.Background())
		require.NoError(t, err)
		defer p.Stdout().Close()

		start := time.Now()
		p.Stop()
		assert.Less(t, time.Since(start), 10*time.Second)

		select {
		case <-p.Done():
		default:
			t.Fatal("process still running after Stop")
		}
		// Stop is idempotent.
		p.Stop()
	})
	t.Run("contextCancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p, err := fakeFFMPEG("sleep").Timeout(50 * time.Millisecond).Start(ctx)
		require.NoError(t, err)
		defer p.Stdout().Close()

		cancel()
		select {
		case <-p.Done():
		case <-time.After(10 * time.Second):
			t.Fatal("process not stopped by context")
		}
	})
	t.Run("stderrLogger", func(t *testing.T) {
		logs := make(chan string, 2)
		f := fakeFFMPEG("stderr").
			Prefix("test: ").
			StderrLogger(func(msg string) { logs <- msg })

		p, err := f.Start(context.Background())
		require.NoError(t, err)
		defer p.Stdout().Close()

		assert.Equal(t, "test: first", <-logs)
		assert.Equal(t, "test: second", <-logs)
		<-p.Done()
	})
	t.Run("startErr", func(t *testing.T) {
		_, err := New("/nonexistent/ffmpeg").Start(context.Background())
		require.Error(t, err)
	})
}

func TestHWAccels(t *testing.T) {
	methods, err := fakeFFMPEG("hwaccels").HWAccels()
	require.NoError(t, err)
	assert.Equal(t, []string{"vdpau", "vaapi"}, methods)

	assert.Empty(t, parseHWAccels("Hardware acceleration methods:\n"))
}

func TestDecodeArgs(t *testing.T) {
	t.Run("software", func(t *testing.T) {
		args := DecodeArgs{PixelFormat: "nv12", Width: 1920, Height: 1080}.Args()
		assert.Equal(t, []string{
			"-hide_banner", "-loglevel", "error",
			"-fflags", "nobuffer", "-flags", "low_delay",
			"-probesize", "32", "-analyzeduration", "0",
			"-f", "h264", "-i", "pipe:0",
			"-f", "rawvideo", "-pix_fmt", "nv12", "-s", "1920x1080", "pipe:1",
		}, args)
	})
	t.Run("vaapi", func(t *testing.T) {
		args := DecodeArgs{
			PixelFormat: "nv12", Width: 640, Height: 480,
			HWAccel: "vaapi", HWDevice: "/dev/dri/renderD128",
		}.Args()
		assert.Subset(t, args, []string{
			"-hwaccel", "vaapi", "-hwaccel_device", "/dev/dri/renderD128",
			"-vf", "hwdownload,format=nv12", "640x480",
		})
		assert.Equal(t, "pipe:1", args[len(args)-1])
	})
}
