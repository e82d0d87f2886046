package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohadecode"
	"github.com/lanikai/alohadecode/internal/media"
)

type recordingFile struct {
	bytes.Buffer
	closed     bool
	writeErr   error
	afterClose int
}

func (f *recordingFile) Write(p []byte) (int, error) {
	if f.closed {
		f.afterClose++
		return 0, errors.New("file already closed")
	}
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.Buffer.Write(p)
}

func (f *recordingFile) Close() error {
	f.closed = true
	return nil
}

func waitClosed(t *testing.T, done <-chan struct{}) {
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("output writer did not finish")
	}
}

func TestWriteOutputDrainsBeforeClosing(t *testing.T) {
	pictures := make(chan *alohadecode.Picture, 3)
	f := &recordingFile{}
	done := writeOutput(pictures, f, "out.rgb")

	for i := byte(0); i < 3; i++ {
		pictures <- media.NewPicture(media.FormatRGB24, 2, 1, uint32(i), []byte{i, i, i, i, i, i})
	}
	// Pictures still buffered when the stream ends are written too.
	close(pictures)
	waitClosed(t, done)

	assert.True(t, f.closed)
	assert.Zero(t, f.afterClose)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2}, f.Bytes())
}

func TestWriteOutputKeepsDrainingAfterError(t *testing.T) {
	pictures := make(chan *alohadecode.Picture, 2)
	f := &recordingFile{writeErr: errors.New("disk full")}
	done := writeOutput(pictures, f, "out.rgb")

	pictures <- media.NewPicture(media.FormatRGB24, 2, 1, 1, make([]byte, 6))
	pictures <- media.NewPicture(media.FormatRGB24, 2, 1, 2, make([]byte, 6))
	close(pictures)
	waitClosed(t, done)

	require.True(t, f.closed)
	assert.Zero(t, f.Len())
}
