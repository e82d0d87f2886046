package main

import (
	"io"

	"github.com/lanikai/alohadecode"
)

// writeOutput appends the bytes of every picture received on pictures to w,
// and closes w once the channel is closed. The returned channel is closed
// after that.
func writeOutput(pictures <-chan *alohadecode.Picture, w io.WriteCloser, name string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		n := 0
		var werr error
		for pic := range pictures {
			if werr == nil {
				if _, werr = w.Write(pic.Bytes()); werr != nil {
					log.Error("write %s: %v", name, werr)
				} else {
					n++
				}
			}
			pic.Release()
		}
		if err := w.Close(); err != nil {
			log.Error("close %s: %v", name, err)
		}
		log.Info("Wrote %d pictures to %s", n, name)
	}()
	return done
}
