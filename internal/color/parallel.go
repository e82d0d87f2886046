package color

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pictures with fewer rows than this are converted on the calling goroutine.
const minParallelRows = 64

// forEachRowBand splits rows [0, h) into contiguous bands and runs fn on each
// band concurrently, one band per available CPU. Bands start on even rows so
// no two bands share a chroma row.
func forEachRowBand(h int, fn func(y0, y1 int)) error {
	workers := runtime.GOMAXPROCS(0)
	if h < minParallelRows || workers < 2 {
		fn(0, h)
		return nil
	}

	band := (h + workers - 1) / workers
	band += band % 2

	var g errgroup.Group
	g.SetLimit(workers)
	for y0 := 0; y0 < h; y0 += band {
		y0, y1 := y0, y0+band
		if y1 > h {
			y1 = h
		}
		g.Go(func() error {
			fn(y0, y1)
			return nil
		})
	}
	return g.Wait()
}
