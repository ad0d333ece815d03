package raster

import (
	"image"
	"sync"
	"sync/atomic"
)

// BandConsumer draws the splats of the work units it receives into a frame.
// Bands never overlap, so any number of consumers can share the frame and
// its depth buffer.
type BandConsumer struct {
	dst   *image.RGBA
	depth []float64
	drawn *atomic.Int64
}

func NewBandConsumer(dst *image.RGBA, depth []float64, drawn *atomic.Int64) *BandConsumer {
	return &BandConsumer{
		dst:   dst,
		depth: depth,
		drawn: drawn,
	}
}

// Continually consumes WorkUnits until the work channel is closed
func (c *BandConsumer) Consume(workchan chan *WorkUnit, waitGroup *sync.WaitGroup) {
	defer waitGroup.Done()
	for work := range workchan {
		c.drawn.Add(c.doWork(work))
	}
}

// Draws the splats of the band keeping the nearest one per pixel, returns
// the number of pixels written
func (c *BandConsumer) doWork(work *WorkUnit) int64 {
	bounds := c.dst.Bounds()
	width := bounds.Dx()
	var written int64

	for _, index := range work.indexes {
		s := &work.splats[index]
		y0, y1 := max(s.y0, work.MinY), min(s.y1, work.MaxY)
		x0, x1 := max(s.x0, 0), min(s.x1, width)
		for y := y0; y < y1; y++ {
			row := y * width
			for x := x0; x < x1; x++ {
				if s.depth >= c.depth[row+x] {
					continue
				}
				c.depth[row+x] = s.depth
				offset := c.dst.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				c.dst.Pix[offset] = s.color.R
				c.dst.Pix[offset+1] = s.color.G
				c.dst.Pix[offset+2] = s.color.B
				c.dst.Pix[offset+3] = s.color.A
				written++
			}
		}
	}
	return written
}
