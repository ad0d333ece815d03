package raster

import (
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ecopia-map/plyviewer/internal/scene"
)

// largest splat side, in pixels
const maxSplatSize = 64

var DefaultBackground = color.RGBA{A: 0xff}

// Stats of a rendered frame
type Stats struct {
	// points of the snapshot
	Points int
	// points projected inside the frame
	Visible int
	// pixels written
	Drawn int64
}

// Renderer rasterizes scene snapshots as square point splats with a depth
// buffer. The depth buffer is reused across frames, a Renderer must not be
// used by more than one goroutine at a time.
type Renderer struct {
	Background color.RGBA
	Workers    int

	depth  []float64
	splats []splat
}

func NewRenderer(background color.RGBA) *Renderer {
	return &Renderer{
		Background: background,
		Workers:    runtime.NumCPU(),
	}
}

// Renders snapshot into dst with a new Renderer
func Render(dst *image.RGBA, snapshot scene.Snapshot, background color.RGBA) Stats {
	return NewRenderer(background).Render(dst, snapshot)
}

func (r *Renderer) Render(dst *image.RGBA, snapshot scene.Snapshot) Stats {
	bounds := dst.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	r.clear(dst, width*height)

	stats := Stats{}
	if width == 0 || height == 0 {
		return stats
	}

	camera := snapshot.Camera
	camera.SetAspect(width, height)
	r.splats = project(r.splats[:0], camera, snapshot.Renderables, width, height, &stats)
	splats := r.splats
	if len(splats) == 0 {
		return stats
	}

	workers := max(r.Workers, 1)
	work := make(chan *WorkUnit, workers)
	var drawn atomic.Int64
	var wg sync.WaitGroup

	wg.Add(1)
	go NewBandProducer(height, workers*4).Produce(work, &wg, splats)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go NewBandConsumer(dst, r.depth, &drawn).Consume(work, &wg)
	}
	wg.Wait()

	stats.Drawn = drawn.Load()
	return stats
}

func (r *Renderer) clear(dst *image.RGBA, pixels int) {
	if cap(r.depth) < pixels {
		r.depth = make([]float64, pixels)
	}
	r.depth = r.depth[:pixels]
	for i := range r.depth {
		r.depth[i] = math.Inf(1)
	}

	bounds := dst.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		offset := dst.PixOffset(bounds.Min.X, y)
		row := dst.Pix[offset : offset+4*bounds.Dx()]
		for i := 0; i < len(row); i += 4 {
			row[i] = r.Background.R
			row[i+1] = r.Background.G
			row[i+2] = r.Background.B
			row[i+3] = r.Background.A
		}
	}
}

// Appends to splats one splat per point of the renderables, dropping the
// ones outside the frame or the camera clipping planes
func project(splats []splat, camera scene.Camera, renderables []*scene.Renderable, width, height int, stats *Stats) []splat {
	for _, renderable := range renderables {
		stats.Points += renderable.Len()
		for i := 0; i < renderable.Len(); i++ {
			x, y, depth, ok := camera.Project(renderable.WorldPosition(i))
			if !ok {
				continue
			}

			size := renderable.Material.Size * camera.PixelsPerUnit(height, depth)
			side := int(math.Round(math.Min(math.Max(size, 1), maxSplatSize)))
			px := (x + 1) / 2 * float64(width)
			py := (1 - y) / 2 * float64(height)
			x0 := int(math.Floor(px - float64(side)/2))
			y0 := int(math.Floor(py - float64(side)/2))
			x1, y1 := x0+side, y0+side
			if x1 <= 0 || y1 <= 0 || x0 >= width || y0 >= height {
				continue
			}

			cr, cg, cb := renderable.ColorAt(i).RGB255()
			splats = append(splats, splat{
				x0: x0, y0: y0, x1: x1, y1: y1,
				depth: depth,
				color: color.RGBA{R: cr, G: cg, B: cb, A: 0xff},
			})
			stats.Visible++
		}
	}
	return splats
}
