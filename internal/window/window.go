package window

import (
	"fmt"
	"image"

	"github.com/ecopia-map/plyviewer/internal/raster"
	"github.com/ecopia-map/plyviewer/internal/scene"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

type Options struct {
	Title  string
	Width  int
	Height int
	// Hides the load status line
	HideStatus bool
}

// StatusLine is the text drawn over the frame
type StatusLine interface {
	String() string
}

// Run opens a resizable window showing the viewer scene and forwarding
// pointer input to its camera controls. It blocks until the window closes.
func Run(viewer *scene.Viewer, status StatusLine, opts Options) error {
	g := &game{
		viewer:   viewer,
		status:   status,
		opts:     opts,
		renderer: raster.NewRenderer(raster.DefaultBackground),
	}
	ebiten.SetWindowTitle(opts.Title)
	ebiten.SetWindowSize(opts.Width, opts.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type game struct {
	viewer   *scene.Viewer
	status   StatusLine
	opts     Options
	renderer *raster.Renderer

	img   *image.RGBA
	frame *ebiten.Image

	dragging   ebiten.MouseButton
	isDragging bool
	lastX      int
	lastY      int
}

func (g *game) Update() error {
	g.handlePointer()
	g.viewer.Step()
	return nil
}

func (g *game) handlePointer() {
	x, y := ebiten.CursorPosition()

	switch {
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		g.drag(ebiten.MouseButtonLeft, x, y)
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight):
		g.drag(ebiten.MouseButtonRight, x, y)
	default:
		g.isDragging = false
	}

	if _, wheel := ebiten.Wheel(); wheel != 0 {
		g.viewer.ZoomBy(wheel)
	}
}

func (g *game) drag(button ebiten.MouseButton, x, y int) {
	if !g.isDragging || g.dragging != button {
		g.isDragging = true
		g.dragging = button
		g.lastX, g.lastY = x, y
		return
	}
	dx, dy := float64(x-g.lastX), float64(y-g.lastY)
	g.lastX, g.lastY = x, y
	if dx == 0 && dy == 0 {
		return
	}
	if button == ebiten.MouseButtonLeft {
		g.viewer.RotateBy(dx, dy)
	} else {
		g.viewer.PanBy(dx, dy)
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	snapshot := g.viewer.Snapshot()
	w, h := snapshot.Width, snapshot.Height
	if g.img == nil || g.img.Bounds().Dx() != w || g.img.Bounds().Dy() != h {
		g.img = image.NewRGBA(image.Rect(0, 0, w, h))
		if g.frame != nil {
			g.frame.Deallocate()
		}
		g.frame = ebiten.NewImage(w, h)
	}

	g.renderer.Render(g.img, snapshot)
	g.frame.WritePixels(g.img.Pix)
	screen.DrawImage(g.frame, nil)

	if !g.opts.HideStatus && g.status != nil {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("%s\n%.0f fps", g.status.String(), ebiten.ActualFPS()))
	}
}

// The frame follows the window size, only the camera aspect changes
func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.viewer.Resize(outsideWidth, outsideHeight)
	return g.viewer.Size()
}
