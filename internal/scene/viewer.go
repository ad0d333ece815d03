package scene

import (
	"math"
	"sync"

	"github.com/ecopia-map/plyviewer/internal/data"
	"github.com/ecopia-map/plyviewer/internal/geometry"
	"github.com/golang/glog"
	"gonum.org/v1/gonum/spatial/r3"
)

// Style of the point clouds added to a Viewer and of its camera motion
type Style struct {
	PointSize       float64
	DefaultColor    data.Color
	DepthAxis       geometry.Axis
	AutoRotate      bool
	AutoRotateSpeed float64
}

func DefaultStyle() Style {
	return Style{
		PointSize:       0.05,
		DefaultColor:    data.NewColorHex(0xffffff),
		DepthAxis:       geometry.AxisZ,
		AutoRotate:      true,
		AutoRotateSpeed: DefaultAutoRotateSpeed,
	}
}

// Snapshot is a consistent copy of what the viewer shows, safe to render
// while loads complete
type Snapshot struct {
	Camera      Camera
	Renderables []*Renderable
	Width       int
	Height      int
}

// Viewer holds the scene, its camera and the camera controls. It is safe
// for concurrent use: loads add point clouds from their own goroutines
// while the render loop reads snapshots.
type Viewer struct {
	mu       sync.Mutex
	style    Style
	scene    *Scene
	camera   *Camera
	controls *OrbitControls
	width    int
	height   int
}

func NewViewer(style Style, width, height int) *Viewer {
	if width <= 0 || height <= 0 {
		width, height = 1, 1
	}
	camera := NewCamera(float64(width) / float64(height))
	camera.Up = upFor(style.DepthAxis)
	camera.Position = style.DepthAxis.Unit()

	controls := NewOrbitControls(&camera, style.DepthAxis.Unit())
	controls.AutoRotate = style.AutoRotate
	controls.AutoRotateSpeed = style.AutoRotateSpeed

	return &Viewer{
		style:    style,
		scene:    NewScene(),
		camera:   &camera,
		controls: controls,
		width:    width,
		height:   height,
	}
}

// Up vector of the camera for a depth axis: y, unless looking along y
func upFor(axis geometry.Axis) r3.Vec {
	if axis == geometry.AxisY {
		return r3.Vec{Z: 1}
	}
	return r3.Vec{Y: 1}
}

func (v *Viewer) Style() Style {
	return v.style
}

func (v *Viewer) Scene() *Scene {
	return v.scene
}

// Frames pc and adds it to the scene: the geometry is translated so that
// its bounding box is centered at the origin, and the camera is placed on
// the depth axis looking at the origin. This is the success path of a load.
func (v *Viewer) AddPointCloud(source string, pc *data.PointCloud) (*Renderable, Placement, error) {
	placement, err := ComputePlacement(pc, v.style.DepthAxis)
	if err != nil {
		return nil, Placement{}, err
	}

	material := Material{
		Size:         v.style.PointSize,
		VertexColors: pc.HasColors(),
		Color:        v.style.DefaultColor,
	}
	renderable := newRenderable(source, pc, material, placement.Translation)

	v.mu.Lock()
	defer v.mu.Unlock()

	axis := v.style.DepthAxis.Unit()
	v.camera.Target = r3.Vec{}
	v.camera.Up = upFor(v.style.DepthAxis)
	v.camera.Position = r3.Scale(placement.viewDistance(), axis)
	v.controls.Reset(axis)
	v.scene.Add(renderable)

	glog.Infof("added %s to the scene: center %v, camera distance %f", source, placement.Center, placement.CameraDistance)
	return renderable, placement, nil
}

// Resizes the output, only the camera aspect ratio changes
func (v *Viewer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if width == v.width && height == v.height {
		return
	}
	v.width, v.height = width, height
	v.camera.SetAspect(width, height)
}

func (v *Viewer) Size() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width, v.height
}

// Advances the camera controls by one frame
func (v *Viewer) Step() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.controls.Update()
}

// Rotates the camera by a pointer drag of dx, dy pixels
func (v *Viewer) RotateBy(dx, dy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	// a drag over the full output height is a full turn
	h := float64(v.height)
	v.controls.Rotate(2*dx*math.Pi/h, 2*dy*math.Pi/h)
}

// Pans the camera by a pointer drag of dx, dy pixels
func (v *Viewer) PanBy(dx, dy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	// world units per pixel at the target distance
	unit := 1 / v.camera.PixelsPerUnit(v.height, v.camera.Distance())
	if math.IsInf(unit, 0) || math.IsNaN(unit) {
		return
	}
	v.controls.Pan(dx*unit, dy*unit)
}

// Zooms by wheel steps, positive steps move closer
func (v *Viewer) ZoomBy(steps float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.controls.Dolly(math.Pow(0.95, steps))
}

func (v *Viewer) Camera() Camera {
	v.mu.Lock()
	defer v.mu.Unlock()
	return *v.camera
}

func (v *Viewer) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot{
		Camera:      *v.camera,
		Renderables: v.scene.Renderables(),
		Width:       v.width,
		Height:      v.height,
	}
}
