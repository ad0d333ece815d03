package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DefaultFOV  = 75.0
	DefaultNear = 0.1
	DefaultFar  = 10000.0
)

// Camera is a perspective camera looking from Position at Target
type Camera struct {
	// vertical field of view, in degrees
	FOV    float64
	Aspect float64
	Near   float64
	Far    float64

	Position r3.Vec
	Target   r3.Vec
	Up       r3.Vec
}

func NewCamera(aspect float64) Camera {
	return Camera{
		FOV:      DefaultFOV,
		Aspect:   aspect,
		Near:     DefaultNear,
		Far:      DefaultFar,
		Position: r3.Vec{Z: 1},
		Up:       r3.Vec{Y: 1},
	}
}

// Updates the aspect ratio to the given output size. Zero sizes, as
// reported by minimized windows, are ignored.
func (c *Camera) SetAspect(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float64(width) / float64(height)
}

// Orthonormal view basis: right, up and forward (towards the target)
func (c Camera) basis() (right, up, forward r3.Vec) {
	forward = r3.Sub(c.Target, c.Position)
	if r3.Norm(forward) == 0 {
		forward = r3.Vec{Z: -1}
	}
	forward = r3.Unit(forward)

	right = r3.Cross(forward, c.Up)
	if r3.Norm(right) < 1e-12 {
		// looking along the up vector, any perpendicular will do
		right = r3.Cross(forward, r3.Vec{X: 1})
		if r3.Norm(right) < 1e-12 {
			right = r3.Cross(forward, r3.Vec{Y: 1})
		}
	}
	right = r3.Unit(right)
	up = r3.Cross(right, forward)
	return right, up, forward
}

// Projects p to normalized device coordinates, x and y in [-1, 1] when
// visible, with y pointing up. depth is the distance along the view
// direction. ok is false when p lies outside the near and far planes.
func (c Camera) Project(p r3.Vec) (x, y, depth float64, ok bool) {
	right, up, forward := c.basis()
	d := r3.Sub(p, c.Position)

	depth = r3.Dot(d, forward)
	if depth < c.Near || depth > c.Far {
		return 0, 0, depth, false
	}
	t := c.tanHalfFOV()
	x = r3.Dot(d, right) / (depth * t * c.Aspect)
	y = r3.Dot(d, up) / (depth * t)
	return x, y, depth, true
}

func (c Camera) tanHalfFOV() float64 {
	fov := c.FOV
	if fov <= 0 || fov >= 180 {
		fov = DefaultFOV
	}
	return math.Tan(fov * math.Pi / 360)
}

// Number of pixels covered by one world unit at the given depth, for an
// output of the given height
func (c Camera) PixelsPerUnit(height int, depth float64) float64 {
	if depth <= 0 {
		return 0
	}
	return float64(height) / (2 * depth * c.tanHalfFOV())
}

// Distance from the camera to its target
func (c Camera) Distance() float64 {
	return r3.Norm(r3.Sub(c.Position, c.Target))
}
