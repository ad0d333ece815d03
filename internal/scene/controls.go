package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DefaultDampingFactor   = 0.05
	DefaultAutoRotateSpeed = 0.5
	// updates per second the auto rotation speed is expressed for
	updateRate = 60.0
	// keeps the camera off the poles, where the azimuth is undefined
	polarEpsilon = 1e-6
)

// OrbitControls moves a camera on a sphere around its target. Rotations,
// zoom and pan are accumulated and applied by Update, which is meant to be
// called once per frame.
type OrbitControls struct {
	camera *Camera
	// frame the spherical coordinates are expressed in
	up, side, front r3.Vec

	EnableDamping bool
	DampingFactor float64
	AutoRotate    bool
	// 1 is a full turn every 60 seconds at 60 updates per second
	AutoRotateSpeed float64
	MinDistance     float64
	MaxDistance     float64

	deltaTheta float64
	deltaPhi   float64
	scale      float64
	pan        r3.Vec
}

// Creates controls orbiting camera around its target. depth is the direction
// the camera looks from when azimuth and polar angle are both zero and must
// be perpendicular to the camera up vector.
func NewOrbitControls(camera *Camera, depth r3.Vec) *OrbitControls {
	c := &OrbitControls{
		camera:          camera,
		EnableDamping:   true,
		DampingFactor:   DefaultDampingFactor,
		AutoRotateSpeed: DefaultAutoRotateSpeed,
		MaxDistance:     math.Inf(1),
		scale:           1,
	}
	c.setFrame(depth)
	return c
}

func (c *OrbitControls) setFrame(depth r3.Vec) {
	c.up = r3.Unit(c.camera.Up)
	c.front = r3.Unit(depth)
	c.side = r3.Cross(c.up, c.front)
}

// Cancels pending motions and re-targets the controls, used when the
// camera is placed again
func (c *OrbitControls) Reset(depth r3.Vec) {
	c.setFrame(depth)
	c.deltaTheta, c.deltaPhi = 0, 0
	c.scale = 1
	c.pan = r3.Vec{}
}

// Rotates around the target by the given azimuth and polar angles, in radians
func (c *OrbitControls) Rotate(azimuth, polar float64) {
	c.deltaTheta -= azimuth
	c.deltaPhi -= polar
}

// Scales the distance to the target, factor < 1 moves closer
func (c *OrbitControls) Dolly(factor float64) {
	if factor <= 0 {
		return
	}
	c.scale *= factor
}

// Moves the target in the view plane, by world units
func (c *OrbitControls) Pan(dx, dy float64) {
	right, up, _ := c.camera.basis()
	c.pan = r3.Add(c.pan, r3.Add(r3.Scale(-dx, right), r3.Scale(dy, up)))
}

func (c *OrbitControls) autoRotationAngle() float64 {
	return 2 * math.Pi / updateRate / updateRate * c.AutoRotateSpeed
}

// Applies pending motions and writes the camera position. Reports whether
// the camera moved.
func (c *OrbitControls) Update() bool {
	if c.AutoRotate {
		c.Rotate(c.autoRotationAngle(), 0)
	}

	cam := c.camera
	offset := r3.Sub(cam.Position, cam.Target)
	radius := r3.Norm(offset)
	theta := math.Atan2(r3.Dot(offset, c.side), r3.Dot(offset, c.front))
	phi := math.Pi / 2
	if radius > 0 {
		phi = math.Acos(clampUnit(r3.Dot(offset, c.up) / radius))
	}

	factor := 1.0
	if c.EnableDamping {
		factor = c.DampingFactor
	}
	theta += c.deltaTheta * factor
	phi += c.deltaPhi * factor
	phi = math.Max(polarEpsilon, math.Min(math.Pi-polarEpsilon, phi))

	radius *= c.scale
	radius = math.Max(c.MinDistance, math.Min(c.MaxDistance, radius))

	target := r3.Add(cam.Target, r3.Scale(factor, c.pan))

	sinPhi := math.Sin(phi)
	offset = r3.Add(
		r3.Add(r3.Scale(radius*sinPhi*math.Sin(theta), c.side), r3.Scale(radius*math.Cos(phi), c.up)),
		r3.Scale(radius*sinPhi*math.Cos(theta), c.front),
	)
	position := r3.Add(target, offset)

	moved := r3.Norm(r3.Sub(position, cam.Position)) > 1e-12 || r3.Norm(r3.Sub(target, cam.Target)) > 1e-12
	cam.Position = position
	cam.Target = target

	if c.EnableDamping {
		c.deltaTheta *= 1 - c.DampingFactor
		c.deltaPhi *= 1 - c.DampingFactor
		c.pan = r3.Scale(1-c.DampingFactor, c.pan)
	} else {
		c.deltaTheta, c.deltaPhi = 0, 0
		c.pan = r3.Vec{}
	}
	c.scale = 1
	return moved
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
