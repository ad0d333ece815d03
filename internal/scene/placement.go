package scene

import (
	"fmt"

	"github.com/ecopia-map/plyviewer/internal/data"
	"github.com/ecopia-map/plyviewer/internal/geometry"
	"github.com/ecopia-map/plyviewer/internal/loader"
	"gonum.org/v1/gonum/spatial/r3"
)

// Camera distance as a multiple of the depth extent of the cloud
const DistanceFactor = 1.5

// Placement is the framing of a point cloud: where its geometry is moved to
// be centered at the origin and how far from it the camera stands.
type Placement struct {
	Center         r3.Vec
	Translation    r3.Vec
	CameraDistance float64
	DepthAxis      geometry.Axis
	// bounds of the decoded geometry, before translation
	Bounds geometry.BoundingBox
}

// Computes the placement of pc framed along the given depth axis
func ComputePlacement(pc *data.PointCloud, axis geometry.Axis) (Placement, error) {
	if pc == nil {
		return Placement{}, fmt.Errorf("%w: no geometry", loader.ErrEmptyGeometry)
	}
	bounds, err := geometry.Compute(pc.Positions)
	if err != nil {
		return Placement{}, fmt.Errorf("%w: %w", loader.ErrEmptyGeometry, err)
	}

	center := bounds.Center()
	return Placement{
		Center:         center,
		Translation:    r3.Scale(-1, center),
		CameraDistance: DistanceFactor * bounds.Extent(axis),
		DepthAxis:      axis,
		Bounds:         bounds,
	}, nil
}

// Distance the camera is actually placed at. Clouds that are flat along the
// depth axis fall back to their largest extent, a single point to 1.
func (p Placement) viewDistance() float64 {
	if p.CameraDistance > 0 {
		return p.CameraDistance
	}
	size := p.Bounds.Size()
	if largest := max(size.X, size.Y, size.Z); largest > 0 {
		return DistanceFactor * largest
	}
	return 1
}
