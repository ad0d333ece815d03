package scene

import (
	"github.com/ecopia-map/plyviewer/internal/data"
	"github.com/ecopia-map/plyviewer/internal/geometry"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Material describes how the points of a renderable are drawn
type Material struct {
	// point size in world units
	Size float64
	// use the decoded per point colors
	VertexColors bool
	// color of every point when VertexColors is false
	Color data.Color
}

// Color of the i-th point of pc drawn with this material
func (m Material) ColorAt(pc *data.PointCloud, i int) data.Color {
	if m.VertexColors && i < len(pc.Colors) {
		return pc.Colors[i]
	}
	return m.Color
}

// Renderable is a decoded point cloud placed in the scene. It is not
// modified once added.
type Renderable struct {
	ID       uuid.UUID
	Source   string
	Geometry *data.PointCloud
	Material Material
	// translation applied to every point of the geometry
	Position r3.Vec
}

func newRenderable(source string, pc *data.PointCloud, material Material, position r3.Vec) *Renderable {
	return &Renderable{
		ID:       uuid.New(),
		Source:   source,
		Geometry: pc,
		Material: material,
		Position: position,
	}
}

func (r *Renderable) Len() int {
	return r.Geometry.Len()
}

// World coordinates of the i-th point
func (r *Renderable) WorldPosition(i int) r3.Vec {
	return r3.Add(r.Geometry.Positions[i], r.Position)
}

func (r *Renderable) ColorAt(i int) data.Color {
	return r.Material.ColorAt(r.Geometry, i)
}

// Bounding box of the renderable in world coordinates
func (r *Renderable) WorldBounds() (geometry.BoundingBox, error) {
	bounds, err := geometry.Compute(r.Geometry.Positions)
	if err != nil {
		return geometry.BoundingBox{}, err
	}
	return bounds.Translate(r.Position), nil
}
