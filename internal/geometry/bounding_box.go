package geometry

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

var ErrEmpty = errors.New("bounding box of an empty point set is undefined")

// Axis designates one of the three cartesian axes
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Parses "x", "y" or "z" (case insensitive)
func ParseAxis(value string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis %q, must be one of x, y, z", value)
}

// Unit vector along the axis
func (a Axis) Unit() r3.Vec {
	switch a {
	case AxisX:
		return r3.Vec{X: 1}
	case AxisY:
		return r3.Vec{Y: 1}
	}
	return r3.Vec{Z: 1}
}

// Component of v along the axis
func (a Axis) Of(v r3.Vec) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	}
	return v.Z
}

// Axis aligned bounding box. Min <= Max holds componentwise for every box
// returned by Compute.
type BoundingBox struct {
	Min r3.Vec
	Max r3.Vec
}

// Computes the smallest box containing all the given points
func Compute(points []r3.Vec) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, ErrEmpty
	}
	box := BoundingBox{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box.Extend(p)
	}
	return box, nil
}

// Grows the box so that it contains p
func (b *BoundingBox) Extend(p r3.Vec) {
	b.Min.X = min(b.Min.X, p.X)
	b.Min.Y = min(b.Min.Y, p.Y)
	b.Min.Z = min(b.Min.Z, p.Z)
	b.Max.X = max(b.Max.X, p.X)
	b.Max.Y = max(b.Max.Y, p.Y)
	b.Max.Z = max(b.Max.Z, p.Z)
}

func (b BoundingBox) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

func (b BoundingBox) Size() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Extent of the box along the given axis
func (b BoundingBox) Extent(axis Axis) float64 {
	return axis.Of(b.Max) - axis.Of(b.Min)
}

// Returns the box moved by the given offset
func (b BoundingBox) Translate(offset r3.Vec) BoundingBox {
	return BoundingBox{
		Min: r3.Add(b.Min, offset),
		Max: r3.Add(b.Max, offset),
	}
}

// Returns the box as {minX, maxX, minY, maxY, minZ, maxZ}
func (b BoundingBox) GetAsArray() []float64 {
	return []float64{b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, b.Min.Z, b.Max.Z}
}
