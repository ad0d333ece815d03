package data

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Normalized RGB color, each component in [0,1]
type Color struct {
	R float32
	G float32
	B float32
}

// Builds a Color from 8 bit components
func NewColor8(r, g, b uint8) Color {
	return Color{
		R: float32(r) / 255,
		G: float32(g) / 255,
		B: float32(b) / 255,
	}
}

// Builds a Color from a 0xRRGGBB integer
func NewColorHex(hex uint32) Color {
	return NewColor8(uint8(hex>>16), uint8(hex>>8), uint8(hex))
}

// Returns the 8 bit components of the color, rounding to the nearest value
func (c Color) RGB255() (uint8, uint8, uint8) {
	return to8(c.R), to8(c.G), to8(c.B)
}

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Contains the decoded content of a point cloud resource: an ordered list of
// positions and, optionally, a parallel list of per point colors
type PointCloud struct {
	Positions []r3.Vec
	Colors    []Color
}

// Builds a new PointCloud with room for n points
func NewPointCloud(n int, withColors bool) *PointCloud {
	pc := &PointCloud{
		Positions: make([]r3.Vec, 0, n),
	}
	if withColors {
		pc.Colors = make([]Color, 0, n)
	}
	return pc
}

// Appends a point. The color is ignored if the cloud carries no colors
func (pc *PointCloud) Add(position r3.Vec, color Color) {
	pc.Positions = append(pc.Positions, position)
	if pc.Colors != nil {
		pc.Colors = append(pc.Colors, color)
	}
}

func (pc *PointCloud) Len() int {
	return len(pc.Positions)
}

func (pc *PointCloud) HasColors() bool {
	return len(pc.Colors) > 0
}

// Checks that colors, when present, are parallel to positions
func (pc *PointCloud) Validate() error {
	if len(pc.Colors) != 0 && len(pc.Colors) != len(pc.Positions) {
		return fmt.Errorf("color count %d does not match position count %d", len(pc.Colors), len(pc.Positions))
	}
	return nil
}
