package raster

import "image/color"

// projected point, in pixel coordinates relative to the frame origin
type splat struct {
	x0, y0, x1, y1 int
	depth          float64
	color          color.RGBA
}

// Contains the minimal data needed to draw a horizontal band of the frame:
// the band rows and the indexes of the frame splats overlapping them
type WorkUnit struct {
	MinY, MaxY int
	splats     []splat
	indexes    []int32
}
