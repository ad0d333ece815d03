package viewer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ecopia-map/plyviewer/internal/data"
	"github.com/ecopia-map/plyviewer/internal/geometry"
	"github.com/ecopia-map/plyviewer/internal/scene"
)

const (
	DefaultPointSize = 0.05
	DefaultColor     = "ffffff"
	DefaultWidth     = 1280
	DefaultHeight    = 720
)

// Contains the options needed to load and show a point cloud
type ViewerOptions struct {
	Input           string        // Input point cloud path, folder or URL
	PointSize       float64       // Size of the points, in world units
	Color           data.Color    // Color of the points of clouds without colors
	DepthAxis       geometry.Axis // Axis the camera looks along
	AutoRotate      bool          // Slowly orbits the camera when idle
	AutoRotateSpeed float64       // 1 is a full turn per minute
	Width           int           // Initial window width
	Height          int           // Initial window height
	MetricsAddr     string        // Address of the metrics endpoint, disabled when empty
	S3Endpoint      string        // S3 compatible endpoint used for s3:// inputs
	S3SSL           bool          // Use https to reach the S3 endpoint

	Command        string
	InspectOptions *InspectOptions
}

type InspectOptions struct {
	JSON bool // Prints the inspection report as JSON
}

func (opt *ViewerOptions) Copy() *ViewerOptions {
	newOpt := *opt
	if opt.InspectOptions != nil {
		inspectOpt := *opt.InspectOptions
		newOpt.InspectOptions = &inspectOpt
	}
	return &newOpt
}

func (opt *ViewerOptions) Validate() error {
	if strings.TrimSpace(opt.Input) == "" {
		return fmt.Errorf("input is required")
	}
	if opt.PointSize <= 0 {
		return fmt.Errorf("point size must be positive, got %f", opt.PointSize)
	}
	if opt.AutoRotateSpeed < 0 {
		return fmt.Errorf("auto rotate speed must not be negative, got %f", opt.AutoRotateSpeed)
	}
	if opt.Width <= 0 || opt.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", opt.Width, opt.Height)
	}
	return nil
}

// Style of the scene built from the options
func (opt *ViewerOptions) Style() scene.Style {
	return scene.Style{
		PointSize:       opt.PointSize,
		DefaultColor:    opt.Color,
		DepthAxis:       opt.DepthAxis,
		AutoRotate:      opt.AutoRotate,
		AutoRotateSpeed: opt.AutoRotateSpeed,
	}
}

// Parses a hex RGB color, e.g. "ffffff", "#ff8800" or "0x336699"
func ParseColor(value string) (data.Color, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(value))
	normalizedValue = strings.TrimPrefix(normalizedValue, "#")
	normalizedValue = strings.TrimPrefix(normalizedValue, "0x")
	if len(normalizedValue) != 6 {
		return data.Color{}, fmt.Errorf("invalid color %q, expected 6 hex digits", value)
	}
	hex, err := strconv.ParseUint(normalizedValue, 16, 32)
	if err != nil {
		return data.Color{}, fmt.Errorf("invalid color %q: %w", value, err)
	}
	return data.NewColorHex(uint32(hex)), nil
}
