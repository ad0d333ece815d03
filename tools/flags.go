package tools

import (
	"flag"
	"io"

	"github.com/ecopia-map/plyviewer/internal/viewer"
)

const (
	CommandView    = "view"
	CommandInspect = "inspect"
)

type FlagsGlobal struct {
	Help    *bool `json:"help"`
	Version *bool `json:"version"`
}

type ViewerFlags struct {
	Input      *string `json:"input"`
	S3Endpoint *string `json:"s3_endpoint"`
	S3SSL      *bool   `json:"s3_ssl"`
	Silent     *bool   `json:"silent"`
	Help       *bool
}

type FlagsForCommandView struct {
	ViewerFlags
	PointSize       *float64 `json:"point_size"`
	Color           *string  `json:"color"`
	DepthAxis       *string  `json:"depth_axis"`
	AutoRotate      *bool    `json:"auto_rotate"`
	AutoRotateSpeed *float64 `json:"auto_rotate_speed"`
	Width           *int     `json:"width"`
	Height          *int     `json:"height"`
	MetricsAddr     *string  `json:"metrics_addr"`
}

type FlagsForCommandInspect struct {
	ViewerFlags
	DepthAxis *string `json:"depth_axis"`
	JSON      *bool   `json:"json"`
}

func ParseFlagsGlobal() FlagsGlobal {
	help := defineBoolFlag("help", "h", false, "Displays this help.")
	// -v is the glog verbosity
	version := defineBoolFlag("version", "", false, "Displays the version of plyviewer.")

	flag.Parse()

	return FlagsGlobal{
		Help:    help,
		Version: version,
	}
}

func defineViewerFlags(flagCommand *flag.FlagSet) ViewerFlags {
	return ViewerFlags{
		Input:      defineStringFlagCommand(flagCommand, "input", "i", "", "Specifies the input point cloud: a .ply or .pcd file, a folder containing one, or an http(s):// or s3:// URL."),
		S3Endpoint: defineStringFlagCommand(flagCommand, "s3-endpoint", "", "s3.amazonaws.com", "S3 compatible endpoint used to fetch s3://bucket/key inputs. Credentials are read from the AWS_* or MINIO_* environment variables."),
		S3SSL:      defineBoolFlagCommand(flagCommand, "s3-ssl", "", true, "Reach the S3 endpoint over https."),
		Silent:     defineBoolFlagCommand(flagCommand, "silent", "s", false, "Use to suppress all the non-error messages."),
		Help:       defineBoolFlagCommand(flagCommand, "help", "h", false, "Displays this help."),
	}
}

func ParseFlagsForCommandView(args []string) (FlagsForCommandView, *flag.FlagSet) {
	flagCommand := flag.NewFlagSet("command-view", flag.ExitOnError)

	viewerFlags := defineViewerFlags(flagCommand)
	pointSize := defineFloat64FlagCommand(flagCommand, "point-size", "p", viewer.DefaultPointSize, "Size of the points, in the units of the point cloud coordinates.")
	color := defineStringFlagCommand(flagCommand, "color", "c", viewer.DefaultColor, "Hex RGB color of the points of clouds without colors.")
	depthAxis := defineStringFlagCommand(flagCommand, "depth-axis", "a", "z", "Axis the camera looks along, can be 'x', 'y' or 'z'. The camera distance is 1.5 times the extent of the cloud along this axis.")
	autoRotate := defineBoolFlagCommand(flagCommand, "auto-rotate", "", true, "Slowly orbits the camera around the cloud.")
	autoRotateSpeed := defineFloat64FlagCommand(flagCommand, "auto-rotate-speed", "", 0.5, "Auto rotation speed, 1 is a full turn per minute.")
	width := defineIntFlagCommand(flagCommand, "width", "", viewer.DefaultWidth, "Initial window width, in pixels.")
	height := defineIntFlagCommand(flagCommand, "height", "", viewer.DefaultHeight, "Initial window height, in pixels.")
	metricsAddr := defineStringFlagCommand(flagCommand, "metrics-addr", "", "", "Serves prometheus metrics on this address, e.g. ':9090'. Disabled when empty.")

	_ = flagCommand.Parse(args)

	return FlagsForCommandView{
		ViewerFlags:     viewerFlags,
		PointSize:       pointSize,
		Color:           color,
		DepthAxis:       depthAxis,
		AutoRotate:      autoRotate,
		AutoRotateSpeed: autoRotateSpeed,
		Width:           width,
		Height:          height,
		MetricsAddr:     metricsAddr,
	}, flagCommand
}

func ParseFlagsForCommandInspect(args []string) (FlagsForCommandInspect, *flag.FlagSet) {
	flagCommand := flag.NewFlagSet("command-inspect", flag.ExitOnError)

	viewerFlags := defineViewerFlags(flagCommand)
	depthAxis := defineStringFlagCommand(flagCommand, "depth-axis", "a", "z", "Axis the camera would look along, can be 'x', 'y' or 'z'.")
	json := defineBoolFlagCommand(flagCommand, "json", "j", false, "Prints the report as JSON.")

	_ = flagCommand.Parse(args)

	return FlagsForCommandInspect{
		ViewerFlags: viewerFlags,
		DepthAxis:   depthAxis,
		JSON:        json,
	}, flagCommand
}

// Prints the usage of a command flag set to w
func PrintCommandUsage(w io.Writer, flagCommand *flag.FlagSet) {
	flagCommand.SetOutput(w)
	flagCommand.PrintDefaults()
}

func defineBoolFlag(name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flag.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flag.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineStringFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue string, usage string) *string {
	var output string
	flagCommand.StringVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.StringVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineIntFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue int, usage string) *int {
	var output int
	flagCommand.IntVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.IntVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineFloat64FlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue float64, usage string) *float64 {
	var output float64
	flagCommand.Float64Var(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.Float64Var(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineBoolFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flagCommand.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}
