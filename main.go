/*
 * This file is part of the Go Cesium Point Cloud Tiler distribution (https://github.com/mfbonfigli/gocesiumtiler).
 * Copyright (c) 2019 Massimo Federico Bonfigli - m.federico.bonfigli@gmail.com
 *
 * This program is free software; you can redistribute it and/or modify it
 * under the terms of the GNU Lesser General Public License Version 3 as
 * published by the Free Software Foundation;
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program. If not, see <http://www.gnu.org/licenses/>.
 *
 * This software also uses third party components. You can find information
 * on their credits and licensing in the file LICENSE-3RD-PARTIES.md that
 * you should have received togheter with the source code.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ecopia-map/plyviewer/internal/geometry"
	"github.com/ecopia-map/plyviewer/internal/loader"
	"github.com/ecopia-map/plyviewer/internal/metrics"
	"github.com/ecopia-map/plyviewer/internal/scene"
	"github.com/ecopia-map/plyviewer/internal/source"
	"github.com/ecopia-map/plyviewer/internal/viewer"
	"github.com/ecopia-map/plyviewer/internal/window"
	"github.com/ecopia-map/plyviewer/tools"
	"github.com/golang/glog"
	"gonum.org/v1/gonum/spatial/r3"
)

const VERSION = "0.3.0"

const logo = `
       _             _
 _ __ | |_   ___   _(_) _____      _____ _ __
| '_ \| | | | \ \ / / |/ _ \ \ /\ / / _ \ '__|
| |_) | | |_| |\ V /| |  __/\ V  V /  __/ |
| .__/|_|\__, | \_/ |_|\___| \_/\_/ \___|_|
|_|      |___/  A point cloud viewer written in golang
`

func main() {
	flagsGlobal := tools.ParseFlagsGlobal()
	defer glog.Flush()

	if *flagsGlobal.Help {
		showHelp()
		return
	}
	if *flagsGlobal.Version {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		glog.Exit("Please specify a subcommand [view|inspect].")
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case tools.CommandView:
		mainCommandView(args)
	case tools.CommandInspect:
		mainCommandInspect(args)
	default:
		glog.Exitf("Unrecognized command [%q]. Command must be one of [view|inspect]", cmd)
	}
}

func mainCommandView(args []string) {
	flags, flagCommand := tools.ParseFlagsForCommandView(args)
	if *flags.Help {
		showCommandHelp(flagCommand)
		return
	}

	tools.ConfigureLogging(*flags.Silent)
	if !*flags.Silent {
		printLogo()
	}
	glog.V(1).Infof("flags %s", tools.FmtJSONString(flags))

	// Put args inside a ViewerOptions struct
	opts, err := buildOptionsForCommandView(&flags)
	if err != nil {
		glog.Exit("Error parsing input parameters: ", err)
	}

	input, err := tools.NewStandardFileFinder().GetPointCloudToView(opts)
	if err != nil {
		glog.Exit("Error looking up the input: ", err)
	}

	m := metrics.New()
	if opts.MetricsAddr != "" {
		serveMetrics(m, opts.MetricsAddr)
	}

	l, err := newLoader(opts, m)
	if err != nil {
		glog.Exit("Error configuring sources: ", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v := scene.NewViewer(opts.Style(), opts.Width, opts.Height)
	status := viewer.NewStatus(source.BaseName(input))
	l.Load(ctx, input, status.Callbacks(v))

	err = window.Run(v, status, window.Options{
		Title:  "plyviewer - " + source.BaseName(input),
		Width:  opts.Width,
		Height: opts.Height,
	})
	if err != nil {
		glog.Exit("Error running the viewer: ", err)
	}
}

func buildOptionsForCommandView(flags *tools.FlagsForCommandView) (*viewer.ViewerOptions, error) {
	color, err := viewer.ParseColor(*flags.Color)
	if err != nil {
		return nil, err
	}
	axis, err := geometry.ParseAxis(*flags.DepthAxis)
	if err != nil {
		return nil, err
	}

	opts := &viewer.ViewerOptions{
		Input:           *flags.Input,
		PointSize:       *flags.PointSize,
		Color:           color,
		DepthAxis:       axis,
		AutoRotate:      *flags.AutoRotate,
		AutoRotateSpeed: *flags.AutoRotateSpeed,
		Width:           *flags.Width,
		Height:          *flags.Height,
		MetricsAddr:     *flags.MetricsAddr,
		S3Endpoint:      *flags.S3Endpoint,
		S3SSL:           *flags.S3SSL,
		Command:         tools.CommandView,
	}
	return opts, opts.Validate()
}

func mainCommandInspect(args []string) {
	flags, flagCommand := tools.ParseFlagsForCommandInspect(args)
	if *flags.Help {
		showCommandHelp(flagCommand)
		return
	}
	tools.ConfigureLogging(*flags.Silent)

	axis, err := geometry.ParseAxis(*flags.DepthAxis)
	if err != nil {
		glog.Exit("Error parsing input parameters: ", err)
	}
	opts := &viewer.ViewerOptions{
		Input:          *flags.Input,
		DepthAxis:      axis,
		S3Endpoint:     *flags.S3Endpoint,
		S3SSL:          *flags.S3SSL,
		Command:        tools.CommandInspect,
		InspectOptions: &viewer.InspectOptions{JSON: *flags.JSON},
	}
	if strings.TrimSpace(opts.Input) == "" {
		glog.Exit("Error parsing input parameters: input is required")
	}

	input, err := tools.NewStandardFileFinder().GetPointCloudToView(opts)
	if err != nil {
		glog.Exit("Error looking up the input: ", err)
	}
	l, err := newLoader(opts, nil)
	if err != nil {
		glog.Exit("Error configuring sources: ", err)
	}

	defer timeTrack(time.Now(), "inspect")
	pc, err := l.LoadSync(context.Background(), input, nil)
	if err != nil {
		glog.Exit(err)
	}
	placement, err := scene.ComputePlacement(pc, opts.DepthAxis)
	if err != nil {
		glog.Exit(err)
	}
	if tools.IsFloatEqual(placement.CameraDistance, 0) {
		glog.Warningf("%s is flat along the %s axis, the camera falls back to its largest extent", input, opts.DepthAxis)
	}

	report := inspectReport{
		Source:         input,
		Points:         pc.Len(),
		HasColors:      pc.HasColors(),
		Min:            placement.Bounds.Min,
		Max:            placement.Bounds.Max,
		Bounds:         placement.Bounds.GetAsArray(),
		Center:         placement.Center,
		DepthAxis:      opts.DepthAxis.String(),
		CameraDistance: placement.CameraDistance,
	}
	if opts.InspectOptions.JSON {
		fmt.Println(tools.FmtJSONString(report))
		return
	}
	report.print()
}

type inspectReport struct {
	Source         string    `json:"source"`
	Points         int       `json:"points"`
	HasColors      bool      `json:"has_colors"`
	Min            r3.Vec    `json:"min"`
	Max            r3.Vec    `json:"max"`
	Bounds         []float64 `json:"bounds"` // min x, max x, min y, max y, min z, max z
	Center         r3.Vec    `json:"center"`
	DepthAxis      string    `json:"depth_axis"`
	CameraDistance float64   `json:"camera_distance"`
}

func (r inspectReport) print() {
	fmt.Printf("source:          %s\n", r.Source)
	fmt.Printf("points:          %d\n", r.Points)
	fmt.Printf("colors:          %t\n", r.HasColors)
	fmt.Printf("min:             %g %g %g\n", r.Min.X, r.Min.Y, r.Min.Z)
	fmt.Printf("max:             %g %g %g\n", r.Max.X, r.Max.Y, r.Max.Z)
	fmt.Printf("center:          %g %g %g\n", r.Center.X, r.Center.Y, r.Center.Z)
	fmt.Printf("camera distance: %g (along %s)\n", r.CameraDistance, r.DepthAxis)
}

// Builds a loader resolving local paths, http(s) URLs and, when an endpoint
// is configured, s3 URLs
func newLoader(opts *viewer.ViewerOptions, m *metrics.Metrics) (*loader.Loader, error) {
	var s3 *source.S3Fetcher
	if opts.S3Endpoint != "" {
		var err error
		s3, err = source.NewS3Fetcher(opts.S3Endpoint, opts.S3SSL)
		if err != nil {
			return nil, err
		}
	}
	return loader.NewLoader(source.NewResolver(s3), loader.Options{Metrics: m}), nil
}

func serveMetrics(m *metrics.Metrics, addr string) {
	app := metrics.NewServer(m)
	go func() {
		tools.LogOutput("serving metrics on", addr)
		if err := app.Listen(addr); err != nil {
			glog.Errorf("metrics endpoint stopped: %v", err)
		}
	}()
}

func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	tools.LogOutput(fmt.Sprintf("%s took %s", name, elapsed))
}

func printLogo() {
	fmt.Println(logo)
}

func showHelp() {
	printLogo()
	fmt.Println("***")
	fmt.Println("plyviewer loads a PLY or PCD point cloud, centers it and shows it in a window with an orbiting camera")
	printVersion()
	fmt.Println("***")
	fmt.Println("")
	fmt.Println("Usage: plyviewer [flags] <view|inspect> [command flags]")
	fmt.Println("Command line flags: ")
	flag.CommandLine.SetOutput(os.Stdout)
	flag.PrintDefaults()
}

func showCommandHelp(flagCommand *flag.FlagSet) {
	fmt.Println("Command flags: ")
	tools.PrintCommandUsage(os.Stdout, flagCommand)
}

func printVersion() {
	fmt.Println("v." + VERSION + " (" + strconv.Itoa(time.Now().Year()) + ")")
}
