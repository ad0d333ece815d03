package tools

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ecopia-map/plyviewer/internal/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsForCommandViewDefaults(t *testing.T) {
	flags, _ := ParseFlagsForCommandView([]string{"-i", "cloud.ply"})

	assert.Equal(t, "cloud.ply", *flags.Input)
	assert.Equal(t, viewer.DefaultPointSize, *flags.PointSize)
	assert.Equal(t, "ffffff", *flags.Color)
	assert.Equal(t, "z", *flags.DepthAxis)
	assert.True(t, *flags.AutoRotate)
	assert.Equal(t, 0.5, *flags.AutoRotateSpeed)
	assert.Equal(t, viewer.DefaultWidth, *flags.Width)
	assert.Equal(t, viewer.DefaultHeight, *flags.Height)
	assert.Empty(t, *flags.MetricsAddr)
	assert.False(t, *flags.Silent)
	assert.True(t, *flags.S3SSL)
}

func TestParseFlagsForCommandView(t *testing.T) {
	flags, _ := ParseFlagsForCommandView([]string{
		"-input", "s3://bucket/cloud.pcd",
		"-p", "0.2",
		"-color", "#ff0000",
		"-a", "y",
		"-auto-rotate=false",
		"-width", "640",
		"-height", "480",
		"-metrics-addr", ":9090",
		"-s3-endpoint", "localhost:9000",
		"-s3-ssl=false",
		"-s",
	})

	assert.Equal(t, "s3://bucket/cloud.pcd", *flags.Input)
	assert.Equal(t, 0.2, *flags.PointSize)
	assert.Equal(t, "#ff0000", *flags.Color)
	assert.Equal(t, "y", *flags.DepthAxis)
	assert.False(t, *flags.AutoRotate)
	assert.Equal(t, 640, *flags.Width)
	assert.Equal(t, 480, *flags.Height)
	assert.Equal(t, ":9090", *flags.MetricsAddr)
	assert.Equal(t, "localhost:9000", *flags.S3Endpoint)
	assert.False(t, *flags.S3SSL)
	assert.True(t, *flags.Silent)
}

func TestParseFlagsForCommandInspect(t *testing.T) {
	flags, flagCommand := ParseFlagsForCommandInspect([]string{"-i", "a.ply", "-j", "-depth-axis", "x"})

	assert.Equal(t, "a.ply", *flags.Input)
	assert.True(t, *flags.JSON)
	assert.Equal(t, "x", *flags.DepthAxis)

	var usage bytes.Buffer
	PrintCommandUsage(&usage, flagCommand)
	assert.Contains(t, usage.String(), "-depth-axis")
	assert.Contains(t, usage.String(), "shorthand for input")
}

func TestIsPointCloudFile(t *testing.T) {
	for name, want := range map[string]bool{
		"a.ply":       true,
		"B.PLY":       true,
		"scan.pcd":    true,
		"scan.ply.gz": true,
		"scan.pcd.xz": true,
		"scan.las":    false,
		"readme.md":   false,
		"ply":         false,
	} {
		assert.Equal(t, want, IsPointCloudFile(name), name)
	}
}

func TestFileFinder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"notes.txt", "b.pcd", "a.ply"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0.ply"), 0o755))

	finder := NewStandardFileFinder()

	found, err := finder.GetPointCloudToView(&viewer.ViewerOptions{Input: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.ply"), found)

	file := filepath.Join(dir, "b.pcd")
	found, err = finder.GetPointCloudToView(&viewer.ViewerOptions{Input: file})
	require.NoError(t, err)
	assert.Equal(t, file, found)

	found, err = finder.GetPointCloudToView(&viewer.ViewerOptions{Input: "https://example.com/a.ply"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.ply", found)

	_, err = finder.GetPointCloudToView(&viewer.ViewerOptions{Input: t.TempDir()})
	assert.Error(t, err)
}

func TestIsFloatEqual(t *testing.T) {
	assert.True(t, IsFloatEqual(1, 1+FloatMin/2))
	assert.True(t, IsFloatEqual(1+FloatMin/2, 1))
	assert.False(t, IsFloatEqual(1, 1.1))
	assert.False(t, IsFloatEqual(1.1, 1))
}

func TestFmtJSONString(t *testing.T) {
	assert.Equal(t, `{"a":1}`, FmtJSONString(map[string]int{"a": 1}))
	assert.Equal(t, "marshal data fail", FmtJSONString(make(chan int)))
}
