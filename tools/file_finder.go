package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ecopia-map/plyviewer/internal/viewer"
)

// Extensions of the point cloud files looked up in input folders, compressed
// variants included
var pointCloudExtensions = []string{".ply", ".pcd"}
var compressionExtensions = []string{"", ".gz", ".bz2", ".xz", ".zst"}

type FileFinder interface {
	GetPointCloudToView(opts *viewer.ViewerOptions) (string, error)
}

type StandardFileFinder struct{}

func NewStandardFileFinder() FileFinder {
	return &StandardFileFinder{}
}

// Returns the resource to load: the input itself, unless it is a local
// folder, in which case the first point cloud file found in it
func (f *StandardFileFinder) GetPointCloudToView(opts *viewer.ViewerOptions) (string, error) {
	if strings.Contains(opts.Input, "://") {
		return opts.Input, nil
	}
	info, err := os.Stat(opts.Input)
	if err != nil || !info.IsDir() {
		// missing files are reported by the loader
		return opts.Input, nil
	}
	return f.getPointCloudFromInputFolder(opts.Input)
}

func (f *StandardFileFinder) getPointCloudFromInputFolder(folder string) (string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", err
	}

	// entries are sorted by name
	for _, entry := range entries {
		if !entry.IsDir() && IsPointCloudFile(entry.Name()) {
			return filepath.Join(folder, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("no point cloud file found in %s", folder)
}

func IsPointCloudFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range pointCloudExtensions {
		for _, compression := range compressionExtensions {
			if strings.HasSuffix(lower, ext+compression) {
				return true
			}
		}
	}
	return false
}
