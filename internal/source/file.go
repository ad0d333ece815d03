package source

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// FileFetcher opens resources from the local file system
type FileFetcher struct{}

func (f *FileFetcher) Open(ctx context.Context, id string) (*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath := strings.TrimPrefix(id, "file://")
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "could not open point cloud file")
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "could not stat point cloud file")
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, errors.Errorf("%s is a directory", filePath)
	}

	return &Resource{
		Body: file,
		Size: info.Size(),
		Name: BaseName(filePath),
	}, nil
}
