package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
)

var errArchive = errors.New("archives are not point cloud encodings")

// Transparently decompresses gzip, bzip2, xz, zstd, ... wrapped resources.
// The returned name has the compression extension removed so that it can
// still serve as a format hint.
func decompress(ctx context.Context, name string, r io.Reader) (io.Reader, io.Closer, string, error) {
	format, stream, err := archives.Identify(ctx, name, r)
	if errors.Is(err, archives.NoMatch) {
		return stream, nil, name, nil
	}
	if err != nil {
		return nil, nil, name, err
	}

	decompressor, ok := format.(archives.Decompressor)
	if !ok {
		return nil, nil, name, fmt.Errorf("%w: %T", errArchive, format)
	}
	rc, err := decompressor.OpenReader(stream)
	if err != nil {
		return nil, nil, name, fmt.Errorf("opening %T stream: %w", format, err)
	}
	return rc, rc, stripCompressionExt(name), nil
}

func stripCompressionExt(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".gzip", ".bz2", ".xz", ".zst", ".lz4", ".sz", ".br", ".lz", ".mz":
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
