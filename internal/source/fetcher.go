package source

import (
	"context"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported source scheme")
	ErrNotConfigured     = errors.New("source fetcher not configured")
)

// Resource is an opened point cloud resource. Size is the number of bytes
// Body will yield, or a value <= 0 when the size is not known in advance.
type Resource struct {
	Body io.ReadCloser
	Size int64
	Name string
}

// Fetcher opens the resource identified by id for reading
type Fetcher interface {
	Open(ctx context.Context, id string) (*Resource, error)
}

// Resolver dispatches a source identifier to the fetcher of its scheme.
// Identifiers without a scheme are local paths.
type Resolver struct {
	File Fetcher
	HTTP Fetcher
	S3   Fetcher
}

// Builds a resolver for local files and http(s) URLs. s3 may be nil, in which
// case s3:// identifiers are reported as not configured.
func NewResolver(s3 *S3Fetcher) *Resolver {
	r := &Resolver{
		File: &FileFetcher{},
		HTTP: NewHTTPFetcher(nil),
	}
	if s3 != nil {
		r.S3 = s3
	}
	return r
}

func (r *Resolver) Open(ctx context.Context, id string) (*Resource, error) {
	fetcher, err := r.fetcherFor(id)
	if err != nil {
		return nil, err
	}
	return fetcher.Open(ctx, id)
}

func (r *Resolver) fetcherFor(id string) (Fetcher, error) {
	scheme := ""
	if i := strings.Index(id, "://"); i > 0 {
		scheme = strings.ToLower(id[:i])
	}

	var fetcher Fetcher
	switch scheme {
	case "", "file":
		fetcher = r.File
	case "http", "https":
		fetcher = r.HTTP
	case "s3":
		fetcher = r.S3
	default:
		return nil, errors.Wrapf(ErrUnsupportedScheme, "%q", scheme)
	}
	if fetcher == nil {
		return nil, errors.Wrapf(ErrNotConfigured, "scheme %q", scheme)
	}
	return fetcher, nil
}

// Returns the last path element of a source identifier, used as a format hint
func BaseName(id string) string {
	if u, err := url.Parse(id); err == nil && u.Scheme != "" && u.Scheme != "file" && len(u.Scheme) > 1 {
		return path.Base(u.Path)
	}
	return filepath.Base(strings.TrimPrefix(id, "file://"))
}
