package source

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// HTTPFetcher downloads resources with GET requests
type HTTPFetcher struct {
	client *http.Client
}

// Builds an HTTPFetcher, a nil client means http.DefaultClient
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Open(ctx context.Context, id string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, id, nil)
	if err != nil {
		return nil, errors.Wrap(err, "invalid point cloud URL")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "point cloud request failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, errors.Errorf("point cloud request failed: %s", resp.Status)
	}

	return &Resource{
		Body: resp.Body,
		Size: resp.ContentLength,
		Name: BaseName(id),
	}, nil
}
