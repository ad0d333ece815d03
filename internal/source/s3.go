package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// S3Fetcher reads s3://bucket/key resources from an S3 compatible object store
type S3Fetcher struct {
	client *minio.Client
}

// Builds an S3Fetcher for the given endpoint. Credentials are taken from the
// AWS_* or MINIO_* environment variables.
func NewS3Fetcher(endpoint string, secure bool) (*S3Fetcher, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
		}),
		Secure: secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "MinIO client initialization failed")
	}
	return &S3Fetcher{client: client}, nil
}

func (f *S3Fetcher) Open(ctx context.Context, id string) (*Resource, error) {
	bucket, key, err := ParseS3URL(id)
	if err != nil {
		return nil, err
	}

	object, err := f.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "could not get object %s/%s", bucket, key)
	}
	stat, err := object.Stat()
	if err != nil {
		_ = object.Close()
		return nil, errors.Wrapf(err, "could not stat object %s/%s", bucket, key)
	}

	return &Resource{
		Body: object,
		Size: stat.Size,
		Name: BaseName(id),
	}, nil
}

// Splits s3://bucket/some/key into bucket and key
func ParseS3URL(id string) (string, string, error) {
	u, err := url.Parse(id)
	if err != nil {
		return "", "", errors.Wrap(err, "invalid s3 URL")
	}
	if u.Scheme != "s3" {
		return "", "", errors.Errorf("invalid s3 URL %q", id)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", errors.Errorf("s3 URL %q must be s3://bucket/key", id)
	}
	return u.Host, key, nil
}
