package storage

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/chesscast/chesscast/pkg/logger"
	"google.golang.org/api/option"
)

type GoogleCloudClient struct {
	bucket *storage.BucketHandle
	log    *logger.Logger
}

// NewGoogleCloudClient returns a Google Cloud Storage client.
// Empty credentials mean the application default ones.
func NewGoogleCloudClient(ctx context.Context, bucket, credentials string, log *logger.Logger) (*GoogleCloudClient, error) {
	var opts []option.ClientOption
	if credentials != "" {
		opts = append(opts, option.WithCredentialsFile(credentials))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleCloudClient{bucket: client.Bucket(bucket), log: log}, nil
}

// Save saves a file to GCS.
func (c *GoogleCloudClient) Save(ctx context.Context, name string, data []byte) error {
	wc := c.bucket.Object(name).NewWriter(ctx)
	wc.ContentType = "application/json"
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	c.log.Debug().Str("name", name).Int("size", len(data)).Msg("Uploaded")
	return nil
}

// Load loads file from GCS.
func (c *GoogleCloudClient) Load(ctx context.Context, name string) (data []byte, err error) {
	rc, err := c.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer func() { err = errors.Join(err, rc.Close()) }()
	return io.ReadAll(rc)
}

func (c *GoogleCloudClient) Has(ctx context.Context, name string) bool {
	_, err := c.bucket.Object(name).Attrs(ctx)
	return err == nil
}
