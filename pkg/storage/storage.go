// Package storage mirrors small files (calibration mappings)
// in a remote object storage.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/chesscast/chesscast/pkg/config"
	"github.com/chesscast/chesscast/pkg/logger"
)

var ErrNotFound = errors.New("object not found")

type Storage interface {
	Save(ctx context.Context, name string, data []byte) error
	// Load returns ErrNotFound for missing objects.
	Load(ctx context.Context, name string) ([]byte, error)
	Has(ctx context.Context, name string) bool
}

// New makes the storage of the configured provider,
// an empty provider disables it.
func New(ctx context.Context, conf config.Storage, log *logger.Logger) (Storage, error) {
	log = log.Module("storage")
	switch conf.Provider {
	case "":
		return Noop{}, nil
	case "gcs":
		return NewGoogleCloudClient(ctx, conf.Bucket, conf.GcsCredentials, log)
	case "s3":
		return NewS3Client(ctx, conf.S3Endpoint, conf.Bucket, conf.S3AccessKeyId, conf.S3SecretAccessKey, !conf.S3Insecure, log)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", conf.Provider)
	}
}

// Noop is a storage with nothing in it.
type Noop struct{}

func (Noop) Save(context.Context, string, []byte) error   { return nil }
func (Noop) Load(context.Context, string) ([]byte, error) { return nil, ErrNotFound }
func (Noop) Has(context.Context, string) bool             { return false }
