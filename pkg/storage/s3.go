package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/chesscast/chesscast/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Client struct {
	c      *minio.Client
	bucket string
	log    *logger.Logger
}

func NewS3Client(ctx context.Context, endpoint, bucket, key, secret string, secure bool, log *logger.Logger) (*S3Client, error) {
	s3Client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(key, secret, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := s3Client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.New("bucket doesn't exist")
	}

	return &S3Client{bucket: bucket, c: s3Client, log: log}, nil
}

func (s *S3Client) Save(ctx context.Context, name string, data []byte) error {
	opts := minio.PutObjectOptions{
		ContentType:    "application/json",
		SendContentMd5: true,
	}
	info, err := s.c.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return err
	}
	s.log.Debug().Str("name", name).Int64("size", info.Size).Msg("Uploaded")
	return nil
}

func (s *S3Client) Load(ctx context.Context, name string) (data []byte, err error) {
	r, err := s.c.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, r.Close()) }()

	data, err = io.ReadAll(r)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *S3Client) Has(ctx context.Context, name string) bool {
	_, err := s.c.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	return err == nil
}
