// Package raster is the boundary between the uploader and raster storage.
// Files are copied to a local directory or an S3 bucket and the returned
// handle is something raster2pgsql can read.
package raster

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/couchcryptid/snowex-etl-service/internal/config"
)

// LocalStore copies rasters into a directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("raster dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("raster dir %s: %w", dir, err)
	}
	return &LocalStore{dir: abs}, nil
}

// Put copies src into the directory and returns the absolute path.
func (l *LocalStore) Put(_ context.Context, src string) (string, error) {
	dst := filepath.Join(l.dir, filepath.Base(src))
	if abs, err := filepath.Abs(src); err == nil && abs == dst {
		return dst, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open raster: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create raster copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("copy raster: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("copy raster: %w", err)
	}
	return dst, nil
}

// objectPutter is the part of *s3.Client the store uses.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads rasters under bucket/prefix.
type S3Store struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Store builds a client from the default AWS credential chain. A
// custom endpoint (MinIO) switches to path style addressing.
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	if cfg.RasterBucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.RasterS3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.RasterS3Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, bucket: cfg.RasterBucket, prefix: cfg.RasterPrefix}, nil
}

// Key is the object key a file is stored under.
func (s *S3Store) Key(src string) string {
	return path.Join(s.prefix, filepath.Base(src))
}

// Put uploads src and returns its GDAL virtual path.
func (s *S3Store) Put(ctx context.Context, src string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open raster: %w", err)
	}
	defer f.Close()

	key := s.Key(src)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("image/tiff"),
	})
	if err != nil {
		return "", fmt.Errorf("upload raster to s3://%s/%s: %w", s.bucket, key, err)
	}
	return "/vsis3/" + s.bucket + "/" + key, nil
}
