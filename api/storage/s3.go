package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"modpanel/api/function"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

// Files keeps execution uploads in an S3 bucket.
type Files struct {
	mc     *minio.Client
	config Config
}

var _ function.FileStore = (*Files)(nil)

func NewFiles(ctx context.Context, cfg Config) (*Files, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	f := &Files{mc: mc, config: cfg}
	if err := f.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Files) ensureBucket(ctx context.Context) error {
	exists, err := f.mc.BucketExists(ctx, f.config.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", f.config.Bucket, err)
	}
	if exists {
		return nil
	}
	region := f.config.Region
	if region == "" {
		region = "us-east-1"
	}
	if err := f.mc.MakeBucket(ctx, f.config.Bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", f.config.Bucket, err)
	}
	log.Info().Str("bucket", f.config.Bucket).Msg("s3: created bucket")
	return nil
}

func (f *Files) Put(ctx context.Context, path string, data []byte) error {
	_, err := f.mc.PutObject(ctx, f.config.Bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	return nil
}

func (f *Files) Get(ctx context.Context, path string) ([]byte, error) {
	obj, err := f.mc.GetObject(ctx, f.config.Bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, function.ErrNoFile
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (f *Files) Prune(ctx context.Context, before time.Time) (int, error) {
	n := 0
	for obj := range f.mc.ListObjects(ctx, f.config.Bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return n, fmt.Errorf("list %s: %w", f.config.Bucket, obj.Err)
		}
		if !obj.LastModified.Before(before) {
			continue
		}
		if err := f.mc.RemoveObject(ctx, f.config.Bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return n, fmt.Errorf("remove %s: %w", obj.Key, err)
		}
		n++
	}
	return n, nil
}

func (f *Files) Healthy(ctx context.Context) error {
	_, err := f.mc.ListBuckets(ctx)
	return err
}
