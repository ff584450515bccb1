// Package minio stores assets on MinIO or any S3-compatible server through
// minio-go.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// Config options for the MinIO backend
type Config struct {
	Endpoint        string // host:port, or a full http(s) URL
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
	PresignDuration time.Duration // default 1h

	CreateBucketIfNotExist bool
}

// Backend is a minio-go implementation of the simpleasset.BlobStore interface
type Backend struct {
	client          *minio.Client
	bucket          string
	presignDuration time.Duration
}

var _ simpleasset.BlobStore = (*Backend)(nil)

// New connects to the server and optionally ensures the bucket exists
func New(ctx context.Context, config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	endpoint, secure, err := parseEndpoint(config.Endpoint, config.UseSSL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: secure,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	if config.PresignDuration <= 0 {
		config.PresignDuration = time.Hour
	}
	b := &Backend{client: client, bucket: config.Bucket, presignDuration: config.PresignDuration}

	if config.CreateBucketIfNotExist {
		exists, err := client.BucketExists(ctx, config.Bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", config.Bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{Region: config.Region}); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", config.Bucket, err)
			}
		}
	}
	return b, nil
}

// parseEndpoint accepts host:port or a URL whose scheme decides TLS.
func parseEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	if endpoint == "" {
		return "", false, errors.New("endpoint is required")
	}
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return u.Host, u.Scheme == "https", nil
	}
	return endpoint, useSSL, nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == 404
}

// Put streams the object; a known size lets minio-go skip buffering
func (b *Backend) Put(ctx context.Context, key string, reader io.Reader, opts simpleasset.PutOptions) error {
	size := opts.Size
	if size <= 0 {
		size = -1
	}
	_, err := b.client.PutObject(ctx, b.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: opts.ContentType,
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// Open returns the object stream after confirming it exists
func (b *Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, simpleasset.ErrObjectNotFound
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing key before streaming.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNotFound(err) {
			return nil, simpleasset.ErrObjectNotFound
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	return obj, nil
}

// Delete removes the object; missing keys succeed as on S3
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			return simpleasset.ErrObjectNotFound
		}
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func (b *Backend) Stat(ctx context.Context, key string) (*simpleasset.ObjectInfo, error) {
	info, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, simpleasset.ErrObjectNotFound
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	return &simpleasset.ObjectInfo{
		Key:          key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// DownloadURL returns a presigned GET URL with a download disposition
func (b *Backend) DownloadURL(ctx context.Context, key string, filename string) (string, error) {
	params := url.Values{}
	if filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	}
	u, err := b.client.PresignedGetObject(ctx, b.bucket, key, b.presignDuration, params)
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}
	return u.String(), nil
}
