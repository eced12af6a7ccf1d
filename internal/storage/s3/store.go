// Package s3 persists archive objects in S3-compatible storage. The
// service talks to it through storage.ObjectStore; MinIO provides the
// transport.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/festql/festql/internal/storage"
)

// Config carries the connection settings for an S3-compatible endpoint.
// Endpoint may be a bare host:port or an http(s) URL; an explicit scheme
// overrides UseSSL.
type Config struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

// backend is the slice of the MinIO client the store uses. It stays dumb:
// all key handling and error translation happens in Store, so tests can
// swap in a fake without reimplementing any of that.
type backend interface {
	put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (minio.UploadInfo, error)
	get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	remove(ctx context.Context, bucket, key string) error
	bucketExists(ctx context.Context, bucket string) (bool, error)
	makeBucket(ctx context.Context, bucket, region string) error
}

// Store implements storage.ObjectStore on top of one bucket plus an
// optional key prefix.
type Store struct {
	backend backend
	bucket  string
	prefix  string
}

// New connects to the configured endpoint. When AutoCreateBucket is set it
// provisions the bucket up front so the first export cannot fail on a
// missing bucket.
func New(ctx context.Context, cfg Config) (*Store, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	host, secure, err := resolveEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	mc, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	store := &Store{backend: minioBackend{mc: mc}, bucket: bucket, prefix: normalizePrefix(cfg.Prefix)}
	if cfg.AutoCreateBucket {
		if err := store.ensureBucket(ctx, strings.TrimSpace(cfg.Region)); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// NewWithClient builds a store over an explicit backend. Tests use it; New
// is the production path.
func NewWithClient(bucket, prefix string, b backend) (*Store, error) {
	if b == nil {
		return nil, errors.New("backend is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	return &Store{backend: b, bucket: bucket, prefix: normalizePrefix(prefix)}, nil
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	full, err := joinKey(s.prefix, key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := s.backend.put(ctx, s.bucket, full, body, size, opts.ContentType)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("put object %q: %w", full, err)
	}
	return storage.ObjectInfo{Key: info.Key, Size: info.Size, ETag: info.ETag}, nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := joinKey(s.prefix, key)
	if err != nil {
		return nil, err
	}
	body, err := s.backend.get(ctx, s.bucket, full)
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("get object %q: %w", full, err)
	}
	return body, nil
}

// Delete is idempotent: removing an object that is already gone succeeds.
func (s *Store) Delete(ctx context.Context, key string) error {
	full, err := joinKey(s.prefix, key)
	if err != nil {
		return err
	}
	if err := s.backend.remove(ctx, s.bucket, full); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete object %q: %w", full, err)
	}
	return nil
}

func (s *Store) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.backend.bucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.backend.makeBucket(ctx, s.bucket, region); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	return nil
}

// resolveEndpoint reduces the configured endpoint to the bare host MinIO
// wants. An explicit scheme decides TLS; host:port endpoints without a
// scheme fall back to the UseSSL flag.
func resolveEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errors.New("s3 endpoint is required")
	}
	if !strings.Contains(raw, "://") {
		return raw, useSSL, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", raw)
	}
	switch parsed.Scheme {
	case "http":
		return parsed.Host, false, nil
	case "https":
		return parsed.Host, true, nil
	default:
		return "", false, fmt.Errorf("unsupported endpoint scheme %q", parsed.Scheme)
	}
}

// joinKey validates a caller-supplied object key and scopes it under the
// store prefix. Keys that would escape the prefix are rejected.
func joinKey(prefix, key string) (string, error) {
	key = strings.TrimSpace(strings.TrimPrefix(key, "/"))
	if key == "" {
		return "", errors.New("object key is required")
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("object key %q escapes the archive root", key)
	}
	if prefix == "" {
		return cleaned, nil
	}
	return path.Join(prefix, cleaned), nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	cleaned := path.Clean(prefix)
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// isNotFound reports whether the MinIO error means the object or bucket
// does not exist.
func isNotFound(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return true
		}
	}
	return false
}

type minioBackend struct {
	mc *minio.Client
}

func (b minioBackend) put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (minio.UploadInfo, error) {
	return b.mc.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
}

func (b minioBackend) get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := b.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject defers most failures to the first read; Stat surfaces a
	// missing object immediately.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, err
	}
	return obj, nil
}

func (b minioBackend) remove(ctx context.Context, bucket, key string) error {
	return b.mc.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

func (b minioBackend) bucketExists(ctx context.Context, bucket string) (bool, error) {
	return b.mc.BucketExists(ctx, bucket)
}

func (b minioBackend) makeBucket(ctx context.Context, bucket, region string) error {
	return b.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}
