package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
	// PublicURL is prepended to object keys, e.g. a CDN or a public bucket URL.
	PublicURL string
}

// MinIO stores files in an S3-compatible bucket.
type MinIO struct {
	client    *minio.Client
	bucket    string
	prefix    string
	publicURL string
	now       func() time.Time
}

func NewMinIO(ctx context.Context, cfg MinIOConfig) (*MinIO, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return newMinIO(client, cfg.Bucket, cfg.Prefix, publicURL), nil
}

func newMinIO(client *minio.Client, bucket, prefix, publicURL string) *MinIO {
	return &MinIO{
		client:    client,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		publicURL: publicURL,
		now:       time.Now,
	}
}

func (m *MinIO) Store(ctx context.Context, data []byte, suggestedName, contentType string) (string, error) {
	rel := GeneratePath(m.now(), suggestedName, extFromName(suggestedName))
	_, err := m.client.PutObject(ctx, m.bucket, m.objectKey(rel),
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: contentType,
		},
	)
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return rel, nil
}

func (m *MinIO) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	key, err := m.key(p)
	if err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinIOError("get object", err)
	}
	// GetObject is lazy; Stat surfaces a missing key
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mapMinIOError("stat object", err)
	}
	return obj, nil
}

// Delete stats first because RemoveObject succeeds silently on missing keys.
func (m *MinIO) Delete(ctx context.Context, p string) error {
	key, err := m.key(p)
	if err != nil {
		return err
	}
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		return mapMinIOError("stat object", err)
	}
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return mapMinIOError("remove object", err)
	}
	return nil
}

func (m *MinIO) URL(p string) string {
	return joinURL(m.publicURL, m.objectKey(p))
}

func (m *MinIO) key(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "/") || path.Clean(p) != p || strings.HasPrefix(p, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return m.objectKey(p), nil
}

func (m *MinIO) objectKey(p string) string {
	if m.prefix == "" {
		return p
	}
	return m.prefix + "/" + p
}

func mapMinIOError(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrNotExist
	}
	return fmt.Errorf("%s: %w", op, err)
}
