package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"rimagic/api/internal/config"
)

// ArtifactStore uploads generated mockups to an S3-compatible bucket.
// It is optional; without it responses carry the image inline as a data URL.
type ArtifactStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewArtifactStore(cfg config.StorageConfig) (*ArtifactStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}

	return &ArtifactStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicURL,
	}, nil
}

func (s *ArtifactStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	return nil
}

// Put uploads one artifact and returns its public URL.
func (s *ArtifactStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	objectKey := path.Join(time.Now().UTC().Format("2006/01/02"), name)

	_, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	base := strings.TrimSuffix(s.publicURL, "/")
	if base == "" {
		scheme := "https"
		if !s.client.EndpointURL().IsAbs() || s.client.EndpointURL().Scheme == "http" {
			scheme = "http"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, s.client.EndpointURL().Host, s.bucket)
	}
	return fmt.Sprintf("%s/%s", base, objectKey), nil
}
