package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"rateplans/internal/app/policies"
)

const defaultLinkExpiry = 24 * time.Hour

type Config struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	Region         string
	LinkExpiry     time.Duration
}

// ExportStore writes calendar exports to a private S3-compatible bucket and
// hands out presigned download links.
type ExportStore struct {
	bucket         string
	linkExpiry     time.Duration
	client         *minio.Client
	presigner      *minio.Client
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

func NewExportStore(cfg Config, logger *slog.Logger) (*ExportStore, error) {
	cleanEndpoint := strings.TrimSpace(cfg.Endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	newClient := func(endpoint string, secure bool) (*minio.Client, error) {
		return minio.New(parseEndpoint(endpoint), &minio.Options{
			Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
			Secure: secure,
			Region: region,
		})
	}
	minioClient, err := newClient(cleanEndpoint, cfg.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	// Links are signed for the host the downloader will use, so a separate
	// client signs them when storage is reached through an internal address.
	presigner := minioClient
	if public := strings.TrimSpace(cfg.PublicEndpoint); public != "" && public != cleanEndpoint {
		parsed, err := url.Parse(public)
		if err != nil || parsed.Host == "" {
			return nil, fmt.Errorf("s3: invalid public endpoint %q", public)
		}
		presigner, err = newClient(public, parsed.Scheme == "https")
		if err != nil {
			return nil, fmt.Errorf("s3: create presign client: %w", err)
		}
	}

	store := &ExportStore{
		bucket:     bucket,
		linkExpiry: cfg.LinkExpiry,
		client:     minioClient,
		presigner:  presigner,
		logger:     logger,
	}
	if store.linkExpiry <= 0 {
		store.linkExpiry = defaultLinkExpiry
	}
	return store, nil
}

func (s *ExportStore) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}

	link, err := s.presigner.PresignedGetObject(ctx, s.bucket, key, s.linkExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("s3: presign: %w", err)
	}
	publicURL := link.String()
	if s.logger != nil {
		s.logger.Info("s3 export stored", "bucket", s.bucket, "key", key, "bytes", len(body))
	}
	return publicURL, nil
}

// Ping reports whether the bucket is reachable.
func (s *ExportStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

func (s *ExportStore) ensureBucket(ctx context.Context) error {
	s.bucketInitOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return s.bucketInitErr
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ policies.ObjectStore = (*ExportStore)(nil)
