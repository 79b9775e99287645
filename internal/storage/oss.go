package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/img2prompt/service/internal/apperr"
	"github.com/img2prompt/service/internal/config"
)

// ossAPI is the subset of *minio.Client used here; tests substitute a fake.
type ossAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

var _ Uploader = (*OSSStorage)(nil)

// OSSStorage uploads to an Alibaba OSS bucket through its S3-compatible API
// and hands out CDN URLs instead of bucket URLs.
type OSSStorage struct {
	api       ossAPI
	bucket    string
	endpoint  string
	useSSL    bool
	namespace string
	cdnHost   string
	log       zerolog.Logger

	now    func() time.Time
	suffix func() string
}

// NewOSSStorage creates a minio client for the OSS endpoint and ensures the bucket exists.
func NewOSSStorage(ctx context.Context, cfg config.OSS, log zerolog.Logger) (*OSSStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create oss client: %w", err)
	}
	return newOSSStorage(ctx, client, cfg, log)
}

func newOSSStorage(ctx context.Context, api ossAPI, cfg config.OSS, log zerolog.Logger) (*OSSStorage, error) {
	s := &OSSStorage{
		api:       api,
		bucket:    cfg.Bucket,
		endpoint:  cfg.Endpoint,
		useSSL:    cfg.UseSSL,
		namespace: cfg.Namespace,
		cdnHost:   cfg.CDNHost,
		log:       log.With().Str("provider", "oss").Logger(),
		now:       time.Now,
		suffix:    randomSuffix,
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureBucket creates the bucket with a public-read policy if it is missing.
func (s *OSSStorage) ensureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	if err := s.api.SetBucketPolicy(ctx, s.bucket, publicReadPolicy(s.bucket)); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	s.log.Info().Str("bucket", s.bucket).Msg("created bucket")
	return nil
}

// Upload stores data in a single attempt and returns its CDN URL.
// Backend errors are logged and replaced with a generic UploadFailure.
func (s *OSSStorage) Upload(ctx context.Context, data []byte, fileName, contentType string) (string, error) {
	key := ossKey(s.namespace, s.now(), s.suffix(), fileName)

	_, err := s.api.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("upload failed")
		return "", &apperr.UploadFailure{Message: "failed to upload file", Err: err}
	}

	u, err := cdnURL(s.objectURL(key), s.cdnHost)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("rewrite url")
		return "", &apperr.UploadFailure{Message: "failed to upload file", Err: err}
	}
	return u, nil
}

// objectURL is the virtual-hosted URL OSS serves the object from.
func (s *OSSStorage) objectURL(key string) string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return (&url.URL{Scheme: scheme, Host: s.bucket + "." + s.endpoint, Path: "/" + key}).String()
}

// cdnURL replaces the authority of raw with host, keeping the path.
// An empty host leaves raw untouched.
func cdnURL(raw, host string) (string, error) {
	if host == "" {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse object url: %w", err)
	}
	u.Scheme = "https"
	u.Host = host
	u.User = nil
	return u.String(), nil
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
