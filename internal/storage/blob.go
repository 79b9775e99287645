package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/img2prompt/service/internal/apperr"
	"github.com/img2prompt/service/internal/config"
	"github.com/img2prompt/service/internal/retry"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var _ Uploader = (*BlobStorage)(nil)

// BlobStorage uploads to an S3-compatible bucket, retrying failed puts with
// exponential backoff, then resolves a download URL for the stored object.
type BlobStorage struct {
	api        s3API
	presign    presignAPI
	bucket     string
	publicBase string
	urlTTL     time.Duration
	policy     retry.Policy
	log        zerolog.Logger

	now func() time.Time
}

// NewBlobStorage builds the S3 client for cfg. policy bounds the upload retries.
func NewBlobStorage(ctx context.Context, cfg config.Storage, policy retry.Policy, log zerolog.Logger) (*BlobStorage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.URL)
		o.UsePathStyle = true
	})
	return newBlobStorage(client, s3.NewPresignClient(client), cfg, policy, log), nil
}

func newBlobStorage(api s3API, presign presignAPI, cfg config.Storage, policy retry.Policy, log zerolog.Logger) *BlobStorage {
	log = log.With().Str("provider", "storage").Logger()
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, delay time.Duration, err error) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("upload attempt failed, retrying")
		}
	}
	return &BlobStorage{
		api:        api,
		presign:    presign,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBase, "/"),
		urlTTL:     cfg.URLTTL,
		policy:     policy,
		log:        log,
		now:        time.Now,
	}
}

type blobPayload struct {
	data        []byte
	contentType string
}

// Upload stores data under a sanitized key and returns its download URL.
// When every attempt fails the returned UploadFailure wraps the last error.
func (s *BlobStorage) Upload(ctx context.Context, data []byte, fileName, contentType string) (string, error) {
	key := blobKey(s.now(), fileName)

	err := uploadWithRetry(ctx, s.policy, key, blobPayload{data: data, contentType: contentType}, s.put)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Int("attempts", s.policy.MaxAttempts).Msg("upload failed")
		return "", &apperr.UploadFailure{Message: "failed to upload file", Err: err}
	}

	u, err := s.downloadURL(ctx, key)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("resolve download url")
		return "", &apperr.UploadFailure{Message: "failed to resolve download URL", Err: err}
	}
	return u, nil
}

func (s *BlobStorage) put(ctx context.Context, key string, p blobPayload) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(p.data),
		ContentLength: aws.Int64(int64(len(p.data))),
		ContentType:   aws.String(p.contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// downloadURL returns {publicBase}/{key} when a public base is configured,
// otherwise a presigned GET URL valid for urlTTL.
func (s *BlobStorage) downloadURL(ctx context.Context, key string) (string, error) {
	if s.publicBase != "" {
		return s.publicBase + "/" + key, nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("presign get %q: %w", key, err)
	}
	return req.URL, nil
}

// uploadWithRetry runs put under policy. Ref identifies the blob and Payload
// carries its content; both are passed through unchanged on every attempt.
func uploadWithRetry[Ref, Payload any](
	ctx context.Context,
	policy retry.Policy,
	ref Ref,
	payload Payload,
	put func(ctx context.Context, ref Ref, payload Payload) error,
) error {
	_, err := retry.Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, put(ctx, ref, payload)
	})
	return err
}
