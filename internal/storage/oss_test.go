package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/img2prompt/service/internal/apperr"
	"github.com/img2prompt/service/internal/config"
)

// fakeOSS implements ossAPI for testing without network.
type fakeOSS struct {
	bucketExists    bool
	bucketExistsErr error
	makeBucketErr   error
	policyErr       error
	putErr          error

	madeBucket bool
	policy     string

	putBucket      string
	putKey         string
	putBody        []byte
	putContentType string
}

func (f *fakeOSS) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, f.bucketExistsErr
}
func (f *fakeOSS) MakeBucket(_ context.Context, _ string, _ minio.MakeBucketOptions) error {
	f.madeBucket = true
	return f.makeBucketErr
}
func (f *fakeOSS) SetBucketPolicy(_ context.Context, _ string, policy string) error {
	f.policy = policy
	return f.policyErr
}
func (f *fakeOSS) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.putBucket, f.putKey, f.putContentType = bucket, key, opts.ContentType
	f.putBody, _ = io.ReadAll(r)
	return minio.UploadInfo{Bucket: bucket, Key: key}, f.putErr
}

func ossConfig() config.OSS {
	return config.OSS{
		Endpoint:  "oss-cn-hangzhou.aliyuncs.com",
		Bucket:    "img2prompt",
		UseSSL:    true,
		Namespace: "images",
		CDNHost:   "cdn.img2prompt.com",
	}
}

func newTestOSS(t *testing.T, api *fakeOSS) *OSSStorage {
	t.Helper()
	api.bucketExists = true
	s, err := newOSSStorage(context.Background(), api, ossConfig(), zerolog.Nop())
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }
	s.suffix = func() string { return "k3x9q0" }
	return s
}

func TestNewOSSStorage_Bucket(t *testing.T) {
	ctx := context.Background()

	t.Run("exists", func(t *testing.T) {
		api := &fakeOSS{bucketExists: true}
		_, err := newOSSStorage(ctx, api, ossConfig(), zerolog.Nop())
		require.NoError(t, err)
		assert.False(t, api.madeBucket)
	})

	t.Run("created with public policy", func(t *testing.T) {
		api := &fakeOSS{}
		_, err := newOSSStorage(ctx, api, ossConfig(), zerolog.Nop())
		require.NoError(t, err)
		assert.True(t, api.madeBucket)
		assert.Contains(t, api.policy, "arn:aws:s3:::img2prompt/*")
	})

	t.Run("check error", func(t *testing.T) {
		_, err := newOSSStorage(ctx, &fakeOSS{bucketExistsErr: errors.New("boom")}, ossConfig(), zerolog.Nop())
		assert.ErrorContains(t, err, "check bucket existence")
	})

	t.Run("create error", func(t *testing.T) {
		_, err := newOSSStorage(ctx, &fakeOSS{makeBucketErr: errors.New("denied")}, ossConfig(), zerolog.Nop())
		assert.ErrorContains(t, err, "create bucket")
	})
}

func TestOSSStorage_Upload(t *testing.T) {
	api := &fakeOSS{}
	s := newTestOSS(t, api)

	u, err := s.Upload(context.Background(), []byte("png-bytes"), "cat.PNG", "image/png")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.img2prompt.com/images/1700000000123-k3x9q0.png", u)
	assert.Equal(t, "img2prompt", api.putBucket)
	assert.Equal(t, "images/1700000000123-k3x9q0.png", api.putKey)
	assert.Equal(t, []byte("png-bytes"), api.putBody)
	assert.Equal(t, "image/png", api.putContentType)
}

func TestOSSStorage_Upload_HidesBackendError(t *testing.T) {
	backendErr := errors.New("InvalidAccessKeyId: LTAI5tSecretKey")
	s := newTestOSS(t, &fakeOSS{putErr: backendErr})

	_, err := s.Upload(context.Background(), []byte("x"), "a.png", "image/png")

	require.Error(t, err)
	assert.True(t, apperr.IsUploadFailure(err))
	assert.ErrorIs(t, err, backendErr)
	assert.NotContains(t, err.Error(), "LTAI5t")
}

func TestOSSStorage_Upload_NoCDN(t *testing.T) {
	api := &fakeOSS{}
	s := newTestOSS(t, api)
	s.cdnHost = ""

	u, err := s.Upload(context.Background(), []byte("x"), "a.webp", "image/webp")
	require.NoError(t, err)
	assert.Equal(t, "https://img2prompt.oss-cn-hangzhou.aliyuncs.com/images/1700000000123-k3x9q0.webp", u)
}

func TestCDNURL(t *testing.T) {
	got, err := cdnURL("http://bucket.oss.example.com/images/a%20b.png", "cdn.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/images/a%20b.png", got)

	_, err = cdnURL("://bad", "cdn.example.com")
	assert.Error(t, err)
}
