package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"evently/internal/config"
	apperrors "evently/internal/errors"
)

// MaxBannerSize is the largest accepted banner upload in bytes.
const MaxBannerSize = 2 << 20

var allowedBannerTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// BannerStore uploads event banners to an S3-compatible bucket. A store
// without a bucket rejects every upload.
type BannerStore struct {
	client  ObjectPutter
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewBannerStore builds an S3 client from cfg. An empty bucket yields a
// disabled store.
func NewBannerStore(ctx context.Context, cfg config.S3Config) (*BannerStore, error) {
	if cfg.Bucket == "" {
		return &BannerStore{}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewBannerStoreWithClient(client, cfg.Bucket, publicBaseURL(cfg)), nil
}

// NewBannerStoreWithClient wires an existing client. Object URLs are
// baseURL + "/" + key.
func NewBannerStoreWithClient(client ObjectPutter, bucket, baseURL string) *BannerStore {
	return &BannerStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func publicBaseURL(cfg config.S3Config) string {
	switch {
	case cfg.PublicURL != "":
		return cfg.PublicURL
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// Enabled reports whether uploads are accepted.
func (b *BannerStore) Enabled() bool {
	return b != nil && b.client != nil && b.bucket != ""
}

// Upload validates and stores a banner image, returning its public URL.
// size is the declared length; the body is still capped while reading.
func (b *BannerStore) Upload(ctx context.Context, body io.Reader, size int64) (string, error) {
	if !b.Enabled() {
		return "", apperrors.ErrUploadsDisabled
	}
	if size > MaxBannerSize {
		return "", apperrors.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxBannerSize+1))
	if err != nil {
		return "", fmt.Errorf("read banner: %w", err)
	}
	if len(data) > MaxBannerSize {
		return "", apperrors.ErrFileTooLarge
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedBannerTypes[mtype.String()]
	if !ok {
		return "", apperrors.ErrUnsupportedFile
	}

	now := b.now().UTC()
	key := fmt.Sprintf("banners/%d/%02d/%s%s", now.Year(), now.Month(), uuid.New(), ext)

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mtype.String()),
	})
	if err != nil {
		return "", fmt.Errorf("put banner: %w", err)
	}
	return b.baseURL + "/" + key, nil
}
