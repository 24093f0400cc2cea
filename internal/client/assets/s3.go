package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophprofile/internal/logging"
)

const maxObjectSize = 10 << 20

// s3API is the part of *s3.Client the transfer uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newKey = uuid.NewString
)

// S3Config points the transfer at a bucket. Endpoint is optional; when set,
// requests go there with path-style addressing (MinIO, Supabase Storage).
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type S3Transfer struct {
	client s3API
	bucket string
	logger logging.Logger
}

func NewS3Transfer(ctx context.Context, cfg S3Config, logger logging.Logger) (*S3Transfer, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("avatar bucket is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	if logger == nil {
		logger = logging.Nop()
	}
	return &S3Transfer{client: client, bucket: cfg.Bucket, logger: logger.With("component", "avatar_store")}, nil
}

func (t *S3Transfer) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	key := newKey() + extensionFor(contentType)

	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(t.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		t.logger.Warn(ctx, "avatar upload failed", "key", key, "err", err)
		return "", classify(err)
	}

	t.logger.Debug(ctx, "avatar uploaded", "key", key, "bytes", len(data))
	return key, nil
}

func (t *S3Transfer) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyDownload(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrNetwork, key, err)
	}
	if len(data) > maxObjectSize {
		return nil, fmt.Errorf("%w: object %s exceeds %d bytes", ErrNetwork, key, maxObjectSize)
	}
	return data, nil
}

// classify maps an SDK error onto the package sentinels. Anything not
// recognised as a refusal or a missing object counts as a network failure.
func classify(err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		case "AccessDenied", "QuotaExceeded", "EntityTooLarge", "NoSuchBucket",
			"InvalidAccessKeyId", "SignatureDoesNotMatch", "AllAccessDisabled":
			return fmt.Errorf("%w: %w", ErrRejected, err)
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch code := respErr.HTTPStatusCode(); {
		case code == http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		case code >= 400 && code < 500:
			return fmt.Errorf("%w: %w", ErrRejected, err)
		}
	}

	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// classifyDownload narrows classify for reads, which fail only as a missing
// object or a network failure. Refusals keep their cause but count as the
// latter.
func classifyDownload(err error) error {
	if c := classify(err); !errors.Is(c, ErrRejected) {
		return c
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
