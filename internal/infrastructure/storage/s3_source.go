package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/garyjia/tax-document-analyzer/internal/application/port"
	"github.com/garyjia/tax-document-analyzer/internal/config"
	"go.uber.org/zap"
)

// S3Scheme prefixes document references stored in S3
const S3Scheme = "s3://"

// ErrInvalidS3Ref is returned for references that are not s3://bucket/key
var ErrInvalidS3Ref = errors.New("invalid s3 reference")

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source downloads s3://bucket/key documents into local storage for processing
type S3Source struct {
	client  objectGetter
	storage port.FileStorage
	logger  *zap.Logger
}

// NewS3Source creates an S3 source from config. Static keys are used when both are set,
// otherwise the default AWS credential chain applies.
func NewS3Source(ctx context.Context, cfg config.S3Config, storage port.FileStorage, logger *zap.Logger) (*S3Source, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle || cfg.Endpoint != ""
	})

	return newS3Source(client, storage, logger), nil
}

func newS3Source(client objectGetter, storage port.FileStorage, logger *zap.Logger) *S3Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Source{client: client, storage: storage, logger: logger.With(zap.String("component", "s3-source"))}
}

// ParseS3Ref splits s3://bucket/key
func ParseS3Ref(ref string) (bucket, key string, err error) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidS3Ref, ref)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("%w: %q has no key", ErrInvalidS3Ref, ref)
	}
	return u.Host, key, nil
}

// Resolve implements port.DocumentSource. The downloaded copy is removed by release.
func (s *S3Source) Resolve(ctx context.Context, ref string) (string, func(), error) {
	bucket, key, err := ParseS3Ref(ref)
	if err != nil {
		return "", nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", nil, fmt.Errorf("s3 download: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", nil, fmt.Errorf("s3 download read: %w", err)
	}

	rel := UploadPath(key)
	if err := s.storage.Save(ctx, rel, data); err != nil {
		return "", nil, err
	}

	s.logger.Info("Document fetched from S3",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("size", len(data)))

	release := func() {
		if err := s.storage.Delete(context.Background(), rel); err != nil {
			s.logger.Warn("Failed to remove downloaded document", zap.String("path", rel), zap.Error(err))
		}
	}
	return s.storage.GetFullPath(rel), release, nil
}
