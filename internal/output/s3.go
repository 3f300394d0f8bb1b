package output

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/Rana718/seriesgen/internal/dataset"
	serr "github.com/Rana718/seriesgen/internal/errors"
	"github.com/Rana718/seriesgen/internal/spec"
)

type S3Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint is optional, for MinIO or LocalStack.
	Endpoint     string
	UsePathStyle bool
}

// ObjectPutter is the part of the S3 client the sink needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 keeps a local copy of every artifact and uploads it once written.
type S3 struct {
	local  *Dir
	client ObjectPutter
	cfg    S3Config
	logger *zap.Logger
}

func NewS3(ctx context.Context, local *Dir, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, serr.New(serr.CategoryConfiguration, serr.CodeMissingField, "s3.bucket is required")
	}
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, serr.Wrap(serr.CategoryConfiguration, serr.CodeInvalidValue, "failed to load AWS config", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return NewS3WithClient(local, s3.NewFromConfig(awsCfg, s3Opts...), cfg, logger), nil
}

func NewS3WithClient(local *Dir, client ObjectPutter, cfg S3Config, logger *zap.Logger) *S3 {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3{local: local, client: client, cfg: cfg, logger: logger.Named("s3")}
}

func (s *S3) WriteDataset(ctx context.Context, period int, t *dataset.Table) error {
	p, err := s.local.writeDataset(ctx, period, t)
	if err != nil {
		return err
	}
	return s.upload(ctx, p, "text/csv")
}

func (s *S3) WriteSpec(ctx context.Context, period int, stream string, sp *spec.Spec) error {
	p, err := s.local.writeSpec(ctx, period, stream, sp)
	if err != nil {
		return err
	}
	return s.upload(ctx, p, "application/yaml")
}

func (s *S3) key(localPath string) string {
	return path.Join(s.cfg.Prefix, filepath.Base(localPath))
}

func (s *S3) upload(ctx context.Context, localPath, contentType string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return writeErr(localPath, err)
	}
	defer file.Close()

	key := s.key(localPath)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return serr.Wrap(serr.CategoryPersistence, serr.CodeWriteFailed,
			fmt.Sprintf("failed to upload s3://%s/%s", s.cfg.Bucket, key), err)
	}
	s.logger.Info("uploaded", zap.String("bucket", s.cfg.Bucket), zap.String("key", key))
	return nil
}
