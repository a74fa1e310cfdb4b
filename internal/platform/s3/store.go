package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yungbote/studyforge-backend/internal/platform/envutil"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

type Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// Endpoint points at an S3-compatible server (MinIO) and switches to path-style URLs.
	Endpoint string
}

func ConfigFromEnv() Config {
	return Config{
		Region:    envutil.String("AWS_REGION", ""),
		Bucket:    envutil.String("S3_BUCKET_NAME", ""),
		AccessKey: envutil.String("AWS_ACCESS_KEY_ID", ""),
		SecretKey: envutil.String("AWS_SECRET_ACCESS_KEY", ""),
		Endpoint:  strings.TrimRight(envutil.String("S3_ENDPOINT", ""), "/"),
	}
}

type Store struct {
	log        *logger.Logger
	uploader   *manager.Uploader
	downloader *manager.Downloader
	cfg        Config
}

func NewStore(ctx context.Context, log *logger.Logger, cfg Config) (*Store, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("AWS_REGION not set")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET_NAME not set")
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	s := &Store{
		log:        log.With("service", "S3Store"),
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		cfg:        cfg,
	}
	s.log.Info("Object storage initialized", "provider", "s3", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint)
	return s, nil
}

// Put uploads data and returns its URL.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	_, err := s.uploader.Upload(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return s.cfg.ObjectURL(key), nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	buf := manager.NewWriteAtBuffer(nil)
	if _, err := s.downloader.Download(ctx, buf, &awss3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		return nil, fmt.Errorf("s3 download failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (c Config) ObjectURL(key string) string {
	if c.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", c.Endpoint, c.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.Bucket, c.Region, key)
}
