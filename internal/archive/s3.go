package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/bigkaa/carecenter/governance-core/internal/config"
)

// S3Config — параметры подключения к S3 или совместимому хранилищу.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3Store — BlobStore поверх Amazon S3.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store создаёт клиент S3. Без статических ключей используется
// стандартная цепочка учётных данных AWS.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("не задан bucket архива")
	}
	if cfg.Region == "" {
		return nil, errors.New("не задан регион архива")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("загрузка конфигурации AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put: %w", err)
	}
	return nil
}

// Bucket возвращает имя bucket (для мониторинга зависимостей).
func (s *S3Store) Bucket() string {
	return s.bucket
}

// S3ConfigFrom извлекает параметры S3 архива из конфигурации сервиса.
func S3ConfigFrom(cfg *appconfig.Config) S3Config {
	return S3Config{
		Bucket:          cfg.ArchiveBucket,
		Region:          cfg.ArchiveRegion,
		Endpoint:        cfg.ArchiveEndpoint,
		AccessKeyID:     cfg.ArchiveAccessKey,
		SecretAccessKey: cfg.ArchiveSecretKey,
		UsePathStyle:    cfg.ArchiveUsePathStyle,
	}
}

// NewS3Archiver создаёт Archiver поверх нового S3Store.
func NewS3Archiver(ctx context.Context, cfg S3Config, prefix string, logger *slog.Logger) (*Archiver, error) {
	store, err := NewS3Store(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Архив хранения подключён",
		slog.String("bucket", store.Bucket()),
		slog.String("prefix", prefix),
	)
	return New(store, prefix, logger), nil
}
