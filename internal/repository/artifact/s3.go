package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/jgivc/fileregistry/internal/config"
	"github.com/jgivc/fileregistry/internal/entity"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	sinkNameS3 = "s3"
)

type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type S3Sink struct {
	client objectStore
	bucket string
	region string
	prefix string

	mu          sync.Mutex
	initialized bool

	log *slog.Logger
}

func NewS3Sink(cfg *config.S3Config, log *slog.Logger) (*S3Sink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}

	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot init s3 client: %w", err)
	}

	return &S3Sink{
		client: client,
		bucket: bucket,
		region: cfg.Region,
		prefix: strings.Trim(cfg.Prefix, "/"),
		log:    log.With(slog.String("item", "S3Sink"), slog.String("bucket", bucket)),
	}, nil
}

func (s *S3Sink) Name() string {
	return sinkNameS3
}

// ensureBucket creates the bucket if needed. A failed check is retried on the next call.
func (s *S3Sink) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}

	if !exists {
		s.log.Info("Create bucket")

		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return err
		}
	}

	s.initialized = true

	return nil
}

// Put uploads every artifact under <prefix>/<snapshot id>/.
func (s *S3Sink) Put(ctx context.Context, snapshot *entity.Snapshot) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("cannot ensure bucket: %w", err)
	}

	objs := objects(snapshot)
	for _, obj := range objs {
		key := ObjectKey(s.prefix, snapshot.ID, obj.path)

		_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(obj.data), int64(len(obj.data)), minio.PutObjectOptions{
			ContentType: obj.contentType,
		})
		if err != nil {
			return fmt.Errorf("cannot put object %s: %w", key, err)
		}
	}

	s.log.Info("Snapshot uploaded", slog.String("id", snapshot.ID), slog.Int("objects", len(objs)))

	return nil
}

func ObjectKey(prefix, id, name string) string {
	return strings.TrimPrefix(path.Join(prefix, id, name), "/")
}
