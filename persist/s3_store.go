package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const ctxTimeout = 10 * time.Second

// S3Config holds the connection settings for an S3-compatible salt store.
type S3Config struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UseSSL          bool   `json:"use_ssl"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	KeyPrefix       string `json:"key_prefix"`
}

// S3SaltStore keeps the salt as a single object in an S3-compatible bucket,
// for deployments that sync a journal between machines. S3 object puts are
// atomic, which gives Save the same all-or-nothing behavior as the
// filesystem store's temp-and-rename.
type S3SaltStore struct {
	client     *minio.Client
	bucketName string
	objectName string
}

// NewS3SaltStore connects to the configured endpoint and verifies the bucket
// exists.
func NewS3SaltStore(config S3Config) (*S3SaltStore, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires a bucket name")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	objectName := "derivation.salt"
	if config.KeyPrefix != "" {
		objectName = config.KeyPrefix + "/" + objectName
	}

	store := &S3SaltStore{
		client:     client,
		bucketName: config.Bucket,
		objectName: objectName,
	}

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", config.Bucket)
	}

	return store, nil
}

// NewS3SaltStoreFromConfig builds an S3SaltStore from a generic StoreConfig.
func NewS3SaltStoreFromConfig(config StoreConfig) (*S3SaltStore, error) {
	s3cfg := S3Config{}
	s3cfg.Endpoint, _ = config.Config["endpoint"].(string)
	s3cfg.AccessKeyID, _ = config.Config["access_key_id"].(string)
	s3cfg.SecretAccessKey, _ = config.Config["secret_access_key"].(string)
	s3cfg.UseSSL, _ = config.Config["use_ssl"].(bool)
	s3cfg.Region, _ = config.Config["region"].(string)
	s3cfg.Bucket, _ = config.Config["bucket"].(string)
	s3cfg.KeyPrefix, _ = config.Config["key_prefix"].(string)
	return NewS3SaltStore(s3cfg)
}

func (s3s *S3SaltStore) Exists() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	_, err := s3s.client.StatObject(ctx, s3s.bucketName, s3s.objectName, minio.StatObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat salt object: %w", err)
	}
	return true, nil
}

func (s3s *S3SaltStore) Load() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	object, err := s3s.client.GetObject(ctx, s3s.bucketName, s3s.objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to load salt object: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read salt object: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("salt object %s is empty", s3s.objectName)
	}
	return data, nil
}

func (s3s *S3SaltStore) Save(salt []byte) error {
	if len(salt) == 0 {
		return fmt.Errorf("refusing to persist an empty salt")
	}

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	putOptions := minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		UserMetadata: map[string]string{
			"data-type":  "salt",
			"created-at": time.Now().UTC().Format(time.RFC3339),
		},
	}

	_, err := s3s.client.PutObject(ctx, s3s.bucketName, s3s.objectName,
		bytes.NewReader(salt), int64(len(salt)), putOptions)
	if err != nil {
		return fmt.Errorf("failed to save salt object: %w", err)
	}
	return nil
}

func (s3s *S3SaltStore) Close() error { return nil }

func (s3s *S3SaltStore) GetType() string { return string(StoreTypeS3) }
