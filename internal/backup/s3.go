package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectAPI is the subset of the S3 client used for backups
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Client wraps S3 operations for backup/restore
type S3Client struct {
	client ObjectAPI
	bucket string
}

// NewS3Client creates a new S3 client
func NewS3Client(ctx context.Context, bucket string) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewS3ClientWithAPI(s3.NewFromConfig(cfg), bucket), nil
}

// NewS3ClientWithAPI wraps an existing S3 API implementation
func NewS3ClientWithAPI(client ObjectAPI, bucket string) *S3Client {
	return &S3Client{
		client: client,
		bucket: bucket,
	}
}

func (s *S3Client) Bucket() string {
	return s.bucket
}

// UploadFile uploads a file to S3
func (s *S3Client) UploadFile(ctx context.Context, key string, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file %s to s3://%s/%s: %w", filePath, s.bucket, key, err)
	}

	return nil
}

// DownloadFile downloads a file from S3
func (s *S3Client) DownloadFile(ctx context.Context, key string, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to download file s3://%s/%s: %w", s.bucket, key, err)
	}
	defer result.Body.Close()

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, result.Body); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}

	return nil
}

// ListObjects lists all objects with a given prefix
func (s *S3Client) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var continuationToken *string

	for {
		result, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range result.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}

		if !aws.ToBool(result.IsTruncated) {
			break
		}
		continuationToken = result.NextContinuationToken
	}

	return keys, nil
}

// UploadDirectory uploads all files in a directory to S3 under prefix
func (s *S3Client) UploadDirectory(ctx context.Context, localDir string, prefix string) error {
	return filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(localDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		key := joinKey(prefix, filepath.ToSlash(relPath))
		if err := s.UploadFile(ctx, key, path); err != nil {
			return fmt.Errorf("failed to upload %s: %w", path, err)
		}
		return nil
	})
}

// DownloadDirectory downloads every object under the prefix "directory" into localDir.
// Sibling keys that only share the string prefix are not included.
func (s *S3Client) DownloadDirectory(ctx context.Context, prefix string, localDir string) error {
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		prefix += "/"
	}

	keys, err := s.ListObjects(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to list S3 objects: %w", err)
	}
	if len(keys) == 0 {
		return fmt.Errorf("no objects under s3://%s/%s", s.bucket, prefix)
	}

	for _, key := range keys {
		// directory markers
		if strings.HasSuffix(key, "/") {
			continue
		}

		relKey := strings.TrimPrefix(key, prefix)
		localPath := filepath.Join(localDir, filepath.FromSlash(relKey))
		if err := s.DownloadFile(ctx, key, localPath); err != nil {
			return fmt.Errorf("failed to download %s: %w", key, err)
		}
	}

	return nil
}

func joinKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
