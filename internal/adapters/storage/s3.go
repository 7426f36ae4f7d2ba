package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the subset of the S3 client used here
type s3API interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, opts ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, opts ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *awss3.DeleteObjectsInput, opts ...func(*awss3.Options)) (*awss3.DeleteObjectsOutput, error)
	HeadObject(ctx context.Context, in *awss3.HeadObjectInput, opts ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, opts ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, in *awss3.ListObjectsV2Input, opts ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
}

// S3FileStorage implements FileStorage on Amazon S3 or an S3-compatible
// endpoint
type S3FileStorage struct {
	client  s3API
	bucket  string
	baseURL string
}

// NewS3FileStorage loads the default AWS configuration, applying static
// credentials and a custom endpoint when configured
func NewS3FileStorage(ctx context.Context, cfg *StorageConfig) (*S3FileStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch {
		case cfg.Endpoint != "":
			baseURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
		default:
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, awsCfg.Region)
		}
	}

	return newS3FileStorage(awss3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, baseURL), nil
}

func newS3FileStorage(client s3API, bucket, baseURL string) *S3FileStorage {
	return &S3FileStorage{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Store implements FileStorage.Store
func (s *S3FileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if key == "" {
		return NewStorageError("Store", key, ErrInvalidKey, false)
	}
	if len(data) == 0 {
		return NewStorageError("Store", key, ErrInvalidData, false)
	}

	if opts == nil || !opts.Overwrite {
		exists, err := s.Exists(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return NewStorageError("Store", key, ErrFileAlreadyExists, false)
		}
	}

	contentType := contentTypeFor(key)
	if opts != nil && opts.ContentType != "" {
		contentType = opts.ContentType
	}

	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return s.wrap("Store", key, err)
	}
	return nil
}

// Retrieve implements FileStorage.Retrieve
func (s *S3FileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s.wrap("Retrieve", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, NewStorageError("Retrieve", key, err, true)
	}
	return data, nil
}

// Delete implements FileStorage.Delete. S3 reports success for missing keys.
func (s *S3FileStorage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s.wrap("Delete", key, err)
	}
	return nil
}

// Exists implements FileStorage.Exists
func (s *S3FileStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		wrapped := s.wrap("Exists", key, err)
		if IsNotFound(wrapped) {
			return false, nil
		}
		return false, wrapped
	}
	return true, nil
}

// List implements FileStorage.List, following continuation tokens
func (s *S3FileStorage) List(ctx context.Context, opts *ListOptions) (*ListResult, error) {
	if opts == nil {
		opts = &ListOptions{}
	}

	input := &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(opts.Prefix),
	}

	result := &ListResult{Files: []FileMetadata{}}
	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, s.wrap("List", opts.Prefix, err)
		}
		for _, obj := range out.Contents {
			meta := FileMetadata{
				Key:         aws.ToString(obj.Key),
				Size:        aws.ToInt64(obj.Size),
				ContentType: contentTypeFor(aws.ToString(obj.Key)),
			}
			if obj.LastModified != nil {
				meta.LastModified = *obj.LastModified
			}
			result.Files = append(result.Files, meta)
			if opts.MaxResults > 0 && len(result.Files) >= opts.MaxResults {
				return result, nil
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	return result, nil
}

// DeletePrefix implements FileStorage.DeletePrefix with batched deletes
func (s *S3FileStorage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, NewStorageError("DeletePrefix", prefix, ErrInvalidKey, false)
	}

	listed, err := s.List(ctx, &ListOptions{Prefix: prefix})
	if err != nil {
		return 0, err
	}

	const batchSize = 1000
	removed := 0
	for start := 0; start < len(listed.Files); start += batchSize {
		end := start + batchSize
		if end > len(listed.Files) {
			end = len(listed.Files)
		}

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, file := range listed.Files[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(file.Key)})
		}

		out, err := s.client.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return removed, s.wrap("DeletePrefix", prefix, err)
		}
		removed += len(ids) - len(out.Errors)
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return removed, NewStorageError("DeletePrefix", aws.ToString(first.Key),
				fmt.Errorf("%s: %s", aws.ToString(first.Code), aws.ToString(first.Message)), true)
		}
	}
	return removed, nil
}

// URL implements FileStorage.URL
func (s *S3FileStorage) URL(key string) string {
	return s.baseURL + "/" + strings.TrimPrefix(key, "/")
}

// Ping implements FileStorage.Ping
func (s *S3FileStorage) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return s.wrap("Ping", "", err)
	}
	return nil
}

// Close implements FileStorage.Close
func (s *S3FileStorage) Close() error {
	return nil
}

// wrap classifies S3 errors into storage errors
func (s *S3FileStorage) wrap(op, key string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noBucket *types.NoSuchBucket
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		return NewStorageError(op, key, fmt.Errorf("%w: %v", ErrFileNotFound, err), false)
	case errors.As(err, &noBucket):
		return NewStorageError(op, key, fmt.Errorf("%w: %v", ErrStorageUnavailable, err), false)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewStorageError(op, key, fmt.Errorf("%w: %v", ErrTimeout, err), false)
	default:
		return NewStorageError(op, key, err, true)
	}
}
