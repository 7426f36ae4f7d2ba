package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 keeps objects in memory and pages listings two at a time
type fakeS3 struct {
	objects   map[string][]byte
	headFails error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = data
	return &awss3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &awss3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, in *awss3.DeleteObjectsInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectsOutput, error) {
	for _, id := range in.Delete.Objects {
		delete(f.objects, aws.ToString(id.Key))
	}
	return &awss3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	if f.headFails != nil {
		return nil, f.headFails
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &awss3.HeadObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, _ ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error) {
	if aws.ToString(in.Bucket) != "pictures" {
		return nil, &types.NoSuchBucket{}
	}
	return &awss3.HeadBucketOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		for i, k := range keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	end := start + 2
	out := &awss3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	} else {
		end = len(keys)
	}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k])))})
	}
	return out, nil
}

func TestS3FileStorage_StoreRetrieve(t *testing.T) {
	fake := newFakeS3()
	s := newS3FileStorage(fake, "pictures", "https://cdn.example.com/")
	ctx := context.Background()

	if err := s.Store(ctx, "p/u1/picture.jpg", []byte("jpeg"), nil); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if err := s.Store(ctx, "p/u1/picture.jpg", []byte("again"), nil); !IsAlreadyExists(err) {
		t.Errorf("Expected already exists, got %v", err)
	}
	if err := s.Store(ctx, "p/u1/picture.jpg", []byte("again"), &StoreOptions{Overwrite: true}); err != nil {
		t.Errorf("Overwrite failed: %v", err)
	}

	data, err := s.Retrieve(ctx, "p/u1/picture.jpg")
	if err != nil || string(data) != "again" {
		t.Errorf("Retrieve() = %q, %v", data, err)
	}

	if _, err := s.Retrieve(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}

	if got := s.URL("p/u1/picture.jpg"); got != "https://cdn.example.com/p/u1/picture.jpg" {
		t.Errorf("URL() = %s", got)
	}
}

func TestS3FileStorage_DeletePrefixPaginates(t *testing.T) {
	fake := newFakeS3()
	s := newS3FileStorage(fake, "pictures", "")
	ctx := context.Background()

	for _, k := range []string{"p/u1/a", "p/u1/b", "p/u1/c", "p/u1/d", "p/u1/e", "p/u2/a"} {
		fake.objects[k] = []byte("x")
	}

	listed, err := s.List(ctx, &ListOptions{Prefix: "p/u1/"})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(listed.Files) != 5 {
		t.Fatalf("Expected 5 objects across pages, got %d", len(listed.Files))
	}

	removed, err := s.DeletePrefix(ctx, "p/u1/")
	if err != nil {
		t.Fatalf("DeletePrefix() failed: %v", err)
	}
	if removed != 5 || len(fake.objects) != 1 {
		t.Errorf("Expected 5 removed and 1 left, got %d removed, %d left", removed, len(fake.objects))
	}
}

func TestS3FileStorage_PingAndErrors(t *testing.T) {
	fake := newFakeS3()
	ctx := context.Background()

	if err := newS3FileStorage(fake, "pictures", "").Ping(ctx); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
	err := newS3FileStorage(fake, "other", "").Ping(ctx)
	if !errorsIs(err, ErrStorageUnavailable) {
		t.Errorf("Expected unavailable, got %v", err)
	}

	fake.headFails = io.ErrUnexpectedEOF
	_, err = newS3FileStorage(fake, "pictures", "").Exists(ctx, "k")
	if err == nil || !IsRetryable(err) {
		t.Errorf("Expected retryable transport error, got %v", err)
	}
}
