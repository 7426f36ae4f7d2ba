package storage

import (
	"context"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalFileStorage implements FileStorage on the local filesystem. It backs
// the development server, which serves the base path under baseURL.
type LocalFileStorage struct {
	basePath string
	baseURL  string
}

// NewLocalFileStorage creates a new LocalFileStorage instance
func NewLocalFileStorage(basePath, baseURL string) (*LocalFileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, NewStorageError("NewLocalFileStorage", "", err, false)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, NewStorageError("NewLocalFileStorage", "", err, false)
	}

	return &LocalFileStorage{
		basePath: absPath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// BasePath returns the directory objects are written under
func (l *LocalFileStorage) BasePath() string {
	return l.basePath
}

// Store implements FileStorage.Store
func (l *LocalFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if err := l.validateKey(key); err != nil {
		return NewStorageError("Store", key, err, false)
	}
	if len(data) == 0 {
		return NewStorageError("Store", key, ErrInvalidData, false)
	}

	filePath := l.getFilePath(key)

	if opts == nil || !opts.Overwrite {
		if _, err := os.Stat(filePath); err == nil {
			return NewStorageError("Store", key, ErrFileAlreadyExists, false)
		}
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return NewStorageError("Store", key, err, true)
	}

	// Write file atomically by writing to temp file first
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return NewStorageError("Store", key, err, true)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return NewStorageError("Store", key, err, true)
	}

	return nil
}

// Retrieve implements FileStorage.Retrieve
func (l *LocalFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if err := l.validateKey(key); err != nil {
		return nil, NewStorageError("Retrieve", key, err, false)
	}

	data, err := os.ReadFile(l.getFilePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewStorageError("Retrieve", key, ErrFileNotFound, false)
		}
		return nil, NewStorageError("Retrieve", key, err, true)
	}

	return data, nil
}

// Delete implements FileStorage.Delete
func (l *LocalFileStorage) Delete(ctx context.Context, key string) error {
	if err := l.validateKey(key); err != nil {
		return NewStorageError("Delete", key, err, false)
	}

	if err := os.Remove(l.getFilePath(key)); err != nil && !os.IsNotExist(err) {
		return NewStorageError("Delete", key, err, true)
	}
	return nil
}

// Exists implements FileStorage.Exists
func (l *LocalFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := l.validateKey(key); err != nil {
		return false, NewStorageError("Exists", key, err, false)
	}

	_, err := os.Stat(l.getFilePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, NewStorageError("Exists", key, err, true)
	}
	return true, nil
}

// List implements FileStorage.List
func (l *LocalFileStorage) List(ctx context.Context, opts *ListOptions) (*ListResult, error) {
	if opts == nil {
		opts = &ListOptions{}
	}

	result := &ListResult{Files: []FileMetadata{}}

	err := filepath.WalkDir(l.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}

		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, opts.Prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		result.Files = append(result.Files, FileMetadata{
			Key:          key,
			Size:         info.Size(),
			ContentType:  contentTypeFor(key),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, NewStorageError("List", opts.Prefix, err, true)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Key < result.Files[j].Key
	})
	if opts.MaxResults > 0 && len(result.Files) > opts.MaxResults {
		result.Files = result.Files[:opts.MaxResults]
	}

	return result, nil
}

// DeletePrefix implements FileStorage.DeletePrefix
func (l *LocalFileStorage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, NewStorageError("DeletePrefix", prefix, ErrInvalidKey, false)
	}

	listed, err := l.List(ctx, &ListOptions{Prefix: prefix})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, file := range listed.Files {
		if err := l.Delete(ctx, file.Key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// URL implements FileStorage.URL
func (l *LocalFileStorage) URL(key string) string {
	if l.baseURL == "" {
		return "file://" + l.getFilePath(key)
	}
	return l.baseURL + "/" + strings.TrimPrefix(key, "/")
}

// Ping implements FileStorage.Ping
func (l *LocalFileStorage) Ping(ctx context.Context) error {
	info, err := os.Stat(l.basePath)
	if err != nil {
		return NewStorageError("Ping", "", err, false)
	}
	if !info.IsDir() {
		return NewStorageError("Ping", "", ErrStorageUnavailable, false)
	}
	return nil
}

// Close implements FileStorage.Close
func (l *LocalFileStorage) Close() error {
	return nil
}

// validateKey rejects empty, absolute and traversing keys
func (l *LocalFileStorage) validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

func (l *LocalFileStorage) getFilePath(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
