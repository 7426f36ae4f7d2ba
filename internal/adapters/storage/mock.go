package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockFileStorage is an in-memory implementation of FileStorage for testing
type MockFileStorage struct {
	mu       sync.RWMutex
	files    map[string]*mockFile
	failures map[string]error
}

type mockFile struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// NewMockFileStorage creates a new MockFileStorage instance
func NewMockFileStorage() *MockFileStorage {
	return &MockFileStorage{
		files:    make(map[string]*mockFile),
		failures: make(map[string]error),
	}
}

// FailOn makes every later call of op (e.g. "Store", "Ping") return err.
// A nil err clears the failure.
func (m *MockFileStorage) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Keys returns every stored key in order
func (m *MockFileStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.files))
	for k := range m.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *MockFileStorage) failure(op string) error {
	if err, ok := m.failures[op]; ok {
		return NewStorageError(op, "", err, false)
	}
	return nil
}

// Store implements FileStorage.Store
func (m *MockFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if key == "" {
		return NewStorageError("Store", key, ErrInvalidKey, false)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("Store"); err != nil {
		return err
	}
	if opts == nil || !opts.Overwrite {
		if _, exists := m.files[key]; exists {
			return NewStorageError("Store", key, ErrFileAlreadyExists, false)
		}
	}

	contentType := contentTypeFor(key)
	if opts != nil && opts.ContentType != "" {
		contentType = opts.ContentType
	}

	m.files[key] = &mockFile{
		data:         append([]byte(nil), data...),
		contentType:  contentType,
		lastModified: time.Now(),
	}
	return nil
}

// Retrieve implements FileStorage.Retrieve
func (m *MockFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("Retrieve"); err != nil {
		return nil, err
	}
	file, ok := m.files[key]
	if !ok {
		return nil, NewStorageError("Retrieve", key, ErrFileNotFound, false)
	}
	return append([]byte(nil), file.data...), nil
}

// Delete implements FileStorage.Delete
func (m *MockFileStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("Delete"); err != nil {
		return err
	}
	delete(m.files, key)
	return nil
}

// Exists implements FileStorage.Exists
func (m *MockFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("Exists"); err != nil {
		return false, err
	}
	_, ok := m.files[key]
	return ok, nil
}

// List implements FileStorage.List
func (m *MockFileStorage) List(ctx context.Context, opts *ListOptions) (*ListResult, error) {
	if opts == nil {
		opts = &ListOptions{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("List"); err != nil {
		return nil, err
	}

	result := &ListResult{Files: []FileMetadata{}}
	for key, file := range m.files {
		if !strings.HasPrefix(key, opts.Prefix) {
			continue
		}
		result.Files = append(result.Files, FileMetadata{
			Key:          key,
			Size:         int64(len(file.data)),
			ContentType:  file.contentType,
			LastModified: file.lastModified,
		})
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
func (m *MockFileStorage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, NewStorageError("DeletePrefix", prefix, ErrInvalidKey, false)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("DeletePrefix"); err != nil {
		return 0, err
	}

	removed := 0
	for key := range m.files {
		if strings.HasPrefix(key, prefix) {
			delete(m.files, key)
			removed++
		}
	}
	return removed, nil
}

// URL implements FileStorage.URL
func (m *MockFileStorage) URL(key string) string {
	return "mock://" + key
}

// Ping implements FileStorage.Ping
func (m *MockFileStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failure("Ping")
}

// Close implements FileStorage.Close
func (m *MockFileStorage) Close() error {
	return nil
}
