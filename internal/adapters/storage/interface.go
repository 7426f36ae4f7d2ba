package storage

import (
	"context"
	"time"
)

// FileMetadata describes a stored object
type FileMetadata struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
}

// ListOptions filters a listing
type ListOptions struct {
	Prefix     string `json:"prefix,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// ListResult holds the objects matching a listing
type ListResult struct {
	Files []FileMetadata `json:"files"`
}

// StoreOptions provides options for storing objects
type StoreOptions struct {
	ContentType string `json:"content_type,omitempty"`
	// Overwrite replaces an existing object. Picture keys are fixed per user,
	// so every caller in this service sets it.
	Overwrite bool `json:"overwrite,omitempty"`
}

// FileStorage is the object store holding profile pictures and generated
// profile images
type FileStorage interface {
	// Store saves data under key
	Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error

	// Retrieve gets an object by key
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object exists at key
	Exists(ctx context.Context, key string) (bool, error)

	// List returns objects matching opts
	List(ctx context.Context, opts *ListOptions) (*ListResult, error)

	// DeletePrefix removes every object whose key starts with prefix and
	// returns how many were removed
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// URL returns the public URL of key
	URL(key string) string

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	// Close releases resources
	Close() error
}

// StorageConfig selects and configures a FileStorage backend
type StorageConfig struct {
	Type      string `json:"type"` // "local", "s3" or "mock"
	BasePath  string `json:"base_path"`
	BaseURL   string `json:"base_url"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
}
