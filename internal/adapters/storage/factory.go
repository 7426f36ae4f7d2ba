package storage

import (
	"context"
	"fmt"
	"strings"
)

// StorageType represents the type of storage implementation
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeMock  StorageType = "mock"
)

// Factory creates FileStorage instances based on configuration
type Factory struct {
	retryConfig *RetryConfig
}

// NewFactory creates a new storage factory. A nil retry config disables
// the retry wrapper.
func NewFactory(retryConfig *RetryConfig) *Factory {
	return &Factory{retryConfig: retryConfig}
}

// DefaultFactory returns a factory with default retry configuration
func DefaultFactory() *Factory {
	return NewFactory(DefaultRetryConfig())
}

// Create creates a FileStorage instance based on the provided configuration
func (f *Factory) Create(ctx context.Context, config *StorageConfig) (FileStorage, error) {
	if config == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	var (
		storage FileStorage
		err     error
	)

	switch StorageType(strings.ToLower(config.Type)) {
	case StorageTypeLocal:
		basePath := config.BasePath
		if basePath == "" {
			basePath = "./data/files"
		}
		storage, err = NewLocalFileStorage(basePath, config.BaseURL)
	case StorageTypeS3:
		storage, err = NewS3FileStorage(ctx, config)
	case StorageTypeMock:
		storage = NewMockFileStorage()
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage: %w", config.Type, err)
	}

	if f.retryConfig != nil {
		storage = NewRetryableFileStorage(storage, f.retryConfig)
	}

	return storage, nil
}

// CreateFromConfig is a convenience function to create storage from config
func CreateFromConfig(ctx context.Context, config *StorageConfig) (FileStorage, error) {
	return DefaultFactory().Create(ctx, config)
}
