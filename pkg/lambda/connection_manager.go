package lambda

import (
	"context"
	"sync"
	"time"

	"profiles-api/internal/config"
	"profiles-api/pkg/server"
)

// staleAfter is how long an idle container is still considered healthy
const staleAfter = 5 * time.Minute

// ConnectionManager caches the dependency container across warm invocations
// of the same Lambda instance. A failed initialization is retried on the
// next invocation instead of poisoning the instance.
type ConnectionManager struct {
	container *server.Container
	lastUsed  time.Time
	mu        sync.Mutex

	// load builds the configuration; tests replace it
	load func() (*config.Config, error)
	opts []server.Option
}

var (
	globalConnectionManager *ConnectionManager
	connectionManagerOnce   sync.Once
)

// GetConnectionManager returns the global connection manager instance
func GetConnectionManager() *ConnectionManager {
	connectionManagerOnce.Do(func() {
		globalConnectionManager = NewConnectionManager(config.GetOptimizedConfig)
	})
	return globalConnectionManager
}

// NewConnectionManager creates a manager that builds its container from the
// configuration returned by load
func NewConnectionManager(load func() (*config.Config, error), opts ...server.Option) *ConnectionManager {
	return &ConnectionManager{load: load, opts: opts}
}

// GetContainer returns the cached container, building it on first use
func (cm *ConnectionManager) GetContainer(ctx context.Context) (*server.Container, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.container != nil {
		cm.lastUsed = time.Now()
		return cm.container, nil
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	container, err := server.NewContainer(ctx, cfg, cm.opts...)
	if err != nil {
		return nil, err
	}

	cm.container = container
	cm.lastUsed = time.Now()
	return container, nil
}

// IsHealthy reports whether a container is cached and was used recently
func (cm *ConnectionManager) IsHealthy() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.container == nil {
		return false
	}
	return time.Since(cm.lastUsed) < staleAfter
}

// Cleanup closes the cached container
func (cm *ConnectionManager) Cleanup() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.container == nil {
		return nil
	}
	err := cm.container.Close()
	cm.container = nil
	return err
}
