package lambda

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"profiles-api/internal/config"
	"profiles-api/pkg/server"

	"github.com/sirupsen/logrus"
)

func managerConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Database: config.DatabaseConfig{
			Driver:       "sqlite3",
			DSN:          filepath.Join(t.TempDir(), "cm.db"),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			AutoMigrate:  true,
		},
		Token:    config.TokenConfig{Secret: "cm-secret", EmailUserExpiryDays: 1, SocialUserExpiryDays: 1, SignupExpiryDays: 1},
		Crypto:   config.CryptoConfig{FieldKey: "cm-field-key"},
		Storage:  config.StorageConfig{Type: "mock"},
		Queue:    config.QueueConfig{Type: "memory"},
		Mail:     config.MailConfig{Type: "log"},
		Billing:  config.BillingConfig{BaseURL: "http://127.0.0.1:1"},
		Facebook: config.FacebookConfig{GraphURL: "http://127.0.0.1:1"},
		App:      config.AppConfig{MysteryUnlockCount: 3, MysteryWindow: 24 * time.Hour},
	}
}

func TestConnectionManager_RetriesFailedInit(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	cfg := managerConfig(t)
	calls := 0
	cm := NewConnectionManager(func() (*config.Config, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("parameter store unavailable")
		}
		return cfg, nil
	}, server.WithLogger(logger))
	defer cm.Cleanup()

	ctx := context.Background()
	if _, err := cm.GetContainer(ctx); err == nil {
		t.Fatal("Expected first initialization to fail")
	}
	if cm.IsHealthy() {
		t.Error("Expected unhealthy manager after failed init")
	}

	first, err := cm.GetContainer(ctx)
	if err != nil {
		t.Fatalf("GetContainer() failed: %v", err)
	}
	second, err := cm.GetContainer(ctx)
	if err != nil {
		t.Fatalf("GetContainer() failed: %v", err)
	}
	if first != second {
		t.Error("Expected the container to be cached")
	}
	if calls != 2 {
		t.Errorf("Expected config to load twice, got %d", calls)
	}
	if !cm.IsHealthy() {
		t.Error("Expected healthy manager")
	}

	if err := cm.Cleanup(); err != nil {
		t.Errorf("Cleanup() failed: %v", err)
	}
	if cm.IsHealthy() {
		t.Error("Expected unhealthy manager after cleanup")
	}
}
