package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"profiles-api/internal/database"

	"github.com/sirupsen/logrus"
)

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Driver          string `validate:"oneof=sqlite3 pgx"`
	DSN             string `validate:"required"`
	MaxOpenConns    int    `validate:"min=1"`
	MaxIdleConns    int    `validate:"min=1"`
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// IsSQLite reports whether the configured driver is SQLite
func (c *DatabaseConfig) IsSQLite() bool {
	return c.Driver == database.DriverSQLite
}

// ToConnectionConfig converts DatabaseConfig to database.ConnectionConfig
func (c *DatabaseConfig) ToConnectionConfig(logger *logrus.Logger) *database.ConnectionConfig {
	return &database.ConnectionConfig{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		AutoMigrate:     c.AutoMigrate,
		Logger:          logger,
	}
}

// EnsureDirectories creates the parent directory of a SQLite database file
func (c *DatabaseConfig) EnsureDirectories() error {
	if !c.IsSQLite() || c.DSN == ":memory:" {
		return nil
	}

	dbDir := filepath.Dir(c.DSN)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}
