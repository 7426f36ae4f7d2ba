package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// sqlitePragmas are appended to file DSNs that carry no options of their own
const sqlitePragmas = "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	Logger          *logrus.Logger
}

// DefaultConnectionConfig returns a default configuration
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Driver:          DriverSQLite,
		DSN:             "./data/profiles.db",
		MaxOpenConns:    1, // SQLite works best with single connection
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
		Logger:          logrus.New(),
	}
}

// ConnectionManager manages database connections
type ConnectionManager struct {
	config *ConnectionConfig
	db     *sql.DB
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(config *ConnectionConfig) *ConnectionManager {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	return &ConnectionManager{
		config: config,
	}
}

// Connect opens the database, configures the pool and runs pending
// migrations when AutoMigrate is set
func (cm *ConnectionManager) Connect(ctx context.Context) error {
	if cm.db != nil {
		return fmt.Errorf("database connection already established")
	}

	dsn, err := cm.dataSourceName()
	if err != nil {
		return err
	}

	db, err := sql.Open(cm.config.Driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cm.config.MaxOpenConns)
	db.SetMaxIdleConns(cm.config.MaxIdleConns)
	db.SetConnMaxLifetime(cm.config.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	cm.db = db

	if cm.config.AutoMigrate {
		if err := cm.GetMigrationManager().RunMigrations(); err != nil {
			cm.db = nil
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	cm.config.Logger.WithFields(logrus.Fields{
		"driver":       cm.config.Driver,
		"auto_migrate": cm.config.AutoMigrate,
	}).Info("Database connection established")
	return nil
}

// dataSourceName prepares the driver DSN; for SQLite files it also makes
// sure the parent directory exists
func (cm *ConnectionManager) dataSourceName() (string, error) {
	switch cm.config.Driver {
	case DriverPostgres:
		if cm.config.DSN == "" {
			return "", fmt.Errorf("postgres DSN is required")
		}
		return cm.config.DSN, nil

	case DriverSQLite:
		dsn := cm.config.DSN
		if dsn == "" {
			return "", fmt.Errorf("sqlite DSN is required")
		}
		if strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file::memory:") {
			return dsn, nil
		}
		if strings.Contains(dsn, "?") {
			return dsn, nil
		}

		dbPath, err := filepath.Abs(dsn)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute database path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
		return dbPath + "?" + sqlitePragmas, nil

	default:
		return "", fmt.Errorf("unsupported database driver: %s", cm.config.Driver)
	}
}

// GetDB returns the database connection
func (cm *ConnectionManager) GetDB() *sql.DB {
	return cm.db
}

// Dialect returns the SQL dialect of the configured driver
func (cm *ConnectionManager) Dialect() Dialect {
	return NewDialect(cm.config.Driver)
}

// Close closes the database connection
func (cm *ConnectionManager) Close() error {
	if cm.db == nil {
		return nil
	}

	err := cm.db.Close()
	cm.db = nil

	if err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	cm.config.Logger.Info("Database connection closed")
	return nil
}

// Ping tests the database connection
func (cm *ConnectionManager) Ping(ctx context.Context) error {
	if cm.db == nil {
		return fmt.Errorf("database connection not established")
	}

	if err := cm.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// GetMigrationManager returns a migration manager for this connection
func (cm *ConnectionManager) GetMigrationManager() *MigrationManager {
	if cm.db == nil {
		return nil
	}

	return NewMigrationManager(cm.db, cm.config.Driver, cm.config.Logger)
}

// HealthCheck performs a comprehensive health check
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	// Test a simple query
	var result int
	if err := cm.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("test query returned unexpected result: %d", result)
	}

	if cm.config.Driver != DriverSQLite {
		return nil
	}

	// Check foreign keys are enabled
	var fkEnabled int
	if err := cm.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		return fmt.Errorf("failed to check foreign key status: %w", err)
	}

	if fkEnabled != 1 {
		return fmt.Errorf("foreign keys are not enabled")
	}

	return nil
}
