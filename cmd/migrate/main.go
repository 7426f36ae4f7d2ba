package main

import (
	"context"
	"flag"
	"fmt"

	"profiles-api/internal/config"
	"profiles-api/internal/database"

	"github.com/sirupsen/logrus"
)

func main() {
	var (
		action  = flag.String("action", "up", "Migration action: up, down, status, validate")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Database.EnsureDirectories(); err != nil {
		logger.WithError(err).Fatal("Failed to prepare database directory")
	}

	logger.WithFields(logrus.Fields{
		"driver": cfg.Database.Driver,
		"action": *action,
	}).Info("Starting migration tool")

	// Migrations run explicitly below, never on connect
	dbCfg := cfg.Database.ToConnectionConfig(logger)
	dbCfg.AutoMigrate = false

	cm := database.NewConnectionManager(dbCfg)
	if err := cm.Connect(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer cm.Close()

	migrations := cm.GetMigrationManager()

	switch *action {
	case "up":
		err = migrations.RunMigrations()
	case "down":
		err = migrations.RollbackMigration()
	case "status":
		err = showMigrationStatus(migrations)
	case "validate":
		err = migrations.ValidateSchema()
	default:
		logger.WithField("action", *action).Fatal("Unknown action. Use: up, down, status, validate")
	}
	if err != nil {
		logger.WithError(err).WithField("action", *action).Fatal("Migration failed")
	}

	logger.Info("Migration tool completed successfully")
}

func showMigrationStatus(m *database.MigrationManager) error {
	status, err := m.GetMigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	fmt.Printf("Migration Status:\n")
	fmt.Printf("  Version: %d\n", status.Version)
	fmt.Printf("  Applied: %t\n", status.Applied)
	fmt.Printf("  Dirty: %t\n", status.Dirty)
	return nil
}
