package main

import (
	"os"

	"notify-service/internal/config"
	"notify-service/internal/database"
	"notify-service/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("Failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("Starting database migration...")

	// Connecting runs the migration
	db, err := database.NewPostgresConnection(cfg.Database, log)
	if err != nil {
		log.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Error("Failed to get database instance", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}

	log.Info("Database migration completed successfully!")
}
