package database

import (
	"fmt"
	"log/slog"
	"time"

	"notify-service/internal/config"
	"notify-service/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewPostgresConnection(cfg config.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		AllowGlobalUpdate:                        false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("PostgreSQL connection established", "host", cfg.Host, "db", cfg.DBName)
	return db, nil
}

// Migrate creates the notification table. The users table belongs to the account service
// and is only created here when it is missing, which keeps local setups self-contained.
func Migrate(db *gorm.DB) error {
	if !db.Migrator().HasTable(&models.User{}) {
		if err := db.AutoMigrate(&models.User{}); err != nil {
			return fmt.Errorf("failed to migrate users: %w", err)
		}
	}
	if err := db.AutoMigrate(&models.Notification{}); err != nil {
		return fmt.Errorf("failed to migrate notifications: %w", err)
	}
	return addIndexes(db)
}

func addIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		columns []string
	}{
		{"notifications", []string{"user_id", "created_at"}},
	}

	for _, idx := range indexes {
		for _, column := range idx.columns {
			indexName := fmt.Sprintf("idx_%s_%s", idx.table, column)
			if err := db.Exec(fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
				indexName, idx.table, column)).Error; err != nil {
				return fmt.Errorf("failed to add index %s: %w", indexName, err)
			}
		}
	}
	return nil
}
