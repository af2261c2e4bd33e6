package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/channelpartner/position-backend/internal/config"
	"github.com/channelpartner/position-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}
}

func Connect(cfg *config.Config) error {
	var err error
	if cfg.DBDriver == "sqlite" {
		DB, err = OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return err
		}
		slog.Info("database connected", "driver", "sqlite", "path", cfg.SQLitePath)
		return nil
	}

	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected", "driver", "postgres")
	return nil
}

// OpenSQLite opens a single-connection SQLite database. dsn may be a file path
// or a shared in-memory URI such as "file:name?mode=memory&cache=shared".
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// MigrateShared runs AutoMigrate on the global connection.
func MigrateShared() error {
	return Migrate(DB)
}

// Migrate creates every table and the partial index that allows one active
// application per phone. Rejected applications do not hold the phone.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Location{},
		&models.Position{},
		&models.Application{},
		&models.User{},
		&models.CreditTransaction{},
		&models.SystemLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	stmts := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_active_phone ON applications (applicant_phone) WHERE status <> 'rejected'",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_active_position ON applications (position_id) WHERE status <> 'rejected'",
		"CREATE INDEX IF NOT EXISTS idx_locations_path ON locations (zone, state, division, district, tehsil, pincode, village)",
		"CREATE INDEX IF NOT EXISTS idx_credit_transactions_user_created ON credit_transactions (user_id, created_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
