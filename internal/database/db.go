package database

import (
	"fmt"
	"time"

	"sijuk-backend/internal/config"
	"sijuk-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init opens Postgres, runs migrations and sets DB.
func Init(cfg *config.Config) error {
	level := gormlogger.Warn
	if !cfg.IsProduction() && cfg.LogLevel == "debug" {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(zap.L()), gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return fmt.Errorf("gagal terhubung ke database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return err
	}

	DB = db
	zap.L().Info("Koneksi database berhasil, migrasi selesai")
	return nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Material{},
		&models.ProductionBatch{},
		&models.ProductionItem{},
		&models.Warung{},
		&models.Transaction{},
		&models.Expense{},
		&models.MonthlyReport{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate gagal: %w", err)
	}
	return nil
}
