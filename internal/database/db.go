package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"peritagem/internal/localstore"
	"peritagem/internal/model"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	migrate(db, log, &model.Profile{}, &model.AuditLog{}, &model.Peritagem{})
	return db, nil
}

// NewLocal opens the sqlite file that backs profiles, audit logs and the
// slot store when peritagens live on the REST backend
func NewLocal(path string, log *zap.Logger) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create local store dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer at a time
	sqlDB.SetMaxOpenConns(1)

	if err := localstore.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate slots: %w", err)
	}
	migrate(db, log, &model.Profile{}, &model.AuditLog{})
	return db, nil
}

func migrate(db *gorm.DB, log *zap.Logger, models ...interface{}) {
	if err := db.AutoMigrate(models...); err != nil {
		log.Warn("failed to auto-migrate models", zap.Error(err))
	}
}
