package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"peritagem/internal/config"
	"peritagem/internal/database"
	"peritagem/internal/emulator"
	"peritagem/internal/localstore"
	"peritagem/internal/logger"
	"peritagem/internal/repository"
	"peritagem/internal/restclient"
)

// backend is the storage wiring shared by the serve and seed commands
type backend struct {
	cfg *config.Config
	log *zap.Logger

	// db holds profiles and audit logs: postgres, or the local sqlite file
	// when peritagens live on the REST backend
	db         *gorm.DB
	localDB    *gorm.DB
	settings   *localstore.Settings
	peritagens repository.PeritagemRepository

	// emulated is a REST client served from the local record store
	emulated *restclient.Client
	// rest is the client of the hosted backend; nil on the postgres backend
	rest    *restclient.Client
	offline bool
}

func setup(ctx context.Context) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Development())
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	b := &backend{cfg: cfg, log: log}

	b.localDB, err = database.NewLocal(cfg.LocalStorePath, log)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	slots := localstore.NewSlots(b.localDB)
	b.settings = localstore.NewSettings(slots)

	persisted, err := b.settings.OfflineMode(ctx)
	if err != nil {
		log.Warn("failed to read persisted offline flag", zap.Error(err))
	}
	b.offline = cfg.OfflineMode || persisted

	records := localstore.NewRecordStore(slots, localstore.KeyPeritagens, log.Named("localstore"))
	b.emulated = restclient.New(cfg.BackendURL, cfg.BackendAnonKey, &http.Client{Timeout: 15 * time.Second}, log.Named("restclient"))
	emulator.Install(b.emulated.HTTPClient(), emulator.New(cfg.BackendHost(), records, log.Named("emulator")))

	switch {
	case b.offline:
		log.Info("offline mode: serving peritagens from the local store", zap.String("path", cfg.LocalStorePath))
		b.db = b.localDB
		b.peritagens = b.emulated
		if _, err := b.emulated.SignIn(ctx, emulator.MockUserEmail, ""); err != nil {
			return nil, err
		}
	case cfg.DataBackend == config.BackendREST:
		log.Info("using the REST backend", zap.String("url", cfg.BackendURL))
		b.db = b.localDB
		b.rest = restclient.New(cfg.BackendURL, cfg.BackendAnonKey, nil, log.Named("restclient"))
		if cfg.BackendEmail != "" {
			if _, err := b.rest.SignIn(ctx, cfg.BackendEmail, cfg.BackendSecret); err != nil {
				return nil, err
			}
		}
		b.peritagens = b.rest
	default:
		b.db, err = database.NewConnection(cfg.DB.DSN(), log)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		log.Info("connected to PostgreSQL")
		b.peritagens = repository.NewPeritagemRepository(b.db)
		if cfg.BackendAnonKey != "" {
			b.rest = restclient.New(cfg.BackendURL, cfg.BackendAnonKey, nil, log.Named("restclient"))
		}
	}
	return b, nil
}

func (b *backend) close() {
	closeDB(b.localDB)
	if b.db != b.localDB {
		closeDB(b.db)
	}
	_ = b.log.Sync()
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
