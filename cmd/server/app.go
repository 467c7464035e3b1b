package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"vault-indexer/internal/config"
	"vault-indexer/internal/domain"
	"vault-indexer/internal/logging"
	"vault-indexer/internal/storage"
	chstore "vault-indexer/internal/storage/clickhouse"
	"vault-indexer/internal/storage/memory"
	"vault-indexer/internal/storage/migrations"
	pgstore "vault-indexer/internal/storage/postgres"
)

// app holds the configuration and the opened backends shared by commands.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	vaults []domain.Vault
	db     storage.Database
	volume storage.VolumeStore // nil for postgres without clickhouse

	closers []func()
}

// loadApp reads and validates the configuration and builds the logger.
func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	vaults, err := cfg.VaultList()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &app{cfg: cfg, logger: logger, vaults: vaults}, nil
}

// openStorage connects the relational and analytics backends. With migrate
// set the embedded schema is applied first.
func (a *app) openStorage(ctx context.Context, migrate bool) error {
	switch a.cfg.Storage.Backend {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, a.cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		if migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				pool.Close()
				return fmt.Errorf("postgres migrations: %w", err)
			}
			a.logger.Info("postgres migrations applied")
		}
		db := pgstore.NewDB(pool)
		a.db = db
		a.closers = append(a.closers, db.Close)
	default:
		a.db = memory.New()
		a.logger.Warn("using in-memory storage; state is lost on restart")
	}

	if a.cfg.ClickHouse.Enabled {
		conn, err := chstore.Open(ctx, a.cfg.ClickHouse.DSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		if migrate {
			if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
				return fmt.Errorf("clickhouse migrations: %w", err)
			}
			a.logger.Info("clickhouse migrations applied")
		}
		a.volume = chstore.NewVolumeStore(conn)
	} else if a.cfg.Storage.Backend == "memory" {
		a.volume = memory.NewVolumeStore()
	}
	return nil
}

// Close releases backends in reverse order and flushes the logger.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}
