// Package app wires configuration into a store and diary service for the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/christophergentle/mooddiary/internal/backup"
	"github.com/christophergentle/mooddiary/internal/config"
	"github.com/christophergentle/mooddiary/internal/diary"
	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/sirupsen/logrus"
)

// App bundles the long-lived dependencies of a binary
type App struct {
	Config  *config.Config
	Store   state.Store
	Service *diary.Service
}

// New opens the configured store and builds the diary service on top of it
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	service, err := NewService(cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Store:   store,
		Service: service,
	}, nil
}

// OpenStore connects to the store selected by cfg.Driver
func OpenStore(ctx context.Context, cfg config.StoreConfig) (state.Store, error) {
	logrus.WithField("driver", cfg.Driver).Debug("Opening entry store")

	switch cfg.Driver {
	case config.DriverSQLite, config.DriverPostgres:
		return state.NewSQLStore(cfg.Driver, cfg.DSN)
	case config.DriverDynamo:
		return state.NewDynamoStore(ctx, cfg.DynamoTable)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// NewService builds the diary service from the analysis and recommendation settings
func NewService(cfg *config.Config, store state.Store) (*diary.Service, error) {
	scorer, err := cfg.Scorer()
	if err != nil {
		return nil, fmt.Errorf("failed to build scorer: %w", err)
	}
	generator, err := cfg.Generator()
	if err != nil {
		return nil, fmt.Errorf("failed to build recommendation generator: %w", err)
	}
	return diary.NewService(store, scorer, generator, cfg.Recommendations.NoticeTimeout), nil
}

// ExportOptions maps the backup settings onto export options
func (a *App) ExportOptions() backup.ExportOptions {
	return backup.ExportOptions{
		OutputDir: a.Config.Backup.Dir,
		Compress:  a.Config.Backup.Compress,
		Source:    a.Config.Store.Driver,
		S3Bucket:  a.Config.Backup.S3Bucket,
		S3Prefix:  a.Config.Backup.S3Prefix,
	}
}

func (a *App) Close() error {
	return a.Store.Close()
}
