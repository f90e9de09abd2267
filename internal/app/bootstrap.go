package app

import (
	"log/slog"

	"tickwatch/internal/infra"
	"tickwatch/internal/infra/storage"

	"github.com/joho/godotenv"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (env, config, logger, DB)
func (b *Bootstrap) Initialize() error {
	// .env is optional; environment overrides win over the yaml file
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	dbPath, err := storage.DefaultDBPath()
	if err != nil {
		return err
	}
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("Database initialized", slog.String("path", dbPath))

	return nil
}
