package main

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/trmnl-bot/internal/config"
	"github.com/JaimeStill/trmnl-bot/pkg/lifecycle"
	"github.com/JaimeStill/trmnl-bot/pkg/logging"
	"github.com/JaimeStill/trmnl-bot/pkg/storage"
)

// Runtime holds the infrastructure shared by every subsystem.
type Runtime struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Storage   storage.System
}

// NewRuntime creates the lifecycle coordinator, logger and artifact storage.
func NewRuntime(cfg *config.Config) (*Runtime, error) {
	lc := lifecycle.New()
	logger := logging.New(&cfg.Logging)

	storageSys, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Runtime{
		Lifecycle: lc,
		Logger:    logger,
		Storage:   storageSys,
	}, nil
}

// Start starts the infrastructure subsystems.
func (r *Runtime) Start() error {
	if err := r.Storage.Start(r.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}
