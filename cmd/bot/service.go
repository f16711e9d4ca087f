package main

import (
	"fmt"
	"time"

	"github.com/JaimeStill/trmnl-bot/internal/access"
	"github.com/JaimeStill/trmnl-bot/internal/bot"
	"github.com/JaimeStill/trmnl-bot/internal/config"
	"github.com/JaimeStill/trmnl-bot/internal/convert"
	"github.com/JaimeStill/trmnl-bot/internal/delivery"
	"github.com/JaimeStill/trmnl-bot/internal/display"
	"github.com/JaimeStill/trmnl-bot/internal/intake"
	"github.com/JaimeStill/trmnl-bot/internal/render"
	"github.com/JaimeStill/trmnl-bot/internal/server"
	"github.com/JaimeStill/trmnl-bot/internal/sessions"
	"github.com/JaimeStill/trmnl-bot/internal/telegram"
)

// Service coordinates the lifecycle of all subsystems.
type Service struct {
	runtime  *Runtime
	telegram telegram.System
	health   server.System
}

// NewService wires the bot from cfg.
func NewService(cfg *config.Config) (*Service, error) {
	rt, err := NewRuntime(cfg)
	if err != nil {
		return nil, err
	}

	width, height := cfg.Display.Width, cfg.Display.Height

	renderer, err := render.New(&cfg.Render, render.Box{Width: width, Height: height}, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("renderer init failed: %w", err)
	}

	sink := display.New(&cfg.Display, rt.Logger)
	if !cfg.Display.Configured() {
		rt.Logger.Warn("display plugin uuid not set, pushes will fail")
	}

	orchestrator := delivery.New(renderer, sink, rt.Logger)
	pipeline := intake.New(
		rt.Storage,
		convert.NewEPUB(width, height, rt.Logger),
		convert.NewPlaceholder(width, height),
		orchestrator,
		cfg.Storage.MaxUploadSizeBytes(),
		rt.Logger,
	)

	guard := access.New(cfg.Access.UserIDs)
	if guard.Restricted() {
		rt.Logger.Info("allow-list enabled", "identities", len(cfg.Access.UserIDs))
	}

	handlers := bot.New(bot.Deps{
		Guard:     guard,
		Locker:    sessions.NewLocker(),
		Uploader:  pipeline,
		Deliverer: orchestrator,
		Sink:      sink,
		Store:     rt.Storage,
	}, rt.Logger)

	telegramSys, err := telegram.New(&cfg.Telegram, handlers, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("telegram init failed: %w", err)
	}

	svc := &Service{
		runtime:  rt,
		telegram: telegramSys,
	}
	if cfg.Health.Enabled() {
		svc.health = server.New(&cfg.Health, rt.Lifecycle, cfg.ShutdownTimeoutDuration(), rt.Logger)
	}

	rt.Logger.Info(
		"service initialized",
		"display", fmt.Sprintf("%dx%d", width, height),
		"render_backend", cfg.Render.Backend,
	)

	return svc, nil
}

// Start begins all subsystems and returns once they are running.
func (s *Service) Start() error {
	s.runtime.Logger.Info("starting service")

	if err := s.runtime.Start(); err != nil {
		return err
	}

	if s.health != nil {
		if err := s.health.Start(s.runtime.Lifecycle); err != nil {
			return fmt.Errorf("health server start failed: %w", err)
		}
	}

	s.runtime.Lifecycle.WaitForStartup()

	if err := s.telegram.Start(s.runtime.Lifecycle); err != nil {
		return fmt.Errorf("telegram start failed: %w", err)
	}

	s.runtime.Logger.Info("all subsystems ready")
	return nil
}

// Shutdown gracefully stops all subsystems within timeout.
func (s *Service) Shutdown(timeout time.Duration) error {
	s.runtime.Logger.Info("initiating shutdown")
	return s.runtime.Lifecycle.Shutdown(timeout)
}
