// Package config provides application configuration management with support for
// TOML files, environment variable overrides, and configuration overlays.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/trmnl-bot/internal/access"
	"github.com/JaimeStill/trmnl-bot/internal/display"
	"github.com/JaimeStill/trmnl-bot/internal/render"
	"github.com/JaimeStill/trmnl-bot/internal/server"
	"github.com/JaimeStill/trmnl-bot/internal/telegram"
	"github.com/JaimeStill/trmnl-bot/pkg/logging"
	"github.com/JaimeStill/trmnl-bot/pkg/storage"
)

const (
	// BaseConfigFile is the primary configuration file name. It is optional.
	BaseConfigFile = "config.toml"

	// OverlayConfigPattern is the file name pattern for environment-specific overlays.
	OverlayConfigPattern = "config.%s.toml"

	// EnvServiceEnv specifies the environment name for configuration overlays.
	EnvServiceEnv = "SERVICE_ENV"

	// EnvServiceShutdownTimeout overrides the service shutdown timeout.
	EnvServiceShutdownTimeout = "SERVICE_SHUTDOWN_TIMEOUT"
)

var telegramEnv = &telegram.Env{
	Token:           "TELEGRAM_BOT_TOKEN",
	DownloadTimeout: "TELEGRAM_DOWNLOAD_TIMEOUT",
}

var displayEnv = &display.Env{
	APIBase:    "TRMNL_API_BASE",
	PluginUUID: "TRMNL_PLUGIN_UUID",
	Width:      "TRMNL_WIDTH",
	Height:     "TRMNL_HEIGHT",
	Timeout:    "TRMNL_TIMEOUT",
}

var accessEnv = &access.Env{
	UserIDs: "FILTER_USER_IDS",
}

var storageEnv = &storage.Env{
	BasePath:      "STORAGE_BASE_PATH",
	MaxUploadSize: "STORAGE_MAX_UPLOAD_SIZE",
}

var renderEnv = &render.Env{
	Backend: "RENDER_BACKEND",
	DPI:     "RENDER_DPI",
	Fit:     "RENDER_FIT",
}

var loggingEnv = &logging.Env{
	Level:  "LOG_LEVEL",
	Format: "LOG_FORMAT",
}

var healthEnv = &server.Env{
	Addr: "HEALTH_ADDR",
}

// Config represents the root service configuration.
type Config struct {
	Telegram        telegram.Config `toml:"telegram"`
	Display         display.Config  `toml:"display"`
	Access          access.Config   `toml:"access"`
	Storage         storage.Config  `toml:"storage"`
	Render          render.Config   `toml:"render"`
	Logging         logging.Config  `toml:"logging"`
	Health          server.Config   `toml:"health"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
}

// ShutdownTimeoutDuration parses and returns the shutdown timeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base configuration file, when present, and applies any
// environment-specific overlay.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with config files resolved against dir.
func LoadFrom(dir string) (*Config, error) {
	cfg, err := load(filepath.Join(dir, BaseConfigFile))
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = &Config{}, nil
	}
	if err != nil {
		return nil, err
	}

	if path := overlayPath(dir); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}
	return cfg, nil
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Telegram.Finalize(telegramEnv); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if err := c.Display.Finalize(displayEnv); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	if err := c.Access.Finalize(accessEnv); err != nil {
		return fmt.Errorf("access: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Render.Finalize(renderEnv); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := c.Logging.Finalize(loggingEnv); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Health.Finalize(healthEnv); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	c.Telegram.Merge(&overlay.Telegram)
	c.Display.Merge(&overlay.Display)
	c.Access.Merge(&overlay.Access)
	c.Storage.Merge(&overlay.Storage)
	c.Render.Merge(&overlay.Render)
	c.Logging.Merge(&overlay.Logging)
	c.Health.Merge(&overlay.Health)
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvServiceShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvServiceEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
