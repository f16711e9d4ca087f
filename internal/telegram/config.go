package telegram

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrMissingToken is returned when no bot token is configured.
var ErrMissingToken = errors.New("telegram bot token is not set")

// Config holds Telegram connection settings.
type Config struct {
	Token           string `toml:"token"`
	DownloadTimeout string `toml:"download_timeout"`
}

// Env maps environment variable names for Telegram configuration.
type Env struct {
	Token           string
	DownloadTimeout string
}

// DownloadTimeoutDuration returns the file download timeout.
func (c *Config) DownloadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.DownloadTimeout)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge applies non-zero values from the overlay configuration.
func (c *Config) Merge(overlay *Config) {
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.DownloadTimeout != "" {
		c.DownloadTimeout = overlay.DownloadTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.DownloadTimeout == "" {
		c.DownloadTimeout = "60s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Token != "" {
		if v := os.Getenv(env.Token); v != "" {
			c.Token = v
		}
	}
	if env.DownloadTimeout != "" {
		if v := os.Getenv(env.DownloadTimeout); v != "" {
			c.DownloadTimeout = v
		}
	}
}

func (c *Config) validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	if _, err := time.ParseDuration(c.DownloadTimeout); err != nil {
		return fmt.Errorf("invalid download_timeout: %w", err)
	}
	return nil
}
