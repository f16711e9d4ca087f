package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaimeStill/trmnl-bot/internal/config"
	"github.com/JaimeStill/trmnl-bot/internal/render"
	"github.com/JaimeStill/trmnl-bot/internal/telegram"
	"github.com/JaimeStill/trmnl-bot/pkg/logging"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadFrom_NoFiles(t *testing.T) {
	t.Setenv(config.EnvServiceEnv, "")

	cfg, err := config.LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadFrom() returned nil config")
	}
}

func TestLoadFrom_WithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, config.BaseConfigFile, `shutdown_timeout = "20s"

[display]
width = 600
height = 448

[render]
backend = "imagemagick"
`)
	writeFile(t, dir, "config.test.toml", `shutdown_timeout = "60s"

[access]
user_ids = ["42", "7"]

[render]
dpi = 150
`)
	t.Setenv(config.EnvServiceEnv, "test")

	cfg, err := config.LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.ShutdownTimeout != "60s" {
		t.Errorf("ShutdownTimeout = %q, want 60s", cfg.ShutdownTimeout)
	}
	if cfg.Display.Width != 600 || cfg.Display.Height != 448 {
		t.Errorf("Display = %dx%d, want 600x448", cfg.Display.Width, cfg.Display.Height)
	}
	if cfg.Render.Backend != render.BackendImageMagick || cfg.Render.DPI != 150 {
		t.Errorf("Render = %+v, want imagemagick at 150 dpi", cfg.Render)
	}
	if len(cfg.Access.UserIDs) != 2 {
		t.Errorf("Access.UserIDs = %v, want 2 entries", cfg.Access.UserIDs)
	}
}

func TestLoadFrom_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, config.BaseConfigFile, "shutdown_timeout = ")
	t.Setenv(config.EnvServiceEnv, "")

	if _, err := config.LoadFrom(dir); err == nil {
		t.Error("LoadFrom() succeeded, want parse error")
	}
}

func TestFinalize_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg := &config.Config{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.ShutdownTimeoutDuration() != 30*time.Second {
		t.Errorf("ShutdownTimeoutDuration() = %v, want 30s", cfg.ShutdownTimeoutDuration())
	}
	if cfg.Display.APIBase != "https://usetrmnl.com/api" {
		t.Errorf("Display.APIBase = %q", cfg.Display.APIBase)
	}
	if cfg.Display.Width != 480 || cfg.Display.Height != 800 {
		t.Errorf("Display = %dx%d, want 480x800", cfg.Display.Width, cfg.Display.Height)
	}
	if cfg.Storage.BasePath != ".data" {
		t.Errorf("Storage.BasePath = %q, want .data", cfg.Storage.BasePath)
	}
	if cfg.Render.Backend != render.BackendMuPDF || cfg.Render.DPI != 200 {
		t.Errorf("Render = %+v, want mupdf at 200 dpi", cfg.Render)
	}
	if cfg.Logging.Level != logging.LevelInfo {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Health.Enabled() {
		t.Error("health server enabled by default")
	}
}

func TestFinalize_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TRMNL_PLUGIN_UUID", "plugin-1")
	t.Setenv("TRMNL_WIDTH", "800")
	t.Setenv("TRMNL_HEIGHT", "480")
	t.Setenv("FILTER_USER_IDS", " 42, 7 ,,")
	t.Setenv("STORAGE_MAX_UPLOAD_SIZE", "10MB")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("HEALTH_ADDR", ":8081")
	t.Setenv(config.EnvServiceShutdownTimeout, "5s")

	cfg := &config.Config{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.Display.PluginUUID != "plugin-1" || cfg.Display.Width != 800 || cfg.Display.Height != 480 {
		t.Errorf("Display = %+v", cfg.Display)
	}
	if got := cfg.Access.UserIDs; len(got) != 2 || got[0] != "42" || got[1] != "7" {
		t.Errorf("Access.UserIDs = %q, want [42 7]", got)
	}
	if cfg.Storage.MaxUploadSizeBytes() != 10_000_000 {
		t.Errorf("MaxUploadSizeBytes() = %d, want 10000000", cfg.Storage.MaxUploadSizeBytes())
	}
	if cfg.Logging.Level != logging.LevelDebug {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Health.Addr != ":8081" {
		t.Errorf("Health.Addr = %q, want :8081", cfg.Health.Addr)
	}
	if cfg.ShutdownTimeoutDuration() != 5*time.Second {
		t.Errorf("ShutdownTimeoutDuration() = %v, want 5s", cfg.ShutdownTimeoutDuration())
	}
}

func TestFinalize_MissingToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cfg := &config.Config{}
	if err := cfg.Finalize(); !errors.Is(err, telegram.ErrMissingToken) {
		t.Errorf("Finalize() error = %v, want ErrMissingToken", err)
	}
}

func TestFinalize_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg := &config.Config{ShutdownTimeout: "eventually"}
	if err := cfg.Finalize(); err == nil {
		t.Error("Finalize() succeeded, want error")
	}
}
