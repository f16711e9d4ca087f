package render

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Backend names a rasterizer implementation.
type Backend string

const (
	// BackendMuPDF rasterizes in-process through go-fitz.
	BackendMuPDF Backend = "mupdf"

	// BackendImageMagick rasterizes through document-context and ImageMagick.
	BackendImageMagick Backend = "imagemagick"
)

// Config selects and tunes the rasterizer.
type Config struct {
	Backend Backend `toml:"backend"`
	DPI     int     `toml:"dpi"`

	// Fit scales each page into the display box.
	Fit bool `toml:"fit"`
}

// Env maps environment variable names for render configuration.
type Env struct {
	Backend string
	DPI     string
	Fit     string
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.DPI != 0 {
		c.DPI = overlay.DPI
	}
	if overlay.Fit {
		c.Fit = true
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMuPDF
	}
	if c.DPI == 0 {
		c.DPI = 200
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Backend != "" {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = Backend(strings.ToLower(v))
		}
	}
	if env.DPI != "" {
		if v := os.Getenv(env.DPI); v != "" {
			if dpi, err := strconv.Atoi(v); err == nil {
				c.DPI = dpi
			}
		}
	}
	if env.Fit != "" {
		if v := os.Getenv(env.Fit); v != "" {
			if fit, err := strconv.ParseBool(v); err == nil {
				c.Fit = fit
			}
		}
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendMuPDF, BackendImageMagick:
	default:
		return fmt.Errorf("invalid backend %q (must be mupdf or imagemagick)", c.Backend)
	}
	if c.DPI < 72 || c.DPI > 1200 {
		return fmt.Errorf("dpi must be between 72 and 1200, got %d", c.DPI)
	}
	return nil
}
