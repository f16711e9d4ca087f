package display

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config describes the TRMNL device and its webhook.
type Config struct {
	// APIBase is the TRMNL API root. Default: "https://usetrmnl.com/api"
	APIBase string `toml:"api_base"`

	// PluginUUID identifies the custom plugin receiving images.
	PluginUUID string `toml:"plugin_uuid"`

	// Width and Height are the screen size in device pixels.
	Width  int `toml:"width"`
	Height int `toml:"height"`

	// Timeout bounds a single webhook request. Default: "10s"
	Timeout string `toml:"timeout"`
}

// Env maps environment variable names for display configuration.
type Env struct {
	APIBase    string
	PluginUUID string
	Width      string
	Height     string
	Timeout    string
}

// TimeoutDuration parses and returns the request timeout.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Configured reports whether pushes can be sent.
func (c *Config) Configured() bool {
	return c.PluginUUID != ""
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
	if overlay.APIBase != "" {
		c.APIBase = overlay.APIBase
	}
	if overlay.PluginUUID != "" {
		c.PluginUUID = overlay.PluginUUID
	}
	if overlay.Width != 0 {
		c.Width = overlay.Width
	}
	if overlay.Height != 0 {
		c.Height = overlay.Height
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.APIBase == "" {
		c.APIBase = "https://usetrmnl.com/api"
	}
	if c.Width == 0 {
		c.Width = 480
	}
	if c.Height == 0 {
		c.Height = 800
	}
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.APIBase != "" {
		if v := os.Getenv(env.APIBase); v != "" {
			c.APIBase = v
		}
	}
	if env.PluginUUID != "" {
		if v := os.Getenv(env.PluginUUID); v != "" {
			c.PluginUUID = v
		}
	}
	if env.Width != "" {
		if v := os.Getenv(env.Width); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Width = n
			}
		}
	}
	if env.Height != "" {
		if v := os.Getenv(env.Height); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Height = n
			}
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	c.APIBase = strings.TrimRight(c.APIBase, "/")
	u, err := url.Parse(c.APIBase)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_base %q", c.APIBase)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("width and height must be positive, got %dx%d", c.Width, c.Height)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
