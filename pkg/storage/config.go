package storage

import (
	"fmt"
	"os"

	"github.com/docker/go-units"
)

// Config locates the document tree. Uploads land under staging/ while
// they are checked or converted; each identity's installed PDF lives under
// documents/.
type Config struct {
	// BasePath holds both trees. Default: ".data"
	BasePath string `toml:"base_path"`

	// MaxUploadSize caps the bytes streamed into one staged upload, in
	// human-readable form ("20MB"), the Bot API's own download ceiling.
	MaxUploadSize    string `toml:"max_upload_size"`
	maxUploadSizeVal int64
}

// Env names the variables that override BasePath and MaxUploadSize.
type Env struct {
	BasePath      string
	MaxUploadSize string
}

// MaxUploadSizeBytes is the staging write limit parsed by Finalize.
func (c *Config) MaxUploadSizeBytes() int64 {
	return c.maxUploadSizeVal
}

// Finalize fills defaults, applies env overrides and parses the upload limit.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge takes the overlay base path and any parseable upload limit.
func (c *Config) Merge(overlay *Config) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}

	if size, err := units.FromHumanSize(overlay.MaxUploadSize); err == nil {
		c.MaxUploadSize = overlay.MaxUploadSize
		c.maxUploadSizeVal = size
	}
}

func (c *Config) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = ".data"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "20MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.BasePath != "" {
		if v := os.Getenv(env.BasePath); v != "" {
			c.BasePath = v
		}
	}
	if env.MaxUploadSize != "" {
		if v := os.Getenv(env.MaxUploadSize); v != "" {
			c.MaxUploadSize = v
		}
	}
}

func (c *Config) validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("base_path required")
	}

	size, err := units.FromHumanSize(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	c.maxUploadSizeVal = size

	return nil
}
