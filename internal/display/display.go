// Package display pushes image references to a TRMNL custom plugin webhook.
package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
)

// Display errors.
var (
	ErrNotConfigured = errors.New("display plugin not configured")
	ErrPushFailed    = errors.New("display push failed")
)

// FileTypeImage is the merge variable telling the plugin to show an image.
const FileTypeImage = "image"

// MergeVariables are the values the plugin template receives.
type MergeVariables struct {
	ImageURL string `json:"image_url"`
	FileType string `json:"file_type"`
}

// Payload is the webhook request body.
type Payload struct {
	MergeVariables MergeVariables `json:"merge_variables"`
}

// System pushes image references to the display.
type System interface {
	// Push sends imageURL to the plugin. Only transport failures are
	// errors; a response of any status counts as delivered and non-2xx
	// statuses are logged. imageURL may embed credentials and is never
	// logged.
	Push(ctx context.Context, imageURL string) error
}

type client struct {
	http     *resty.Client
	endpoint string
	logger   *slog.Logger
}

// New creates the display System for cfg. An unconfigured plugin still
// yields a System; its pushes fail with ErrNotConfigured.
func New(cfg *Config, logger *slog.Logger) System {
	c := &client{
		http: resty.New().
			SetTimeout(cfg.TimeoutDuration()).
			SetHeader("Content-Type", "application/json"),
		logger: logger.With("system", "display"),
	}

	if cfg.Configured() {
		c.endpoint = fmt.Sprintf("%s/custom_plugins/%s", cfg.APIBase, cfg.PluginUUID)
	}

	return c
}

func (c *client) Push(ctx context.Context, imageURL string) error {
	if c.endpoint == "" {
		return ErrNotConfigured
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(Payload{
			MergeVariables: MergeVariables{
				ImageURL: imageURL,
				FileType: FileTypeImage,
			},
		}).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPushFailed, err)
	}

	if resp.IsError() {
		c.logger.Warn(
			"display webhook returned error status",
			"status", resp.StatusCode(),
			"body", truncate(resp.String(), 200),
		)
		return nil
	}

	c.logger.Debug("image pushed to display", "status", resp.StatusCode())
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
