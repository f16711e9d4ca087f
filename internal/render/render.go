// Package render turns a stored PDF into page images on demand.
//
// A Renderer opens a document and returns a Sequence: a 1-indexed,
// random-access view over its pages. Pages are rasterized when requested
// and encoded as PNG. Nothing is cached between Open calls.
package render

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
)

// Renderer errors.
var (
	ErrNotFound       = errors.New("document not found")
	ErrRenderFailed   = errors.New("render failed")
	ErrPageOutOfRange = errors.New("page number out of range")
)

// Sequence is an opened document's pages.
type Sequence interface {
	// Len returns the page count.
	Len() int

	// Page rasterizes page n (1-based) to PNG bytes.
	Page(n int) ([]byte, error)

	Close() error
}

// Renderer opens stored documents for page extraction.
type Renderer interface {
	Open(ctx context.Context, path string) (Sequence, error)
}

// Box is a target display area in device pixels.
type Box struct {
	Width  int
	Height int
}

// New creates the configured backend. When cfg.Fit is set, every page is
// scaled into box.
func New(cfg *Config, box Box, logger *slog.Logger) (Renderer, error) {
	var r Renderer

	switch cfg.Backend {
	case BackendMuPDF:
		r = &mupdf{dpi: float64(cfg.DPI)}
	case BackendImageMagick:
		r = &imagemagick{dpi: cfg.DPI}
	default:
		return nil, fmt.Errorf("unknown render backend %q", cfg.Backend)
	}

	logger.With("system", "render").Info(
		"renderer configured",
		"backend", cfg.Backend,
		"dpi", cfg.DPI,
		"fit", cfg.Fit,
	)

	if cfg.Fit {
		if box.Width <= 0 || box.Height <= 0 {
			return nil, fmt.Errorf("fit requires a positive display box, got %dx%d", box.Width, box.Height)
		}
		r = &fitRenderer{base: r, box: box}
	}

	return r, nil
}

// checkArtifact maps a missing file to ErrNotFound before a backend opens it.
func checkArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return nil
}

func checkPage(n, total int) error {
	if n < 1 || n > total {
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, n, total)
	}
	return nil
}
