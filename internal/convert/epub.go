package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/simp-lee/epub"
)

// ErrConvertFailed wraps every conversion failure.
var ErrConvertFailed = errors.New("epub conversion failed")

// noContent is printed when a book yields neither cover nor text.
const noContent = "No content could be extracted from this EPUB file."

// coverShare is the fraction of the usable page height a cover may fill.
const coverShare = 0.6

// EPUB lays out books as PDFs sized for the display.
type EPUB struct {
	Width  int
	Height int
	logger *slog.Logger
}

// NewEPUB creates a converter producing pages of width x height device pixels.
func NewEPUB(width, height int, logger *slog.Logger) *EPUB {
	return &EPUB{
		Width:  width,
		Height: height,
		logger: logger.With("system", "convert"),
	}
}

// Convert reads the book at src and writes a PDF to dst. A cover, when
// present, gets its own first page; chapter text follows in spine order.
func (e *EPUB) Convert(ctx context.Context, src, dst string) error {
	book, err := epub.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConvertFailed, err)
	}
	defer book.Close()

	p := newPage(e.Width, e.Height)

	meta := book.Metadata()
	if len(meta.Titles) > 0 {
		p.pdf.SetTitle(meta.Titles[0], true)
	}
	if len(meta.Authors) > 0 {
		p.pdf.SetAuthor(meta.Authors[0].Name, true)
	}

	added := e.drawCover(p, book)

	for _, ch := range book.ContentChapters() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrConvertFailed, err)
		}

		text, err := ch.TextContent()
		if err != nil {
			e.logger.Warn("skipping unreadable chapter", "href", ch.Href, "error", err)
			continue
		}
		if e.drawText(p, text) {
			added = true
		}
	}

	if !added {
		p.pdf.SetFont(fontFamily, "", fontSize)
		p.line(noContent)
	}

	if err := p.save(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrConvertFailed, err)
	}

	e.logger.Info("epub converted", "pages", p.pdf.PageNo())
	return nil
}

// drawCover places the cover image centered on its own page, labelled
// "COVER". Books without a usable cover are not an error.
func (e *EPUB) drawCover(p *page, book *epub.Book) bool {
	cover, err := book.Cover()
	if err != nil {
		if !errors.Is(err, epub.ErrNoCover) {
			e.logger.Warn("cover unreadable", "error", err)
		}
		return false
	}

	imageType := gofpdfImageType(cover.MediaType)
	if imageType == "" {
		e.logger.Debug("cover format not supported", "media_type", cover.MediaType)
		return false
	}

	opts := gofpdf.ImageOptions{ImageType: imageType}
	info := p.pdf.RegisterImageOptionsReader(cover.Path, opts, bytes.NewReader(cover.Data))
	if p.pdf.Err() || info == nil || info.Width() == 0 || info.Height() == 0 {
		e.logger.Warn("cover image rejected", "media_type", cover.MediaType, "error", p.pdf.Error())
		p.pdf.ClearError()
		return false
	}

	maxW := p.usableWidth()
	maxH := p.usableHeight() * coverShare
	scale := min(maxW/info.Width(), maxH/info.Height())
	w, h := info.Width()*scale, info.Height()*scale

	p.newSheet()
	p.pdf.SetFont(fontFamily, "B", fontSize+2)
	p.pdf.Text(margin, margin, "COVER")
	p.pdf.ImageOptions(cover.Path, (p.width-w)/2, margin+lineHeight, w, h, false, opts, 0, "")

	// Text starts on the following page.
	p.y = p.height
	return true
}

// drawText lays out extracted chapter text, one paragraph per line of input.
func (e *EPUB) drawText(p *page, text string) bool {
	drawn := false
	p.pdf.SetFont(fontFamily, "", fontSize)

	for para := range strings.SplitSeq(text, "\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		p.paragraph(para)
		drawn = true
	}
	return drawn
}

// Describe returns a short, user-presentable reason for a conversion error.
func Describe(err error) string {
	switch {
	case errors.Is(err, epub.ErrDRMProtected):
		return "This book is DRM protected and cannot be converted."
	case errors.Is(err, epub.ErrInvalidEPub):
		return "This file is not a valid EPUB book."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Conversion was interrupted."
	default:
		return "The book could not be read."
	}
}

func gofpdfImageType(mediaType string) string {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg":
		return "JPG"
	case "image/png":
		return "PNG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}
