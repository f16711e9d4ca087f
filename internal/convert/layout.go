// Package convert produces display-sized PDFs from EPUB books, plus a
// diagnostic PDF for books that cannot be converted.
package convert

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Page layout in points.
const (
	fontFamily = "Helvetica"
	fontSize   = 10.0
	lineHeight = 14.0
	margin     = 30.0
)

// PointsFromPixels converts device pixels to PDF points at 96 DPI.
func PointsFromPixels(px int) float64 {
	return float64(px) * 72.0 / 96.0
}

// page writes flowing text onto fixed-size pages, breaking as needed.
type page struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	width  float64
	height float64
	y      float64
}

func newPage(widthPx, heightPx int) *page {
	w, h := PointsFromPixels(widthPx), PointsFromPixels(heightPx)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)

	return &page{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		width:  w,
		height: h,
	}
}

func (p *page) usableWidth() float64 {
	return p.width - 2*margin
}

func (p *page) usableHeight() float64 {
	return p.height - 2*margin
}

// newSheet starts a fresh page with the baseline at the top margin.
func (p *page) newSheet() {
	p.pdf.AddPage()
	p.y = margin
}

func (p *page) started() bool {
	return p.pdf.PageNo() > 0
}

// line draws one line of text at the cursor, starting a new sheet when
// the cursor has run past the bottom margin.
func (p *page) line(text string) {
	if !p.started() || p.y > p.height-margin {
		p.newSheet()
	}
	p.pdf.Text(margin, p.y, p.tr(text))
	p.y += lineHeight
}

// paragraph word-wraps text to the usable width using the current font.
func (p *page) paragraph(text string) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return
	}

	var current []string
	for _, word := range words {
		candidate := strings.Join(append(current, word), " ")
		if len(current) > 0 && p.pdf.GetStringWidth(p.tr(candidate)) > p.usableWidth() {
			p.line(strings.Join(current, " "))
			current = []string{word}
			continue
		}
		current = append(current, word)
	}
	if len(current) > 0 {
		p.line(strings.Join(current, " "))
	}

	p.y += lineHeight * 0.5
}

// save writes the document to dst through a temporary file.
func (p *page) save(dst string) error {
	if err := p.pdf.Error(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}

	tmp := dst + ".tmp"
	if err := p.pdf.OutputFileAndClose(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write pdf: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename pdf: %w", err)
	}
	return nil
}

// bytes returns the finished document.
func (p *page) bytes() ([]byte, error) {
	if err := p.pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	var buf bytes.Buffer
	if err := p.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
