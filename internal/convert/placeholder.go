package convert

// maxReason bounds the diagnostic text so the document stays on one page.
const maxReason = 400

// Placeholder writes the single-page diagnostic PDF shown when a book
// cannot be converted, so the page can still be delivered.
type Placeholder struct {
	Width  int
	Height int
}

// NewPlaceholder creates a Placeholder sized for the display.
func NewPlaceholder(width, height int) *Placeholder {
	return &Placeholder{Width: width, Height: height}
}

// Render returns the diagnostic PDF describing reason.
func (ph *Placeholder) Render(reason string) ([]byte, error) {
	p := newPage(ph.Width, ph.Height)
	p.newSheet()

	p.pdf.SetFont(fontFamily, "B", 14)
	p.pdf.Text(margin, 50, "EPUB Conversion Error")

	p.pdf.SetFont(fontFamily, "", fontSize)
	p.y = 80

	if len(reason) > maxReason {
		reason = reason[:maxReason] + "..."
	}
	p.paragraph(reason)
	for _, line := range []string{
		"The book could not be converted for the display.",
		"Check that the file is a valid EPUB without DRM,",
		"then send it again.",
	} {
		if p.y > p.height-margin {
			break
		}
		p.line(line)
	}

	return p.bytes()
}
