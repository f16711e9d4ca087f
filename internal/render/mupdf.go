package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

type mupdf struct {
	dpi float64
}

func (m *mupdf) Open(ctx context.Context, path string) (Sequence, error) {
	if err := checkArtifact(path); err != nil {
		return nil, err
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrRenderFailed, path, err)
	}

	n := doc.NumPage()
	if n < 1 {
		doc.Close()
		return nil, fmt.Errorf("%w: document has no pages", ErrRenderFailed)
	}

	return &fitzSequence{doc: doc, pages: n, dpi: m.dpi}, nil
}

type fitzSequence struct {
	doc   *fitz.Document
	pages int
	dpi   float64
}

func (s *fitzSequence) Len() int {
	return s.pages
}

func (s *fitzSequence) Page(n int) ([]byte, error) {
	if err := checkPage(n, s.pages); err != nil {
		return nil, err
	}

	img, err := s.doc.ImageDPI(n-1, s.dpi)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrRenderFailed, n, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode page %d: %v", ErrRenderFailed, n, err)
	}

	return buf.Bytes(), nil
}

func (s *fitzSequence) Close() error {
	return s.doc.Close()
}
