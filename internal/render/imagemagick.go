package render

import (
	"context"
	"fmt"

	"github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/image"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

type imagemagick struct {
	dpi int
}

func (m *imagemagick) Open(ctx context.Context, path string) (Sequence, error) {
	if err := checkArtifact(path); err != nil {
		return nil, err
	}

	count, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: count pages: %v", ErrRenderFailed, err)
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: document has no pages", ErrRenderFailed)
	}

	doc, err := document.Open(path, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrRenderFailed, path, err)
	}

	renderer, err := image.NewImageMagickRenderer(config.ImageConfig{
		Format:  string(document.PNG),
		DPI:     m.dpi,
		Options: make(map[string]any),
	})
	if err != nil {
		doc.Close()
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	return &magickSequence{doc: doc, renderer: renderer, pages: count}, nil
}

type magickSequence struct {
	doc      document.Document
	renderer image.Renderer
	pages    int
}

func (s *magickSequence) Len() int {
	return s.pages
}

func (s *magickSequence) Page(n int) ([]byte, error) {
	if err := checkPage(n, s.pages); err != nil {
		return nil, err
	}

	page, err := s.doc.ExtractPage(n)
	if err != nil {
		return nil, fmt.Errorf("%w: extract page %d: %v", ErrRenderFailed, n, err)
	}

	data, err := page.ToImage(s.renderer, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrRenderFailed, n, err)
	}

	return data, nil
}

func (s *magickSequence) Close() error {
	return s.doc.Close()
}
