package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

type fitRenderer struct {
	base Renderer
	box  Box
}

func (f *fitRenderer) Open(ctx context.Context, path string) (Sequence, error) {
	seq, err := f.base.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return Fit(seq, f.box), nil
}

// Fit wraps seq so every page is scaled to fit inside box, preserving the
// aspect ratio, and centered on a white canvas of exactly box's size.
func Fit(seq Sequence, box Box) Sequence {
	return &fitSequence{Sequence: seq, box: box}
}

type fitSequence struct {
	Sequence
	box Box
}

func (s *fitSequence) Page(n int) ([]byte, error) {
	data, err := s.Sequence.Page(n)
	if err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode page %d: %v", ErrRenderFailed, n, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, s.box.Width, s.box.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, target(src.Bounds(), s.box), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("%w: encode page %d: %v", ErrRenderFailed, n, err)
	}
	return buf.Bytes(), nil
}

// target returns the largest rectangle with src's aspect ratio centered in box.
func target(src image.Rectangle, box Box) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw == 0 || sh == 0 {
		return image.Rect(0, 0, box.Width, box.Height)
	}

	w, h := box.Width, sh*box.Width/sw
	if h > box.Height {
		w, h = sw*box.Height/sh, box.Height
	}

	x := (box.Width - w) / 2
	y := (box.Height - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
