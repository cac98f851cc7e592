package pdf

import (
	"context"
	"image"
	"math"

	"cv-editor/internal/logger"
)

// SampleMargin is how far up and left of the requested point the pixel is read,
// to step off the glyph ink at a run's centre.
const SampleMargin = 5

// SampleFunc reads the background colour at a top-left page coordinate.
type SampleFunc func(pageIndex int, x, y float64) (RGB, error)

// Sampler 页面背景色采样器
//
// Pages are rasterized lazily, once each, and kept for the sampler's lifetime.
// A page that fails to render is remembered and fails fast afterwards;
// cancellation is not remembered.
type Sampler struct {
	renderer PageRenderer
	pages    map[int]image.Image
	failed   map[int]error
	renders  int
}

// NewSampler opens pdfBytes with the rasterizer. ctx only bounds the open;
// each Sample call carries its own. Close releases the renderer.
func NewSampler(ctx context.Context, pdfBytes []byte, rasterizer Rasterizer) (*Sampler, error) {
	if rasterizer == nil {
		rasterizer = NewVectorRasterizer()
	}
	renderer, err := rasterizer.Open(ctx, pdfBytes)
	if err != nil {
		return nil, err
	}
	return &Sampler{
		renderer: renderer,
		pages:    make(map[int]image.Image),
		failed:   make(map[int]error),
	}, nil
}

// Sample returns the colour at (x, y) on the page, offset by SampleMargin and
// clamped to the bitmap.
func (s *Sampler) Sample(ctx context.Context, pageIndex int, x, y float64) (RGB, error) {
	img, err := s.page(ctx, pageIndex)
	if err != nil {
		return RGB{}, err
	}
	b := img.Bounds()
	px := clampInt(int(math.Floor(x-SampleMargin)), 0, b.Dx()-1)
	py := clampInt(int(math.Floor(y-SampleMargin)), 0, b.Dy()-1)

	r, g, bl, _ := img.At(b.Min.X+px, b.Min.Y+py).RGBA()
	return RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8)}, nil
}

// Func exposes Sample as a closure bound to ctx.
func (s *Sampler) Func(ctx context.Context) SampleFunc {
	return func(pageIndex int, x, y float64) (RGB, error) {
		return s.Sample(ctx, pageIndex, x, y)
	}
}

// Renders reports how many pages have been rasterized.
func (s *Sampler) Renders() int {
	return s.renders
}

// Close releases the renderer and drops cached bitmaps.
func (s *Sampler) Close() error {
	s.pages = make(map[int]image.Image)
	return s.renderer.Close()
}

func (s *Sampler) page(ctx context.Context, pageIndex int) (image.Image, error) {
	if img, ok := s.pages[pageIndex]; ok {
		return img, nil
	}
	if err, ok := s.failed[pageIndex]; ok {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, NewPDFErrorWithPage(ErrRenderFailed, "render cancelled", pageIndex+1, err)
	}

	img, err := s.renderer.RenderPage(ctx, pageIndex)
	s.renders++
	if err == nil && img.Bounds().Empty() {
		err = NewPDFErrorWithPage(ErrRenderFailed, "rendered page is empty", pageIndex+1, nil)
	}
	if err != nil {
		if !IsRenderError(err) {
			err = NewPDFErrorWithPage(ErrRenderFailed, "failed to render page", pageIndex+1, err)
		}
		logger.Warn("page render failed", logger.Page(pageIndex), logger.Err(err))
		if ctx.Err() == nil {
			s.failed[pageIndex] = err
		}
		return nil, err
	}
	s.pages[pageIndex] = img
	return img, nil
}

func clampInt(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
