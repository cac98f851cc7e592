package pdf

import (
	"context"
	"errors"
	"image"
	"testing"

	"cv-editor/internal/pdf/pdftest"
)

// countingRasterizer counts RenderPage calls on the wrapped rasterizer.
type countingRasterizer struct {
	inner   Rasterizer
	renders int
	opens   int
}

func newCountingRasterizer() *countingRasterizer {
	return &countingRasterizer{inner: NewVectorRasterizer()}
}

func (c *countingRasterizer) Name() string { return "counting" }

func (c *countingRasterizer) Open(ctx context.Context, data []byte) (PageRenderer, error) {
	c.opens++
	r, err := c.inner.Open(ctx, data)
	if err != nil {
		return nil, err
	}
	return &countingRenderer{PageRenderer: r, parent: c}, nil
}

type countingRenderer struct {
	PageRenderer
	parent *countingRasterizer
}

func (r *countingRenderer) RenderPage(ctx context.Context, pageIndex int) (image.Image, error) {
	r.parent.renders++
	return r.PageRenderer.RenderPage(ctx, pageIndex)
}

// failingRasterizer opens fine and fails every render.
type failingRasterizer struct {
	renders int
}

func (f *failingRasterizer) Name() string { return "failing" }

func (f *failingRasterizer) Open(ctx context.Context, data []byte) (PageRenderer, error) {
	return f, nil
}

func (f *failingRasterizer) RenderPage(ctx context.Context, pageIndex int) (image.Image, error) {
	f.renders++
	return nil, errors.New("renderer crashed")
}

func (f *failingRasterizer) Close() error { return nil }

// Light blue page background: rg 0.9 0.95 1.
var tintedBackground = RGB{230, 242, 255}

func tintedPage(text string, y float64) pdftest.Page {
	return pdftest.Page{
		Content: pdftest.Rect(0, 0, 612, 792, 0.9, 0.95, 1) + pdftest.Text("F1", 10, 50, y, text),
		Fonts:   map[string]string{"F1": "Helvetica"},
	}
}

func TestSamplerReadsBackground(t *testing.T) {
	data := pdftest.Build(pdftest.Options{}, tintedPage("Hanoi, Vietnam", 692))
	runs, err := Locate(data, "Vietnam")
	if err != nil || len(runs) != 1 {
		t.Fatalf("Locate() = %v, %v", runs, err)
	}

	s, err := NewSampler(context.Background(), data, NewVectorRasterizer())
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}
	defer s.Close()

	x, y := runs[0].Center()
	got, err := s.Sample(context.Background(), 0, x, y)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if got != tintedBackground {
		t.Errorf("Sample() = %v, want %v", got, tintedBackground)
	}
}

func TestSamplerMargin(t *testing.T) {
	// 10x10 red square in the top-left corner.
	data := pdftest.Single(pdftest.Rect(0, 782, 10, 10, 1, 0, 0))
	s, err := NewSampler(context.Background(), data, nil)
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}
	defer s.Close()

	tests := []struct {
		name string
		x, y float64
		want RGB
	}{
		{"margin steps into the square", 12, 12, RGB{255, 0, 0}},
		{"margin lands outside the square", 16.5, 16.5, White},
		{"negative coordinates clamp to the origin", -40, -40, RGB{255, 0, 0}},
		{"coordinates past the page clamp to the last pixel", 5000, 5000, White},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Func(context.Background())(0, tt.x, tt.y)
			if err != nil {
				t.Fatalf("sample error = %v", err)
			}
			if got != tt.want {
				t.Errorf("sample(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestSamplerRendersEachPageOnce(t *testing.T) {
	data := pdftest.Build(pdftest.Options{},
		tintedPage("2023 first", 700),
		tintedPage("2023 third", 600),
	)
	raster := newCountingRasterizer()
	s, err := NewSampler(context.Background(), data, raster)
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}
	defer s.Close()

	points := []struct {
		page int
		x, y float64
	}{
		{0, 100, 100}, {0, 300, 300}, {1, 100, 100}, {0, 50, 50}, {1, 200, 500},
	}
	for _, p := range points {
		if _, err := s.Sample(context.Background(), p.page, p.x, p.y); err != nil {
			t.Fatalf("Sample(%d) error = %v", p.page, err)
		}
	}
	if raster.renders != 2 || s.Renders() != 2 {
		t.Errorf("renders = %d (sampler says %d), want 2", raster.renders, s.Renders())
	}
	if raster.opens != 1 {
		t.Errorf("opens = %d, want 1", raster.opens)
	}
}

func TestSamplerRenderFailureIsRemembered(t *testing.T) {
	raster := &failingRasterizer{}
	s, err := NewSampler(context.Background(), hanoiPDF(), raster)
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		_, err := s.Sample(context.Background(), 0, 10, 10)
		if !IsRenderError(err) {
			t.Fatalf("Sample() error = %v, want RenderError", err)
		}
	}
	if raster.renders != 1 {
		t.Errorf("renders = %d, want 1", raster.renders)
	}
}

func TestSamplerPageOutOfRange(t *testing.T) {
	s, err := NewSampler(context.Background(), hanoiPDF(), NewVectorRasterizer())
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}
	if _, err := s.Sample(context.Background(), 3, 10, 10); !IsRenderError(err) {
		t.Errorf("Sample() error = %v, want RenderError", err)
	}
}

func TestNewSamplerInvalidPDF(t *testing.T) {
	if _, err := NewSampler(context.Background(), []byte("nope"), NewVectorRasterizer()); err == nil {
		t.Error("NewSampler() error = nil, want error")
	}
}

func TestSamplerContextIsPerCall(t *testing.T) {
	data := pdftest.Build(pdftest.Options{}, tintedPage("Hanoi, Vietnam", 692))
	openCtx, cancelOpen := context.WithCancel(context.Background())
	s, err := NewSampler(openCtx, data, NewVectorRasterizer())
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}
	defer s.Close()
	cancelOpen()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Sample(cancelled, 0, 300, 300); !IsRenderError(err) {
		t.Fatalf("Sample(cancelled) error = %v, want RenderError", err)
	}

	// Neither the cancelled open context nor the cancelled call sticks.
	got, err := s.Sample(context.Background(), 0, 300, 300)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if got != tintedBackground {
		t.Errorf("Sample() = %v, want %v", got, tintedBackground)
	}
}
