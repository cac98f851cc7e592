package pdf

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"

	lpdf "github.com/ledongthuc/pdf"
	"golang.org/x/image/vector"

	"cv-editor/internal/logger"
)

// capHeightRatio is the glyph-box height, in font sizes, used to paint text.
const capHeightRatio = 0.7

// VectorRasterizer renders page backgrounds in pure Go. Filled paths are drawn
// in their fill colour; text is left out, so sampling next to a run never
// reads the run's own ink. Images and shadings are not drawn.
type VectorRasterizer struct {
	// glyphBoxes paints each text item as a solid cap-height box.
	glyphBoxes bool
}

// NewVectorRasterizer creates the pure Go rasterizer.
func NewVectorRasterizer() *VectorRasterizer {
	return &VectorRasterizer{}
}

// Name implements Rasterizer.
func (VectorRasterizer) Name() string { return RasterizerVector }

// Open implements Rasterizer.
func (v VectorRasterizer) Open(ctx context.Context, pdfBytes []byte) (PageRenderer, error) {
	r, err := openReader(pdfBytes)
	if err != nil {
		return nil, NewPDFError(ErrRenderFailed, "failed to open PDF for rendering", err)
	}
	return &vectorDocument{reader: r, glyphBoxes: v.glyphBoxes}, nil
}

type vectorDocument struct {
	reader     *lpdf.Reader
	glyphBoxes bool
}

// RenderPage paints one page on a white RGBA bitmap.
func (d *vectorDocument) RenderPage(ctx context.Context, pageIndex int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewPDFErrorWithPage(ErrRenderFailed, "render cancelled", pageIndex+1, err)
	}
	if pageIndex < 0 || pageIndex >= d.reader.NumPage() {
		return nil, NewPDFErrorWithPage(ErrRenderFailed, "page out of range", pageIndex+1, nil)
	}

	page := d.reader.Page(pageIndex + 1)
	view, w, h := viewportMatrix(page)
	width, height := int(math.Ceil(w)), int(math.Ceil(h))
	if width <= 0 || height <= 0 {
		return nil, NewPDFErrorWithPage(ErrRenderFailed, "page has an empty MediaBox", pageIndex+1, nil)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	p := &vectorPainter{img: img, rast: vector.NewRasterizer(width, height), glyphBoxes: d.glyphBoxes}
	if err := walkPage(page, view, p); err != nil {
		return nil, NewPDFErrorWithPage(ErrRenderFailed, "failed to interpret page", pageIndex+1, err)
	}

	logger.Debug("page rendered in pure Go",
		logger.Page(pageIndex),
		logger.Int("fills", p.fills),
		logger.Int("glyphBoxes", p.boxes))
	return img, nil
}

// Close implements PageRenderer.
func (d *vectorDocument) Close() error { return nil }

// vectorPainter draws what the interpreter reports.
type vectorPainter struct {
	img        *image.RGBA
	rast       *vector.Rasterizer
	glyphBoxes bool
	fills      int
	boxes      int
}

// fill paints a path with the nonzero rule. Even-odd paths are approximated.
func (p *vectorPainter) fill(path []pathSegment, c RGB, evenOdd bool) {
	b := p.img.Bounds()
	p.rast.Reset(b.Dx(), b.Dy())
	for _, seg := range path {
		switch seg.op {
		case 'M':
			p.rast.MoveTo(f32(seg.points[0][0]), f32(seg.points[0][1]))
		case 'L':
			p.rast.LineTo(f32(seg.points[0][0]), f32(seg.points[0][1]))
		case 'C':
			p.rast.CubeTo(
				f32(seg.points[0][0]), f32(seg.points[0][1]),
				f32(seg.points[1][0]), f32(seg.points[1][1]),
				f32(seg.points[2][0]), f32(seg.points[2][1]))
		case 'Z':
			p.rast.ClosePath()
		}
	}
	p.paint(c)
	p.fills++
}

// text paints the glyph box between the run's start and end pen positions.
func (p *vectorPainter) text(item textItem) {
	if !p.glyphBoxes || item.invisible {
		return
	}
	x0, y0 := item.trm[4], item.trm[5]
	upX, upY := item.trm[2]*capHeightRatio, item.trm[3]*capHeightRatio

	b := p.img.Bounds()
	p.rast.Reset(b.Dx(), b.Dy())
	p.rast.MoveTo(f32(x0), f32(y0))
	p.rast.LineTo(f32(item.endX), f32(item.endY))
	p.rast.LineTo(f32(item.endX+upX), f32(item.endY+upY))
	p.rast.LineTo(f32(x0+upX), f32(y0+upY))
	p.rast.ClosePath()
	p.paint(item.fill)
	p.boxes++
}

func (p *vectorPainter) paint(c RGB) {
	src := image.NewUniform(color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
	p.rast.Draw(p.img, p.img.Bounds(), src, image.Point{})
}

func f32(v float64) float32 { return float32(v) }
