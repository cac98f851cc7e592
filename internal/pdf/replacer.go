package pdf

import (
	"math"
	"strings"

	"cv-editor/internal/logger"
)

// Erase rectangle geometry, in font sizes and points.
const (
	ascentRatio  = 0.85
	descentRatio = 0.25
	padX         = 2.0
	padY         = 0.5
)

// Canvas is the drawing surface the Replacer paints on. Coordinates are PDF
// user space relative to the page's lower-left corner.
type Canvas interface {
	PageSize(pageIndex int) (width, height float64, err error)
	FillRect(pageIndex int, x, y, w, h float64, fill RGB) error
	DrawText(pageIndex int, text string, x, y, fontSize float64, fill RGB) error
}

// CanvasToPDFY converts a top-left y to the PDF bottom-left convention.
func CanvasToPDFY(pageHeight, y float64) float64 {
	return pageHeight - y
}

// Replace paints over run and draws newText at its baseline. Only the run's
// page is touched. The background comes from run.BackgroundColor, white when unset.
func Replace(c Canvas, m Measurer, run TextRun, newText string, policy FitPolicy) (FitResult, error) {
	_, pageHeight, err := c.PageSize(run.PageIndex)
	if err != nil {
		return FitResult{}, err
	}

	fit := ComputeFit(m, run, newText, policy)
	lines := fit.drawnLines()

	textWidth := 0.0
	for _, line := range lines {
		textWidth = math.Max(textWidth, m.Measure(line, fit.FinalFontSize))
	}

	// The old glyphs were drawn at run.FontSize; cover whichever is taller.
	coverSize := math.Max(run.FontSize, fit.FinalFontSize)
	leading := fit.FinalFontSize * LineLeading
	top := run.Y - ascentRatio*coverSize - padY
	bottom := run.Y + descentRatio*coverSize + padY + float64(len(lines)-1)*leading

	rectX := run.X - padX
	rectW := math.Max(textWidth, run.Width) + 2*padX
	rectH := bottom - top

	bg := White
	if run.BackgroundColor != nil {
		bg = *run.BackgroundColor
	}
	if err := c.FillRect(run.PageIndex, rectX, CanvasToPDFY(pageHeight, bottom), rectW, rectH, bg); err != nil {
		return FitResult{}, err
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		baseline := run.Y + float64(i)*leading
		if err := c.DrawText(run.PageIndex, line, run.X, CanvasToPDFY(pageHeight, baseline), fit.FinalFontSize, Black); err != nil {
			return FitResult{}, err
		}
	}

	if fit.Warning != "" {
		logger.Debug("replacement did not fit",
			logger.Page(run.PageIndex),
			logger.String("warning", fit.Warning),
			logger.Float64("fontSize", fit.FinalFontSize))
	}
	return fit, nil
}
