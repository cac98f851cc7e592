package pdf

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"cv-editor/internal/logger"
)

// openReader opens pdfBytes with ledongthuc/pdf, turning panics into ParseErrors.
func openReader(pdfBytes []byte) (r *lpdf.Reader, err error) {
	if len(pdfBytes) == 0 {
		return nil, NewPDFError(ErrPDFInvalid, "empty PDF data", nil)
	}
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = NewPDFError(ErrPDFInvalid, "failed to open PDF", fmt.Errorf("%v", rec))
		}
	}()
	r, err = lpdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, NewPDFError(ErrPDFInvalid, "failed to open PDF", err)
	}
	return r, nil
}

// runCollector turns interpreted text items into TextRuns.
type runCollector struct {
	pageIndex int
	runs      []TextRun
}

func (c *runCollector) text(item textItem) {
	x, y := item.trm[4], item.trm[5]
	fill := item.fill
	c.runs = append(c.runs, TextRun{
		PageIndex:  c.pageIndex,
		X:          x,
		Y:          y,
		Width:      math.Hypot(item.endX-x, item.endY-y),
		Height:     item.trm.yScale(),
		FontSize:   item.trm.yScale(),
		FontFamily: item.fontName,
		Text:       norm.NFC.String(item.text),
		Color:      &fill,
	})
}

func (c *runCollector) fill([]pathSegment, RGB, bool) {}

// ExtractRuns returns every positioned text run in document order.
func ExtractRuns(pdfBytes []byte) ([]TextRun, error) {
	r, err := openReader(pdfBytes)
	if err != nil {
		return nil, err
	}
	return extractRuns(r)
}

func extractRuns(r *lpdf.Reader) ([]TextRun, error) {
	var runs []TextRun
	for i := 1; i <= r.NumPage(); i++ {
		found, err := pageRuns(r, i-1)
		if err != nil {
			return nil, err
		}
		runs = append(runs, found...)
	}
	return runs, nil
}

func pageRuns(r *lpdf.Reader, pageIndex int) (runs []TextRun, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = NewPDFErrorWithPage(ErrPDFInvalid, "failed to read page", pageIndex+1, fmt.Errorf("%v", rec))
		}
	}()
	page := r.Page(pageIndex + 1)
	view, _, _ := viewportMatrix(page)
	c := &runCollector{pageIndex: pageIndex}
	if err := walkPage(page, view, c); err != nil {
		return nil, NewPDFErrorWithPage(ErrPDFInvalid, "failed to read page", pageIndex+1, err)
	}
	return c.runs, nil
}

// Locate 查找包含 searchText 的全部文本片段
//
// Matching is literal and case-sensitive on NFC-normalised text. No match is
// an empty result, not an error.
func Locate(pdfBytes []byte, searchText string) ([]TextRun, error) {
	if searchText == "" {
		return nil, NewPDFError(ErrInvalidInput, "search text must not be empty", nil)
	}
	runs, err := ExtractRuns(pdfBytes)
	if err != nil {
		return nil, err
	}

	needle := norm.NFC.String(searchText)
	matches := make([]TextRun, 0)
	for _, run := range runs {
		if strings.Contains(run.Text, needle) {
			matches = append(matches, run)
		}
	}

	logger.Debug("located text runs",
		logger.String("search", searchText),
		logger.Int("runs", len(runs)),
		logger.Int("matches", len(matches)))
	return matches, nil
}
