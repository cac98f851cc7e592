// Package pdf provides template-preserving PDF text editing: locating positioned
// text runs, sampling the page background under them, and painting replacement
// text over the original glyphs.
package pdf

import (
	"errors"
	"fmt"
)

// RGB 8 位颜色
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var (
	// White is the fill used when no background sample is available.
	White = RGB{255, 255, 255}
	// Black is the colour every replacement string is drawn in.
	Black = RGB{0, 0, 0}
)

// String renders the colour as #rrggbb.
func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// unit returns the colour components scaled to the 0..1 range used by PDF operators.
func (c RGB) unit() (float64, float64, float64) {
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255
}

// TextRun 页面上一个带位置的文本片段
//
// X and Y are in top-left page space at scale 1; Y is the baseline measured
// from the top edge. A run is only valid for the exact bytes it was extracted
// from.
type TextRun struct {
	PageIndex       int     `json:"page_index"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	FontSize        float64 `json:"font_size"`
	FontFamily      string  `json:"font_family"`
	Text            string  `json:"text"`
	Color           *RGB    `json:"color,omitempty"`
	BackgroundColor *RGB    `json:"background_color,omitempty"`
}

// Center returns the middle of the run's box, the point callers sample the
// background at.
func (r TextRun) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// FitPolicy 替换文本的适配策略
type FitPolicy struct {
	AllowScaling    bool `json:"allow_scaling"`
	AllowWrapping   bool `json:"allow_wrapping"`
	AllowTruncation bool `json:"allow_truncation"`
}

// DefaultFitPolicy scales or truncates, never wraps.
func DefaultFitPolicy() FitPolicy {
	return FitPolicy{
		AllowScaling:    true,
		AllowWrapping:   false,
		AllowTruncation: true,
	}
}

// FitResult describes what was actually drawn for one replacement.
type FitResult struct {
	FinalText     string   `json:"final_text"`
	FinalFontSize float64  `json:"final_font_size"`
	Warning       string   `json:"warning,omitempty"`
	Lines         []string `json:"lines,omitempty"` // set only when wrapping was applied
}

// Fit warnings
const (
	WarnScaled    = "Text scaled down to fit"
	WarnWrapped   = "Text wrapped to fit"
	WarnTruncated = "Text truncated to fit"
	WarnNoSample  = "Background sampling failed, using white"
	WarnNotFound  = "Text not found in PDF"
)

// PageWarning is a non-fatal note about one replacement, keyed by 1-based page
// number. Page 0 means the note is about the whole document.
type PageWarning struct {
	Page    int    `json:"page"`
	Message string `json:"message"`
}

func (w PageWarning) String() string {
	if w.Page <= 0 {
		return w.Message
	}
	return fmt.Sprintf("Page %d: %s", w.Page, w.Message)
}

// Replacement pairs a located run with the full string that should replace it.
type Replacement struct {
	Run     TextRun `json:"run"`
	NewText string  `json:"new_text"`
}

// BatchResult 批量替换结果
type BatchResult struct {
	PDF      []byte        `json:"-"`
	Applied  int           `json:"applied"`
	Results  []FitResult   `json:"results"`
	Warnings []PageWarning `json:"warnings"`
	Renders  int           `json:"renders"`
}

// WarningStrings flattens the warnings into "Page N: message" lines.
func (r *BatchResult) WarningStrings() []string {
	out := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		out = append(out, w.String())
	}
	return out
}

// PDFErrorCode 错误代码枚举
type PDFErrorCode string

const (
	ErrPDFInvalid      PDFErrorCode = "PDF_INVALID"
	ErrRenderFailed    PDFErrorCode = "RENDER_FAILED"
	ErrInvalidInput    PDFErrorCode = "INVALID_INPUT"
	ErrPageOutOfRange  PDFErrorCode = "PAGE_OUT_OF_RANGE"
	ErrGenerateFailed  PDFErrorCode = "GENERATE_FAILED"
	ErrRasterizerSetup PDFErrorCode = "RASTERIZER_UNAVAILABLE"
)

// PDFError PDF 处理错误
type PDFError struct {
	Code    PDFErrorCode `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Page    int          `json:"page,omitempty"`
	Cause   error        `json:"-"`
}

// Error implements the error interface for PDFError
func (e *PDFError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *PDFError) Unwrap() error {
	return e.Cause
}

// NewPDFError creates a new PDFError with the given code, message, and optional cause
func NewPDFError(code PDFErrorCode, message string, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewPDFErrorWithDetails creates a new PDFError with details
func NewPDFErrorWithDetails(code PDFErrorCode, message, details string, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// NewPDFErrorWithPage creates a new PDFError with page information (1-based)
func NewPDFErrorWithPage(code PDFErrorCode, message string, page int, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Page:    page,
		Cause:   cause,
	}
}

// HasCode reports whether err is a *PDFError with the given code.
func HasCode(err error, code PDFErrorCode) bool {
	var pe *PDFError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsParseError reports whether err means the bytes could not be loaded as a PDF.
func IsParseError(err error) bool {
	return HasCode(err, ErrPDFInvalid)
}

// IsRenderError reports whether err means a page could not be rasterized.
func IsRenderError(err error) bool {
	return HasCode(err, ErrRenderFailed) || HasCode(err, ErrRasterizerSetup)
}
