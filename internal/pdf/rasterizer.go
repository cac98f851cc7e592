package pdf

import (
	"context"
	"fmt"
	"image"
	"os/exec"
	"strings"
)

// Rasterizer opens a document for page rendering at scale 1 (72 dpi).
type Rasterizer interface {
	Open(ctx context.Context, pdfBytes []byte) (PageRenderer, error)
	Name() string
}

// PageRenderer renders pages of one opened document.
type PageRenderer interface {
	RenderPage(ctx context.Context, pageIndex int) (image.Image, error)
	Close() error
}

// Rasterizer modes
const (
	RasterizerAuto    = "auto"
	RasterizerPoppler = "poppler"
	RasterizerVector  = "vector"
)

// NewRasterizer 根据名称创建光栅化器
//
// "auto" picks pdftoppm when it can be found and the pure Go renderer otherwise.
func NewRasterizer(name, pdftoppmPath string) (Rasterizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", RasterizerAuto:
		if path, ok := findPdftoppm(pdftoppmPath); ok {
			return NewPopplerRasterizer(path), nil
		}
		return NewVectorRasterizer(), nil
	case RasterizerPoppler:
		path, ok := findPdftoppm(pdftoppmPath)
		if !ok {
			return nil, NewPDFErrorWithDetails(ErrRasterizerSetup, "pdftoppm not found",
				"install poppler-utils or set CVEDIT_RASTERIZER=vector", nil)
		}
		return NewPopplerRasterizer(path), nil
	case RasterizerVector:
		return NewVectorRasterizer(), nil
	default:
		return nil, NewPDFError(ErrInvalidInput, fmt.Sprintf("unknown rasterizer %q", name), nil)
	}
}

func findPdftoppm(configured string) (string, bool) {
	candidate := configured
	if candidate == "" {
		candidate = "pdftoppm"
	}
	path, err := exec.LookPath(candidate)
	if err != nil {
		return "", false
	}
	return path, true
}
