package pdf

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"cv-editor/internal/logger"
)

// PopplerRasterizer renders pages with poppler's pdftoppm.
type PopplerRasterizer struct {
	binary string
}

// NewPopplerRasterizer creates a rasterizer that runs the given pdftoppm binary.
func NewPopplerRasterizer(binary string) *PopplerRasterizer {
	return &PopplerRasterizer{binary: binary}
}

// Name implements Rasterizer.
func (p *PopplerRasterizer) Name() string { return RasterizerPoppler }

// Open writes the document to a temp dir that lives until Close.
func (p *PopplerRasterizer) Open(ctx context.Context, pdfBytes []byte) (PageRenderer, error) {
	tempDir, err := os.MkdirTemp("", "cvedit-render-*")
	if err != nil {
		return nil, NewPDFError(ErrRenderFailed, "failed to create temp dir", err)
	}
	pdfPath := filepath.Join(tempDir, "document.pdf")
	if err := os.WriteFile(pdfPath, pdfBytes, 0600); err != nil {
		os.RemoveAll(tempDir)
		return nil, NewPDFError(ErrRenderFailed, "failed to write temp PDF", err)
	}
	return &popplerDocument{binary: p.binary, tempDir: tempDir, pdfPath: pdfPath}, nil
}

type popplerDocument struct {
	binary  string
	tempDir string
	pdfPath string
}

// RenderPage runs pdftoppm for a single page at 72 dpi.
func (d *popplerDocument) RenderPage(ctx context.Context, pageIndex int) (image.Image, error) {
	pageNum := pageIndex + 1
	outputPrefix := filepath.Join(d.tempDir, fmt.Sprintf("page_%d", pageNum))

	args := []string{
		"-f", strconv.Itoa(pageNum),
		"-l", strconv.Itoa(pageNum),
		"-png",
		"-r", "72",
		"-singlefile",
		d.pdfPath,
		outputPrefix,
	}

	cmd := exec.CommandContext(ctx, d.binary, args...)
	detachConsole(cmd)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, NewPDFErrorWithPage(ErrRenderFailed,
			fmt.Sprintf("pdftoppm failed: %s", string(output)), pageNum, err)
	}

	imgPath := outputPrefix + ".png"
	img, err := loadPNG(imgPath)
	if err != nil {
		return nil, NewPDFErrorWithPage(ErrRenderFailed, "failed to load rendered page", pageNum, err)
	}
	os.Remove(imgPath)

	logger.Debug("page rendered with pdftoppm",
		logger.Page(pageIndex),
		logger.Int("width", img.Bounds().Dx()),
		logger.Int("height", img.Bounds().Dy()))
	return img, nil
}

// Close removes the temp dir.
func (d *popplerDocument) Close() error {
	if d.tempDir == "" {
		return nil
	}
	err := os.RemoveAll(d.tempDir)
	d.tempDir = ""
	return err
}

func loadPNG(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return png.Decode(file)
}
