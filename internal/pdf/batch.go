package pdf

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"cv-editor/internal/logger"
)

// Options 替换选项
type Options struct {
	Policy     FitPolicy
	Rasterizer Rasterizer // nil means the pure Go rasterizer
	Measurer   Measurer   // nil means Helvetica
}

// DefaultOptions returns the default fit policy with the pure Go rasterizer.
func DefaultOptions() Options {
	return Options{
		Policy:     DefaultFitPolicy(),
		Rasterizer: NewVectorRasterizer(),
		Measurer:   HelveticaMeasurer{},
	}
}

func (o Options) measurer() Measurer {
	if o.Measurer == nil {
		return HelveticaMeasurer{}
	}
	return o.Measurer
}

// ReplaceAll 批量替换文本
//
// The document is loaded and the sampler built once for the whole batch.
// Runs must come from pdfBytes. A run that cannot be sampled is painted over
// in white; a run that cannot be drawn is reported and skipped. Only load and
// save failures abort the batch.
func ReplaceAll(ctx context.Context, pdfBytes []byte, replacements []Replacement, opts Options) (*BatchResult, error) {
	doc, err := LoadDocument(pdfBytes)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{
		Results:  make([]FitResult, 0, len(replacements)),
		Warnings: make([]PageWarning, 0),
	}
	if len(replacements) == 0 {
		result.PDF = pdfBytes
		return result, nil
	}

	sampler, samplerErr := NewSampler(ctx, pdfBytes, opts.Rasterizer)
	if samplerErr != nil {
		logger.Warn("background sampler unavailable", logger.Err(samplerErr))
	} else {
		defer sampler.Close()
	}

	m := opts.measurer()
	for _, rep := range replacements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		run := rep.Run
		page := run.PageIndex + 1
		if run.BackgroundColor == nil {
			bg := White
			if samplerErr == nil {
				cx, cy := run.Center()
				if sampled, err := sampler.Sample(ctx, run.PageIndex, cx, cy); err == nil {
					bg = sampled
				} else {
					result.Warnings = append(result.Warnings, PageWarning{Page: page, Message: WarnNoSample})
				}
			} else {
				result.Warnings = append(result.Warnings, PageWarning{Page: page, Message: WarnNoSample})
			}
			run.BackgroundColor = &bg
		}

		fit, err := Replace(doc, m, run, rep.NewText, opts.Policy)
		if err != nil {
			logger.Error("replacement failed", err, logger.Page(run.PageIndex), logger.String("text", run.Text))
			result.Warnings = append(result.Warnings, PageWarning{Page: page, Message: err.Error()})
			continue
		}
		result.Applied++
		result.Results = append(result.Results, fit)
		if fit.Warning != "" {
			result.Warnings = append(result.Warnings, PageWarning{Page: page, Message: fit.Warning})
		}
	}

	if result.Applied == 0 {
		result.PDF = pdfBytes
	} else if result.PDF, err = doc.Save(); err != nil {
		return nil, err
	}
	if sampler != nil {
		result.Renders = sampler.Renders()
	}

	logger.Info("batch replacement finished",
		logger.Int("requested", len(replacements)),
		logger.Int("applied", result.Applied),
		logger.Int("warnings", len(result.Warnings)),
		logger.Int("renders", result.Renders))
	return result, nil
}

// ReplaceRun replaces a single located run.
func ReplaceRun(ctx context.Context, pdfBytes []byte, run TextRun, newText string, opts Options) (*BatchResult, error) {
	return ReplaceAll(ctx, pdfBytes, []Replacement{{Run: run, NewText: newText}}, opts)
}

// FindAndReplace locates every run containing find and replaces its first
// occurrence within the run, keeping the rest of the run's text. No match is
// a result with nothing applied and a not-found warning.
func FindAndReplace(ctx context.Context, pdfBytes []byte, find, replace string, opts Options) (*BatchResult, error) {
	runs, err := Locate(pdfBytes, find)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return &BatchResult{
			PDF:      pdfBytes,
			Results:  []FitResult{},
			Warnings: []PageWarning{{Message: WarnNotFound}},
		}, nil
	}

	needle := norm.NFC.String(find)
	replacement := norm.NFC.String(replace)
	reps := make([]Replacement, 0, len(runs))
	for _, run := range runs {
		reps = append(reps, Replacement{
			Run:     run,
			NewText: strings.Replace(run.Text, needle, replacement, 1),
		})
	}
	return ReplaceAll(ctx, pdfBytes, reps, opts)
}
