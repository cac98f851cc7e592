package pdf

import (
	"strings"
)

const (
	// fitTolerance absorbs float rounding between measured and available width.
	fitTolerance = 0.01
	// maxScaleRatio is the overflow ratio above which scaling is no longer tried.
	maxScaleRatio = 1.5
	// Ellipsis marks truncated text.
	Ellipsis = "..."
	// minTruncatedRunes stops truncation before the text disappears entirely.
	minTruncatedRunes = 3
	// LineLeading is the baseline distance of wrapped lines, in font sizes.
	LineLeading = 1.2
)

// ComputeFit decides how newText is placed into the run's box. The checks run
// in fixed order: fits, scale, wrap, truncate, then oversized as a last resort.
func ComputeFit(m Measurer, run TextRun, newText string, policy FitPolicy) FitResult {
	size := run.FontSize
	avail := run.Width
	measured := m.Measure(newText, size)

	if measured <= avail+fitTolerance {
		return FitResult{FinalText: newText, FinalFontSize: size}
	}

	ratio := measured / avail
	if avail <= 0 {
		ratio = maxScaleRatio
	}

	if policy.AllowScaling && ratio < maxScaleRatio {
		return FitResult{
			FinalText:     newText,
			FinalFontSize: size / ratio,
			Warning:       WarnScaled,
		}
	}

	if policy.AllowWrapping {
		return FitResult{
			FinalText:     newText,
			FinalFontSize: size,
			Warning:       WarnWrapped,
			Lines:         wrapText(m, newText, size, avail),
		}
	}

	if policy.AllowTruncation {
		return FitResult{
			FinalText:     truncateText(m, newText, size, avail, measured),
			FinalFontSize: size,
			Warning:       WarnTruncated,
		}
	}

	return FitResult{FinalText: newText, FinalFontSize: size}
}

// truncateText drops trailing runes until the text plus ellipsis fits. The
// ellipsis is appended as is, after a trailing space too.
func truncateText(m Measurer, text string, size, avail, measured float64) string {
	runes := []rune(text)
	width := measured
	for width > avail && len(runes) > minTruncatedRunes {
		runes = runes[:len(runes)-1]
		width = m.Measure(string(runes)+Ellipsis, size)
	}
	return string(runes) + Ellipsis
}

// wrapText greedily breaks text into lines no wider than avail. A single word
// wider than avail gets a line of its own.
func wrapText(m Measurer, text string, size, avail float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		candidate := line + " " + w
		if m.Measure(candidate, size) <= avail+fitTolerance {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = w
	}
	return append(lines, line)
}

// drawnLines returns the lines a FitResult paints, one unless wrapped.
func (f FitResult) drawnLines() []string {
	if len(f.Lines) > 0 {
		return f.Lines
	}
	return []string{f.FinalText}
}
