package pdf

import (
	"math/rand"
	"strings"
	"testing"
	"testing/quick"
	"unicode/utf8"
)

func quickConfig() *quick.Config {
	return &quick.Config{
		MaxCount: 100,
		Rand:     rand.New(rand.NewSource(42)),
	}
}

// sampleText builds a printable ASCII string of 4..40 runes from a seed.
func sampleText(seed uint32) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 ,.-"
	r := rand.New(rand.NewSource(int64(seed)))
	n := 4 + r.Intn(37)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[r.Intn(len(alphabet))])
	}
	return sb.String()
}

// sampleSize maps a seed to a font size between 6 and 30pt.
func sampleSize(seed uint8) float64 {
	return 6 + float64(seed%25)
}

func TestComputeFitExactFit(t *testing.T) {
	m := HelveticaMeasurer{}
	run := TextRun{Width: m.Measure("Hanoi, Vietnam", 10), FontSize: 10, Text: "Hanoi, Vietnam"}

	fit := ComputeFit(m, run, "Hanoi, Vietnam", DefaultFitPolicy())
	if fit.Warning != "" {
		t.Errorf("Warning = %q, want none", fit.Warning)
	}
	if fit.FinalText != "Hanoi, Vietnam" || fit.FinalFontSize != 10 {
		t.Errorf("fit = %+v, want unchanged text at 10pt", fit)
	}
}

// TestNoOpReplacementProperty: replacing a run with its own text draws it
// unchanged, at the same width, with no warning.
func TestNoOpReplacementProperty(t *testing.T) {
	m := HelveticaMeasurer{}
	f := func(seed uint32, sizeSeed uint8) bool {
		text := sampleText(seed)
		size := sampleSize(sizeSeed)
		run := TextRun{Width: m.Measure(text, size), FontSize: size, Text: text}
		fit := ComputeFit(m, run, text, DefaultFitPolicy())
		return fit.Warning == "" &&
			fit.FinalText == text &&
			fit.FinalFontSize == size &&
			almostEqual(m.Measure(fit.FinalText, fit.FinalFontSize), run.Width, fitTolerance)
	}
	if err := quick.Check(f, quickConfig()); err != nil {
		t.Error(err)
	}
}

// TestScalingBoundaryProperty: text measuring 1.2 times the run width is
// scaled down, never truncated.
func TestScalingBoundaryProperty(t *testing.T) {
	m := HelveticaMeasurer{}
	f := func(seed uint32, sizeSeed uint8) bool {
		text := sampleText(seed)
		size := sampleSize(sizeSeed)
		measured := m.Measure(text, size)
		if measured == 0 {
			return true
		}
		run := TextRun{Width: measured / 1.2, FontSize: size}
		fit := ComputeFit(m, run, text, DefaultFitPolicy())
		return fit.Warning == WarnScaled &&
			fit.FinalText == text &&
			almostEqual(fit.FinalFontSize, size/1.2, 1e-9) &&
			m.Measure(text, fit.FinalFontSize) <= run.Width+fitTolerance
	}
	if err := quick.Check(f, quickConfig()); err != nil {
		t.Error(err)
	}
}

// TestTruncationBoundaryProperty: text measuring twice the run width is
// truncated with an ellipsis at the original font size.
func TestTruncationBoundaryProperty(t *testing.T) {
	m := HelveticaMeasurer{}
	f := func(seed uint32, sizeSeed uint8) bool {
		text := sampleText(seed)
		size := sampleSize(sizeSeed)
		measured := m.Measure(text, size)
		if measured == 0 {
			return true
		}
		run := TextRun{Width: measured / 2, FontSize: size}
		fit := ComputeFit(m, run, text, DefaultFitPolicy())
		if fit.Warning != WarnTruncated || fit.FinalFontSize != size {
			return false
		}
		if !strings.HasSuffix(fit.FinalText, Ellipsis) {
			return false
		}
		kept := strings.TrimSuffix(fit.FinalText, Ellipsis)
		if !strings.HasPrefix(text, kept) {
			return false
		}
		return m.Measure(fit.FinalText, size) <= run.Width+fitTolerance ||
			utf8.RuneCountInString(kept) <= minTruncatedRunes
	}
	if err := quick.Check(f, quickConfig()); err != nil {
		t.Error(err)
	}
}

func TestComputeFitPolicies(t *testing.T) {
	m := HelveticaMeasurer{}
	text := "Senior Software Engineer at Example Corp"
	measured := m.Measure(text, 10)

	tests := []struct {
		name     string
		width    float64
		policy   FitPolicy
		warning  string
		wantSize float64
		wantText string
	}{
		{
			name:     "scaling disabled falls through to truncation",
			width:    measured / 1.2,
			policy:   FitPolicy{AllowTruncation: true},
			warning:  WarnTruncated,
			wantSize: 10,
		},
		{
			name:     "nothing allowed draws oversized text",
			width:    measured / 2,
			policy:   FitPolicy{},
			warning:  "",
			wantSize: 10,
			wantText: text,
		},
		{
			name:     "ratio above 1.5 is not scaled",
			width:    measured / 1.6,
			policy:   FitPolicy{AllowScaling: true},
			warning:  "",
			wantSize: 10,
			wantText: text,
		},
		{
			name:     "wrapping wins over truncation when enabled",
			width:    measured / 2,
			policy:   FitPolicy{AllowScaling: true, AllowWrapping: true, AllowTruncation: true},
			warning:  WarnWrapped,
			wantSize: 10,
			wantText: text,
		},
		{
			name:     "scaling wins over wrapping",
			width:    measured / 1.3,
			policy:   FitPolicy{AllowScaling: true, AllowWrapping: true},
			warning:  WarnScaled,
			wantSize: 10 / 1.3,
			wantText: text,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := TextRun{Width: tt.width, FontSize: 10}
			fit := ComputeFit(m, run, text, tt.policy)
			if fit.Warning != tt.warning {
				t.Errorf("Warning = %q, want %q", fit.Warning, tt.warning)
			}
			if !almostEqual(fit.FinalFontSize, tt.wantSize, 1e-9) {
				t.Errorf("FinalFontSize = %v, want %v", fit.FinalFontSize, tt.wantSize)
			}
			if tt.wantText != "" && fit.FinalText != tt.wantText {
				t.Errorf("FinalText = %q, want %q", fit.FinalText, tt.wantText)
			}
		})
	}
}

func TestComputeFitWrapping(t *testing.T) {
	m := HelveticaMeasurer{}
	text := "Led a team of five engineers building payment infrastructure"
	run := TextRun{Width: 100, FontSize: 10}

	fit := ComputeFit(m, run, text, FitPolicy{AllowWrapping: true})
	if fit.Warning != WarnWrapped {
		t.Fatalf("Warning = %q, want %q", fit.Warning, WarnWrapped)
	}
	if len(fit.Lines) < 2 {
		t.Fatalf("Lines = %q, want several lines", fit.Lines)
	}
	if strings.Join(fit.Lines, " ") != text {
		t.Errorf("joined lines = %q, want original words", strings.Join(fit.Lines, " "))
	}
	for _, line := range fit.Lines {
		if w := m.Measure(line, 10); w > run.Width+fitTolerance && strings.Contains(line, " ") {
			t.Errorf("line %q measures %v, wider than %v", line, w, run.Width)
		}
	}
}

func TestComputeFitTruncationKeepsThreeRunes(t *testing.T) {
	m := HelveticaMeasurer{}
	run := TextRun{Width: 1, FontSize: 10}
	fit := ComputeFit(m, run, "Vietnam", FitPolicy{AllowTruncation: true})
	if fit.FinalText != "Vie"+Ellipsis {
		t.Errorf("FinalText = %q, want %q", fit.FinalText, "Vie"+Ellipsis)
	}
}

func TestComputeFitTruncationKeepsTrailingSpace(t *testing.T) {
	m := HelveticaMeasurer{}
	// "Hanoi, ..." is 40.02pt at 10pt, "Hanoi, V..." is 46.69pt.
	run := TextRun{Width: 41, FontSize: 10}
	fit := ComputeFit(m, run, "Hanoi, Vietnam", FitPolicy{AllowTruncation: true})
	if fit.FinalText != "Hanoi, ..." {
		t.Errorf("FinalText = %q, want %q", fit.FinalText, "Hanoi, ...")
	}
}

func TestComputeFitEmptyText(t *testing.T) {
	fit := ComputeFit(HelveticaMeasurer{}, TextRun{Width: 50, FontSize: 10}, "", DefaultFitPolicy())
	if fit.FinalText != "" || fit.Warning != "" || fit.FinalFontSize != 10 {
		t.Errorf("fit = %+v, want empty text with no warning", fit)
	}
}

func TestComputeFitZeroWidthRun(t *testing.T) {
	fit := ComputeFit(HelveticaMeasurer{}, TextRun{Width: 0, FontSize: 10}, "abcdef", DefaultFitPolicy())
	if fit.Warning != WarnTruncated {
		t.Errorf("Warning = %q, want %q", fit.Warning, WarnTruncated)
	}
}
