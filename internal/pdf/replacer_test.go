package pdf

import (
	"errors"
	"math"
	"testing"
	"testing/quick"
)

type rectCall struct {
	page       int
	x, y, w, h float64
	fill       RGB
}

type textCall struct {
	page       int
	text       string
	x, y, size float64
	fill       RGB
}

// recordingCanvas records draw calls in order.
type recordingCanvas struct {
	width, height float64
	sizeErr       error
	rects         []rectCall
	texts         []textCall
	order         []string
}

func newRecordingCanvas() *recordingCanvas {
	return &recordingCanvas{width: 612, height: 792}
}

func (c *recordingCanvas) PageSize(pageIndex int) (float64, float64, error) {
	if c.sizeErr != nil {
		return 0, 0, c.sizeErr
	}
	return c.width, c.height, nil
}

func (c *recordingCanvas) FillRect(pageIndex int, x, y, w, h float64, fill RGB) error {
	c.rects = append(c.rects, rectCall{pageIndex, x, y, w, h, fill})
	c.order = append(c.order, "rect")
	return nil
}

func (c *recordingCanvas) DrawText(pageIndex int, text string, x, y, size float64, fill RGB) error {
	c.texts = append(c.texts, textCall{pageIndex, text, x, y, size, fill})
	c.order = append(c.order, "text")
	return nil
}

func hanoiRun() TextRun {
	return TextRun{
		PageIndex: 0,
		X:         50,
		Y:         100,
		Width:     hanoiWidth,
		Height:    10,
		FontSize:  10,
		Text:      "Hanoi, Vietnam",
	}
}

func TestReplaceDrawsRectThenText(t *testing.T) {
	c := newRecordingCanvas()
	fit, err := Replace(c, HelveticaMeasurer{}, hanoiRun(), "Hanoi, Vietnam", DefaultFitPolicy())
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if fit.Warning != "" {
		t.Errorf("Warning = %q, want none", fit.Warning)
	}
	if len(c.order) != 2 || c.order[0] != "rect" || c.order[1] != "text" {
		t.Fatalf("draw order = %v, want [rect text]", c.order)
	}

	text := c.texts[0]
	if text.text != "Hanoi, Vietnam" || text.x != 50 || text.y != 692 || text.size != 10 {
		t.Errorf("text call = %+v", text)
	}
	if text.fill != Black {
		t.Errorf("text colour = %v, want black", text.fill)
	}
	if c.rects[0].fill != White {
		t.Errorf("rect colour = %v, want white without a sample", c.rects[0].fill)
	}
}

func TestReplaceCoverRectGeometry(t *testing.T) {
	c := newRecordingCanvas()
	run := hanoiRun()
	if _, err := Replace(c, HelveticaMeasurer{}, run, "Hanoi", DefaultFitPolicy()); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	r := c.rects[0]

	// x: 2pt padding on both sides of the wider of old and new text.
	if !almostEqual(r.x, 48, 1e-9) || !almostEqual(r.w, hanoiWidth+4, 1e-9) {
		t.Errorf("rect x/w = %v/%v, want 48/%v", r.x, r.w, hanoiWidth+4)
	}
	// y: descent 2.5 + 0.5 below the baseline, ascent 8.5 + 0.5 above.
	wantBottom := 792 - (100 + 2.5 + 0.5)
	wantTop := 792 - (100 - 8.5 - 0.5)
	if !almostEqual(r.y, wantBottom, 1e-9) || !almostEqual(r.y+r.h, wantTop, 1e-9) {
		t.Errorf("rect y range = [%v, %v], want [%v, %v]", r.y, r.y+r.h, wantBottom, wantTop)
	}
}

func TestReplaceCoverUsesOriginalSizeWhenScaled(t *testing.T) {
	c := newRecordingCanvas()
	run := hanoiRun()
	fit, err := Replace(c, HelveticaMeasurer{}, run, "Hanoi, ThanhHoa", DefaultFitPolicy())
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if fit.Warning != WarnScaled || fit.FinalFontSize >= 10 {
		t.Fatalf("fit = %+v, want scaled below 10pt", fit)
	}
	r := c.rects[0]
	if !almostEqual(r.h, 0.85*10+0.25*10+1, 1e-9) {
		t.Errorf("rect height = %v, want it sized for the original 10pt glyphs", r.h)
	}
	if c.texts[0].size != fit.FinalFontSize {
		t.Errorf("text size = %v, want %v", c.texts[0].size, fit.FinalFontSize)
	}
}

func TestReplaceCoversWiderText(t *testing.T) {
	c := newRecordingCanvas()
	run := hanoiRun()
	newText := "Hanoi, Vietnam and the surrounding provinces"
	fit, err := Replace(c, HelveticaMeasurer{}, run, newText, FitPolicy{})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	want := HelveticaMeasurer{}.Measure(fit.FinalText, 10) + 4
	if !almostEqual(c.rects[0].w, want, 1e-9) {
		t.Errorf("rect width = %v, want %v", c.rects[0].w, want)
	}
}

func TestReplaceUsesBackgroundColor(t *testing.T) {
	c := newRecordingCanvas()
	run := hanoiRun()
	bg := RGB{230, 242, 255}
	run.BackgroundColor = &bg
	if _, err := Replace(c, HelveticaMeasurer{}, run, "Hanoi", DefaultFitPolicy()); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if c.rects[0].fill != bg {
		t.Errorf("rect colour = %v, want %v", c.rects[0].fill, bg)
	}
	if c.texts[0].fill != Black {
		t.Errorf("text colour = %v, want black", c.texts[0].fill)
	}
}

func TestReplaceEmptyTextOnlyErases(t *testing.T) {
	c := newRecordingCanvas()
	if _, err := Replace(c, HelveticaMeasurer{}, hanoiRun(), "", DefaultFitPolicy()); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if len(c.rects) != 1 || len(c.texts) != 0 {
		t.Errorf("got %d rects and %d texts, want 1 and 0", len(c.rects), len(c.texts))
	}
}

func TestReplaceWrappedLines(t *testing.T) {
	c := newRecordingCanvas()
	run := hanoiRun()
	fit, err := Replace(c, HelveticaMeasurer{}, run, "Hanoi Vietnam Thanh Hoa Province", FitPolicy{AllowWrapping: true})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if len(fit.Lines) != len(c.texts) || len(c.texts) < 2 {
		t.Fatalf("drew %d lines for %d wrapped lines", len(c.texts), len(fit.Lines))
	}
	for i, call := range c.texts {
		want := 792 - (100 + float64(i)*10*LineLeading)
		if !almostEqual(call.y, want, 1e-9) {
			t.Errorf("line %d baseline = %v, want %v", i, call.y, want)
		}
	}
	lastBaseline := 792 - (100 + float64(len(c.texts)-1)*10*LineLeading)
	if c.rects[0].y > lastBaseline-2.5 {
		t.Errorf("rect bottom %v does not cover the last line's descent", c.rects[0].y)
	}
}

func TestReplacePageSizeError(t *testing.T) {
	c := newRecordingCanvas()
	c.sizeErr = errors.New("no such page")
	if _, err := Replace(c, HelveticaMeasurer{}, hanoiRun(), "x", DefaultFitPolicy()); err == nil {
		t.Fatal("Replace() error = nil, want page size error")
	}
	if len(c.order) != 0 {
		t.Errorf("nothing should be drawn, got %v", c.order)
	}
}

// TestCanvasToPDFYProperty: every draw baseline equals page height minus the
// run's top-left y.
func TestCanvasToPDFYProperty(t *testing.T) {
	f := func(hSeed, ySeed uint16) bool {
		h := 100 + float64(hSeed%2000)
		y := math.Mod(float64(ySeed)*0.37, h)
		if CanvasToPDFY(h, y) != h-y {
			return false
		}

		c := &recordingCanvas{width: 612, height: h}
		run := TextRun{X: 10, Y: y, Width: 200, FontSize: 10}
		if _, err := Replace(c, HelveticaMeasurer{}, run, "2024", DefaultFitPolicy()); err != nil {
			return false
		}
		return len(c.texts) == 1 && c.texts[0].y == h-y
	}
	if err := quick.Check(f, quickConfig()); err != nil {
		t.Error(err)
	}
}
