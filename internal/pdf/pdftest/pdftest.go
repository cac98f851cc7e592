// Package pdftest builds small, well-formed PDFs in memory for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// Page describes one page of a fixture document.
type Page struct {
	// MediaBox is llx lly urx ury; zero means US Letter.
	MediaBox [4]float64
	Content  string
	// Fonts maps resource names to standard-14 base fonts.
	Fonts map[string]string
	Forms map[string]Form
	// InheritBox puts the MediaBox on the Pages node instead of the page.
	InheritBox bool
}

// Form is a form XObject drawn with Do.
type Form struct {
	Matrix  [6]float64
	Content string
}

// Options controls how the document is written.
type Options struct {
	Compress bool
}

// Build writes a PDF 1.4 file with a classic xref table.
func Build(opts Options, pages ...Page) []byte {
	w := &writer{opts: opts}
	w.buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// 1 catalog, 2 pages tree, then everything else.
	w.reserve() // 1
	w.reserve() // 2

	fontRefs := make(map[string]int)
	var kids []string
	var inherited string
	for _, p := range pages {
		box := p.MediaBox
		if box == [4]float64{} {
			box = [4]float64{0, 0, 612, 792}
		}
		boxStr := fmt.Sprintf("[%s %s %s %s]", num(box[0]), num(box[1]), num(box[2]), num(box[3]))

		var fontEntries []string
		for _, name := range sortedKeys(p.Fonts) {
			base := p.Fonts[name]
			ref, ok := fontRefs[base]
			if !ok {
				ref = w.object(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding >>", base))
				fontRefs[base] = ref
			}
			fontEntries = append(fontEntries, fmt.Sprintf("/%s %d 0 R", name, ref))
		}

		var formEntries []string
		for _, name := range sortedKeys(p.Forms) {
			f := p.Forms[name]
			m := f.Matrix
			if m == [6]float64{} {
				m = [6]float64{1, 0, 0, 1, 0, 0}
			}
			dict := fmt.Sprintf("/Type /XObject /Subtype /Form /BBox %s /Matrix [%s %s %s %s %s %s]",
				boxStr, num(m[0]), num(m[1]), num(m[2]), num(m[3]), num(m[4]), num(m[5]))
			ref := w.stream(dict, f.Content)
			formEntries = append(formEntries, fmt.Sprintf("/%s %d 0 R", name, ref))
		}

		content := w.stream("", p.Content)

		res := "<< "
		if len(fontEntries) > 0 {
			res += "/Font << " + strings.Join(fontEntries, " ") + " >> "
		}
		if len(formEntries) > 0 {
			res += "/XObject << " + strings.Join(formEntries, " ") + " >> "
		}
		res += ">>"

		pageDict := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources %s /Contents %d 0 R", res, content)
		if p.InheritBox {
			inherited = boxStr
		} else {
			pageDict += " /MediaBox " + boxStr
		}
		pageDict += " >>"
		kids = append(kids, fmt.Sprintf("%d 0 R", w.object(pageDict)))
	}

	pagesDict := fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d", strings.Join(kids, " "), len(kids))
	if inherited != "" {
		pagesDict += " /MediaBox " + inherited
	}
	pagesDict += " >>"
	w.define(1, "<< /Type /Catalog /Pages 2 0 R >>")
	w.define(2, pagesDict)
	return w.finish()
}

// Single builds a one-page Letter document with /F1 bound to Helvetica.
func Single(content string) []byte {
	return Build(Options{}, Page{Content: content, Fonts: map[string]string{"F1": "Helvetica"}})
}

// Text returns a BT/ET block showing s with its baseline at PDF (x, y).
func Text(font string, size, x, y float64, s string) string {
	return fmt.Sprintf("BT /%s %s Tf %s %s Td (%s) Tj ET\n", font, num(size), num(x), num(y), Escape(s))
}

// Rect returns a filled rectangle in an RGB colour with 0..1 components.
func Rect(x, y, w, h, r, g, b float64) string {
	return fmt.Sprintf("q %s %s %s rg %s %s %s %s re f Q\n",
		num(r), num(g), num(b), num(x), num(y), num(w), num(h))
}

// Escape escapes a literal string body.
func Escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// Image returns the bytes of a page with no text layer: a grey rectangle only.
func Image() []byte {
	return Single(Rect(0, 0, 612, 792, 0.8, 0.8, 0.8))
}

type writer struct {
	opts    Options
	buf     bytes.Buffer
	offsets []int
	pending map[int]string
}

func (w *writer) reserve() int {
	w.offsets = append(w.offsets, -1)
	return len(w.offsets)
}

func (w *writer) object(body string) int {
	id := w.reserve()
	w.write(id, body)
	return id
}

func (w *writer) define(id int, body string) {
	if w.pending == nil {
		w.pending = make(map[int]string)
	}
	w.pending[id] = body
}

func (w *writer) write(id int, body string) {
	w.offsets[id-1] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

func (w *writer) stream(dict, content string) int {
	data := []byte(content)
	if w.opts.Compress {
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		zw.Write(data)
		zw.Close()
		data = z.Bytes()
		dict += " /Filter /FlateDecode"
	}
	id := w.reserve()
	w.offsets[id-1] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", id, strings.TrimSpace(dict), len(data))
	w.buf.Write(data)
	w.buf.WriteString("\nendstream\nendobj\n")
	return id
}

func (w *writer) finish() []byte {
	for _, id := range sortedInts(w.pending) {
		w.write(id, w.pending[id])
	}
	xref := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n0000000000 65535 f \n", len(w.offsets)+1)
	for _, off := range w.offsets {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(w.offsets)+1, xref)
	return w.buf.Bytes()
}

func num(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedInts(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
