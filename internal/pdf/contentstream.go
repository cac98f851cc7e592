package pdf

import (
	"fmt"
	"math"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// matrix is a PDF affine transform [a b c d e f] applied to row vectors.
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

func translate(tx, ty float64) matrix {
	return matrix{1, 0, 0, 1, tx, ty}
}

// mul returns m followed by n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return x*m[0] + y*m[2] + m[4], x*m[1] + y*m[3] + m[5]
}

// yScale is the length of the transformed y axis.
func (m matrix) yScale() float64 {
	return math.Hypot(m[2], m[3])
}

// spaceGapEm is the TJ adjustment, in em, treated as an inter-word gap.
const spaceGapEm = 0.25

// fontInfo caches what the interpreter needs from a font dictionary.
type fontInfo struct {
	baseFont string
	enc      lpdf.TextEncoding
	twoByte  bool
	font     lpdf.Font
	dw       float64
	cidW     map[int]float64
}

func newFontInfo(resName string, v lpdf.Value) *fontInfo {
	f := lpdf.Font{V: v}
	fi := &fontInfo{
		baseFont: resName,
		font:     f,
		dw:       1000,
	}
	if bf := f.BaseFont(); bf != "" {
		fi.baseFont = bf
	}
	if i := strings.Index(fi.baseFont, "+"); i >= 0 {
		fi.baseFont = fi.baseFont[i+1:]
	}
	if v.IsNull() {
		fi.enc = nopEncoding{}
		return fi
	}
	fi.enc = f.Encoder()
	if fi.enc == nil {
		fi.enc = nopEncoding{}
	}
	if v.Key("Subtype").Name() == "Type0" {
		fi.twoByte = true
		desc := v.Key("DescendantFonts").Index(0)
		if dw := desc.Key("DW"); dw.Kind() == lpdf.Integer || dw.Kind() == lpdf.Real {
			fi.dw = dw.Float64()
		}
		fi.cidW = parseCIDWidths(desc.Key("W"))
	}
	return fi
}

// parseCIDWidths reads a CIDFont W array: either "c [w1 w2 ...]" or "cfirst clast w".
func parseCIDWidths(w lpdf.Value) map[int]float64 {
	out := make(map[int]float64)
	for i := 0; i < w.Len(); {
		first := int(w.Index(i).Int64())
		next := w.Index(i + 1)
		if next.Kind() == lpdf.Array {
			for j := 0; j < next.Len(); j++ {
				out[first+j] = next.Index(j).Float64()
			}
			i += 2
			continue
		}
		last := int(next.Int64())
		width := w.Index(i + 2).Float64()
		for c := first; c <= last && c-first < 65536; c++ {
			out[c] = width
		}
		i += 3
	}
	return out
}

// codes splits a raw string into character codes.
func (fi *fontInfo) codes(raw string) []int {
	if fi.twoByte {
		out := make([]int, 0, len(raw)/2)
		for i := 0; i+1 < len(raw); i += 2 {
			out = append(out, int(raw[i])<<8|int(raw[i+1]))
		}
		return out
	}
	out := make([]int, len(raw))
	for i := 0; i < len(raw); i++ {
		out[i] = int(raw[i])
	}
	return out
}

// width returns the glyph advance of code in thousandths of an em.
func (fi *fontInfo) width(code int) float64 {
	if fi.twoByte {
		if w, ok := fi.cidW[code]; ok {
			return w
		}
		return fi.dw
	}
	if w := fi.font.Width(code); w > 0 {
		return w
	}
	// Standard-14 fonts without a Widths array.
	return helveticaCodeWidth(byte(code))
}

type nopEncoding struct{}

func (nopEncoding) Decode(raw string) string { return raw }

// textState is the part of the graphics state that governs text showing.
type textState struct {
	font  *fontInfo
	size  float64
	tc    float64
	tw    float64
	th    float64
	tl    float64
	rise  float64
	mode  int
	tm    matrix
	tlm   matrix
	fill  RGB
	ctm   matrix
	fills bool
}

// textItem is one text-showing operator as it lands on the page, in device space.
type textItem struct {
	text      string
	trm       matrix // text rendering matrix at the start of the item
	endX      float64
	endY      float64
	fontName  string
	fill      RGB
	invisible bool
}

// pathSegment is one device-space path construction step.
type pathSegment struct {
	op     byte // 'M', 'L', 'C', 'Z'
	points [3][2]float64
}

// contentHandler receives what the interpreter sees on a page.
type contentHandler interface {
	text(item textItem)
	fill(path []pathSegment, c RGB, evenOdd bool)
}

// resourceScope resolves named fonts and XObjects, chaining to the enclosing scope.
type resourceScope struct {
	res    lpdf.Value
	parent *resourceScope
	fonts  map[string]*fontInfo
}

func (s *resourceScope) font(name string) *fontInfo {
	if fi, ok := s.fonts[name]; ok {
		return fi
	}
	v := s.res.Key("Font").Key(name)
	if v.IsNull() && s.parent != nil {
		return s.parent.font(name)
	}
	fi := newFontInfo(name, v)
	s.fonts[name] = fi
	return fi
}

func (s *resourceScope) xobject(name string) lpdf.Value {
	v := s.res.Key("XObject").Key(name)
	if v.IsNull() && s.parent != nil {
		return s.parent.xobject(name)
	}
	return v
}

// maxFormDepth bounds nested form XObject recursion.
const maxFormDepth = 8

// interpreter walks a page's content stream and reports text and filled paths.
type interpreter struct {
	handler contentHandler
	depth   int
}

// walkPage interprets the page content; view maps PDF user space to top-left page space.
func walkPage(page lpdf.Page, view matrix, h contentHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content stream: %v", r)
		}
	}()
	contents := page.V.Key("Contents")
	if page.V.IsNull() || contents.Kind() == lpdf.Null {
		return nil
	}
	scope := &resourceScope{res: page.Resources(), fonts: make(map[string]*fontInfo)}
	in := &interpreter{handler: h}
	in.run(contents, scope, view)
	return nil
}

func (in *interpreter) run(strm lpdf.Value, scope *resourceScope, ctm matrix) {
	g := textState{th: 1, ctm: ctm, tm: identity, tlm: identity, fill: Black}
	var stack []textState
	var path []pathSegment
	var cur [2]float64
	var start [2]float64

	showText := func(raw string, item *textItem) {
		if g.font == nil {
			g.font = newFontInfo("", lpdf.Value{})
		}
		for _, code := range g.font.codes(raw) {
			w0 := g.font.width(code) / 1000
			tx := w0*g.size + g.tc
			if !g.font.twoByte && code == 32 {
				tx += g.tw
			}
			tx *= g.th
			g.tm = translate(tx, 0).mul(g.tm)
		}
		item.text += g.font.enc.Decode(raw)
	}
	beginItem := func() *textItem {
		trm := matrix{g.size * g.th, 0, 0, g.size, 0, g.rise}.mul(g.tm).mul(g.ctm)
		name := ""
		if g.font != nil {
			name = g.font.baseFont
		}
		return &textItem{trm: trm, fontName: name, fill: g.fill, invisible: g.mode == 3 || g.mode == 7}
	}
	endItem := func(item *textItem) {
		end := matrix{g.size * g.th, 0, 0, g.size, 0, g.rise}.mul(g.tm).mul(g.ctm)
		item.endX, item.endY = end[4], end[5]
		if item.text != "" {
			in.handler.text(*item)
		}
	}
	nextLine := func() {
		g.tlm = translate(0, -g.tl).mul(g.tlm)
		g.tm = g.tlm
	}
	devicePoint := func(x, y float64) [2]float64 {
		dx, dy := g.ctm.apply(x, y)
		return [2]float64{dx, dy}
	}
	fillPath := func(evenOdd bool) {
		if len(path) > 0 {
			in.handler.fill(path, g.fill, evenOdd)
		}
		path = nil
	}

	lpdf.Interpret(strm, func(stk *lpdf.Stack, op string) {
		n := stk.Len()
		args := make([]lpdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		num := func(i int) float64 {
			if i < len(args) {
				return args[i].Float64()
			}
			return 0
		}

		switch op {
		case "q":
			stack = append(stack, g)
		case "Q":
			if len(stack) > 0 {
				g = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
		case "cm":
			if len(args) == 6 {
				g.ctm = matrix{num(0), num(1), num(2), num(3), num(4), num(5)}.mul(g.ctm)
			}

		case "g":
			g.fill = grayRGB(num(0))
		case "rg":
			g.fill = unitRGB(num(0), num(1), num(2))
		case "k":
			g.fill = cmykRGB(num(0), num(1), num(2), num(3))
		case "sc", "scn":
			switch len(args) {
			case 1:
				if args[0].Kind() != lpdf.Name {
					g.fill = grayRGB(num(0))
				}
			case 3:
				g.fill = unitRGB(num(0), num(1), num(2))
			case 4:
				g.fill = cmykRGB(num(0), num(1), num(2), num(3))
			}

		case "m":
			cur = devicePoint(num(0), num(1))
			start = cur
			path = append(path, pathSegment{op: 'M', points: [3][2]float64{cur}})
		case "l":
			cur = devicePoint(num(0), num(1))
			path = append(path, pathSegment{op: 'L', points: [3][2]float64{cur}})
		case "c":
			p1, p2, p3 := devicePoint(num(0), num(1)), devicePoint(num(2), num(3)), devicePoint(num(4), num(5))
			path = append(path, pathSegment{op: 'C', points: [3][2]float64{p1, p2, p3}})
			cur = p3
		case "v":
			p2, p3 := devicePoint(num(0), num(1)), devicePoint(num(2), num(3))
			path = append(path, pathSegment{op: 'C', points: [3][2]float64{cur, p2, p3}})
			cur = p3
		case "y":
			p1, p3 := devicePoint(num(0), num(1)), devicePoint(num(2), num(3))
			path = append(path, pathSegment{op: 'C', points: [3][2]float64{p1, p3, p3}})
			cur = p3
		case "h":
			path = append(path, pathSegment{op: 'Z'})
			cur = start
		case "re":
			x, y, w, h := num(0), num(1), num(2), num(3)
			p0 := devicePoint(x, y)
			path = append(path,
				pathSegment{op: 'M', points: [3][2]float64{p0}},
				pathSegment{op: 'L', points: [3][2]float64{devicePoint(x+w, y)}},
				pathSegment{op: 'L', points: [3][2]float64{devicePoint(x+w, y+h)}},
				pathSegment{op: 'L', points: [3][2]float64{devicePoint(x, y+h)}},
				pathSegment{op: 'Z'},
			)
			cur, start = p0, p0
		case "f", "F", "B", "b":
			fillPath(false)
		case "f*", "B*", "b*":
			fillPath(true)
		case "n", "S", "s":
			path = nil

		case "BT":
			g.tm = identity
			g.tlm = identity
		case "Tf":
			if len(args) == 2 {
				g.font = scope.font(args[0].Name())
				g.size = num(1)
			}
		case "Tc":
			g.tc = num(0)
		case "Tw":
			g.tw = num(0)
		case "Tz":
			g.th = num(0) / 100
		case "TL":
			g.tl = num(0)
		case "Ts":
			g.rise = num(0)
		case "Tr":
			g.mode = int(num(0))
		case "Td":
			g.tlm = translate(num(0), num(1)).mul(g.tlm)
			g.tm = g.tlm
		case "TD":
			g.tl = -num(1)
			g.tlm = translate(num(0), num(1)).mul(g.tlm)
			g.tm = g.tlm
		case "Tm":
			if len(args) == 6 {
				g.tlm = matrix{num(0), num(1), num(2), num(3), num(4), num(5)}
				g.tm = g.tlm
			}
		case "T*":
			nextLine()
		case "Tj":
			if len(args) == 1 {
				item := beginItem()
				showText(args[0].RawString(), item)
				endItem(item)
			}
		case "'":
			if len(args) == 1 {
				nextLine()
				item := beginItem()
				showText(args[0].RawString(), item)
				endItem(item)
			}
		case "\"":
			if len(args) == 3 {
				g.tw = num(0)
				g.tc = num(1)
				nextLine()
				item := beginItem()
				showText(args[2].RawString(), item)
				endItem(item)
			}
		case "TJ":
			if len(args) != 1 {
				return
			}
			arr := args[0]
			item := beginItem()
			gap := false
			for i := 0; i < arr.Len(); i++ {
				el := arr.Index(i)
				if el.Kind() == lpdf.String {
					if gap && item.text != "" && !strings.HasSuffix(item.text, " ") {
						item.text += " "
					}
					gap = false
					showText(el.RawString(), item)
					continue
				}
				adj := -el.Float64() / 1000
				if adj >= spaceGapEm {
					gap = true
				}
				g.tm = translate(adj*g.size*g.th, 0).mul(g.tm)
			}
			endItem(item)

		case "Do":
			if len(args) == 1 {
				in.form(scope.xobject(args[0].Name()), scope, g.ctm)
			}
		}
	})
}

// form interprets a form XObject with its own resources and matrix.
func (in *interpreter) form(xo lpdf.Value, parent *resourceScope, ctm matrix) {
	if xo.Kind() != lpdf.Stream || xo.Key("Subtype").Name() != "Form" || in.depth >= maxFormDepth {
		return
	}
	m := identity
	if mv := xo.Key("Matrix"); mv.Len() == 6 {
		m = matrix{mv.Index(0).Float64(), mv.Index(1).Float64(), mv.Index(2).Float64(),
			mv.Index(3).Float64(), mv.Index(4).Float64(), mv.Index(5).Float64()}
	}
	scope := parent
	if res := xo.Key("Resources"); !res.IsNull() {
		scope = &resourceScope{res: res, parent: parent, fonts: make(map[string]*fontInfo)}
	}
	in.depth++
	in.run(xo, scope, m.mul(ctm))
	in.depth--
}

func clampUnit(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}

func unitRGB(r, g, b float64) RGB {
	return RGB{clampUnit(r), clampUnit(g), clampUnit(b)}
}

func grayRGB(v float64) RGB {
	return unitRGB(v, v, v)
}

func cmykRGB(c, m, y, k float64) RGB {
	return unitRGB((1-c)*(1-k), (1-m)*(1-k), (1-y)*(1-k))
}

// pageBox returns the page's MediaBox as llx, lly, urx, ury, following inheritance.
func pageBox(page lpdf.Page) (float64, float64, float64, float64) {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
			x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
			return math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)
		}
	}
	// US Letter
	return 0, 0, 612, 792
}

// viewportMatrix maps PDF user space to top-left page space at scale 1.
func viewportMatrix(page lpdf.Page) (matrix, float64, float64) {
	llx, lly, urx, ury := pageBox(page)
	return matrix{1, 0, 0, -1, -llx, ury}, urx - llx, ury - lly
}
