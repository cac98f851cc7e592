package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"cv-editor/internal/logger"
)

// substituteFontPrefix is the resource name stem of the replacement font.
const substituteFontPrefix = "CvH"

// pageBuffer collects drawing operators for one page until Save.
type pageBuffer struct {
	ops      bytes.Buffer
	fontName string
}

// Document 可编辑的内存 PDF 文档
//
// A Document belongs to one edit cycle. Draw calls are buffered per page and
// written as a single appended content stream by Save.
type Document struct {
	ctx     *model.Context
	pages   map[int]*pageBuffer
	fontRef *types.IndirectRef
	boxes   map[int]*types.Rectangle
}

// LoadDocument parses pdfBytes with pdfcpu.
func LoadDocument(pdfBytes []byte) (*Document, error) {
	if len(pdfBytes) == 0 {
		return nil, NewPDFError(ErrPDFInvalid, "empty PDF data", nil)
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdfBytes), conf)
	if err != nil {
		return nil, NewPDFError(ErrPDFInvalid, "failed to load PDF", err)
	}
	return &Document{
		ctx:   ctx,
		pages: make(map[int]*pageBuffer),
		boxes: make(map[int]*types.Rectangle),
	}, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

func (d *Document) mediaBox(pageIndex int) (*types.Rectangle, error) {
	if box, ok := d.boxes[pageIndex]; ok {
		return box, nil
	}
	if pageIndex < 0 || pageIndex >= d.ctx.PageCount {
		return nil, NewPDFErrorWithPage(ErrPageOutOfRange,
			fmt.Sprintf("page index %d out of range (%d pages)", pageIndex, d.ctx.PageCount), pageIndex+1, nil)
	}
	_, _, attrs, err := d.ctx.PageDict(pageIndex+1, false)
	if err != nil {
		return nil, NewPDFErrorWithPage(ErrPDFInvalid, "failed to read page", pageIndex+1, err)
	}
	box := types.NewRectangle(0, 0, 612, 792)
	if attrs != nil && attrs.MediaBox != nil {
		box = attrs.MediaBox
	}
	d.boxes[pageIndex] = box
	return box, nil
}

// PageSize returns the MediaBox width and height of a page.
func (d *Document) PageSize(pageIndex int) (float64, float64, error) {
	box, err := d.mediaBox(pageIndex)
	if err != nil {
		return 0, 0, err
	}
	return box.Width(), box.Height(), nil
}

func (d *Document) buffer(pageIndex int) (*pageBuffer, *types.Rectangle, error) {
	box, err := d.mediaBox(pageIndex)
	if err != nil {
		return nil, nil, err
	}
	pb, ok := d.pages[pageIndex]
	if !ok {
		pb = &pageBuffer{}
		d.pages[pageIndex] = pb
	}
	return pb, box, nil
}

// FillRect paints a filled rectangle; x and y are relative to the MediaBox origin.
func (d *Document) FillRect(pageIndex int, x, y, w, h float64, fill RGB) error {
	pb, box, err := d.buffer(pageIndex)
	if err != nil {
		return err
	}
	r, g, b := fill.unit()
	fmt.Fprintf(&pb.ops, "q %s %s %s rg %s %s %s %s re f Q\n",
		fmtNum(r), fmtNum(g), fmtNum(b),
		fmtNum(x+box.LL.X), fmtNum(y+box.LL.Y), fmtNum(w), fmtNum(h))
	return nil
}

// DrawText draws text in the substitute font with its baseline at (x, y).
func (d *Document) DrawText(pageIndex int, text string, x, y, fontSize float64, fill RGB) error {
	pb, box, err := d.buffer(pageIndex)
	if err != nil {
		return err
	}
	if pb.fontName == "" {
		name, err := d.registerFont(pageIndex)
		if err != nil {
			return NewPDFErrorWithPage(ErrGenerateFailed, "failed to add substitute font", pageIndex+1, err)
		}
		pb.fontName = name
	}
	r, g, b := fill.unit()
	fmt.Fprintf(&pb.ops, "q %s %s %s rg BT /%s %s Tf %s %s Td <%X> Tj ET Q\n",
		fmtNum(r), fmtNum(g), fmtNum(b),
		pb.fontName, fmtNum(fontSize),
		fmtNum(x+box.LL.X), fmtNum(y+box.LL.Y),
		encodeWinAnsi(text))
	return nil
}

// registerFont adds the substitute font to the page's resources under a free name.
func (d *Document) registerFont(pageIndex int) (string, error) {
	pageDict, _, attrs, err := d.ctx.PageDict(pageIndex+1, true)
	if err != nil {
		return "", err
	}

	if d.fontRef == nil {
		font := types.NewDict()
		font.InsertName("Type", "Font")
		font.InsertName("Subtype", "Type1")
		font.InsertName("BaseFont", SubstituteFont)
		font.InsertName("Encoding", "WinAnsiEncoding")
		ref, err := d.ctx.IndRefForNewObject(font)
		if err != nil {
			return "", err
		}
		d.fontRef = ref
	}

	res, err := d.pageResources(pageDict, attrs)
	if err != nil {
		return "", err
	}

	var fonts types.Dict
	if o, found := res.Find("Font"); found {
		if fonts, err = d.ctx.DereferenceDict(o); err != nil {
			return "", err
		}
	}
	if fonts == nil {
		fonts = types.NewDict()
		res["Font"] = fonts
	}

	name := substituteFontPrefix
	for i := 1; ; i++ {
		if _, taken := fonts.Find(name); !taken {
			break
		}
		name = substituteFontPrefix + strconv.Itoa(i)
	}
	fonts.Insert(name, *d.fontRef)
	return name, nil
}

// pageResources returns a resource dictionary owned by the page, creating one
// from the inherited resources if the page has none of its own.
func (d *Document) pageResources(pageDict types.Dict, attrs *model.InheritedPageAttrs) (types.Dict, error) {
	if o, found := pageDict.Find("Resources"); found {
		res, err := d.ctx.DereferenceDict(o)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	res := types.NewDict()
	if attrs != nil && attrs.Resources != nil {
		for k, v := range attrs.Resources {
			res[k] = v
		}
	}
	pageDict["Resources"] = res
	return res, nil
}

// flush appends the buffered operators of every touched page.
func (d *Document) flush() error {
	for pageIndex, pb := range d.pages {
		if pb.ops.Len() == 0 {
			continue
		}
		pageDict, _, _, err := d.ctx.PageDict(pageIndex+1, false)
		if err != nil {
			return NewPDFErrorWithPage(ErrGenerateFailed, "failed to read page", pageIndex+1, err)
		}

		var contents types.Array
		if o, found := pageDict.Find("Contents"); found {
			switch t := o.(type) {
			case types.IndirectRef:
				deref, err := d.ctx.Dereference(t)
				if err != nil {
					return NewPDFErrorWithPage(ErrGenerateFailed, "failed to read page contents", pageIndex+1, err)
				}
				if arr, ok := deref.(types.Array); ok {
					contents = append(contents, arr...)
				} else {
					contents = append(contents, t)
				}
			case types.Array:
				contents = append(contents, t...)
			}
		}

		pre, err := d.newContentStream([]byte("q\n"))
		if err != nil {
			return NewPDFErrorWithPage(ErrGenerateFailed, "failed to create content stream", pageIndex+1, err)
		}
		post, err := d.newContentStream(append([]byte("Q\n"), pb.ops.Bytes()...))
		if err != nil {
			return NewPDFErrorWithPage(ErrGenerateFailed, "failed to create content stream", pageIndex+1, err)
		}

		wrapped := make(types.Array, 0, len(contents)+2)
		wrapped = append(wrapped, *pre)
		wrapped = append(wrapped, contents...)
		wrapped = append(wrapped, *post)
		pageDict["Contents"] = wrapped

		pb.ops.Reset()
	}
	return nil
}

func (d *Document) newContentStream(content []byte) (*types.IndirectRef, error) {
	sd, err := d.ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return d.ctx.IndRefForNewObject(*sd)
}

// Save writes the edited document.
func (d *Document) Save() ([]byte, error) {
	if err := d.flush(); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := api.WriteContext(d.ctx, &out); err != nil {
		return nil, NewPDFError(ErrGenerateFailed, "failed to write PDF", err)
	}
	logger.Debug("document saved", logger.Int("bytes", out.Len()), logger.Int("pages", d.ctx.PageCount))
	return out.Bytes(), nil
}

// fmtNum formats a PDF number with at most three decimals.
func fmtNum(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
