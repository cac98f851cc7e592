package pdf

import (
	"golang.org/x/text/encoding/charmap"
)

// SubstituteFont is the standard-14 font every replacement is drawn with.
const SubstituteFont = "Helvetica"

// Measurer measures the advance width of a string at a font size, in points.
type Measurer interface {
	Measure(text string, fontSize float64) float64
}

// HelveticaMeasurer measures with the Helvetica AFM advance widths after
// mapping the text to WinAnsi, exactly as the Document will encode it.
type HelveticaMeasurer struct{}

// Measure 计算文本宽度
func (HelveticaMeasurer) Measure(text string, fontSize float64) float64 {
	var units float64
	for _, r := range text {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		units += helveticaCodeWidth(b)
	}
	return units * fontSize / 1000
}

// encodeWinAnsi converts text to Windows-1252 bytes; unsupported runes become '?'.
func encodeWinAnsi(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// helveticaCodeWidth returns the advance of a WinAnsi code in 1/1000 em.
func helveticaCodeWidth(code byte) float64 {
	return helveticaWidth(charmap.Windows1252.DecodeByte(code))
}

// helveticaWidth returns the Helvetica advance of r in 1/1000 em.
func helveticaWidth(r rune) float64 {
	if w, ok := helveticaWidths[r]; ok {
		return w
	}
	if r < 0x20 {
		return 0
	}
	return defaultGlyphWidth
}

const defaultGlyphWidth = 556

// Adobe Helvetica AFM, WinAnsi repertoire.
var helveticaWidths = map[rune]float64{
	' ': 278, '!': 278, '"': 355, '#': 556, '$': 556, '%': 889, '&': 667, '\'': 191,
	'(': 333, ')': 333, '*': 389, '+': 584, ',': 278, '-': 333, '.': 278, '/': 278,
	'0': 556, '1': 556, '2': 556, '3': 556, '4': 556, '5': 556, '6': 556, '7': 556,
	'8': 556, '9': 556, ':': 278, ';': 278, '<': 584, '=': 584, '>': 584, '?': 556,
	'@': 1015, 'A': 667, 'B': 667, 'C': 722, 'D': 722, 'E': 667, 'F': 611, 'G': 778,
	'H': 722, 'I': 278, 'J': 500, 'K': 667, 'L': 556, 'M': 833, 'N': 722, 'O': 778,
	'P': 667, 'Q': 778, 'R': 722, 'S': 667, 'T': 611, 'U': 722, 'V': 667, 'W': 944,
	'X': 667, 'Y': 667, 'Z': 611, '[': 278, '\\': 278, ']': 278, '^': 469, '_': 556,
	'`': 333, 'a': 556, 'b': 556, 'c': 500, 'd': 556, 'e': 556, 'f': 278, 'g': 556,
	'h': 556, 'i': 222, 'j': 222, 'k': 500, 'l': 222, 'm': 833, 'n': 556, 'o': 556,
	'p': 556, 'q': 556, 'r': 333, 's': 500, 't': 278, 'u': 556, 'v': 500, 'w': 722,
	'x': 500, 'y': 500, 'z': 500, '{': 334, '|': 260, '}': 334, '~': 584,

	'€': 556, '‚': 222, 'ƒ': 556, '„': 333, '…': 1000, '†': 556, '‡': 556, 'ˆ': 333,
	'‰': 1000, 'Š': 667, '‹': 333, 'Œ': 1000, 'Ž': 611, '‘': 222, '’': 222, '“': 333,
	'”': 333, '•': 350, '–': 556, '—': 1000, '˜': 333, '™': 1000, 'š': 500, '›': 333,
	'œ': 944, 'ž': 500, 'Ÿ': 667,

	'\u00a0': 278, '¡': 333, '¢': 556, '£': 556, '¤': 556, '¥': 556, '¦': 260, '§': 556,
	'¨': 333, '©': 737, 'ª': 370, '«': 556, '¬': 584, '\u00ad': 333, '®': 737, '¯': 333,
	'°': 400, '±': 584, '²': 333, '³': 333, '´': 333, 'µ': 556, '¶': 537, '·': 278,
	'¸': 333, '¹': 333, 'º': 365, '»': 556, '¼': 834, '½': 834, '¾': 834, '¿': 611,
	'À': 667, 'Á': 667, 'Â': 667, 'Ã': 667, 'Ä': 667, 'Å': 667, 'Æ': 1000, 'Ç': 722,
	'È': 667, 'É': 667, 'Ê': 667, 'Ë': 667, 'Ì': 278, 'Í': 278, 'Î': 278, 'Ï': 278,
	'Ð': 722, 'Ñ': 722, 'Ò': 778, 'Ó': 778, 'Ô': 778, 'Õ': 778, 'Ö': 778, '×': 584,
	'Ø': 778, 'Ù': 722, 'Ú': 722, 'Û': 722, 'Ü': 722, 'Ý': 667, 'Þ': 667, 'ß': 611,
	'à': 556, 'á': 556, 'â': 556, 'ã': 556, 'ä': 556, 'å': 556, 'æ': 889, 'ç': 500,
	'è': 556, 'é': 556, 'ê': 556, 'ë': 556, 'ì': 278, 'í': 278, 'î': 278, 'ï': 278,
	'ð': 556, 'ñ': 556, 'ò': 556, 'ó': 556, 'ô': 556, 'õ': 556, 'ö': 556, '÷': 584,
	'ø': 611, 'ù': 556, 'ú': 556, 'û': 556, 'ü': 556, 'ý': 500, 'þ': 556, 'ÿ': 500,
}
