package pdf

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

// glyph is one positioned text run as reported by the content parser.
// Y is the baseline in PDF space.
type glyph struct {
	Text     string
	Font     string
	FontSize float64
	X        float64
	Y        float64
	W        float64
}

// Layout tolerances, as fractions of the font size
const (
	rowTolerance   = 0.3  // baselines closer than this share a row
	wordGapRatio   = 0.25 // gaps wider than this insert a space
	lineBreakRatio = 2.0  // gaps wider than this start a new line
	ascentRatio    = 0.8
	descentRatio   = 0.2
	defaultFont    = 10.0
)

func (g glyph) size() float64 {
	if g.FontSize <= 0 {
		return defaultFont
	}
	return g.FontSize
}

// width falls back to an average advance when the parser gave none
func (g glyph) width() float64 {
	if g.W > 0 {
		return g.W
	}
	return 0.5 * g.size() * float64(utf8.RuneCountInString(g.Text))
}

type row struct {
	baseline float64
	glyphs   []glyph
}

// groupGlyphs builds visual text lines from positioned glyphs. Glyphs on
// one baseline form a row; a row is cut into separate lines at wide gaps
// such as a fill-in line between two labels. Within a line, a change of
// font or size starts a new span.
func groupGlyphs(glyphs []glyph, space pageSpace) []geometry.TextLine {
	var usable []glyph
	for _, g := range glyphs {
		if g.Text == "" || math.IsNaN(g.X) || math.IsNaN(g.Y) {
			continue
		}
		usable = append(usable, g)
	}
	if len(usable) == 0 {
		return nil
	}

	// Top of page first
	sort.SliceStable(usable, func(i, j int) bool { return usable[i].Y > usable[j].Y })

	var rows []*row
	for _, g := range usable {
		var target *row
		for _, r := range rows {
			if math.Abs(r.baseline-g.Y) <= rowTolerance*g.size() {
				target = r
				break
			}
		}
		if target == nil {
			target = &row{baseline: g.Y}
			rows = append(rows, target)
		}
		target.glyphs = append(target.glyphs, g)
	}

	var lines []geometry.TextLine
	for _, r := range rows {
		sort.SliceStable(r.glyphs, func(i, j int) bool { return r.glyphs[i].X < r.glyphs[j].X })
		lines = append(lines, splitRow(r.glyphs, space)...)
	}
	return lines
}

type spanBuilder struct {
	text strings.Builder
	font string
	size float64
	box  pdfRect
	end  float64
}

func newSpanBuilder(g glyph) *spanBuilder {
	b := &spanBuilder{font: g.Font, size: g.size()}
	b.box = glyphRect(g)
	b.text.WriteString(g.Text)
	b.end = g.X + g.width()
	return b
}

func (b *spanBuilder) add(g glyph, space bool) {
	if space {
		b.text.WriteByte(' ')
	}
	b.text.WriteString(g.Text)
	r := glyphRect(g)
	b.box = pdfRect{
		X0: math.Min(b.box.X0, r.X0),
		Y0: math.Min(b.box.Y0, r.Y0),
		X1: math.Max(b.box.X1, r.X1),
		Y1: math.Max(b.box.Y1, r.Y1),
	}
	b.end = math.Max(b.end, g.X+g.width())
}

func glyphRect(g glyph) pdfRect {
	return pdfRect{
		X0: g.X,
		Y0: g.Y - descentRatio*g.size(),
		X1: g.X + g.width(),
		Y1: g.Y + ascentRatio*g.size(),
	}
}

func splitRow(glyphs []glyph, space pageSpace) []geometry.TextLine {
	var lines []geometry.TextLine
	var spans []*spanBuilder
	var cur *spanBuilder

	flush := func() {
		if cur != nil {
			spans = append(spans, cur)
			cur = nil
		}
		if len(spans) == 0 {
			return
		}
		if line, ok := buildLine(spans, space); ok {
			lines = append(lines, line)
		}
		spans = nil
	}

	for _, g := range glyphs {
		if cur == nil {
			cur = newSpanBuilder(g)
			continue
		}
		gap := g.X - cur.end
		switch {
		case gap > lineBreakRatio*g.size():
			flush()
			cur = newSpanBuilder(g)
		case g.Font != cur.font || math.Abs(g.size()-cur.size) > 0.1:
			spans = append(spans, cur)
			cur = newSpanBuilder(g)
		default:
			needSpace := gap > wordGapRatio*g.size() &&
				!strings.HasSuffix(cur.text.String(), " ") && !strings.HasPrefix(g.Text, " ")
			cur.add(g, needSpace)
		}
	}
	flush()
	return lines
}

func buildLine(spans []*spanBuilder, space pageSpace) (geometry.TextLine, bool) {
	var line geometry.TextLine
	var parts []string
	first := true
	for _, b := range spans {
		text := strings.TrimSpace(b.text.String())
		if text == "" {
			continue
		}
		box := space.rect(b.box)
		line.Spans = append(line.Spans, geometry.Span{Text: text, Box: box})
		parts = append(parts, text)
		if first {
			line.Box = box
			first = false
		} else {
			line.Box = line.Box.Union(box)
		}
	}
	if first {
		return geometry.TextLine{}, false
	}
	line.Text = strings.Join(parts, " ")
	return line, true
}
