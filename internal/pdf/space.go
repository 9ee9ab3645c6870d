package pdf

import (
	"math"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

// pdfPoint and pdfRect are in PDF user space: bottom-left origin, y up
type pdfPoint struct {
	X, Y float64
}

type pdfRect struct {
	X0, Y0, X1, Y1 float64
}

type pdfSegment struct {
	P1, P2      pdfPoint
	StrokeWidth float64
}

// defaultMediaBox is US Letter
var defaultMediaBox = pdfRect{X0: 0, Y0: 0, X1: 612, Y1: 792}

// maxTreeDepth bounds Parent walks on malformed page trees
const maxTreeDepth = 32

// inheritedKey looks key up on the page dictionary, then on its ancestors
// in the page tree
func inheritedKey(v pdf.Value, key string) pdf.Value {
	for depth := 0; depth < maxTreeDepth && !v.IsNull(); depth++ {
		if r := v.Key(key); !r.IsNull() {
			return r
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

// rectFromValue reads a 4-number array, normalizing corner order
func rectFromValue(v pdf.Value) (pdfRect, bool) {
	if v.Kind() != pdf.Array || v.Len() != 4 {
		return pdfRect{}, false
	}
	var n [4]float64
	for i := range n {
		e := v.Index(i)
		if e.Kind() != pdf.Integer && e.Kind() != pdf.Real {
			return pdfRect{}, false
		}
		n[i] = e.Float64()
	}
	r := normalizeRect(pdfRect{X0: n[0], Y0: n[1], X1: n[2], Y1: n[3]})
	if r.X1-r.X0 <= 0 || r.Y1-r.Y0 <= 0 {
		return pdfRect{}, false
	}
	return r, true
}

func normalizeRect(r pdfRect) pdfRect {
	return pdfRect{
		X0: math.Min(r.X0, r.X1),
		Y0: math.Min(r.Y0, r.Y1),
		X1: math.Max(r.X0, r.X1),
		Y1: math.Max(r.Y0, r.Y1),
	}
}

// pageSpace converts PDF user space into top-left page coordinates
// relative to the media box origin.
type pageSpace struct {
	originX float64
	originY float64
	width   float64
	height  float64
}

func newPageSpace(media pdfRect) pageSpace {
	return pageSpace{
		originX: media.X0,
		originY: media.Y0,
		width:   media.X1 - media.X0,
		height:  media.Y1 - media.Y0,
	}
}

func (s pageSpace) point(p pdfPoint) geometry.Point {
	return geometry.Point{X: p.X - s.originX, Y: s.height - (p.Y - s.originY)}
}

// rect flips r; the top edge in PDF space becomes y0
func (s pageSpace) rect(r pdfRect) geometry.Rect {
	r = normalizeRect(r)
	tl := s.point(pdfPoint{X: r.X0, Y: r.Y1})
	br := s.point(pdfPoint{X: r.X1, Y: r.Y0})
	return geometry.Rect{X0: tl.X, Y0: tl.Y, X1: br.X, Y1: br.Y}
}

func (s pageSpace) segment(seg pdfSegment) geometry.Segment {
	return geometry.Segment{
		P1:          s.point(seg.P1),
		P2:          s.point(seg.P2),
		StrokeWidth: seg.StrokeWidth,
	}
}
