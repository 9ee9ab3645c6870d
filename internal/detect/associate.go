package detect

import (
	"context"
	"math"
	"strings"

	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

// associator holds the read-only inputs shared by both passes on one page
type associator struct {
	ctx        context.Context
	geo        *pageGeometry
	structural []bool
	lineIndex  *spatialIndex
	wordIndex  *spatialIndex
	catalog    []Rule
	diag       *Diagnostics
}

func newAssociator(ctx context.Context, g *pageGeometry, catalog []Rule, diag *Diagnostics) *associator {
	return &associator{
		ctx:        ctx,
		geo:        g,
		structural: markStructural(g.lines, g.size.Width, g.footer),
		lineIndex:  newLineIndex(g.lines),
		wordIndex:  newWordIndex(g.words),
		catalog:    catalog,
		diag:       diag,
	}
}

// available reports whether line i may still be matched
func (a *associator) available(i int, st PageAssociationState) bool {
	return !a.structural[i] && !st.IsClaimed(i)
}

// findLine returns the index of the nearest available line that sits in the
// given direction from label and fits the width bounds, or -1
func (a *associator) findLine(label geometry.Rect, dir Direction, rule Rule, st PageAssociationState) int {
	midY := label.MidY()
	best := -1
	bestDist := math.Inf(1)

	consider := func(i int, gap float64) {
		if gap < bestDist {
			bestDist = gap
			best = i
		}
	}

	for _, i := range a.lineIndex.search(lineWindow(label)) {
		if !a.available(i, st) {
			continue
		}
		l := a.geo.lines[i]
		if !rule.acceptsWidth(l.Width) {
			continue
		}

		sameBand := math.Abs(midY-l.Y) < VerticalTol
		switch dir {
		case DirectionRight:
			if gap := l.X0 - label.X1; sameBand && inGap(gap) {
				consider(i, gap)
			}
		case DirectionLeft:
			if gap := label.X0 - l.X1; sameBand && inGap(gap) {
				consider(i, gap)
			}
		case DirectionAbove:
			vgap := label.Y0 - l.Y
			if vgap >= 0 && vgap <= AboveMaxGap && label.X1 > l.X0 && label.X0 < l.X1 {
				consider(i, vgap)
			}
		case DirectionEither:
			if !sameBand {
				continue
			}
			// Left is only considered when the right gap is out of range
			if gapR := l.X0 - label.X1; inGap(gapR) {
				consider(i, gapR)
			} else if gapL := label.X0 - l.X1; inGap(gapL) {
				consider(i, gapL)
			}
		}
	}
	return best
}

func inGap(gap float64) bool {
	return gap >= -2 && gap <= AdjacentGap
}

// buildBBox returns the display box covering label and line, with the
// underline part capped so long rules do not produce oversized boxes
func buildBBox(label geometry.Rect, l candidateLine, dir Direction) geometry.Rect {
	ulW := l.X1 - l.X0
	var r geometry.Rect

	switch dir {
	case DirectionAbove:
		r = geometry.Rect{X0: l.X0, Y0: l.Y - 6, X1: l.X1, Y1: math.Max(l.Y+2, label.Y1)}
		if ulW > MaxULWidth {
			mid := label.MidX()
			r.X0 = math.Max(r.X0, mid-MaxULWidth/2)
			r.X1 = math.Min(r.X1, mid+MaxULWidth/2)
		}
	case DirectionRight, DirectionEither:
		r = geometry.Rect{
			X0: math.Min(label.X0, l.X0),
			Y0: math.Min(l.Y-6, label.Y0),
			X1: math.Max(label.X1, l.X1),
			Y1: math.Max(l.Y+2, label.Y1),
		}
		if ulW > MaxULWidth {
			if label.X0 < l.X0 {
				r.X1 = math.Min(l.X1, label.X1+MaxULWidth)
			} else {
				r.X0 = math.Max(l.X0, label.X0-MaxULWidth)
			}
		}
	case DirectionLeft:
		r = geometry.Rect{
			X0: l.X0,
			Y0: math.Min(l.Y-6, label.Y0),
			X1: math.Max(label.X1, l.X1),
			Y1: math.Max(l.Y+2, label.Y1),
		}
		if ulW > MaxULWidth {
			r.X0 = math.Max(l.X0, label.X0-MaxULWidth)
		}
	default:
		r = geometry.Rect{X0: l.X0, Y0: l.Y - 6, X1: l.X1, Y1: l.Y + 2}
		if ulW > MaxULWidth {
			r.X1 = r.X0 + MaxULWidth
		}
	}

	if r.X1-r.X0 > AbsoluteCap {
		r.X1 = r.X0 + AbsoluteCap
	}
	return r
}

// lineContext joins, in page order, every word vertically aligned with l
func (a *associator) lineContext(l candidateLine) string {
	aligned := a.alignedWords(l)
	parts := make([]string, len(aligned))
	for i, w := range aligned {
		parts[i] = a.geo.words[w].Text
	}
	return strings.Join(parts, " ")
}

// alignedWords returns the indices of words whose midpoint lies within the
// vertical tolerance of l
func (a *associator) alignedWords(l candidateLine) []int {
	var out []int
	for _, i := range a.wordIndex.search(bandWindow(l.Y)) {
		if math.Abs(a.geo.words[i].Box.MidY()-l.Y) < VerticalTol {
			out = append(out, i)
		}
	}
	return out
}

// emit builds the entry for a label claiming line li. It returns false when
// the resulting box is degenerate.
func (a *associator) emit(label geometry.Rect, field string, li int, dir Direction,
	category Category, lineCtx string,
) (Entry, bool) {
	l := a.geo.lines[li]
	box := buildBBox(label, l, dir)
	if !box.Valid() {
		a.diag.MalformedGeometry++
		return Entry{}, false
	}
	ul := l.ulBox()
	e := Entry{
		Category:  category,
		BBox:      box,
		ULBox:     &ul,
		Field:     truncate(field, fieldMaxLen),
		Context:   truncate(lineCtx, contextMaxLen),
		Region:    RegionFor(box, a.geo.size.Height),
		LineIndex: li,
	}
	if category == CategoryDays {
		if n, ok := TimeLengthDays(lineCtx); ok {
			e.TimeLengthDays = n
		}
	}
	return e, true
}

// primaryPass matches each span against the catalog and claims the nearest
// qualifying line for the first rule that yields one
func (a *associator) primaryPass(in PageAssociationState) ([]Entry, PageAssociationState) {
	st := in.Clone()
	var entries []Entry

	for _, sp := range a.geo.spans {
		if a.ctx.Err() != nil {
			break
		}
		spanLower := strings.ToLower(sp.Text)
		lineLower := strings.ToLower(sp.LineText)
		matched, emitted := false, false

		for _, rule := range a.catalog {
			if !rule.Pattern.MatchString(spanLower) && !rule.Pattern.MatchString(lineLower) {
				continue
			}
			matched = true

			li := a.findLine(sp.Box, rule.Direction, rule, st)
			if li < 0 {
				continue
			}
			l := a.geo.lines[li]
			key := l.key()
			if st.hasSeen(key) {
				continue
			}
			st.markSeen(key)
			st.Claim(li)

			lineCtx := a.lineContext(l)
			if rule.Direction == DirectionAbove {
				lineCtx += " " + sp.LineText
			}
			if e, ok := a.emit(sp.Box, sp.Text, li, rule.Direction, rule.Category, lineCtx); ok {
				entries = append(entries, e)
			}
			emitted = true
			break
		}

		if matched && !emitted {
			a.diag.UnmatchedLabels++
		}
	}
	return entries, st
}
