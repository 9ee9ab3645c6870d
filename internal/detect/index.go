package detect

import (
	"math"
	"sort"

	"github.com/tidwall/rtree"

	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

// spatialIndex finds primitives whose boxes intersect a query window.
// Results come back in insertion order so tie-breaking stays deterministic.
type spatialIndex struct {
	tree rtree.RTreeG[int]
}

func (ix *spatialIndex) insert(i int, r geometry.Rect) {
	ix.tree.Insert([2]float64{r.X0, r.Y0}, [2]float64{r.X1, r.Y1}, i)
}

// search returns the sorted indices of items intersecting r
func (ix *spatialIndex) search(r geometry.Rect) []int {
	var hits []int
	ix.tree.Search([2]float64{r.X0, r.Y0}, [2]float64{r.X1, r.Y1},
		func(_, _ [2]float64, i int) bool {
			hits = append(hits, i)
			return true
		})
	sort.Ints(hits)
	return hits
}

func newLineIndex(lines []candidateLine) *spatialIndex {
	ix := &spatialIndex{}
	for i, l := range lines {
		ix.insert(i, geometry.Rect{X0: l.X0, Y0: l.Y, X1: l.X1, Y1: l.Y})
	}
	return ix
}

func newWordIndex(words []word) *spatialIndex {
	ix := &spatialIndex{}
	for i, w := range words {
		ix.insert(i, w.Box)
	}
	return ix
}

// lineWindow is a superset of every placement a rule direction accepts
// around a label box
func lineWindow(label geometry.Rect) geometry.Rect {
	const slack = 1.0
	return geometry.Rect{
		X0: label.X0 - AdjacentGap - 2 - slack,
		Y0: label.Y0 - AboveMaxGap - slack,
		X1: label.X1 + AdjacentGap + 2 + slack,
		Y1: label.Y1 + VerticalTol + slack,
	}
}

// bandWindow covers every word whose vertical midpoint may lie within
// VerticalTol of y, anywhere across the page. A box always contains its
// midpoint, so intersecting the band is a superset of the test.
func bandWindow(y float64) geometry.Rect {
	return geometry.Rect{
		X0: -math.MaxFloat64,
		Y0: y - VerticalTol,
		X1: math.MaxFloat64,
		Y1: y + VerticalTol,
	}
}
