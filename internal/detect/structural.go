package detect

import "sort"

// Structural grouping thresholds
const (
	tableEdgeTolerance = 3
	tableMinLines      = 4
	tableMaxAvgWidth   = 100.0
)

// markStructural flags candidate lines that belong to page furniture rather
// than fill-in blanks. The returned slice is indexed like lines.
func markStructural(lines []candidateLine, pageWidth float64, footerOnPage bool) []bool {
	structural := make([]bool, len(lines))

	// Footer rules under vendor attribution text
	if footerOnPage {
		for i, l := range lines {
			if l.Y > FooterBandY {
				structural[i] = true
			}
		}
	}

	// Table column borders: many short lines sharing a left edge. Long lines
	// at a shared indent are stacked signature rows and stay.
	for _, group := range leftEdgeGroups(lines) {
		if len(group) < tableMinLines {
			continue
		}
		var total float64
		for _, i := range group {
			total += lines[i].Width
		}
		if total/float64(len(group)) < tableMaxAvgWidth {
			for _, i := range group {
				structural[i] = true
			}
		}
	}

	// Section separators
	for i, l := range lines {
		if l.Width > pageWidth*separatorWidthRate {
			structural[i] = true
		}
	}

	return structural
}

// leftEdgeGroups buckets lines by rounded x0, then folds each bucket (in
// ascending key order) into the first earlier group whose key is within
// tolerance
func leftEdgeGroups(lines []candidateLine) [][]int {
	byKey := make(map[int][]int)
	for i, l := range lines {
		k := roundKey(l.X0)
		byKey[k] = append(byKey[k], i)
	}
	keys := make([]int, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	type group struct {
		key     int
		members []int
	}
	var groups []*group
	for _, k := range keys {
		placed := false
		for _, g := range groups {
			if abs(k-g.key) <= tableEdgeTolerance {
				g.members = append(g.members, byKey[k]...)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, &group{key: k, members: append([]int(nil), byKey[k]...)})
		}
	}

	out := make([][]int, len(groups))
	for i, g := range groups {
		out[i] = g.members
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
