package detect

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

func TestSplitWords(t *testing.T) {
	spans := []labelSpan{
		{Text: "Buyer Name", Box: geometry.Rect{X0: 0, Y0: 10, X1: 100, Y1: 20}, LineText: "Buyer Name"},
		{Text: "Date", Box: geometry.Rect{X0: 200, Y0: 10, X1: 220, Y1: 20}, LineText: "Date"},
	}

	words := splitWords(spans)
	require.Len(t, words, 3)

	assert.Equal(t, "Buyer", words[0].Text)
	assert.InDelta(t, 0, words[0].Box.X0, 1e-9)
	assert.InDelta(t, 50, words[0].Box.X1, 1e-9)

	assert.Equal(t, "Name", words[1].Text)
	assert.InDelta(t, 60, words[1].Box.X0, 1e-9)
	assert.InDelta(t, 100, words[1].Box.X1, 1e-9)
	assert.Equal(t, "Buyer Name", words[1].LineText)

	assert.Equal(t, spans[1].Box, words[2].Box, "single word keeps the span box")
}

func TestCandidateLines(t *testing.T) {
	seg := func(x0, y0, x1, y1, w float64) geometry.Segment {
		return geometry.Segment{P1: geometry.Point{X: x0, Y: y0}, P2: geometry.Point{X: x1, Y: y1}, StrokeWidth: w}
	}

	tests := []struct {
		name string
		seg  geometry.Segment
		keep bool
	}{
		{"plain underline", seg(100, 200, 200, 200, 0.5), true},
		{"reversed endpoints", seg(200, 200, 100, 200, 0.5), true},
		{"slight slope", seg(100, 200, 200, 201.5, 0.5), true},
		{"too steep", seg(100, 200, 200, 202, 0.5), false},
		{"too short", seg(100, 200, 115, 200, 0.5), false},
		{"too thick", seg(100, 200, 200, 200, 0.6), false},
		{"spans most of the page", seg(20, 200, 480, 200, 0.5), false},
		{"not finite", seg(100, math.NaN(), 200, 200, 0.5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := candidateLines([]geometry.Segment{tt.seg}, 612)
			if tt.keep {
				require.Len(t, lines, 1)
				assert.InDelta(t, 100, lines[0].X0, 1e-9)
				assert.InDelta(t, 200, lines[0].X1, 1e-9)
				assert.InDelta(t, 100, lines[0].Width, 1e-9)
			} else {
				assert.Empty(t, lines)
			}
		})
	}
}

func TestCandidateLine_Key(t *testing.T) {
	tests := []struct {
		y, x0 float64
		want  positionKey
	}{
		{200.4, 99.6, positionKey{Y: 200, X0: 100}},
		{200.5, 100.5, positionKey{Y: 200, X0: 100}},
		{201.5, 99.5, positionKey{Y: 202, X0: 100}},
	}
	for _, tt := range tests {
		l := candidateLine{X0: tt.x0, X1: tt.x0 + 50, Y: tt.y}
		if got := l.key(); got != tt.want {
			t.Errorf("key(%v, %v) = %v, want %v", tt.y, tt.x0, got, tt.want)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "Buyer's Initials", normalizeText("Buyer’s Initials"))
	assert.Equal(t, "file", normalizeText("ﬁle"))
	assert.Equal(t, "A-B", normalizeText("A–B"))
	assert.Equal(t, `"quoted"`, normalizeText("“quoted”"))
}

func TestSpatialIndex_SearchSorted(t *testing.T) {
	lines := []candidateLine{
		{X0: 300, X1: 350, Y: 100},
		{X0: 10, X1: 60, Y: 100},
		{X0: 100, X1: 150, Y: 500},
		{X0: 150, X1: 250, Y: 102},
	}
	ix := newLineIndex(lines)

	got := ix.search(geometry.Rect{X0: 0, Y0: 95, X1: 400, Y1: 105})
	assert.Equal(t, []int{0, 1, 3}, got)

	assert.Empty(t, ix.search(geometry.Rect{X0: 0, Y0: 200, X1: 400, Y1: 300}))
}
