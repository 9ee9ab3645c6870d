package detect

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

// labelSpan is a span that may act as a label, with its line for context
type labelSpan struct {
	Text     string
	Box      geometry.Rect
	LineText string
	LineBox  geometry.Rect
}

// word is a single whitespace-delimited token with an estimated box
type word struct {
	Text     string
	Box      geometry.Rect
	LineText string
}

// candidateLine is a drawn stroke that could be a fill-in underline
type candidateLine struct {
	X0    float64
	X1    float64
	Y     float64
	Width float64
}

func (l candidateLine) key() positionKey {
	return positionKey{Y: roundKey(l.Y), X0: roundKey(l.X0)}
}

// ulBox is the box reported for the underline itself
func (l candidateLine) ulBox() geometry.Rect {
	return geometry.Rect{X0: l.X0, Y0: l.Y - underlineAbove, X1: l.X1, Y1: l.Y + underlineBelow}
}

// pageGeometry holds the per-page primitives both passes read
type pageGeometry struct {
	size     geometry.Size
	spans    []labelSpan
	words    []word
	lines    []candidateLine
	blanks   []Entry
	testRefs []TestAddressRef
	footer   bool
	// malformed counts primitives dropped for degenerate boxes
	malformed int
}

// Candidate line criteria
const (
	maxLineSlope       = 2.0
	minLineLength      = 15.0
	maxStrokeWidth     = 0.5
	maxLineWidthRatio  = 0.75
	separatorWidthRate = 0.60
)

// collectGeometry reads text and drawings from page and derives spans,
// words, candidate lines, underscore blanks and test-address references.
// Blank entries are emitted in line order; their position keys must be
// seeded into the association state before the passes run.
func collectGeometry(page geometry.Page) (*pageGeometry, error) {
	size := page.Size()
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("page %d has invalid size %.1fx%.1f", page.Number(), size.Width, size.Height)
	}

	textLines, err := page.TextLines()
	if err != nil {
		return nil, fmt.Errorf("failed to read text on page %d: %w", page.Number(), err)
	}
	segments, err := page.Drawings()
	if err != nil {
		return nil, fmt.Errorf("failed to read drawings on page %d: %w", page.Number(), err)
	}

	g := &pageGeometry{size: size}
	seenBlank := make(map[positionKey]struct{})

	for _, tl := range textLines {
		lineText := strings.TrimSpace(normalizeText(tl.Text))
		if lineText == "" {
			continue
		}
		if !tl.Box.Valid() {
			g.malformed++
			continue
		}

		if IsTestAddress(lineText) {
			g.testRefs = append(g.testRefs, TestAddressRef{
				Text:   truncate(lineText, contextMaxLen),
				BBox:   tl.Box,
				Region: RegionFor(tl.Box, size.Height),
			})
		}

		for _, sp := range tl.Spans {
			text := strings.TrimSpace(normalizeText(sp.Text))
			if text == "" {
				continue
			}
			if !sp.Box.Valid() {
				g.malformed++
				continue
			}
			g.spans = append(g.spans, labelSpan{
				Text:     text,
				Box:      sp.Box,
				LineText: lineText,
				LineBox:  tl.Box,
			})
		}

		// Typed underscores are the blank itself, no drawn line needed
		if underscorePattern.MatchString(lineText) {
			key := positionKey{Y: roundKey(tl.Box.Y0), X0: roundKey(tl.Box.X0)}
			if _, dup := seenBlank[key]; !dup {
				seenBlank[key] = struct{}{}
				box := tl.Box
				if box.Width() > underscoreCap {
					box.X1 = box.X0 + underscoreCap
				}
				g.blanks = append(g.blanks, Entry{
					Category:  CategoryBlank,
					BBox:      box,
					Field:     truncate(lineText, fieldMaxLen),
					Context:   truncate(lineText, contextMaxLen),
					Region:    RegionFor(box, size.Height),
					LineIndex: -1,
				})
			}
		}
	}

	for _, sp := range g.spans {
		if IsFooterText(sp.Text) {
			g.footer = true
			break
		}
	}

	g.words = splitWords(g.spans)
	g.lines = candidateLines(segments, size.Width)
	return g, nil
}

// splitWords breaks multi-word spans into words, placing each word by
// proportional character width across the span box
func splitWords(spans []labelSpan) []word {
	words := make([]word, 0, len(spans))
	for _, sp := range spans {
		parts := strings.Fields(sp.Text)
		if len(parts) <= 1 {
			words = append(words, word{Text: sp.Text, Box: sp.Box, LineText: sp.LineText})
			continue
		}

		totalChars := len(parts) - 1
		for _, p := range parts {
			totalChars += utf8.RuneCountInString(p)
		}
		if totalChars == 0 {
			continue
		}
		charW := sp.Box.Width() / float64(totalChars)
		x := sp.Box.X0
		for _, p := range parts {
			pw := float64(utf8.RuneCountInString(p)) * charW
			words = append(words, word{
				Text:     p,
				Box:      geometry.Rect{X0: x, Y0: sp.Box.Y0, X1: x + pw, Y1: sp.Box.Y1},
				LineText: sp.LineText,
			})
			x += pw + charW
		}
	}
	return words
}

// candidateLines keeps thin near-horizontal strokes that are long enough to
// write on but shorter than most of the page
func candidateLines(segments []geometry.Segment, pageWidth float64) []candidateLine {
	var lines []candidateLine
	for _, s := range segments {
		if !finite(s.P1.X, s.P1.Y, s.P2.X, s.P2.Y, s.StrokeWidth) {
			continue
		}
		dy := math.Abs(s.P1.Y - s.P2.Y)
		dx := math.Abs(s.P1.X - s.P2.X)
		if dy < maxLineSlope && dx > minLineLength &&
			s.StrokeWidth <= maxStrokeWidth && dx < pageWidth*maxLineWidthRatio {
			lines = append(lines, candidateLine{
				X0:    math.Min(s.P1.X, s.P2.X),
				X1:    math.Max(s.P1.X, s.P2.X),
				Y:     (s.P1.Y + s.P2.Y) / 2,
				Width: dx,
			})
		}
	}
	return lines
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
