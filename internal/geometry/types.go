// Package geometry defines the page primitives the detection core works on and
// the capability interfaces a document adapter must provide.
//
// Coordinates use a top-left origin with y growing downward, in PDF points.
package geometry

import (
	"fmt"
	"math"
)

// Point is a position on a page
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned box (x0,y0) top-left, (x1,y1) bottom-right
type Rect struct {
	X0 float64
	Y0 float64
	X1 float64
	Y1 float64
}

// Width returns the horizontal extent of the box
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent of the box
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// MidX returns the horizontal center
func (r Rect) MidX() float64 { return (r.X0 + r.X1) / 2 }

// MidY returns the vertical center
func (r Rect) MidY() float64 { return (r.Y0 + r.Y1) / 2 }

// Valid reports whether the box is finite and non-degenerate (x0<x1, y0<y1)
func (r Rect) Valid() bool {
	for _, v := range []float64{r.X0, r.Y0, r.X1, r.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.X0 < r.X1 && r.Y0 < r.Y1
}

// Union returns the smallest box covering both r and o
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// OverlapsX reports whether the horizontal spans of r and o intersect
func (r Rect) OverlapsX(o Rect) bool {
	return r.X1 > o.X0 && r.X0 < o.X1
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f, %.1f)", r.X0, r.Y0, r.X1, r.Y1)
}

// Size is the page extent in points
type Size struct {
	Width  float64
	Height float64
}

// Span is a run of text sharing one font and size within a line
type Span struct {
	Text string
	Box  Rect
}

// TextLine is a visual line of text made of one or more spans
type TextLine struct {
	Text  string
	Box   Rect
	Spans []Span
}

// Segment is a straight stroked path piece.
// StrokeWidth is the line width in effect when the path was stroked.
type Segment struct {
	P1          Point
	P2          Point
	StrokeWidth float64
}

// Widget is a native interactive form field annotation
type Widget struct {
	Name       string
	Label      string
	Value      string
	WidgetType string
	Box        Rect
}
