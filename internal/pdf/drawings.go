package pdf

import (
	"context"
	"fmt"
	"math"

	"github.com/ledongthuc/pdf"
)

// maxFormDepth bounds nested form XObject recursion
const maxFormDepth = 8

// matrix is a PDF transformation [a b c d e f]
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n, i.e. m applied first
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) pdfPoint {
	return pdfPoint{X: m[0]*x + m[2]*y + m[4], Y: m[1]*x + m[3]*y + m[5]}
}

// scale is the factor a unit length grows by under m
func (m matrix) scale() float64 {
	return math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
}

type graphicsState struct {
	ctm       matrix
	lineWidth float64
}

// pathWalker tracks path construction and painting for one content stream.
// Only straight segments built with m/l/h that are then stroked are kept;
// rectangles and curves move the current point but are not reported.
type pathWalker struct {
	state   graphicsState
	saved   []graphicsState
	pending []pdfSegment
	current pdfPoint
	start   pdfPoint
	open    bool
	out     *[]pdfSegment
}

func newPathWalker(initial graphicsState, out *[]pdfSegment) *pathWalker {
	return &pathWalker{state: initial, out: out}
}

// apply runs one operator with numeric operands. Operators with the wrong
// operand count are ignored.
func (w *pathWalker) apply(op string, args []float64) {
	switch op {
	case "q":
		w.saved = append(w.saved, w.state)
	case "Q":
		if n := len(w.saved); n > 0 {
			w.state = w.saved[n-1]
			w.saved = w.saved[:n-1]
		}
	case "cm":
		if len(args) == 6 {
			m := matrix{args[0], args[1], args[2], args[3], args[4], args[5]}
			w.state.ctm = m.mul(w.state.ctm)
		}
	case "w":
		if len(args) == 1 {
			w.state.lineWidth = args[0]
		}
	case "m":
		if len(args) == 2 {
			w.current = w.state.ctm.apply(args[0], args[1])
			w.start = w.current
			w.open = true
		}
	case "l":
		if len(args) == 2 && w.open {
			next := w.state.ctm.apply(args[0], args[1])
			w.pending = append(w.pending, pdfSegment{P1: w.current, P2: next})
			w.current = next
		}
	case "c":
		if len(args) == 6 {
			w.moveTo(args[4], args[5])
		}
	case "v", "y":
		if len(args) == 4 {
			w.moveTo(args[2], args[3])
		}
	case "re":
		if len(args) == 4 {
			w.current = w.state.ctm.apply(args[0], args[1])
			w.start = w.current
			w.open = true
		}
	case "h":
		w.closePath()
	case "S":
		w.paint(true)
	case "s":
		w.closePath()
		w.paint(true)
	case "B", "B*":
		w.paint(true)
	case "b", "b*":
		w.closePath()
		w.paint(true)
	case "f", "F", "f*", "n":
		w.paint(false)
	}
}

func (w *pathWalker) moveTo(x, y float64) {
	if w.open {
		w.current = w.state.ctm.apply(x, y)
	}
}

func (w *pathWalker) closePath() {
	if w.open && w.current != w.start {
		w.pending = append(w.pending, pdfSegment{P1: w.current, P2: w.start})
		w.current = w.start
	}
}

// paint ends the current path, keeping its segments when stroked
func (w *pathWalker) paint(stroke bool) {
	if stroke {
		width := w.state.lineWidth * w.state.ctm.scale()
		for _, s := range w.pending {
			s.StrokeWidth = width
			*w.out = append(*w.out, s)
		}
	}
	w.pending = w.pending[:0]
	w.open = false
}

// ctxCheckEvery is how many operators run between context checks
const ctxCheckEvery = 256

// stopWalk unwinds pdf.Interpret, which has no way to return early
type stopWalk struct {
	err error
}

// streamWalk is the state shared by a content stream and its form XObjects
type streamWalk struct {
	ctx context.Context
	ops int
	out *[]pdfSegment
}

func (sw *streamWalk) tick() {
	sw.ops++
	if sw.ops%ctxCheckEvery != 0 {
		return
	}
	if err := sw.ctx.Err(); err != nil {
		panic(stopWalk{err: err})
	}
}

// collectSegments walks a page content stream, following form XObjects, and
// returns stroked straight segments in PDF space. It returns the context
// error when ctx ends mid-stream.
func collectSegments(ctx context.Context, contents, resources pdf.Value) (segs []pdfSegment, err error) {
	defer func() {
		if r := recover(); r != nil {
			if stop, ok := r.(stopWalk); ok {
				segs, err = nil, stop.err
				return
			}
			segs, err = nil, fmt.Errorf("content stream panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sw := &streamWalk{ctx: ctx, out: &segs}
	initial := graphicsState{ctm: identity, lineWidth: 1}
	sw.walkStream(contents, resources, initial, 0)
	return segs, nil
}

func (sw *streamWalk) walkStream(strm, resources pdf.Value, initial graphicsState, depth int) {
	if strm.Kind() == pdf.Null {
		return
	}
	w := newPathWalker(initial, sw.out)

	pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
		sw.tick()
		n := stk.Len()
		vals := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			vals[i] = stk.Pop()
		}

		if op == "Do" {
			if len(vals) == 1 && depth < maxFormDepth {
				sw.walkForm(vals[0].Name(), resources, w.state, depth)
			}
			return
		}

		args, ok := numericOperands(vals)
		if !ok {
			return
		}
		w.apply(op, args)
	})
}

// walkForm descends into a form XObject drawn with Do
func (sw *streamWalk) walkForm(name string, resources pdf.Value, state graphicsState, depth int) {
	if name == "" {
		return
	}
	xobjects := resources.Key("XObject")
	if xobjects.Kind() != pdf.Dict {
		return
	}
	xobj := xobjects.Key(name)
	if xobj.Kind() != pdf.Stream || xobj.Key("Subtype").Name() != "Form" {
		return
	}

	formRes := xobj.Key("Resources")
	if formRes.Kind() == pdf.Null {
		formRes = resources
	}
	child := state
	if m, ok := matrixFromValue(xobj.Key("Matrix")); ok {
		child.ctm = m.mul(state.ctm)
	}
	sw.walkStream(xobj, formRes, child, depth+1)
}

func matrixFromValue(v pdf.Value) (matrix, bool) {
	if v.Kind() != pdf.Array || v.Len() != 6 {
		return matrix{}, false
	}
	var m matrix
	for i := range m {
		e := v.Index(i)
		if e.Kind() != pdf.Integer && e.Kind() != pdf.Real {
			return matrix{}, false
		}
		m[i] = e.Float64()
	}
	return m, true
}

func numericOperands(vals []pdf.Value) ([]float64, bool) {
	args := make([]float64, len(vals))
	for i, v := range vals {
		switch v.Kind() {
		case pdf.Integer, pdf.Real:
			args[i] = v.Float64()
		default:
			return nil, false
		}
	}
	return args, true
}
