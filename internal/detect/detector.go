// Package detect locates fillable entry spaces on contract pages by pairing
// text labels with nearby drawn lines.
//
// Detection runs per page in a fixed order: collect geometry, mark
// structural lines, run the label-first primary pass, then the fallback
// pass over lines still unclaimed. Nothing is shared between pages.
package detect

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

// Diagnostics counts the silent outcomes of a page scan. None of these are
// errors; they are kept for debug logging and tests.
type Diagnostics struct {
	MalformedGeometry        int
	UnmatchedLabels          int
	OrphanLines              int
	AmbiguousClassifications int
	CandidateLines           int
	StructuralLines          int
}

// Add accumulates o into d
func (d *Diagnostics) Add(o Diagnostics) {
	d.MalformedGeometry += o.MalformedGeometry
	d.UnmatchedLabels += o.UnmatchedLabels
	d.OrphanLines += o.OrphanLines
	d.AmbiguousClassifications += o.AmbiguousClassifications
	d.CandidateLines += o.CandidateLines
	d.StructuralLines += o.StructuralLines
}

// PageResult is the output of entry detection on one page
type PageResult struct {
	Entries         []Entry
	TestAddressRefs []TestAddressRef
	Diagnostics     Diagnostics
}

// Detector finds entry spaces on pages using an ordered label catalog
type Detector struct {
	catalog []Rule
	logger  *log.Logger
	debug   bool
}

// Option configures a Detector
type Option func(*Detector)

// WithCatalog replaces the default label rules
func WithCatalog(rules []Rule) Option {
	return func(d *Detector) {
		d.catalog = rules
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *log.Logger, debug bool) Option {
	return func(d *Detector) {
		d.logger = logger
		d.debug = debug
	}
}

// NewDetector creates a detector with the default catalog
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		catalog: DefaultCatalog(),
		logger:  log.New(os.Stderr, "[Detector] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectPage runs both association passes over one page. Entries are
// returned as underscore blanks, then primary matches, then fallback
// matches, each group in page order.
func (d *Detector) DetectPage(page geometry.Page) (*PageResult, error) {
	return d.DetectPageContext(context.Background(), page)
}

// DetectPageContext is DetectPage with cancellation. The passes stop at the
// next label or line once ctx is done and the context error is returned.
func (d *Detector) DetectPageContext(ctx context.Context, page geometry.Page) (*PageResult, error) {
	g, err := collectGeometry(page)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &PageResult{TestAddressRefs: g.testRefs}
	result.Diagnostics.MalformedGeometry = g.malformed
	result.Diagnostics.CandidateLines = len(g.lines)

	a := newAssociator(ctx, g, d.catalog, &result.Diagnostics)
	for _, s := range a.structural {
		if s {
			result.Diagnostics.StructuralLines++
		}
	}

	state := NewPageAssociationState()
	for _, b := range g.blanks {
		state.markSeen(positionKey{Y: roundKey(b.BBox.Y0), X0: roundKey(b.BBox.X0)})
	}
	result.Entries = append(result.Entries, g.blanks...)

	primary, state := a.primaryPass(state)
	result.Entries = append(result.Entries, primary...)

	fallback, _ := a.fallbackPass(state)
	result.Entries = append(result.Entries, fallback...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if d.debug {
		d.logger.Printf("page %d: %d entries (%d primary, %d fallback), diagnostics %+v",
			page.Number(), len(result.Entries), len(primary), len(fallback), result.Diagnostics)
	}
	return result, nil
}

// String describes the detector configuration
func (d *Detector) String() string {
	return fmt.Sprintf("Detector{rules: %d}", len(d.catalog))
}
