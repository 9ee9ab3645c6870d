package detect

import (
	"context"
	"errors"
	"fmt"
	"math"

	deterrors "github.com/a3tai/pdf-entry-mapper/internal/errors"
	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

// PageAnalysis is the detection output for a single page
type PageAnalysis struct {
	Page            int
	Width           float64
	Height          float64
	Widgets         []WidgetField
	Entries         []Entry
	TestAddressRefs []TestAddressRef
	Diagnostics     Diagnostics
}

// DocumentAnalysis is the detection output for a whole document
type DocumentAnalysis struct {
	File      string
	Path      string
	PageCount int
	Pages     []PageAnalysis
	// PageErrors lists pages skipped because the adapter failed on them
	PageErrors []*deterrors.DetectionError
}

// AnalyzeDocument runs widget analysis and entry detection on every page of
// doc. Each page runs under ctx; when ctx ends mid-page the page is
// abandoned and the document fails with a timeout. A page the adapter
// cannot read (error or panic) is skipped and recorded; the rest of the
// document is still analyzed.
func (d *Detector) AnalyzeDocument(ctx context.Context, doc geometry.Document, file, path string) (*DocumentAnalysis, error) {
	analysis := &DocumentAnalysis{
		File:      file,
		Path:      path,
		PageCount: doc.PageCount(),
	}

	for n := 1; n <= analysis.PageCount; n++ {
		if err := ctx.Err(); err != nil {
			return nil, stopped(err, path, n, analysis.PageCount)
		}

		pa, err := d.analyzePageContext(ctx, doc, n)
		if err := ctx.Err(); err != nil {
			return nil, stopped(err, path, n, analysis.PageCount)
		}
		if err != nil {
			var de *deterrors.DetectionError
			if !errors.As(err, &de) {
				de = deterrors.Wrap(deterrors.ErrorTypePageParseFailure, err)
			}
			de.WithFile(path).WithPage(n)
			analysis.PageErrors = append(analysis.PageErrors, de)
			d.logger.Printf("skipping page %d of %s: %v", n, path, err)
			continue
		}
		analysis.Pages = append(analysis.Pages, *pa)
	}

	return analysis, nil
}

func stopped(err error, path string, page, count int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return deterrors.Wrap(deterrors.ErrorTypeTimeout, err).
			WithFile(path).WithPage(page).
			WithContext(fmt.Sprintf("stopped at page %d of %d", page, count))
	}
	return err
}

type pageOutcome struct {
	analysis *PageAnalysis
	err      error
}

// analyzePageContext returns as soon as ctx ends, leaving the page
// goroutine to finish on its own
func (d *Detector) analyzePageContext(ctx context.Context, doc geometry.Document, n int) (*PageAnalysis, error) {
	done := make(chan pageOutcome, 1)
	go func() {
		pa, err := d.analyzePage(ctx, doc, n)
		done <- pageOutcome{analysis: pa, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.analysis, out.err
	}
}

// analyzePage isolates one page so an adapter panic cannot escape
func (d *Detector) analyzePage(ctx context.Context, doc geometry.Document, n int) (pa *PageAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			pa = nil
			err = deterrors.FromPanic(r)
		}
	}()

	page, err := doc.Page(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	size := page.Size()
	pa = &PageAnalysis{
		Page:   n,
		Width:  math.Round(size.Width*10) / 10,
		Height: math.Round(size.Height*10) / 10,
	}

	widgets, err := page.Widgets()
	if err != nil {
		return nil, fmt.Errorf("failed to read widgets: %w", err)
	}
	var malformed int
	pa.Widgets, malformed = AnalyzeWidgets(widgets, size.Height)

	res, err := d.DetectPageContext(ctx, page)
	if err != nil {
		return nil, err
	}
	pa.Entries = res.Entries
	pa.TestAddressRefs = res.TestAddressRefs
	pa.Diagnostics = res.Diagnostics
	pa.Diagnostics.MalformedGeometry += malformed
	return pa, nil
}
