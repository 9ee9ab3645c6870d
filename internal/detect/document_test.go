package detect

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deterrors "github.com/a3tai/pdf-entry-mapper/internal/errors"
	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

type fakeDocument struct {
	pages   []*fakePage
	openErr map[int]error
	closed  bool
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) Page(_ context.Context, n int) (geometry.Page, error) {
	if err := d.openErr[n]; err != nil {
		return nil, err
	}
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range", n)
	}
	return d.pages[n-1], nil
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

func TestClassifyWidget(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  Category
	}{
		{"BuyerSignature", "", CategorySignature},
		{"Text12", "Seller Initial", CategorySignature},
		{"Date 1", "", CategoryDate},
		{"Date_1", "", CategoryBlank},
		{"Text3", "Closing date", CategoryDate},
		{"PropertyAddress", "", CategoryAddress},
		{"Zip", "", CategoryAddress},
		{"Agent_DRE", "", CategoryLicense},
		{"Notes", "Additional notes", CategoryBlank},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyWidget(tt.name, tt.label))
		})
	}
}

func TestAnalyzeWidgets(t *testing.T) {
	widgets := []geometry.Widget{
		{Name: "Buyer Signature", Value: "  ", Box: geometry.Rect{X0: 50, Y0: 600, X1: 250, Y1: 620}},
		{Name: "Inspection Date", Label: "Inspection contingency", Value: "within 17 days",
			Box: geometry.Rect{X0: 50, Y0: 300, X1: 150, Y1: 315}},
		{Name: "Broken", Box: geometry.Rect{X0: 50, Y0: 300, X1: 50, Y1: 315}},
	}

	fields, malformed := AnalyzeWidgets(widgets, 792)
	require.Len(t, fields, 2)
	assert.Equal(t, 1, malformed)

	assert.Equal(t, CategorySignature, fields[0].Category)
	assert.False(t, fields[0].Filled, "whitespace is not a value")
	assert.Equal(t, RegionLower, fields[0].Region)

	assert.Equal(t, CategoryDate, fields[1].Category)
	assert.True(t, fields[1].Filled)
	assert.Equal(t, 17, fields[1].TimeLengthDays)
}

func TestAnalyzeDocument(t *testing.T) {
	page1 := newFakePage().rule(100, 130, 200).text("Date", 135, 195, 155, 205)
	page1.widgets = []geometry.Widget{{Name: "Seller Signature", Box: geometry.Rect{X0: 50, Y0: 600, X1: 250, Y1: 620}}}

	page2 := newFakePage()
	page2.number = 2
	page2.size = geometry.Size{Width: 612.04, Height: 791.96}
	page2.text("Name", 60, 195, 90, 205).rule(100, 400, 200)

	doc := &fakeDocument{pages: []*fakePage{page1, page2}}
	analysis, err := quietDetector().AnalyzeDocument(context.Background(), doc, "rpa.pdf", "/docs/rpa.pdf")
	require.NoError(t, err)

	assert.Equal(t, "rpa.pdf", analysis.File)
	assert.Equal(t, 2, analysis.PageCount)
	require.Len(t, analysis.Pages, 2)
	assert.Empty(t, analysis.PageErrors)

	assert.Equal(t, 1, analysis.Pages[0].Page)
	require.Len(t, analysis.Pages[0].Widgets, 1)
	require.Len(t, analysis.Pages[0].Entries, 1)
	assert.Equal(t, CategoryDate, analysis.Pages[0].Entries[0].Category)

	assert.Equal(t, 2, analysis.Pages[1].Page)
	assert.Equal(t, 612.0, analysis.Pages[1].Width)
	assert.Equal(t, 792.0, analysis.Pages[1].Height)
}

func TestAnalyzeDocument_PageFailures(t *testing.T) {
	good := newFakePage().rule(100, 130, 200).text("Date", 135, 195, 155, 205)

	panicky := newFakePage()
	panicky.number = 2
	panicky.panicMsg = "content stream exploded"

	broken := newFakePage()
	broken.number = 3
	broken.drawErr = errors.New("bad operator")

	doc := &fakeDocument{
		pages:   []*fakePage{good, panicky, broken, good},
		openErr: map[int]error{4: errors.New("missing page object")},
	}

	analysis, err := quietDetector().AnalyzeDocument(context.Background(), doc, "f.pdf", "f.pdf")
	require.NoError(t, err)
	require.Len(t, analysis.Pages, 1)
	require.Len(t, analysis.PageErrors, 3)

	assert.Equal(t, deterrors.ErrorTypePagePanic, analysis.PageErrors[0].Type)
	assert.Equal(t, 2, analysis.PageErrors[0].PageNumber)
	assert.NotEmpty(t, analysis.PageErrors[0].StackTrace)

	assert.Equal(t, deterrors.ErrorTypePageParseFailure, analysis.PageErrors[1].Type)
	assert.Equal(t, 3, analysis.PageErrors[1].PageNumber)

	assert.Equal(t, deterrors.ErrorTypePageParseFailure, analysis.PageErrors[2].Type)
	assert.Equal(t, "f.pdf", analysis.PageErrors[2].FilePath)
	assert.True(t, analysis.PageErrors[2].Recoverable)
}

func TestAnalyzeDocument_Context(t *testing.T) {
	doc := &fakeDocument{pages: []*fakePage{newFakePage()}}

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()

		_, err := quietDetector().AnalyzeDocument(ctx, doc, "f.pdf", "f.pdf")
		var de *deterrors.DetectionError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, deterrors.ErrorTypeTimeout, de.Type)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("deadline inside a slow page", func(t *testing.T) {
		slow := newFakePage().rule(100, 130, 200).text("Date", 135, 195, 155, 205)
		slow.hold = make(chan struct{})
		defer close(slow.hold)
		doc := &fakeDocument{pages: []*fakePage{slow, newFakePage()}}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		start := time.Now()
		analysis, err := quietDetector().AnalyzeDocument(ctx, doc, "f.pdf", "f.pdf")
		elapsed := time.Since(start)

		assert.Nil(t, analysis)
		var de *deterrors.DetectionError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, deterrors.ErrorTypeTimeout, de.Type)
		assert.Equal(t, 1, de.PageNumber)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, elapsed, time.Second, "the slow page must not hold the document past its deadline")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := quietDetector().AnalyzeDocument(ctx, doc, "f.pdf", "f.pdf")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDetectPageContext_Cancelled(t *testing.T) {
	p := newFakePage().rule(100, 130, 200).text("Date", 135, 195, 155, 205)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := quietDetector().DetectPageContext(ctx, p)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)

	res, err = quietDetector().DetectPageContext(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, res.Entries, 1)
}
