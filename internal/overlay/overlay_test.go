package overlay

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-entry-mapper/internal/manifest"
)

// writeSource writes a Letter PDF with one signature line per page
func writeSource(t *testing.T, pages int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.pdf")
	doc := gofpdf.New("P", "pt", "Letter", "")
	doc.SetFont("Helvetica", "", 10)
	for i := 0; i < pages; i++ {
		doc.AddPage()
		doc.SetLineWidth(0.5)
		doc.Line(100, 300, 220, 300)
		doc.Text(130, 312, "Signature")
	}
	require.NoError(t, doc.OutputFileAndClose(path))
	return path
}

func TestRadius(t *testing.T) {
	tests := []struct {
		name string
		box  manifest.BBox
		want float64
	}{
		{"tiny box uses minimum", manifest.BBox{X0: 10, Y0: 10, X1: 14, Y1: 12}, 6},
		{"wide box uses half width", manifest.BBox{X0: 100, Y0: 200, X1: 130, Y1: 210}, 15},
		{"tall box uses half height", manifest.BBox{X0: 0, Y0: 0, X1: 10, Y1: 40}, 20},
		{"long line is capped", manifest.BBox{X0: 50, Y0: 100, X1: 300, Y1: 110}, 25},
		{"inverted box", manifest.BBox{X0: 130, Y0: 200, X1: 100, Y1: 210}, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Radius(tt.box), 1e-9)
		})
	}
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, green, ColorFor("entry_signature"))
	assert.Equal(t, green, ColorFor("ENTRY_INITIAL"))
	assert.Equal(t, red, ColorFor("entry_date"))
	assert.Equal(t, yellow, ColorFor("entry_blank"))
	assert.Equal(t, blue, ColorFor("address_area"))
	assert.Equal(t, gray, ColorFor("entry_unknown"))
	assert.Equal(t, gray, ColorFor(""))
}

func TestColorFor_DistinctFamilies(t *testing.T) {
	families := []string{
		"entry_signature", "entry_date", "entry_blank", "entry_address", "entry_dollar",
		"entry_days", "entry_license", "entry_contact", "entry_percent", "entry_brokerage",
	}
	seen := make(map[Color]string)
	for _, f := range families {
		c := ColorFor(f)
		if c == gray || c == orange {
			t.Errorf("%s uses a reserved color %v", f, c)
		}
		if prev, dup := seen[c]; dup {
			t.Errorf("%s and %s share color %v", prev, f, c)
		}
		seen[c] = f
	}
}

func TestMarks(t *testing.T) {
	m := &manifest.Manifest{
		PageCount: 2,
		FieldMap: []manifest.FieldEntry{
			{Page: 1, Category: "entry_signature", BBox: manifest.BBox{X0: 100, Y0: 200, X1: 130, Y1: 210}},
			{Page: 2, Category: "entry_days", BBox: manifest.BBox{X0: 60, Y0: 300, X1: 80, Y1: 310}},
		},
		TimeLengthReview: []manifest.TimeLengthItem{
			{Page: 2, Days: 3, BBox: manifest.BBox{X0: 60, Y0: 300, X1: 80, Y1: 310}},
		},
	}

	marks := Marks(m)
	require.Len(t, marks, 3)
	assert.Equal(t, Mark{Page: 1, CX: 115, CY: 205, Radius: 15, Color: green}, marks[0])
	assert.Equal(t, teal, marks[1].Color)
	assert.Equal(t, orange, marks[2].Color, "day-count items are always orange")
	assert.Equal(t, 2, marks[2].Page)
}

func TestPageSize(t *testing.T) {
	sizes := map[int]map[string]map[string]float64{
		1: {"/MediaBox": {"w": 595.28, "h": 841.89}},
		2: {"/MediaBox": {"w": 0, "h": 0}},
	}
	w, h := pageSize(sizes, 1)
	assert.Equal(t, 595.28, w)
	assert.Equal(t, 841.89, h)

	w, h = pageSize(sizes, 2)
	assert.Equal(t, 612.0, w)
	assert.Equal(t, 792.0, h)

	w, h = pageSize(nil, 7)
	assert.Equal(t, 612.0, w)
	assert.Equal(t, 792.0, h)
}

func TestRender_MissingSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewRenderer(fs)
	m := &manifest.Manifest{PageCount: 1}

	_, err := r.Render("/definitely/not/here.pdf", m, "/out/Pkg/here.pdf")
	assert.Error(t, err)

	exists, _ := afero.Exists(fs, "/out/Pkg/here.pdf")
	assert.False(t, exists)
}

func TestRender(t *testing.T) {
	src := writeSource(t, 2)
	fs := afero.NewMemMapFs()
	m := &manifest.Manifest{
		File: "source.pdf", Folder: "Pkg", PageCount: 2,
		FieldMap: []manifest.FieldEntry{
			{Page: 1, Category: "entry_signature", BBox: manifest.BBox{X0: 100, Y0: 294, X1: 220, Y1: 314}},
			{Page: 2, Category: "entry_date", BBox: manifest.BBox{X0: 100, Y0: 194, X1: 155, Y1: 205}},
			{Page: 3, Category: "entry_blank", BBox: manifest.BBox{X0: 100, Y0: 194, X1: 155, Y1: 205}},
		},
		TimeLengthReview: []manifest.TimeLengthItem{
			{Page: 2, Days: 17, BBox: manifest.BBox{X0: 60, Y0: 300, X1: 80, Y1: 310}},
		},
	}

	drawn, err := NewRenderer(fs).Render(src, m, "/annotated/Pkg/source.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, drawn, "the page 3 mark has no page to land on")

	data, err := afero.ReadFile(fs, "/annotated/Pkg/source.pdf")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	ctx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	require.NoError(t, err)
	require.NoError(t, ctx.EnsurePageCount())
	assert.Equal(t, 2, ctx.PageCount)
}
