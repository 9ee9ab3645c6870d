// Package overlay renders review copies of source PDFs with a colored circle
// drawn around every mapped entry space.
package overlay

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	"github.com/spf13/afero"

	"github.com/a3tai/pdf-entry-mapper/internal/manifest"
)

const (
	minRadius   = 6.0
	maxRadius   = 25.0
	strokeWidth = 1.5
)

// Color is an RGB stroke color, 0-255 per channel
type Color struct {
	R, G, B int
}

var (
	green  = Color{51, 199, 89}
	red    = Color{255, 59, 48}
	yellow = Color{255, 204, 0}
	blue   = Color{0, 122, 255}
	orange = Color{255, 140, 0}
	purple = Color{140, 0, 217}
	teal   = Color{48, 176, 199}
	brown  = Color{162, 132, 94}
	pink   = Color{255, 45, 85}
	indigo = Color{88, 86, 214}
	olive  = Color{128, 128, 0}
	gray   = Color{140, 140, 148}
)

var categoryColors = map[string]Color{
	"entry_signature": green,
	"entry_initial":   green,
	"signature_area":  green,
	"signature":       green,
	"entry_date":      red,
	"date_area":       red,
	"date":            red,
	"entry_blank":     yellow,
	"fillable_blanks": yellow,
	"fillable":        yellow,
	"entry_address":   blue,
	"address_area":    blue,
	"address":         blue,
	"entry_dollar":    purple,
	"entry_days":      teal,
	"entry_license":   brown,
	"entry_contact":   pink,
	"entry_percent":   indigo,
	"entry_brokerage": olive,
}

// ColorFor returns the stroke color for a field category
func ColorFor(category string) Color {
	if c, ok := categoryColors[strings.ToLower(category)]; ok {
		return c
	}
	return gray
}

// Mark is one circle to draw, in top-left page points
type Mark struct {
	Page   int
	CX, CY float64
	Radius float64
	Color  Color
}

// Marks lists the circles for m: one per field map row, then one orange
// circle per day-count review item
func Marks(m *manifest.Manifest) []Mark {
	marks := make([]Mark, 0, len(m.FieldMap)+len(m.TimeLengthReview))
	for _, f := range m.FieldMap {
		marks = append(marks, markFor(f.Page, f.BBox, ColorFor(f.Category)))
	}
	for _, tl := range m.TimeLengthReview {
		marks = append(marks, markFor(tl.Page, tl.BBox, orange))
	}
	return marks
}

func markFor(page int, b manifest.BBox, c Color) Mark {
	return Mark{
		Page:   page,
		CX:     (b.X0 + b.X1) / 2,
		CY:     (b.Y0 + b.Y1) / 2,
		Radius: Radius(b),
		Color:  c,
	}
}

// Radius is half the larger box side, clamped to [6, 25]
func Radius(b manifest.BBox) float64 {
	r := math.Max(math.Abs(b.Width()), math.Abs(b.Height())) / 2
	return math.Min(math.Max(r, minRadius), maxRadius)
}

// Renderer writes annotated copies through fs
type Renderer struct {
	fs afero.Fs
}

// NewRenderer creates a renderer writing to fs
func NewRenderer(fs afero.Fs) *Renderer {
	return &Renderer{fs: fs}
}

// Render imports every page of src, draws the marks of m over it and
// writes the result to dst. It returns the number of marks drawn; marks on
// pages the source does not have are skipped.
func (r *Renderer) Render(src string, m *manifest.Manifest, dst string) (drawn int, err error) {
	// gofpdi panics on files it cannot parse
	defer func() {
		if rec := recover(); rec != nil {
			drawn = 0
			err = fmt.Errorf("failed to import %s: %v", src, rec)
		}
	}()

	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	imp := gofpdi.NewImporter()

	byPage := make(map[int][]Mark)
	for _, mk := range Marks(m) {
		byPage[mk.Page] = append(byPage[mk.Page], mk)
	}

	for n := 1; n <= m.PageCount; n++ {
		tpl := imp.ImportPage(pdf, src, n, "/MediaBox")
		w, h := pageSize(imp.GetPageSizes(), n)

		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
		imp.UseImportedTemplate(pdf, tpl, 0, 0, w, h)

		pdf.SetLineWidth(strokeWidth)
		for _, mk := range byPage[n] {
			pdf.SetDrawColor(mk.Color.R, mk.Color.G, mk.Color.B)
			pdf.Circle(mk.CX, mk.CY, mk.Radius, "D")
			drawn++
		}
	}
	if pdf.Err() {
		return 0, fmt.Errorf("failed to render overlay: %w", pdf.Error())
	}

	if err := r.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create overlay directory: %w", err)
	}
	f, err := r.fs.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer f.Close()
	if err := pdf.Output(f); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return drawn, nil
}

// pageSize reads the imported media box, falling back to US Letter
func pageSize(sizes map[int]map[string]map[string]float64, n int) (float64, float64) {
	if dims, ok := sizes[n]; ok {
		if mb, ok := dims["/MediaBox"]; ok && mb["w"] > 0 && mb["h"] > 0 {
			return mb["w"], mb["h"]
		}
	}
	return 612, 792
}
