// Package pdf adapts PDF files to the page capabilities used by entry
// detection. Text and drawings come from ledongthuc/pdf; form widgets come
// from pdfcpu, which handles field inheritance and annotation dictionaries
// more completely.
package pdf

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

// Opener validates and opens PDF files
type Opener struct {
	maxFileSize int64
	logger      *log.Logger
}

// NewOpener creates an opener that refuses files above maxFileSize bytes
func NewOpener(maxFileSize int64, logger *log.Logger) *Opener {
	if logger == nil {
		logger = log.New(os.Stderr, "[PDF] ", log.LstdFlags)
	}
	return &Opener{maxFileSize: maxFileSize, logger: logger}
}

// Open validates path and opens it for page access. The returned document
// must be closed by the caller.
func (o *Opener) Open(ctx context.Context, path string) (geometry.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if err := o.ValidateFileInfo(path, info); err != nil {
		return nil, err
	}

	f, reader, err := openReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	doc := &Document{
		path:   path,
		file:   f,
		reader: reader,
		logger: o.logger,
	}

	// Widgets are optional; a document pdfcpu cannot parse still has text
	// and drawings.
	if fc, err := readFormContext(path); err != nil {
		o.logger.Printf("form widgets unavailable for %s: %v", path, err)
	} else {
		doc.forms = fc
	}

	return doc, nil
}

// ValidateFileInfo checks the cheap preconditions for analyzing a file
func (o *Opener) ValidateFileInfo(path string, info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	if o.maxFileSize > 0 && info.Size() > o.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), o.maxFileSize)
	}
	return nil
}

// openReader guards against parser panics on truncated files
func openReader(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("parser panic: %v", rec)
		}
	}()
	return pdf.Open(path)
}

func readFormContext(path string) (*model.Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}
	return ctx, nil
}

// Document is an open PDF file
type Document struct {
	path   string
	file   *os.File
	reader *pdf.Reader
	forms  *model.Context
	logger *log.Logger
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return d.reader.NumPage()
}

// Page returns page number n (1-based)
func (d *Document) Page(ctx context.Context, n int) (geometry.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n < 1 || n > d.PageCount() {
		return nil, fmt.Errorf("invalid page number %d (document has %d pages)", n, d.PageCount())
	}

	p := d.reader.Page(n)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d has no page object", n)
	}

	media, ok := rectFromValue(inheritedKey(p.V, "MediaBox"))
	if !ok {
		// US Letter when no page in the tree carries a usable box
		media = defaultMediaBox
	}

	return &Page{
		ctx:    ctx,
		number: n,
		page:   p,
		space:  newPageSpace(media),
		doc:    d,
	}, nil
}

// Close releases the underlying file
func (d *Document) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// Page is one page of an open Document. Extraction stops when the context
// it was opened with ends.
type Page struct {
	ctx    context.Context
	number int
	page   pdf.Page
	space  pageSpace
	doc    *Document
}

// Number returns the 1-based page number
func (p *Page) Number() int { return p.number }

// Size returns the media box extent
func (p *Page) Size() geometry.Size {
	return geometry.Size{Width: p.space.width, Height: p.space.height}
}

// TextLines returns the page text grouped into lines and spans
func (p *Page) TextLines() (lines []geometry.TextLine, err error) {
	defer func() {
		if r := recover(); r != nil {
			lines, err = nil, fmt.Errorf("text extraction panic on page %d: %v", p.number, r)
		}
	}()

	if err := p.ctx.Err(); err != nil {
		return nil, err
	}
	content := p.page.Content()
	glyphs := make([]glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, glyph{
			Text:     t.S,
			Font:     t.Font,
			FontSize: t.FontSize,
			X:        t.X,
			Y:        t.Y,
			W:        t.W,
		})
	}
	return groupGlyphs(glyphs, p.space), nil
}

// Drawings returns the stroked straight segments on the page
func (p *Page) Drawings() ([]geometry.Segment, error) {
	segs, err := collectSegments(p.ctx, p.page.V.Key("Contents"), p.page.Resources())
	if err != nil {
		return nil, fmt.Errorf("drawing extraction failed on page %d: %w", p.number, err)
	}
	out := make([]geometry.Segment, len(segs))
	for i, s := range segs {
		out[i] = p.space.segment(s)
	}
	return out, nil
}

// Widgets returns the form widgets placed on the page
func (p *Page) Widgets() ([]geometry.Widget, error) {
	if p.doc.forms == nil {
		return nil, nil
	}
	raw, err := pageWidgets(p.doc.forms, p.number)
	if err != nil {
		return nil, fmt.Errorf("widget extraction failed on page %d: %w", p.number, err)
	}
	out := make([]geometry.Widget, len(raw))
	for i, w := range raw {
		out[i] = geometry.Widget{
			Name:       w.Name,
			Label:      w.Label,
			Value:      w.Value,
			WidgetType: w.FieldType,
			Box:        p.space.rect(w.Rect),
		}
	}
	return out, nil
}
