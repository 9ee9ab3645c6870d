// Package manifest turns document analyses into the per-document YAML
// manifests consumed by downstream tooling, stores them, and answers
// location queries against them.
package manifest

import (
	"fmt"
	"math"

	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

// Manifest statuses
const (
	StatusComplete       = "complete"
	StatusNeedsAttention = "needs_attention"
)

// Issue types
const (
	IssueTestData         = "test_data"
	IssueIncompleteFields = "incomplete_fields"
	IssueUnreadablePages  = "unreadable_pages"
)

// Manifest is the stored description of one analyzed document
type Manifest struct {
	Version          string           `yaml:"version"`
	PreviousVersion  string           `yaml:"previous_version,omitempty"`
	LastAnalyzed     string           `yaml:"last_analyzed"`
	File             string           `yaml:"file"`
	Folder           string           `yaml:"folder"`
	PageCount        int              `yaml:"page_count"`
	Status           string           `yaml:"status"`
	Issues           []Issue          `yaml:"issues"`
	Summary          Summary          `yaml:"summary"`
	TimeLengthReview []TimeLengthItem `yaml:"time_length_review"`
	FieldMap         []FieldEntry     `yaml:"field_map"`
}

// Issue is a problem a reviewer must resolve before the document is usable
type Issue struct {
	Type   string            `yaml:"type"`
	Detail string            `yaml:"detail"`
	Fields []IncompleteField `yaml:"fields,omitempty"`
	Pages  []int             `yaml:"pages,omitempty"`
}

// IncompleteField is a native widget with no value
type IncompleteField struct {
	Page int    `yaml:"page"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	BBox BBox   `yaml:"bbox"`
}

// Summary holds document-level counts
type Summary struct {
	TotalFormWidgets      int            `yaml:"total_form_widgets"`
	FilledWidgets         int            `yaml:"filled_widgets"`
	EmptyWidgets          int            `yaml:"empty_widgets"`
	TotalEntrySpaces      int            `yaml:"total_entry_spaces"`
	EntryCategories       map[string]int `yaml:"entry_categories"`
	TestAddressReferences int            `yaml:"test_address_references"`
}

// TimeLengthItem is an entry with a day count that needs a human look
type TimeLengthItem struct {
	Page int    `yaml:"page"`
	Text string `yaml:"text"`
	Days int    `yaml:"days"`
	BBox BBox   `yaml:"bbox"`
}

// FieldEntry is one row of the field map. Widget rows carry Filled and
// Value; detected entry rows carry the optional context fields.
type FieldEntry struct {
	Page           int     `yaml:"page"`
	Field          string  `yaml:"field"`
	Category       string  `yaml:"category"`
	BBox           BBox    `yaml:"bbox"`
	Region         string  `yaml:"region"`
	Filled         *bool   `yaml:"filled,omitempty"`
	Value          *string `yaml:"value,omitempty"`
	TimeLengthDays int     `yaml:"time_length_days,omitempty"`
	Context        string  `yaml:"context,omitempty"`
	ULBox          *BBox   `yaml:"ul_bbox,omitempty"`
}

// String renders the row as one listing line:
// p{page} [{category}] {region}: {field} @ {bbox}
func (f FieldEntry) String() string {
	return fmt.Sprintf("p%d [%s] %s: %s @ %s", f.Page, f.Category, f.Region, f.Field, f.BBox)
}

// IsWidget reports whether the row came from a native form widget
func (f FieldEntry) IsWidget() bool {
	return f.Filled != nil
}

// BBox is a serialized box rounded to one decimal
type BBox struct {
	X0 float64 `yaml:"x0" json:"x0"`
	Y0 float64 `yaml:"y0" json:"y0"`
	X1 float64 `yaml:"x1" json:"x1"`
	Y1 float64 `yaml:"y1" json:"y1"`
}

// NewBBox rounds r for output
func NewBBox(r geometry.Rect) BBox {
	return BBox{X0: round1(r.X0), Y0: round1(r.Y0), X1: round1(r.X1), Y1: round1(r.Y1)}
}

// Rect converts back to geometry
func (b BBox) Rect() geometry.Rect {
	return geometry.Rect{X0: b.X0, Y0: b.Y0, X1: b.X1, Y1: b.Y1}
}

// Width returns x1 - x0
func (b BBox) Width() float64 { return b.X1 - b.X0 }

// Height returns y1 - y0
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

func (b BBox) String() string {
	return fmt.Sprintf("{x0: %.1f, y0: %.1f, x1: %.1f, y1: %.1f}", b.X0, b.Y0, b.X1, b.Y1)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
