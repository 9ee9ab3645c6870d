package manifest

import (
	"fmt"
	"time"

	"github.com/a3tai/pdf-entry-mapper/internal/detect"
)

const (
	unnamedField   = "(unnamed)"
	valueMaxLen    = 50
	reviewTextLen  = 80
	testAddressTag = "123 Test St."
)

// Build assembles the manifest for one analyzed document. The version is
// InitialVersion; callers bump it when replacing an older manifest.
func Build(a *detect.DocumentAnalysis, folder string, now time.Time) *Manifest {
	m := &Manifest{
		Version:          InitialVersion,
		LastAnalyzed:     now.Format(time.RFC3339),
		File:             a.File,
		Folder:           folder,
		PageCount:        a.PageCount,
		Issues:           []Issue{},
		TimeLengthReview: []TimeLengthItem{},
		FieldMap:         []FieldEntry{},
		Summary:          Summary{EntryCategories: map[string]int{}},
	}

	var incomplete []IncompleteField
	for _, p := range a.Pages {
		for _, w := range p.Widgets {
			m.Summary.TotalFormWidgets++
			if w.Filled {
				m.Summary.FilledWidgets++
			} else {
				m.Summary.EmptyWidgets++
				incomplete = append(incomplete, IncompleteField{
					Page: p.Page,
					Name: w.Name,
					Type: string(w.Category),
					BBox: NewBBox(w.BBox),
				})
			}
		}

		m.Summary.TotalEntrySpaces += len(p.Entries)
		m.Summary.TestAddressReferences += len(p.TestAddressRefs)
		for _, e := range p.Entries {
			m.Summary.EntryCategories[string(e.Category)]++
			if e.TimeLengthDays > 0 {
				m.TimeLengthReview = append(m.TimeLengthReview, TimeLengthItem{
					Page: p.Page,
					Text: truncateRunes(e.Field, reviewTextLen),
					Days: e.TimeLengthDays,
					BBox: NewBBox(e.BBox),
				})
			}
		}
	}

	if m.Summary.EmptyWidgets == 0 && m.Summary.TestAddressReferences == 0 && len(a.PageErrors) == 0 {
		m.Status = StatusComplete
	} else {
		m.Status = StatusNeedsAttention
	}

	if n := m.Summary.TestAddressReferences; n > 0 {
		m.Issues = append(m.Issues, Issue{
			Type:   IssueTestData,
			Detail: fmt.Sprintf("%d references to %q found - must be removed", n, testAddressTag),
		})
	}
	if n := m.Summary.EmptyWidgets; n > 0 {
		m.Issues = append(m.Issues, Issue{
			Type:   IssueIncompleteFields,
			Detail: fmt.Sprintf("%d form widgets are unfilled", n),
			Fields: incomplete,
		})
	}
	if len(a.PageErrors) > 0 {
		pages := make([]int, len(a.PageErrors))
		for i, pe := range a.PageErrors {
			pages[i] = pe.PageNumber
		}
		m.Issues = append(m.Issues, Issue{
			Type:   IssueUnreadablePages,
			Detail: fmt.Sprintf("%d pages could not be analyzed", len(pages)),
			Pages:  pages,
		})
	}

	for _, p := range a.Pages {
		for _, w := range p.Widgets {
			m.FieldMap = append(m.FieldMap, widgetRow(p.Page, w))
		}
		for _, e := range p.Entries {
			m.FieldMap = append(m.FieldMap, entryRow(p.Page, e))
		}
	}

	return m
}

func widgetRow(page int, w detect.WidgetField) FieldEntry {
	name := w.Name
	if name == "" {
		name = w.Label
	}
	if name == "" {
		name = unnamedField
	}
	filled := w.Filled
	row := FieldEntry{
		Page:     page,
		Field:    name,
		Category: string(w.Category),
		BBox:     NewBBox(w.BBox),
		Region:   string(w.Region),
		Filled:   &filled,
	}
	if w.Value != "" {
		v := truncateRunes(w.Value, valueMaxLen)
		row.Value = &v
	}
	return row
}

func entryRow(page int, e detect.Entry) FieldEntry {
	row := FieldEntry{
		Page:           page,
		Field:          e.Field,
		Category:       string(e.Category),
		BBox:           NewBBox(e.BBox),
		Region:         string(e.Region),
		TimeLengthDays: e.TimeLengthDays,
		Context:        e.Context,
	}
	if e.ULBox != nil {
		ul := NewBBox(*e.ULBox)
		row.ULBox = &ul
	}
	return row
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
