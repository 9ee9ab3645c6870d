package batch

import (
	"time"

	"github.com/a3tai/pdf-entry-mapper/internal/manifest"
)

// Summary is the run report written to _summary.yaml
type Summary struct {
	RunDate           string             `yaml:"run_date"`
	TotalAnalyzed     int                `yaml:"total_analyzed"`
	Errors            []SummaryError     `yaml:"errors"`
	TotalTestRefs     int                `yaml:"total_test_refs"`
	TotalTimeLengths  int                `yaml:"total_time_lengths"`
	TimeLengthDetails []TimeLengthDetail `yaml:"time_length_details"`
	CrossReference    *CrossReference    `yaml:"cross_reference,omitempty"`
	NeedsAttention    []AttentionItem    `yaml:"needs_attention"`
}

// SummaryError is a document that could not be analyzed
type SummaryError struct {
	File   string `yaml:"file"`
	Folder string `yaml:"folder"`
	Error  string `yaml:"error"`
}

// TimeLengthDetail is a day-count item with the document it came from
type TimeLengthDetail struct {
	File   string        `yaml:"file"`
	Folder string        `yaml:"folder"`
	Page   int           `yaml:"page"`
	Text   string        `yaml:"text"`
	Days   int           `yaml:"days"`
	BBox   manifest.BBox `yaml:"bbox"`
}

// AttentionItem lists the issues of a document that needs review
type AttentionItem struct {
	File   string           `yaml:"file"`
	Folder string           `yaml:"folder"`
	Issues []manifest.Issue `yaml:"issues"`
}

// BuildSummary aggregates a report. Results are expected in folder/file
// order, which Runner guarantees.
func BuildSummary(r *Report, now time.Time) *Summary {
	s := &Summary{
		RunDate:           now.Format("2006-01-02T15:04:05"),
		Errors:            []SummaryError{},
		TimeLengthDetails: []TimeLengthDetail{},
		NeedsAttention:    []AttentionItem{},
	}

	for _, res := range r.Results {
		if res.Err != nil {
			s.Errors = append(s.Errors, SummaryError{File: res.File, Folder: res.Folder, Error: res.Err.Error()})
			continue
		}
		m := res.Manifest
		s.TotalAnalyzed++
		s.TotalTestRefs += m.Summary.TestAddressReferences
		for _, tl := range m.TimeLengthReview {
			s.TimeLengthDetails = append(s.TimeLengthDetails, TimeLengthDetail{
				File: m.File, Folder: m.Folder, Page: tl.Page, Text: tl.Text, Days: tl.Days, BBox: tl.BBox,
			})
		}
		if m.Status == manifest.StatusNeedsAttention {
			s.NeedsAttention = append(s.NeedsAttention, AttentionItem{File: m.File, Folder: m.Folder, Issues: m.Issues})
		}
	}
	s.TotalTimeLengths = len(s.TimeLengthDetails)
	return s
}
