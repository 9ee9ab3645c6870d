package manifest

import "strings"

// signatureCategories are the categories treated as "somewhere to sign".
// The non-prefixed names come from older manifests.
var signatureCategories = map[string]struct{}{
	"signature_area":  {},
	"signature":       {},
	"entry_signature": {},
	"entry_initial":   {},
}

var dateCategories = map[string]struct{}{
	"date":       {},
	"date_area":  {},
	"entry_date": {},
}

// DateLocations groups the date fields of a document with its day-count
// review items
type DateLocations struct {
	DateFields        []FieldEntry     `json:"date_fields" yaml:"date_fields"`
	TimeLengthOptions []TimeLengthItem `json:"time_length_options" yaml:"time_length_options"`
}

// FieldLocations filters the field map of folder/file. Category matching is
// case-insensitive and any signature alias selects the whole signature set.
// page 0 means every page. A missing manifest yields no fields.
func (s *Store) FieldLocations(folder, file, category string, page int) ([]FieldEntry, error) {
	m, err := s.loadOrEmpty(folder, file)
	if err != nil {
		return nil, err
	}
	return FilterFields(m.FieldMap, category, page), nil
}

// FilterFields applies the category and page filters of FieldLocations
func FilterFields(fields []FieldEntry, category string, page int) []FieldEntry {
	cat := strings.ToLower(category)
	out := make([]FieldEntry, 0, len(fields))
	for _, f := range fields {
		fc := strings.ToLower(f.Category)
		switch {
		case cat == "":
		case cat == "signature_area" || cat == "signature" || cat == "entry_signature":
			if _, ok := signatureCategories[fc]; !ok {
				continue
			}
		default:
			if fc != cat {
				continue
			}
		}
		if page != 0 && f.Page != page {
			continue
		}
		out = append(out, f)
	}
	return out
}

// SignatureLocations returns every signature and initial location
func (s *Store) SignatureLocations(folder, file string) ([]FieldEntry, error) {
	m, err := s.loadOrEmpty(folder, file)
	if err != nil {
		return nil, err
	}
	return byCategory(m.FieldMap, signatureCategories), nil
}

// DateLocations returns date fields and the day-count review list
func (s *Store) DateLocations(folder, file string) (*DateLocations, error) {
	m, err := s.loadOrEmpty(folder, file)
	if err != nil {
		return nil, err
	}
	review := m.TimeLengthReview
	if review == nil {
		review = []TimeLengthItem{}
	}
	return &DateLocations{
		DateFields:        byCategory(m.FieldMap, dateCategories),
		TimeLengthOptions: review,
	}, nil
}

func byCategory(fields []FieldEntry, set map[string]struct{}) []FieldEntry {
	out := make([]FieldEntry, 0)
	for _, f := range fields {
		if _, ok := set[strings.ToLower(f.Category)]; ok {
			out = append(out, f)
		}
	}
	return out
}

// loadOrEmpty treats a missing manifest as an empty one
func (s *Store) loadOrEmpty(folder, file string) (*Manifest, error) {
	m, err := s.Load(folder, file)
	if err == nil {
		return m, nil
	}
	if isNotFound(err) {
		return &Manifest{}, nil
	}
	return nil, err
}
