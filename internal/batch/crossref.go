package batch

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/a3tai/pdf-entry-mapper/internal/versions"
)

// brokerageSections are read in this order; a code listed in more than
// one section keeps the last listing
var brokerageSections = []string{"sale_listing", "sale_buyer", "lease_listing", "lease_buyer"}

var (
	timestampSuffix = regexp.MustCompile(`_ts\d+$`)
	significantWord = regexp.MustCompile(`[\p{L}\p{N}_]{4,}`)
)

// CrossReference compares a brokerage's required documents with the PDFs
// present in the packages
type CrossReference struct {
	Error               string             `yaml:"error,omitempty"`
	TotalRequired       int                `yaml:"total_required"`
	Matched             int                `yaml:"matched"`
	Unmatched           int                `yaml:"unmatched"`
	Matches             []BrokerageMatch   `yaml:"matches"`
	MissingFromPackages []MissingBrokerDoc `yaml:"missing_from_packages"`
}

// BrokerageMatch pairs a required document with the PDF that covers it
type BrokerageMatch struct {
	Code          string `yaml:"code"`
	BrokerageName string `yaml:"brokerage_name"`
	PDFFile       string `yaml:"pdf_file"`
	Folder        string `yaml:"folder"`
	Section       string `yaml:"section"`
}

// MissingBrokerDoc is a required document no package PDF matches
type MissingBrokerDoc struct {
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	Section  string `yaml:"section"`
	Required string `yaml:"required"`
	Phase    string `yaml:"phase"`
}

type brokerageDoc struct {
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	Required string `yaml:"required"`
	Phase    string `yaml:"phase"`
}

type requiredDoc struct {
	brokerageDoc
	section string
}

// CrossReferenceBrokerage reads the requirements file at path and matches
// each required document against docs. A missing file is reported in the
// result, not as an error.
func CrossReferenceBrokerage(fs afero.Fs, path string, docs []versions.Document) (*CrossReference, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if exists, _ := afero.Exists(fs, path); !exists {
			return &CrossReference{Error: filepath.Base(path) + " not found"}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var sections map[string]yaml.Node
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var order []string
	required := make(map[string]requiredDoc)
	for _, section := range brokerageSections {
		node, ok := sections[section]
		if !ok {
			continue
		}
		var listed []brokerageDoc
		if err := node.Decode(&listed); err != nil {
			return nil, fmt.Errorf("failed to parse %s section %s: %w", path, section, err)
		}
		for _, d := range listed {
			if d.Required == "" {
				d.Required = "always"
			}
			if _, seen := required[d.Code]; !seen {
				order = append(order, d.Code)
			}
			required[d.Code] = requiredDoc{brokerageDoc: d, section: section}
		}
	}

	candidates := packagePDFs(docs)
	x := &CrossReference{
		TotalRequired:       len(order),
		Matches:             []BrokerageMatch{},
		MissingFromPackages: []MissingBrokerDoc{},
	}
	for _, code := range order {
		req := required[code]
		if c, ok := findPDF(strings.ToLower(req.Name), candidates); ok {
			x.Matches = append(x.Matches, BrokerageMatch{
				Code: code, BrokerageName: req.Name, PDFFile: c.doc.Name, Folder: c.doc.Folder, Section: req.section,
			})
			continue
		}
		x.MissingFromPackages = append(x.MissingFromPackages, MissingBrokerDoc{
			Code: code, Name: req.Name, Section: req.section, Required: req.Required, Phase: req.Phase,
		})
	}
	x.Matched = len(x.Matches)
	x.Unmatched = len(x.MissingFromPackages)
	return x, nil
}

type packagePDF struct {
	key string
	doc versions.Document
}

// packagePDFs normalizes file names for matching: timestamp suffix and
// extension dropped, underscores as spaces, lower case. The first document
// in folder/name order wins a shared name.
func packagePDFs(docs []versions.Document) []packagePDF {
	sorted := append([]versions.Document(nil), docs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key() < sorted[j].Key() })

	seen := make(map[string]bool)
	var out []packagePDF
	for _, d := range sorted {
		stem := strings.TrimSuffix(d.Name, filepath.Ext(d.Name))
		stem = timestampSuffix.ReplaceAllString(stem, "")
		key := strings.ToLower(strings.ReplaceAll(stem, "_", " "))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, packagePDF{key: key, doc: d})
	}
	return out
}

// findPDF returns the first candidate sharing two significant words with
// name, or whose name contains or is contained in it
func findPDF(name string, candidates []packagePDF) (packagePDF, bool) {
	words := wordSet(name)
	for _, c := range candidates {
		if strings.Contains(c.key, name) || strings.Contains(name, c.key) {
			return c, true
		}
		overlap := 0
		for w := range wordSet(c.key) {
			if words[w] {
				overlap++
			}
		}
		if overlap >= 2 {
			return c, true
		}
	}
	return packagePDF{}, false
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range significantWord.FindAllString(s, -1) {
		set[w] = true
	}
	return set
}
