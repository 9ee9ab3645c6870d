package detect

import (
	"regexp"
	"strings"

	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

// WidgetField is a native form widget with its derived category
type WidgetField struct {
	Name           string
	Label          string
	Value          string
	WidgetType     string
	Category       Category
	BBox           geometry.Rect
	Region         Region
	Filled         bool
	TimeLengthDays int
}

type widgetRule struct {
	pattern  *regexp.Regexp
	category Category
}

var widgetRules = []widgetRule{
	{regexp.MustCompile(`(?i)signature|initial`), CategorySignature},
	{regexp.MustCompile(`(?i)\bdate\b`), CategoryDate},
	{regexp.MustCompile(`(?i)address|property|street|city|zip|state`), CategoryAddress},
	{regexp.MustCompile(`(?i)license|dre|calbre`), CategoryLicense},
}

// ClassifyWidget derives a category from a widget's name and label
func ClassifyWidget(name, label string) Category {
	combined := name + " " + label
	for _, r := range widgetRules {
		if r.pattern.MatchString(combined) {
			return r.category
		}
	}
	return CategoryBlank
}

// AnalyzeWidgets classifies the native widgets of a page. Widgets with a
// degenerate box are dropped.
func AnalyzeWidgets(widgets []geometry.Widget, pageHeight float64) ([]WidgetField, int) {
	fields := make([]WidgetField, 0, len(widgets))
	malformed := 0
	for _, w := range widgets {
		if !w.Box.Valid() {
			malformed++
			continue
		}
		f := WidgetField{
			Name:       w.Name,
			Label:      w.Label,
			Value:      w.Value,
			WidgetType: w.WidgetType,
			Category:   ClassifyWidget(w.Name, w.Label),
			BBox:       w.Box,
			Region:     RegionFor(w.Box, pageHeight),
			Filled:     strings.TrimSpace(w.Value) != "",
		}
		if f.Category == CategoryDate {
			if n, ok := TimeLengthDays(w.Name + " " + w.Label + " " + w.Value); ok {
				f.TimeLengthDays = n
			}
		}
		fields = append(fields, f)
	}
	return fields, malformed
}
