package pdf

import (
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxParentDepth bounds field hierarchy walks on cyclic files
const maxParentDepth = 32

// rawWidget is a widget annotation in PDF space
type rawWidget struct {
	Name      string
	Label     string
	Value     string
	FieldType string
	Rect      pdfRect
}

// pageWidgets returns the widget annotations listed in the Annots array of
// page pageNr. Field attributes missing on the widget are inherited from
// its parent fields.
func pageWidgets(ctx *model.Context, pageNr int) ([]rawWidget, error) {
	pageDict, _, _, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get page dict: %w", err)
	}
	if pageDict == nil {
		return nil, nil
	}

	annotsObj, found := pageDict.Find("Annots")
	if !found {
		return nil, nil
	}
	annots, err := ctx.DereferenceArray(annotsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Annots: %w", err)
	}

	var widgets []rawWidget
	for _, ref := range annots {
		annot, err := ctx.DereferenceDict(ref)
		if err != nil || annot == nil {
			continue
		}
		if subtype := dictName(ctx, annot, "Subtype"); subtype != "Widget" {
			continue
		}

		rect, ok := annotRect(ctx, annot)
		if !ok {
			continue
		}

		w := rawWidget{
			Name:      fullFieldName(ctx, annot),
			Label:     inheritedString(ctx, annot, "TU"),
			FieldType: fieldTypeName(ctx, annot),
			Rect:      rect,
		}
		w.Value = fieldValue(ctx, annot)
		widgets = append(widgets, w)
	}
	return widgets, nil
}

func annotRect(ctx *model.Context, annot types.Dict) (pdfRect, bool) {
	obj, found := annot.Find("Rect")
	if !found {
		return pdfRect{}, false
	}
	arr, err := ctx.DereferenceArray(obj)
	if err != nil || len(arr) != 4 {
		return pdfRect{}, false
	}
	var n [4]float64
	for i, o := range arr {
		f, err := ctx.DereferenceNumber(o)
		if err != nil {
			return pdfRect{}, false
		}
		n[i] = f
	}
	return normalizeRect(pdfRect{X0: n[0], Y0: n[1], X1: n[2], Y1: n[3]}), true
}

// fullFieldName joins partial names from the root field down, e.g.
// "Buyer.Signature"
func fullFieldName(ctx *model.Context, d types.Dict) string {
	var parts []string
	for i := 0; d != nil && i < maxParentDepth; i++ {
		if obj, found := d.Find("T"); found {
			if s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil && s != "" {
				parts = append(parts, s)
			}
		}
		d = parentOf(ctx, d)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

func parentOf(ctx *model.Context, d types.Dict) types.Dict {
	obj, found := d.Find("Parent")
	if !found {
		return nil
	}
	parent, err := ctx.DereferenceDict(obj)
	if err != nil {
		return nil
	}
	return parent
}

// inheritedObject finds key on d or the nearest ancestor that has it
func inheritedObject(ctx *model.Context, d types.Dict, key string) (types.Object, bool) {
	for i := 0; d != nil && i < maxParentDepth; i++ {
		if obj, found := d.Find(key); found && obj != nil {
			return obj, true
		}
		d = parentOf(ctx, d)
	}
	return nil, false
}

func inheritedString(ctx *model.Context, d types.Dict, key string) string {
	obj, ok := inheritedObject(ctx, d, key)
	if !ok {
		return ""
	}
	s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return s
}

func dictName(ctx *model.Context, d types.Dict, key string) string {
	obj, found := d.Find(key)
	if !found {
		return ""
	}
	name, err := ctx.DereferenceName(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return string(name)
}

// fieldTypeName maps FT to the widget type names used in manifests
func fieldTypeName(ctx *model.Context, d types.Dict) string {
	obj, ok := inheritedObject(ctx, d, "FT")
	if !ok {
		return "unknown"
	}
	ft, err := ctx.DereferenceName(obj, model.V10, nil)
	if err != nil {
		return "unknown"
	}
	switch ft {
	case "Tx":
		return "text"
	case "Btn":
		return "button"
	case "Ch":
		return "choice"
	case "Sig":
		return "signature"
	default:
		return strings.ToLower(string(ft))
	}
}

// fieldValue returns V as text. Button states are names; "Off" means unset.
func fieldValue(ctx *model.Context, d types.Dict) string {
	obj, ok := inheritedObject(ctx, d, "V")
	if !ok {
		return ""
	}
	if s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil {
		return s
	}
	if name, err := ctx.DereferenceName(obj, model.V10, nil); err == nil {
		if name == "Off" {
			return ""
		}
		return string(name)
	}
	if arr, err := ctx.DereferenceArray(obj); err == nil {
		var vals []string
		for _, item := range arr {
			if s, err := ctx.DereferenceStringOrHexLiteral(item, model.V10, nil); err == nil {
				vals = append(vals, s)
			}
		}
		return strings.Join(vals, ", ")
	}
	return ""
}
