package detect

import "regexp"

// Rule binds a label text pattern to the entry category it announces and to
// where the fill line is expected relative to the label.
type Rule struct {
	Name      string
	Category  Category
	Direction Direction
	Pattern   *regexp.Regexp
	MinWidth  float64
	MaxWidth  float64 // 0 means unbounded
}

// acceptsWidth reports whether a candidate line of width w fits the rule
func (r Rule) acceptsWidth(w float64) bool {
	if w < r.MinWidth {
		return false
	}
	if r.MaxWidth > 0 && w > r.MaxWidth {
		return false
	}
	return true
}

// DefaultCatalog returns the ordered label rules. Order is significant: the
// first rule that yields an entry wins, so specific rules (initials) sit
// ahead of generic ones and the catch-all blank rule comes last.
//
// NOTE: the ordering was tuned against real contract packages and some
// patterns overlap (e.g. "by" appears in both signature rules). Reordering
// changes classification results.
func DefaultCatalog() []Rule {
	return []Rule{
		// Signature labels printed under a long line
		{
			Name:      "signature_below_line",
			Category:  CategorySignature,
			Direction: DirectionAbove,
			Pattern: regexp.MustCompile(`(?i)^(` +
				`signature|` +
				`\(signature\)\s*by|` +
				`buyer\s*$|seller\s*$|tenant\s*$|landlord\s*$|` +
				`housing\s+provider\s*$|rental\s+property\s+owner\s*$|` +
				`by\s*$|` +
				`printed\s+name\s+of|` +
				`associate[- ]licensee|` +
				`buyer/?tenant|seller/?housing\s+provider|` +
				`buyer/?seller/?landlord/?tenant|` +
				`tenant\s*\(signature\)|housing\s+provider\s*\(signature\)|` +
				`printed\s+name\s+of\s+legally\s+authorized\s+signer|` +
				`printed\s+name\s+of\s+buyer|printed\s+name\s+of\s+seller|` +
				`printed\s+name\s+of\s+owner|printed\s+name\s+of\s+tenant|` +
				`printed\s+name\s+of\s+housing\s+provider|` +
				`printed\s+name\s+of\s+rpo|` +
				`guarantor|guarantor\s*\(print\s*name\)` +
				`)$`),
			MinWidth: 100,
		},
		// "Buyer ______ Date ___" sign rows
		{
			Name:      "signature_left_of_line",
			Category:  CategorySignature,
			Direction: DirectionRight,
			Pattern: regexp.MustCompile(`(?i)^(buyer|seller|tenant|landlord|by|` +
				`housing\s+provider|rental\s+property\s+owner|guarantor)$`),
			MinWidth: 100,
		},
		{
			Name:      "initials",
			Category:  CategorySignature,
			Direction: DirectionRight,
			Pattern: regexp.MustCompile(`(?i)^(buyer'?s?\s+initials?|seller'?s?\s+initials?|` +
				`owner'?s?\s+initials?|tenant'?s?\s+initials?|` +
				`housing\s+providers?\s+initials?|` +
				`buyer'?s?/?tenant'?s?\s+initials?)$`),
			MinWidth: 15,
			MaxWidth: 60,
		},
		// "Date" or "Date Prepared", never "dated"
		{
			Name:      "date",
			Category:  CategoryDate,
			Direction: DirectionEither,
			Pattern:   regexp.MustCompile(`(?i)^date(\s+prepared)?$`),
			MinWidth:  15,
		},
		{
			Name:      "dollar",
			Category:  CategoryDollar,
			Direction: DirectionRight,
			Pattern: regexp.MustCompile(`(?i)(?:^|\s)\$\s*$|` +
				`dollars?\s*\$|dollars?\s*\(\s*\$|` +
				`cost\s+not\s+to\s+exceed\s*\$|` +
				`agrees?\s+to\s+pay\s*\$|` +
				`rental\s+fee.*\$|` +
				`treatment\s+is:?\s*\$|` +
				`an\s+additional\s*\$|` +
				`^\$$`),
			MinWidth: 15,
		},
		// "within 3 (or ____)"
		{
			Name:      "days_prefix",
			Category:  CategoryDays,
			Direction: DirectionRight,
			Pattern:   regexp.MustCompile(`(?i)\d+\s*\(or$|\d+\s*\(or\s*$|within\s+\d+\s*\(or`),
			MinWidth:  15,
		},
		// "____ Days"
		{
			Name:      "days_suffix",
			Category:  CategoryDays,
			Direction: DirectionLeft,
			Pattern:   regexp.MustCompile(`(?i)^(days?|calendar\s+days?|business\s+days?|\)\s*days?)$`),
			MinWidth:  15,
		},
		{
			Name:      "license",
			Category:  CategoryLicense,
			Direction: DirectionRight,
			Pattern: regexp.MustCompile(`(?i)dre\s+lic\.?\s*#?|license\s+number|calbre|caldre|` +
				`lic\.?\s*#|dre\s*#`),
			MinWidth: 15,
		},
		{
			Name:      "contact",
			Category:  CategoryContact,
			Direction: DirectionRight,
			Pattern:   regexp.MustCompile(`(?i)^(e-?mail|phone\s*#?|tel(ephone)?\s*#?|fax|be\s+contacted\s+at)$`),
			MinWidth:  15,
		},
		{
			Name:      "address",
			Category:  CategoryAddress,
			Direction: DirectionRight,
			Pattern: regexp.MustCompile(`(?i)^(property\s+address|address|city|state|zip(\s+code)?|` +
				`\(city\)|\(state\)|\(zip\s*code?\)|county(\s+of)?|` +
				`situated\s+in|street\s+address|\(unit/?apartment\))$`),
			MinWidth: 15,
		},
		{
			Name:      "percent",
			Category:  CategoryPercent,
			Direction: DirectionRight,
			Pattern:   regexp.MustCompile(`(?i)^%$|percent\s+of`),
			MinWidth:  15,
		},
		{
			Name:      "brokerage",
			Category:  CategoryBrokerage,
			Direction: DirectionRight,
			Pattern: regexp.MustCompile(`(?i)buyer'?s?\s+brokerage\s+firm|seller'?s?\s+brokerage\s+firm|` +
				`housing\s+provider'?s?\s+brokerage\s+firm|` +
				`tenant'?s?\s+brokerage\s+firm|` +
				`real\s+estate\s+broker\s*\(|` +
				`^(agent|seller'?s?\s+agent|buyer'?s?\s+agent)$`),
			MinWidth: 15,
		},
		// Generic fill-in blanks, lowest priority
		{
			Name:      "blank",
			Category:  CategoryBlank,
			Direction: DirectionRight,
			Pattern: regexp.MustCompile(`(?i)^(explanation|explanation/?clarification|` +
				`other\s*(terms|items|instructions|documents|addenda)?|` +
				`additional\s+(terms|inspection)|` +
				`assessor'?s?\s+parcel\s+no|title,?\s+if\s+applicable|` +
				`escrow\s+(holder|#)|addendum\s*#|unit\s*#|bath\s*#|` +
				`premises|year\s+built|roof.*type|name|age|` +
				`this\s+is\s+an\s+offer\s+from|to\s+be\s+acquired\s+is|` +
				`described\s+as|title)$`),
			MinWidth: 15,
		},
	}
}
