package detect

import (
	"math"
	"regexp"
	"strconv"

	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

// Category names the kind of value an entry space expects
type Category string

const (
	CategorySignature Category = "entry_signature"
	CategoryDate      Category = "entry_date"
	CategoryDollar    Category = "entry_dollar"
	CategoryDays      Category = "entry_days"
	CategoryLicense   Category = "entry_license"
	CategoryContact   Category = "entry_contact"
	CategoryAddress   Category = "entry_address"
	CategoryPercent   Category = "entry_percent"
	CategoryBrokerage Category = "entry_brokerage"
	CategoryBlank     Category = "entry_blank"
)

// Direction is where a fill line sits relative to its label
type Direction string

const (
	DirectionAbove  Direction = "above"
	DirectionLeft   Direction = "left"
	DirectionRight  Direction = "right"
	DirectionEither Direction = "either"
)

// Region is the coarse vertical zone of a box on its page
type Region string

const (
	RegionHeader Region = "header"
	RegionUpper  Region = "upper"
	RegionMiddle Region = "middle"
	RegionLower  Region = "lower"
	RegionFooter Region = "footer"
)

// Entry is one detected fillable space
type Entry struct {
	Category Category
	BBox     geometry.Rect
	// ULBox is the drawn line the entry claimed; nil for underscore blanks
	ULBox          *geometry.Rect
	Field          string
	Context        string
	Region         Region
	TimeLengthDays int // 0 when no day count was found
	// LineIndex is the claimed candidate line, -1 when none
	LineIndex int
}

// TestAddressRef is a leftover placeholder address found in the text
type TestAddressRef struct {
	Text   string
	BBox   geometry.Rect
	Region Region
}

// Tunables shared by both association passes, in points
const (
	AdjacentGap    = 20.0
	VerticalTol    = 8.0
	MaxULWidth     = 200.0
	AbsoluteCap    = MaxULWidth + 50
	AboveMaxGap    = 15.0
	BelowMaxGap    = 15.0
	FooterBandY    = 740.0
	fieldMaxLen    = 80
	contextMaxLen  = 120
	underscoreCap  = 250.0
	underlineAbove = 4.0
	underlineBelow = 2.0
)

var (
	timeLengthPattern  = regexp.MustCompile(`(?i)(\d+)\s*(?:calendar|business|banking)?\s*days?`)
	testAddressPattern = regexp.MustCompile(`(?i)123\s*Test\s*St\.?`)
	footerTextPattern  = regexp.MustCompile(`(?i)Produced with|zipForm|Lone Wolf`)
	underscorePattern  = regexp.MustCompile(`_{3,}`)
)

// RegionFor maps the vertical midpoint of box to a page region
func RegionFor(box geometry.Rect, pageHeight float64) Region {
	if pageHeight <= 0 {
		return RegionHeader
	}
	ratio := box.MidY() / pageHeight
	switch {
	case ratio < 0.15:
		return RegionHeader
	case ratio < 0.4:
		return RegionUpper
	case ratio < 0.6:
		return RegionMiddle
	case ratio < 0.85:
		return RegionLower
	default:
		return RegionFooter
	}
}

// TimeLengthDays returns the first integer that precedes a "day(s)" token
// in text. Zero is reported as not found.
func TimeLengthDays(text string) (int, bool) {
	m := timeLengthPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// IsTestAddress reports whether text contains the placeholder address
func IsTestAddress(text string) bool {
	return testAddressPattern.MatchString(text)
}

// IsFooterText reports whether text is a form-vendor attribution
func IsFooterText(text string) bool {
	return footerTextPattern.MatchString(text)
}

// roundKey rounds half to even so position keys match across runs
func roundKey(v float64) int {
	return int(math.RoundToEven(v))
}

// positionKey identifies a physical position on a page for dedup
type positionKey struct {
	Y  int
	X0 int
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
