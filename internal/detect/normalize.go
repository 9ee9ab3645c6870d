package detect

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Typographic punctuation seen in form text that the label patterns spell
// in ASCII.
var punctuationFolder = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
)

// normalizeText folds compatibility characters (ligatures, full-width forms)
// and curly quotes so "Buyer’s Initials" matches the same rule as
// "Buyer's Initials".
func normalizeText(s string) string {
	return punctuationFolder.Replace(norm.NFKC.String(s))
}
