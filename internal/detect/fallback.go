package detect

import (
	"math"
	"regexp"
	"strings"

	"github.com/a3tai/pdf-entry-mapper/internal/geometry"
)

// noiseWords are function words that never label a blank on their own
var noiseWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {}, "on": {}, "at": {},
	"by": {}, "is": {}, "as": {}, "if": {}, "for": {}, "not": {}, "but": {}, "has": {}, "had": {},
	"are": {}, "was": {}, "be": {}, "no": {}, "so": {}, "it": {}, "its": {}, "do": {}, "may": {},
	"can": {}, "all": {}, "any": {}, "per": {}, "via": {}, "from": {}, "with": {}, "that": {},
	"this": {}, "than": {}, "then": {}, "also": {}, "both": {}, "each": {}, "such": {},
	"will": {}, "shall": {}, "been": {}, "being": {}, "upon": {}, "into": {}, "only": {},
	"more": {}, "most": {}, "less": {}, "very": {}, "does": {}, "did": {}, "have": {},
	"must": {}, "would": {}, "could": {}, "should": {}, "which": {}, "their": {},
	"them": {}, "they": {}, "when": {}, "were": {}, "what": {}, "who": {}, "whom": {},
	"your": {}, "our": {}, "his": {}, "her": {}, "my": {},
}

var (
	noisePattern    = regexp.MustCompile(`^[.,:;/\\()\[\]{}<>|&*+=#@!?\-~` + "`" + `"']+$|^\d{1,2}$`)
	trailingPunct   = regexp.MustCompile(`[.,:;]+$`)
	daysWordPattern = regexp.MustCompile(`(?i)^days?$`)
	daysCountRe     = regexp.MustCompile(`(\d+|_+|\))\s*(calendar\s+|business\s+)?days?\b`)
	signatureRe     = regexp.MustCompile(`signature|sign here`)
	dateWordRe      = regexp.MustCompile(`\bdate\b`)
	contactRe       = regexp.MustCompile(`phone|fax|email`)
	nameRe          = regexp.MustCompile(`print\s*name|firm\s*name|broker.*name|agent.*name`)
)

// isNoise reports whether a word is too weak to act as a label
func isNoise(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if _, ok := noiseWords[t]; ok {
		return true
	}
	return noisePattern.MatchString(t)
}

// fallbackInput is what the fallback classifier looks at for one line
type fallbackInput struct {
	// labelWord is the label lowercased with trailing .,:; removed
	labelWord string
	// classifyText is label word plus its line text, lowercased
	classifyText string
	// daysAfter is set when a "day(s)" word follows the line closely
	daysAfter bool
}

type fallbackRule struct {
	name     string
	matches  func(in fallbackInput) bool
	category Category
}

func wordIn(set ...string) func(fallbackInput) bool {
	return func(in fallbackInput) bool {
		for _, s := range set {
			if in.labelWord == s {
				return true
			}
		}
		return false
	}
}

func textMatches(re *regexp.Regexp) func(fallbackInput) bool {
	return func(in fallbackInput) bool { return re.MatchString(in.classifyText) }
}

// fallbackRules are evaluated top to bottom; the first match decides
var fallbackRules = []fallbackRule{
	{"days_word_after_line", func(in fallbackInput) bool { return in.daysAfter }, CategoryDays},
	{"day_count_phrase", textMatches(daysCountRe), CategoryDays},
	{"signature_word", wordIn("signature", "sign"), CategorySignature},
	{"initial_word", wordIn("initial", "initials"), CategorySignature},
	{"license_word", wordIn("dre", "lic", "license", "calbre", "caldre"), CategoryLicense},
	{"date_word", wordIn("date"), CategoryDate},
	{"contact_word", wordIn("phone", "fax", "email", "e-mail"), CategoryContact},
	{"dollar_sign", wordIn("$"), CategoryDollar},
	{"percent_sign", wordIn("%"), CategoryPercent},
	{"signature_phrase", textMatches(signatureRe), CategorySignature},
	{"date_phrase", textMatches(dateWordRe), CategoryDate},
	{"dollar_phrase", func(in fallbackInput) bool { return strings.Contains(in.classifyText, "$") }, CategoryDollar},
	{"contact_phrase", textMatches(contactRe), CategoryContact},
	{"name_phrase", textMatches(nameRe), CategoryBrokerage},
}

// classifyFallback returns the category for a fallback entry and whether a
// specific keyword decided it
func classifyFallback(in fallbackInput) (Category, bool) {
	for _, r := range fallbackRules {
		if r.matches(in) {
			return r.category, true
		}
	}
	return CategoryBlank, false
}

// fallbackPass pairs every line the primary pass left over with the nearest
// label-like word, or drops it as an orphan
func (a *associator) fallbackPass(in PageAssociationState) ([]Entry, PageAssociationState) {
	st := in.Clone()
	var entries []Entry

	for i, l := range a.geo.lines {
		if a.ctx.Err() != nil {
			break
		}
		if !a.available(i, st) {
			continue
		}
		key := l.key()
		if st.hasSeen(key) {
			continue
		}

		aligned := a.alignedWords(l)
		texts := make([]string, len(aligned))
		for k, wi := range aligned {
			texts[k] = a.geo.words[wi].Text
		}
		if IsFooterText(strings.Join(texts, " ")) {
			continue
		}

		wi, dir := a.nearestLabelWord(l, aligned)
		if wi < 0 {
			a.diag.OrphanLines++
			continue
		}

		st.markSeen(key)
		st.Claim(i)

		w := a.geo.words[wi]
		input := fallbackInput{
			labelWord:    strings.ToLower(trailingPunct.ReplaceAllString(w.Text, "")),
			classifyText: strings.ToLower(w.Text + " " + w.LineText),
			daysAfter:    a.daysWordAfter(l, aligned),
		}
		category, specific := classifyFallback(input)
		if !specific {
			a.diag.AmbiguousClassifications++
		}

		if e, ok := a.emit(w.Box, w.Text, i, dir, category, strings.Join(texts, " ")); ok {
			entries = append(entries, e)
		}
	}
	return entries, st
}

// nearestLabelWord looks left of the line, then right, then below for long
// lines. It returns the word index and the direction the line lies from it.
func (a *associator) nearestLabelWord(l candidateLine, aligned []int) (int, Direction) {
	left, right := -1, -1
	bestLeft, bestRight := math.Inf(1), math.Inf(1)

	for _, wi := range aligned {
		w := a.geo.words[wi]
		if isNoise(w.Text) {
			continue
		}
		if w.Box.X1 <= l.X0+2 && w.Box.X1 > l.X0-AdjacentGap {
			if gap := l.X0 - w.Box.X1; gap < bestLeft {
				bestLeft, left = gap, wi
			}
		}
		if w.Box.X0 >= l.X1-2 && w.Box.X0 < l.X1+AdjacentGap {
			if gap := w.Box.X0 - l.X1; gap < bestRight {
				bestRight, right = gap, wi
			}
		}
	}

	if left >= 0 {
		return left, DirectionRight
	}
	if right >= 0 {
		return right, DirectionLeft
	}
	if l.Width >= 100 {
		if below := a.wordBelow(l); below >= 0 {
			return below, DirectionAbove
		}
	}
	return -1, ""
}

// wordBelow finds the closest label-like word whose top sits just under l
func (a *associator) wordBelow(l candidateLine) int {
	best := -1
	bestGap := math.Inf(1)
	window := geometry.Rect{X0: l.X0, Y0: l.Y, X1: l.X1, Y1: l.Y + BelowMaxGap}
	for _, wi := range a.wordIndex.search(window) {
		w := a.geo.words[wi]
		if isNoise(w.Text) {
			continue
		}
		if w.Box.Y0 > l.Y && w.Box.Y0 < l.Y+BelowMaxGap && w.Box.X1 > l.X0 && w.Box.X0 < l.X1 {
			if gap := w.Box.Y0 - l.Y; gap < bestGap {
				bestGap, best = gap, wi
			}
		}
	}
	return best
}

// daysWordAfter reports whether a "day"/"days" word starts just past the
// right end of l
func (a *associator) daysWordAfter(l candidateLine, aligned []int) bool {
	for _, wi := range aligned {
		w := a.geo.words[wi]
		if w.Box.X0 >= l.X1-5 && w.Box.X0 < l.X1+60 && daysWordPattern.MatchString(w.Text) {
			return true
		}
	}
	return false
}
