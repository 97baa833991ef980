package interpret

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LineItem is one purchased entry.
type LineItem struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// flatNameWindow is how far back from an amount flat mode looks for a name.
const flatNameWindow = 60

var (
	reQuantityPrefix = regexp.MustCompile(`^\d+(?:\s*[xX×*]\s*|\s+)`)
	reLeadingBullets = regexp.MustCompile(`^[\s\-–—•·*.:;,|]+`)
	reTrailingJunk   = regexp.MustCompile(`[\s\-–—•·*:;,|€$£]+$`)
	reInnerSpace     = regexp.MustCompile(`\s+`)
)

// flatNoise matches the start of names that are structural receipt text
// rather than purchases: payment footers, loyalty blurbs, VAT recap rows,
// fiscal codes.
var flatNoise = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:visa|mastercard|maestro|amex|debit|credit|kartica|card)\b`),
	regexp.MustCompile(`(?i)^(?:transaction|transakcija|trans\.?|auth|avtorizacija|ref|rrn|stan|tid|mid|pos)\b`),
	regexp.MustCompile(`(?i)^(?:loyalty|points|bonus|točke|tocke|zvestob|klub|member)`),
	regexp.MustCompile(`(?i)^\d{1,2}(?:[.,]\d{1,2})? ?%`),
	regexp.MustCompile(`(?i)^(?:ddv|vat|tax|davek|osnova|neto|net)\b`),
	regexp.MustCompile(`(?i)^(?:change|cash|gotovina|vračilo|vracilo|plačano|placano|paid)\b`),
	regexp.MustCompile(`(?i)^(?:zoi|eor|fiscal|fiskal|davčna|davcna|id za ddv|tax id)`),
	regexp.MustCompile(`(?i)^(?:hvala|thank|nasvidenje|welcome)`),
	regexp.MustCompile(`(?i)^(?:tel|fax|e-?mail|www|http)`),
	regexp.MustCompile(`(?i)^(?:blagajna|blagajnik|cashier|operater|operator)\b`),
}

// cleanName strips quantity prefixes, bullets and trailing separators.
func cleanName(s string) string {
	s = reInnerSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = reLeadingBullets.ReplaceAllString(s, "")
	s = reQuantityPrefix.ReplaceAllString(s, "")
	s = reLeadingBullets.ReplaceAllString(s, "")
	s = reTrailingJunk.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func acceptableName(name string, t *localeTable) bool {
	if utf8.RuneCountInString(name) < 2 {
		return false
	}
	if !strings.ContainsFunc(name, unicode.IsLetter) {
		return false
	}
	return !t.exclusions.MatchString(name)
}

// itemSet keeps items unique by (name, price) in first-seen order.
type itemSet struct {
	seen  map[LineItem]bool
	items []LineItem
}

func newItemSet() *itemSet {
	return &itemSet{seen: make(map[LineItem]bool), items: []LineItem{}}
}

func (s *itemSet) add(it LineItem) {
	if s.seen[it] {
		return
	}
	s.seen[it] = true
	s.items = append(s.items, it)
}

// lineItems reads one candidate item per line: the last amount is the price
// and the text before it is the name.
func lineItems(lines []string, t *localeTable, currency string) []LineItem {
	set := newItemSet()
	for _, line := range lines {
		toks := findAmounts(line)
		if len(toks) == 0 {
			continue
		}
		last := toks[len(toks)-1]
		v, ok := ParseAmount(last.raw, t.locale)
		if !ok {
			continue
		}
		name := cleanName(line[:last.start])
		if !acceptableName(name, t) {
			continue
		}
		set.add(LineItem{Name: name, Price: Amount{Value: v, Currency: currency}.String()})
	}
	return set.items
}

// flatItems scans the whole text for amounts and takes up to flatNameWindow
// bytes before each one, stopping at the previous amount, as its name.
func flatItems(text string, t *localeTable, currency string) []LineItem {
	set := newItemSet()
	prevEnd := 0
	for _, tok := range findAmounts(text) {
		from := tok.start - flatNameWindow
		if from < prevEnd {
			from = prevEnd
		}
		for from > 0 && from < len(text) && !utf8.RuneStart(text[from]) {
			from++
		}
		span := text[from:tok.start]
		prevEnd = tok.end

		v, ok := ParseAmount(tok.raw, t.locale)
		if !ok {
			continue
		}
		name := cleanName(span)
		if !acceptableName(name, t) || isFlatNoise(name) {
			continue
		}
		set.add(LineItem{Name: name, Price: Amount{Value: v, Currency: currency}.String()})
	}
	return set.items
}

func isFlatNoise(name string) bool {
	for _, re := range flatNoise {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
