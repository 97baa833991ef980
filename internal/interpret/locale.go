package interpret

import (
	"regexp"
	"strings"
)

// Locale is the language and number-format convention of a document.
type Locale int

const (
	English Locale = iota
	Slovenian
)

func (l Locale) String() string {
	if l == Slovenian {
		return "sl"
	}
	return "en"
}

// slovenianMarkers flip a document to Slovenian when any of them appears.
// Diacritic-free spellings cover recognizers that drop the caron.
var slovenianMarkers = []string{
	"račun", "racun",
	"kupec",
	"ddv",
	"znesek",
	"ponudba",
	"skupaj",
	"za plačilo", "za placilo",
	"plačano", "placano",
}

// DetectLocale classifies text as Slovenian if any Slovenian marker word is
// present and as English otherwise.
func DetectLocale(text string) Locale {
	lower := strings.ToLower(text)
	for _, kw := range slovenianMarkers {
		if strings.Contains(lower, kw) {
			return Slovenian
		}
	}
	return English
}

// keywordSet lists the words each extractor keys on for one locale.
type keywordSet struct {
	total       []string
	net         []string
	vat         []string
	forbidden   []string
	description []string
	exclusions  []string
}

var keywordSets = map[Locale]keywordSet{
	English: {
		total:       []string{"total", "grand total", "total due", "amount due", "balance due", "to pay", "sum"},
		net:         []string{"net", "net amount", "subtotal", "sub-total", "sub total", "tax base", "vat base"},
		vat:         []string{"vat", "tax", "sales tax", "vat amount"},
		forbidden:   []string{"total", "subtotal", "vat", "tax", "date", "period", "amount due", "balance", "net"},
		description: []string{"service", "services", "description", "item", "product", "consulting", "fee", "work"},
		exclusions: []string{
			"transaction", "terminal", "subtotal", "sub-total", "tax", "vat", "invoice", "date",
			"valid", "validity", "valid until", "total", "amount due", "balance", "change", "cash", "card",
		},
	},
	Slovenian: {
		total:       []string{"skupaj", "za plačilo", "za placilo", "skupni znesek", "znesek", "plačano", "placano", "vsota"},
		net:         []string{"osnova", "osnova za ddv", "neto", "brez ddv", "vrednost brez ddv"},
		vat:         []string{"ddv", "davek", "znesek ddv"},
		forbidden:   []string{"skupaj", "ddv", "datum", "obdobje", "za plačilo", "za placilo", "osnova", "znesek", "rok plačila"},
		description: []string{"storitev", "storitve", "opis", "artikel", "izdelek", "delo", "svetovanje", "najem"},
		exclusions: []string{
			"transakcija", "terminal", "vmesni seštevek", "vmesna vsota", "davek", "ddv", "račun", "racun",
			"datum", "veljavnost", "velja do", "skupaj", "za plačilo", "za placilo", "plačano", "placano",
			"osnova", "znesek", "gotovina", "kartica", "vračilo", "vracilo",
		},
	},
}

// localeTable holds the patterns compiled from a keywordSet. Tables are
// built once at init and never mutated.
type localeTable struct {
	locale      Locale
	total       []*regexp.Regexp
	net         *regexp.Regexp
	vat         *regexp.Regexp
	forbidden   *regexp.Regexp
	description *regexp.Regexp
	exclusions  *regexp.Regexp
}

var tables = map[Locale]*localeTable{
	English:   newLocaleTable(English, keywordSets[English]),
	Slovenian: newLocaleTable(Slovenian, keywordSets[Slovenian]),
}

func tableFor(l Locale) *localeTable {
	return tables[l]
}

func newLocaleTable(l Locale, ks keywordSet) *localeTable {
	t := &localeTable{
		locale:      l,
		net:         wordPattern(ks.net),
		vat:         wordPattern(ks.vat),
		forbidden:   wordPattern(ks.forbidden),
		description: wordPattern(ks.description),
		exclusions:  wordPattern(ks.exclusions),
	}
	for _, kw := range ks.total {
		t.total = append(t.total, windowPattern(kw))
	}
	return t
}

const notWordChar = `[^\p{L}\p{N}]`

// wordPattern matches any of words as a whole word, case-insensitively.
// Go's \b only knows ASCII, which breaks on č, š and ž.
func wordPattern(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(?:^|` + notWordChar + `)(?:` + strings.Join(quoted, "|") + `)(?:$|` + notWordChar + `)`)
}

// windowPattern matches keyword followed by up to 80 characters of the same
// line. Group 1 is the window and is unset when the keyword ends the line.
func windowPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|` + notWordChar + `)` + regexp.QuoteMeta(keyword) +
		`(?:$|\n|([^\p{L}\p{N}\n][^\n]{0,79}))`)
}
