package interpret

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// amountPattern matches a money-shaped number with exactly two decimals and an
// optional trailing currency. Group 1 is the number, group 2 the currency.
var amountPattern = regexp.MustCompile(`(\d{1,3}(?:[.,]\d{3})+[.,]\d{2}|\d+[.,]\d{2})(?:[ ]?(€|\$|£|(?i:eur|usd|gbp)))?`)

// Amount is a parsed monetary value.
type Amount struct {
	Value    float64
	Currency string
}

// String renders the amount as "value currency" with two decimals.
func (a Amount) String() string {
	return fmt.Sprintf("%.2f %s", a.Value, a.Currency)
}

// amountToken is one amount-shaped substring of a larger text.
type amountToken struct {
	raw      string
	currency string
	start    int
	end      int
}

// findAmounts returns every isolated amount token in text, in order. Tokens
// glued to other digits (dates, long ids, percentages) are skipped.
func findAmounts(text string) []amountToken {
	var out []amountToken
	for _, m := range amountPattern.FindAllStringSubmatchIndex(text, -1) {
		numStart, numEnd := m[2], m[3]
		if !isolatedNumber(text, numStart, numEnd) {
			continue
		}
		tok := amountToken{
			raw:   text[numStart:numEnd],
			start: m[0],
			end:   m[1],
		}
		if m[4] >= 0 {
			if m[5] < len(text) && isASCIILetter(text[m[5]]) {
				// "2.50 Europe" carries no currency.
				tok.end = numEnd
			} else {
				tok.currency = normalizeCurrency(text[m[4]:m[5]])
			}
		}
		out = append(out, tok)
	}
	return out
}

func isolatedNumber(text string, start, end int) bool {
	if start > 0 {
		prev := text[start-1]
		if isDigit(prev) {
			return false
		}
		if (prev == '.' || prev == ',') && start > 1 && isDigit(text[start-2]) {
			return false
		}
	}
	if end < len(text) {
		next := text[end]
		if isDigit(next) || next == '%' {
			return false
		}
		if (next == '.' || next == ',' || next == '/' || next == '-') && end+1 < len(text) && isDigit(text[end+1]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func normalizeCurrency(c string) string {
	switch strings.ToUpper(c) {
	case "EUR":
		return "EUR"
	case "USD":
		return "USD"
	case "GBP":
		return "GBP"
	}
	return c
}

// ParseAmount converts a raw numeric token to a value using the separator
// convention of loc. It reports false for anything that is not a finite,
// non-negative number.
func ParseAmount(raw string, loc Locale) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if loc == Slovenian {
		s = slovenianDecimal(s)
	} else {
		s = englishDecimal(s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// slovenianDecimal rewrites "1.234,56" to "1234.56". Without a comma, a single
// dot is kept as the decimal point so "12.50" stays 12.50.
func slovenianDecimal(s string) string {
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}
	if strings.Count(s, ".") > 1 {
		return strings.ReplaceAll(s, ".", "")
	}
	if i := strings.Index(s, "."); i >= 0 && len(s)-i-1 > 2 {
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// englishDecimal strips comma thousands separators. A token grouped with
// dots and ending in a comma, such as "1.234,56", uses the comma as its
// decimal point and is read the Slovenian way.
func englishDecimal(s string) string {
	if c := strings.LastIndexByte(s, ','); c >= 0 && strings.IndexByte(s, '.') >= 0 && c > strings.LastIndexByte(s, '.') {
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}
	return strings.ReplaceAll(s, ",", "")
}

func (t amountToken) amount(loc Locale) (Amount, bool) {
	v, ok := ParseAmount(t.raw, loc)
	if !ok {
		return Amount{}, false
	}
	return Amount{Value: v, Currency: t.currency}, true
}

// round2 rounds half away from zero to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
