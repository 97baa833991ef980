package interpret

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// totalCandidate is a keyword-anchored amount that may be the document total.
type totalCandidate struct {
	context string
	amount  Amount
}

// totalCandidates scans text for every total keyword and keeps the last
// positive amount inside each keyword window. A keyword with no amount after
// it on its line falls back to the amounts just before it. Candidates come
// back largest first: recognizers drop digits far more often than they
// invent them.
func totalCandidates(text string, t *localeTable) []totalCandidate {
	var out []totalCandidate
	for _, re := range t.total {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			var toks []amountToken
			if m[2] >= 0 {
				toks = findAmounts(text[m[2]:m[3]])
			}
			if len(toks) == 0 {
				toks = amountsBefore(text, m[0])
			}
			if len(toks) == 0 {
				continue
			}
			a, ok := toks[len(toks)-1].amount(t.locale)
			if !ok || a.Value <= 0 {
				continue
			}
			out = append(out, totalCandidate{context: strings.TrimSpace(text[m[0]:m[1]]), amount: a})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].amount.Value > out[j].amount.Value
	})
	return out
}

// totalLookBack is how far before a keyword with nothing after it the
// candidate scan looks, for layouts such as "45.00 EUR Total".
const totalLookBack = 40

// amountsBefore returns the amounts that start within totalLookBack bytes
// before pos on the same line. pos may point at the line break that served as
// the keyword's left boundary.
func amountsBefore(text string, pos int) []amountToken {
	if pos < len(text) && text[pos] == '\n' {
		pos++
	}
	lineStart := strings.LastIndexByte(text[:pos], '\n') + 1
	var out []amountToken
	for _, tok := range findAmounts(text[lineStart:pos]) {
		if pos-(lineStart+tok.start) <= totalLookBack {
			out = append(out, tok)
		}
	}
	return out
}

// reVATSummary matches a VAT recap row: rate, net and VAT amount.
var reVATSummary = regexp.MustCompile(`(?:^|[^\d.,])(\d{1,2}(?:[.,]\d{1,2})?) ?% ?(?:[^\d\n]{0,12}?)(` +
	amountPattern.String() + `) +(` + amountPattern.String() + `)`)

// vatSummaryFallback rebuilds the total from the first VAT recap row as
// net plus VAT.
func vatSummaryFallback(text string, t *localeTable) (Amount, bool) {
	for _, line := range strings.Split(text, "\n") {
		m := reVATSummary.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		toks := findAmounts(line[m[4]:m[1]])
		if len(toks) < 2 {
			continue
		}
		net, okNet := toks[0].amount(t.locale)
		vat, okVAT := toks[1].amount(t.locale)
		if !okNet || !okVAT {
			continue
		}
		return Amount{Value: round2(net.Value + vat.Value), Currency: firstCurrency(vat, net)}, true
	}
	return Amount{}, false
}

// netVATFallback sums the first net/base amount and the first VAT amount
// smaller than it. units are lines in line mode and the whole text in flat
// mode. In line mode a net line is never read as a VAT line, and the last
// amount after a keyword is used; in flat mode the first one is.
func netVATFallback(units []string, t *localeTable, flat bool) (Amount, bool) {
	var (
		net    Amount
		hasNet bool
		vats   []Amount
	)
	for _, u := range units {
		if t.net.MatchString(u) {
			if !hasNet {
				if found := amountsAfter(u, t.net, t.locale, !flat); len(found) > 0 {
					net, hasNet = found[0], true
				}
			}
			if !flat {
				continue
			}
		}
		vats = append(vats, amountsAfter(u, t.vat, t.locale, !flat)...)
	}
	if !hasNet {
		return Amount{}, false
	}
	for _, vat := range vats {
		if vat.Value < net.Value {
			return Amount{Value: round2(net.Value + vat.Value), Currency: firstCurrency(vat, net)}, true
		}
	}
	return Amount{}, false
}

// amountsAfter returns, for each keyword hit in unit, the amount following it
// on the same line and within totalWindow bytes.
func amountsAfter(unit string, kw *regexp.Regexp, loc Locale, pickLast bool) []Amount {
	var out []Amount
	for _, hit := range kw.FindAllStringIndex(unit, -1) {
		rest := unit[hit[1]:]
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			rest = rest[:i]
		}
		if len(rest) > totalWindow {
			rest = rest[:totalWindow]
		}
		toks := findAmounts(rest)
		if len(toks) == 0 {
			continue
		}
		tok := toks[0]
		if pickLast {
			tok = toks[len(toks)-1]
		}
		if a, ok := tok.amount(loc); ok && a.Value > 0 {
			out = append(out, a)
		}
	}
	return out
}

const totalWindow = 80

func firstCurrency(amounts ...Amount) string {
	for _, a := range amounts {
		if a.Currency != "" {
			return a.Currency
		}
	}
	return ""
}

// totalPolicy decides when a reconstructed total replaces a keyword candidate.
type totalPolicy struct {
	tolerance    float64
	preferLarger bool
}

func (p totalPolicy) prefer(current *Amount, fallback Amount) bool {
	if current == nil {
		return true
	}
	diff := fallback.Value - current.Value
	if diff < 0 {
		diff = -diff
	}
	if diff <= p.tolerance {
		return true
	}
	return p.preferLarger && fallback.Value > current.Value
}

// resolveTotal picks the best candidate and lets each fallback override it.
// units feed the net+VAT scan.
func resolveTotal(text string, units []string, t *localeTable, p totalPolicy, flat bool) *Amount {
	var total *Amount
	if cands := totalCandidates(text, t); len(cands) > 0 {
		a := cands[0].amount
		total = &a
	}

	fallbacks := []struct {
		name string
		fn   func() (Amount, bool)
	}{
		{"vat_summary", func() (Amount, bool) { return vatSummaryFallback(text, t) }},
		{"net_vat", func() (Amount, bool) { return netVATFallback(units, t, flat) }},
	}
	for _, fb := range fallbacks {
		a, ok := fb.fn()
		if !ok || a.Value <= 0 || !p.prefer(total, a) {
			continue
		}
		if total != nil {
			slog.Debug("Total replaced by fallback", "fallback", fb.name, "candidate", total.Value, "reconstructed", a.Value)
		}
		if a.Currency == "" && total != nil {
			a.Currency = total.Currency
		}
		total = &a
	}
	return total
}
