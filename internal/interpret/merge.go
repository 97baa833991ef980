package interpret

// strongPriceFloor is the value above which a lone amount on a line is taken
// as a real price rather than a quantity or unit price.
const strongPriceFloor = 10.0

// MergeContinuations joins multi-line item descriptions into one line. A line
// is carried into the next one when it has no strong price (or names a
// service or product) and the next line supplies an amount. Lines that hold a
// section keyword, such as totals or VAT, are never merged on either side.
func MergeContinuations(lines []string, loc Locale) []string {
	return mergeContinuations(lines, tableFor(loc))
}

func mergeContinuations(lines []string, t *localeTable) []string {
	if len(lines) == 0 {
		return nil
	}
	out := make([]string, 0, len(lines))
	buf := lines[0]
	for i := 0; i < len(lines)-1; i++ {
		cur, next := lines[i], lines[i+1]
		if shouldMerge(cur, next, t) {
			buf += " " + next
			continue
		}
		out = append(out, buf)
		buf = next
	}
	return append(out, buf)
}

func shouldMerge(cur, next string, t *localeTable) bool {
	if t.forbidden.MatchString(cur) || t.forbidden.MatchString(next) {
		return false
	}
	if len(findAmounts(next)) == 0 {
		return false
	}
	return !hasStrongPrice(cur, t.locale) || t.description.MatchString(cur)
}

// hasStrongPrice reports whether line carries more than one amount, or a
// single amount above strongPriceFloor.
func hasStrongPrice(line string, loc Locale) bool {
	toks := findAmounts(line)
	switch len(toks) {
	case 0:
		return false
	case 1:
		v, ok := ParseAmount(toks[0].raw, loc)
		return ok && v > strongPriceFloor
	}
	return true
}
