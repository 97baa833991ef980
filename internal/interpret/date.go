package interpret

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reDateYMD = regexp.MustCompile(`(\d{4})[./-] ?(\d{1,2})[./-] ?(\d{1,2})`)
	reDateDMY = regexp.MustCompile(`(\d{1,2})([./-]) ?(\d{1,2})[./-] ?(\d{4}|\d{2})`)
)

// extractDate returns the first valid date in units as YYYY-MM-DD.
func extractDate(units []string, loc Locale) (string, bool) {
	for _, u := range units {
		if d, ok := firstDate(u, loc); ok {
			return d, true
		}
	}
	return "", false
}

// firstDate returns the earliest valid date in s. Year-first and day-first
// shapes compete by position.
func firstDate(s string, loc Locale) (string, bool) {
	type hit struct {
		pos  int
		date string
	}
	var best *hit
	consider := func(pos int, date string) {
		if best == nil || pos < best.pos {
			best = &hit{pos: pos, date: date}
		}
	}

	scanDates(reDateYMD, s, func(m []int) bool {
		y, mo, d := atoi(s[m[2]:m[3]]), atoi(s[m[4]:m[5]]), atoi(s[m[6]:m[7]])
		if date, ok := canonicalDate(y, mo, d); ok {
			consider(m[2], date)
			return true
		}
		return false
	})
	scanDates(reDateDMY, s, func(m []int) bool {
		d, mo := atoi(s[m[2]:m[3]]), atoi(s[m[6]:m[7]])
		yRaw := s[m[8]:m[9]]
		y := atoi(yRaw)
		if len(yRaw) == 2 {
			y += 2000
		}
		// English receipts write 03/25/2024; an impossible month means the
		// fields are swapped.
		if loc == English && s[m[4]:m[5]] == "/" && mo > 12 && d <= 12 {
			d, mo = mo, d
		}
		if date, ok := canonicalDate(y, mo, d); ok {
			consider(m[2], date)
			return true
		}
		return false
	})
	if best == nil {
		return "", false
	}
	return best.date, true
}

// scanDates calls fn with the submatch indexes of each date-shaped match in
// s that is not glued to surrounding digits or separators, until fn reports a
// valid date. Rejected matches resume the scan one byte later, so a date
// right after an invalid one is still found.
func scanDates(re *regexp.Regexp, s string, fn func(m []int) bool) {
	for from := 0; from < len(s); {
		m := re.FindStringSubmatchIndex(s[from:])
		if m == nil {
			return
		}
		for i := range m {
			if m[i] >= 0 {
				m[i] += from
			}
		}
		if dateBordered(s, m[0], m[1]) && fn(m) {
			return
		}
		from = m[0] + 1
	}
}

// dateBordered reports whether s[start:end] stands alone: no digit or
// number separator right before it and no digit right after it.
func dateBordered(s string, start, end int) bool {
	if start > 0 && strings.IndexByte("0123456789.,/-", s[start-1]) >= 0 {
		return false
	}
	return end >= len(s) || !isDigit(s[end])
}

// canonicalDate formats a calendar-valid date.
func canonicalDate(y, m, d int) (string, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 || y < 1900 || y > 2199 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
