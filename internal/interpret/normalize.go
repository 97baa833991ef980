package interpret

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	rePlainLabel = regexp.MustCompile(`^[\p{L}\p{N}_ \-/.,+]+$`)
	reValueStart = regexp.MustCompile(`^[€$£\d]`)
)

// NormalizeText cleans raw recognizer output and rejoins labels that were
// split from their values. Lines are separated by "\n".
func NormalizeText(raw string) string {
	return strings.Join(NormalizeLines(raw), "\n")
}

// NormalizeLines is NormalizeText returning the lines themselves. Blank lines
// are dropped.
func NormalizeLines(raw string) []string {
	lines := splitLines(cleanSpaces(raw))
	return joinSplitLabels(lines)
}

// cleanSpaces maps non-breaking spaces and tabs to plain spaces, drops
// zero-width and control characters, and collapses runs of spaces.
func cleanSpaces(s string) string {
	s = reCRLF.ReplaceAllString(s, "\n")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t', r == '\u00a0', r == '\u202f', r == '\u2007':
			return ' '
		case r == '\f':
			return '\n'
		case unicode.Is(unicode.Cf, r), unicode.IsControl(r):
			return -1
		case r == unicode.ReplacementChar:
			return -1
		}
		return r
	}, s)
	return reMultiSpace.ReplaceAllString(s, " ")
}

func splitLines(s string) []string {
	parts := strings.Split(s, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// joinSplitLabels merges line i into line i+1 when line i is a bare label
// and i+1 starts with a value, or when line i ends with a colon. A joined
// line can qualify again ("Qty", "2", "3.50"), so passes repeat until
// nothing changes; every join removes a line, which bounds the loop.
func joinSplitLabels(lines []string) []string {
	for {
		joined, changed := joinPass(lines)
		if !changed {
			return joined
		}
		lines = joined
	}
}

func joinPass(lines []string) ([]string, bool) {
	out := make([]string, 0, len(lines))
	changed := false
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if i+1 < len(lines) {
			next := lines[i+1]
			if (rePlainLabel.MatchString(line) && reValueStart.MatchString(next)) || strings.HasSuffix(line, ":") {
				out = append(out, line+" "+next)
				changed = true
				i++
				continue
			}
		}
		out = append(out, line)
	}
	return out, changed
}
