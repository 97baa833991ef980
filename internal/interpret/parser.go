// Package interpret turns recognized receipt text into a structured record:
// issue date, total with currency, and line items. It understands English
// and Slovenian documents and works on noisy OCR or PDF text. Every step is
// best-effort; a field that cannot be found is left empty rather than
// reported as an error.
package interpret

import (
	"fmt"
	"strings"
)

// Version identifies the parser behavior that produced a ParsedReceipt.
const Version = "receipt-text/3"

// Mode selects how items are extracted.
type Mode int

const (
	// LineMode reads one candidate item per line.
	LineMode Mode = iota
	// FlatMode ignores line breaks and scans the whole text for amounts.
	FlatMode
)

func (m Mode) String() string {
	if m == FlatMode {
		return "flat"
	}
	return "line"
}

// ParseMode reads a mode name. The empty string is LineMode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "line":
		return LineMode, nil
	case "flat":
		return FlatMode, nil
	}
	return LineMode, fmt.Errorf("unknown item mode %q (want line or flat)", s)
}

// ParsedReceipt is the structured result of one parse.
type ParsedReceipt struct {
	Version string     `json:"version"`
	Date    *string    `json:"date,omitempty"`  // YYYY-MM-DD
	Total   *string    `json:"total,omitempty"` // "45.00 EUR"
	Items   []LineItem `json:"items"`
}

// Config tunes the heuristics that have no single right answer.
type Config struct {
	// FallbackTolerance is how close a reconstructed total must be to the
	// keyword candidate to replace it regardless of size.
	FallbackTolerance float64
	// PreferLargerFallback lets a larger reconstructed total win.
	PreferLargerFallback bool
	// DefaultCurrency is used when no amount carried a currency marker.
	DefaultCurrency string
	// MergeContinuations runs the continuation merger in Prepare. It folds
	// runs of cheap item lines together, so it is meant for invoices with
	// multi-line service descriptions and is off by default.
	MergeContinuations bool
}

// DefaultConfig returns the settings the parser was tuned with.
func DefaultConfig() Config {
	return Config{
		FallbackTolerance:    0.05,
		PreferLargerFallback: true,
		DefaultCurrency:      "€",
		MergeContinuations:   false,
	}
}

// Parser runs the extraction pipeline. It holds no mutable state and is
// safe for concurrent use.
type Parser struct {
	cfg Config
}

// NewParser creates a Parser. An empty DefaultCurrency falls back to "€".
func NewParser(cfg Config) *Parser {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = DefaultConfig().DefaultCurrency
	}
	if cfg.FallbackTolerance < 0 {
		cfg.FallbackTolerance = 0
	}
	return &Parser{cfg: cfg}
}

// Config returns the parser settings.
func (p *Parser) Config() Config {
	return p.cfg
}

// pageMarker separates pages in prepared text. Pages are numbered from 1.
func pageMarker(i int) string {
	return fmt.Sprintf("\n\n--- Page %d ---\n", i)
}

// Prepare normalizes each page and joins them in order with page markers.
// In line mode continuation lines are merged as well. The locale is detected
// once over all pages.
func (p *Parser) Prepare(pages []string, mode Mode) string {
	loc := DetectLocale(strings.Join(pages, "\n"))
	var b strings.Builder
	for i, page := range pages {
		lines := NormalizeLines(page)
		if mode == LineMode && p.cfg.MergeContinuations {
			lines = MergeContinuations(lines, loc)
		}
		if len(pages) > 1 {
			b.WriteString(pageMarker(i + 1))
		}
		b.WriteString(strings.Join(lines, "\n"))
	}
	return strings.TrimLeft(b.String(), "\n")
}

// ParsePages prepares pages and parses the result.
func (p *Parser) ParsePages(pages []string, mode Mode) ParsedReceipt {
	return p.Parse(p.Prepare(pages, mode), mode)
}

// Parse extracts date, total and items from already prepared text. It never
// fails; fields that cannot be found are nil and Items is empty.
func (p *Parser) Parse(text string, mode Mode) ParsedReceipt {
	out := ParsedReceipt{Version: Version, Items: []LineItem{}}

	t := tableFor(DetectLocale(text))
	flat := mode == FlatMode
	units := []string{text}
	if !flat {
		units = splitLines(text)
	}

	policy := totalPolicy{tolerance: p.cfg.FallbackTolerance, preferLarger: p.cfg.PreferLargerFallback}
	currency := p.cfg.DefaultCurrency
	if total := resolveTotal(text, units, t, policy, flat); total != nil {
		if total.Currency == "" {
			total.Currency = currency
		}
		currency = total.Currency
		s := total.String()
		out.Total = &s
	}

	if d, ok := extractDate(units, t.locale); ok {
		out.Date = &d
	}

	if flat {
		out.Items = flatItems(text, t, currency)
	} else {
		out.Items = lineItems(units, t, currency)
	}
	return out
}
