package scanning

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Engine names for PDF text extraction.
const (
	EngineFitz   = "fitz"
	EngineNative = "native"
)

// pdfTextFunc extracts per-page text from a PDF.
type pdfTextFunc func(data []byte) ([]string, error)

// Extractor implements TextSource for plain text and PDFs with a text layer.
type Extractor struct {
	engine  string
	pdfText pdfTextFunc
}

// NewExtractor creates an Extractor using the named PDF engine. The empty
// name selects fitz.
func NewExtractor(engine string) (*Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineFitz:
		return &Extractor{engine: EngineFitz, pdfText: fitzPages}, nil
	case EngineNative:
		return &Extractor{engine: EngineNative, pdfText: nativePages}, nil
	}
	return nil, fmt.Errorf("unknown pdf engine %q (want %s or %s)", engine, EngineFitz, EngineNative)
}

// Engine returns the PDF engine name in use.
func (e *Extractor) Engine() string {
	return e.engine
}

// ExtractPages returns the text of each page of data.
func (e *Extractor) ExtractPages(data []byte, contentType string) ([]string, error) {
	switch normalizeContentType(data, contentType) {
	case "application/pdf":
		pages, err := e.pdfText(data)
		if err != nil {
			return nil, fmt.Errorf("extracting pdf text: %w", err)
		}
		if !hasText(pages) {
			return nil, ErrNoText
		}
		return pages, nil
	case "text/plain":
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupportedContent)
		}
		pages := splitPages(string(data))
		if !hasText(pages) {
			return nil, ErrNoText
		}
		return pages, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
}

// Close is a no-op; engines open and close documents per call.
func (e *Extractor) Close() error {
	return nil
}

// normalizeContentType lowercases the MIME type, drops parameters, and sniffs
// the data when the type is missing or generic.
func normalizeContentType(data []byte, contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch mimeType {
	case "", "application/octet-stream":
		if isPDF(data) {
			return "application/pdf"
		}
		if utf8.Valid(data) {
			return "text/plain"
		}
	}
	return mimeType
}

// isPDF checks for the %PDF- magic bytes
func isPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// splitPages splits text on form feeds, the page break of plain text exports.
func splitPages(text string) []string {
	text = strings.TrimSuffix(text, "\f")
	return strings.Split(text, "\f")
}

func hasText(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}
