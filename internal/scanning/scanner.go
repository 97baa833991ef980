package scanning

import "errors"

var (
	// ErrUnsupportedContent is returned for inputs without a text layer,
	// such as photos, which need an OCR pass first.
	ErrUnsupportedContent = errors.New("unsupported content type")
	// ErrNoText is returned when a document has no extractable text.
	ErrNoText = errors.New("no text found in document")
)

// TextSource turns an uploaded document into its text, one string per page,
// in page order.
type TextSource interface {
	// ExtractPages returns the text of each page of the document
	ExtractPages(data []byte, contentType string) ([]string, error)
	// Close releases resources held by the source
	Close() error
}
