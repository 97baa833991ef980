package receipt

import (
	"time"

	"github.com/zombor/receipt-reader/internal/interpret"
)

// Receipt is a stored document together with the result of interpreting it
type Receipt struct {
	ID          string                  `json:"id"`
	Filename    string                  `json:"filename"`
	ContentType string                  `json:"content_type"`
	Mode        string                  `json:"mode"`            // item mode the parse ran with
	Pages       []string                `json:"pages,omitempty"` // raw text per page, as extracted
	Text        string                  `json:"text"`            // prepared text the parser read
	Parsed      interpret.ParsedReceipt `json:"parsed"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// Stale reports whether the receipt was parsed by an older parser revision.
func (r *Receipt) Stale() bool {
	return r.Parsed.Version != interpret.Version
}
