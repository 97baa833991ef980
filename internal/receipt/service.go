package receipt

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-reader/internal/interpret"
	"github.com/zombor/receipt-reader/internal/scanning"
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service stores receipts and runs them through the interpreter
type Service struct {
	db          DB
	source      scanning.TextSource
	storage     Storage
	parser      *interpret.Parser
	defaultMode interpret.Mode
	idGenerator IDGenerator
	timeSource  TimeSource
	metrics     *Metrics
}

// NewService creates a new Service with UUID IDs and the wall clock
func NewService(db DB, source scanning.TextSource, storage Storage, parser *interpret.Parser) *Service {
	return NewServiceWithDeps(db, source, storage, parser, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, source scanning.TextSource, storage Storage, parser *interpret.Parser, idGen IDGenerator, timeSrc TimeSource) *Service {
	if parser == nil {
		parser = interpret.NewParser(interpret.DefaultConfig())
	}
	return &Service{
		db:          db,
		source:      source,
		storage:     storage,
		parser:      parser,
		defaultMode: interpret.LineMode,
		idGenerator: idGen,
		timeSource:  timeSrc,
		metrics:     NewMetrics(),
	}
}

// SetDefaultMode sets the item mode used when a request names none
func (s *Service) SetDefaultMode(mode interpret.Mode) {
	s.defaultMode = mode
}

// Mode parses a mode name; the empty name is the default mode
func (s *Service) Mode(name string) (interpret.Mode, error) {
	if strings.TrimSpace(name) == "" {
		return s.defaultMode, nil
	}
	return interpret.ParseMode(name)
}

// Metrics returns the service metrics
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

var (
	reFilenameJunk  = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	reFilenameSpace = regexp.MustCompile(`\s+`)
	reFilenameExt   = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filepath.ToSlash(filename))
	ext := strings.ToLower(filepath.Ext(filename))
	if !reFilenameExt.MatchString(ext) {
		ext = ""
	}
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = reFilenameJunk.ReplaceAllString(base, "")
	base = reFilenameSpace.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// ParseText interprets raw text without storing anything. The text is
// treated as a single page.
func (s *Service) ParseText(text string, mode interpret.Mode) interpret.ParsedReceipt {
	prepared := s.parser.Prepare(textPages(text), mode)
	parsed := s.parser.Parse(prepared, mode)
	s.metrics.observeParse(prepared, mode, parsed)
	return parsed
}

// textPages splits pasted text on form feeds like a text upload.
func textPages(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\f"), "\f")
}

// ProcessReceipt stores an upload, extracts its text, parses it, and saves
// the result
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string, mode interpret.Mode) (*Receipt, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	pages, err := s.source.ExtractPages(data, contentType)
	if err != nil {
		slog.Error("Failed to extract receipt text",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.metrics.observeExtractionError(contentType)
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to clean up file", "filename", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	receipt := &Receipt{
		ID:          id,
		Filename:    savedPath,
		ContentType: contentType,
		Pages:       pages,
		CreatedAt:   now,
	}
	s.interpret(receipt, mode, now)

	if err := s.db.SaveReceipt(receipt); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	slog.Info("Receipt processed",
		"id", id,
		"pages", len(pages),
		"mode", receipt.Mode,
		"items", len(receipt.Parsed.Items),
		"has_total", receipt.Parsed.Total != nil,
		"has_date", receipt.Parsed.Date != nil,
	)
	return receipt, nil
}

// interpret runs the parser over the receipt pages and stores the outcome
func (s *Service) interpret(r *Receipt, mode interpret.Mode, now time.Time) {
	r.Mode = mode.String()
	r.Text = s.parser.Prepare(r.Pages, mode)
	r.Parsed = s.parser.Parse(r.Text, mode)
	r.UpdatedAt = now
	s.metrics.observeParse(r.Text, mode, r.Parsed)
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts, newest first
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	sort.SliceStable(receipts, func(i, j int) bool {
		if !receipts[i].CreatedAt.Equal(receipts[j].CreatedAt) {
			return receipts[i].CreatedAt.After(receipts[j].CreatedAt)
		}
		return receipts[i].ID < receipts[j].ID
	})
	return receipts, nil
}

// DeleteReceipt removes a receipt and its file
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if err := s.storage.Delete(receipt.Filename); err != nil {
		slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the source document of a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}

// ReparseReceipt runs the current parser over the stored pages again, in
// the given mode
func (s *Service) ReparseReceipt(id string, mode interpret.Mode) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	if len(receipt.Pages) == 0 {
		return nil, fmt.Errorf("reparsing receipt %s: %w", id, errNoPages)
	}

	previous := receipt.Parsed.Version
	s.interpret(receipt, mode, s.timeSource.Now())
	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	slog.Info("Receipt reparsed", "id", id, "mode", receipt.Mode, "previous_version", previous)
	return receipt, nil
}

var (
	// ErrExtraction wraps failures to read text out of an upload
	ErrExtraction = errors.New("extracting text")

	errNoPages = errors.New("no stored text")
)
