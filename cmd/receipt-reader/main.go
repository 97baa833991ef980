package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-reader/internal/interpret"
	"github.com/zombor/receipt-reader/internal/logging"
	"github.com/zombor/receipt-reader/internal/receipt"
	"github.com/zombor/receipt-reader/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env file is fine; flags and the environment still apply.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	defaults := interpret.DefaultConfig()
	fs := ff.NewFlagSet("receipt-reader")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		dbPath       = fs.StringLong("db", "receipt-reader.db", "Database file path")
		storagePath  = fs.StringLong("storage", "./receipts", "Storage directory path")
		pdfEngine    = fs.StringLong("pdf-engine", scanning.EngineFitz, "PDF text engine: 'fitz' or 'native'")
		modeName     = fs.StringLong("mode", "line", "Default item mode: 'line' or 'flat'")
		tolerance    = fs.Float64Long("fallback-tolerance", defaults.FallbackTolerance, "Difference under which a reconstructed total replaces the keyword total")
		preferLarger = fs.BoolLongDefault("prefer-larger-fallback", defaults.PreferLargerFallback, "Let a larger reconstructed total replace the keyword total")
		currency     = fs.StringLong("currency", defaults.DefaultCurrency, "Currency used when a document names none")
		mergeLines   = fs.BoolLong("merge-continuations", "Join multi-line item descriptions before parsing in line mode")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel     = fs.StringLong("log-level", "", "Log level: debug, info, warn, error (or set LOG_LEVEL)")
		parseFile    = fs.StringLong("parse", "", "Parse one file ('-' for stdin), print JSON and exit")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_READER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logging.Setup(*logLevel)

	mode, err := interpret.ParseMode(*modeName)
	if err != nil {
		slog.Error("Invalid mode", "error", err)
		os.Exit(1)
	}

	parser := interpret.NewParser(interpret.Config{
		FallbackTolerance:    *tolerance,
		PreferLargerFallback: *preferLarger,
		DefaultCurrency:      *currency,
		MergeContinuations:   *mergeLines,
	})

	source, err := scanning.NewExtractor(*pdfEngine)
	if err != nil {
		slog.Error("Invalid PDF engine", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	if *parseFile != "" {
		if err := parseOnce(os.Stdout, *parseFile, source, parser, mode); err != nil {
			slog.Error("Failed to parse receipt", "file", *parseFile, "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	receiptService := receipt.NewService(db, source, store, parser)
	receiptService.SetDefaultMode(mode)

	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(receiptService, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started",
		"address", fmt.Sprintf("http://localhost%s", addr),
		"version", version,
		"pdf_engine", source.Engine(),
		"mode", mode,
	)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Shutdown error", "error", err)
	}
}

// parseOnce extracts and parses a single document and writes the result as JSON.
func parseOnce(w io.Writer, path string, source scanning.TextSource, parser *interpret.Parser, mode interpret.Mode) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	pages, err := source.ExtractPages(data, "")
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(parser.ParsePages(pages, mode))
}
