package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/insightdelivered/statement-layout-parser/internal/api"
	"github.com/insightdelivered/statement-layout-parser/internal/config"
	"github.com/insightdelivered/statement-layout-parser/internal/extractor"
	"github.com/insightdelivered/statement-layout-parser/internal/metrics"
	"github.com/insightdelivered/statement-layout-parser/internal/models"
	"github.com/insightdelivered/statement-layout-parser/internal/parser"
	"github.com/insightdelivered/statement-layout-parser/internal/statement"
	"github.com/insightdelivered/statement-layout-parser/internal/writer"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stderr)
	switch {
	case errors.Is(err, config.ErrVersionRequested):
		fmt.Printf("statement-parser v%s\n", version)
		os.Exit(0)
	case errors.Is(err, pflag.ErrHelp):
		os.Exit(0)
	case err != nil:
		fatalf("%v\n", err)
	}

	logger := config.NewLogger(cfg.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsServerMode() {
		if err := serve(ctx, cfg, logger); err != nil {
			fatalf("server: %v\n", err)
		}
		return
	}

	if len(cfg.Inputs) == 0 {
		fatalf("no input files; run with --help for usage\n")
	}
	if cfg.Output != "" && len(cfg.Inputs) > 1 {
		fatalf("--output can only be used with a single input file\n")
	}

	years, _ := cfg.Years() // validated by config.Load
	ex := statement.NewExtractor(parser.NewFactory(logger), logger, nil)
	opts := statement.Options{
		Issuer:      models.IssuerID(cfg.Issuer),
		Years:       years,
		Strict:      cfg.Strict,
		LineEpsilon: cfg.LineEpsilon,
	}

	for _, inputPath := range cfg.Inputs {
		if err := processFile(ctx, ex, cfg, opts, inputPath, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			os.Exit(1)
		}
	}
}

func processFile(ctx context.Context, ex *statement.Extractor, cfg *config.Config, opts statement.Options, inputPath string, logger *slog.Logger) error {
	fi, err := os.Stat(inputPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}
	if err != nil {
		return err
	}
	if fi.Size() > cfg.MaxFileSize {
		return fmt.Errorf("file is %d bytes; the limit is %d", fi.Size(), cfg.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(inputPath))
	if ext != ".pdf" {
		return fmt.Errorf("expected .pdf file, got %q", ext)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	doc, err := extractor.Open(inputPath, logger)
	if err != nil {
		return fmt.Errorf("PDF extraction failed: %w", err)
	}

	info, err := ex.Extract(ctx, doc, opts)
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}

	fmt.Printf("  Using %s parser v%s\n", info.Issuer, info.ParserVersion)
	fmt.Printf("  Found %d transaction(s) from %d candidate row(s) on %d page(s)\n",
		len(info.Transactions), info.AnchorsFound(), info.Pages)
	for outcome, n := range info.Rejected() {
		fmt.Printf("  Skipped %d row(s): %s\n", n, outcome)
	}
	if len(info.Transactions) == 0 {
		fmt.Println("  Warning: No transactions found. The page layout may not match the selected issuer.")
		fmt.Println("  Try specifying the issuer explicitly with --issuer if auto-detection was used.")
	}
	if dups := statement.FindPotentialDuplicates(info.Transactions); len(dups) > 0 {
		fmt.Printf("  Note: %d group(s) of possible duplicate transactions\n", len(dups))
	}

	w, err := writer.New(cfg.Format, cfg.Header)
	if err != nil {
		return err
	}
	outPath := cfg.Output
	if outPath == "" {
		outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + w.Extension()
	}
	if err := writer.WriteToFile(outPath, w, info); err != nil {
		return fmt.Errorf("%s write failed: %w", cfg.Format, err)
	}

	fmt.Printf("  Output: %s\n", outPath)
	fmt.Println("  Done.")
	return nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	years, _ := cfg.Years()
	h := api.NewHandler(api.Options{
		Factory:     parser.NewFactory(logger),
		Metrics:     metrics.NewRecorder(),
		Logger:      logger,
		MaxFileSize: cfg.MaxFileSize,
		LineEpsilon: cfg.LineEpsilon,
		Years:       years,
	})
	app := h.NewApp()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Address())
		errCh <- app.Listen(cfg.Address())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
