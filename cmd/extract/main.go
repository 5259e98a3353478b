package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schemedesk/district-kb/constants"
	"github.com/schemedesk/district-kb/internal/common"
	"github.com/schemedesk/district-kb/internal/entity"
	"github.com/schemedesk/district-kb/internal/extract"
	"github.com/schemedesk/district-kb/internal/llm"
	"github.com/schemedesk/district-kb/internal/repository"
)

// One-shot extraction: read a plain-text report, run the pipeline, store the
// result, print the per-key outcome as JSON.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var (
		filePath   = flag.String("file", "", "path to the plain-text report (required)")
		district   = flag.String("district", "", "district name (required)")
		uploadDate = flag.String("date", time.Now().Format("2006-01-02"), "report date, YYYY-MM-DD")
		uploadedBy = flag.String("uploaded-by", "cli", "uploader recorded on the document")
	)
	flag.Parse()

	if *filePath == "" || *district == "" {
		flag.Usage()
		os.Exit(2)
	}
	if _, err := time.Parse("2006-01-02", *uploadDate); err != nil {
		logger.Error("invalid date, want YYYY-MM-DD", "date", *uploadDate)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(1)
	}

	raw, err := os.ReadFile(*filePath)
	if err != nil {
		logger.Error("read file", "path", *filePath, "error", err)
		os.Exit(1)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		logger.Error("file is empty", "path", *filePath)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)
	if err := db.Migrate(ctx); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}

	taxonomy := constants.DefaultTaxonomy()
	if cfg.Extraction.TaxonomyFile != "" {
		if taxonomy, err = constants.LoadTaxonomy(cfg.Extraction.TaxonomyFile); err != nil {
			logger.Error("load taxonomy", "path", cfg.Extraction.TaxonomyFile, "error", err)
			os.Exit(1)
		}
	}

	districts := repository.NewDistrictRepository(db, logger)
	documents := repository.NewDocumentRepository(db, logger)
	extractions := repository.NewExtractionRepository(db, logger)

	completer := llm.NewClient(llm.Config{
		URL:     cfg.LLM.URL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	extractor := extract.NewChunkExtractor(completer, taxonomy, cfg.LLM.Temperature, logger)
	pipeline, err := extract.NewService(extract.Config{
		ChunkSize:   cfg.Extraction.ChunkSize,
		OverlapSize: cfg.Extraction.OverlapSize,
		Parallelism: cfg.Extraction.Parallelism,
	}, extractor, extractions, documents, logger)
	if err != nil {
		logger.Error("pipeline init", "error", err)
		os.Exit(1)
	}

	d, err := districts.GetOrCreate(ctx, *district)
	if err != nil {
		logger.Error("district", "name", *district, "error", err)
		os.Exit(1)
	}
	docID, err := documents.Create(ctx, &entity.Document{
		DistrictID: d.ID,
		FileName:   filepath.Base(*filePath),
		FilePath:   *filePath,
		UploadDate: *uploadDate,
		UploadedBy: *uploadedBy,
		RawText:    text,
	})
	if err != nil {
		logger.Error("store document", "error", err)
		os.Exit(1)
	}

	result, err := pipeline.ExtractAndStore(ctx, extract.ExtractInput{
		DocumentID: docID,
		DistrictID: d.ID,
		District:   d.Name,
		Text:       text,
		UploadDate: *uploadDate,
	})
	if err != nil {
		logger.Error("extraction failed", "document_id", docID, "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(map[string]any{
		"document_id": docID,
		"district":    d.Name,
		"result":      result,
	}, "", "  ")
	fmt.Println(string(out))
}
