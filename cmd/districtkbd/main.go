package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schemedesk/district-kb/constants"
	"github.com/schemedesk/district-kb/internal/async"
	"github.com/schemedesk/district-kb/internal/common"
	"github.com/schemedesk/district-kb/internal/export"
	"github.com/schemedesk/district-kb/internal/extract"
	"github.com/schemedesk/district-kb/internal/ingest"
	"github.com/schemedesk/district-kb/internal/llm"
	"github.com/schemedesk/district-kb/internal/repository"
	"github.com/schemedesk/district-kb/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	taxonomy := constants.DefaultTaxonomy()
	if cfg.Extraction.TaxonomyFile != "" {
		loaded, err := constants.LoadTaxonomy(cfg.Extraction.TaxonomyFile)
		if err != nil {
			logger.Error("taxonomy.load_failed", "path", cfg.Extraction.TaxonomyFile, "error", err)
			os.Exit(1)
		}
		taxonomy = loaded
		logger.Info("taxonomy.loaded", "path", cfg.Extraction.TaxonomyFile, "sectors", len(taxonomy))
	}

	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("db.open_failed", "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)

	if err := db.Migrate(ctx); err != nil {
		logger.Error("db.migrate_failed", "error", err)
		os.Exit(1)
	}
	if err := db.HealthCheck(ctx, 3*time.Second); err != nil {
		logger.Error("db.health_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("db.health_ok")

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
		logger.Error("pipeline.init_failed", "error", err)
		os.Exit(1)
	}

	queue := async.NewExtractQueue(pipeline, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithProcessTimeout(cfg.LLM.Timeout*3))

	if cfg.Ingest.UploadDir != "" {
		if err := os.MkdirAll(cfg.Ingest.UploadDir, 0o755); err != nil {
			logger.Error("upload_dir.create_failed", "dir", cfg.Ingest.UploadDir, "error", err)
			os.Exit(1)
		}
	}

	if cfg.Ingest.WatchDir != "" {
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:    []string{cfg.Ingest.WatchDir},
			Debounce: 2 * time.Second,
		}, logger)
		if err != nil {
			logger.Error("watcher.start_failed", "dir", cfg.Ingest.WatchDir, "error", err)
			os.Exit(1)
		}
		dropper := ingest.NewService(districts, documents, queue, logger)
		go dropper.Run(ctx, events, errs)
	}

	handler := server.NewHandler(server.HandlerConfig{
		Districts:   districts,
		Documents:   documents,
		Extractions: extractions,
		Pipeline:    pipeline,
		Exporter:    export.NewService(logger),
		Queue:       queue,
		Completer:   completer,
		Taxonomy:    taxonomy,
		UploadDir:   cfg.Ingest.UploadDir,
		ChatTemp:    cfg.LLM.ChatTemperature,
		Logger:      logger,
	})
	srv := server.New(cfg.Server.Addr, server.NewRouter(handler), logger)

	if err := srv.Run(ctx); err != nil {
		logger.Error("http.run_failed", "error", err)
		os.Exit(1)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(drainCtx)
	logger.Info("stopped")
}
