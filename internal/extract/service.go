package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/schemedesk/district-kb/internal/entity"
	"github.com/schemedesk/district-kb/internal/llm"
	"github.com/schemedesk/district-kb/internal/repository"
)

// Config holds chunking and scheduling knobs for the pipeline.
type Config struct {
	ChunkSize   int
	OverlapSize int
	Parallelism int
}

// ExtractInput is one already-validated extraction request.
type ExtractInput struct {
	DocumentID int64
	DistrictID int64
	District   string
	Text       string
	UploadDate string // YYYY-MM-DD
}

// Result reports the outcome of one extraction run. Errors holds
// per-(sector, sub-category) failures; keys not listed there were stored.
type Result struct {
	Success     bool     `json:"success"`
	StoredCount int      `json:"stored_count"`
	Errors      []string `json:"errors"`
}

// Service runs the document-to-knowledge pipeline: chunk, extract per chunk
// with bounded parallelism, merge in chunk order, then merge each
// (sector, sub-category) record into stored history under a per-key lock.
// Constructed once and shared; safe for concurrent use.
type Service struct {
	cfg       Config
	extractor Extractor
	store     repository.ExtractionRepository
	documents repository.DocumentRepository
	validate  func(data []byte) error
	locks     *keyLocks
	logger    *slog.Logger
}

func NewService(cfg Config, extractor Extractor, store repository.ExtractionRepository, documents repository.DocumentRepository, logger *slog.Logger) (*Service, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 8000
	}
	if cfg.OverlapSize < 0 || cfg.OverlapSize >= cfg.ChunkSize {
		return nil, fmt.Errorf("overlap size %d must be in [0, chunk size %d)", cfg.OverlapSize, cfg.ChunkSize)
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if logger == nil {
		logger = slog.Default()
	}

	schema, err := llm.CompileSchema(llm.BuildRecordJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	return &Service{
		cfg:       cfg,
		extractor: extractor,
		store:     store,
		documents: documents,
		validate:  func(data []byte) error { return llm.ValidateJSON(schema, data) },
		locks:     newKeyLocks(),
		logger:    logger,
	}, nil
}

// ExtractAndStore runs the full pipeline for one document. A run fails
// outright only when more than half of the chunks fail; otherwise it stores
// whatever was recovered and reports per-key errors. Re-running for the same
// document is idempotent: new rows simply supersede the prior latest rows.
func (s *Service) ExtractAndStore(ctx context.Context, in ExtractInput) (*Result, error) {
	start := time.Now()

	chunks, err := SplitText(in.Text, s.cfg.ChunkSize, s.cfg.OverlapSize)
	if err != nil {
		return nil, err
	}
	s.logger.Info("extract.run.start",
		"document_id", in.DocumentID, "district", in.District,
		"text_len", len(in.Text), "chunks", len(chunks))

	partials, failed := s.extractChunks(ctx, chunks, in)
	if failed*2 > len(chunks) {
		s.logger.Error("extract.run.majority_failed",
			"document_id", in.DocumentID, "failed", failed, "chunks", len(chunks))
		return nil, fmt.Errorf("extraction failed: %d of %d chunks unrecoverable", failed, len(chunks))
	}
	if failed > 0 {
		s.logger.Warn("extract.run.partial",
			"document_id", in.DocumentID, "failed", failed, "chunks", len(chunks))
	}

	merged := MergeChunkResults(partials, in.District, in.UploadDate)
	result := s.storeMerged(ctx, in, merged)

	s.logger.Info("extract.run.done",
		"document_id", in.DocumentID, "stored", result.StoredCount,
		"key_errors", len(result.Errors), "elapsed_ms", time.Since(start).Milliseconds())
	return result, nil
}

// extractChunks fans the chunks out over a bounded worker group. Results land
// in chunk order regardless of completion order; the merge tie-break is
// defined over chunk sequence, not completion time.
func (s *Service) extractChunks(ctx context.Context, chunks []string, in ExtractInput) ([]*entity.StructuredExtraction, int) {
	partials := make([]*entity.StructuredExtraction, len(chunks))

	var g errgroup.Group
	g.SetLimit(s.cfg.Parallelism)
	var mu sync.Mutex
	failed := 0

	for i, chunk := range chunks {
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			partial, err := s.extractor.Extract(ctx, chunk, in.District, in.UploadDate, i+1, len(chunks))
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			partials[i] = partial
			return nil
		})
	}
	_ = g.Wait()
	return partials, failed
}

// storeMerged merges each extracted record into the stored history and writes
// the new latest snapshot. Each key is an independent small transaction:
// failures are collected per key and never abort the others.
func (s *Service) storeMerged(ctx context.Context, in ExtractInput, merged *entity.StructuredExtraction) *Result {
	result := &Result{Success: true, Errors: []string{}}

	for _, sectorName := range sortedKeys(merged.Sectors) {
		subs := merged.Sectors[sectorName]
		for _, subName := range sortedKeys(subs) {
			if err := s.storeKey(ctx, in, sectorName, subName, subs[subName]); err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s/%s: %v", sectorName, subName, err))
				continue
			}
			result.StoredCount++
		}
	}
	return result
}

func (s *Service) storeKey(ctx context.Context, in ExtractInput, sector, subCategory string, rec *entity.SubCategoryRecord) error {
	data, err := entity.MarshalRecord(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.validate(data); err != nil {
		s.logger.Warn("extract.store.invalid_record",
			"document_id", in.DocumentID, "sector", sector, "sub_category", subCategory, "error", err)
		return fmt.Errorf("validate record: %w", err)
	}

	// Serialize the read-modify-write per key so concurrent re-extractions
	// cannot lose each other's updates.
	key := fmt.Sprintf("%d\x00%s\x00%s", in.DistrictID, sector, subCategory)
	lock := s.locks.get(key)
	lock.Lock()
	defer lock.Unlock()

	prior, err := s.store.GetLatestRecord(ctx, in.DistrictID, sector, subCategory)
	if err != nil {
		return fmt.Errorf("read prior latest: %w", err)
	}
	final := MergeIntoHistory(rec, prior)
	finalData, err := entity.MarshalRecord(final)
	if err != nil {
		return fmt.Errorf("encode merged record: %w", err)
	}

	return s.store.StoreLatest(ctx, repository.StoreLatestParams{
		DocumentID:  in.DocumentID,
		DistrictID:  in.DistrictID,
		SectorName:  sector,
		SubCategory: subCategory,
		DataJSON:    finalData,
		VersionDate: in.UploadDate,
	})
}

// ReExtract re-runs the pipeline on a stored document's raw text. The new
// snapshots supersede the document's prior latest rows.
func (s *Service) ReExtract(ctx context.Context, documentID int64) (*Result, error) {
	doc, districtName, err := s.documents.GetWithDistrict(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.RawText == "" {
		return nil, fmt.Errorf("document %d has no stored text", documentID)
	}
	return s.ExtractAndStore(ctx, ExtractInput{
		DocumentID: doc.ID,
		DistrictID: doc.DistrictID,
		District:   districtName,
		Text:       doc.RawText,
		UploadDate: doc.UploadDate,
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
