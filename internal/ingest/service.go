package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schemedesk/district-kb/internal/async"
	"github.com/schemedesk/district-kb/internal/entity"
	"github.com/schemedesk/district-kb/internal/repository"
)

// Service turns files discovered on disk into stored documents and queued
// extraction jobs. The district is taken from the file's parent directory
// name, so a drop folder is laid out as <root>/<district>/<report>.txt.
type Service struct {
	districts repository.DistrictRepository
	documents repository.DocumentRepository
	queue     *async.ExtractQueue
	logger    *slog.Logger
}

func NewService(districts repository.DistrictRepository, documents repository.DocumentRepository, queue *async.ExtractQueue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{districts: districts, documents: documents, queue: queue, logger: logger}
}

// IngestFile stores the file as a document under the district named by its
// parent directory and enqueues extraction. Returns the new document id.
func (s *Service) IngestFile(ctx context.Context, path string) (int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return 0, fmt.Errorf("file %s is empty", path)
	}

	districtName := filepath.Base(filepath.Dir(path))
	district, err := s.districts.GetOrCreate(ctx, districtName)
	if err != nil {
		return 0, err
	}

	docID, err := s.documents.Create(ctx, &entity.Document{
		DistrictID: district.ID,
		FileName:   filepath.Base(path),
		FilePath:   path,
		UploadDate: time.Now().Format("2006-01-02"),
		UploadedBy: "watcher",
		RawText:    text,
	})
	if err != nil {
		return 0, err
	}

	err = s.queue.Enqueue(ctx, async.Job{
		DocumentID:  docID,
		SubmittedAt: time.Now(),
		TraceID:     uuid.NewString(),
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("ingest.file_queued", "path", path, "district", districtName, "document_id", docID)
	return docID, nil
}

// Run consumes watcher events until ctx is cancelled or the event channel
// closes. Failures on individual files are logged, not fatal.
func (s *Service) Run(ctx context.Context, events <-chan string, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			if _, err := s.IngestFile(ctx, path); err != nil {
				s.logger.Error("ingest.file_failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if ok && err != nil {
				s.logger.Error("ingest.watch_error", "error", err)
			}
		}
	}
}
