package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/schemedesk/district-kb/internal/common"
	"github.com/schemedesk/district-kb/internal/entity"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.Document, error)
	// GetWithDistrict also resolves the owning district's name, which the
	// re-extraction path needs for prompt building.
	GetWithDistrict(ctx context.Context, id int64) (*entity.Document, string, error)
}

type documentRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	return &documentRepository{db: db, logger: logger}
}

func (r *documentRepository) Create(ctx context.Context, doc *entity.Document) (int64, error) {
	query, args, err := r.db.Builder().
		Insert("documents").
		Columns("district_id", "file_name", "file_path", "upload_date", "uploaded_by", "raw_text").
		Values(doc.DistrictID, doc.FileName, doc.FilePath, doc.UploadDate, doc.UploadedBy, doc.RawText).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, err
	}
	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		r.logger.Error("document.create_failed", "file_name", doc.FileName, "error", err)
		return 0, common.WrapError(err, "create document")
	}
	r.logger.Info("document.created", "document_id", id,
		"district_id", doc.DistrictID, "file_name", doc.FileName, "text_len", len(doc.RawText))
	return id, nil
}

func (r *documentRepository) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	query, args, err := r.db.Builder().
		Select("id", "district_id", "file_name", "file_path", "upload_date", "uploaded_by", "raw_text").
		From("documents").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var doc entity.Document
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&doc.ID, &doc.DistrictID, &doc.FileName, &doc.FilePath,
		&doc.UploadDate, &doc.UploadedBy, &doc.RawText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("DOCUMENT_NOT_FOUND", fmt.Sprintf("document %d", id), common.ErrNotFound)
	}
	if err != nil {
		return nil, common.WrapError(err, "get document")
	}
	return &doc, nil
}

func (r *documentRepository) GetWithDistrict(ctx context.Context, id int64) (*entity.Document, string, error) {
	query, args, err := r.db.Builder().
		Select("doc.id", "doc.district_id", "doc.file_name", "doc.file_path",
			"doc.upload_date", "doc.uploaded_by", "doc.raw_text", "d.name").
		From("documents doc").
		Join("districts d ON d.id = doc.district_id").
		Where(sq.Eq{"doc.id": id}).ToSql()
	if err != nil {
		return nil, "", err
	}
	var doc entity.Document
	var districtName string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&doc.ID, &doc.DistrictID, &doc.FileName, &doc.FilePath,
		&doc.UploadDate, &doc.UploadedBy, &doc.RawText, &districtName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", common.NewAppError("DOCUMENT_NOT_FOUND", fmt.Sprintf("document %d", id), common.ErrNotFound)
	}
	if err != nil {
		return nil, "", common.WrapError(err, "get document with district")
	}
	return &doc, districtName, nil
}
