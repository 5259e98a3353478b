package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/schemedesk/district-kb/internal/common"
	"github.com/schemedesk/district-kb/internal/entity"
)

// StoreLatestParams carries one new snapshot for a (district, sector,
// sub-category) key.
type StoreLatestParams struct {
	DocumentID  int64
	DistrictID  int64
	SectorName  string
	SubCategory string
	DataJSON    []byte
	VersionDate string // YYYY-MM-DD
}

// SectorCategories groups the sub-categories seen for one sector.
type SectorCategories struct {
	SectorName    string   `json:"sector_name"`
	SubCategories []string `json:"sub_categories"`
}

// ExtractionRepository is the versioned store. For any (district, sector,
// sub-category) key at most one row has is_latest set; superseded rows are
// kept forever for history queries.
type ExtractionRepository interface {
	// StoreLatest flips all prior rows for the key to is_latest=false and
	// inserts the new row as latest, in a single transaction.
	StoreLatest(ctx context.Context, p StoreLatestParams) error
	// GetLatestRecord returns the decoded latest payload for a key, or nil
	// when the key was never written.
	GetLatestRecord(ctx context.Context, districtID int64, sector, subCategory string) (*entity.SubCategoryRecord, error)
	// ListLatest returns latest rows for a district; empty sector or
	// sub-category filters are ignored.
	ListLatest(ctx context.Context, districtID int64, sector, subCategory string) ([]*entity.Extraction, error)
	// ListHistory returns every row for a district, newest version first.
	ListHistory(ctx context.Context, districtID int64) ([]*entity.Extraction, error)
	// Categories lists the distinct sector/sub-category pairs present in
	// latest rows.
	Categories(ctx context.Context) ([]SectorCategories, error)
}

type extractionRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewExtractionRepository(db *DB, logger *slog.Logger) ExtractionRepository {
	return &extractionRepository{db: db, logger: logger}
}

func (r *extractionRepository) StoreLatest(ctx context.Context, p StoreLatestParams) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return common.WrapError(err, "begin store latest")
	}
	defer func() { _ = tx.Rollback() }()

	update, args, err := r.db.Builder().
		Update("extractions").
		Set("is_latest", false).
		Where(sq.Eq{
			"district_id":  p.DistrictID,
			"sector_name":  p.SectorName,
			"sub_category": p.SubCategory,
		}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, update, args...); err != nil {
		r.logger.Error("extraction.outdate_failed",
			"district_id", p.DistrictID, "sector", p.SectorName, "sub_category", p.SubCategory, "error", err)
		return common.WrapError(err, "outdate prior extractions")
	}

	insert, args, err := r.db.Builder().
		Insert("extractions").
		Columns("document_id", "district_id", "sector_name", "sub_category", "data_json", "version_date", "is_latest").
		Values(p.DocumentID, p.DistrictID, p.SectorName, p.SubCategory, string(p.DataJSON), p.VersionDate, true).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		r.logger.Error("extraction.insert_failed",
			"district_id", p.DistrictID, "sector", p.SectorName, "sub_category", p.SubCategory, "error", err)
		return common.WrapError(err, "insert extraction")
	}

	if err := tx.Commit(); err != nil {
		return common.WrapError(err, "commit store latest")
	}
	r.logger.Info("extraction.stored",
		"district_id", p.DistrictID, "sector", p.SectorName,
		"sub_category", p.SubCategory, "version_date", p.VersionDate)
	return nil
}

func (r *extractionRepository) GetLatestRecord(ctx context.Context, districtID int64, sector, subCategory string) (*entity.SubCategoryRecord, error) {
	query, args, err := r.db.Builder().
		Select("data_json").From("extractions").
		Where(sq.Eq{
			"district_id":  districtID,
			"sector_name":  sector,
			"sub_category": subCategory,
			"is_latest":    true,
		}).ToSql()
	if err != nil {
		return nil, err
	}
	var data string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(err, "get latest record")
	}
	rec, err := entity.UnmarshalRecord([]byte(data))
	if err != nil {
		return nil, common.WrapError(err, "decode latest record")
	}
	return rec, nil
}

func (r *extractionRepository) ListLatest(ctx context.Context, districtID int64, sector, subCategory string) ([]*entity.Extraction, error) {
	where := sq.Eq{"e.district_id": districtID, "e.is_latest": true}
	if sector != "" {
		where["e.sector_name"] = sector
	}
	if subCategory != "" {
		where["e.sub_category"] = subCategory
	}
	query, args, err := r.db.Builder().
		Select("e.id", "e.document_id", "e.district_id", "e.sector_name", "e.sub_category",
			"e.data_json", "e.version_date", "e.is_latest", "doc.file_name").
		From("extractions e").
		Join("documents doc ON doc.id = e.document_id").
		Where(where).
		OrderBy("e.sector_name", "e.sub_category").ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryExtractions(ctx, query, args, false)
}

func (r *extractionRepository) ListHistory(ctx context.Context, districtID int64) ([]*entity.Extraction, error) {
	query, args, err := r.db.Builder().
		Select("e.id", "e.document_id", "e.district_id", "e.sector_name", "e.sub_category",
			"e.data_json", "e.version_date", "e.is_latest", "doc.file_name", "doc.uploaded_by").
		From("extractions e").
		Join("documents doc ON doc.id = e.document_id").
		Where(sq.Eq{"e.district_id": districtID}).
		OrderBy("e.version_date DESC", "e.sector_name", "e.sub_category").ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryExtractions(ctx, query, args, true)
}

func (r *extractionRepository) queryExtractions(ctx context.Context, query string, args []any, withUploader bool) ([]*entity.Extraction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("extraction.query_failed", "error", err)
		return nil, common.WrapError(err, "query extractions")
	}
	defer rows.Close()

	var out []*entity.Extraction
	for rows.Next() {
		var e entity.Extraction
		var data string
		dest := []any{&e.ID, &e.DocumentID, &e.DistrictID, &e.SectorName, &e.SubCategory,
			&data, &e.VersionDate, &e.IsLatest, &e.FileName}
		if withUploader {
			dest = append(dest, &e.UploadedBy)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		e.DataJSON = []byte(data)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *extractionRepository) Categories(ctx context.Context) ([]SectorCategories, error) {
	query, args, err := r.db.Builder().
		Select("DISTINCT sector_name", "sub_category").
		From("extractions").
		Where(sq.Eq{"is_latest": true}).
		OrderBy("sector_name", "sub_category").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.WrapError(err, "query categories")
	}
	defer rows.Close()

	var out []SectorCategories
	for rows.Next() {
		var sector, sub string
		if err := rows.Scan(&sector, &sub); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].SectorName != sector {
			out = append(out, SectorCategories{SectorName: sector})
		}
		last := &out[len(out)-1]
		last.SubCategories = append(last.SubCategories, sub)
	}
	return out, rows.Err()
}
