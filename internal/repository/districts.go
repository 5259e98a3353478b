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

// DeleteDistrictResult reports what a cascading district delete removed.
type DeleteDistrictResult struct {
	DistrictName       string   `json:"district_name"`
	DeletedDocuments   int64    `json:"deleted_documents"`
	DeletedExtractions int64    `json:"deleted_extractions"`
	FilePaths          []string `json:"-"`
}

type DistrictRepository interface {
	GetOrCreate(ctx context.Context, name string) (*entity.District, error)
	GetByName(ctx context.Context, name string) (*entity.District, error)
	List(ctx context.Context) ([]*entity.District, error)
	Names(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) (*DeleteDistrictResult, error)
}

type districtRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewDistrictRepository(db *DB, logger *slog.Logger) DistrictRepository {
	return &districtRepository{db: db, logger: logger}
}

func (r *districtRepository) GetOrCreate(ctx context.Context, name string) (*entity.District, error) {
	d, err := r.GetByName(ctx, name)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	query, args, err := r.db.Builder().
		Insert("districts").Columns("name").Values(name).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return nil, err
	}
	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		r.logger.Error("district.create_failed", "name", name, "error", err)
		return nil, common.WrapError(err, "create district")
	}
	r.logger.Info("district.created", "name", name, "district_id", id)
	return &entity.District{ID: id, Name: name}, nil
}

func (r *districtRepository) GetByName(ctx context.Context, name string) (*entity.District, error) {
	query, args, err := r.db.Builder().
		Select("id", "name").From("districts").Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return nil, err
	}
	var d entity.District
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&d.ID, &d.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("DISTRICT_NOT_FOUND", name, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.WrapError(err, "get district")
	}
	return &d, nil
}

func (r *districtRepository) List(ctx context.Context) ([]*entity.District, error) {
	query, args, err := r.db.Builder().
		Select("d.id", "d.name", "COUNT(doc.id)").
		From("districts d").
		LeftJoin("documents doc ON doc.district_id = d.id").
		GroupBy("d.id", "d.name").
		OrderBy("d.name").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("district.list_failed", "error", err)
		return nil, common.WrapError(err, "list districts")
	}
	defer rows.Close()

	var out []*entity.District
	for rows.Next() {
		var d entity.District
		if err := rows.Scan(&d.ID, &d.Name, &d.DocumentCount); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *districtRepository) Names(ctx context.Context) ([]string, error) {
	query, args, err := r.db.Builder().
		Select("name").From("districts").OrderBy("name").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.WrapError(err, "list district names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Delete removes a district with its documents and extractions in one
// transaction and reports the stored file paths so the caller can clean up
// the upload directory.
func (r *districtRepository) Delete(ctx context.Context, name string) (*DeleteDistrictResult, error) {
	d, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.WrapError(err, "begin delete district")
	}
	defer func() { _ = tx.Rollback() }()

	pathQuery, pathArgs, err := r.db.Builder().
		Select("file_path").From("documents").Where(sq.Eq{"district_id": d.ID}).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := tx.QueryContext(ctx, pathQuery, pathArgs...)
	if err != nil {
		return nil, common.WrapError(err, "list document paths")
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, err
		}
		if p != "" {
			paths = append(paths, p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	res := &DeleteDistrictResult{DistrictName: name, FilePaths: paths}

	del := func(table string) (int64, error) {
		query, args, err := r.db.Builder().
			Delete(table).Where(sq.Eq{"district_id": d.ID}).ToSql()
		if err != nil {
			return 0, err
		}
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("delete from %s: %w", table, err)
		}
		n, _ := result.RowsAffected()
		return n, nil
	}

	if res.DeletedExtractions, err = del("extractions"); err != nil {
		return nil, err
	}
	if res.DeletedDocuments, err = del("documents"); err != nil {
		return nil, err
	}

	query, args, err := r.db.Builder().
		Delete("districts").Where(sq.Eq{"id": d.ID}).ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, common.WrapError(err, "delete district")
	}

	if err := tx.Commit(); err != nil {
		return nil, common.WrapError(err, "commit delete district")
	}
	r.logger.Info("district.deleted", "name", name,
		"documents", res.DeletedDocuments, "extractions", res.DeletedExtractions)
	return res, nil
}
