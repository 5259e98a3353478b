package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
)

// DB wraps database/sql with the dialect-aware statement builder the
// repositories use. Postgres DSNs go through a pgx pool; anything else is
// treated as a SQLite file path (the embedded default).
type DB struct {
	*sql.DB
	dialect string
	sb      sq.StatementBuilderType
	pool    *pgxpool.Pool
}

// Builder returns the placeholder-correct squirrel builder for this database.
func (d *DB) Builder() sq.StatementBuilderType { return d.sb }

// Open connects to the database selected by the DSN.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		return openPostgres(ctx, cfg, logger)
	}
	return openSQLite(cfg, logger)
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("db.connect", "dialect", dialectPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("db.connect_failed", "error", err)
		return nil, err
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "district-kb"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("db.connect_failed", "error", err)
		return nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("db.connected", "dialect", dialectPostgres)
	return &DB{
		DB:      db,
		dialect: dialectPostgres,
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		pool:    pool,
	}, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("db.connect", "dialect", dialectSQLite, "path", cfg.DSN)
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		logger.Error("db.connect_failed", "error", err)
		return nil, err
	}
	// Single writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	return &DB{
		DB:      db,
		dialect: dialectSQLite,
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close closes the database connections gracefully.
func (d *DB) Close(logger *slog.Logger) {
	logger.Info("db.closing")
	if err := d.DB.Close(); err != nil {
		logger.Error("db.close_failed", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	logger.Info("db.closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return d.PingContext(ctx)
}

// Migrate bootstraps the schema. Idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d.dialect == dialectPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS districts (
			id ` + serial + `,
			name TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id ` + serial + `,
			district_id BIGINT NOT NULL,
			file_name TEXT NOT NULL,
			file_path TEXT NOT NULL,
			upload_date TEXT NOT NULL,
			uploaded_by TEXT NOT NULL DEFAULT '',
			raw_text TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS extractions (
			id ` + serial + `,
			document_id BIGINT NOT NULL,
			district_id BIGINT NOT NULL,
			sector_name TEXT NOT NULL,
			sub_category TEXT NOT NULL,
			data_json TEXT NOT NULL,
			version_date TEXT NOT NULL,
			is_latest BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_extractions_key
			ON extractions (district_id, sector_name, sub_category, is_latest)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_district
			ON documents (district_id)`,
	}
	for _, stmt := range stmts {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
