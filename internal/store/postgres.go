// Package store persists validated records to PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/carelake/ingest/internal/config"
	"github.com/carelake/ingest/internal/record"
	"github.com/carelake/ingest/internal/schema"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store writes validated batches to the database over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	url  string
	log  *slog.Logger
}

// New connects a pool with the configured sizing and verifies the connection
// with a ping.
func New(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool, url: cfg.URL, log: log}, nil
}

// Migrate applies all pending schema migrations. Goose runs over a
// database/sql handle, so a short-lived one is opened via the pgx stdlib
// driver alongside the pool.
func (s *Store) Migrate(ctx context.Context) error {
	db, err := sql.Open("pgx", s.url)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	s.log.Info("database migrations applied")
	return nil
}

// InsertBatch writes validated records to the schema's table in one
// transaction using COPY, falling back to per-row INSERTs when the server
// rejects the COPY protocol. The records' values are laid out in the schema's
// declared column order. Returns the number of rows written.
func (s *Store) InsertBatch(ctx context.Context, sch schema.Schema, recs []record.ValidatedRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{sch.Table},
		sch.DBColumns(),
		pgx.CopyFromSlice(len(recs), func(i int) ([]any, error) {
			return recs[i].Row(), nil
		}),
	)
	if err != nil {
		tx.Rollback(ctx)
		s.log.Warn("copy failed, falling back to row inserts", "table", sch.Table, "error", err)
		return s.insertRows(ctx, sch, recs)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return n, nil
}

// insertRows is the COPY fallback: one INSERT per record, still in a single
// transaction so a mid-batch failure leaves nothing behind.
func (s *Store) insertRows(ctx context.Context, sch schema.Schema, recs []record.ValidatedRecord) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := insertStatement(sch)
	for _, rec := range recs {
		if _, err := tx.Exec(ctx, stmt, rec.Row()...); err != nil {
			return 0, fmt.Errorf("insert into %s (source line %d): %w", sch.Table, rec.Line(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return int64(len(recs)), nil
}

func insertStatement(sch schema.Schema) string {
	cols := sch.DBColumns()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{sch.Table}.Sanitize(),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "))
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
