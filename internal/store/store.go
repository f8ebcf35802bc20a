// Package store provides transactional persistence for clusters, pools,
// deployments and volumes on Postgres.
//
// All orchestrator writes of (status, error_message) are single
// statements and therefore atomic with any dependent field. Cascade
// deletes of a cluster's children happen inside one transaction.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/datainfrapilot/dip/internal/apperror"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store wraps the database handle shared by all repositories.
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(s.db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// inTx runs fn inside a transaction, committing on nil and rolling back
// on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const pgUniqueViolation = "23505"

// checkFound converts a zero-row update or delete into a not_found error.
func checkFound(res sql.Result, detail string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.Wrap(apperror.CodeInternal, detail, err)
	}
	if n == 0 {
		return apperror.New(apperror.CodeNotFound, detail+" not found")
	}
	return nil
}

// classify translates database errors into the wire taxonomy:
// missing rows surface as not_found, unique violations as conflict.
func classify(err error, detail string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.Wrap(apperror.CodeNotFound, detail, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperror.Wrap(apperror.CodeConflict, detail+" already exists", err)
	}
	return apperror.Wrap(apperror.CodeInternal, detail, err)
}
