// Package store persists users and submissions in a SQL database. SQLite is
// the default; PostgreSQL and MySQL are supported through the same queries
// rebound to each driver's placeholder style.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/workdoc/workdoc/internal/model"
)

// Store is the single source of truth for identities and submissions.
type Store struct {
	db      *sqlx.DB
	dialect dialect
}

// NewStore opens the database for driver and applies pending migrations.
// An empty driver selects SQLite; an empty SQLite DSN opens a private
// in-memory database.
func NewStore(ctx context.Context, driver, dsn string) (*Store, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	if d.name == "sqlite" && dsn != "" && !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	normalized, err := d.normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, d.driverName, normalized)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.name, err)
	}

	if d.singleConn {
		db.SetMaxOpenConns(1)
		// Foreign keys are off by default in SQLite.
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	s := &Store{db: db, dialect: d}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s database: %w", d.name, err)
	}
	return s, nil
}

// Driver returns the configured dialect name.
func (s *Store) Driver() string {
	return s.dialect.name
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

// isUniqueViolation reports whether err is a unique-constraint failure on
// any supported driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed: unique")
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}
