package store

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

func withGoose(d dialect, fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(d.gooseDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn()
}

// Migrate applies all pending schema migrations for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	return withGoose(s.dialect, func() error {
		return goose.UpContext(ctx, s.db.DB, s.dialect.migrationsDir)
	})
}

// SchemaVersion returns the most recently applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int64, error) {
	var v int64
	err := withGoose(s.dialect, func() error {
		var err error
		v, err = goose.GetDBVersionContext(ctx, s.db.DB)
		return err
	})
	return v, err
}
