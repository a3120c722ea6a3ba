package store

import (
	"database/sql"
	"fmt"

	"github.com/hyperengineering/pavilion/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies all pending migrations from the embedded migrations FS.
func RunMigrations(db *sql.DB) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
