// Package migrations embeds the SQL schemas and applies them with goose.
//
// Patients and records live in separate databases, so each schema set has
// its own migration directory and version table.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed patients/postgres/*.sql patients/sqlite/*.sql records/sqlite/*.sql
var Migrations embed.FS

// UpPatientsPostgres applies the patient schema to a Postgres database.
func UpPatientsPostgres(ctx context.Context, db *sql.DB) error {
	return up(ctx, db, goose.DialectPostgres, "patients/postgres")
}

// UpPatientsSQLite applies the patient schema to a SQLite database.
func UpPatientsSQLite(ctx context.Context, db *sql.DB) error {
	return up(ctx, db, goose.DialectSQLite3, "patients/sqlite")
}

// UpRecordsSQLite applies the record schema to a SQLite database.
func UpRecordsSQLite(ctx context.Context, db *sql.DB) error {
	return up(ctx, db, goose.DialectSQLite3, "records/sqlite")
}

func up(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string) error {
	fsys, err := fs.Sub(Migrations, dir)
	if err != nil {
		return fmt.Errorf("migrations %s: %w", dir, err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up %s: %w", dir, err)
	}
	return nil
}
