package persistence

import (
	"database/sql"
	"embed"

	"github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed schema/*.sql
var migrationsFS embed.FS

// RunMigrations brings the audit schema up to date. Called once at startup
// when the database is enabled.
func RunMigrations(connectionString string) error {
	db, err := sql.Open("pgx", connectionString)
	if err != nil {
		return errors.Wrap(err, "open migration connection")
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "set migration dialect")
	}
	if err := goose.Up(db, "schema"); err != nil {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}
