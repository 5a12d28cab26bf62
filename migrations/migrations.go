// Package migrations embeds the goose SQL migrations of the Postgres schema.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var postgres embed.FS

// Postgres returns the migrations for pg.Migrate.
func Postgres() fs.FS {
	return postgres
}
