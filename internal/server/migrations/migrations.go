// Package migrations embeds the goose schema migrations, one directory per
// SQL dialect.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/userdir/internal/dbx"
)

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

// For returns the migration tree for d, rooted so goose can read it at ".".
func For(d dbx.Dialect) (fs.FS, error) {
	switch d {
	case dbx.Postgres:
		return fs.Sub(Migrations, "postgres")
	case dbx.SQLite:
		return fs.Sub(Migrations, "sqlite")
	}
	return nil, fmt.Errorf("no migrations for dialect %q", d)
}
