package users

import (
	"strings"

	"github.com/dmitrijs2005/userdir/internal/dbx"
)

// queries holds the statements for one SQL dialect. Both dialects take
// the same arguments in the same order.
type queries struct {
	insert  string
	update  string
	delete  string
	getByID string
	list    string
	search  string
}

const userColumns = `id, name, password, created_at, updated_at`

var postgresQueries = queries{
	insert: `INSERT INTO users (id, name, password, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
	update: `UPDATE users SET name = $2, password = $3, updated_at = $4
		 WHERE id = $1`,
	delete:  `DELETE FROM users WHERE id = $1`,
	getByID: `SELECT ` + userColumns + ` FROM users WHERE id = $1`,
	list:    `SELECT ` + userColumns + ` FROM users ORDER BY name, id`,
	search: `SELECT ` + userColumns + ` FROM users
		 WHERE lower(name) LIKE '%' || lower($1) || '%' ESCAPE '\'
		 ORDER BY name, id`,
}

var sqliteQueries = queries{
	insert: `INSERT INTO users (id, name, password, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`,
	update: `UPDATE users SET name = ?2, password = ?3, updated_at = ?4
		 WHERE id = ?1`,
	delete:  `DELETE FROM users WHERE id = ?`,
	getByID: `SELECT ` + userColumns + ` FROM users WHERE id = ?`,
	list:    `SELECT ` + userColumns + ` FROM users ORDER BY name, id`,
	// lower() in SQLite folds ASCII only
	search: `SELECT ` + userColumns + ` FROM users
		 WHERE ` + dbx.FoldFunc + `(name) LIKE '%' || ` + dbx.FoldFunc + `(?) || '%' ESCAPE '\'
		 ORDER BY name, id`,
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
