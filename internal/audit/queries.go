package audit

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/qustavo/dotsql"
)

//go:embed queries/*.sql
var queriesFS embed.FS

// namedQueries loads every .sql file under queries/ into one dotsql set,
// keyed by its "-- name:" annotation, and binds it to db for placeholder
// rebinding (sqlite's ? vs postgres's $1, $2, ...).
type namedQueries struct {
	dot *dotsql.DotSql
	db  *sqlx.DB
}

func loadNamedQueries(db *sqlx.DB) (*namedQueries, error) {
	var combined string
	err := fs.WalkDir(queriesFS, "queries", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}
		content, err := queriesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		combined += string(content) + "\n"
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load query files: %w", err)
	}

	dot, err := dotsql.LoadFromString(combined)
	if err != nil {
		return nil, fmt.Errorf("parse queries: %w", err)
	}
	return &namedQueries{dot: dot, db: db}, nil
}

func (q *namedQueries) Exec(name string, args ...any) (sql.Result, error) {
	query, err := q.dot.Raw(name)
	if err != nil {
		return nil, fmt.Errorf("query not found: %s", name)
	}
	return q.db.Exec(q.db.Rebind(query), args...)
}
