package audit

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/k4hvh/madbridge/internal/types"
)

// Connection pool limits sized for a single audit writer per process:
// the pipeline driver holds exactly one SQLSink, so there's no fan-out
// to size for, just headroom for the insert path and an occasional
// concurrent control-plane query.
const (
	maxOpenConns    = 4
	maxIdleConns    = 2
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// SQLSink writes each decision as one row via a named, driver-rebound
// insert query — the authoritative counterpart to JSONLSink's
// best-effort debugging copy, mirroring this codebase's own
// database-is-source-of-truth/JSONL-is-debugging-aid split
// (internal/core/api/report_events.go).
type SQLSink struct {
	db      *sqlx.DB
	queries *namedQueries
	log     *slog.Logger
}

// NewSQLSink opens dbURL, runs pending migrations, and returns a ready
// sink. Only two schemes are meaningful for a single-process decision
// log: sqlite:// for a local file (given a single writer, opened with
// WAL journaling and a busy timeout so a slow control-plane read never
// collides with an insert) and postgres:// for a shared instance.
func NewSQLSink(dbURL string, log *slog.Logger) (*SQLSink, error) {
	if log == nil {
		log = slog.Default()
	}

	u, err := url.Parse(dbURL)
	if err != nil {
		return nil, fmt.Errorf("decision log database: invalid URL: %w", err)
	}

	var driverName, dataSource string
	switch u.Scheme {
	case "sqlite":
		driverName = "sqlite3"
		path := u.Path
		if u.Host != "" {
			path = u.Host + u.Path
		}
		dataSource = path + "?_journal_mode=WAL&_busy_timeout=5000"
	case "postgres":
		driverName = "postgres"
		dataSource = dbURL
	default:
		return nil, fmt.Errorf("decision log database: scheme %q not supported, use sqlite:// or postgres://", u.Scheme)
	}

	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("decision log database: open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	db.SetConnMaxLifetime(connMaxLifetime)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("decision log database: ping: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	queries, err := loadNamedQueries(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLSink{db: db, queries: queries, log: log}, nil
}

// Record inserts rec. A failed insert is logged, never returned: the
// pipeline driver's AuditSink contract has no error path, matching
// every other side channel's fail-open posture.
func (s *SQLSink) Record(rec types.DecisionRecord) {
	_, err := s.queries.Exec("insert-decision",
		rec.Timestamp.UTC(), string(rec.Kind), string(rec.Direction), rec.MessageType,
		rec.RuleName, string(rec.BatchID), string(rec.ActivationID), rec.Detail,
	)
	if err != nil {
		s.log.Warn("failed to record decision", "kind", rec.Kind, "error", err)
	}
}

// Close releases the underlying database connection.
func (s *SQLSink) Close() error {
	return s.db.Close()
}
