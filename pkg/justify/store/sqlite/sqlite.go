package sqlite

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/justify/pkg/justify/internalerr"
	"github.com/cognicore/justify/pkg/justify/store"
)

// sqliteStore implements the Journal interface using SQLite
type sqliteStore struct {
	db     *sql.DB
	closed atomic.Bool
}

// OpenSQLite opens a SQLite journal with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	session TEXT NOT NULL,
	seq INTEGER NOT NULL,
	at TEXT NOT NULL,
	kind TEXT NOT NULL,
	entity TEXT NOT NULL,
	entity_id INTEGER NOT NULL,
	text TEXT NOT NULL,
	detail TEXT
);

CREATE INDEX IF NOT EXISTS idx_events_text ON events(text);
CREATE INDEX IF NOT EXISTS idx_events_session ON events(session, seq);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *sqliteStore) Append(ctx context.Context, recs ...store.Record) error {
	if s.closed.Load() {
		return internalerr.ErrStoreUnavailable
	}
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO events (id, session, seq, at, kind, entity, entity_id, text, detail)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(
			ctx,
			r.ID,
			r.Session,
			r.Seq,
			r.At.UTC().Format(time.RFC3339Nano),
			r.Kind,
			r.Entity,
			r.EntityID,
			r.Text,
			r.Detail,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *sqliteStore) Recent(ctx context.Context, limit int) ([]store.Record, error) {
	if s.closed.Load() {
		return nil, internalerr.ErrStoreUnavailable
	}

	query := `SELECT id, session, seq, at, kind, entity, entity_id, text, detail
FROM events ORDER BY id DESC, seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *sqliteStore) BySubject(ctx context.Context, text string) ([]store.Record, error) {
	if s.closed.Load() {
		return nil, internalerr.ErrStoreUnavailable
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, session, seq, at, kind, entity, entity_id, text, detail
FROM events WHERE text = ? ORDER BY id ASC, seq ASC`, text)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]store.Record, error) {
	var out []store.Record
	for rows.Next() {
		var (
			r      store.Record
			at     string
			detail sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Session, &r.Seq, &at, &r.Kind, &r.Entity, &r.EntityID, &r.Text, &detail); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, at); err == nil {
			r.At = ts
		}
		r.Detail = detail.String
		out = append(out, r)
	}
	return out, rows.Err()
}
