package store

import (
	"context"
	"time"
)

// Journal persists the audit trail of knowledge-base events. It records
// what happened and never rebuilds a knowledge base.
type Journal interface {
	Close() error

	// Append writes records in order. A batch is written atomically.
	Append(ctx context.Context, recs ...Record) error

	// Recent returns up to limit records, newest first. A limit of zero or
	// less returns everything.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// BySubject returns every record whose Text equals text, oldest first.
	BySubject(ctx context.Context, text string) ([]Record, error)
}

// Record is one journaled event
type Record struct {
	ID       string // ULID, sortable by creation time
	Session  string
	Seq      int64
	At       time.Time
	Kind     string // asserted, added, removed, ...
	Entity   string // fact or rule
	EntityID int
	Text     string
	Detail   string
}
