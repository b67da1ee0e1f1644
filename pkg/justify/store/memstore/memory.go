package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/justify/pkg/justify/internalerr"
	"github.com/cognicore/justify/pkg/justify/store"
)

// Store is an in-memory implementation of store.Journal.
type Store struct {
	mu      sync.RWMutex
	closed  bool
	records []store.Record
	ids     map[string]struct{}
}

// New creates a new in-memory journal.
func New() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// Close implements store.Journal. Later calls fail with
// internalerr.ErrStoreUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Append stores records in order. Records whose ID is already stored are
// skipped.
func (s *Store) Append(ctx context.Context, recs ...store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return internalerr.ErrStoreUnavailable
	}
	for _, r := range recs {
		if _, ok := s.ids[r.ID]; ok {
			continue
		}
		s.ids[r.ID] = struct{}{}
		s.records = append(s.records, r)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, internalerr.ErrStoreUnavailable
	}

	out := make([]store.Record, len(s.records))
	copy(out, s.records)
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// BySubject returns the records about text, oldest first.
func (s *Store) BySubject(ctx context.Context, text string) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, internalerr.ErrStoreUnavailable
	}

	var out []store.Record
	for _, r := range s.records {
		if r.Text == text {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

// Len reports how many records are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func sortNewestFirst(recs []store.Record) {
	sort.SliceStable(recs, func(i, j int) bool { return less(recs[j], recs[i]) })
}

// less orders by ULID, which sorts by creation time.
func less(a, b store.Record) bool {
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	return a.Seq < b.Seq
}
