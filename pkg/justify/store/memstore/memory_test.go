package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/justify/pkg/justify/internalerr"
	"github.com/cognicore/justify/pkg/justify/store"
)

func rec(id string, seq int64, kind, text string) store.Record {
	return store.Record{
		ID:       id,
		Session:  "s1",
		Seq:      seq,
		At:       time.Unix(1700000000+seq, 0).UTC(),
		Kind:     kind,
		Entity:   "fact",
		EntityID: 1,
		Text:     text,
	}
}

func TestAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.Append(ctx,
		rec("01A", 1, "asserted", "(p a)"),
		rec("01B", 2, "added", "(p a)"),
		rec("01C", 3, "added", "(q a)"),
	)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recent))
	}
	if recent[0].ID != "01C" || recent[1].ID != "01B" {
		t.Errorf("Expected newest first, got %s, %s", recent[0].ID, recent[1].ID)
	}

	all, _ := s.Recent(ctx, 0)
	if len(all) != 3 {
		t.Errorf("Limit 0 should return everything, got %d", len(all))
	}
}

func TestAppendSkipsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := rec("01A", 1, "asserted", "(p a)")
	if err := s.Append(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, r); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Errorf("Expected 1 record, got %d", s.Len())
	}
}

func TestBySubject(t *testing.T) {
	ctx := context.Background()
	s := New()

	_ = s.Append(ctx,
		rec("01C", 3, "removed", "(q a)"),
		rec("01A", 1, "added", "(q a)"),
		rec("01B", 2, "added", "(p a)"),
	)

	got, err := s.BySubject(ctx, "(q a)")
	if err != nil {
		t.Fatalf("BySubject: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0].Kind != "added" || got[1].Kind != "removed" {
		t.Errorf("Expected oldest first, got %s then %s", got[0].Kind, got[1].Kind)
	}

	none, _ := s.BySubject(ctx, "(z z)")
	if len(none) != 0 {
		t.Errorf("Expected no records, got %d", len(none))
	}
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if err := s.Append(ctx, rec("01A", 1, "added", "(p a)")); !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Errorf("Append after close: got %v", err)
	}
	if _, err := s.Recent(ctx, 1); !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Errorf("Recent after close: got %v", err)
	}
	if _, err := s.BySubject(ctx, "(p a)"); !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Errorf("BySubject after close: got %v", err)
	}
}

func TestAppendCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New()
	if err := s.Append(ctx, rec("01A", 1, "added", "(p a)")); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if s.Len() != 0 {
		t.Error("Nothing should be stored")
	}
}
