// Package journal records knowledge-base events into a store.Journal.
package journal

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/cognicore/justify/pkg/justify/kb"
	"github.com/cognicore/justify/pkg/justify/store"
)

// Recorder is a kb.Observer that buffers events as journal records until
// Flush writes them. Observe never touches the store, so it is safe to call
// from inside knowledge-base operations.
type Recorder struct {
	mu      sync.Mutex
	journal store.Journal
	session string
	seq     int64
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
	pending []store.Record
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithSession overrides the generated session ID.
func WithSession(id string) Option {
	return func(r *Recorder) { r.session = id }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// New creates a recorder writing to j under a fresh session ID.
func New(j store.Journal, opts ...Option) *Recorder {
	r := &Recorder{
		journal: j,
		session: uuid.NewString(),
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Journal returns the store records are flushed to.
func (r *Recorder) Journal() store.Journal { return r.journal }

// Session returns the ID shared by every record this recorder writes.
func (r *Recorder) Session() string { return r.session }

// Observe implements kb.Observer.
func (r *Recorder) Observe(e kb.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.now()
	r.seq++
	r.pending = append(r.pending, store.Record{
		ID:       ulid.MustNew(ulid.Timestamp(at), r.entropy).String(),
		Session:  r.session,
		Seq:      r.seq,
		At:       at,
		Kind:     e.Kind.String(),
		Entity:   e.Entity.String(),
		EntityID: e.ID,
		Text:     e.Text,
		Detail:   detail(e),
	})
}

// Pending reports how many records wait for the next Flush.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Flush appends the buffered records as one batch. On failure the records
// stay buffered for the next attempt.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) == 0 {
		return nil
	}
	if err := r.journal.Append(ctx, r.pending...); err != nil {
		return fmt.Errorf("flush %d journal records: %w", len(r.pending), err)
	}
	r.pending = nil
	return nil
}

func detail(e kb.Event) string {
	switch e.Kind {
	case kb.EventInferenceAttempted:
		return "fact " + e.FactText
	case kb.EventAsked:
		return fmt.Sprintf("%d answers", e.Answers)
	}
	if e.Asserted {
		return "asserted"
	}
	return ""
}
