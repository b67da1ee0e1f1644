// Package justify is the concurrency-safe entry point to a truth-maintaining
// forward-chaining knowledge base. It wires the knowledge base to a zap
// logger and an optional audit journal.
package justify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/cognicore/justify/pkg/justify/inference"
	"github.com/cognicore/justify/pkg/justify/internalerr"
	"github.com/cognicore/justify/pkg/justify/journal"
	"github.com/cognicore/justify/pkg/justify/kb"
	"github.com/cognicore/justify/pkg/justify/logging"
	"github.com/cognicore/justify/pkg/justify/parse"
	"github.com/cognicore/justify/pkg/justify/store"
	"github.com/cognicore/justify/pkg/justify/term"
)

// Engine guards a knowledge base with a mutex and journals its events
type Engine struct {
	mu  sync.Mutex
	kb  *kb.KnowledgeBase
	log *zap.Logger
	rec *journal.Recorder
}

// Options configures an Engine instance
type Options struct {
	InitialFacts []term.Statement
	InitialRules []kb.RuleItem
	Logger       *zap.Logger   // nil discards logs
	Journal      store.Journal // nil disables the audit trail
	Inference    kb.Inferer    // nil means inference.NewForward()
	Observers    []kb.Observer
}

// New creates an Engine and asserts the initial facts, then the initial
// rules.
func New(ctx context.Context, opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	inf := opts.Inference
	if inf == nil {
		inf = inference.NewForward()
	}

	e := &Engine{log: log}
	obs := kb.Observers{logging.NewObserver(log)}
	if opts.Journal != nil {
		e.rec = journal.New(opts.Journal)
		obs = append(obs, e.rec)
		log = log.With(zap.String("session", e.rec.Session()))
		e.log = log
	}
	obs = append(obs, opts.Observers...)
	e.kb = kb.New(inf, kb.WithObserver(obs))

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range opts.InitialFacts {
		if err := e.kb.Assert(kb.NewFact(s)); err != nil {
			return nil, fmt.Errorf("initial fact %s: %w", s, err)
		}
	}
	for _, r := range opts.InitialRules {
		if err := e.kb.Assert(r); err != nil {
			return nil, fmt.Errorf("initial rule %s: %w", r, err)
		}
	}
	e.flush(ctx)
	return e, nil
}

// Close writes any journal records still buffered. The journal itself
// belongs to the caller.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec == nil {
		return nil
	}
	return e.rec.Flush(context.Background())
}

// flush writes buffered journal records. A failing journal never undoes a
// knowledge-base change; the records stay buffered for the next flush.
// Callers hold e.mu.
func (e *Engine) flush(ctx context.Context) {
	if e.rec == nil {
		return
	}
	if err := e.rec.Flush(ctx); err != nil {
		e.log.Warn("journal flush failed", zap.Error(err), zap.Int("pending", e.rec.Pending()))
	}
}

// Assert adds an external fact or rule.
func (e *Engine) Assert(ctx context.Context, item kb.Item) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.kb.Assert(item); err != nil {
		return err
	}
	e.flush(ctx)
	return nil
}

// AssertText parses line as a fact or rule and asserts it.
func (e *Engine) AssertText(ctx context.Context, line string) error {
	item, err := parse.Item(line)
	if err != nil {
		return err
	}
	return e.Assert(ctx, item)
}

// Ask returns every stored fact matching query.
func (e *Engine) Ask(ctx context.Context, query term.Statement) ([]kb.Answer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	answers, err := e.kb.Ask(query)
	if err != nil {
		return nil, err
	}
	e.flush(ctx)
	return answers, nil
}

// AskText parses text as a statement and asks it.
func (e *Engine) AskText(ctx context.Context, text string) ([]kb.Answer, error) {
	s, err := parse.Statement(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrInvalidQuery, err)
	}
	return e.Ask(ctx, s)
}

// Retract withdraws an asserted fact. Absent facts are ignored.
func (e *Engine) Retract(ctx context.Context, s term.Statement) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.kb.Fact(s); !ok {
		e.log.Debug("retract ignored, fact is not stored", zap.String("fact", s.String()))
		return
	}
	e.kb.Retract(s)
	e.flush(ctx)
}

// RetractText parses line and retracts it. Rules cannot be retracted, so a
// rule is ignored.
func (e *Engine) RetractText(ctx context.Context, line string) error {
	item, err := parse.Item(line)
	if err != nil {
		return err
	}
	f, ok := item.(kb.FactItem)
	if !ok {
		e.log.Debug("retract ignored, rules are not retractable", zap.String("rule", item.String()))
		return nil
	}
	e.Retract(ctx, f.Statement)
	return nil
}

// Explain renders the justification tree of item.
func (e *Engine) Explain(item kb.Item) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kb.Explain(item)
}

// ExplainText parses line and explains it.
func (e *Engine) ExplainText(line string) (string, error) {
	item, err := parse.Item(line)
	if err != nil {
		return "", err
	}
	return e.Explain(item), nil
}

// Why returns the structured proof of item.
func (e *Engine) Why(item kb.Item) (*kb.Proof, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kb.Why(item)
}

// Load asserts every item read from r.
func (e *Engine) Load(ctx context.Context, r io.Reader) error {
	items, err := parse.Read(r)
	if err != nil {
		return err
	}
	return e.assertAll(ctx, items)
}

// LoadFiles parses the files concurrently, then asserts their items in
// argument order so derivations are deterministic.
func (e *Engine) LoadFiles(ctx context.Context, paths ...string) error {
	items, err := parse.ReadFiles(ctx, paths...)
	if err != nil {
		return err
	}
	return e.assertAll(ctx, items)
}

// AssertAll asserts items in order, stopping at the first invalid one.
func (e *Engine) AssertAll(ctx context.Context, items []kb.Item) error {
	return e.assertAll(ctx, items)
}

func (e *Engine) assertAll(ctx context.Context, items []kb.Item) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush(ctx)

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.kb.Assert(it); err != nil {
			return fmt.Errorf("assert %s: %w", it, err)
		}
	}
	e.log.Info("loaded", zap.Int("items", len(items)), zap.Int("facts", e.kb.NumFacts()), zap.Int("rules", e.kb.NumRules()))
	return nil
}

// Export writes the asserted facts and rules in source syntax. Loading the
// output into an empty engine re-derives everything else.
func (e *Engine) Export(w io.Writer) error {
	e.mu.Lock()
	var items []kb.Item
	for _, f := range e.kb.Facts() {
		if f.Asserted() {
			items = append(items, kb.NewFact(f.Statement()))
		}
	}
	for _, r := range e.kb.Rules() {
		if r.Asserted() {
			items = append(items, kb.NewRule(r.LHS(), r.RHS()))
		}
	}
	e.mu.Unlock()

	return parse.Write(w, items)
}

// History returns up to limit journal records, newest first.
func (e *Engine) History(ctx context.Context, limit int) ([]store.Record, error) {
	if err := e.flushJournal(ctx); err != nil {
		return nil, err
	}
	return e.rec.Journal().Recent(ctx, limit)
}

// HistoryOf returns the journal records about one fact or rule text,
// oldest first.
func (e *Engine) HistoryOf(ctx context.Context, text string) ([]store.Record, error) {
	if err := e.flushJournal(ctx); err != nil {
		return nil, err
	}
	return e.rec.Journal().BySubject(ctx, text)
}

func (e *Engine) flushJournal(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec == nil {
		return fmt.Errorf("%w: no journal configured", internalerr.ErrStoreUnavailable)
	}
	return e.rec.Flush(ctx)
}

// Session identifies this engine's records in the journal. It is empty
// without a journal.
func (e *Engine) Session() string {
	if e.rec == nil {
		return ""
	}
	return e.rec.Session()
}

// Contains reports whether item is stored.
func (e *Engine) Contains(item kb.Item) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.kb.Lookup(item)
	return ok
}

// Facts lists the stored facts in insertion order.
func (e *Engine) Facts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	facts := e.kb.Facts()
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = f.String()
	}
	return out
}

// Rules lists the stored rules in insertion order.
func (e *Engine) Rules() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	rules := e.kb.Rules()
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.String()
	}
	return out
}

// Check verifies the knowledge base's internal consistency.
func (e *Engine) Check() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kb.CheckInvariants()
}

func (e *Engine) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kb.String()
}
