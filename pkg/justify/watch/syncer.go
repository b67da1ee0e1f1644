// Package watch keeps a knowledge base aligned with a source file.
package watch

import (
	"context"
	"fmt"
	"sort"

	"github.com/cognicore/justify/pkg/justify/kb"
	"github.com/cognicore/justify/pkg/justify/parse"
	"github.com/cognicore/justify/pkg/justify/term"
)

// Target is the knowledge base a Syncer drives. *justify.Engine satisfies it.
type Target interface {
	AssertAll(ctx context.Context, items []kb.Item) error
	Retract(ctx context.Context, s term.Statement)
}

// Change describes one reload.
type Change struct {
	Added     []kb.Item
	Retracted []term.Statement
	// Rules that left the source. Rules cannot be retracted, so they stay in
	// the knowledge base.
	Orphaned []kb.Item
}

// Empty reports whether the reload changed nothing.
func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Retracted) == 0 && len(c.Orphaned) == 0
}

func (c Change) String() string {
	return fmt.Sprintf("+%d -%d orphaned %d", len(c.Added), len(c.Retracted), len(c.Orphaned))
}

// Syncer remembers what a source last contained and applies the
// difference on each reload.
type Syncer struct {
	target  Target
	current map[string]kb.Item
}

func NewSyncer(t Target) *Syncer {
	return &Syncer{target: t, current: make(map[string]kb.Item)}
}

// Reload parses path and applies it.
func (s *Syncer) Reload(ctx context.Context, path string) (Change, error) {
	items, err := parse.ReadFile(path)
	if err != nil {
		return Change{}, err
	}
	return s.Apply(ctx, items)
}

// Apply retracts facts missing from items, then asserts the items that are
// new, in source order. On failure the remembered contents are kept, so the
// next Apply retries the same difference.
func (s *Syncer) Apply(ctx context.Context, items []kb.Item) (Change, error) {
	next := make(map[string]kb.Item, len(items))
	var ch Change
	for _, it := range items {
		k := itemKey(it)
		if _, dup := next[k]; dup {
			continue
		}
		next[k] = it
		if _, ok := s.current[k]; !ok {
			ch.Added = append(ch.Added, it)
		}
	}

	for _, it := range sortedItems(s.current) {
		if _, ok := next[itemKey(it)]; ok {
			continue
		}
		if f, ok := it.(kb.FactItem); ok {
			ch.Retracted = append(ch.Retracted, f.Statement)
		} else {
			ch.Orphaned = append(ch.Orphaned, it)
		}
	}

	for _, st := range ch.Retracted {
		s.target.Retract(ctx, st)
	}
	if err := s.target.AssertAll(ctx, ch.Added); err != nil {
		return ch, err
	}
	s.current = next
	return ch, nil
}

func itemKey(it kb.Item) string {
	return it.Kind().String() + ": " + it.String()
}

func sortedItems(m map[string]kb.Item) []kb.Item {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]kb.Item, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}
