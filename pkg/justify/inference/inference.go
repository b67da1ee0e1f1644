// Package inference fires rules against facts for a knowledge base.
//
// The knowledge base decides which (fact, rule) pairs to try; an engine
// decides what, if anything, a pair derives. This allows swapping the
// forward chainer for an instrumented or restricted one.
package inference

import (
	"github.com/cognicore/justify/pkg/justify/kb"
	"github.com/cognicore/justify/pkg/justify/term"
)

// Forward derives from the first premise of a rule only. A rule with a
// single premise yields a fact; a rule with several yields a shorter rule
// over the remaining premises, so a conjunction is satisfied one matching
// fact at a time.
type Forward struct{}

// NewForward creates a forward-chaining engine.
func NewForward() *Forward {
	return &Forward{}
}

var _ kb.Inferer = (*Forward)(nil)

// Infer matches r's first premise against f. On a match the derived item is
// added to b justified by (f, r); b links the justification on both halves.
func (e *Forward) Infer(b *kb.KnowledgeBase, f *kb.Fact, r *kb.Rule) {
	lhs := r.LHS()
	if len(lhs) == 0 {
		return
	}
	bindings, ok := term.Match(lhs[0], f.Statement())
	if !ok {
		return
	}

	support := kb.Support{Fact: f.ID(), Rule: r.ID()}
	rhs := term.Instantiate(r.RHS(), bindings)

	if len(lhs) == 1 {
		b.Add(kb.NewFact(rhs).WithSupport(support))
		return
	}

	rest := make([]term.Statement, 0, len(lhs)-1)
	for _, premise := range lhs[1:] {
		rest = append(rest, term.Instantiate(premise, bindings))
	}
	b.Add(kb.NewRule(rest, rhs).WithSupport(support))
}
