package kb

import (
	"fmt"

	"github.com/cognicore/justify/pkg/justify/internalerr"
	"github.com/cognicore/justify/pkg/justify/term"
)

// FactRef names a stored fact by ID and statement.
type FactRef struct {
	ID        FactID
	Statement term.Statement
}

// Answer is one way a query matched: the bindings and the facts that
// produced them.
type Answer struct {
	Bindings term.Bindings
	Facts    []FactRef
}

// Ask matches query against every stored fact, in insertion order. A ground
// query that matches yields one answer with empty bindings. An empty result
// means nothing matched; a malformed query returns ErrInvalidQuery instead.
func (kb *KnowledgeBase) Ask(query term.Statement) ([]Answer, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrInvalidQuery, err)
	}

	var answers []Answer
	for _, id := range kb.factOrder {
		f := kb.facts[id]
		b, ok := term.Match(query, f.statement)
		if !ok {
			continue
		}
		answers = append(answers, Answer{
			Bindings: b,
			Facts:    []FactRef{{ID: f.id, Statement: f.Statement()}},
		})
	}
	kb.obs.Observe(Event{Kind: EventAsked, Entity: KindFact, Text: query.String(), Answers: len(answers)})
	return answers, nil
}
