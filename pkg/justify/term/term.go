// Package term holds the statements stored in a knowledge base and the
// one-way pattern matcher used to fire rules against them.
package term

import (
	"fmt"
	"strings"

	"github.com/cognicore/justify/pkg/justify/internalerr"
)

// Term is a constant or a variable. Variables carry a leading '?'.
type Term string

// IsVariable reports whether t is a variable such as ?x.
func (t Term) IsVariable() bool {
	return len(t) > 1 && t[0] == '?'
}

// Statement is a predicate applied to a flat list of terms: (isa cube block).
// Statements are treated as immutable once built.
type Statement struct {
	Predicate string
	Terms     []Term
}

// New builds a statement, copying the terms.
func New(predicate string, terms ...Term) Statement {
	cp := make([]Term, len(terms))
	copy(cp, terms)
	return Statement{Predicate: predicate, Terms: cp}
}

// String renders the statement in source syntax.
func (s Statement) String() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(s.Predicate)
	for _, t := range s.Terms {
		b.WriteByte(' ')
		b.WriteString(string(t))
	}
	b.WriteByte(')')
	return b.String()
}

// Key identifies the statement structurally. Two statements are the same
// knowledge-base entry iff their keys are equal.
func (s Statement) Key() string {
	return s.String()
}

// Equal reports structural equality.
func (s Statement) Equal(o Statement) bool {
	if s.Predicate != o.Predicate || len(s.Terms) != len(o.Terms) {
		return false
	}
	for i := range s.Terms {
		if s.Terms[i] != o.Terms[i] {
			return false
		}
	}
	return true
}

// Ground reports whether the statement has no variables.
func (s Statement) Ground() bool {
	for _, t := range s.Terms {
		if t.IsVariable() {
			return false
		}
	}
	return true
}

// Variables returns the distinct variables of s in order of first use.
func (s Statement) Variables() []Term {
	var out []Term
	seen := make(map[Term]struct{})
	for _, t := range s.Terms {
		if !t.IsVariable() {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Validate checks that s can be stored and rendered back into source syntax.
func (s Statement) Validate() error {
	if s.Predicate == "" {
		return fmt.Errorf("%w: empty predicate", internalerr.ErrInvalidStatement)
	}
	if Term(s.Predicate).IsVariable() {
		return fmt.Errorf("%w: variable predicate %s", internalerr.ErrInvalidStatement, s.Predicate)
	}
	if !validSymbol(s.Predicate) {
		return fmt.Errorf("%w: bad predicate %q", internalerr.ErrInvalidStatement, s.Predicate)
	}
	for i, t := range s.Terms {
		if !validSymbol(string(t)) {
			return fmt.Errorf("%w: bad term %d %q in %s", internalerr.ErrInvalidStatement, i, t, s.Predicate)
		}
	}
	return nil
}

func validSymbol(s string) bool {
	if s == "" || s == "?" {
		return false
	}
	return !strings.ContainsAny(s, "() ,\t\r\n#")
}
