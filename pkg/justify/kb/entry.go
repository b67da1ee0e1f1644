package kb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/justify/pkg/justify/internalerr"
	"github.com/cognicore/justify/pkg/justify/term"
)

// FactID addresses a fact in the knowledge base arena. Zero is never used.
type FactID int

// RuleID addresses a rule in the knowledge base arena. Zero is never used.
type RuleID int

// Kind tells facts and rules apart.
type Kind int

const (
	KindFact Kind = iota
	KindRule
)

func (k Kind) String() string {
	if k == KindRule {
		return "rule"
	}
	return "fact"
}

// Support is one justification: the premise fact and the rule it fired.
type Support struct {
	Fact FactID
	Rule RuleID
}

// Entry is the capability shared by facts and rules stored in a knowledge
// base. Only facts can be retracted from outside; see KnowledgeBase.Retract.
type Entry interface {
	Kind() Kind
	Asserted() bool
	SupportedBy() []Support
	SupportsFacts() []FactID
	SupportsRules() []RuleID
	String() string
}

// links is the justification bookkeeping carried by every entry.
type links struct {
	asserted      bool
	supportedBy   []Support
	supportsFacts map[FactID]struct{}
	supportsRules map[RuleID]struct{}
}

func newLinks(asserted bool) links {
	return links{
		asserted:      asserted,
		supportsFacts: make(map[FactID]struct{}),
		supportsRules: make(map[RuleID]struct{}),
	}
}

// Asserted reports whether the entry was supplied from outside.
func (l *links) Asserted() bool { return l.asserted }

// SupportedBy returns a copy of the entry's justifications, oldest first.
func (l *links) SupportedBy() []Support {
	out := make([]Support, len(l.supportedBy))
	copy(out, l.supportedBy)
	return out
}

// SupportsFacts returns the facts this entry helps justify, sorted by ID.
func (l *links) SupportsFacts() []FactID {
	out := make([]FactID, 0, len(l.supportsFacts))
	for id := range l.supportsFacts {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SupportsRules returns the rules this entry helps justify, sorted by ID.
func (l *links) SupportsRules() []RuleID {
	out := make([]RuleID, 0, len(l.supportsRules))
	for id := range l.supportsRules {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (l *links) hasSupport(s Support) bool {
	for _, have := range l.supportedBy {
		if have == s {
			return true
		}
	}
	return false
}

func (l *links) addDependent(r ref) {
	if r.kind == KindFact {
		l.supportsFacts[FactID(r.id)] = struct{}{}
	} else {
		l.supportsRules[RuleID(r.id)] = struct{}{}
	}
}

func (l *links) dropDependent(r ref) {
	if r.kind == KindFact {
		delete(l.supportsFacts, FactID(r.id))
	} else {
		delete(l.supportsRules, RuleID(r.id))
	}
}

// ref addresses either kind of entry.
type ref struct {
	kind Kind
	id   int
}

func factRef(id FactID) ref { return ref{kind: KindFact, id: int(id)} }
func ruleRef(id RuleID) ref { return ref{kind: KindRule, id: int(id)} }

// Fact is a statement held in the knowledge base. Pointers returned by the
// knowledge base stay valid until the fact is removed.
type Fact struct {
	links
	id        FactID
	statement term.Statement
}

func (f *Fact) ID() FactID { return f.id }
func (f *Fact) Kind() Kind { return KindFact }

// Statement returns a copy of the fact's statement.
func (f *Fact) Statement() term.Statement {
	return term.New(f.statement.Predicate, f.statement.Terms...)
}

func (f *Fact) String() string { return f.statement.String() }

// Rule is an implication: every statement of LHS implies RHS.
type Rule struct {
	links
	id  RuleID
	lhs []term.Statement
	rhs term.Statement
}

func (r *Rule) ID() RuleID { return r.id }
func (r *Rule) Kind() Kind { return KindRule }

// LHS returns a copy of the premises, in order.
func (r *Rule) LHS() []term.Statement {
	out := make([]term.Statement, len(r.lhs))
	for i, s := range r.lhs {
		out[i] = term.New(s.Predicate, s.Terms...)
	}
	return out
}

// RHS returns a copy of the conclusion.
func (r *Rule) RHS() term.Statement {
	return term.New(r.rhs.Predicate, r.rhs.Terms...)
}

func (r *Rule) String() string { return renderRule(r.lhs, r.rhs) }

func renderRule(lhs []term.Statement, rhs term.Statement) string {
	parts := make([]string, len(lhs))
	for i, s := range lhs {
		parts[i] = s.String()
	}
	return "(" + strings.Join(parts, ", ") + ") -> " + rhs.String()
}

// Item is a fact or rule submitted to the knowledge base.
type Item interface {
	Kind() Kind
	String() string
	key() string
	supports() []Support
	validate() error
}

// FactItem describes a fact to insert. An empty SupportedBy marks an
// external assertion.
type FactItem struct {
	Statement   term.Statement
	SupportedBy []Support
}

// NewFact builds an item asserting s.
func NewFact(s term.Statement) FactItem {
	return FactItem{Statement: term.New(s.Predicate, s.Terms...)}
}

// WithSupport returns a copy of the item justified by the given pairs.
func (f FactItem) WithSupport(s ...Support) FactItem {
	f.SupportedBy = append(append([]Support(nil), f.SupportedBy...), s...)
	return f
}

func (f FactItem) Kind() Kind          { return KindFact }
func (f FactItem) String() string      { return f.Statement.String() }
func (f FactItem) key() string         { return f.Statement.Key() }
func (f FactItem) supports() []Support { return f.SupportedBy }

func (f FactItem) validate() error {
	return f.Statement.Validate()
}

// RuleItem describes a rule to insert.
type RuleItem struct {
	LHS         []term.Statement
	RHS         term.Statement
	SupportedBy []Support
}

// NewRule builds an item asserting lhs -> rhs.
func NewRule(lhs []term.Statement, rhs term.Statement) RuleItem {
	cp := make([]term.Statement, len(lhs))
	for i, s := range lhs {
		cp[i] = term.New(s.Predicate, s.Terms...)
	}
	return RuleItem{LHS: cp, RHS: term.New(rhs.Predicate, rhs.Terms...)}
}

// WithSupport returns a copy of the item justified by the given pairs.
func (r RuleItem) WithSupport(s ...Support) RuleItem {
	r.SupportedBy = append(append([]Support(nil), r.SupportedBy...), s...)
	return r
}

func (r RuleItem) Kind() Kind          { return KindRule }
func (r RuleItem) String() string      { return renderRule(r.LHS, r.RHS) }
func (r RuleItem) key() string         { return ruleKey(r.LHS, r.RHS) }
func (r RuleItem) supports() []Support { return r.SupportedBy }

func (r RuleItem) validate() error {
	if len(r.LHS) == 0 {
		return fmt.Errorf("%w: rule without premises", internalerr.ErrInvalidStatement)
	}
	for i, s := range r.LHS {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("premise %d: %w", i+1, err)
		}
	}
	if err := r.RHS.Validate(); err != nil {
		return fmt.Errorf("conclusion: %w", err)
	}
	return nil
}

func ruleKey(lhs []term.Statement, rhs term.Statement) string {
	return renderRule(lhs, rhs)
}
