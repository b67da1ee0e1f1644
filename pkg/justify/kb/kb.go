// Package kb is a knowledge base of facts and rules with truth maintenance.
//
// Every stored entry records the (fact, rule) pairs that justify it and the
// entries it helps justify. New facts are tested against every stored rule
// (and new rules against every stored fact) through an Inferer; retracting a
// fact removes whatever loses its last grounded justification.
//
// A KnowledgeBase is not safe for concurrent use.
package kb

import (
	"fmt"
	"strings"

	"github.com/cognicore/justify/pkg/justify/internalerr"
	"github.com/cognicore/justify/pkg/justify/term"
)

// Inferer derives at most one new item from a fact and a rule and inserts
// it with KnowledgeBase.Add.
type Inferer interface {
	Infer(kb *KnowledgeBase, f *Fact, r *Rule)
}

// KnowledgeBase owns the facts, the rules and the justification graph
// between them.
type KnowledgeBase struct {
	inf Inferer
	obs Observer

	nextFact FactID
	nextRule RuleID

	facts map[FactID]*Fact
	rules map[RuleID]*Rule

	factIndex map[string]FactID
	ruleIndex map[string]RuleID

	factOrder []FactID
	ruleOrder []RuleID
}

// Option configures a KnowledgeBase.
type Option func(*KnowledgeBase)

// WithObserver attaches an observer for knowledge-base events.
func WithObserver(o Observer) Option {
	return func(kb *KnowledgeBase) {
		if o != nil {
			kb.obs = o
		}
	}
}

// New creates an empty knowledge base. A nil inferer disables forward
// chaining: items are stored but nothing is derived.
func New(inf Inferer, opts ...Option) *KnowledgeBase {
	kb := &KnowledgeBase{
		inf:       inf,
		obs:       nopObserver{},
		facts:     make(map[FactID]*Fact),
		rules:     make(map[RuleID]*Rule),
		factIndex: make(map[string]FactID),
		ruleIndex: make(map[string]RuleID),
	}
	for _, opt := range opts {
		opt(kb)
	}
	return kb
}

// Assert adds an externally supplied fact or rule.
func (kb *KnowledgeBase) Assert(item Item) error {
	if item == nil {
		return fmt.Errorf("%w: nil item", internalerr.ErrInvalidItem)
	}
	if err := item.validate(); err != nil {
		return fmt.Errorf("%w: %w", internalerr.ErrInvalidItem, err)
	}
	if len(item.supports()) > 0 {
		return fmt.Errorf("%w: asserted %s carries justifications", internalerr.ErrInvalidItem, item.Kind())
	}
	kb.obs.Observe(Event{Kind: EventAsserted, Entity: item.Kind(), Text: item.String(), Asserted: true})
	kb.Add(item)
	return nil
}

// Add inserts item or merges it into the structurally equal entry already
// stored, and returns the stored entry. A new fact is tested against every
// stored rule and a new rule against every stored fact. Merging appends the
// item's justifications, or marks the entry asserted when the item has
// none. Justifications naming entries that are no longer stored are
// ignored; an item left with none of its justifications is not stored and
// Add returns nil.
func (kb *KnowledgeBase) Add(item Item) Entry {
	switch it := item.(type) {
	case FactItem:
		if f := kb.addFact(it); f != nil {
			return f
		}
	case RuleItem:
		if r := kb.addRule(it); r != nil {
			return r
		}
	}
	return nil
}

func (kb *KnowledgeBase) addFact(it FactItem) *Fact {
	supports := kb.liveSupports(it.SupportedBy)
	if len(it.SupportedBy) > 0 && len(supports) == 0 {
		return nil
	}

	if id, ok := kb.factIndex[it.key()]; ok {
		f := kb.facts[id]
		kb.merge(&f.links, factRef(id), supports)
		return f
	}

	kb.nextFact++
	f := &Fact{
		links:     newLinks(len(supports) == 0),
		id:        kb.nextFact,
		statement: term.New(it.Statement.Predicate, it.Statement.Terms...),
	}
	kb.facts[f.id] = f
	kb.factIndex[it.key()] = f.id
	kb.factOrder = append(kb.factOrder, f.id)
	kb.attach(&f.links, factRef(f.id), supports)
	kb.obs.Observe(Event{Kind: EventAdded, Entity: KindFact, ID: int(f.id), Text: f.String(), Asserted: f.asserted})

	if kb.inf != nil {
		for _, rid := range append([]RuleID(nil), kb.ruleOrder...) {
			if r, ok := kb.rules[rid]; ok {
				kb.infer(f, r)
			}
		}
	}
	return f
}

func (kb *KnowledgeBase) addRule(it RuleItem) *Rule {
	supports := kb.liveSupports(it.SupportedBy)
	if len(it.SupportedBy) > 0 && len(supports) == 0 {
		return nil
	}

	if id, ok := kb.ruleIndex[it.key()]; ok {
		r := kb.rules[id]
		kb.merge(&r.links, ruleRef(id), supports)
		return r
	}

	kb.nextRule++
	r := &Rule{
		links: newLinks(len(supports) == 0),
		id:    kb.nextRule,
		lhs:   NewRule(it.LHS, it.RHS).LHS,
		rhs:   term.New(it.RHS.Predicate, it.RHS.Terms...),
	}
	kb.rules[r.id] = r
	kb.ruleIndex[it.key()] = r.id
	kb.ruleOrder = append(kb.ruleOrder, r.id)
	kb.attach(&r.links, ruleRef(r.id), supports)
	kb.obs.Observe(Event{Kind: EventAdded, Entity: KindRule, ID: int(r.id), Text: r.String(), Asserted: r.asserted})

	if kb.inf != nil {
		for _, fid := range append([]FactID(nil), kb.factOrder...) {
			if f, ok := kb.facts[fid]; ok {
				kb.infer(f, r)
			}
		}
	}
	return r
}

func (kb *KnowledgeBase) infer(f *Fact, r *Rule) {
	kb.obs.Observe(Event{
		Kind:     EventInferenceAttempted,
		Entity:   KindRule,
		ID:       int(r.id),
		Text:     r.String(),
		Fact:     f.id,
		Rule:     r.id,
		FactText: f.String(),
	})
	kb.inf.Infer(kb, f, r)
}

// merge folds a structurally equal occurrence into an existing entry.
func (kb *KnowledgeBase) merge(l *links, target ref, supports []Support) {
	if len(supports) == 0 {
		if l.asserted {
			return
		}
		l.asserted = true
		kb.obs.Observe(kb.event(EventMerged, target))
		return
	}
	var added []Support
	for _, s := range supports {
		if !l.hasSupport(s) {
			added = append(added, s)
		}
	}
	if len(added) == 0 {
		return
	}
	kb.attach(l, target, added)
	kb.obs.Observe(kb.event(EventMerged, target))
}

// attach records justifications on target and the reverse links on both
// halves of each pair.
func (kb *KnowledgeBase) attach(l *links, target ref, supports []Support) {
	for _, s := range supports {
		if l.hasSupport(s) {
			continue
		}
		l.supportedBy = append(l.supportedBy, s)
		kb.facts[s.Fact].addDependent(target)
		kb.rules[s.Rule].addDependent(target)
	}
}

func (kb *KnowledgeBase) liveSupports(in []Support) []Support {
	var out []Support
	for _, s := range in {
		if _, ok := kb.facts[s.Fact]; !ok {
			continue
		}
		if _, ok := kb.rules[s.Rule]; !ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (kb *KnowledgeBase) linksOf(r ref) *links {
	if r.kind == KindFact {
		if f, ok := kb.facts[FactID(r.id)]; ok {
			return &f.links
		}
		return nil
	}
	if rl, ok := kb.rules[RuleID(r.id)]; ok {
		return &rl.links
	}
	return nil
}

func (kb *KnowledgeBase) entry(r ref) Entry {
	if r.kind == KindFact {
		if f, ok := kb.facts[FactID(r.id)]; ok {
			return f
		}
		return nil
	}
	if rl, ok := kb.rules[RuleID(r.id)]; ok {
		return rl
	}
	return nil
}

func (kb *KnowledgeBase) event(kind EventKind, r ref) Event {
	e := Event{Kind: kind, Entity: r.kind, ID: r.id}
	if en := kb.entry(r); en != nil {
		e.Text = en.String()
		e.Asserted = en.Asserted()
	}
	return e
}

// Fact returns the stored fact structurally equal to s.
func (kb *KnowledgeBase) Fact(s term.Statement) (*Fact, bool) {
	id, ok := kb.factIndex[s.Key()]
	if !ok {
		return nil, false
	}
	return kb.facts[id], true
}

// Rule returns the stored rule structurally equal to lhs -> rhs.
func (kb *KnowledgeBase) Rule(lhs []term.Statement, rhs term.Statement) (*Rule, bool) {
	id, ok := kb.ruleIndex[ruleKey(lhs, rhs)]
	if !ok {
		return nil, false
	}
	return kb.rules[id], true
}

// Lookup returns the stored entry structurally equal to item.
func (kb *KnowledgeBase) Lookup(item Item) (Entry, bool) {
	switch it := item.(type) {
	case FactItem:
		if f, ok := kb.Fact(it.Statement); ok {
			return f, true
		}
	case RuleItem:
		if r, ok := kb.Rule(it.LHS, it.RHS); ok {
			return r, true
		}
	}
	return nil, false
}

func (kb *KnowledgeBase) FactByID(id FactID) (*Fact, bool) {
	f, ok := kb.facts[id]
	return f, ok
}

func (kb *KnowledgeBase) RuleByID(id RuleID) (*Rule, bool) {
	r, ok := kb.rules[id]
	return r, ok
}

// Facts returns the stored facts in insertion order.
func (kb *KnowledgeBase) Facts() []*Fact {
	out := make([]*Fact, 0, len(kb.factOrder))
	for _, id := range kb.factOrder {
		out = append(out, kb.facts[id])
	}
	return out
}

// Rules returns the stored rules in insertion order.
func (kb *KnowledgeBase) Rules() []*Rule {
	out := make([]*Rule, 0, len(kb.ruleOrder))
	for _, id := range kb.ruleOrder {
		out = append(out, kb.rules[id])
	}
	return out
}

func (kb *KnowledgeBase) NumFacts() int { return len(kb.facts) }
func (kb *KnowledgeBase) NumRules() int { return len(kb.rules) }

func (kb *KnowledgeBase) String() string {
	var b strings.Builder
	b.WriteString("Knowledge Base:\n")
	for _, f := range kb.Facts() {
		b.WriteString("fact: ")
		b.WriteString(f.String())
		b.WriteByte('\n')
	}
	for _, r := range kb.Rules() {
		b.WriteString("rule: ")
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	return b.String()
}
