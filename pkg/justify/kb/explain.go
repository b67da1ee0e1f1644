package kb

import "strings"

// Proof is the justification tree of one entry.
type Proof struct {
	Kind     Kind
	ID       int
	Text     string
	Asserted bool
	// Cycle marks an entry already being explained further up the same
	// branch; its supports are not expanded again.
	Cycle    bool
	Supports []ProofStep
}

// ProofStep is one justification: the premise fact and the rule it fired.
type ProofStep struct {
	Fact *Proof
	Rule *Proof
}

// Depth returns the number of nested justification levels below p.
func (p *Proof) Depth() int {
	deepest := 0
	for _, s := range p.Supports {
		for _, child := range []*Proof{s.Fact, s.Rule} {
			if child == nil {
				continue
			}
			if d := child.Depth() + 1; d > deepest {
				deepest = d
			}
		}
	}
	return deepest
}

// String renders the tree: one line per entry, "SUPPORTED BY" two columns
// deeper than its entry and the premises four columns deeper.
func (p *Proof) String() string {
	var b strings.Builder
	p.render(&b, 0)
	return b.String()
}

func (p *Proof) render(b *strings.Builder, indent int) {
	b.WriteString(strings.Repeat(" ", indent))
	b.WriteString(p.Kind.String())
	b.WriteString(": ")
	b.WriteString(p.Text)
	if p.Asserted {
		b.WriteString(" ASSERTED")
	}
	if p.Cycle {
		b.WriteString(" CYCLE")
	}
	b.WriteByte('\n')
	for _, s := range p.Supports {
		b.WriteString(strings.Repeat(" ", indent+2))
		b.WriteString("SUPPORTED BY\n")
		if s.Fact != nil {
			s.Fact.render(b, indent+4)
		}
		if s.Rule != nil {
			s.Rule.render(b, indent+4)
		}
	}
}

// Why returns the proof tree of the stored entry equal to item.
func (kb *KnowledgeBase) Why(item Item) (*Proof, bool) {
	e, ok := kb.Lookup(item)
	if !ok {
		return nil, false
	}
	var start ref
	switch v := e.(type) {
	case *Fact:
		start = factRef(v.id)
	case *Rule:
		start = ruleRef(v.id)
	}
	return kb.proof(start, make(map[ref]bool)), true
}

func (kb *KnowledgeBase) proof(r ref, onPath map[ref]bool) *Proof {
	e := kb.entry(r)
	if e == nil {
		return nil
	}
	p := &Proof{Kind: r.kind, ID: r.id, Text: e.String(), Asserted: e.Asserted()}
	if onPath[r] {
		p.Cycle = true
		return p
	}
	onPath[r] = true
	defer delete(onPath, r)

	for _, s := range e.SupportedBy() {
		p.Supports = append(p.Supports, ProofStep{
			Fact: kb.proof(factRef(s.Fact), onPath),
			Rule: kb.proof(ruleRef(s.Rule), onPath),
		})
	}
	return p
}

// Explain renders the proof tree of item, or reports that it is absent.
func (kb *KnowledgeBase) Explain(item Item) string {
	if p, ok := kb.Why(item); ok {
		return p.String()
	}
	if item != nil && item.Kind() == KindRule {
		return "Rule is not in the KB"
	}
	return "Fact is not in the KB"
}
