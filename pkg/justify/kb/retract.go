package kb

import "github.com/cognicore/justify/pkg/justify/term"

// Retract withdraws the external assertion of the fact structurally equal
// to s and removes everything that no longer has grounded support. It is a
// no-op when the fact is not stored. Rules cannot be retracted directly;
// they disappear only when the facts and rules deriving them do.
func (kb *KnowledgeBase) Retract(s term.Statement) {
	f, ok := kb.Fact(s)
	if !ok {
		return
	}
	kb.obs.Observe(Event{Kind: EventRetracted, Entity: KindFact, ID: int(f.id), Text: f.String(), Asserted: f.asserted})
	kb.delete(factRef(f.id))
}

// delete clears target's asserted flag and then removes every entry in
// target's downstream region that is left without grounded support.
//
// An entry is grounded when it is asserted, or when one of its
// justifications has both halves grounded. Entries outside the region do
// not depend on target and count as grounded. On an acyclic graph this is
// the plain cascade: an entry goes once every justification lost a half.
// On a cycle it also removes entries that only justify each other, which a
// cascade that stops at any non-empty support list would keep forever.
func (kb *KnowledgeBase) delete(target ref) {
	l := kb.linksOf(target)
	if l == nil {
		return
	}
	if l.asserted {
		l.asserted = false
		if len(l.supportedBy) > 0 {
			kb.obs.Observe(kb.event(EventUnasserted, target))
		}
	}

	region := kb.downstream(target)
	kb.remove(kb.ungrounded(region))
}

// downstream walks the supports edges breadth-first from start. The result
// starts with start and lists every reachable entry once.
func (kb *KnowledgeBase) downstream(start ref) []ref {
	seen := map[ref]struct{}{start: {}}
	queue := []ref{start}
	for i := 0; i < len(queue); i++ {
		l := kb.linksOf(queue[i])
		if l == nil {
			continue
		}
		for _, id := range l.SupportsFacts() {
			next := factRef(id)
			if _, ok := seen[next]; !ok {
				seen[next] = struct{}{}
				queue = append(queue, next)
			}
		}
		for _, id := range l.SupportsRules() {
			next := ruleRef(id)
			if _, ok := seen[next]; !ok {
				seen[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	return queue
}

// ungrounded returns the entries of region, in region order, that have no
// grounded justification.
func (kb *KnowledgeBase) ungrounded(region []ref) []ref {
	inRegion := make(map[ref]struct{}, len(region))
	for _, r := range region {
		inRegion[r] = struct{}{}
	}
	grounded := make(map[ref]bool, len(region))
	holds := func(r ref) bool {
		if _, ok := inRegion[r]; !ok {
			return true
		}
		return grounded[r]
	}

	for changed := true; changed; {
		changed = false
		for _, r := range region {
			if grounded[r] {
				continue
			}
			l := kb.linksOf(r)
			if l == nil {
				continue
			}
			if l.asserted {
				grounded[r] = true
				changed = true
				continue
			}
			for _, s := range l.supportedBy {
				if holds(factRef(s.Fact)) && holds(ruleRef(s.Rule)) {
					grounded[r] = true
					changed = true
					break
				}
			}
		}
	}

	var out []ref
	for _, r := range region {
		if !grounded[r] && kb.linksOf(r) != nil {
			out = append(out, r)
		}
	}
	return out
}

// remove detaches and drops each entry of doomed exactly once.
func (kb *KnowledgeBase) remove(doomed []ref) {
	for _, r := range doomed {
		l := kb.linksOf(r)
		if l == nil {
			continue
		}
		ev := kb.event(EventRemoved, r)

		for _, s := range l.supportedBy {
			if f, ok := kb.facts[s.Fact]; ok {
				f.dropDependent(r)
			}
			if rl, ok := kb.rules[s.Rule]; ok {
				rl.dropDependent(r)
			}
		}
		for _, id := range l.SupportsFacts() {
			if f, ok := kb.facts[id]; ok {
				kb.detach(factRef(id), &f.links, r)
			}
		}
		for _, id := range l.SupportsRules() {
			if rl, ok := kb.rules[id]; ok {
				kb.detach(ruleRef(id), &rl.links, r)
			}
		}

		if r.kind == KindFact {
			f := kb.facts[FactID(r.id)]
			delete(kb.facts, f.id)
			delete(kb.factIndex, f.statement.Key())
			kb.factOrder = removeID(kb.factOrder, f.id)
		} else {
			rl := kb.rules[RuleID(r.id)]
			delete(kb.rules, rl.id)
			delete(kb.ruleIndex, ruleKey(rl.lhs, rl.rhs))
			kb.ruleOrder = removeID(kb.ruleOrder, rl.id)
		}
		kb.obs.Observe(ev)
	}
}

// detach drops every justification of dep that uses gone. The other half
// of each dropped pair stops listing dep unless another pair still uses it.
func (kb *KnowledgeBase) detach(dep ref, dl *links, gone ref) {
	var kept, dropped []Support
	for _, s := range dl.supportedBy {
		if mentions([]Support{s}, gone) {
			dropped = append(dropped, s)
		} else {
			kept = append(kept, s)
		}
	}
	dl.supportedBy = kept

	for _, s := range dropped {
		other := ruleRef(s.Rule)
		if gone.kind == KindRule {
			other = factRef(s.Fact)
		}
		if other == gone || mentions(kept, other) {
			continue
		}
		if ol := kb.linksOf(other); ol != nil {
			ol.dropDependent(dep)
		}
	}
}

func removeID[T comparable](ids []T, id T) []T {
	for i, have := range ids {
		if have == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
