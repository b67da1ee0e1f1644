package kb

import (
	"errors"
	"fmt"
)

// CheckInvariants verifies that every entry is asserted or justified, that
// every justification is mirrored on both of its halves and the reverse,
// and that the indexes agree with the arena.
func (kb *KnowledgeBase) CheckInvariants() error {
	var errs []error

	check := func(r ref, l *links) {
		if !l.asserted && len(l.supportedBy) == 0 {
			errs = append(errs, fmt.Errorf("%s %d is neither asserted nor supported", r.kind, r.id))
		}
		for _, s := range l.supportedBy {
			f, ok := kb.facts[s.Fact]
			if !ok {
				errs = append(errs, fmt.Errorf("%s %d supported by missing fact %d", r.kind, r.id, s.Fact))
			} else if !dependsOn(&f.links, r) {
				errs = append(errs, fmt.Errorf("fact %d does not list %s %d as supported", s.Fact, r.kind, r.id))
			}
			rl, ok := kb.rules[s.Rule]
			if !ok {
				errs = append(errs, fmt.Errorf("%s %d supported by missing rule %d", r.kind, r.id, s.Rule))
			} else if !dependsOn(&rl.links, r) {
				errs = append(errs, fmt.Errorf("rule %d does not list %s %d as supported", s.Rule, r.kind, r.id))
			}
		}
		for id := range l.supportsFacts {
			f, ok := kb.facts[id]
			if !ok || !mentions(f.supportedBy, r) {
				errs = append(errs, fmt.Errorf("%s %d lists fact %d without a matching justification", r.kind, r.id, id))
			}
		}
		for id := range l.supportsRules {
			rl, ok := kb.rules[id]
			if !ok || !mentions(rl.supportedBy, r) {
				errs = append(errs, fmt.Errorf("%s %d lists rule %d without a matching justification", r.kind, r.id, id))
			}
		}
	}

	for id, f := range kb.facts {
		check(factRef(id), &f.links)
		if kb.factIndex[f.statement.Key()] != id {
			errs = append(errs, fmt.Errorf("fact %d missing from index", id))
		}
	}
	for id, r := range kb.rules {
		check(ruleRef(id), &r.links)
		if kb.ruleIndex[ruleKey(r.lhs, r.rhs)] != id {
			errs = append(errs, fmt.Errorf("rule %d missing from index", id))
		}
	}
	if len(kb.factIndex) != len(kb.facts) || len(kb.factOrder) != len(kb.facts) {
		errs = append(errs, errors.New("fact index and arena disagree"))
	}
	if len(kb.ruleIndex) != len(kb.rules) || len(kb.ruleOrder) != len(kb.rules) {
		errs = append(errs, errors.New("rule index and arena disagree"))
	}
	return errors.Join(errs...)
}

func dependsOn(l *links, r ref) bool {
	if r.kind == KindFact {
		_, ok := l.supportsFacts[FactID(r.id)]
		return ok
	}
	_, ok := l.supportsRules[RuleID(r.id)]
	return ok
}

func mentions(supports []Support, r ref) bool {
	for _, s := range supports {
		if r.kind == KindFact && s.Fact == FactID(r.id) {
			return true
		}
		if r.kind == KindRule && s.Rule == RuleID(r.id) {
			return true
		}
	}
	return false
}
