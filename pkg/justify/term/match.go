package term

import "strings"

// Binding associates a variable with the term it was matched to.
type Binding struct {
	Variable Term
	Value    Term
}

// Bindings is an ordered set of variable bindings, in binding order.
type Bindings []Binding

// Lookup returns the value bound to v.
func (b Bindings) Lookup(v Term) (Term, bool) {
	for _, bd := range b {
		if bd.Variable == v {
			return bd.Value, true
		}
	}
	return "", false
}

// Map copies the bindings into a map.
func (b Bindings) Map() map[Term]Term {
	m := make(map[Term]Term, len(b))
	for _, bd := range b {
		m[bd.Variable] = bd.Value
	}
	return m
}

func (b Bindings) String() string {
	parts := make([]string, len(b))
	for i, bd := range b {
		parts[i] = string(bd.Variable) + ": " + string(bd.Value)
	}
	return strings.Join(parts, ", ")
}

// Match unifies pattern against s. Only variables in the pattern are bound;
// a variable in s is treated as an ordinary symbol that a pattern variable
// may bind to. The boolean distinguishes "no match" from a successful match
// that produced no bindings.
func Match(pattern, s Statement) (Bindings, bool) {
	if pattern.Predicate != s.Predicate || len(pattern.Terms) != len(s.Terms) {
		return nil, false
	}
	bindings := Bindings{}
	for i, p := range pattern.Terms {
		t := s.Terms[i]
		if !p.IsVariable() {
			if p != t {
				return nil, false
			}
			continue
		}
		if bound, ok := bindings.Lookup(p); ok {
			if bound != t {
				return nil, false
			}
			continue
		}
		bindings = append(bindings, Binding{Variable: p, Value: t})
	}
	return bindings, true
}

// Instantiate substitutes bound variables in s. Unbound variables are kept.
func Instantiate(s Statement, b Bindings) Statement {
	out := Statement{Predicate: s.Predicate, Terms: make([]Term, len(s.Terms))}
	for i, t := range s.Terms {
		if t.IsVariable() {
			if v, ok := b.Lookup(t); ok {
				out.Terms[i] = v
				continue
			}
		}
		out.Terms[i] = t
	}
	return out
}
