package parse

import (
	"fmt"
	"strings"

	"github.com/cognicore/justify/pkg/justify/internalerr"
	"github.com/cognicore/justify/pkg/justify/term"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokLParen
	tokRParen
	tokComma
	tokArrow
	tokSymbol
)

var tokNames = map[tokKind]string{
	tokEOF:    "end of input",
	tokLParen: "'('",
	tokRParen: "')'",
	tokComma:  "','",
	tokArrow:  "'->'",
	tokSymbol: "symbol",
}

type token struct {
	kind tokKind
	text string
	pos  int
}

func (t token) String() string {
	if t.kind == tokSymbol {
		return fmt.Sprintf("symbol %q", t.text)
	}
	return tokNames[t.kind]
}

func tokenize(src string) []token {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '#':
			i = len(src)
		case c == '(':
			toks = append(toks, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, pos: i})
			i++
		case strings.HasPrefix(src[i:], "->"):
			toks = append(toks, token{kind: tokArrow, pos: i})
			i += 2
		default:
			start := i
			for i < len(src) && !strings.ContainsRune(" \t\r\n#(),", rune(src[i])) && !strings.HasPrefix(src[i:], "->") {
				i++
			}
			toks = append(toks, token{kind: tokSymbol, text: src[start:i], pos: start})
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)})
}

type parser struct {
	toks []token
	at   int
}

func newParser(src string) *parser {
	return &parser{toks: tokenize(src)}
}

func (p *parser) peek() token { return p.toks[p.at] }

func (p *parser) next() token {
	t := p.toks[p.at]
	if t.kind != tokEOF {
		p.at++
	}
	return t
}

func (p *parser) expect(k tokKind) error {
	t := p.next()
	if t.kind != k {
		return fmt.Errorf("%w: expected %s at column %d, found %s", internalerr.ErrSyntax, tokNames[k], t.pos+1, t)
	}
	return nil
}

func (p *parser) end() error {
	return p.expect(tokEOF)
}

// statement parses "(" predicate {term} ")".
func (p *parser) statement() (term.Statement, error) {
	if err := p.expect(tokLParen); err != nil {
		return term.Statement{}, err
	}
	head := p.next()
	if head.kind != tokSymbol {
		return term.Statement{}, fmt.Errorf("%w: expected predicate at column %d, found %s", internalerr.ErrSyntax, head.pos+1, head)
	}
	var terms []term.Term
	for p.peek().kind == tokSymbol {
		terms = append(terms, term.Term(p.next().text))
	}
	if err := p.expect(tokRParen); err != nil {
		return term.Statement{}, err
	}
	s := term.New(head.text, terms...)
	if err := s.Validate(); err != nil {
		return term.Statement{}, fmt.Errorf("%w: %w", internalerr.ErrSyntax, err)
	}
	return s, nil
}
