// Package parse reads facts and rules written in source syntax:
//
//	# comment
//	fact: (isa cube block)
//	rule: ((isa ?x block) (color ?x red)) -> (redblock ?x)
//
// Commas between premises are optional. Symbols are runs of characters
// other than whitespace, parentheses, commas and '#'.
package parse

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/justify/pkg/justify/internalerr"
	"github.com/cognicore/justify/pkg/justify/kb"
	"github.com/cognicore/justify/pkg/justify/term"
)

const (
	factPrefix = "fact:"
	rulePrefix = "rule:"
)

// Statement parses a single statement such as (isa cube block).
func Statement(text string) (term.Statement, error) {
	p := newParser(text)
	s, err := p.statement()
	if err != nil {
		return term.Statement{}, err
	}
	if err := p.end(); err != nil {
		return term.Statement{}, err
	}
	return s, nil
}

// Item parses one fact or rule. The "fact:" or "rule:" prefix is optional;
// without it, text containing "->" is read as a rule.
func Item(text string) (kb.Item, error) {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, factPrefix):
		s, err := Statement(text[len(factPrefix):])
		if err != nil {
			return nil, err
		}
		return kb.NewFact(s), nil
	case strings.HasPrefix(text, rulePrefix):
		return rule(text[len(rulePrefix):])
	case strings.Contains(text, "->"):
		return rule(text)
	default:
		s, err := Statement(text)
		if err != nil {
			return nil, err
		}
		return kb.NewFact(s), nil
	}
}

// Read parses every non-blank, non-comment line of r.
func Read(r io.Reader) ([]kb.Item, error) {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	var items []kb.Item

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		item, err := Item(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		items = append(items, item)
	}

	return items, scanner.Err()
}

// ReadFile parses the source file at path.
func ReadFile(path string) ([]kb.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	items, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// ReadFiles parses the files concurrently and returns their items in
// argument order. The first failure cancels the files not yet read.
func ReadFiles(ctx context.Context, paths ...string) ([]kb.Item, error) {
	parsed := make([][]kb.Item, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items, err := ReadFile(path)
			if err != nil {
				return err
			}
			parsed[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []kb.Item
	for _, items := range parsed {
		out = append(out, items...)
	}
	return out, nil
}

func rule(text string) (kb.Item, error) {
	p := newParser(text)
	if err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	var lhs []term.Statement
	for {
		if p.peek().kind == tokRParen {
			p.next()
			break
		}
		if p.peek().kind == tokComma && len(lhs) > 0 {
			p.next()
			continue
		}
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		lhs = append(lhs, s)
	}
	if len(lhs) == 0 {
		return nil, fmt.Errorf("%w: rule without premises", internalerr.ErrSyntax)
	}
	if err := p.expect(tokArrow); err != nil {
		return nil, err
	}
	rhs, err := p.statement()
	if err != nil {
		return nil, err
	}
	if err := p.end(); err != nil {
		return nil, err
	}
	return kb.NewRule(lhs, rhs), nil
}
