package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cognicore/justify/pkg/justify"
)

const replHelp = `Commands:
  fact: (p a)                   assert a fact
  rule: ((p ?x)) -> (q ?x)      assert a rule
  ask (q ?x)                    list matching facts
  retract (p a)                 retract a fact
  explain fact: (q a)           show why an item holds
  facts | rules | kb            list contents
  history [n]                   recent journal records
  help | quit`

// repl is the interactive loop behind the repl command.
type repl struct {
	engine *justify.Engine
	out    io.Writer
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(r.out, "===========================================")
	fmt.Fprintln(r.out, "  justify")
	fmt.Fprintln(r.out, "  Type 'help' for commands (Ctrl+D to exit)")
	fmt.Fprintln(r.out, "===========================================")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := r.exec(ctx, line); err != nil {
			fmt.Fprintln(r.out, "Error:", err)
		}
	}

	fmt.Fprintln(r.out, "\nGoodbye!")
	return scanner.Err()
}

func (r *repl) exec(ctx context.Context, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "help":
		fmt.Fprintln(r.out, replHelp)
	case "fact:", "rule:":
		if err := r.engine.AssertText(ctx, line); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "ok")
	case "ask", "?":
		answers, err := r.engine.AskText(ctx, rest)
		if err != nil {
			return err
		}
		writeAnswers(r.out, answers)
	case "retract":
		if err := r.engine.RetractText(ctx, rest); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "ok")
	case "explain", "why":
		text, err := r.engine.ExplainText(rest)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, strings.TrimRight(text, "\n"))
	case "facts":
		for _, f := range r.engine.Facts() {
			fmt.Fprintln(r.out, "fact:", f)
		}
	case "rules":
		for _, rl := range r.engine.Rules() {
			fmt.Fprintln(r.out, "rule:", rl)
		}
	case "kb":
		fmt.Fprint(r.out, r.engine.String())
	case "history":
		limit := 10
		if rest != "" {
			n, err := strconv.Atoi(rest)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			limit = n
		}
		recs, err := r.engine.History(ctx, limit)
		if err != nil {
			return err
		}
		writeRecords(r.out, recs)
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
	return nil
}
