package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/justify/pkg/justify/kb"
	"github.com/cognicore/justify/pkg/justify/store"
	"github.com/cognicore/justify/pkg/justify/watch"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		asks     []string
		explains []string
		retracts []string
		dump     bool
		export   string
	)

	cmd := &cobra.Command{
		Use:   "run [file...]",
		Short: "Load source files, then retract, ask and explain",
		Long: `Loads the source files in order, applies every --retract, then prints
the answers to every --ask and the proof tree of every --explain.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if err := a.engine.LoadFiles(ctx, args...); err != nil {
				return err
			}
			for _, r := range retracts {
				if err := a.engine.RetractText(ctx, r); err != nil {
					return fmt.Errorf("retract %q: %w", r, err)
				}
			}
			for _, q := range asks {
				answers, err := a.engine.AskText(ctx, q)
				if err != nil {
					return fmt.Errorf("ask %q: %w", q, err)
				}
				fmt.Fprintf(out, "? %s\n", q)
				writeAnswers(out, answers)
			}
			for _, x := range explains {
				text, err := a.engine.ExplainText(x)
				if err != nil {
					return fmt.Errorf("explain %q: %w", x, err)
				}
				fmt.Fprintln(out, strings.TrimRight(text, "\n"))
			}
			if dump {
				fmt.Fprint(out, a.engine.String())
			}
			if export != "" {
				return exportTo(a, export)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&asks, "ask", nil, "statement to query, e.g. '(toy ?x)'")
	cmd.Flags().StringArrayVar(&explains, "explain", nil, "fact or rule to explain")
	cmd.Flags().StringArrayVar(&retracts, "retract", nil, "fact to retract")
	cmd.Flags().BoolVar(&dump, "dump", false, "print the knowledge base at the end")
	cmd.Flags().StringVar(&export, "export", "", "write the asserted facts and rules to this file")
	return cmd
}

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl [file...]",
		Short: "Interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.engine.LoadFiles(ctx, args...); err != nil {
				return err
			}
			r := &repl{engine: a.engine, out: cmd.OutOrStdout()}
			return r.run(ctx, cmd.InOrStdin())
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch file",
		Short: "Keep the knowledge base in step with a source file until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			w, err := watch.NewWatcher(args[0], watch.NewSyncer(a.engine),
				watch.WithDebounce(a.cfg.Watch.Debounce),
				watch.WithLogger(a.log()),
				watch.WithOnChange(func(ch watch.Change, err error) {
					if err != nil {
						fmt.Fprintf(out, "reload failed: %v\n", err)
						return
					}
					if !ch.Empty() {
						fmt.Fprintf(out, "reloaded %s: %s\n", args[0], ch)
					}
				}),
			)
			if err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil {
				w.Stop()
				return err
			}
			defer w.Stop()

			<-ctx.Done()
			a.log().Info("watch interrupted", zap.Error(ctx.Err()))
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit   int
		subject string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the audit journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				recs []store.Record
				err  error
			)
			if subject != "" {
				recs, err = a.engine.HistoryOf(ctx, subject)
			} else {
				recs, err = a.engine.History(ctx, limit)
			}
			if err != nil {
				return err
			}
			writeRecords(cmd.OutOrStdout(), recs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of records to show, 0 for all")
	cmd.Flags().StringVar(&subject, "subject", "", "only records about this fact or rule text")
	return cmd
}

func exportTo(a *app, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.engine.Export(f); err != nil {
		f.Close()
		return fmt.Errorf("export: %w", err)
	}
	return f.Close()
}

func writeAnswers(w io.Writer, answers []kb.Answer) {
	if len(answers) == 0 {
		fmt.Fprintln(w, "  no")
		return
	}
	for _, ans := range answers {
		if len(ans.Bindings) == 0 {
			fmt.Fprintln(w, "  yes")
			continue
		}
		fmt.Fprintf(w, "  %s\n", ans.Bindings)
	}
}

func writeRecords(w io.Writer, recs []store.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}
	for _, r := range recs {
		line := fmt.Sprintf("%s  %-20s %-5s %s", r.At.Format("2006-01-02 15:04:05.000"), r.Kind, r.Entity, r.Text)
		if r.Detail != "" {
			line += "  [" + r.Detail + "]"
		}
		fmt.Fprintln(w, line)
	}
}
