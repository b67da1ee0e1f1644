package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/justify/pkg/justify"
	"github.com/cognicore/justify/pkg/justify/config"
)

// app carries the state shared by every command.
type app struct {
	configPath  string
	verbose     bool
	journalPath string

	cfg    config.Config
	comp   *config.Components
	engine *justify.Engine
}

func (a *app) log() *zap.Logger {
	if a.comp == nil || a.comp.Logger == nil {
		return zap.NewNop()
	}
	return a.comp.Logger
}

// setup loads configuration, builds the logger and journal, and creates an
// engine holding the configured sources.
func (a *app) setup(ctx context.Context) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if a.journalPath != "" {
		cfg.Journal = config.Journal{Driver: config.DriverSQLite, Path: a.journalPath}
	}
	a.cfg = cfg

	loader := config.Loader{Config: cfg}
	comp, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	a.comp = comp

	engine, err := justify.New(ctx, justify.Options{
		Logger:  comp.Logger,
		Journal: comp.Journal,
	})
	if err != nil {
		return err
	}
	if err := engine.AssertAll(ctx, comp.Items); err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	a.engine = engine
	return nil
}

// teardown flushes the journal and releases the components. It runs even
// when a command fails, which PersistentPostRun does not.
func (a *app) teardown() {
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.log().Warn("flush journal", zap.Error(err))
		}
		a.engine = nil
	}
	if a.comp != nil {
		_ = a.comp.Close()
		a.comp = nil
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "justify",
		Short: "Forward-chaining knowledge base with truth maintenance",
		Long: `justify stores facts and if-then rules, derives new facts as soon as
their premises hold, and keeps a justification for every derivation.
Retracting a fact removes everything that depended on it.

Source files hold one item per line:
  fact: (isa cube block)
  rule: ((isa ?x block) (color ?x red)) -> (redblock ?x)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every derivation step")
	root.PersistentFlags().StringVar(&a.journalPath, "journal", "", "SQLite audit journal (overrides the config)")

	root.AddCommand(
		newRunCmd(a),
		newReplCmd(a),
		newWatchCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// execute runs the command line args against the given streams.
func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{}
	defer a.teardown()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
