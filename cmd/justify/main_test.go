package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repoRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := execute(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), err
}

func TestRunBlocks(t *testing.T) {
	blocks := filepath.Join(repoRoot(t), "testdata", "blocks.kb")

	out, err := runCLI(t, "", "run", blocks,
		"--ask", "(bigredblock ?x)",
		"--ask", "(toy ?x)",
		"--ask", "(redblock pyramid)",
		"--explain", "fact: (redblock cube)",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "? (bigredblock ?x)\n  ?x: cube\n")
	assert.Contains(t, out, "? (toy ?x)\n  ?x: cube\n  ?x: pyramid\n")
	assert.Contains(t, out, "? (redblock pyramid)\n  no\n")
	assert.Contains(t, out, "fact: (redblock cube)\n  SUPPORTED BY\n")
}

func TestRunRetract(t *testing.T) {
	blocks := filepath.Join(repoRoot(t), "testdata", "blocks.kb")

	out, err := runCLI(t, "", "run", blocks,
		"--retract", "fact: (color cube red)",
		"--ask", "(bigredblock ?x)",
		"--ask", "(toy cube)",
		"--explain", "fact: (redblock cube)",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "? (bigredblock ?x)\n  no\n")
	assert.Contains(t, out, "? (toy cube)\n  yes\n")
	assert.Contains(t, out, "Fact is not in the KB")
}

func TestRunErrors(t *testing.T) {
	_, err := runCLI(t, "", "run", filepath.Join(t.TempDir(), "missing.kb"))
	assert.Error(t, err)

	_, err = runCLI(t, "", "run", "--ask", "(broken")
	assert.Error(t, err)

	_, err = runCLI(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "run")
	assert.Error(t, err)
}

func TestConfigSources(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "justify.yaml")
	blocks := filepath.Join(repoRoot(t), "testdata", "blocks.kb")
	require.NoError(t, os.WriteFile(cfg, []byte("journal:\n  driver: none\nsources:\n  - "+blocks+"\n"), 0644))

	out, err := runCLI(t, "", "--config", cfg, "run", "--ask", "(redblock ?x)")
	require.NoError(t, err)
	assert.Contains(t, out, "?x: cube")
}

func TestJournalHistory(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "journal.db")

	_, err := runCLI(t, "", "--journal", journal, "run",
		filepath.Join(repoRoot(t), "testdata", "blocks.kb"),
		"--retract", "fact: (size cube big)",
	)
	require.NoError(t, err)

	out, err := runCLI(t, "", "--journal", journal, "history", "--subject", "(bigredblock cube)")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "added")
	assert.Contains(t, lines[1], "removed")

	out, err = runCLI(t, "", "--journal", journal, "history", "--limit", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestRepl(t *testing.T) {
	script := `help
rule: ((p ?x)) -> (q ?x)
fact: (p a)
ask (q ?x)
explain fact: (q a)
retract rule: ((p ?x)) -> (q ?x)
retract (p a)
? (q a)
facts
bogus
history
quit
fact: (never seen)
`
	out, err := runCLI(t, script, "repl")
	require.NoError(t, err)

	assert.Contains(t, out, "Commands:")
	assert.Contains(t, out, "  ?x: a\n")
	assert.Contains(t, out, "fact: (q a)\n  SUPPORTED BY\n    fact: (p a) ASSERTED\n")
	assert.Contains(t, out, "  no\n")
	assert.Contains(t, out, `Error: unknown command "bogus"`)
	assert.NotContains(t, out, "(never seen)")
	assert.Contains(t, out, "Goodbye!")
}

func TestReplLoadsFiles(t *testing.T) {
	blocks := filepath.Join(repoRoot(t), "testdata", "blocks.kb")
	out, err := runCLI(t, "ask (bigredblock ?x)\n", "repl", blocks)
	require.NoError(t, err)
	assert.Contains(t, out, "?x: cube")
}

func TestRunExport(t *testing.T) {
	blocks := filepath.Join(repoRoot(t), "testdata", "blocks.kb")
	export := filepath.Join(t.TempDir(), "snapshot.kb")

	_, err := runCLI(t, "", "run", blocks, "--retract", "fact: (size cube big)", "--export", export)
	require.NoError(t, err)

	data, err := os.ReadFile(export)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "(size cube big)")
	assert.Contains(t, string(data), "rule: ((redblock ?x), (size ?x big)) -> (bigredblock ?x)\n")

	out, err := runCLI(t, "", "run", export, "--ask", "(redblock ?x)", "--ask", "(bigredblock ?x)")
	require.NoError(t, err)
	assert.Contains(t, out, "? (redblock ?x)\n  ?x: cube\n")
	assert.Contains(t, out, "? (bigredblock ?x)\n  no\n")
}
