package justify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cognicore/justify/pkg/justify/internalerr"
	"github.com/cognicore/justify/pkg/justify/kb"
	"github.com/cognicore/justify/pkg/justify/store/memstore"
	"github.com/cognicore/justify/pkg/justify/term"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func blocksOptions() Options {
	return Options{
		InitialFacts: []term.Statement{
			term.New("isa", "cube", "block"),
			term.New("color", "cube", "red"),
			term.New("isa", "pyramid", "block"),
		},
		InitialRules: []kb.RuleItem{
			kb.NewRule(
				[]term.Statement{term.New("isa", "?x", "block"), term.New("color", "?x", "red")},
				term.New("redblock", "?x"),
			),
		},
	}
}

func TestEngineInitialItems(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, blocksOptions())
	require.NoError(t, err)
	defer e.Close()

	answers, err := e.AskText(ctx, "(redblock ?b)")
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "?b: cube", answers[0].Bindings.String())

	out, err := e.ExplainText("fact: (redblock cube)")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "SUPPORTED BY"))
	assert.NoError(t, e.Check())
}

func TestEngineRejectsInvalidInitialItems(t *testing.T) {
	_, err := New(context.Background(), Options{
		InitialRules: []kb.RuleItem{kb.NewRule(nil, term.New("q", "?x"))},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidItem))
}

func TestEngineTextAPI(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, Options{})
	require.NoError(t, err)

	require.NoError(t, e.AssertText(ctx, "rule: ((p ?x)) -> (q ?x)"))
	require.NoError(t, e.AssertText(ctx, "fact: (p a)"))
	assert.True(t, e.Contains(kb.NewFact(term.New("q", "a"))))

	_, err = e.AskText(ctx, "(q")
	assert.True(t, errors.Is(err, internalerr.ErrInvalidQuery))

	assert.Error(t, e.AssertText(ctx, "fact: (p"))

	require.NoError(t, e.RetractText(ctx, "rule: ((p ?x)) -> (q ?x)"))
	assert.Len(t, e.Rules(), 1, "rules are not retractable")

	require.NoError(t, e.RetractText(ctx, "fact: (zz top)"))
	require.NoError(t, e.RetractText(ctx, "fact: (p a)"))
	assert.Empty(t, e.Facts())
	assert.NoError(t, e.Check())
}

func TestEngineConcurrentUse(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, Options{Journal: memstore.New()})
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.AssertText(ctx, "rule: ((item ?x)) -> (seen ?x)"))

	const workers = 8
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				name := fmt.Sprintf("w%d-%d", w, i)
				if err := e.Assert(ctx, kb.NewFact(term.New("item", term.Term(name)))); err != nil {
					t.Error(err)
					return
				}
				if _, err := e.Ask(ctx, term.New("seen", "?x")); err != nil {
					t.Error(err)
					return
				}
				if i%3 == 0 {
					e.Retract(ctx, term.New("item", term.Term(name)))
				}
			}
		}(w)
	}
	wg.Wait()

	answers, err := e.AskText(ctx, "(seen ?x)")
	require.NoError(t, err)
	// i = 0, 3, 6, 9 are retracted in every worker
	assert.Len(t, answers, workers*6)
	assert.NoError(t, e.Check())
}

func TestEngineHistory(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, Options{Journal: memstore.New()})
	require.NoError(t, err)

	require.NoError(t, e.AssertText(ctx, "rule: ((p ?x)) -> (q ?x)"))
	require.NoError(t, e.AssertText(ctx, "fact: (p a)"))
	require.NoError(t, e.RetractText(ctx, "fact: (p a)"))

	recent, err := e.History(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "removed", recent[0].Kind)
	assert.Equal(t, e.Session(), recent[0].Session)

	life, err := e.HistoryOf(ctx, "(q a)")
	require.NoError(t, err)
	var kinds []string
	for _, r := range life {
		kinds = append(kinds, r.Kind)
	}
	assert.Equal(t, []string{"added", "removed"}, kinds)
}

func TestEngineWithoutJournal(t *testing.T) {
	e, err := New(context.Background(), Options{})
	require.NoError(t, err)

	_, err = e.History(context.Background(), 10)
	assert.True(t, errors.Is(err, internalerr.ErrStoreUnavailable))
	assert.Empty(t, e.Session())
	assert.NoError(t, e.Close())
}

func TestEngineJournalFailureKeepsChanges(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	e, err := New(ctx, Options{Journal: mem})
	require.NoError(t, err)
	require.NoError(t, mem.Close())

	require.NoError(t, e.AssertText(ctx, "fact: (p a)"))
	assert.True(t, e.Contains(kb.NewFact(term.New("p", "a"))))
	assert.Error(t, e.Close())
}

func TestEngineLoad(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, Options{})
	require.NoError(t, err)

	src := `# toys
rule: ((isa ?x block)) -> (toy ?x)
fact: (isa cube block)
`
	require.NoError(t, e.Load(ctx, strings.NewReader(src)))
	assert.Equal(t, []string{"(isa cube block)", "(toy cube)"}, e.Facts())

	err = e.Load(ctx, strings.NewReader("fact: (broken\n"))
	assert.True(t, errors.Is(err, internalerr.ErrSyntax))
}

func TestEngineLoadFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.kb")
	facts := filepath.Join(dir, "facts.kb")
	require.NoError(t, os.WriteFile(rules, []byte("rule: ((isa ?x block) (color ?x red)) -> (redblock ?x)\n"), 0644))
	require.NoError(t, os.WriteFile(facts, []byte("fact: (isa cube block)\nfact: (color cube red)\n"), 0644))

	e, err := New(ctx, Options{})
	require.NoError(t, err)
	require.NoError(t, e.LoadFiles(ctx, rules, facts))

	assert.True(t, e.Contains(kb.NewFact(term.New("redblock", "cube"))))
	assert.Equal(t, []string{
		"((isa ?x block), (color ?x red)) -> (redblock ?x)",
		"((color cube red)) -> (redblock cube)",
	}, e.Rules())

	assert.Error(t, e.LoadFiles(ctx, filepath.Join(dir, "missing.kb")))
}

func TestEngineLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e, err := New(context.Background(), Options{})
	require.NoError(t, err)
	cancel()

	err = e.AssertAll(ctx, []kb.Item{kb.NewFact(term.New("p", "a"))})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, e.Facts())
}

func TestEngineExportReloads(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, blocksOptions())
	require.NoError(t, err)
	require.NoError(t, e.AssertText(ctx, "fact: (redblock cube)"))

	var buf strings.Builder
	require.NoError(t, e.Export(&buf))
	assert.Equal(t, `fact: (isa cube block)
fact: (color cube red)
fact: (isa pyramid block)
fact: (redblock cube)
rule: ((isa ?x block), (color ?x red)) -> (redblock ?x)
`, buf.String())

	fresh, err := New(ctx, Options{})
	require.NoError(t, err)
	require.NoError(t, fresh.Load(ctx, strings.NewReader(buf.String())))
	assert.ElementsMatch(t, e.Facts(), fresh.Facts())
}
