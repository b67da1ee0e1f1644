package kb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/justify/pkg/justify/inference"
	"github.com/cognicore/justify/pkg/justify/kb"
)

type recorder struct {
	events []kb.Event
}

func (r *recorder) Observe(e kb.Event) { r.events = append(r.events, e) }

func (r *recorder) kinds() []kb.EventKind {
	out := make([]kb.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func TestObserverSeesDerivationAndRetraction(t *testing.T) {
	rec := &recorder{}
	b := kb.New(inference.NewForward(), kb.WithObserver(rec))

	require.NoError(t, b.Assert(item(t, "rule: ((p ?x)) -> (q ?x)")))
	require.NoError(t, b.Assert(item(t, "fact: (p a)")))
	b.Retract(stmt(t, "(p a)"))

	assert.Equal(t, []kb.EventKind{
		kb.EventAsserted,
		kb.EventAdded,
		kb.EventAsserted,
		kb.EventAdded,
		kb.EventInferenceAttempted,
		kb.EventAdded,
		kb.EventInferenceAttempted,
		kb.EventRetracted,
		kb.EventRemoved,
		kb.EventRemoved,
	}, rec.kinds())

	derived := rec.events[5]
	assert.Equal(t, kb.KindFact, derived.Entity)
	assert.Equal(t, "(q a)", derived.Text)
	assert.False(t, derived.Asserted)

	attempt := rec.events[4]
	assert.Equal(t, "(p a)", attempt.FactText)
	assert.Equal(t, "((p ?x)) -> (q ?x)", attempt.Text)
	assert.Equal(t, kb.RuleID(1), attempt.Rule)
	assert.Equal(t, kb.FactID(1), attempt.Fact)

	assert.Equal(t, "(p a)", rec.events[8].Text)
	assert.Equal(t, "(q a)", rec.events[9].Text)
}

func TestObserverSeesMergeAndUnassert(t *testing.T) {
	rec := &recorder{}
	b := kb.New(inference.NewForward(), kb.WithObserver(rec))

	require.NoError(t, b.Assert(item(t, "rule: ((p ?x)) -> (q ?x)")))
	require.NoError(t, b.Assert(item(t, "fact: (p a)")))
	require.NoError(t, b.Assert(item(t, "fact: (q a)")))
	b.Retract(stmt(t, "(q a)"))

	kinds := rec.kinds()
	assert.Contains(t, kinds, kb.EventMerged)
	assert.Equal(t, kb.EventUnasserted, kinds[len(kinds)-1])
	assert.NotContains(t, kinds, kb.EventRemoved)
}

func TestObserverSeesAsk(t *testing.T) {
	rec := &recorder{}
	b := kb.New(inference.NewForward(), kb.WithObserver(rec))
	require.NoError(t, b.Assert(item(t, "fact: (q a)")))
	require.NoError(t, b.Assert(item(t, "fact: (q b)")))

	_, err := b.Ask(stmt(t, "(q ?x)"))
	require.NoError(t, err)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, kb.EventAsked, last.Kind)
	assert.Equal(t, 2, last.Answers)
	assert.Equal(t, "(q ?x)", last.Text)
}

func TestObserversFanOut(t *testing.T) {
	var first, second int
	obs := kb.Observers{
		kb.ObserverFunc(func(kb.Event) { first++ }),
		nil,
		kb.ObserverFunc(func(kb.Event) { second++ }),
	}
	b := kb.New(nil, kb.WithObserver(obs))
	require.NoError(t, b.Assert(item(t, "fact: (p a)")))

	assert.Equal(t, 2, first)
	assert.Equal(t, 2, second)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "inference-attempted", kb.EventInferenceAttempted.String())
	assert.Equal(t, "unknown", kb.EventKind(99).String())
}
