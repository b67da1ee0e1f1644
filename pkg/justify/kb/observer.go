package kb

// EventKind names a knowledge-base hook.
type EventKind int

const (
	// EventAsserted fires when an item is submitted through Assert.
	EventAsserted EventKind = iota
	// EventAdded fires when a new entry is stored.
	EventAdded
	// EventMerged fires when an existing entry gains support or is re-asserted.
	EventMerged
	// EventUnasserted fires when deletion leaves a still-supported entry in place.
	EventUnasserted
	// EventRetracted fires when Retract is called for a stored fact.
	EventRetracted
	// EventRemoved fires for every entry removed from the knowledge base.
	EventRemoved
	// EventInferenceAttempted fires before a fact is tested against a rule.
	EventInferenceAttempted
	// EventAsked fires after a query has been answered.
	EventAsked
)

var eventNames = [...]string{
	EventAsserted:           "asserted",
	EventAdded:              "added",
	EventMerged:             "merged",
	EventUnasserted:         "unasserted",
	EventRetracted:          "retracted",
	EventRemoved:            "removed",
	EventInferenceAttempted: "inference-attempted",
	EventAsked:              "asked",
}

func (k EventKind) String() string {
	if int(k) < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event describes one observable step. It carries IDs and rendered text,
// never live entries, so observers may keep it.
type Event struct {
	Kind     EventKind
	Entity   Kind
	ID       int
	Text     string
	Asserted bool

	// Set for EventInferenceAttempted.
	Fact     FactID
	Rule     RuleID
	FactText string

	// Set for EventAsked.
	Answers int
}

// Observer receives knowledge-base events synchronously.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans an event out to several observers in order.
type Observers []Observer

func (obs Observers) Observe(e Event) {
	for _, o := range obs {
		if o != nil {
			o.Observe(e)
		}
	}
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
