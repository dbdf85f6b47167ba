package stats

import "sync"

// Aggregator is a minimal in-repo Sink consumer: it counts RDHs,
// payload bytes, per-link occurrences, trigger categories, and total
// errors. spec.md leaves aggregation's shape unspecified beyond "an
// opaque external collaborator"; this reference implementation makes
// the pipeline runnable and testable end-to-end. External integrations
// are free to supply their own Sink instead.
type Aggregator struct {
	mu sync.Mutex

	RDHs         uint64
	PayloadBytes uint64
	Errors       uint64
	ByLink       map[uint8]uint64
	Errs         []string

	TriggerSOC   uint64
	TriggerHB    uint64
	TriggerPhT   uint64
	TriggerOther uint64
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{ByLink: make(map[uint8]uint64)}
}

// Emit implements Sink.
func (a *Aggregator) Emit(e Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e.Error != nil {
		a.Errors++
		a.Errs = append(a.Errs, e.Error.Text)
		return
	}
	if e.Counter == nil {
		return
	}
	switch e.Counter.Kind {
	case CounterRDHs:
		a.RDHs += e.Counter.Delta
	case CounterPayloadBytes:
		a.PayloadBytes += e.Counter.Delta
	case CounterErrors:
		a.Errors += e.Counter.Delta
	case CounterTriggerSOC:
		a.TriggerSOC += e.Counter.Delta
	case CounterTriggerHB:
		a.TriggerHB += e.Counter.Delta
	case CounterTriggerPhT:
		a.TriggerPhT += e.Counter.Delta
	case CounterTriggerOther:
		a.TriggerOther += e.Counter.Delta
	}
}

// NoteLink bumps the per-link occurrence count directly, since link IDs
// aren't a fixed enum that fits the CounterKind scheme.
func (a *Aggregator) NoteLink(linkID uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ByLink[linkID]++
}

// Run drains events from ch until it closes, applying each to a via Emit.
func (a *Aggregator) Run(ch <-chan Event) {
	for e := range ch {
		a.Emit(e)
	}
}
