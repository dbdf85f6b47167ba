// Package stats carries validation results and counters out of the
// pipeline through a typed event channel, matching spec.md's treatment
// of aggregation as an opaque external collaborator.
package stats

// CounterKind names a running tally the Aggregator keeps.
type CounterKind int

const (
	CounterRDHs CounterKind = iota
	CounterPayloadBytes
	CounterErrors
	CounterTriggerSOC
	CounterTriggerHB
	CounterTriggerPhT
	CounterTriggerOther
)

// Event is the sum type flowing through a Sink: either a formatted error
// line or a counter increment.
type Event struct {
	Error   *EventError
	Counter *EventCounter
}

// EventError carries one formatted violation or I/O-error line.
type EventError struct {
	Text string
}

// EventCounter increments a named counter by Delta.
type EventCounter struct {
	Kind  CounterKind
	Delta uint64
}

// NewErrorEvent builds an Event carrying a formatted error line.
func NewErrorEvent(text string) Event { return Event{Error: &EventError{Text: text}} }

// NewCounterEvent builds an Event incrementing kind by delta.
func NewCounterEvent(kind CounterKind, delta uint64) Event {
	return Event{Counter: &EventCounter{Kind: kind, Delta: delta}}
}

// Sink receives Events off the pipeline's hot path. Emit must not block
// the caller for long — spec.md assumes "emit calls are non-blocking in
// practice".
type Sink interface {
	Emit(Event)
}

// ChannelSink is a Sink backed by an unbounded-in-practice buffered
// channel: the buffer is sized generously so Emit never blocks under
// normal load, matching the pipeline's own bounded-channel philosophy
// applied to the output side instead of the input side.
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink returns a ChannelSink with the given buffer capacity.
func NewChannelSink(capacity int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, capacity)}
}

// Emit sends e, per Sink.
func (s *ChannelSink) Emit(e Event) { s.ch <- e }

// Events exposes the receive side for a consumer goroutine.
func (s *ChannelSink) Events() <-chan Event { return s.ch }

// Close closes the channel; callers must stop calling Emit first.
func (s *ChannelSink) Close() { close(s.ch) }
