package pipeline

import "sync/atomic"

// Shutdown is a single process-wide flag polled at the head of every
// pipeline loop and after every channel send/receive, per spec.md §5's
// cooperative-cancellation model.
type Shutdown struct {
	flag atomic.Bool
}

// Get reports whether shutdown has been requested.
func (s *Shutdown) Get() bool { return s.flag.Load() }

// Set requests shutdown. Idempotent.
func (s *Shutdown) Set() { s.flag.Store(true) }
