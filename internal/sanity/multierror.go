// Package sanity implements the stateless, per-word multi-constraint
// checks that run regardless of FSM state or cross-word context.
package sanity

import "strings"

// MultiError collects every constraint a single word violated, so one bad
// word can report all of its problems instead of masking them behind the
// first failure.
type MultiError struct {
	Violations []string
}

// Add appends a violation message.
func (e *MultiError) Add(msg string) { e.Violations = append(e.Violations, msg) }

// Empty reports whether no violation was recorded.
func (e *MultiError) Empty() bool { return len(e.Violations) == 0 }

// ErrOrNil returns e as an error if it holds any violation, else nil —
// the idiom every checker in this package returns through.
func (e *MultiError) ErrOrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *MultiError) Error() string { return strings.Join(e.Violations, "; ") }
