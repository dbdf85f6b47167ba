// Package fsm implements the deterministic payload word classifier: a
// pure function from (current state, word ID, a little context) to a
// label and the next state. It carries no I/O and no logging — the
// caller (internal/validator) owns side effects like logging a reset.
package fsm

import (
	"errors"
	"fmt"

	"github.com/wnqng/fastPASTA/internal/gbt"
)

// State is one of the four FSM states a payload passes through.
type State int

const (
	// Initial is the state at the start of every new payload.
	Initial State = iota
	AfterIHW
	Data
	AfterTDT
)

func (s State) String() string {
	switch s {
	case Initial:
		return "Initial"
	case AfterIHW:
		return "AfterIHW"
	case Data:
		return "Data"
	case AfterTDT:
		return "AfterTDT"
	default:
		return "Unknown"
	}
}

// Label is the classification emitted for a single GBT word.
type Label int

const (
	LabelIHW Label = iota
	LabelIHWContinuation
	LabelTDH
	LabelTDHContinuation
	LabelTDHAfterPacketDone
	LabelTDT
	LabelDDW0
	LabelCDW
	LabelDataWord
)

func (l Label) String() string {
	switch l {
	case LabelIHW:
		return "IHW"
	case LabelIHWContinuation:
		return "IHW_continuation"
	case LabelTDH:
		return "TDH"
	case LabelTDHContinuation:
		return "TDH_continuation"
	case LabelTDHAfterPacketDone:
		return "TDH_after_packet_done"
	case LabelTDT:
		return "TDT"
	case LabelDDW0:
		return "DDW0"
	case LabelCDW:
		return "CDW"
	case LabelDataWord:
		return "DataWord"
	default:
		return "Unknown"
	}
}

// ErrUnexpectedWord is returned when no transition from the current state
// accepts the observed word kind.
var ErrUnexpectedWord = errors.New("fsm: unexpected word for current state")

// Machine holds only the current State; everything else about a
// transition is passed in by the caller each call, since the caller
// (the running validator) is the one that actually knows the RDH context.
type Machine struct {
	state State
}

// New returns a Machine in the Initial state.
func New() *Machine { return &Machine{state: Initial} }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Reset forces the machine back to Initial. The caller is responsible
// for logging this as a resync, per Design Notes' "pure classifier, no
// suspension primitive" split between this package and the validator.
func (m *Machine) Reset() { m.state = Initial }

// Next advances the machine given the word's Kind, whether this is the
// first word of a new payload, whether the last-seen TDT had
// packet_done = 1, and whether the enclosing RDH has stop_bit = 1. It
// returns the Label for this word and transitions m.state accordingly.
//
// Classification is positional, not ID-based: each state has one primary
// expected word, and a word whose ID doesn't match any known pattern
// (KindUnknown) is classified as that expected word anyway — its ID
// mismatch is a sanity violation, not an FSM one, and is left for
// internal/sanity to report. A word whose ID clearly identifies it as a
// *different* known kind (e.g. a TDT arriving where an IHW is expected)
// is a genuine state mismatch and still errors.
func (m *Machine) Next(kind gbt.Kind, newPayload bool, packetDone bool, stopBit bool) (Label, error) {
	switch m.state {
	case Initial:
		switch {
		case kind == gbt.KindIHW || kind == gbt.KindUnknown:
			m.state = AfterIHW
			return LabelIHW, nil
		case newPayload && kind == gbt.KindCDW:
			return LabelCDW, nil
		case newPayload && (kind == gbt.KindDataIB || kind == gbt.KindDataOB):
			return LabelDataWord, nil
		}

	case AfterIHW:
		switch {
		case kind == gbt.KindIHW:
			return LabelIHWContinuation, nil
		case kind == gbt.KindTDH || kind == gbt.KindUnknown:
			m.state = Data
			return LabelTDH, nil
		}

	case Data:
		switch {
		case kind == gbt.KindTDT:
			m.state = AfterTDT
			return LabelTDT, nil
		case newPayload && kind == gbt.KindCDW:
			return LabelCDW, nil
		case kind == gbt.KindDataIB || kind == gbt.KindDataOB || kind == gbt.KindUnknown:
			return LabelDataWord, nil
		}

	case AfterTDT:
		switch {
		case kind == gbt.KindDDW0 && stopBit:
			return LabelDDW0, nil
		case kind == gbt.KindTDH || kind == gbt.KindUnknown:
			m.state = Data
			if packetDone {
				return LabelTDHAfterPacketDone, nil
			}
			return LabelTDHContinuation, nil
		}
	}

	return 0, fmt.Errorf("%w: state=%s kind=%s", ErrUnexpectedWord, m.state, kind)
}
