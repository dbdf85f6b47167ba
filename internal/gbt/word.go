// Package gbt decodes the 80-bit GBT words that make up a CRU payload:
// the initial header word, trigger data header/terminator, diagnostic
// data word, calibration data word, and the opaque detector data words.
package gbt

import "fmt"

// Word is a single 80-bit (10-byte) GBT payload quantum, little-endian,
// with its kind-discriminating ID in the trailing byte.
type Word [10]byte

// ID returns the trailing discriminator byte.
func (w Word) ID() byte { return w[9] }

// Kind-discriminating ID values for the fixed status words. Data words are
// distinguished by the top 3 bits of the ID byte instead (see Kind).
const (
	IDIHW  byte = 0xE0
	IDTDH  byte = 0xE8
	IDTDT  byte = 0xF0
	IDDDW0 byte = 0xE4
	IDCDW  byte = 0xF8
)

// Kind classifies a GBT word by its ID byte alone, independent of FSM
// state. Data word IDs are recognized by their top-3-bit pattern; the
// remaining bits carry lane/connector information handled by DataWordIB
// and DataWordOB.
type Kind int

const (
	KindUnknown Kind = iota
	KindIHW
	KindTDH
	KindTDT
	KindDDW0
	KindCDW
	KindDataIB
	KindDataOB
)

func (k Kind) String() string {
	switch k {
	case KindIHW:
		return "IHW"
	case KindTDH:
		return "TDH"
	case KindTDT:
		return "TDT"
	case KindDDW0:
		return "DDW0"
	case KindCDW:
		return "CDW"
	case KindDataIB:
		return "DataWordIB"
	case KindDataOB:
		return "DataWordOB"
	default:
		return "Unknown"
	}
}

// dataWordTopBits identifies inner-barrel (0b001) and outer-barrel
// (0b010) data words from the top 3 bits of the ID byte.
const (
	dataIBTopBits byte = 0b001
	dataOBTopBits byte = 0b010
)

// ClassifyID returns the Kind implied purely by the ID byte, without any
// FSM context. Callers that need FSM-aware labels (e.g. IHW_continuation)
// use internal/fsm on top of this.
func ClassifyID(id byte) Kind {
	switch id {
	case IDIHW:
		return KindIHW
	case IDTDH:
		return KindTDH
	case IDTDT:
		return KindTDT
	case IDDDW0:
		return KindDDW0
	case IDCDW:
		return KindCDW
	}
	switch id >> 5 {
	case dataIBTopBits:
		return KindDataIB
	case dataOBTopBits:
		return KindDataOB
	}
	return KindUnknown
}

// Kind is a convenience wrapper around ClassifyID(w.ID()).
func (w Word) Kind() Kind { return ClassifyID(w.ID()) }

func (w Word) String() string {
	return fmt.Sprintf("[%02X %02X %02X %02X %02X %02X %02X %02X %02X %02X]",
		w[0], w[1], w[2], w[3], w[4], w[5], w[6], w[7], w[8], w[9])
}
