package rdh

import "fmt"

// FeeID is the bit-packed front-end-electronics identifier.
//
//	stave_number [5:0]
//	reserved     [7:6]
//	fiber_uplink [9:8]
//	reserved     [11:10]
//	layer        [14:12]
//	reserved     [15]
type FeeID uint16

const feeIDReservedMask FeeID = 0b1000_1100_1100_0000

// StaveNumber returns bits [5:0].
func (f FeeID) StaveNumber() uint8 { return uint8(f & 0x3F) }

// FiberUplink returns bits [9:8].
func (f FeeID) FiberUplink() uint8 { return uint8((f >> 8) & 0x3) }

// Layer returns bits [14:12].
func (f FeeID) Layer() uint8 { return uint8((f >> 12) & 0x7) }

// ReservedBits returns the bits that must be zero.
func (f FeeID) ReservedBits() FeeID { return f & feeIDReservedMask }

// Decode splits fee_id into (layer, stave, fiber_uplink), supplementing
// spec.md with the original tool's "its_stave" decode helper.
func (f FeeID) Decode() (layer, stave, fiberUplink uint8) {
	return f.Layer(), f.StaveNumber(), f.FiberUplink()
}

func (f FeeID) String() string {
	return fmt.Sprintf("0x%04X (layer=%d stave=%d fiber=%d)", uint16(f), f.Layer(), f.StaveNumber(), f.FiberUplink())
}

// Rdh0 is the first 8-byte sub-header of an RDH-CRU.
type Rdh0 struct {
	HeaderID    uint8
	HeaderSize  uint8
	FeeID       FeeID
	PriorityBit uint8
	SystemID    uint8
	Reserved0   uint16
}

const rdh0Size = 8

func decodeRdh0(b []byte) Rdh0 {
	_ = b[rdh0Size-1]
	return Rdh0{
		HeaderID:    b[0],
		HeaderSize:  b[1],
		FeeID:       FeeID(uint16(b[2]) | uint16(b[3])<<8),
		PriorityBit: b[4],
		SystemID:    b[5],
		Reserved0:   uint16(b[6]) | uint16(b[7])<<8,
	}
}

func (r Rdh0) encode(b []byte) {
	_ = b[rdh0Size-1]
	b[0] = r.HeaderID
	b[1] = r.HeaderSize
	b[2] = byte(r.FeeID)
	b[3] = byte(r.FeeID >> 8)
	b[4] = r.PriorityBit
	b[5] = r.SystemID
	b[6] = byte(r.Reserved0)
	b[7] = byte(r.Reserved0 >> 8)
}
