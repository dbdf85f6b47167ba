package gbt

// TDT is the Trigger Data Terminator that closes a trigger sequence and
// reports per-lane status, mirrored by DDW0 at the end-of-payload.
type TDT struct{ w Word }

// NewTDT wraps w without checking its ID; callers classify first.
func NewTDT(w Word) TDT { return TDT{w} }

// LaneStatus returns the 32-bit lane-fault bitmap: bit i set means lane i
// reported a fault in this trigger.
func (t TDT) LaneStatus() uint32 {
	return uint32(t.w[0]) | uint32(t.w[1])<<8 | uint32(t.w[2])<<16 | uint32(t.w[3])<<24
}

// PacketDone reports whether the trigger sequence is complete: when
// false, the next TDH in the payload continues the same trigger.
func (t TDT) PacketDone() bool { return t.w[4]&0x1 != 0 }

// Raw returns the backing word.
func (t TDT) Raw() Word { return t.w }
