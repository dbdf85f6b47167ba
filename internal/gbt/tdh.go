package gbt

// TDH is the Trigger Data Header: it opens a trigger sequence within a
// payload and carries the trigger identity (bc/orbit/type) that cross-word
// validation checks against the enclosing RDH.
type TDH struct{ w Word }

// NewTDH wraps w without checking its ID; callers classify first.
func NewTDH(w Word) TDH { return TDH{w} }

const (
	tdhContinuationBit  = 12
	tdhInternalTrigBit  = 13
	tdhNoDataBit        = 14
	tdhTriggerBCMask    = 0x0FFF
	tdhTriggerTypeMask  = 0x0FFF
)

// TriggerBC returns the 12-bit bunch-crossing counter of the trigger.
func (t TDH) TriggerBC() uint16 {
	lo := uint16(t.w[0]) | uint16(t.w[1])<<8
	return lo & tdhTriggerBCMask
}

// Continuation reports whether this TDH continues the previous trigger
// rather than opening a new one.
func (t TDH) Continuation() bool {
	lo := uint16(t.w[0]) | uint16(t.w[1])<<8
	return lo&(1<<tdhContinuationBit) != 0
}

// InternalTrigger reports whether the trigger originated internally
// (software/heartbeat) rather than from the external trigger system.
func (t TDH) InternalTrigger() bool {
	lo := uint16(t.w[0]) | uint16(t.w[1])<<8
	return lo&(1<<tdhInternalTrigBit) != 0
}

// NoData reports whether this trigger carries no detector data.
func (t TDH) NoData() bool {
	lo := uint16(t.w[0]) | uint16(t.w[1])<<8
	return lo&(1<<tdhNoDataBit) != 0
}

// TriggerType returns the low 12 bits of the trigger type, comparable
// against RDH rdh2.trigger_type & 0xFFF.
func (t TDH) TriggerType() uint16 {
	v := uint16(t.w[2]) | uint16(t.w[3])<<8
	return v & tdhTriggerTypeMask
}

// TriggerOrbit returns the 32-bit orbit counter of the trigger, compared
// against RDH rdh1.orbit.
func (t TDH) TriggerOrbit() uint32 {
	return uint32(t.w[4]) | uint32(t.w[5])<<8 | uint32(t.w[6])<<16 | uint32(t.w[7])<<24
}

// Raw returns the backing word.
func (t TDH) Raw() Word { return t.w }
