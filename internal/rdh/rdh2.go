package rdh

// Trigger type bit masks, checked in priority order SOC > HB > PhT > Other
// when rendering a human-readable trigger category.
const (
	TriggerPhT uint32 = 0b1_0000
	TriggerSOC uint32 = 0b10_0000_0000
	TriggerHB  uint32 = 0b10
)

// SpareBitsMask covers trigger_type bits [26:15], which must be clear.
const SpareBitsMask uint32 = 0b0000_0111_1111_1111_1000_0000_0000_0000

// Rdh2 carries the trigger type and the end-of-payload bookkeeping fields.
type Rdh2 struct {
	TriggerType  uint32
	PagesCounter uint16
	StopBit      uint8
	Reserved0    uint8
}

const rdh2Size = 8

func decodeRdh2(b []byte) Rdh2 {
	_ = b[rdh2Size-1]
	return Rdh2{
		TriggerType:  uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24,
		PagesCounter: uint16(b[4]) | uint16(b[5])<<8,
		StopBit:      b[6],
		Reserved0:    b[7],
	}
}

func (r Rdh2) encode(b []byte) {
	_ = b[rdh2Size-1]
	b[0] = byte(r.TriggerType)
	b[1] = byte(r.TriggerType >> 8)
	b[2] = byte(r.TriggerType >> 16)
	b[3] = byte(r.TriggerType >> 24)
	b[4] = byte(r.PagesCounter)
	b[5] = byte(r.PagesCounter >> 8)
	b[6] = r.StopBit
	b[7] = r.Reserved0
}
