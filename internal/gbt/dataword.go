package gbt

// DataWordIB is an inner-barrel detector data word: its ID byte's low 5
// bits name the source lane directly.
type DataWordIB struct{ w Word }

// NewDataWordIB wraps w without checking its ID; callers classify first.
func NewDataWordIB(w Word) DataWordIB { return DataWordIB{w} }

// LaneID returns the low 5 bits of the ID byte.
func (d DataWordIB) LaneID() uint8 { return d.w.ID() & 0x1F }

// Raw returns the backing word.
func (d DataWordIB) Raw() Word { return d.w }

// DataWordOB is an outer-barrel detector data word: its ID byte's low 5
// bits pack a lane number and an input-connector index.
type DataWordOB struct{ w Word }

// NewDataWordOB wraps w without checking its ID; callers classify first.
func NewDataWordOB(w Word) DataWordOB { return DataWordOB{w} }

// Lane returns bits [4:3] of the ID byte's low 5 bits.
func (d DataWordOB) Lane() uint8 { return (d.w.ID() >> 3) & 0x3 }

// InputConnector returns bits [2:0] of the ID byte's low 5 bits; legal
// values are 0..6.
func (d DataWordOB) InputConnector() uint8 { return d.w.ID() & 0x7 }

// Raw returns the backing word.
func (d DataWordOB) Raw() Word { return d.w }
