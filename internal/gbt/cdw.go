package gbt

import "encoding/binary"

// CDW is the Calibration Data Word, legal only as the first word of a new
// payload. It carries an opaque per-run calibration field plus an index
// that increments as calibration data streams across multiple CDWs.
type CDW struct{ w Word }

// NewCDW wraps w without checking its ID; callers classify first.
func NewCDW(w Word) CDW { return CDW{w} }

// CalibrationUserFields returns the 48-bit opaque calibration payload.
func (c CDW) CalibrationUserFields() uint64 {
	var buf [8]byte
	copy(buf[:6], c.w[0:6])
	return binary.LittleEndian.Uint64(buf[:])
}

// CalibrationWordIndex returns the index of this CDW within its
// calibration burst; 0 marks the first word.
func (c CDW) CalibrationWordIndex() uint16 {
	return uint16(c.w[6]) | uint16(c.w[7])<<8
}

// Raw returns the backing word.
func (c CDW) Raw() Word { return c.w }
