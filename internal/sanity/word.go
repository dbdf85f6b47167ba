package sanity

import (
	"fmt"

	"github.com/wnqng/fastPASTA/internal/gbt"
)

// Each Check* function is a stateless, single-word constraint checker.
// ok is equivalent to err == nil; both are returned so callers can branch
// on success without an error-typed nil check.

// CheckIHW verifies the ID byte of a word already classified as IHW.
func CheckIHW(w gbt.Word) (bool, error) {
	me := &MultiError{}
	if id := w.ID(); id != gbt.IDIHW {
		me.Add(fmt.Sprintf("[E30] ID is not 0x%02X: 0x%02X", gbt.IDIHW, id))
	}
	return me.Empty(), me.ErrOrNil()
}

// CheckTDH verifies the ID byte of a word already classified as TDH.
func CheckTDH(w gbt.Word) (bool, error) {
	me := &MultiError{}
	if id := w.ID(); id != gbt.IDTDH {
		me.Add(fmt.Sprintf("[E40] ID is not 0x%02X: 0x%02X", gbt.IDTDH, id))
	}
	return me.Empty(), me.ErrOrNil()
}

// CheckTDT verifies the ID byte of a word already classified as TDT.
func CheckTDT(w gbt.Word) (bool, error) {
	me := &MultiError{}
	if id := w.ID(); id != gbt.IDTDT {
		me.Add(fmt.Sprintf("[E50] ID is not 0x%02X: 0x%02X", gbt.IDTDT, id))
	}
	return me.Empty(), me.ErrOrNil()
}

// CheckDDW0 verifies the ID byte of a word already classified as DDW0.
func CheckDDW0(w gbt.Word) (bool, error) {
	me := &MultiError{}
	if id := w.ID(); id != gbt.IDDDW0 {
		me.Add(fmt.Sprintf("[E60] ID is not 0x%02X: 0x%02X", gbt.IDDDW0, id))
	}
	return me.Empty(), me.ErrOrNil()
}

// CheckCDW verifies the ID byte of a word already classified as CDW.
func CheckCDW(w gbt.Word) (bool, error) {
	me := &MultiError{}
	if id := w.ID(); id != gbt.IDCDW {
		me.Add(fmt.Sprintf("[E80] ID is not 0x%02X: 0x%02X", gbt.IDCDW, id))
	}
	return me.Empty(), me.ErrOrNil()
}

// CheckDataWord verifies that a word classified as data carries an ID
// byte whose top 3 bits match a known inner- or outer-barrel pattern.
func CheckDataWord(w gbt.Word) (bool, error) {
	me := &MultiError{}
	kind := w.Kind()
	if kind != gbt.KindDataIB && kind != gbt.KindDataOB {
		me.Add(fmt.Sprintf("[E70] ID does not match a known data word pattern: 0x%02X", w.ID()))
	}
	return me.Empty(), me.ErrOrNil()
}
