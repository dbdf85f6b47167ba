package sanity

import (
	"fmt"

	"github.com/wnqng/fastPASTA/internal/rdh"
)

// Options parameterizes the FEE-ID bounds and the ITS system_id pin used
// by CheckRDH, mirroring the original tool's configurable sanity checks.
type Options struct {
	LayerMin, LayerMax uint8
	StaveMin, StaveMax uint8
	ITS                bool
	// HeaderID pins Rdh0.HeaderID to a specific value once the caller has
	// observed the first RDH of a run; nil skips the check.
	HeaderID *uint8
}

// DefaultOptions returns the bounds the original tool defaults to:
// layer in [0,6], stave in [0,47], no ITS pin.
func DefaultOptions() Options {
	return Options{LayerMin: 0, LayerMax: 6, StaveMin: 0, StaveMax: 47}
}

// CheckRDH accumulates every violated sanity constraint across Rdh0..Rdh3
// plus the cross-sub-header checks (dw, data_format, link_id), returning a
// single *MultiError or nil.
func CheckRDH[V rdh.Version](r rdh.RDHCRU[V], opts Options) error {
	me := &MultiError{}

	checkRdh0(r.Rdh0, opts, me)
	checkRdh1(r.Rdh1, me)
	checkRdh2(r.Rdh2, me)
	checkRdh3(r.Rdh3, me)

	if r.Dw() > rdh.MaxDataWrapper {
		me.Add(fmt.Sprintf("dw is greater than %d: %d", rdh.MaxDataWrapper, r.Dw()))
	}
	if r.DataFormat != 0 && r.DataFormat != 2 {
		me.Add(fmt.Sprintf("data_format is not 0 or 2: %d", r.DataFormat))
	}
	if r.LinkID > rdh.MaxLinkID && r.LinkID != rdh.ULLinkID {
		me.Add(fmt.Sprintf("link_id is not in 0..=%d or %d: %d", rdh.MaxLinkID, rdh.ULLinkID, r.LinkID))
	}

	return me.ErrOrNil()
}

func checkRdh0(r0 rdh.Rdh0, opts Options, me *MultiError) {
	if opts.HeaderID != nil && r0.HeaderID != *opts.HeaderID {
		me.Add(fmt.Sprintf("header_id changed from 0x%02X to 0x%02X", *opts.HeaderID, r0.HeaderID))
	}
	if r0.HeaderSize != rdh.HeaderSize {
		me.Add(fmt.Sprintf("header_size is not 0x%02X: 0x%02X", rdh.HeaderSize, r0.HeaderSize))
	}
	if r0.PriorityBit != 0 {
		me.Add(fmt.Sprintf("priority_bit is not 0: %d", r0.PriorityBit))
	}
	if opts.ITS && r0.SystemID != rdh.ITSSystemID {
		me.Add(fmt.Sprintf("system_id is not %d (ITS): %d", rdh.ITSSystemID, r0.SystemID))
	}
	if r0.Reserved0 != 0 {
		me.Add(fmt.Sprintf("rdh0 reserved0 is not 0: 0x%04X", r0.Reserved0))
	}
	if rb := r0.FeeID.ReservedBits(); rb != 0 {
		me.Add(fmt.Sprintf("fee_id reserved bits are set: 0x%04X", uint16(rb)))
	}
	layer, stave, _ := r0.FeeID.Decode()
	if layer < opts.LayerMin || layer > opts.LayerMax {
		me.Add(fmt.Sprintf("fee_id layer %d out of range [%d,%d]", layer, opts.LayerMin, opts.LayerMax))
	}
	if stave < opts.StaveMin || stave > opts.StaveMax {
		me.Add(fmt.Sprintf("fee_id stave_number %d out of range [%d,%d]", stave, opts.StaveMin, opts.StaveMax))
	}
}

func checkRdh1(r1 rdh.Rdh1, me *MultiError) {
	if r1.Reserved0 != 0 {
		me.Add(fmt.Sprintf("rdh1 reserved0 is not 0: 0x%X", r1.Reserved0))
	}
	if r1.Bc > rdh.MaxBunchCrossing {
		me.Add(fmt.Sprintf("bc is greater than 0x%X: 0x%X", rdh.MaxBunchCrossing, r1.Bc))
	}
}

func checkRdh2(r2 rdh.Rdh2, me *MultiError) {
	if r2.Reserved0 != 0 {
		me.Add(fmt.Sprintf("rdh2 reserved0 is not 0: %d", r2.Reserved0))
	}
	if r2.StopBit > 1 {
		me.Add(fmt.Sprintf("stop_bit is greater than 1: %d", r2.StopBit))
	}
	if r2.TriggerType == 0 {
		me.Add("trigger_type is 0")
	}
	if r2.TriggerType&rdh.SpareBitsMask != 0 {
		me.Add(fmt.Sprintf("trigger_type has reserved spare bits set: 0x%08X", r2.TriggerType))
	}
}

func checkRdh3(r3 rdh.Rdh3, me *MultiError) {
	if r3.Reserved0 != 0 {
		me.Add(fmt.Sprintf("rdh3 reserved0 is not 0: %d", r3.Reserved0))
	}
	if r3.DetectorField&rdh.DetectorFieldReservedMask != 0 {
		me.Add(fmt.Sprintf("detector_field has reserved bits set: 0x%08X", r3.DetectorField))
	}
}
