// Package validator drives the payload state machine and enforces the
// cross-word invariants between an RDH and the GBT words in its payload:
// RDH-marker coherence, TDH/TDT trigger continuity, IHW lane membership,
// and CDW calibration continuity.
package validator

import (
	"fmt"
	"strings"

	"github.com/wnqng/fastPASTA/internal/fsm"
	"github.com/wnqng/fastPASTA/internal/gbt"
	"github.com/wnqng/fastPASTA/internal/rdh"
	"github.com/wnqng/fastPASTA/internal/sanity"
)

// TriggerCategory classifies a raw rdh2 trigger_type value for display
// and stats purposes, giving precedence SOC > HB > PhT > Other, matching
// the original view layer's priority rule.
func TriggerCategory(triggerType uint32) string {
	switch {
	case triggerType&rdh.TriggerSOC != 0:
		return "SOC"
	case triggerType&rdh.TriggerHB != 0:
		return "HB"
	case triggerType&rdh.TriggerPhT != 0:
		return "PhT"
	default:
		return "Other"
	}
}

// Running holds all state that must survive across GBT words within (and,
// for previous TDH/CDW, across) a payload: the current RDH, current and
// previous TDH (by value), current TDT, current DDW0, previous CDW (by
// value), the GBT word counter and its derived memory position, and
// whether the cross-word rules are enabled at all.
type Running[V rdh.Version] struct {
	// RunningChecks gates the cross-word rules (RDH/TDH/TDT/CDW
	// continuity) on top of the always-on per-word sanity checks and FSM
	// classification. A config CheckMode of "sanity" clears it; "all"
	// (the default) leaves it set.
	RunningChecks bool
	SanityOptions sanity.Options

	currentRDH     rdh.RDHCRU[V]
	rdhMemPos      uint64
	payloadMemPos  uint64
	gbtWordPadding uint64

	fsm *fsm.Machine

	currentIHW  *gbt.IHW
	currentTDH  *gbt.TDH
	previousTDH *gbt.TDH
	currentTDT  *gbt.TDT
	currentDDW0 *gbt.DDW0
	previousCDW *gbt.CDW

	gbtWordCounter uint64
	newPayload     bool
}

// New returns a Running validator with sanity checks using opts.
func New[V rdh.Version](opts sanity.Options) *Running[V] {
	return &Running[V]{SanityOptions: opts, fsm: fsm.New(), RunningChecks: true}
}

// SetCurrentRDH primes the validator for a new payload: it resets the
// word counter, recomputes the padding implied by data_format, and
// restarts the FSM (the FSM always starts Initial at the top of a new
// payload, per the protocol's own invariant, not because of an error).
func (r *Running[V]) SetCurrentRDH(h rdh.RDHCRU[V], rdhMemPos uint64) {
	r.currentRDH = h
	r.rdhMemPos = rdhMemPos
	r.payloadMemPos = rdhMemPos + rdh.Size
	if h.DataFormat == 0 {
		r.gbtWordPadding = 6
	} else {
		r.gbtWordPadding = 0
	}
	r.gbtWordCounter = 0
	r.newPayload = true
	r.fsm.Reset()
	r.currentIHW = nil
	r.currentTDH = nil
	r.currentTDT = nil
	r.currentDDW0 = nil
}

// calcCurrentWordMemPos mirrors the original's formula:
// (gbt_word_counter-1)*(10+padding) + payload_mem_pos.
func (r *Running[V]) calcCurrentWordMemPos() uint64 {
	return (r.gbtWordCounter-1)*(10+r.gbtWordPadding) + r.payloadMemPos
}

// reportError formats a cross-word or sanity violation exactly as the
// original tool does: "<hex_mem_pos>: <message> [<hex bytes>]".
func reportError(memPos uint64, message string, w gbt.Word) string {
	return fmt.Sprintf("0x%X: %s %s", memPos, message, w.String())
}

// packetDone tracks the just-seen TDT's packet_done bit across the
// AfterTDT -> (TDH_continuation | TDH_after_packet_done) transition.
func (r *Running[V]) packetDone() bool {
	if r.currentTDT == nil {
		return false
	}
	return r.currentTDT.PacketDone()
}

// Check classifies w via the FSM and runs every sanity + cross-word rule
// that applies to its label, returning the FSM label, this word's
// absolute memory position, and the formatted violation messages (zero
// or more — a word can fail sanity and still be classified, since the
// FSM dispatches purely on the ID's Kind, not on sanity outcome).
func (r *Running[V]) Check(w gbt.Word) (fsm.Label, uint64, []string) {
	r.gbtWordCounter++
	memPos := r.calcCurrentWordMemPos()

	kind := w.Kind()
	label, err := r.fsm.Next(kind, r.newPayload, r.packetDone(), r.currentRDH.Rdh2.StopBit == 1)
	r.newPayload = false
	if err != nil {
		r.fsm.Reset()
		return label, memPos, []string{reportError(memPos, "[FSM] "+err.Error(), w)}
	}

	var out []string
	emit := func(code, msg string) {
		// Sanity checker messages already carry their "[code]" prefix.
		if !strings.HasPrefix(msg, "["+code+"]") {
			msg = fmt.Sprintf("[%s] %s", code, msg)
		}
		out = append(out, reportError(memPos, msg, w))
	}

	switch label {
	case fsm.LabelIHW:
		if _, serr := sanity.CheckIHW(w); serr != nil {
			emit("E30", serr.Error())
		}
		ihw := gbt.NewIHW(w)
		r.currentIHW = &ihw
		if r.RunningChecks && r.currentRDH.Rdh2.StopBit != 0 {
			emit("E12", "IHW received but RDH stop_bit is set")
		}

	case fsm.LabelIHWContinuation:
		if _, serr := sanity.CheckIHW(w); serr != nil {
			emit("E30", serr.Error())
		}
		ihw := gbt.NewIHW(w)
		r.currentIHW = &ihw

	case fsm.LabelTDH:
		if _, serr := sanity.CheckTDH(w); serr != nil {
			emit("E40", serr.Error())
		}
		tdh := gbt.NewTDH(w)
		if r.RunningChecks {
			r.checkTDHFirst(tdh, emit)
		}
		r.currentTDH = &tdh

	case fsm.LabelTDHContinuation:
		if _, serr := sanity.CheckTDH(w); serr != nil {
			emit("E40", serr.Error())
		}
		tdh := gbt.NewTDH(w)
		if r.RunningChecks {
			r.checkTDHContinuation(tdh, emit)
		}
		r.previousTDH = r.currentTDH
		r.currentTDH = &tdh

	case fsm.LabelTDHAfterPacketDone:
		if _, serr := sanity.CheckTDH(w); serr != nil {
			emit("E40", serr.Error())
		}
		tdh := gbt.NewTDH(w)
		if r.RunningChecks {
			r.checkTDHAfterPacketDone(tdh, emit)
		}
		r.previousTDH = r.currentTDH
		r.currentTDH = &tdh

	case fsm.LabelTDT:
		if _, serr := sanity.CheckTDT(w); serr != nil {
			emit("E50", serr.Error())
		}
		tdt := gbt.NewTDT(w)
		r.currentTDT = &tdt

	case fsm.LabelDDW0:
		if _, serr := sanity.CheckDDW0(w); serr != nil {
			emit("E60", serr.Error())
		}
		ddw0 := gbt.NewDDW0(w)
		r.currentDDW0 = &ddw0
		if r.RunningChecks {
			if r.currentRDH.Rdh2.StopBit != 1 {
				emit("E11", "DDW0 received but RDH stop_bit is not set")
			}
			if r.currentRDH.Rdh2.PagesCounter == 0 {
				emit("E11", "DDW0 received but RDH pages_counter is 0")
			}
		}

	case fsm.LabelCDW:
		if _, serr := sanity.CheckCDW(w); serr != nil {
			emit("E80", serr.Error())
		}
		cdw := gbt.NewCDW(w)
		if r.RunningChecks {
			r.checkCDW(cdw, emit)
		}
		r.previousCDW = &cdw

	case fsm.LabelDataWord:
		if _, serr := sanity.CheckDataWord(w); serr != nil {
			emit("E70", serr.Error())
		}
		if r.RunningChecks {
			r.checkDataWord(w, emit)
		}
	}

	return label, memPos, out
}

func (r *Running[V]) checkTDHFirst(tdh gbt.TDH, emit func(code, msg string)) {
	if tdh.Continuation() {
		emit("E41", "TDH continuation is 1 on a first TDH")
	}
	if tdh.TriggerOrbit() != r.currentRDH.Rdh1.Orbit {
		emit("E44", fmt.Sprintf("TDH trigger_orbit 0x%X does not match RDH orbit 0x%X", tdh.TriggerOrbit(), r.currentRDH.Rdh1.Orbit))
	}
	isPhysicsTrigger := r.currentRDH.Rdh2.TriggerType&rdh.TriggerPhT != 0
	if r.currentRDH.Rdh2.PagesCounter == 0 && (tdh.InternalTrigger() || isPhysicsTrigger) {
		if tdh.TriggerBC() != r.currentRDH.Rdh1.Bc {
			emit("E44", fmt.Sprintf("TDH trigger_bc 0x%X does not match RDH bc 0x%X", tdh.TriggerBC(), r.currentRDH.Rdh1.Bc))
		}
		if tdh.TriggerType() != uint16(r.currentRDH.Rdh2.TriggerType&0xFFF) {
			emit("E44", fmt.Sprintf("TDH trigger_type 0x%X does not match RDH trigger_type 0x%X", tdh.TriggerType(), r.currentRDH.Rdh2.TriggerType&0xFFF))
		}
	}
}

func (r *Running[V]) checkTDHContinuation(tdh gbt.TDH, emit func(code, msg string)) {
	if !tdh.Continuation() {
		emit("E42", "TDH continuation is 0 on a continuation TDH")
	}
	if r.previousTDH == nil {
		return
	}
	if tdh.TriggerBC() != r.previousTDH.TriggerBC() {
		emit("E44", "TDH trigger_bc does not match previous TDH")
	}
	if tdh.TriggerOrbit() != r.previousTDH.TriggerOrbit() {
		emit("E44", "TDH trigger_orbit does not match previous TDH")
	}
	if tdh.TriggerType() != r.previousTDH.TriggerType() {
		emit("E44", "TDH trigger_type does not match previous TDH")
	}
}

func (r *Running[V]) checkTDHAfterPacketDone(tdh gbt.TDH, emit func(code, msg string)) {
	if !tdh.InternalTrigger() {
		emit("E43", "TDH internal_trigger is 0 after packet_done")
	}
	if r.previousTDH != nil && tdh.TriggerBC() < r.previousTDH.TriggerBC() {
		emit("E44", fmt.Sprintf("TDH trigger_bc 0x%X decreased from previous TDH 0x%X", tdh.TriggerBC(), r.previousTDH.TriggerBC()))
	}
}

func (r *Running[V]) checkDataWord(w gbt.Word, emit func(code, msg string)) {
	switch w.Kind() {
	case gbt.KindDataIB:
		lane := gbt.NewDataWordIB(w).LaneID()
		if r.currentIHW == nil || !r.currentIHW.HasLane(lane) {
			emit("E72", fmt.Sprintf("data word lane %d not active in current IHW", lane))
		}
	case gbt.KindDataOB:
		ob := gbt.NewDataWordOB(w)
		if r.currentIHW == nil || !r.currentIHW.HasLane(ob.Lane()) {
			emit("E71", fmt.Sprintf("data word lane %d not active in current IHW", ob.Lane()))
		}
		if ob.InputConnector() > 6 {
			emit("E73", fmt.Sprintf("data word input_connector %d exceeds 6", ob.InputConnector()))
		}
	}
}

func (r *Running[V]) checkCDW(cdw gbt.CDW, emit func(code, msg string)) {
	if r.previousCDW == nil {
		return
	}
	if cdw.CalibrationWordIndex() != 0 && cdw.CalibrationUserFields() != r.previousCDW.CalibrationUserFields() {
		emit("E81", "CDW calibration_user_fields changed mid-burst")
	}
}
