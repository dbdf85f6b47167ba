// Package view renders the half-bunch-frame (HBF) text table: one RDH
// summary line per payload, followed by one line per classified GBT word
// that carries displayable content (status words; data words are
// omitted, matching the original tool).
package view

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
	"golang.org/x/text/width"

	"github.com/wnqng/fastPASTA/internal/fsm"
	"github.com/wnqng/fastPASTA/internal/gbt"
	"github.com/wnqng/fastPASTA/internal/rdh"
	"github.com/wnqng/fastPASTA/internal/validator"
)

// Writer renders the HBF table to an underlying io.Writer. Column widths
// and whitespace are advisory per spec.md's Non-goals; the table is
// readable, not byte-identical to any other rendering.
type Writer struct {
	out      io.Writer
	colorize bool
}

// NewWriter returns a Writer. Colorization is auto-detected via
// golang.org/x/term against the file descriptor of out when out is an
// *os.File; otherwise it's disabled.
func NewWriter(out io.Writer) *Writer {
	colorize := false
	if f, ok := out.(*os.File); ok {
		colorize = term.IsTerminal(int(f.Fd()))
	}
	return &Writer{out: out, colorize: colorize}
}

// PrintHeader writes the two-line column header once per view session.
func (w *Writer) PrintHeader() error {
	_, err := fmt.Fprintf(w.out, "\nMemory    Word%37s%12s%12s%12s%12s\nPosition  type%36s %12s%12s%12s%12s\n\n",
		"Trig.", "Packet", "Expect", "Link", "Lane  ",
		"type", "status", "Data? ", "ID  ", "faults")
	return err
}

// PrintRDH writes the one-line RDH summary: version, trigger category,
// and link ID. It's a free function rather than a Writer method because
// RDHCRU carries its own version as a type parameter, and Go methods
// can't introduce a type parameter beyond their receiver's.
func PrintRDH[V rdh.Version](w *Writer, h rdh.RDHCRU[V], rdhMemPos uint64) error {
	trig := w.triggerCell(validator.TriggerCategory(h.Rdh2.TriggerType))
	_, err := fmt.Fprintf(w.out, "%8X: RDH v%-10d%28s                                #%-18d\n",
		rdhMemPos, h.Version(), trig, h.LinkID)
	return err
}

func (w *Writer) triggerCell(category string) string {
	padded := width.Widen.String(category)
	if !w.colorize {
		return padded
	}
	const (
		ansiReset  = "\x1b[0m"
		ansiYellow = "\x1b[33m"
		ansiRed    = "\x1b[31m"
		ansiCyan   = "\x1b[36m"
	)
	switch category {
	case "SOC":
		return ansiRed + padded + ansiReset
	case "HB":
		return ansiYellow + padded + ansiReset
	case "PhT":
		return ansiCyan + padded + ansiReset
	default:
		return padded
	}
}

// PrintWord writes one line for a classified GBT word, or nothing for
// CDW and plain data words, which carry no displayable summary.
func (w *Writer) PrintWord(memPos uint64, label fsm.Label, word gbt.Word) error {
	switch label {
	case fsm.LabelIHW, fsm.LabelIHWContinuation:
		_, err := fmt.Fprintf(w.out, "%8X: IHW %s\n", memPos, word)
		return err

	case fsm.LabelTDH, fsm.LabelTDHAfterPacketDone:
		tdh := gbt.NewTDH(word)
		_, err := fmt.Fprintf(w.out, "%8X: TDH %s %s  %s        %s\n",
			memPos, word, triggerFlagsString(tdh), continuationString(tdh), noDataString(tdh))
		return err

	case fsm.LabelTDHContinuation:
		tdh := gbt.NewTDH(word)
		_, err := fmt.Fprintf(w.out, "%8X: TDH %s %s  %s\n",
			memPos, word, triggerFlagsString(tdh), continuationString(tdh))
		return err

	case fsm.LabelTDT:
		tdt := gbt.NewTDT(word)
		_, err := fmt.Fprintf(w.out, "%8X: TDT %s %18s                             %s\n",
			memPos, word, packetDoneString(tdt), laneStatusString(tdt.LaneStatus()))
		return err

	case fsm.LabelDDW0:
		ddw0 := gbt.NewDDW0(word)
		_, err := fmt.Fprintf(w.out, "%8X: DDW %s                                                %s\n",
			memPos, word, laneStatusString(ddw0.LaneStatus()))
		return err
	}
	return nil
}

func triggerFlagsString(t gbt.TDH) string {
	return fmt.Sprintf("trigger=0x%03X", t.TriggerType())
}

func continuationString(t gbt.TDH) string {
	if t.Continuation() {
		return "continuation"
	}
	return "new"
}

func noDataString(t gbt.TDH) string {
	if t.NoData() {
		return "no_data"
	}
	return ""
}

func packetDoneString(t gbt.TDT) string {
	if t.PacketDone() {
		return "packet_done"
	}
	return "continues"
}

func laneStatusString(status uint32) string {
	if status == 0 {
		return ""
	}
	return fmt.Sprintf("⚠ lanes=0x%X", status)
}
