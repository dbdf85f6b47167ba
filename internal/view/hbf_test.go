package view_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wnqng/fastPASTA/internal/fsm"
	"github.com/wnqng/fastPASTA/internal/gbt"
	"github.com/wnqng/fastPASTA/internal/rdh"
	"github.com/wnqng/fastPASTA/internal/view"
)

func mkWord(bytes ...byte) gbt.Word {
	var w gbt.Word
	copy(w[:], bytes)
	return w
}

func TestPrintRDHWritesVersionAndLink(t *testing.T) {
	var buf bytes.Buffer
	w := view.NewWriter(&buf)

	h := rdh.RDHCRU[rdh.V7]{LinkID: 3}
	require.NoError(t, view.PrintRDH(w, h, 0x100))
	require.Contains(t, buf.String(), "RDH v7")
	require.Contains(t, buf.String(), "#3")
}

func TestPrintWordSkipsDataWords(t *testing.T) {
	var buf bytes.Buffer
	w := view.NewWriter(&buf)

	require.NoError(t, w.PrintWord(0x40, fsm.LabelDataWord, mkWord(0, 0, 0, 0, 0, 0, 0, 0, 0, 0b001_00000)))
	require.Empty(t, buf.String())
}

func TestPrintWordRendersTDT(t *testing.T) {
	var buf bytes.Buffer
	w := view.NewWriter(&buf)

	require.NoError(t, w.PrintWord(0x50, fsm.LabelTDT, mkWord(0, 0, 0, 0, 1, 0, 0, 0, 0, 0xF0)))
	require.Contains(t, buf.String(), "TDT")
	require.Contains(t, buf.String(), "packet_done")
}
