package fsm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wnqng/fastPASTA/internal/fsm"
	"github.com/wnqng/fastPASTA/internal/gbt"
)

func TestHappyPathSinglePage(t *testing.T) {
	m := fsm.New()
	require.Equal(t, fsm.Initial, m.State())

	lbl, err := m.Next(gbt.KindIHW, true, false, false)
	require.NoError(t, err)
	require.Equal(t, fsm.LabelIHW, lbl)
	require.Equal(t, fsm.AfterIHW, m.State())

	lbl, err = m.Next(gbt.KindTDH, false, false, false)
	require.NoError(t, err)
	require.Equal(t, fsm.LabelTDH, lbl)
	require.Equal(t, fsm.Data, m.State())

	lbl, err = m.Next(gbt.KindDataIB, false, false, false)
	require.NoError(t, err)
	require.Equal(t, fsm.LabelDataWord, lbl)
	require.Equal(t, fsm.Data, m.State())

	lbl, err = m.Next(gbt.KindTDT, false, false, false)
	require.NoError(t, err)
	require.Equal(t, fsm.LabelTDT, lbl)
	require.Equal(t, fsm.AfterTDT, m.State())

	lbl, err = m.Next(gbt.KindDDW0, false, false, true)
	require.NoError(t, err)
	require.Equal(t, fsm.LabelDDW0, lbl)
}

func TestTDTPacketDoneClassifiesNextTDH(t *testing.T) {
	m := fsm.New()
	_, _ = m.Next(gbt.KindIHW, true, false, false)
	_, _ = m.Next(gbt.KindTDH, false, false, false)
	_, _ = m.Next(gbt.KindTDT, false, false, false)

	lbl, err := m.Next(gbt.KindTDH, false, true, false)
	require.NoError(t, err)
	require.Equal(t, fsm.LabelTDHAfterPacketDone, lbl)

	m2 := fsm.New()
	_, _ = m2.Next(gbt.KindIHW, true, false, false)
	_, _ = m2.Next(gbt.KindTDH, false, false, false)
	_, _ = m2.Next(gbt.KindTDT, false, false, false)
	lbl2, err := m2.Next(gbt.KindTDH, false, false, false)
	require.NoError(t, err)
	require.Equal(t, fsm.LabelTDHContinuation, lbl2)
}

func TestUnexpectedWordErrors(t *testing.T) {
	m := fsm.New()
	_, err := m.Next(gbt.KindTDT, false, false, false)
	require.ErrorIs(t, err, fsm.ErrUnexpectedWord)
}

func TestResetReturnsToInitial(t *testing.T) {
	m := fsm.New()
	_, _ = m.Next(gbt.KindIHW, true, false, false)
	require.Equal(t, fsm.AfterIHW, m.State())
	m.Reset()
	require.Equal(t, fsm.Initial, m.State())
}

func TestIHWContinuationAfterPageRollover(t *testing.T) {
	m := fsm.New()
	_, _ = m.Next(gbt.KindIHW, true, false, false)
	lbl, err := m.Next(gbt.KindIHW, false, false, false)
	require.NoError(t, err)
	require.Equal(t, fsm.LabelIHWContinuation, lbl)
}
