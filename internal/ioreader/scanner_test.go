package ioreader_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wnqng/fastPASTA/internal/ioreader"
	"github.com/wnqng/fastPASTA/internal/rdh"
)

func encodeRecord(t *testing.T, h rdh.RDHCRU[rdh.V7], payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, h.Encode(&buf))
	buf.Write(payload)
	return buf.Bytes()
}

func rdhWithOffset(offset uint16, linkID uint8) rdh.RDHCRU[rdh.V7] {
	return rdh.RDHCRU[rdh.V7]{
		Rdh0:            rdh.Rdh0{HeaderSize: rdh.HeaderSize},
		OffsetNewPacket: offset,
		MemorySize:      offset,
		LinkID:          linkID,
		DataFormat:      2,
	}
}

func TestLoadCDPRoundTrip(t *testing.T) {
	payload := make([]byte, 20)
	payload[9] = 0xE0
	payload[19] = 0xE8
	data := encodeRecord(t, rdhWithOffset(uint16(rdh.Size+len(payload)), 3), payload)

	sr := ioreader.NewStreamReader(bytes.NewReader(data), 0)
	sc := ioreader.NewScanner[rdh.V7](sr, nil)

	h, got, memPos, err := sc.LoadCDP()
	require.NoError(t, err)
	require.Equal(t, uint64(0), memPos)
	require.Equal(t, uint8(3), h.LinkID)
	require.Equal(t, payload, got)
}

func TestLoadCDPSkipsFilteredLinkWithoutMaterializingPayload(t *testing.T) {
	skippedPayload := bytes.Repeat([]byte{0xAA}, 20)
	keptPayload := make([]byte, 10)
	keptPayload[9] = 0xE0

	var buf bytes.Buffer
	buf.Write(encodeRecord(t, rdhWithOffset(uint16(rdh.Size+len(skippedPayload)), 1), skippedPayload))
	buf.Write(encodeRecord(t, rdhWithOffset(uint16(rdh.Size+len(keptPayload)), 2), keptPayload))

	sr := ioreader.NewStreamReader(&buf, 0)
	sc := ioreader.NewScanner[rdh.V7](sr, func(linkID uint8) bool { return linkID == 2 })

	h, got, _, err := sc.LoadCDP()
	require.NoError(t, err)
	require.Equal(t, uint8(2), h.LinkID)
	require.Equal(t, keptPayload, got)
}

func TestLoadCDPSkipsPaddingBetweenMemorySizeAndOffsetNewPacket(t *testing.T) {
	payload := make([]byte, 10)
	payload[9] = 0xE0
	padding := bytes.Repeat([]byte{0xAA}, 6)
	nextPayload := make([]byte, 10)
	nextPayload[9] = 0xE0

	h := rdhWithOffset(uint16(rdh.Size+len(payload)+len(padding)), 4)
	h.MemorySize = uint16(rdh.Size + len(payload))

	var buf bytes.Buffer
	require.NoError(t, h.Encode(&buf))
	buf.Write(payload)
	buf.Write(padding)
	buf.Write(encodeRecord(t, rdhWithOffset(uint16(rdh.Size+len(nextPayload)), 4), nextPayload))

	sr := ioreader.NewStreamReader(&buf, 0)
	sc := ioreader.NewScanner[rdh.V7](sr, nil)

	first, got, _, err := sc.LoadCDP()
	require.NoError(t, err)
	require.Equal(t, payload, got)
	require.Equal(t, uint16(rdh.Size+len(payload)+len(padding)), first.OffsetNewPacket)

	second, got2, _, err := sc.LoadCDP()
	require.NoError(t, err)
	require.Equal(t, nextPayload, got2)
	require.Equal(t, uint8(4), second.LinkID)
}

func TestGetChunkNeverEmpty(t *testing.T) {
	sr := ioreader.NewStreamReader(bytes.NewReader(nil), 0)
	sc := ioreader.NewScanner[rdh.V7](sr, nil)
	chunk, err := sc.GetChunk(10)
	require.Nil(t, chunk)
	require.ErrorIs(t, err, ioreader.ErrEndOfInput)
}

func TestGetChunkPartialOnCleanEOF(t *testing.T) {
	payload := make([]byte, 10)
	payload[9] = 0xE0
	data := encodeRecord(t, rdhWithOffset(uint16(rdh.Size+len(payload)), 1), payload)

	sr := ioreader.NewStreamReader(bytes.NewReader(data), 0)
	sc := ioreader.NewScanner[rdh.V7](sr, nil)
	chunk, err := sc.GetChunk(5)
	require.NoError(t, err)
	require.Equal(t, 1, chunk.Len())
}
