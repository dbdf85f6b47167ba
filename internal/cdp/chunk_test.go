package cdp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wnqng/fastPASTA/internal/cdp"
	"github.com/wnqng/fastPASTA/internal/rdh"
)

func TestChunkInsertionOrder(t *testing.T) {
	c := cdp.NewChunk[rdh.V7]()
	require.Equal(t, 0, c.Len())

	c.Append(cdp.Record[rdh.V7]{RdhMemPos: 100})
	c.Append(cdp.Record[rdh.V7]{RdhMemPos: 200})
	c.Append(cdp.Record[rdh.V7]{RdhMemPos: 50})

	require.Equal(t, 3, c.Len())
	got := c.Records()
	require.Equal(t, []uint64{100, 200, 50}, []uint64{got[0].RdhMemPos, got[1].RdhMemPos, got[2].RdhMemPos})
}
