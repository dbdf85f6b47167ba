package writer_test

import (
	"bytes"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/require"

	"github.com/wnqng/fastPASTA/internal/rdh"
	"github.com/wnqng/fastPASTA/internal/writer"
)

func TestFilterFlushesOnThreshold(t *testing.T) {
	var out bytes.Buffer
	f := writer.NewFilter[rdh.V7](&out, 1*datasize.B, nil)

	h := rdh.RDHCRU[rdh.V7]{Rdh0: rdh.Rdh0{HeaderSize: rdh.HeaderSize}}
	require.NoError(t, f.Write(h, []byte{1, 2, 3}))
	require.Greater(t, out.Len(), 0)
}

func TestFilterFlushesOnClose(t *testing.T) {
	var out bytes.Buffer
	f := writer.NewFilter[rdh.V7](&out, 1*datasize.GB, nil)

	h := rdh.RDHCRU[rdh.V7]{Rdh0: rdh.Rdh0{HeaderSize: rdh.HeaderSize}}
	require.NoError(t, f.Write(h, []byte{1, 2, 3}))
	require.Equal(t, 0, out.Len())

	require.NoError(t, f.Close())
	require.Greater(t, out.Len(), 0)
}
