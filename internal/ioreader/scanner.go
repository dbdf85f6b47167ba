package ioreader

import (
	"errors"
	"fmt"

	"github.com/wnqng/fastPASTA/internal/cdp"
	"github.com/wnqng/fastPASTA/internal/rdh"
)

// LinkFilter reports whether a link's CDPs should be kept. A nil filter
// keeps every link.
type LinkFilter func(linkID uint8) bool

// Scanner turns a BufferedReader into a sequence of CdpChunks, skipping
// the payload bytes of links the LinkFilter rejects without ever copying
// them into a caller-visible buffer.
type Scanner[V rdh.Version] struct {
	r      BufferedReader
	filter LinkFilter
	pos    uint64
}

// NewScanner wraps r. A nil filter keeps every link.
func NewScanner[V rdh.Version](r BufferedReader, filter LinkFilter) *Scanner[V] {
	return &Scanner[V]{r: r, filter: filter}
}

// Pos returns the scanner's current absolute byte position in the stream.
func (s *Scanner[V]) Pos() uint64 { return s.pos }

// LoadCDP reads the next (RDH, payload) pair whose link passes the
// filter, transparently skipping — never buffering — the payload bytes
// of filtered-out links along the way.
func (s *Scanner[V]) LoadCDP() (rdh.RDHCRU[V], []byte, uint64, error) {
	for {
		rdhMemPos := s.pos
		var hdrBuf [rdh.Size]byte
		if err := s.r.ReadFull(hdrBuf[:]); err != nil {
			return rdh.RDHCRU[V]{}, nil, 0, err
		}
		s.pos += rdh.Size

		h, err := rdh.DecodeBytes[V](hdrBuf[:])
		if err != nil {
			return rdh.RDHCRU[V]{}, nil, 0, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}

		if int(h.OffsetNewPacket) < rdh.Size {
			return rdh.RDHCRU[V]{}, nil, 0, fmt.Errorf("%w: offset_new_packet %d smaller than header", ErrInvalidData, h.OffsetNewPacket)
		}
		if int(h.MemorySize) < rdh.Size {
			return rdh.RDHCRU[V]{}, nil, 0, fmt.Errorf("%w: memory_size %d smaller than header", ErrInvalidData, h.MemorySize)
		}
		// offset_new_packet spans the whole CDP, header through any
		// trailing padding, up to the next RDH. memory_size covers only
		// the header plus the actual payload. The two agree unless the
		// stream pads each CDP out to a fixed stride.
		toNext := int(h.OffsetNewPacket) - rdh.Size
		payloadLen := int(h.MemorySize) - rdh.Size
		padLen := toNext - payloadLen

		if s.filter != nil && !s.filter(h.LinkID) {
			if err := s.r.RelativeSkip(int64(toNext)); err != nil {
				return rdh.RDHCRU[V]{}, nil, 0, err
			}
			s.pos += uint64(toNext)
			continue
		}

		payload := make([]byte, payloadLen)
		if payloadLen > 0 {
			if err := s.r.ReadFull(payload); err != nil {
				return rdh.RDHCRU[V]{}, nil, 0, err
			}
		}
		s.pos += uint64(payloadLen)
		if padLen > 0 {
			if err := s.r.RelativeSkip(int64(padLen)); err != nil {
				return rdh.RDHCRU[V]{}, nil, 0, err
			}
			s.pos += uint64(padLen)
		}
		return h, payload, rdhMemPos, nil
	}
}

// GetChunk reads up to n CDPs into a Chunk. It stops early — without
// error — on a clean end of input once at least one record has been
// read; a decode failure mid-chunk returns the partial chunk together
// with the triggering error so the caller can log it and stop. GetChunk
// never returns a zero-length chunk: if the very first read fails, the
// error alone is returned.
func (s *Scanner[V]) GetChunk(n int) (*cdp.Chunk[V], error) {
	chunk := cdp.NewChunk[V]()
	for i := 0; i < n; i++ {
		h, payload, rdhMemPos, err := s.LoadCDP()
		if err != nil {
			if chunk.Len() == 0 {
				return nil, err
			}
			if errors.Is(err, ErrEndOfInput) {
				return chunk, nil
			}
			return chunk, err
		}
		chunk.Append(cdp.Record[V]{RDH: h, Payload: payload, RdhMemPos: rdhMemPos})
	}
	return chunk, nil
}
